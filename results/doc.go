// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package results serves aggregated survey results under one of two
consistency modes.

# Strong

Every read takes a fresh snapshot and aggregates it, so a vote is visible
to the next read after its submission returns.

# Bounded

Surveys with more votes than Threshold are served from a Cache while the
cached entry is younger than MaxStaleness. Missing or expired entries are
recomputed once per survey no matter how many readers are waiting:

	svc := results.NewService(st, results.NewMemoryCache(), results.Config{
		Mode:         results.ModeBounded,
		Threshold:    1000,
		MaxStaleness: 30 * time.Second,
	}, logger)

RedisCache shares entries between server instances. Writes never
invalidate the cache; entries only age out.
*/
package results
