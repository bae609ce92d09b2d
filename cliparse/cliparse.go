package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ResultsModeStrong  = "strong"
	ResultsModeBounded = "bounded"
)

type Config struct {
	Port            int
	DatabaseURL     string
	DatabaseType    string
	AdminKeySalt    string
	FingerprintSalt string

	ResultsMode       string
	CacheThreshold    int
	CacheMaxStaleness time.Duration
	RedisURL          string
}

// ParseFlags reads flags, falling back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("tally", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.FingerprintSalt, "fingerprint-salt", "", "Voter fingerprint salt (prefer env)")

	// Results consistency
	fs.StringVar(&cfg.ResultsMode, "results-mode", "", "Results mode (strong or bounded)")
	fs.IntVar(&cfg.CacheThreshold, "cache-threshold", 0, "Votes above which bounded mode serves cached results")
	fs.DurationVar(&cfg.CacheMaxStaleness, "cache-max-staleness", 0, "Maximum age of cached results")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for the shared results cache")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// zero is a valid threshold, so flags given on the command line are
	// tracked by name rather than by value
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.FingerprintSalt == "" {
		cfg.FingerprintSalt = os.Getenv("FINGERPRINT_SALT")
	}
	if cfg.FingerprintSalt == "" {
		return Config{}, errors.New("FINGERPRINT_SALT required")
	}

	if cfg.ResultsMode == "" {
		cfg.ResultsMode = os.Getenv("RESULTS_MODE")
		if cfg.ResultsMode == "" {
			cfg.ResultsMode = ResultsModeStrong
		}
	}
	if cfg.ResultsMode != ResultsModeStrong && cfg.ResultsMode != ResultsModeBounded {
		return Config{}, fmt.Errorf("results mode must be %q or %q, got %q", ResultsModeStrong, ResultsModeBounded, cfg.ResultsMode)
	}

	if explicit["cache-threshold"] {
		if cfg.CacheThreshold < 0 {
			return Config{}, errors.New("cache threshold must not be negative")
		}
	} else if s := os.Getenv("CACHE_THRESHOLD"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Config{}, errors.New("invalid CACHE_THRESHOLD env variable")
		}
		cfg.CacheThreshold = n
	} else {
		cfg.CacheThreshold = 1000
	}

	if explicit["cache-max-staleness"] {
		if cfg.CacheMaxStaleness <= 0 {
			return Config{}, errors.New("cache max staleness must be positive")
		}
	} else if s := os.Getenv("CACHE_MAX_STALENESS"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return Config{}, errors.New("invalid CACHE_MAX_STALENESS env variable")
		}
		cfg.CacheMaxStaleness = d
	} else {
		cfg.CacheMaxStaleness = 30 * time.Second
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	return cfg, nil
}
