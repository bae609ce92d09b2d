// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tally/models"
)

type fakeSource struct {
	calls   atomic.Int32
	votes   atomic.Int32
	release chan struct{}
	err     error
}

func (f *fakeSource) Snapshot(_ context.Context, surveyID string) (models.VoteSet, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return models.VoteSet{}, f.err
	}
	survey := models.Survey{
		ID:           surveyID,
		QuestionType: models.SingleChoice,
		Options:      []models.SurveyOption{{ID: "a", OptionText: "A"}},
	}
	set := models.VoteSet{Survey: survey}
	for i := 0; i < int(f.votes.Load()); i++ {
		set.Votes = append(set.Votes, models.Vote{ID: "v", OptionIDs: []string{"a"}})
	}
	return set, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(src *fakeSource, cfg Config) (*Service, *clock) {
	svc := NewService(src, nil, cfg, nil)
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc.now = clk.now
	return svc, clk
}

func TestStrongModeAlwaysRecomputes(t *testing.T) {
	src := &fakeSource{}
	src.votes.Store(5)
	svc, _ := newTestService(src, Config{Mode: ModeStrong, Threshold: 1, MaxStaleness: time.Hour})

	for i := 0; i < 3; i++ {
		resp, err := svc.GetResults(context.Background(), "s")
		require.NoError(t, err)
		assert.Equal(t, "strong", resp.Consistency)
	}
	assert.Equal(t, int32(3), src.calls.Load())

	src.votes.Store(6)
	resp, err := svc.GetResults(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, 6, resp.TotalVotes)
}

func TestBoundedModeServesCacheAboveThreshold(t *testing.T) {
	src := &fakeSource{}
	src.votes.Store(10)
	svc, clk := newTestService(src, Config{Mode: ModeBounded, Threshold: 5, MaxStaleness: time.Minute})
	ctx := context.Background()

	first, err := svc.GetResults(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 10, first.TotalVotes)
	assert.Equal(t, "bounded", first.Consistency)

	// new votes are not visible until the entry ages out
	src.votes.Store(12)
	clk.advance(30 * time.Second)
	cached, err := svc.GetResults(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 10, cached.TotalVotes)
	assert.Equal(t, int32(1), src.calls.Load())

	clk.advance(31 * time.Second)
	fresh, err := svc.GetResults(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 12, fresh.TotalVotes)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestBoundedModeRecomputesSmallSurveys(t *testing.T) {
	src := &fakeSource{}
	src.votes.Store(3)
	svc, _ := newTestService(src, Config{Mode: ModeBounded, Threshold: 5, MaxStaleness: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := svc.GetResults(context.Background(), "s")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestBoundedModeSingleFlight(t *testing.T) {
	src := &fakeSource{release: make(chan struct{})}
	src.votes.Store(10)
	svc, _ := newTestService(src, Config{Mode: ModeBounded, Threshold: 5, MaxStaleness: time.Minute})

	const readers = 20
	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.GetResults(context.Background(), "s")
			if err == nil && resp.TotalVotes == 10 {
				ok.Add(1)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(readers), ok.Load())
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestSnapshotErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	for _, mode := range []Mode{ModeStrong, ModeBounded} {
		src := &fakeSource{err: boom}
		svc, _ := newTestService(src, Config{Mode: mode, Threshold: 0, MaxStaleness: time.Minute})
		_, err := svc.GetResults(context.Background(), "s")
		assert.ErrorIs(t, err, boom)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("bounded")
	require.NoError(t, err)
	assert.Equal(t, ModeBounded, m)

	_, err = ParseMode("eventual")
	assert.Error(t, err)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "s")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, Entry{SurveyID: "s", Size: 2}, time.Minute))
	entry, ok, err := c.Get(ctx, "s")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, entry.Size)
}
