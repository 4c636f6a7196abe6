package refresh

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ghstreak/internal/calendar"
	"github.com/verte-zerg/ghstreak/internal/model"
	"github.com/verte-zerg/ghstreak/internal/stats"
	"github.com/verte-zerg/ghstreak/internal/store"
)

type fakeFetcher struct {
	mu    sync.Mutex
	cal   model.RawCalendar
	err   error
	calls int32
	block chan struct{}
}

func (f *fakeFetcher) FetchCalendar(ctx context.Context, _ string) (model.RawCalendar, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return model.RawCalendar{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cal, f.err
}

func (f *fakeFetcher) set(cal model.RawCalendar, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cal = cal
	f.err = err
}

func testCalendar() model.RawCalendar {
	return model.RawCalendar{
		TotalContributions: 6,
		Weeks: []model.RawWeek{
			{Days: []model.RawDay{
				{Date: "2024-01-01", Count: 1},
				{Date: "2024-01-02", Count: 1},
				{Date: "2024-01-03", Count: 0},
			}},
			{Days: []model.RawDay{
				{Date: "2024-01-04", Count: 4},
			}},
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 4, 18, 0, 0, 0, time.UTC)
}

func openCache(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "calendar.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestRefreshComputesRecord(t *testing.T) {
	fetcher := &fakeFetcher{cal: testCalendar()}
	cache := openCache(t)
	s := New(Options{Login: "octocat", Lookback: stats.Year, Fetcher: fetcher, Cache: cache, Now: fixedNow})

	upd := s.Refresh(context.Background())
	require.NoError(t, upd.Err)
	assert.False(t, upd.Stale)
	assert.Equal(t, model.StatisticsRecord{
		CurrentStreak: 1,
		LongestStreak: 2,
		TodayCount:    4,
		WindowCount:   6,
		Lookback:      stats.Year,
	}, upd.Record)
	assert.Equal(t, 6, upd.TotalContributions)

	snap, err := cache.LoadSnapshot(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Len(t, snap.Series, 4)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, upd.Record, last.Record)
}

func TestRefreshKeepsLastKnownValuesOnFailure(t *testing.T) {
	fetcher := &fakeFetcher{cal: testCalendar()}
	s := New(Options{Login: "octocat", Lookback: stats.Year, Fetcher: fetcher, Now: fixedNow})

	first := s.Refresh(context.Background())
	require.NoError(t, first.Err)

	boom := errors.New("network down")
	fetcher.set(model.RawCalendar{}, boom)
	second := s.Refresh(context.Background())
	assert.ErrorIs(t, second.Err, boom)
	assert.True(t, second.Stale)
	assert.Equal(t, first.Record, second.Record)
	assert.True(t, second.HasRecord())
}

func TestRefreshPropagatesMalformedRecord(t *testing.T) {
	cal := testCalendar()
	cal.Weeks[0].Days[0].Count = -1
	fetcher := &fakeFetcher{cal: cal}
	s := New(Options{Login: "octocat", Lookback: stats.Year, Fetcher: fetcher, Now: fixedNow})

	upd := s.Refresh(context.Background())
	assert.ErrorIs(t, upd.Err, calendar.ErrMalformedRecord)
	assert.False(t, upd.HasRecord())
	assert.Equal(t, model.StatisticsRecord{}, upd.Record)
}

func TestRefreshFallsBackToCache(t *testing.T) {
	cache := openCache(t)
	series, err := calendar.Normalize(calendar.Flatten(testCalendar()))
	require.NoError(t, err)
	fetchedAt := fixedNow().Add(-2 * time.Hour)
	require.NoError(t, cache.SaveSnapshot(context.Background(), store.Snapshot{
		Login:              "octocat",
		FetchedAt:          fetchedAt,
		TotalContributions: 6,
		Series:             series,
	}))

	fetcher := &fakeFetcher{err: errors.New("offline")}
	s := New(Options{Login: "octocat", Lookback: stats.Year, Fetcher: fetcher, Cache: cache, Now: fixedNow})

	upd := s.Refresh(context.Background())
	require.Error(t, upd.Err)
	assert.True(t, upd.Stale)
	assert.True(t, upd.FetchedAt.Equal(fetchedAt))
	assert.Equal(t, 1, upd.Record.CurrentStreak)
	assert.Equal(t, 2, upd.Record.LongestStreak)
}

func TestRefreshCoalescesConcurrentCallers(t *testing.T) {
	fetcher := &fakeFetcher{cal: testCalendar(), block: make(chan struct{})}
	s := New(Options{Login: "octocat", Lookback: stats.Year, Fetcher: fetcher, Now: fixedNow})

	var wg sync.WaitGroup
	results := make([]Update, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Refresh(context.Background())
		}(i)
	}
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fetcher.calls) >= 1
	}, time.Second, time.Millisecond)
	// Let the other callers join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.block)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	for _, r := range results {
		assert.Equal(t, 4, r.Record.TodayCount)
	}
}

func TestRunSendsUpdatesUntilCancelled(t *testing.T) {
	fetcher := &fakeFetcher{cal: testCalendar()}
	s := New(Options{
		Login:    "octocat",
		Lookback: stats.Month,
		Interval: 5 * time.Millisecond,
		Fetcher:  fetcher,
		Now:      fixedNow,
	})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Update)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, out)
	}()

	for i := 0; i < 2; i++ {
		select {
		case upd := <-out:
			assert.Equal(t, 6, upd.Record.WindowCount)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for update %d", i)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&fetcher.calls), int32(2))
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(Options{Login: "octocat", Fetcher: &fakeFetcher{}})
	assert.Equal(t, DefaultInterval, s.opts.Interval)
	assert.NotNil(t, s.opts.Now)
	_, ok := s.Last()
	assert.False(t, ok)
}
