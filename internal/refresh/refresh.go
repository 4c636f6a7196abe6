// Package refresh runs the fetch, normalize and compute cycle on a schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/verte-zerg/ghstreak/internal/calendar"
	"github.com/verte-zerg/ghstreak/internal/model"
	"github.com/verte-zerg/ghstreak/internal/stats"
	"github.com/verte-zerg/ghstreak/internal/store"
)

// DefaultInterval matches the hourly refresh of the panel.
const DefaultInterval = time.Hour

// Fetcher retrieves the raw calendar of a login.
type Fetcher interface {
	FetchCalendar(ctx context.Context, login string) (model.RawCalendar, error)
}

// Cache persists the latest normalized calendar.
type Cache interface {
	SaveSnapshot(ctx context.Context, snap store.Snapshot) error
	LoadSnapshot(ctx context.Context, login string) (store.Snapshot, error)
}

// Update is the outcome of one refresh cycle.
type Update struct {
	Login              string
	Record             model.StatisticsRecord
	Series             model.CalendarSeries
	TotalContributions int
	ComputedAt         time.Time
	FetchedAt          time.Time
	// Stale is set when Record comes from an earlier cycle or from the cache.
	Stale bool
	Err   error
}

// HasRecord reports whether the update carries statistics to show.
func (u Update) HasRecord() bool {
	return !u.FetchedAt.IsZero()
}

// Options configures a Scheduler.
type Options struct {
	Login    string
	Lookback time.Duration
	Interval time.Duration
	Fetcher  Fetcher
	// Cache is optional.
	Cache Cache
	// Now defaults to time.Now.
	Now func() time.Time
}

// Scheduler owns the refresh cycle for one login.
type Scheduler struct {
	opts  Options
	group singleflight.Group

	mu   sync.RWMutex
	last Update
}

// New constructs a Scheduler.
func New(opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{opts: opts}
}

// Last returns the most recent update and whether one exists.
func (s *Scheduler) Last() (Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last.HasRecord() || s.last.Err != nil
}

// Refresh performs one cycle. Concurrent callers share a single fetch.
// On failure the last known record is kept and marked stale.
func (s *Scheduler) Refresh(ctx context.Context) Update {
	v, _, _ := s.group.Do(s.opts.Login, func() (any, error) {
		return s.refresh(ctx), nil
	})
	return v.(Update)
}

func (s *Scheduler) refresh(ctx context.Context) Update {
	now := s.opts.Now()
	upd, err := s.fetch(ctx, now)
	if err != nil {
		log.Warn().Err(err).Str("login", s.opts.Login).Msg("refresh failed")
		upd = s.fallback(ctx, now, err)
	} else {
		log.Info().
			Str("login", s.opts.Login).
			Int("current", upd.Record.CurrentStreak).
			Int("longest", upd.Record.LongestStreak).
			Msg("refreshed contribution stats")
	}

	s.mu.Lock()
	s.last = upd
	s.mu.Unlock()
	return upd
}

func (s *Scheduler) fetch(ctx context.Context, now time.Time) (Update, error) {
	raw, err := s.opts.Fetcher.FetchCalendar(ctx, s.opts.Login)
	if err != nil {
		return Update{}, fmt.Errorf("failed to fetch calendar: %w", err)
	}
	series, err := calendar.Normalize(calendar.Flatten(raw))
	if err != nil {
		return Update{}, fmt.Errorf("failed to normalize calendar: %w", err)
	}
	if s.opts.Cache != nil {
		snap := store.Snapshot{
			Login:              s.opts.Login,
			FetchedAt:          now,
			TotalContributions: raw.TotalContributions,
			Series:             series,
		}
		if err := s.opts.Cache.SaveSnapshot(ctx, snap); err != nil {
			log.Warn().Err(err).Msg("failed to cache calendar")
		}
	}
	return Update{
		Login:              s.opts.Login,
		Record:             stats.Compute(series, now, s.opts.Lookback),
		Series:             series,
		TotalContributions: raw.TotalContributions,
		ComputedAt:         now,
		FetchedAt:          now,
	}, nil
}

// fallback keeps the last known values, or recomputes from the cache when
// nothing has been fetched in this process yet.
func (s *Scheduler) fallback(ctx context.Context, now time.Time, cause error) Update {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last.HasRecord() {
		last.Stale = true
		last.Err = cause
		return last
	}

	upd := Update{Login: s.opts.Login, Stale: true, Err: cause}
	if s.opts.Cache == nil {
		return upd
	}
	snap, err := s.opts.Cache.LoadSnapshot(ctx, s.opts.Login)
	if err != nil {
		if !errors.Is(err, store.ErrNoSnapshot) {
			log.Warn().Err(err).Msg("failed to load cached calendar")
		}
		return upd
	}
	return FromSnapshot(snap, now, s.opts.Lookback, cause)
}

// FromSnapshot computes a stale update from a cached calendar.
func FromSnapshot(snap store.Snapshot, now time.Time, lookback time.Duration, cause error) Update {
	return Update{
		Login:              snap.Login,
		Record:             stats.Compute(snap.Series, now, lookback),
		Series:             snap.Series,
		TotalContributions: snap.TotalContributions,
		ComputedAt:         now,
		FetchedAt:          snap.FetchedAt,
		Stale:              true,
		Err:                cause,
	}
}

// Run refreshes immediately and then once per interval, sending every update
// to out. It returns ctx.Err() once ctx is cancelled. out is not closed.
func (s *Scheduler) Run(ctx context.Context, out chan<- Update) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		upd := s.Refresh(ctx)
		select {
		case out <- upd:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
