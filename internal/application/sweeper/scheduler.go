package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/config"
)

const lockName = "sweeper:expired-items"

// Locker grants a cluster-wide lease. Release is safe to call after the
// lease has lapsed.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

type statsSource interface {
	Statistics(ctx context.Context) (*item.Statistics, error)
}

// Scheduler runs the daily expiry sweep and the periodic statistics log line.
type Scheduler struct {
	sweeper *Sweeper
	stats   statsSource
	locker  Locker // nil runs every sweep locally
	cfg     config.SweeperConfig
	now     func() time.Time
}

func NewScheduler(sw *Sweeper, stats statsSource, locker Locker, cfg config.SweeperConfig) *Scheduler {
	return &Scheduler{sweeper: sw, stats: stats, locker: locker, cfg: cfg, now: time.Now}
}

// Start launches the background loops and returns a stop func that waits
// for them to exit or for ctx to expire.
func (s *Scheduler) Start() func(context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.sweepLoop(runCtx)
	}()
	if s.stats != nil && s.cfg.StatsInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.statsLoop(runCtx)
		}()
	}

	return func(ctx context.Context) error {
		cancel()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	for {
		wait := nextRun(s.now(), s.cfg.Hour).Sub(s.now())
		slog.Debug("next expiry sweep scheduled", "in", wait.Round(time.Second).String())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *Scheduler) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.LogStatistics(ctx)
		}
	}
}

// RunOnce performs a single sweep, guarded by the cluster lock when one is
// configured. It reports whether this instance ran the sweep.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, lockName, s.cfg.LockTTL)
		if err != nil {
			slog.Error("sweeper lock unavailable, skipping run", "err", err)
			return false
		}
		if !ok {
			slog.Info("expiry sweep already running on another instance")
			return false
		}
		defer release()
	}
	if _, err := s.sweeper.SweepExpired(ctx, s.cfg.ThresholdDays); err != nil {
		slog.Error("expiry sweep failed", "err", err)
	}
	return true
}

func (s *Scheduler) LogStatistics(ctx context.Context) {
	st, err := s.stats.Statistics(ctx)
	if err != nil {
		slog.Error("failed to collect item statistics", "err", err)
		return
	}
	slog.Info("item status statistics", "lost", st.Lost, "found", st.Found)
}

// nextRun is the next local time at hour:00 strictly after now.
func nextRun(now time.Time, hour int) time.Time {
	if hour < 0 || hour > 23 {
		hour = 2
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
