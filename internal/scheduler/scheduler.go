// Package scheduler drives periodic background refreshes in three tiers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/metrics"
)

// State is whether the scheduler is firing tiers.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Tier is one batch of refreshes. It must return promptly once ctx is done.
type Tier func(ctx context.Context) error

// Tiers are the refresh batches. Primary runs on resume and then every
// interval; Secondary and System run once per resume after their delays. A nil
// tier is skipped.
type Tiers struct {
	Primary   Tier
	Secondary Tier
	System    Tier
}

// Config holds scheduler timings.
type Config struct {
	Interval       time.Duration
	SecondaryDelay time.Duration
	SystemDelay    time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		Interval:       2 * time.Minute,
		SecondaryDelay: 3 * time.Second,
		SystemDelay:    20 * time.Second,
	}
}

type tierName string

const (
	tierPrimary   tierName = "primary"
	tierSecondary tierName = "secondary"
	tierSystem    tierName = "system"
)

// Scheduler fires Tiers while running. Every method is safe for concurrent use,
// including from inside a tier.
type Scheduler struct {
	cfg   Config
	tiers Tiers
	log   *zap.SugaredLogger

	mu      sync.Mutex
	state   State
	gen     uint64
	cancel  context.CancelFunc
	busy    map[tierName]bool
	running sync.WaitGroup
}

// New creates an idle Scheduler.
func New(cfg Config, tiers Tiers, log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Scheduler{cfg: cfg, tiers: tiers, log: log, busy: make(map[tierName]bool)}
}

// State reports the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resume runs the primary tier now, the secondary and system tiers after
// their delays, then the primary tier every interval. Resuming while running
// restarts the schedule from zero.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = StateRunning
	s.busy = make(map[tierName]bool)
	gen := s.gen

	s.running.Add(1)
	go s.loop(ctx, gen)
	s.log.Debugw("scheduler resumed", "interval", s.cfg.Interval)
}

// Pause stops the schedule and cancels the context of tiers in flight. No tier
// starts after Pause returns.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return
	}
	s.stopLocked()
	s.state = StateIdle
	s.log.Debugw("scheduler paused")
}

// Wait blocks until every tier started so far has returned. It must not be
// called from inside a tier.
func (s *Scheduler) Wait() {
	s.running.Wait()
}

func (s *Scheduler) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *Scheduler) loop(ctx context.Context, gen uint64) {
	defer s.running.Done()

	secondary := time.NewTimer(s.cfg.SecondaryDelay)
	defer secondary.Stop()
	system := time.NewTimer(s.cfg.SystemDelay)
	defer system.Stop()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.fire(ctx, gen, tierPrimary, s.tiers.Primary)
	for {
		select {
		case <-ctx.Done():
			return
		case <-secondary.C:
			s.fire(ctx, gen, tierSecondary, s.tiers.Secondary)
		case <-system.C:
			s.fire(ctx, gen, tierSystem, s.tiers.System)
		case <-ticker.C:
			s.fire(ctx, gen, tierPrimary, s.tiers.Primary)
		}
	}
}

// fire starts tier unless the schedule that armed it has been stopped or a
// run of the same tier from this schedule is still going.
func (s *Scheduler) fire(ctx context.Context, gen uint64, name tierName, tier Tier) {
	if tier == nil {
		return
	}
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.busy[name] {
		s.mu.Unlock()
		s.log.Debugw("tier still running, skipped", "tier", name)
		return
	}
	busy := s.busy
	busy[name] = true
	s.running.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.running.Done()
		defer func() {
			s.mu.Lock()
			busy[name] = false
			s.mu.Unlock()
		}()

		start := time.Now()
		err := tier(ctx)
		metrics.TierRuns.WithLabelValues(string(name), metrics.Outcome(err)).Inc()
		if err != nil && ctx.Err() == nil {
			s.log.Warnw("refresh tier failed", "tier", name, "elapsed", time.Since(start), "error", err)
			return
		}
		s.log.Debugw("refresh tier finished", "tier", name, "elapsed", time.Since(start))
	}()
}
