package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	start time.Time
	fires map[string][]time.Duration
}

func newRecorder() *recorder {
	return &recorder{start: time.Now(), fires: make(map[string][]time.Duration)}
}

func (r *recorder) tier(name string) Tier {
	return func(context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.fires[name] = append(r.fires[name], time.Since(r.start))
		return nil
	}
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = time.Now()
	r.fires = make(map[string][]time.Duration)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fires[name])
}

func (r *recorder) at(name string) []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.fires[name]...)
}

func testConfig() Config {
	return Config{Interval: 200 * time.Millisecond, SecondaryDelay: 30 * time.Millisecond, SystemDelay: 80 * time.Millisecond}
}

func newTestScheduler(r *recorder) *Scheduler {
	return New(testConfig(), Tiers{
		Primary:   r.tier("primary"),
		Secondary: r.tier("secondary"),
		System:    r.tier("system"),
	}, nil)
}

func TestScheduler_ResumeFiresTiersInOrder(t *testing.T) {
	r := newRecorder()
	s := newTestScheduler(r)
	assert.Equal(t, StateIdle, s.State())

	s.Resume()
	defer s.Pause()
	assert.Equal(t, StateRunning, s.State())

	require.Eventually(t, func() bool { return r.count("primary") >= 2 }, 2*time.Second, 5*time.Millisecond)

	primary := r.at("primary")
	secondary := r.at("secondary")
	system := r.at("system")
	require.Len(t, secondary, 1)
	require.Len(t, system, 1)

	assert.Less(t, primary[0], 30*time.Millisecond, "primary runs immediately")
	assert.GreaterOrEqual(t, secondary[0], 30*time.Millisecond)
	assert.GreaterOrEqual(t, system[0], 80*time.Millisecond)
	assert.Less(t, secondary[0], system[0])
	assert.GreaterOrEqual(t, primary[1], 200*time.Millisecond, "first recurrence after one interval")
}

func TestScheduler_PauseStopsEverything(t *testing.T) {
	r := newRecorder()
	s := newTestScheduler(r)

	s.Resume()
	require.Eventually(t, func() bool { return r.count("primary") == 1 }, time.Second, time.Millisecond)
	s.Pause()
	assert.Equal(t, StateIdle, s.State())
	s.Wait()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, r.count("primary"))
	assert.Equal(t, 0, r.count("secondary"))
	assert.Equal(t, 0, r.count("system"))
}

func TestScheduler_PauseCancelsInFlightTier(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	s := New(testConfig(), Tiers{
		Primary: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		},
	}, nil)

	s.Resume()
	<-started
	s.Pause()
	s.Wait()

	assert.True(t, cancelled.Load())
}

func TestScheduler_ResumeRestartsFromZero(t *testing.T) {
	r := newRecorder()
	s := newTestScheduler(r)

	s.Resume()
	defer s.Pause()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, r.count("secondary"))

	r.reset()
	s.Resume()

	require.Eventually(t, func() bool { return r.count("system") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, r.count("primary"), "restart runs primary once")
	assert.Equal(t, 1, r.count("secondary"))
	assert.GreaterOrEqual(t, r.at("system")[0], 80*time.Millisecond, "delays count from the second resume")
}

func TestScheduler_PauseFromInsideTier(t *testing.T) {
	var s *Scheduler
	done := make(chan struct{})
	s = New(testConfig(), Tiers{
		Primary: func(context.Context) error {
			s.Pause()
			close(done)
			return nil
		},
	}, nil)

	s.Resume()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pause from inside a tier did not return")
	}
	assert.Equal(t, StateIdle, s.State())
}

func TestScheduler_ConcurrentResumeAndPause(t *testing.T) {
	r := newRecorder()
	s := newTestScheduler(r)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.Resume() }()
		go func() { defer wg.Done(); s.Pause() }()
	}
	wg.Wait()
	s.Pause()
	s.Wait()

	fired := r.count("primary") + r.count("secondary") + r.count("system")
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, fired, r.count("primary")+r.count("secondary")+r.count("system"))
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	var runs atomic.Int32
	release := make(chan struct{})
	cfg := testConfig()
	cfg.Interval = 20 * time.Millisecond
	s := New(cfg, Tiers{
		Primary: func(ctx context.Context) error {
			runs.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		},
	}, nil)

	s.Resume()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	close(release)
	s.Pause()
	s.Wait()
}
