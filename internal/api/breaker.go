package api

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/metrics"
)

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	// Name identifies the breaker in metrics and logs.
	Name string

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts; 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// FailureRatio trips the breaker once MinRequests have been counted.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the settings used for the host API.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// ErrCircuitOpen is wrapped in the network error returned while the breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerTransport counts transport errors and 5xx responses (other than 501)
// as failures and rejects requests while open. Failed responses are still
// returned to the caller so their error bodies can be parsed.
type BreakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

type serverFailure struct {
	resp *http.Response
}

func (e *serverFailure) Error() string {
	return fmt.Sprintf("server responded %d", e.resp.StatusCode)
}

// NewBreakerTransport wraps next with a circuit breaker.
func NewBreakerTransport(next http.RoundTripper, cfg BreakerConfig, log *zap.SugaredLogger) *BreakerTransport {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Warnw("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}
	metrics.BreakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerTransport{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// RoundTrip implements http.RoundTripper.
func (b *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := b.breaker.Execute(func() (*http.Response, error) {
		resp, err := b.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
			return nil, &serverFailure{resp: resp}
		}
		return resp, nil
	})

	var failure *serverFailure
	switch {
	case stderrors.As(err, &failure):
		return failure.resp, nil
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err)
	}
	return resp, err
}

// State returns the breaker state.
func (b *BreakerTransport) State() gobreaker.State {
	return b.breaker.State()
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
