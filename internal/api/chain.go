package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/metrics"
)

// TransportConfig configures the shared transport chain.
type TransportConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
	Breaker           BreakerConfig
}

// NewTransport builds base → limiter → breaker → instrumentation. A nil base
// uses a pooled http.Transport. Wrap the result in an AuthTransport for the
// host API; the token endpoint uses it as is.
func NewTransport(base http.RoundTripper, cfg TransportConfig, log *zap.SugaredLogger) http.RoundTripper {
	if log == nil {
		log = logger.Nop()
	}
	if base == nil {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
	rt := NewLimitTransport(base, cfg.RequestsPerSecond)
	rt = NewBreakerTransport(rt, cfg.Breaker, log)
	return &instrumentedTransport{next: rt, userAgent: cfg.UserAgent, log: log}
}

// NewHTTPClient returns a client using rt with the configured timeout.
func NewHTTPClient(rt http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{Transport: rt, Timeout: timeout}
}

// LimitTransport delays requests to stay under a request rate.
type LimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

// NewLimitTransport limits next to rps requests per second. A non-positive
// rps returns next unchanged.
func NewLimitTransport(next http.RoundTripper, rps float64) http.RoundTripper {
	if rps <= 0 {
		return next
	}
	burst := int(math.Ceil(rps))
	return &LimitTransport{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// RoundTrip implements http.RoundTripper.
func (l *LimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := l.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return l.next.RoundTrip(req)
}

type instrumentedTransport struct {
	next      http.RoundTripper
	userAgent string
	log       *zap.SugaredLogger
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	requestID := out.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
		out.Header.Set("X-Request-ID", requestID)
	}
	if t.userAgent != "" {
		out.Header.Set("User-Agent", t.userAgent)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(out)
	if err != nil {
		metrics.HTTPRequests.WithLabelValues(req.Method, "error").Inc()
		t.log.Debugw("api request error", "request_id", requestID, "method", req.Method, "url", req.URL.Redacted(), "error", err)
		return nil, err
	}

	metrics.HTTPRequests.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	t.log.Debugw("api request",
		"request_id", requestID,
		"method", req.Method,
		"url", req.URL.Redacted(),
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)
	return resp, nil
}
