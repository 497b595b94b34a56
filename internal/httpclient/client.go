// Package httpclient builds the outbound HTTP clients used by the agent:
// fixed timeouts, pooled transports and optional client-side rate limiting.
package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds every request made by a client.
	DefaultTimeout = 30 * time.Second

	// AITimeout is the timeout for image generation calls.
	AITimeout = 60 * time.Second

	// DefaultUserAgent identifies the agent to remote sites.
	DefaultUserAgent = "Mozilla/5.0 (compatible; pinagent/1.0)"

	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 5
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
)

// Config configures a client.
type Config struct {
	// Timeout is the whole-request limit. Zero means DefaultTimeout.
	Timeout time.Duration
	// RatePerSecond caps outgoing requests; zero disables limiting.
	RatePerSecond float64
	// Burst is the limiter bucket size. Zero means 1.
	Burst int
	// UserAgent is set on requests that carry none. Empty means
	// DefaultUserAgent.
	UserAgent string
	// Transport overrides the base round tripper, mainly for tests.
	Transport http.RoundTripper
}

// New creates an *http.Client from cfg.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	base := cfg.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
			TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
		}
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &transport{base: base, limiter: limiter, userAgent: ua},
	}
}

// transport waits on the limiter and fills in the User-Agent.
type transport struct {
	base      http.RoundTripper
	limiter   *rate.Limiter
	userAgent string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}
