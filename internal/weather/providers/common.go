package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// delay returns the wait before retry number attempt (0-based).
func (b BackoffConfig) delay(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := b.InitialInterval << attempt
	if b.MaxInterval > 0 && (d > b.MaxInterval || d <= 0) {
		d = b.MaxInterval
	}
	return d
}

var defaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errMissingAPIKey = errors.New("api key is not configured")
)

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// upstream is one weather API behind its own circuit breaker.
type upstream struct {
	name    string
	client  *http.Client
	backoff BackoffConfig
	breaker *gobreaker.CircuitBreaker
}

func newUpstream(name string, client *http.Client) *upstream {
	return &upstream{
		name:    name,
		client:  client,
		backoff: defaultBackoff,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    10 * time.Minute,
			Timeout:     2 * time.Minute,
			// A daily job makes few calls; trip after a short run of failures.
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("providers: circuit state changed", "provider", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// statusError classifies a non-2xx response. Only rate limits and server
// errors are worth retrying.
func statusError(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return errRateLimited
	case code >= 500:
		return errServerError
	default:
		return fmt.Errorf("%w: %d", errUnexpected, code)
	}
}

// attempt sends one request through the breaker.
func (u *upstream) attempt(req *http.Request) (*http.Response, error) {
	result, err := u.breaker.Execute(func() (interface{}, error) {
		resp, err := u.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, statusError(resp.StatusCode)
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// do executes the request built by build with retries and backoff. A fresh
// request is built for every attempt.
func (u *upstream) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if u.client == nil {
		return nil, errNoHTTPClient
	}
	if u.backoff.MaxRetries < 0 || u.backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := build(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := u.attempt(req)
		switch {
		case err == nil:
			return resp, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, fmt.Errorf("%s: %w: %v", u.name, errCircuitOpen, err)
		case errors.Is(err, errUnexpected), n >= u.backoff.MaxRetries:
			return nil, err
		}

		timer := time.NewTimer(u.backoff.delay(n))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// getJSON performs a resilient GET against rawURL and decodes the body into out.
func (u *upstream) getJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := u.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", u.name, err)
	}
	return nil
}
