package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/edgegw/internal/observability"
)

// Fetcher defaults.
const (
	DefaultFetchTimeout     = 10 * time.Second
	DefaultMaxDocumentBytes = 16 << 20
	DefaultBreakerThreshold = 5
	DefaultBreakerTimeout   = 30 * time.Second
)

// Fetcher retrieves downstream API documents. Each downstream host has
// its own circuit breaker.
type Fetcher struct {
	client           *http.Client
	timeout          time.Duration
	maxBytes         int64
	breakerThreshold uint32
	breakerTimeout   time.Duration
	logger           observability.Logger
	metrics          *Metrics

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// FetcherOption is a functional option for the fetcher.
type FetcherOption func(*Fetcher)

// WithFetchTimeout bounds each fetch, including reading the body.
func WithFetchTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithMaxDocumentBytes limits the accepted document size.
func WithMaxDocumentBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithBreaker sets how many consecutive failures open a host's breaker
// and how long it stays open.
func WithBreaker(threshold int, openTimeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if threshold > 0 {
			f.breakerThreshold = uint32(threshold) //nolint:gosec // checked positive
		}
		if openTimeout > 0 {
			f.breakerTimeout = openTimeout
		}
	}
}

// WithFetcherLogger sets the logger for the fetcher.
func WithFetcherLogger(logger observability.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithFetcherMetrics sets the metrics for the fetcher.
func WithFetcherMetrics(metrics *Metrics) FetcherOption {
	return func(f *Fetcher) {
		f.metrics = metrics
	}
}

// NewFetcher creates a fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:           &http.Client{},
		timeout:          DefaultFetchTimeout,
		maxBytes:         DefaultMaxDocumentBytes,
		breakerThreshold: DefaultBreakerThreshold,
		breakerTimeout:   DefaultBreakerTimeout,
		logger:           observability.NopLogger(),
		breakers:         make(map[string]*gobreaker.CircuitBreaker),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads the document at rawURL. Timeouts, transport errors,
// open breakers and non-2xx statuses all yield ErrFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()

	body, err := f.fetch(ctx, rawURL)
	if f.metrics != nil {
		f.metrics.RecordFetch(err, time.Since(start))
	}
	if err != nil {
		f.logger.Warn("document fetch failed",
			observability.String("url", rawURL),
			observability.Duration("elapsed", time.Since(start)),
			observability.Error(err),
		)
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		if err == nil {
			err = errors.New("url has no host")
		}
		return nil, newDocumentError(ErrFetchFailed, rawURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	result, err := f.breaker(u.Host).Execute(func() (interface{}, error) {
		body, err := f.get(ctx, rawURL)
		if err != nil && errors.Is(ctx.Err(), context.Canceled) && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %w", context.Canceled, err)
		}
		return body, err
	})
	if err != nil {
		return nil, newDocumentError(ErrFetchFailed, rawURL, err)
	}

	return result.([]byte), nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	observability.InjectTraceContext(ctx, req.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("downstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", f.maxBytes)
	}
	return body, nil
}

// breaker returns the circuit breaker for host, creating it on first use.
func (f *Fetcher) breaker(host string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[host]; ok {
		return cb
	}

	threshold := f.breakerThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     f.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller that gave up says nothing about the host.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Info("document fetch breaker state change",
				observability.String("host", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})
	f.breakers[host] = cb
	return cb
}

// BreakerState returns the breaker state for host.
func (f *Fetcher) BreakerState(host string) gobreaker.State {
	return f.breaker(host).State()
}
