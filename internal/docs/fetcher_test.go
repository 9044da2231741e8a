package docs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"swagger":"2.0"}`))
	}))
	defer server.Close()

	metrics := NewMetrics("test")
	f := NewFetcher(WithFetcherMetrics(metrics))

	body, err := f.Fetch(context.Background(), server.URL+"/swagger.json")
	require.NoError(t, err)
	assert.Equal(t, `{"swagger":"2.0"}`, string(body))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.fetchTotal.WithLabelValues("success")))
}

func TestFetcher_Failures(t *testing.T) {
	t.Parallel()

	status := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer status.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer slow.Close()

	large := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"padding":"0123456789"}`))
	}))
	defer large.Close()

	tests := []struct {
		name string
		url  string
		opts []FetcherOption
	}{
		{name: "non-2xx status", url: status.URL},
		{name: "timeout", url: slow.URL, opts: []FetcherOption{WithFetchTimeout(50 * time.Millisecond)}},
		{name: "document too large", url: large.URL, opts: []FetcherOption{WithMaxDocumentBytes(8)}},
		{name: "no host", url: "/relative/only"},
		{name: "unparseable url", url: "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body, err := NewFetcher(tt.opts...).Fetch(context.Background(), tt.url)
			assert.Nil(t, body)
			assert.ErrorIs(t, err, ErrFetchFailed)
		})
	}
}

func TestFetcher_BreakerOpens(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewFetcher(WithBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrFetchFailed)
	}

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateOpen, f.BreakerState(u.Host))

	_, err = f.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcher_CancelledFetchesKeepBreakerClosed(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/slow" {
			<-r.Context().Done()
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	f := NewFetcher(WithBreaker(1, time.Minute))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(cancelled, server.URL)
		require.ErrorIs(t, err, ErrFetchFailed)
	}
	assert.Equal(t, gobreaker.StateClosed, f.BreakerState(u.Host))

	inFlight, cancelInFlight := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancelInFlight)
	_, err = f.Fetch(inFlight, server.URL+"/slow")
	require.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, gobreaker.StateClosed, f.BreakerState(u.Host))

	_, err = f.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, gobreaker.StateOpen, f.BreakerState(u.Host))
}
