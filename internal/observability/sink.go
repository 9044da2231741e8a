package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// clefContentType is the media type of compact log event format batches.
const clefContentType = "application/vnd.serilog.clef"

// Sink defaults.
const (
	DefaultSinkBatchSize     = 100
	DefaultSinkFlushInterval = 2 * time.Second
	DefaultSinkQueueSize     = 4096
	DefaultSinkTimeout       = 10 * time.Second

	sinkSyncTimeout = 5 * time.Second
)

// Sink ships log records to a remote compact log event format server.
// It implements zapcore.WriteSyncer; Write never blocks.
type Sink struct {
	endpoint      string
	client        *http.Client
	batchSize     int
	flushInterval time.Duration
	levels        *LevelSwitch
	diag          *rate.Limiter
	diagOut       io.Writer

	queue    chan []byte
	flushReq chan chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	dropped  atomic.Uint64
	sent     atomic.Uint64
}

// SinkOption is a functional option for the sink.
type SinkOption func(*Sink)

// WithSinkBatchSize sets the maximum number of records per request.
func WithSinkBatchSize(n int) SinkOption {
	return func(s *Sink) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSinkFlushInterval sets how long records may wait before delivery.
func WithSinkFlushInterval(d time.Duration) SinkOption {
	return func(s *Sink) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// WithSinkQueueSize sets the queue capacity.
func WithSinkQueueSize(n int) SinkOption {
	return func(s *Sink) {
		if n > 0 {
			s.queue = make(chan []byte, n)
		}
	}
}

// WithSinkHTTPClient sets the HTTP client used for delivery.
func WithSinkHTTPClient(client *http.Client) SinkOption {
	return func(s *Sink) {
		if client != nil {
			s.client = client
		}
	}
}

// WithSinkLevelSwitch lets the server control the minimum level through
// the MinimumLevelAccepted field of its responses.
func WithSinkLevelSwitch(levels *LevelSwitch) SinkOption {
	return func(s *Sink) {
		s.levels = levels
	}
}

// NewSink creates a sink for the server at baseURL and starts its
// delivery goroutine.
func NewSink(baseURL string, opts ...SinkOption) *Sink {
	s := &Sink{
		endpoint:      strings.TrimRight(baseURL, "/") + "/api/events/raw?clef",
		client:        &http.Client{Timeout: DefaultSinkTimeout},
		batchSize:     DefaultSinkBatchSize,
		flushInterval: DefaultSinkFlushInterval,
		diag:          rate.NewLimiter(rate.Every(10*time.Second), 1),
		diagOut:       os.Stderr,
		queue:         make(chan []byte, DefaultSinkQueueSize),
		flushReq:      make(chan chan struct{}),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.run()

	return s
}

// Core returns a zap core that encodes records in compact log event
// format and writes them to the sink.
func (s *Sink) Core(enabler zapcore.LevelEnabler) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "@t",
		LevelKey:       "@l",
		MessageKey:     "@m",
		StacktraceKey:  "@x",
		NameKey:        zapcore.OmitKey,
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(serilogLevelName(l))
		},
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), s, enabler)
}

// Write queues one encoded record. When the queue is full the record is
// dropped.
func (s *Sink) Write(p []byte) (int, error) {
	record := make([]byte, len(p))
	copy(record, p)

	select {
	case s.queue <- record:
	default:
		s.dropped.Add(1)
	}
	return len(p), nil
}

// Sync delivers everything queued so far. It waits at most a few
// seconds so a dead server cannot hang shutdown.
func (s *Sink) Sync() error {
	done := make(chan struct{})
	select {
	case s.flushReq <- done:
	case <-s.doneCh:
		return nil
	}

	select {
	case <-done:
	case <-time.After(sinkSyncTimeout):
	}
	return nil
}

// Close flushes the queue and stops the delivery goroutine.
func (s *Sink) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
	return nil
}

// Dropped returns how many records were dropped because the queue was full.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Sent returns how many records were delivered.
func (s *Sink) Sent() uint64 {
	return s.sent.Load()
}

// run is the delivery loop.
func (s *Sink) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([][]byte, 0, s.batchSize)

	for {
		select {
		case record := <-s.queue:
			batch = append(batch, record)
			if len(batch) >= s.batchSize {
				batch = s.deliver(batch)
			}

		case <-ticker.C:
			batch = s.deliver(batch)

		case done := <-s.flushReq:
			batch = s.drain(batch)
			close(done)

		case <-s.stopCh:
			s.drain(batch)
			return
		}
	}
}

// drain delivers the current batch and everything left in the queue.
func (s *Sink) drain(batch [][]byte) [][]byte {
	for {
		select {
		case record := <-s.queue:
			batch = append(batch, record)
			if len(batch) >= s.batchSize {
				batch = s.deliver(batch)
			}
		default:
			return s.deliver(batch)
		}
	}
}

// sinkResponse is the body returned by the server after ingestion.
type sinkResponse struct {
	MinimumLevelAccepted *string `json:"MinimumLevelAccepted"`
}

// deliver posts one batch and returns the emptied slice for reuse.
func (s *Sink) deliver(batch [][]byte) [][]byte {
	if len(batch) == 0 {
		return batch
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultSinkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(bytes.Join(batch, nil)))
	if err != nil {
		s.report(err)
		return batch[:0]
	}
	req.Header.Set("Content-Type", clefContentType)

	resp, err := s.client.Do(req)
	if err != nil {
		s.report(err)
		return batch[:0]
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		s.report(fmt.Errorf("sink returned status %d", resp.StatusCode))
		return batch[:0]
	}

	s.sent.Add(uint64(len(batch)))
	s.applyServerLevel(resp.Body)

	return batch[:0]
}

// applyServerLevel adopts the minimum level requested by the server.
func (s *Sink) applyServerLevel(body io.Reader) {
	if s.levels == nil {
		return
	}

	var parsed sinkResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return
	}
	if parsed.MinimumLevelAccepted == nil || *parsed.MinimumLevelAccepted == "" {
		return
	}
	if err := s.levels.Set(*parsed.MinimumLevelAccepted); err != nil {
		s.report(err)
	}
}

// report writes a throttled delivery diagnostic. The sink cannot log
// through the logger it serves.
func (s *Sink) report(err error) {
	if s.diag.Allow() {
		_, _ = fmt.Fprintf(s.diagOut, "log sink delivery to %s failed: %v\n", s.endpoint, err)
	}
}
