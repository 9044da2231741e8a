// Package observability provides logging, metrics, and tracing
// functionality for the edge gateway.
//
// # Logging
//
// The Logger interface provides structured logging on top of zap. The
// minimum level lives in an explicitly owned LevelSwitch, so it can be
// changed at runtime (admin endpoint or remote sink) without restarting:
//
//	levels, _ := observability.NewLevelSwitch("info")
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Format:  "json",
//	    SinkURL: "http://seq:5341",
//	}, levels)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// When SinkURL is set, every record is also shipped in compact log event
// format to the remote sink. Delivery is fire-and-forget: records are
// queued and a full queue drops records rather than blocking callers.
//
// # Metrics
//
// Metrics owns a Prometheus registry that the other packages register
// their collectors with; Handler exposes it for scraping.
//
// # Tracing
//
// Tracer wraps an OpenTelemetry tracer provider with optional OTLP gRPC
// export.
package observability
