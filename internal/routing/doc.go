// Package routing adapts the configured routes into an http.Handler.
//
// The gateway core does not route or balance traffic itself. It asks an
// Engine for a handler built from the effective configuration and puts
// the token check in front of it. ForwardEngine is the default engine:
// it matches upstream path templates and forwards to the first
// downstream host of the matched route.
//
// # Templates
//
// Upstream and downstream templates are slash-separated. A segment of
// the form {name} captures one path segment, except in the last position
// where it captures the rest of the path:
//
//	UpstreamPathTemplate:   /orders/{everything}
//	DownstreamPathTemplate: /api/{everything}
//
// forwards /orders/items/7 to /api/items/7. Routes with more literal text
// are tried first.
package routing
