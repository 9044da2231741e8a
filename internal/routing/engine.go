package routing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vyrodovalexey/edgegw/internal/config"
	"github.com/vyrodovalexey/edgegw/internal/observability"
)

// Engine builds the request handler for a configuration.
type Engine interface {
	Handler(cfg *config.Config) (http.Handler, error)
}

// ForwardEngine forwards each request to the downstream of the best
// matching route.
type ForwardEngine struct {
	logger        observability.Logger
	transport     http.RoundTripper
	flushInterval time.Duration
}

// Option is a functional option for the engine.
type Option func(*ForwardEngine)

// WithLogger sets the logger for the engine.
func WithLogger(logger observability.Logger) Option {
	return func(e *ForwardEngine) {
		e.logger = logger
	}
}

// WithTransport sets the transport used to reach downstreams.
func WithTransport(transport http.RoundTripper) Option {
	return func(e *ForwardEngine) {
		e.transport = transport
	}
}

// WithFlushInterval sets the flush interval for streamed responses.
func WithFlushInterval(interval time.Duration) Option {
	return func(e *ForwardEngine) {
		e.flushInterval = interval
	}
}

// NewForwardEngine creates a forwarding engine.
func NewForwardEngine(opts ...Option) *ForwardEngine {
	e := &ForwardEngine{
		logger:        observability.NopLogger(),
		flushInterval: -1,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Handler compiles cfg.Routes. It fails on an invalid template or a
// downstream template that uses a placeholder the upstream does not
// capture.
func (e *ForwardEngine) Handler(cfg *config.Config) (http.Handler, error) {
	routes := make([]*route, 0, len(cfg.Routes))
	for i, rc := range cfg.Routes {
		r, err := e.compile(rc)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		routes = append(routes, r)
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].upstream.literals > routes[j].upstream.literals
	})

	return &forwarder{routes: routes, logger: e.logger}, nil
}

type route struct {
	upstream   *template
	downstream *template
	methods    map[string]bool
	target     *url.URL
	proxy      *httputil.ReverseProxy
}

func (e *ForwardEngine) compile(rc config.RouteConfig) (*route, error) {
	upstream, err := parseTemplate(rc.UpstreamPathTemplate)
	if err != nil {
		return nil, err
	}
	downstream, err := parseTemplate(rc.DownstreamPathTemplate)
	if err != nil {
		return nil, err
	}

	captured := make(map[string]bool)
	for _, name := range upstream.params() {
		captured[name] = true
	}
	for _, name := range downstream.params() {
		if !captured[name] {
			return nil, fmt.Errorf("placeholder %q is not captured by %s", name, rc.UpstreamPathTemplate)
		}
	}

	if len(rc.DownstreamHostAndPorts) == 0 {
		return nil, fmt.Errorf("no downstream host for %s", rc.UpstreamPathTemplate)
	}
	hp := rc.DownstreamHostAndPorts[0]
	scheme := rc.DownstreamScheme
	if scheme == "" {
		scheme = "http"
	}
	host := hp.Host
	if hp.Port > 0 {
		host = net.JoinHostPort(hp.Host, strconv.Itoa(hp.Port))
	}
	target := &url.URL{Scheme: scheme, Host: host}

	var methods map[string]bool
	if len(rc.UpstreamHttpMethod) > 0 {
		methods = make(map[string]bool, len(rc.UpstreamHttpMethod))
		for _, m := range rc.UpstreamHttpMethod {
			methods[strings.ToUpper(m)] = true
		}
	}

	r := &route{
		upstream:   upstream,
		downstream: downstream,
		methods:    methods,
		target:     target,
	}
	r.proxy = &httputil.ReverseProxy{
		Rewrite:       r.rewrite,
		Transport:     e.transport,
		FlushInterval: e.flushInterval,
		ErrorHandler:  e.errorHandler,
	}
	return r, nil
}

type pathKey struct{}

// rewrite points the outbound request at the downstream.
func (r *route) rewrite(pr *httputil.ProxyRequest) {
	path, _ := pr.In.Context().Value(pathKey{}).(string)

	pr.Out.URL.Scheme = r.target.Scheme
	pr.Out.URL.Host = r.target.Host
	pr.Out.URL.Path = path
	pr.Out.URL.RawPath = ""
	pr.Out.URL.RawQuery = pr.In.URL.RawQuery
	pr.Out.Host = r.target.Host

	pr.SetXForwarded()
	observability.InjectTraceContext(pr.In.Context(), pr.Out.Header)
}

func (r *route) allows(method string) bool {
	return r.methods == nil || r.methods[method]
}

func (e *ForwardEngine) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	e.logger.Error("downstream request failed",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
		observability.Error(err),
	)

	status := http.StatusBadGateway
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	writeMessage(w, status, "Downstream service unavailable")
}

// forwarder is the compiled handler.
type forwarder struct {
	routes []*route
	logger observability.Logger
}

// ServeHTTP implements http.Handler.
func (f *forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, rt := range f.routes {
		if !rt.allows(r.Method) {
			continue
		}
		params, ok := rt.upstream.match(r.URL.Path)
		if !ok {
			continue
		}

		path := rt.downstream.expand(params)
		ctx := context.WithValue(r.Context(), pathKey{}, path)
		rt.proxy.ServeHTTP(w, r.WithContext(ctx))
		return
	}

	f.logger.Debug("no route matched",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
	)
	writeMessage(w, http.StatusNotFound, "No route matched")
}

// Routes returns the upstream templates in match order.
func (f *forwarder) Routes() []string {
	out := make([]string, 0, len(f.routes))
	for _, rt := range f.routes {
		out = append(out, rt.upstream.raw)
	}
	return out
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"Message":`+strconv.Quote(message)+`}`)
}
