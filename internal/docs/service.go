package docs

import (
	"context"
	"errors"
	"strings"

	"github.com/vyrodovalexey/edgegw/internal/config"
	"github.com/vyrodovalexey/edgegw/internal/observability"
)

// IndexEntry describes one published document.
type IndexEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Key     string `json:"key"`
	URL     string `json:"url"`
}

// Service serves rewritten documents for the configured endpoints.
type Service struct {
	endpoints []config.SwaggerEndpoint
	rewriters map[string]*Rewriter
	fetcher   *Fetcher
	route     string
	logger    observability.Logger
}

// ServiceOption is a functional option for the service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	route      string
	logger     observability.Logger
	metrics    *Metrics
	transforms []Transform
}

// WithRoute sets the path the documents are published under.
func WithRoute(route string) ServiceOption {
	return func(o *serviceOptions) {
		o.route = route
	}
}

// WithServiceLogger sets the logger for the service.
func WithServiceLogger(logger observability.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithServiceMetrics sets the rewrite metrics.
func WithServiceMetrics(metrics *Metrics) ServiceOption {
	return func(o *serviceOptions) {
		o.metrics = metrics
	}
}

// WithServiceTransforms adds transforms applied to every document.
func WithServiceTransforms(transforms ...Transform) ServiceOption {
	return func(o *serviceOptions) {
		o.transforms = append(o.transforms, transforms...)
	}
}

// NewService creates a service for endpoints. An endpoint with a
// PathPrefix gets a PrefixPaths transform.
func NewService(endpoints []config.SwaggerEndpoint, fetcher *Fetcher, opts ...ServiceOption) *Service {
	o := serviceOptions{
		route:  "/swagger/docs",
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		endpoints: append([]config.SwaggerEndpoint(nil), endpoints...),
		rewriters: make(map[string]*Rewriter, len(endpoints)),
		fetcher:   fetcher,
		route:     strings.TrimRight(o.route, "/"),
		logger:    o.logger,
	}

	for _, ep := range s.endpoints {
		transforms := append([]Transform(nil), o.transforms...)
		if ep.PathPrefix != "" {
			transforms = append(transforms, PrefixPaths(ep.PathPrefix))
		}
		s.rewriters[strings.ToLower(ep.Key)] = NewRewriter(
			WithTransforms(transforms...),
			WithRewriterLogger(o.logger.With(observability.String("document", ep.Key))),
			WithRewriterMetrics(o.metrics),
		)
	}

	return s
}

// Index lists every published document version.
func (s *Service) Index() []IndexEntry {
	entries := make([]IndexEntry, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		for _, c := range ep.Config {
			entries = append(entries, IndexEntry{
				Name:    c.Name,
				Version: c.Version,
				Key:     ep.Key,
				URL:     s.route + "/" + c.Version + "/" + ep.Key,
			})
		}
	}
	return entries
}

// Document fetches and rewrites the document for key and version. The
// fetched text is only returned after a successful rewrite.
func (s *Service) Document(ctx context.Context, key, version string) ([]byte, error) {
	ep, cfg, ok := s.lookup(key, version)
	if !ok {
		return nil, newDocumentError(ErrUnknownDocument, key+"/"+version, nil)
	}

	raw, err := s.fetcher.Fetch(ctx, cfg.Url)
	if err != nil {
		return nil, err
	}

	out, err := s.rewriters[strings.ToLower(ep.Key)].Rewrite(raw)
	if err != nil {
		var docErr *DocumentError
		if errors.As(err, &docErr) && docErr.Document == "" {
			docErr.Document = cfg.Url
		}
		return nil, err
	}

	s.logger.Debug("document served",
		observability.String("key", ep.Key),
		observability.String("version", cfg.Version),
		observability.Int("bytes", len(out)),
	)
	return out, nil
}

func (s *Service) lookup(key, version string) (config.SwaggerEndpoint, config.SwaggerEndpointConfig, bool) {
	for _, ep := range s.endpoints {
		if !strings.EqualFold(ep.Key, key) {
			continue
		}
		for _, c := range ep.Config {
			if strings.EqualFold(c.Version, version) {
				return ep, c, true
			}
		}
	}
	return config.SwaggerEndpoint{}, config.SwaggerEndpointConfig{}, false
}
