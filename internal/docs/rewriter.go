package docs

import (
	"github.com/vyrodovalexey/edgegw/internal/observability"
)

// DefaultIndent is the indentation of rewritten documents.
const DefaultIndent = "  "

// Transform edits a parsed document in place.
type Transform func(doc *Node) error

// Rewriter normalizes aggregated API documents. With no transforms it
// is a pure formatting pass.
type Rewriter struct {
	transforms []Transform
	indent     string
	logger     observability.Logger
	metrics    *Metrics
}

// RewriterOption is a functional option for the rewriter.
type RewriterOption func(*Rewriter)

// WithTransforms appends content transforms, applied in order after
// parsing.
func WithTransforms(transforms ...Transform) RewriterOption {
	return func(r *Rewriter) {
		r.transforms = append(r.transforms, transforms...)
	}
}

// WithIndent sets the indentation unit.
func WithIndent(indent string) RewriterOption {
	return func(r *Rewriter) {
		r.indent = indent
	}
}

// WithRewriterLogger sets the logger for the rewriter.
func WithRewriterLogger(logger observability.Logger) RewriterOption {
	return func(r *Rewriter) {
		r.logger = logger
	}
}

// WithRewriterMetrics sets the metrics for the rewriter.
func WithRewriterMetrics(metrics *Metrics) RewriterOption {
	return func(r *Rewriter) {
		r.metrics = metrics
	}
}

// NewRewriter creates a rewriter.
func NewRewriter(opts ...RewriterOption) *Rewriter {
	r := &Rewriter{
		indent: DefaultIndent,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Rewrite parses raw, applies the transforms and re-encodes the tree.
// On any failure it returns a *DocumentError and no output; the input
// is never passed through.
func (r *Rewriter) Rewrite(raw []byte) ([]byte, error) {
	out, err := r.rewrite(raw)
	if r.metrics != nil {
		r.metrics.RecordRewrite(err)
	}
	if err != nil {
		r.logger.Warn("document rewrite failed",
			observability.Int("input_bytes", len(raw)),
			observability.Error(err),
		)
		return nil, err
	}
	return out, nil
}

func (r *Rewriter) rewrite(raw []byte) ([]byte, error) {
	doc, err := Parse(raw)
	if err != nil {
		return nil, newDocumentError(ErrMalformedInput, "", err)
	}

	for _, transform := range r.transforms {
		if err := transform(doc); err != nil {
			return nil, newDocumentError(ErrTransformFailed, "", err)
		}
	}

	out, err := doc.Encode(r.indent)
	if err != nil {
		return nil, newDocumentError(ErrMalformedInput, "", err)
	}
	return out, nil
}
