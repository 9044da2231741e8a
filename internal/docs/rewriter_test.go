package docs

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/edgegw/internal/observability"
)

func TestRewriter_Rewrite(t *testing.T) {
	t.Parallel()

	r := NewRewriter()

	out, err := r.Rewrite([]byte(`{"swagger":"2.0","paths":{"/items":{"get":{}}}}`))
	require.NoError(t, err)

	want := `{
  "swagger": "2.0",
  "paths": {
    "/items": {
      "get": {}
    }
  }
}`
	assert.Equal(t, want, string(out))
}

func TestRewriter_Idempotent(t *testing.T) {
	t.Parallel()

	r := NewRewriter()

	once, err := r.Rewrite([]byte(`{"b":[1,{"c":null}],"a":"x"}`))
	require.NoError(t, err)
	twice, err := r.Rewrite(once)
	require.NoError(t, err)

	assert.Equal(t, string(once), string(twice))
}

func TestRewriter_FailsClosed(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	metrics := NewMetrics("test")
	r := NewRewriter(
		WithRewriterLogger(observability.NewLoggerFromZap(zap.New(core))),
		WithRewriterMetrics(metrics),
	)

	out, err := r.Rewrite([]byte(`{"swagger":"2.0",`))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrMalformedInput)

	var docErr *DocumentError
	require.True(t, errors.As(err, &docErr))
	assert.Equal(t, ErrMalformedInput, docErr.Kind)

	assert.Equal(t, 1, logs.FilterMessage("document rewrite failed").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rewriteTotal.WithLabelValues("malformed")))
}

func TestRewriter_RejectsNonObjectRoot(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	r := NewRewriter(WithRewriterMetrics(metrics))

	for _, input := range []string{`[1,2]`, `"swagger"`, `null`} {
		out, err := r.Rewrite([]byte(input))
		assert.Nil(t, out, input)
		assert.ErrorIs(t, err, ErrMalformedInput, input)
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.rewriteTotal.WithLabelValues("malformed")))
}

func TestRewriter_Transforms(t *testing.T) {
	t.Parallel()

	addTag := func(doc *Node) error {
		doc.Members = append(doc.Members, Member{Key: "x-gateway", Value: &Node{Kind: KindBool, Value: "true"}})
		return nil
	}
	r := NewRewriter(WithTransforms(PrefixPaths("/orders"), addTag), WithIndent(""))

	out, err := r.Rewrite([]byte(`{"paths":{"/items":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, "{\n\"paths\": {\n\"/orders/items\": {}\n},\n\"x-gateway\": true\n}", string(out))
}

func TestRewriter_TransformError(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	boom := errors.New("boom")
	r := NewRewriter(
		WithTransforms(func(*Node) error { return boom }),
		WithRewriterMetrics(metrics),
	)

	out, err := r.Rewrite([]byte(`{}`))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrTransformFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rewriteTotal.WithLabelValues("transform_failed")))
}

func TestPrefixPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prefix  string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:   "prefixes every path",
			prefix: "/orders",
			input:  `{"paths":{"/items":{},"/items/{id}":{}}}`,
			want:   []string{"/orders/items", "/orders/items/{id}"},
		},
		{
			name:   "normalizes slashes",
			prefix: "orders/",
			input:  `{"paths":{"items":{},"/":{}}}`,
			want:   []string{"/orders/items", "/orders"},
		},
		{
			name:   "empty prefix is a no-op",
			prefix: "",
			input:  `{"paths":{"/items":{}}}`,
			want:   []string{"/items"},
		},
		{
			name:   "no paths object",
			prefix: "/orders",
			input:  `{"swagger":"2.0"}`,
		},
		{
			name:    "paths is not an object",
			prefix:  "/orders",
			input:   `{"paths":[]}`,
			wantErr: true,
		},
		{
			name:    "collision after prefixing",
			prefix:  "/orders",
			input:   `{"paths":{"/items":{},"items":{}}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := Parse([]byte(tt.input))
			require.NoError(t, err)

			err = PrefixPaths(tt.prefix)(doc)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			var keys []string
			if paths := doc.Get("paths"); paths != nil {
				for _, m := range paths.Members {
					keys = append(keys, m.Key)
				}
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestPrefixPaths_NonObjectRoot(t *testing.T) {
	t.Parallel()

	err := PrefixPaths("/orders")(&Node{Kind: KindArray})
	assert.ErrorContains(t, err, "not an object")
}

func TestMetrics_MustRegister(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics := NewMetrics("")

	assert.NotPanics(t, func() {
		metrics.MustRegister(registry)
		metrics.MustRegister(registry)
	})
}
