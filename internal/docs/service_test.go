package docs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/edgegw/internal/config"
)

func newDocServer(t *testing.T, documents map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := documents[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestService_Document(t *testing.T) {
	t.Parallel()

	server := newDocServer(t, map[string]string{
		"/orders/v1.json": `{"swagger":"2.0","paths":{"/items":{}}}`,
		"/users/v1.json":  `{"swagger":"2.0","paths":{"/me":{}}}`,
		"/broken.json":    `{"swagger":`,
	})

	svc := NewService([]config.SwaggerEndpoint{
		{
			Key:        "orders",
			PathPrefix: "/orders",
			Config:     []config.SwaggerEndpointConfig{{Name: "Orders", Version: "v1", Url: server.URL + "/orders/v1.json"}},
		},
		{
			Key:    "users",
			Config: []config.SwaggerEndpointConfig{{Name: "Users", Version: "v1", Url: server.URL + "/users/v1.json"}},
		},
		{
			Key:    "broken",
			Config: []config.SwaggerEndpointConfig{{Name: "Broken", Version: "v1", Url: server.URL + "/broken.json"}},
		},
		{
			Key:    "missing",
			Config: []config.SwaggerEndpointConfig{{Name: "Missing", Version: "v1", Url: server.URL + "/missing.json"}},
		},
	}, NewFetcher())

	t.Run("prefixed", func(t *testing.T) {
		t.Parallel()

		out, err := svc.Document(context.Background(), "ORDERS", "v1")
		require.NoError(t, err)
		assert.Contains(t, string(out), `"/orders/items": {}`)
	})

	t.Run("format only", func(t *testing.T) {
		t.Parallel()

		out, err := svc.Document(context.Background(), "users", "V1")
		require.NoError(t, err)
		assert.Equal(t, "{\n  \"swagger\": \"2.0\",\n  \"paths\": {\n    \"/me\": {}\n  }\n}", string(out))
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		_, err := svc.Document(context.Background(), "nope", "v1")
		assert.ErrorIs(t, err, ErrUnknownDocument)
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()

		_, err := svc.Document(context.Background(), "orders", "v2")
		assert.ErrorIs(t, err, ErrUnknownDocument)
	})

	t.Run("malformed downstream document", func(t *testing.T) {
		t.Parallel()

		out, err := svc.Document(context.Background(), "broken", "v1")
		assert.Nil(t, out)
		require.ErrorIs(t, err, ErrMalformedInput)

		var docErr *DocumentError
		require.ErrorAs(t, err, &docErr)
		assert.Equal(t, server.URL+"/broken.json", docErr.Document)
	})

	t.Run("downstream 404", func(t *testing.T) {
		t.Parallel()

		_, err := svc.Document(context.Background(), "missing", "v1")
		assert.ErrorIs(t, err, ErrFetchFailed)
	})
}

func TestService_Index(t *testing.T) {
	t.Parallel()

	svc := NewService([]config.SwaggerEndpoint{
		{
			Key: "orders",
			Config: []config.SwaggerEndpointConfig{
				{Name: "Orders", Version: "v1", Url: "http://orders/v1.json"},
				{Name: "Orders", Version: "v2", Url: "http://orders/v2.json"},
			},
		},
	}, NewFetcher(), WithRoute("/docs/"))

	assert.Equal(t, []IndexEntry{
		{Name: "Orders", Version: "v1", Key: "orders", URL: "/docs/v1/orders"},
		{Name: "Orders", Version: "v2", Key: "orders", URL: "/docs/v2/orders"},
	}, svc.Index())
}
