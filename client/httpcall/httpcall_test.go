package httpcall_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/effective-security/utcpbridge/client/httpcall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
	body   string
}

func newServer(t *testing.T, last *captured) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*last = captured{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   string(body),
		}

		switch r.URL.Path {
		case "/text":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("plain result"))
		case "/fail":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error": "upstream"}`))
		case "/empty":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write([]byte(`{"temp": 21.5, "count": 3, "tags": ["a"]}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTransport_GET(t *testing.T) {
	var last captured
	server := newServer(t, &last)
	ctx := context.Background()

	vars := catalog.NewVariables(map[string]string{
		"BASE":          server.URL,
		"weather_TOKEN": "t0k3n",
	}).WithLookupEnv(func(string) (string, bool) { return "", false })
	tr := httpcall.New(server.Client(), vars)

	tool := &catalog.Tool{
		Name:       "weather.get",
		ManualName: "weather",
		CallTemplate: &catalog.CallTemplate{
			Type:         catalog.TemplateHTTP,
			URL:          "${BASE}/weather/{city}",
			Headers:      map[string]string{"X-Client": "bridge"},
			HeaderFields: []string{"X-Trace"},
			Auth: &catalog.Auth{
				Type:    catalog.AuthAPIKey,
				APIKey:  "Bearer ${TOKEN}",
				VarName: "Authorization",
			},
		},
	}

	res, err := tr.CallTool(ctx, tool, map[string]any{
		"city":    "New York",
		"units":   "metric",
		"days":    json.Number("3"),
		"fields":  []any{"temp", "wind"},
		"X-Trace": "abc",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, last.method)
	assert.Equal(t, "/weather/New%20York", last.path)
	assert.Equal(t, []string{"metric"}, last.query["units"])
	assert.Equal(t, []string{"3"}, last.query["days"])
	assert.Equal(t, []string{"temp", "wind"}, last.query["fields"])
	assert.NotContains(t, last.query, "city")
	assert.NotContains(t, last.query, "X-Trace")
	assert.Equal(t, "abc", last.header.Get("X-Trace"))
	assert.Equal(t, "bridge", last.header.Get("X-Client"))
	assert.Equal(t, "Bearer t0k3n", last.header.Get("Authorization"))
	assert.Empty(t, last.body)

	m, ok := res.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("21.5"), m["temp"])
	assert.Equal(t, json.Number("3"), m["count"])
	assert.Equal(t, []any{"a"}, m["tags"])
}

func TestTransport_POST(t *testing.T) {
	var last captured
	server := newServer(t, &last)
	ctx := context.Background()
	tr := httpcall.New(server.Client(), nil)

	tool := &catalog.Tool{
		Name: "orders.create",
		CallTemplate: &catalog.CallTemplate{
			Type:       catalog.TemplateHTTP,
			URL:        server.URL + "/orders",
			HTTPMethod: "post",
		},
	}

	_, err := tr.CallTool(ctx, tool, map[string]any{"item": "book", "qty": json.Number("2")})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, last.method)
	assert.Equal(t, "application/json", last.header.Get("Content-Type"))
	assert.JSONEq(t, `{"item": "book", "qty": 2}`, last.body)
	assert.Empty(t, last.query)

	t.Run("no_args", func(t *testing.T) {
		_, err := tr.CallTool(ctx, tool, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, last.body)
	})

	t.Run("body_field", func(t *testing.T) {
		bf := &catalog.Tool{
			Name: "orders.update",
			CallTemplate: &catalog.CallTemplate{
				Type:       catalog.TemplateHTTP,
				URL:        server.URL + "/orders/{id}",
				HTTPMethod: http.MethodPut,
				BodyField:  "order",
			},
		}
		_, err := tr.CallTool(ctx, bf, map[string]any{
			"id":     json.Number("7"),
			"order":  map[string]any{"qty": json.Number("5")},
			"notify": true,
		})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, last.method)
		assert.Equal(t, "/orders/7", last.path)
		assert.JSONEq(t, `{"qty": 5}`, last.body)
		assert.Equal(t, []string{"true"}, last.query["notify"])
	})

	t.Run("form", func(t *testing.T) {
		form := &catalog.Tool{
			Name: "orders.form",
			CallTemplate: &catalog.CallTemplate{
				Type:        catalog.TemplateHTTP,
				URL:         server.URL + "/form",
				HTTPMethod:  http.MethodPost,
				ContentType: "application/x-www-form-urlencoded",
			},
		}
		_, err := tr.CallTool(ctx, form, map[string]any{"b": "2", "a": "1"})
		require.NoError(t, err)
		assert.Equal(t, "a=1&b=2", last.body)
		assert.Equal(t, "application/x-www-form-urlencoded", last.header.Get("Content-Type"))
	})

	t.Run("text_body", func(t *testing.T) {
		text := &catalog.Tool{
			Name: "notes.add",
			CallTemplate: &catalog.CallTemplate{
				Type:        catalog.TemplateHTTP,
				URL:         server.URL + "/notes",
				HTTPMethod:  http.MethodPost,
				ContentType: "text/plain",
				BodyField:   "text",
			},
		}
		_, err := tr.CallTool(ctx, text, map[string]any{"text": "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", last.body)
	})
}

func TestTransport_Responses(t *testing.T) {
	var last captured
	server := newServer(t, &last)
	ctx := context.Background()
	tr := httpcall.New(nil, nil)

	call := func(path string) (any, error) {
		return tr.CallTool(ctx, &catalog.Tool{
			Name: "m.t",
			CallTemplate: &catalog.CallTemplate{
				Type: catalog.TemplateHTTP,
				URL:  server.URL + path,
			},
		}, nil)
	}

	res, err := call("/text")
	require.NoError(t, err)
	assert.Equal(t, "plain result", res)

	res, err = call("/empty")
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = call("/fail")
	assert.EqualError(t, err, `tool m.t: HTTP 502 Bad Gateway: {"error": "upstream"}`)
}

func TestTransport_Errors(t *testing.T) {
	ctx := context.Background()
	tr := httpcall.New(nil, catalog.NewVariables(nil).WithLookupEnv(func(string) (string, bool) { return "", false }))

	_, err := tr.CallTool(ctx, &catalog.Tool{Name: "m.t"}, nil)
	assert.EqualError(t, err, "tool m.t: http call template is required")

	_, err = tr.CallTool(ctx, &catalog.Tool{
		Name:         "m.t",
		CallTemplate: &catalog.CallTemplate{Type: catalog.TemplateLocal},
	}, nil)
	assert.EqualError(t, err, "tool m.t: http call template is required")

	_, err = tr.CallTool(ctx, &catalog.Tool{
		Name: "m.t",
		CallTemplate: &catalog.CallTemplate{
			Type: catalog.TemplateHTTP,
			URL:  "http://localhost/items/{id}",
		},
	}, map[string]any{"other": 1})
	assert.EqualError(t, err, "tool m.t: missing path parameter: id")

	_, err = tr.CallTool(ctx, &catalog.Tool{
		Name:       "m.t",
		ManualName: "m",
		CallTemplate: &catalog.CallTemplate{
			Type: catalog.TemplateHTTP,
			URL:  "${MISSING_HOST}/items",
		},
	}, nil)
	assert.EqualError(t, err, `variable MISSING_HOST referenced in manual "m" is not defined`)

	_, err = tr.CallTool(ctx, &catalog.Tool{
		Name: "m.t",
		CallTemplate: &catalog.CallTemplate{
			Type: catalog.TemplateHTTP,
			URL:  "http://localhost/items",
			Auth: &catalog.Auth{Type: catalog.AuthOAuth2},
		},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrUnsupportedAuth))
}
