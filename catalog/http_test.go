package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource(t *testing.T) {
	weather, err := os.ReadFile("testdata/weather.json")
	require.NoError(t, err)
	yml, err := os.ReadFile("testdata/catalog.yaml")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/utcp":
			if r.Header.Get("Authorization") != "Bearer t0k3n" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "bridge", r.Header.Get("X-Client"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(weather)
		case "/utcp.yaml":
			assert.Equal(t, http.MethodPost, r.Method)
			w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
			_, _ = w.Write(yml)
		case "/openapi":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"openapi": "3.0.0"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	vars := catalog.NewVariables(map[string]string{
		"weather_TOKEN": "t0k3n",
		"HOST":          server.URL,
	}).WithLookupEnv(envOf(nil))

	template := &catalog.CallTemplate{
		Type:    catalog.TemplateHTTP,
		URL:     "${HOST}/utcp",
		Headers: map[string]string{"X-Client": "bridge"},
		Auth: &catalog.Auth{
			Type:    catalog.AuthAPIKey,
			APIKey:  "Bearer ${TOKEN}",
			VarName: "Authorization",
		},
	}

	t.Run("json", func(t *testing.T) {
		src := catalog.NewHTTPSource("weather", template, vars, server.Client())
		assert.Equal(t, "http:GET ${HOST}/utcp", src.Identity())

		m, err := src.Load(ctx)
		require.NoError(t, err)
		require.Len(t, m.Tools, 2)
		assert.Equal(t, "get-weather!", m.Tools[0].Name)
	})

	t.Run("unauthorized", func(t *testing.T) {
		src := catalog.NewHTTPSource("other", template, vars, server.Client())
		_, err := src.Load(ctx)
		assert.EqualError(t, err, `api_key auth: variable TOKEN referenced in manual "other" is not defined`)

		src = catalog.NewHTTPSource("weather", &catalog.CallTemplate{
			Type: catalog.TemplateHTTP,
			URL:  server.URL + "/utcp",
		}, vars, nil)
		_, err = src.Load(ctx)
		assert.EqualError(t, err, "failed to fetch manual weather: 401 Unauthorized")
	})

	t.Run("yaml", func(t *testing.T) {
		src := catalog.NewHTTPSource("products", &catalog.CallTemplate{
			Type:       catalog.TemplateHTTP,
			URL:        server.URL + "/utcp.yaml",
			HTTPMethod: "post",
		}, vars, server.Client())
		m, err := src.Load(ctx)
		require.NoError(t, err)
		require.Len(t, m.Tools, 1)
		assert.Equal(t, []string{"zeta", "alpha", "middle"}, m.Tools[0].Inputs.PropertyNames())
	})

	t.Run("not_manual", func(t *testing.T) {
		src := catalog.NewHTTPSource("openapi", &catalog.CallTemplate{
			Type: catalog.TemplateHTTP,
			URL:  server.URL + "/openapi",
		}, vars, server.Client())
		_, err := src.Load(ctx)
		assert.EqualError(t, err, "manual openapi: not a UTCP manual: missing tools")
		assert.True(t, errors.Is(err, catalog.ErrInvalidManual))
	})

	t.Run("no_url", func(t *testing.T) {
		src := catalog.NewHTTPSource("empty", &catalog.CallTemplate{Type: catalog.TemplateHTTP}, vars, nil)
		_, err := src.Load(ctx)
		assert.EqualError(t, err, "manual empty: url is required")
	})

	t.Run("not_found", func(t *testing.T) {
		src := catalog.NewHTTPSource("missing", &catalog.CallTemplate{
			Type: catalog.TemplateHTTP,
			URL:  server.URL + "/missing",
		}, vars, server.Client())
		_, err := src.Load(ctx)
		assert.EqualError(t, err, "failed to fetch manual missing: 404 Not Found")
	})
}
