package catalog_test

import (
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) *http.Request {
	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/v1?a=1", nil)
	require.NoError(t, err)
	return req
}

func TestAuth_Apply(t *testing.T) {
	vars := catalog.NewVariables(map[string]string{
		"weather_KEY": "k1",
		"USER":        "alice",
		"PASS":        "pwd",
	}).WithLookupEnv(envOf(nil))

	t.Run("nil", func(t *testing.T) {
		var a *catalog.Auth
		req := newRequest(t)
		require.NoError(t, a.Apply(req, "weather", vars))
		assert.Empty(t, req.Header)
	})

	t.Run("header_default", func(t *testing.T) {
		a := &catalog.Auth{Type: catalog.AuthAPIKey, APIKey: "${KEY}"}
		req := newRequest(t)
		require.NoError(t, a.Apply(req, "weather", vars))
		assert.Equal(t, "k1", req.Header.Get(catalog.DefaultAPIKeyHeader))
	})

	t.Run("query", func(t *testing.T) {
		a := &catalog.Auth{Type: catalog.AuthAPIKey, APIKey: "$KEY", VarName: "api_key", Location: "query"}
		req := newRequest(t)
		require.NoError(t, a.Apply(req, "weather", vars))
		assert.Equal(t, "k1", req.URL.Query().Get("api_key"))
		assert.Equal(t, "1", req.URL.Query().Get("a"))
	})

	t.Run("cookie", func(t *testing.T) {
		a := &catalog.Auth{Type: catalog.AuthAPIKey, APIKey: "$KEY", VarName: "session", Location: "cookie"}
		req := newRequest(t)
		require.NoError(t, a.Apply(req, "weather", vars))
		c, err := req.Cookie("session")
		require.NoError(t, err)
		assert.Equal(t, "k1", c.Value)
	})

	t.Run("bad_location", func(t *testing.T) {
		a := &catalog.Auth{Type: catalog.AuthAPIKey, APIKey: "x", Location: "body"}
		assert.EqualError(t, a.Apply(newRequest(t), "weather", vars), "unsupported api_key location: body")
	})

	t.Run("missing_var", func(t *testing.T) {
		a := &catalog.Auth{Type: catalog.AuthAPIKey, APIKey: "${KEY}"}
		err := a.Apply(newRequest(t), "other", vars)
		assert.EqualError(t, err, `api_key auth: variable KEY referenced in manual "other" is not defined`)
	})

	t.Run("basic", func(t *testing.T) {
		a := &catalog.Auth{Type: catalog.AuthBasic, Username: "$USER", Password: "${PASS}"}
		req := newRequest(t)
		require.NoError(t, a.Apply(req, "weather", vars))
		user, pass, ok := req.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "pwd", pass)
	})

	t.Run("oauth2", func(t *testing.T) {
		a := &catalog.Auth{Type: catalog.AuthOAuth2, TokenURL: "https://idp.example.com/token"}
		err := a.Apply(newRequest(t), "weather", vars)
		require.Error(t, err)
		assert.True(t, errors.Is(err, catalog.ErrUnsupportedAuth))
	})

	t.Run("unknown", func(t *testing.T) {
		a := &catalog.Auth{Type: "digest"}
		err := a.Apply(newRequest(t), "weather", vars)
		assert.EqualError(t, err, "unknown auth type: digest")
		assert.True(t, errors.Is(err, catalog.ErrUnsupportedAuth))
	})
}
