package catalog

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultAPIKeyHeader is used when the api_key auth does not specify var_name
const DefaultAPIKeyHeader = "X-Api-Key"

// Apply sets the credentials on the request.
// The values are substituted with the manual variables.
func (a *Auth) Apply(req *http.Request, manual string, vars *Variables) error {
	if a == nil || a.Type == "" {
		return nil
	}

	switch a.Type {
	case AuthAPIKey:
		key, err := vars.Substitute(manual, a.APIKey)
		if err != nil {
			return errors.WithMessage(err, "api_key auth")
		}
		name := a.VarName
		if name == "" {
			name = DefaultAPIKeyHeader
		}
		switch strings.ToLower(a.Location) {
		case "", "header":
			req.Header.Set(name, key)
		case "query":
			q := req.URL.Query()
			q.Set(name, key)
			req.URL.RawQuery = q.Encode()
		case "cookie":
			req.AddCookie(&http.Cookie{Name: name, Value: key})
		default:
			return errors.Errorf("unsupported api_key location: %s", a.Location)
		}
	case AuthBasic:
		user, err := vars.Substitute(manual, a.Username)
		if err != nil {
			return errors.WithMessage(err, "basic auth")
		}
		pass, err := vars.Substitute(manual, a.Password)
		if err != nil {
			return errors.WithMessage(err, "basic auth")
		}
		req.SetBasicAuth(user, pass)
	case AuthOAuth2:
		return errors.Mark(errors.New("oauth2 token acquisition is not supported, use api_key auth with a bearer token"), ErrUnsupportedAuth)
	default:
		return errors.Mark(errors.Errorf("unknown auth type: %s", a.Type), ErrUnsupportedAuth)
	}
	return nil
}
