package catalog

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// MaxManualSize is the limit of the manual document fetched over HTTP
const MaxManualSize = 16 << 20

// HTTPSource fetches the manual from a remote endpoint,
// described by the manual call template.
type HTTPSource struct {
	// Name of the manual, used for the variables lookup
	Name         string
	CallTemplate *CallTemplate
	Variables    *Variables
	HTTPClient   *http.Client
}

// NewHTTPSource returns a Source for the remote manual
func NewHTTPSource(name string, template *CallTemplate, vars *Variables, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{
		Name:         name,
		CallTemplate: template,
		Variables:    vars,
		HTTPClient:   client,
	}
}

// Identity returns the cache identity of the source
func (s *HTTPSource) Identity() string {
	if s.CallTemplate == nil {
		return "http:" + s.Name
	}
	return "http:" + s.method() + " " + s.CallTemplate.URL
}

func (s *HTTPSource) method() string {
	if s.CallTemplate == nil || s.CallTemplate.HTTPMethod == "" {
		return http.MethodGet
	}
	return strings.ToUpper(s.CallTemplate.HTTPMethod)
}

// Load implements Source
func (s *HTTPSource) Load(ctx context.Context) (*Manual, error) {
	if s.CallTemplate == nil || s.CallTemplate.URL == "" {
		return nil, errors.Errorf("manual %s: url is required", s.Name)
	}

	url, err := s.Variables.Substitute(s.Name, s.CallTemplate.URL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, s.method(), url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create request")
	}
	headers, err := s.Variables.SubstituteMap(s.Name, s.CallTemplate.Headers)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	if err = s.CallTemplate.Auth.Apply(req, s.Name, s.Variables); err != nil {
		return nil, err
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch manual %s", s.Name)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxManualSize))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manual %s", s.Name)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("failed to fetch manual %s: %s", s.Name, resp.Status)
	}

	format := FormatJSON
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); strings.Contains(mt, "yaml") {
		format = FormatYAML
	}

	m, err := ParseManual(body, format)
	if err != nil {
		return nil, errors.WithMessagef(err, "manual %s", s.Name)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "fetched",
		"manual", s.Name,
		"url", s.CallTemplate.URL,
		"tools", len(m.Tools),
	)
	return m, nil
}
