package catalog

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Call template types
const (
	TemplateHTTP  = "http"
	TemplateLocal = "local"
	TemplateFile  = "file"
)

// Auth types
const (
	AuthAPIKey = "api_key"
	AuthBasic  = "basic"
	AuthOAuth2 = "oauth2"
)

var (
	// ErrInvalidManual is returned when the document is not a valid manual
	ErrInvalidManual = errors.New("invalid manual")
	// ErrUnsupportedAuth is returned for the auth types that can not be applied to a request
	ErrUnsupportedAuth = errors.New("unsupported auth")
)

// Provider supplies the tool descriptors currently known to the system.
type Provider interface {
	ListTools(ctx context.Context) ([]*Tool, error)
}

// Source loads a manual from a file or a remote endpoint.
type Source interface {
	Load(ctx context.Context) (*Manual, error)
}

// Manual is the document listing the tools
type Manual struct {
	UTCPVersion   string  `json:"utcp_version,omitempty" yaml:"utcp_version,omitempty"`
	ManualVersion string  `json:"manual_version,omitempty" yaml:"manual_version,omitempty"`
	Tools         []*Tool `json:"tools" yaml:"tools"`
}

// ListTools implements Provider
func (m *Manual) ListTools(_ context.Context) ([]*Tool, error) {
	return m.Tools, nil
}

// Validate returns an error if the manual has tools without names,
// duplicate names or non-object inputs.
func (m *Manual) Validate() error {
	seen := make(map[string]struct{}, len(m.Tools))
	for i, t := range m.Tools {
		if t == nil {
			return errors.Mark(errors.Errorf("tool at index %d is empty", i), ErrInvalidManual)
		}
		if err := t.Validate(); err != nil {
			return errors.Mark(errors.WithMessagef(err, "tool at index %d", i), ErrInvalidManual)
		}
		if _, ok := seen[t.Name]; ok {
			return errors.Mark(errors.Errorf("duplicate tool name: %s", t.Name), ErrInvalidManual)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// Tools is a static list of tools
type Tools []*Tool

// ListTools implements Provider
func (t Tools) ListTools(_ context.Context) ([]*Tool, error) {
	return t, nil
}

// Tool is the descriptor of a callable capability.
// Tool is immutable once loaded.
type Tool struct {
	Name         string        `json:"name" yaml:"name"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty"`
	Inputs       *Schema       `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs      *Schema       `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Tags         []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	CallTemplate *CallTemplate `json:"tool_call_template,omitempty" yaml:"tool_call_template,omitempty"`

	// ManualName is the name of the manual the tool was loaded from,
	// set by the Repository.
	ManualName string `json:"-" yaml:"-"`
}

// BaseName returns the tool name without the manual namespace
func (t *Tool) BaseName() string {
	if t.ManualName == "" {
		return t.Name
	}
	return strings.TrimPrefix(t.Name, t.ManualName+".")
}

// Validate the tool descriptor
func (t *Tool) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("tool name is required")
	}
	if t.Inputs != nil && t.Inputs.Type != "" && t.Inputs.Type != "object" {
		return errors.Errorf("tool %s: inputs.type must be 'object', got: '%s'", t.Name, t.Inputs.Type)
	}
	return nil
}

// Schema is the JSON schema of the tool inputs or outputs.
// The order of the properties is preserved as declared in the manual.
type Schema struct {
	Type        string                              `json:"type,omitempty" yaml:"type,omitempty"`
	Title       string                              `json:"title,omitempty" yaml:"title,omitempty"`
	Description string                              `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  *orderedmap.OrderedMap[string, any] `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string                            `json:"required,omitempty" yaml:"required,omitempty"`
}

// PropertyNames returns the names of the properties in the declared order
func (s *Schema) PropertyNames() []string {
	if s == nil || s.Properties == nil {
		return nil
	}
	names := make([]string, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// CallTemplate describes how to execute the tool call
type CallTemplate struct {
	Type         string            `json:"call_template_type" yaml:"call_template_type"`
	Name         string            `json:"name,omitempty" yaml:"name,omitempty"`
	URL          string            `json:"url,omitempty" yaml:"url,omitempty"`
	HTTPMethod   string            `json:"http_method,omitempty" yaml:"http_method,omitempty"`
	ContentType  string            `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	BodyField    string            `json:"body_field,omitempty" yaml:"body_field,omitempty"`
	HeaderFields []string          `json:"header_fields,omitempty" yaml:"header_fields,omitempty"`
	Auth         *Auth             `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// Auth describes the credentials for the call template
type Auth struct {
	Type     string `json:"auth_type" yaml:"auth_type"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	VarName  string `json:"var_name,omitempty" yaml:"var_name,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// OAuth2 client credentials are parsed to keep the manual intact,
	// the token acquisition is not supported.
	TokenURL     string `json:"token_url,omitempty" yaml:"token_url,omitempty"`
	ClientID     string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	Scope        string `json:"scope,omitempty" yaml:"scope,omitempty"`
}
