package catalog

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Manual formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatFromPath returns the manual format by the file extension
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseManual decodes and validates the manual document.
// The document must have the `tools` field.
func ParseManual(data []byte, format string) (*Manual, error) {
	var (
		probe map[string]any
		m     Manual
	)

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to decode YAML manual"), ErrInvalidManual)
		}
		if _, ok := probe["tools"]; !ok {
			return nil, errors.Mark(errors.New("not a UTCP manual: missing tools"), ErrInvalidManual)
		}
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to decode YAML manual"), ErrInvalidManual)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to decode JSON manual"), ErrInvalidManual)
		}
		if _, ok := probe["tools"]; !ok {
			return nil, errors.Mark(errors.New("not a UTCP manual: missing tools"), ErrInvalidManual)
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to decode JSON manual"), ErrInvalidManual)
		}
	default:
		return nil, errors.Errorf("unsupported manual format: %s", format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
