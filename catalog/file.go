package catalog

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/utcpbridge", "catalog")

// FileSource loads the manual from a local JSON or YAML file
type FileSource struct {
	Path string
}

// NewFileSource returns a Source for the manual file
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Identity returns the cache identity of the source
func (s *FileSource) Identity() string {
	return "file:" + s.Path
}

// Load implements Source
func (s *FileSource) Load(ctx context.Context) (*Manual, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manual")
	}

	m, err := ParseManual(data, FormatFromPath(s.Path))
	if err != nil {
		return nil, errors.WithMessagef(err, "manual %s", s.Path)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "loaded",
		"file", s.Path,
		"tools", len(m.Tools),
	)
	return m, nil
}
