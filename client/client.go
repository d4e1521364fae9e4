// Package client dispatches the tool calls to the transport
// selected by the tool call template.
package client

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/effective-security/xlog"
)

//go:generate mockgen -source=client.go -destination=../mocks/mockclient/client_mock.gen.go -package mockclient

var logger = xlog.NewPackageLogger("github.com/effective-security/utcpbridge", "client")

var (
	// ErrToolNotFound is returned when the tool is not in the catalog
	ErrToolNotFound = errors.New("tool not found")
	// ErrUnsupportedTemplate is returned when no transport is registered for the call template
	ErrUnsupportedTemplate = errors.New("unsupported call template")
)

// Client executes the tool by its catalog name
type Client interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// Transport executes the tool with its call template
type Transport interface {
	CallTool(ctx context.Context, tool *catalog.Tool, args map[string]any) (any, error)
}

// Lookup finds the tool descriptor by name,
// implemented by catalog.Repository
type Lookup interface {
	Tool(name string) (*catalog.Tool, bool)
}

// Router is the Client that looks the tool up
// and dispatches the call to the transport registered for its template type.
type Router struct {
	lookup Lookup

	lock       sync.RWMutex
	transports map[string]Transport
}

// NewRouter returns a Router over the catalog
func NewRouter(lookup Lookup) *Router {
	return &Router{
		lookup:     lookup,
		transports: make(map[string]Transport),
	}
}

// Register the transport for the call template type
func (r *Router) Register(templateType string, t Transport) *Router {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.transports[templateType] = t
	return r
}

// TemplateTypes returns the registered call template types
func (r *Router) TemplateTypes() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]string, 0, len(r.transports))
	for k := range r.transports {
		list = append(list, k)
	}
	slices.Sort(list)
	return list
}

// CallTool implements Client
func (r *Router) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	tool, ok := r.lookup.Tool(name)
	if !ok {
		return nil, errors.Mark(errors.Errorf("tool not found: %s", name), ErrToolNotFound)
	}
	if tool.CallTemplate == nil {
		return nil, errors.Mark(errors.Errorf("tool %s has no call template", name), ErrUnsupportedTemplate)
	}

	r.lock.RLock()
	t, ok := r.transports[tool.CallTemplate.Type]
	r.lock.RUnlock()
	if !ok {
		return nil, errors.Mark(errors.Errorf("tool %s: unsupported call template type: %q", name, tool.CallTemplate.Type), ErrUnsupportedTemplate)
	}

	started := time.Now()
	res, err := t.CallTool(ctx, tool, args)
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "called",
		"tool", name,
		"template", tool.CallTemplate.Type,
		"elapsed", time.Since(started).String(),
		"failed", err != nil,
	)
	return res, err
}
