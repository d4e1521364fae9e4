package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/pkg/metricskey"
	"github.com/effective-security/xlog"
)

type manualEntry struct {
	name     string
	source   Source
	template *CallTemplate
}

// Repository merges the manuals into one catalog,
// the tools are namespaced as `<manual>.<tool>`.
//
// Repository is safe for concurrent use: Load builds a new snapshot
// and readers see either the previous or the new one.
type Repository struct {
	lock    sync.Mutex
	entries []manualEntry

	mu       sync.RWMutex
	loaded   bool
	byManual map[string][]*Tool
	tools    []*Tool
	index    map[string]*Tool
}

// NewRepository returns an empty Repository
func NewRepository() *Repository {
	return &Repository{}
}

// Add registers the manual source.
// The template is used for the tools that do not specify their own call template.
func (r *Repository) Add(name string, source Source, template *CallTemplate) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("manual name is required")
	}
	if strings.Contains(name, ".") {
		return errors.Errorf("invalid manual name %q: must not contain '.'", name)
	}
	if source == nil {
		return errors.Errorf("manual %s: source is required", name)
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	for _, e := range r.entries {
		if e.name == name {
			return errors.Errorf("manual already registered: %s", name)
		}
	}
	r.entries = append(r.entries, manualEntry{
		name:     name,
		source:   source,
		template: template,
	})
	return nil
}

// Manuals returns the names of the registered manuals
func (r *Repository) Manuals() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.name)
	}
	return names
}

// Load fetches all manuals and publishes the new snapshot.
// A manual that fails to load keeps its tools from the previous snapshot,
// and the error lists the failed manuals.
func (r *Repository) Load(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.mu.RLock()
	prev := r.byManual
	r.mu.RUnlock()

	byManual := make(map[string][]*Tool, len(r.entries))
	var failed []string
	var firstErr error

	for _, e := range r.entries {
		tools, err := r.loadManual(ctx, e)
		if err != nil {
			metricskey.StatsCatalogLoadFailed.IncrCounter(1, e.name)
			logger.ContextKV(ctx, xlog.ERROR,
				"reason", "load_manual",
				"manual", e.name,
				"err", err.Error(),
			)
			failed = append(failed, e.name)
			if firstErr == nil {
				firstErr = err
			}
			if old, ok := prev[e.name]; ok {
				byManual[e.name] = old
			}
			continue
		}
		byManual[e.name] = tools
	}

	var list []*Tool
	index := make(map[string]*Tool)
	for _, e := range r.entries {
		for _, t := range byManual[e.name] {
			index[t.Name] = t
			list = append(list, t)
		}
	}

	r.mu.Lock()
	r.byManual = byManual
	r.tools = list
	r.index = index
	// a failed manual is retried by the next ListTools
	r.loaded = firstErr == nil
	r.mu.Unlock()

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "loaded",
		"manuals", len(r.entries),
		"tools", len(list),
		"failed", failed,
	)

	if firstErr != nil {
		return errors.WithMessagef(firstErr, "failed to load manuals: %s", strings.Join(failed, ", "))
	}
	return nil
}

// Refresh invalidates the cached manuals and loads them again
func (r *Repository) Refresh(ctx context.Context) error {
	r.lock.Lock()
	for _, e := range r.entries {
		if cs, ok := e.source.(*CachedSource); ok {
			if err := cs.Invalidate(ctx); err != nil {
				logger.ContextKV(ctx, xlog.WARNING, "reason", "invalidate", "manual", e.name, "err", err.Error())
			}
		}
	}
	r.lock.Unlock()
	return r.Load(ctx)
}

func (r *Repository) loadManual(ctx context.Context, e manualEntry) ([]*Tool, error) {
	started := time.Now()
	defer metricskey.PerfCatalogLoad.MeasureSince(started, e.name)

	m, err := e.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	prefix := e.name + "."
	seen := make(map[string]struct{}, len(m.Tools))
	tools := make([]*Tool, 0, len(m.Tools))
	for i, t := range m.Tools {
		if t == nil {
			return nil, errors.Mark(errors.Errorf("tool at index %d is empty", i), ErrInvalidManual)
		}
		if err := t.Validate(); err != nil {
			return nil, errors.Mark(err, ErrInvalidManual)
		}

		nt := *t
		if !strings.HasPrefix(nt.Name, prefix) {
			nt.Name = prefix + nt.Name
		}
		nt.ManualName = e.name
		if nt.CallTemplate == nil {
			nt.CallTemplate = e.template
		}

		if _, ok := seen[nt.Name]; ok {
			return nil, errors.Mark(errors.Errorf("duplicate tool name: %s", nt.Name), ErrInvalidManual)
		}
		seen[nt.Name] = struct{}{}
		tools = append(tools, &nt)
	}
	return tools, nil
}

// ListTools implements Provider.
// The manuals are loaded on the first call, and again on every call
// until all of them are loaded. While a manual fails, the error is returned.
func (r *Repository) ListTools(ctx context.Context) ([]*Tool, error) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()

	if !loaded {
		if err := r.Load(ctx); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.tools), nil
}

// Tool returns the tool by its namespaced name
func (r *Repository) Tool(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.index[name]
	return t, ok
}
