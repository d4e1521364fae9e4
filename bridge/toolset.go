package bridge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/pkg/metricskey"
	"github.com/effective-security/utcpbridge/tools"
	"github.com/effective-security/xlog"
)

// Toolset is the registry of the bridged tools by the sanitized name.
// The names are case sensitive, the lookup requires the exact sanitized
// or original name.
type Toolset struct {
	lock       sync.RWMutex
	byName     map[string]*Tool
	byOriginal map[string]*Tool
}

// NewToolset returns the Toolset with the tools registered
func NewToolset(list ...*Tool) (*Toolset, error) {
	s := &Toolset{
		byName:     make(map[string]*Tool),
		byOriginal: make(map[string]*Tool),
	}
	for _, t := range list {
		if err := s.Register(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register adds the tool, different catalog tools
// that have the same sanitized name are rejected
func (s *Toolset) Register(t *Tool) error {
	key := t.Name()

	s.lock.Lock()
	defer s.lock.Unlock()
	if existing, ok := s.byName[key]; ok {
		if existing.OriginalName() == t.OriginalName() {
			return errors.Errorf("tool already registered: %s", t.OriginalName())
		}
		return errors.Errorf("tool name collision: %q and %q are both exposed as %s",
			existing.OriginalName(), t.OriginalName(), t.Name())
	}
	s.byName[key] = t
	s.byOriginal[t.OriginalName()] = t
	return nil
}

// Get returns the tool by the sanitized or the original name
func (s *Toolset) Get(name string) (*Tool, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if t, ok := s.byName[name]; ok {
		return t, true
	}
	t, ok := s.byOriginal[name]
	return t, ok
}

// Len returns the number of the tools
func (s *Toolset) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.byName)
}

// Tools returns the tools sorted by name
func (s *Toolset) Tools() []*Tool {
	s.lock.RLock()
	list := make([]*Tool, 0, len(s.byName))
	for _, t := range s.byName {
		list = append(list, t)
	}
	s.lock.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// ITools returns the tools as tools.ITool, sorted by name
func (s *Toolset) ITools() []tools.ITool {
	list := s.Tools()
	res := make([]tools.ITool, len(list))
	for i, t := range list {
		res[i] = t
	}
	return res
}

// Names returns the sorted names of the tools
func (s *Toolset) Names() []string {
	list := s.Tools()
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = t.Name()
	}
	return names
}

// Descriptions returns the fenced JSON list of the tool names and descriptions,
// suitable for the system prompt of the agent
func (s *Toolset) Descriptions() string {
	return tools.GetDescriptions(s.ITools()...)
}

// Call invokes the tool by name.
// An unknown name returns the text listing the available tools.
func (s *Toolset) Call(ctx context.Context, name, input string) string {
	t, ok := s.Get(name)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		availableTools := strings.Join(s.Names(), ", ")
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"tool_name", name,
			"available_tools", availableTools,
		)
		return fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", name, availableTools)
	}

	res, _ := t.Call(ctx, input)
	return res
}

// ToolCall is the request of the agent to call a tool
type ToolCall struct {
	Name      string `json:"name" yaml:"name"`
	Arguments string `json:"arguments" yaml:"arguments"`
}

// CallAll invokes the tools concurrently,
// the results are returned in the order of the calls
func (s *Toolset) CallAll(ctx context.Context, calls []ToolCall) []string {
	results := make([]string, len(calls))

	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, tc := range calls {
		go func(index int, tc ToolCall) {
			defer wg.Done()
			results[index] = s.Call(ctx, tc.Name, tc.Arguments)
		}(i, tc)
	}
	wg.Wait()
	return results
}
