// Package localtool exposes Go functions as catalog tools.
//
// The Toolbox is both the catalog.Source of the `local` manual
// and the client.Transport executing its tools in process.
package localtool

import (
	"context"
	"encoding/json"
	"reflect"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/effective-security/utcpbridge/pkg/schema"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/utcpbridge", "localtool")

// DefaultManualName is the manual name of the local tools
const DefaultManualName = "local"

// ErrInvalidInput is returned when the arguments do not match the tool input
var ErrInvalidInput = errors.New("invalid input")

var validate = validator.New(validator.WithRequiredStructEnabled())

type handler func(ctx context.Context, args map[string]any) (any, error)

// Toolbox is the registry of the in-process tools
type Toolbox struct {
	name string

	lock     sync.RWMutex
	tools    []*catalog.Tool
	handlers map[string]handler
}

// New returns an empty Toolbox for the manual
func New(name string) *Toolbox {
	if name == "" {
		name = DefaultManualName
	}
	return &Toolbox{
		name:     name,
		handlers: make(map[string]handler),
	}
}

// Name returns the manual name
func (tb *Toolbox) Name() string {
	return tb.name
}

// CallTemplate returns the call template of the toolbox tools
func (tb *Toolbox) CallTemplate() *catalog.CallTemplate {
	return &catalog.CallTemplate{
		Type: catalog.TemplateLocal,
		Name: tb.name,
	}
}

// Register adds the function as the tool.
// The input schema is generated from I, the arguments are decoded to I
// and validated with the `validate` tags.
func Register[I any, O any](tb *Toolbox, name, description string, fn func(context.Context, *I) (O, error)) error {
	if name == "" {
		return errors.New("tool name is required")
	}
	if fn == nil {
		return errors.Errorf("tool %s: function is required", name)
	}

	sc, err := schema.New(reflect.TypeOf((*I)(nil)).Elem())
	if err != nil {
		return errors.WithMessagef(err, "tool %s", name)
	}
	inputs, err := toCatalogSchema(sc)
	if err != nil {
		return errors.WithMessagef(err, "tool %s", name)
	}

	h := func(ctx context.Context, args map[string]any) (any, error) {
		in := new(I)
		if len(args) > 0 {
			js, err := json.Marshal(args)
			if err != nil {
				return nil, errors.Wrap(err, "failed to encode arguments")
			}
			if err = json.Unmarshal(js, in); err != nil {
				return nil, errors.Mark(errors.Wrapf(err, "failed to decode arguments"), ErrInvalidInput)
			}
		}
		if err := validate.Struct(in); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "validation failed"), ErrInvalidInput)
		}
		return fn(ctx, in)
	}

	tb.lock.Lock()
	defer tb.lock.Unlock()
	if _, ok := tb.handlers[name]; ok {
		return errors.Errorf("tool already registered: %s", name)
	}
	tb.handlers[name] = h
	tb.tools = append(tb.tools, &catalog.Tool{
		Name:         name,
		Description:  description,
		Inputs:       inputs,
		CallTemplate: tb.CallTemplate(),
	})
	return nil
}

func toCatalogSchema(sc *schema.Schema) (*catalog.Schema, error) {
	js, err := sc.JSON()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode schema")
	}
	var res catalog.Schema
	if err = json.Unmarshal(js, &res); err != nil {
		return nil, errors.Wrap(err, "failed to decode schema")
	}
	return &res, nil
}

// Load implements catalog.Source
func (tb *Toolbox) Load(_ context.Context) (*catalog.Manual, error) {
	tb.lock.RLock()
	defer tb.lock.RUnlock()
	return &catalog.Manual{
		UTCPVersion: "1.0.1",
		Tools:       slices.Clone(tb.tools),
	}, nil
}

// ListTools implements catalog.Provider
func (tb *Toolbox) ListTools(ctx context.Context) ([]*catalog.Tool, error) {
	m, _ := tb.Load(ctx)
	return m.Tools, nil
}

// CallTool implements client.Transport
func (tb *Toolbox) CallTool(ctx context.Context, tool *catalog.Tool, args map[string]any) (any, error) {
	tb.lock.RLock()
	h, ok := tb.handlers[tool.BaseName()]
	tb.lock.RUnlock()
	if !ok {
		return nil, errors.Errorf("local tool not registered: %s", tool.Name)
	}

	logger.ContextKV(ctx, xlog.DEBUG, "status", "call", "tool", tool.Name)
	return h(ctx, args)
}
