package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/effective-security/utcpbridge/client"
	"github.com/effective-security/utcpbridge/pkg/metricskey"
	"github.com/effective-security/utcpbridge/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/utcpbridge", "bridge")

// Tool is the catalog tool bridged to the agent
type Tool struct {
	descriptor  *catalog.Tool
	client      client.Client
	name        string
	description string
	params      *Parameters
	callback    tools.Callback
}

// ensure Tool implements the tools.ITool interface
var _ tools.ITool = (*Tool)(nil)

// New returns the bridged tool
func New(descriptor *catalog.Tool, c client.Client, opts ...Option) *Tool {
	return newTool(descriptor, c, newOptions(opts))
}

func newTool(descriptor *catalog.Tool, c client.Client, o *options) *Tool {
	return &Tool{
		descriptor: descriptor,
		client:     c,
		name:       sanitizeName(descriptor.Name, o.namePrefix),
		description: values.StringsCoalesce(
			descriptor.Description,
			"No description available for "+descriptor.Name+".",
		),
		params:   ProjectSchema(descriptor.Inputs),
		callback: o.callback,
	}
}

// Name returns the sanitized name
func (t *Tool) Name() string {
	return t.name
}

// OriginalName returns the catalog name used for the dispatch
func (t *Tool) OriginalName() string {
	return t.descriptor.Name
}

// Descriptor returns the catalog tool
func (t *Tool) Descriptor() *catalog.Tool {
	return t.descriptor
}

func (t *Tool) Description() string {
	return t.description
}

// Parameters returns *Parameters
func (t *Tool) Parameters() any {
	return t.params
}

// Schema returns the projected parameters schema
func (t *Tool) Schema() *Parameters {
	return t.params
}

// Call implements tools.ITool.
// The error is always nil, the failure is returned as `Error: <cause>` text.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return t.Invoke(ctx, input).String(), nil
}

// Invoke parses the JSON arguments and dispatches the call to the backing client
func (t *Tool) Invoke(ctx context.Context, input string) (res Result) {
	toolName := t.descriptor.Name
	callID := uuid.NewString()

	t.notify(ctx, "start", func(cb tools.Callback) {
		cb.OnToolStart(ctx, t, input)
	})
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "calling",
		"tool", toolName,
		"call_id", callID,
		"args", input,
	)

	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: errors.Errorf("tool %s panicked: %v", toolName, r)}
			metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		}
		t.report(ctx, callID, input, res)
	}()

	args, err := ParseArguments(input)
	if err != nil {
		metricskey.StatsToolArgsMalformed.IncrCounter(1, toolName)
		return Result{Err: err}
	}

	started := time.Now()
	out, err := t.client.CallTool(ctx, toolName, args)
	metricskey.PerfToolCall.MeasureSince(started, toolName)
	if err != nil {
		if errors.Is(err, client.ErrToolNotFound) {
			metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		} else {
			metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		}
		return Result{Err: err}
	}

	text, err := FormatResult(out)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		return Result{Err: err}
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	return Result{Output: text}
}

func (t *Tool) report(ctx context.Context, callID, input string, res Result) {
	if res.Err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "call_tool",
			"tool", t.descriptor.Name,
			"call_id", callID,
			"err", res.Err.Error(),
		)
		t.notify(ctx, "error", func(cb tools.Callback) {
			cb.OnToolError(ctx, t, input, res.Err)
		})
		return
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "called",
		"tool", t.descriptor.Name,
		"call_id", callID,
		"size", len(res.Output),
	)
	t.notify(ctx, "end", func(cb tools.Callback) {
		cb.OnToolEnd(ctx, t, input, res.Output)
	})
}

// notify runs the callback, a panicking callback does not change the result
func (t *Tool) notify(ctx context.Context, event string, fn func(tools.Callback)) {
	if t.callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"reason", "callback_panic",
				"tool", t.descriptor.Name,
				"event", event,
				"err", fmt.Sprint(r),
			)
		}
	}()
	fn(t.callback)
}
