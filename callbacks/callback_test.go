package callbacks_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/effective-security/utcpbridge/callbacks"
	"github.com/effective-security/utcpbridge/mocks/mocktools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	cb := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)

	tool := &fakeTool{name: "test-tool"}

	cb.OnToolStart(context.Background(), tool, "test input")
	cb.OnToolEnd(context.Background(), tool, "test input", "test output")
	cb.OnToolError(context.Background(), tool, "test input", errors.New("test error"))

	res := buf.String()
	assert.Contains(t, res, "Tool Start: test-tool")
	assert.Contains(t, res, "Input: test input")
	assert.Contains(t, res, "Tool End: test-tool")
	assert.Contains(t, res, "Output: test output")
	assert.Contains(t, res, "Tool Error: test-tool: test error")

	buf.Reset()
	cb = callbacks.NewPrinter(&buf, callbacks.ModeDefault)
	cb.OnToolEnd(context.Background(), tool, "test input", "test output")
	assert.Equal(t, "Tool End: test-tool\n", buf.String())
}

func TestFanout(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	tool := &fakeTool{name: "test-tool"}
	err := errors.New("test error")

	cb1 := mocktools.NewMockCallback(ctrl)
	cb2 := mocktools.NewMockCallback(ctrl)
	for _, cb := range []*mocktools.MockCallback{cb1, cb2} {
		cb.EXPECT().OnToolStart(ctx, tool, "in")
		cb.EXPECT().OnToolEnd(ctx, tool, "in", "out")
		cb.EXPECT().OnToolError(ctx, tool, "in", err)
	}

	fanout := callbacks.NewFanout(cb1)
	fanout.Add(cb2)
	fanout.OnToolStart(ctx, tool, "in")
	fanout.OnToolEnd(ctx, tool, "in", "out")
	fanout.OnToolError(ctx, tool, "in", err)
}

func TestNoopAndLogger(t *testing.T) {
	ctx := context.Background()
	tool := &fakeTool{name: "test-tool"}

	noop := callbacks.NewNoop()
	noop.OnToolStart(ctx, tool, "in")
	noop.OnToolEnd(ctx, tool, "in", "out")
	noop.OnToolError(ctx, tool, "in", errors.New("test error"))

	logger := callbacks.NewPackageLogger(xlog.NewPackageLogger("github.com/effective-security/utcpbridge", "callbacks_test"))
	logger.OnToolStart(ctx, tool, "in")
	logger.OnToolEnd(ctx, tool, "in", "out")
	logger.OnToolError(ctx, tool, "in", errors.New("test error"))
}

type fakeTool struct {
	name        string
	description string
}

func (f *fakeTool) Name() string {
	return f.name
}
func (f *fakeTool) Description() string {
	return values.StringsCoalesce(f.description, "useful tool")
}
func (f *fakeTool) Parameters() any {
	return nil
}
func (f *fakeTool) Call(context.Context, string) (string, error) {
	return "", nil
}
