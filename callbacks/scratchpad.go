package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/effective-security/utcpbridge/pkg/llmutils"
	"github.com/effective-security/utcpbridge/tools"
)

// ensure Scratchpad implements tools.Callback
var _ tools.Callback = (*Scratchpad)(nil)

var TimeNowFn = time.Now

// RunStats is the summary of the tool calls in the session
type RunStats struct {
	Duration            time.Duration
	ToolsCalls          uint32
	ToolsCallsSucceeded uint32
	ToolsCallsFailed    uint32
}

// Scratchpad records the tool calls of the session
// and the transcript of the events.
type Scratchpad struct {
	mode Mode

	lock    sync.Mutex
	w       bytes.Buffer
	started time.Time
	stats   RunStats
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		mode:    mode,
		started: TimeNowFn(),
	}
}

// Reset starts a new session
func (l *Scratchpad) Reset() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.w.Reset()
	l.stats = RunStats{}
	l.started = TimeNowFn()
}

// Stats returns the stats and the transcript of the session
func (l *Scratchpad) Stats() (*RunStats, []byte) {
	l.lock.Lock()
	defer l.lock.Unlock()

	stats := l.stats
	stats.Duration = TimeNowFn().Sub(l.started)
	l.print(fmt.Sprintf("Tool calls: %d, Succeeded: %d, Failed: %d",
		stats.ToolsCalls,
		stats.ToolsCallsSucceeded,
		stats.ToolsCallsFailed,
	))
	return &stats, bytes.Clone(l.w.Bytes())
}

func (l *Scratchpad) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolsCalls++
	if l.mode == ModeVerbose {
		l.print(tool.Name(), "*** Tool Start ***", llmutils.Truncate(input, 256))
	} else {
		l.print(tool.Name(), "*** Tool Start ***")
	}
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolsCallsSucceeded++
	if l.mode == ModeVerbose {
		l.print(tool.Name(), "*** Tool End ***", llmutils.Truncate(output, 256))
	} else {
		l.print(tool.Name(), "*** Tool End ***")
	}
}

func (l *Scratchpad) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolsCallsFailed++
	l.print(tool.Name(), "*** Tool Error ***", err.Error())
}

// print writes the entries to the transcript, the lock must be held.
// The entries are written in the following format:
// timestamp entry entry\n
func (l *Scratchpad) print(entries ...string) {
	_, _ = l.w.WriteString(TimeNowFn().Format("2006-01-02 15:04:05"))
	for _, entry := range entries {
		_, _ = l.w.WriteString(" ")
		_, _ = l.w.WriteString(entry)
	}
	_, _ = l.w.WriteString("\n")
}
