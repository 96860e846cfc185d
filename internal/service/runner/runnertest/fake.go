// Package runnertest provides a scripted runner.Runner for service tests.
package runnertest

import (
	"context"
	"strings"
	"sync"

	"github.com/treeos-project/treeos-control/internal/service/runner"
)

// Response is what the fake answers for matching commands.
type Response struct {
	// Lines are streamed to the caller.
	Lines []string
	// Code is the exit code.
	Code int
	// Err is returned as a failure to run.
	Err error
	// Hook runs before the response is delivered; it may block.
	Hook func(ctx context.Context)
}

// rule maps a command prefix to a response.
type rule struct {
	prefix   string
	response Response
}

// Fake records every command and answers from rules matched by prefix of the rendered
// command line. The last matching rule wins; unmatched commands succeed silently.
type Fake struct {
	mu    sync.Mutex
	rules []rule
	calls []runner.Command
}

var _ runner.Runner = (*Fake)(nil)

// On registers resp for commands whose String() starts with prefix.
func (f *Fake) On(prefix string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rules = append(f.rules, rule{prefix: prefix, response: resp})

	return f
}

func (f *Fake) respond(cmd runner.Command) Response {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cmd)

	line := cmd.String()
	for i := len(f.rules) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, f.rules[i].prefix) {
			return f.rules[i].response
		}
	}

	return Response{}
}

// Stream implements runner.Runner.
func (f *Fake) Stream(ctx context.Context, cmd runner.Command, onLine func(string)) (int, error) {
	resp := f.respond(cmd)
	if resp.Hook != nil {
		resp.Hook(ctx)
	}

	if resp.Err != nil {
		return -1, resp.Err
	}

	for _, line := range resp.Lines {
		if onLine != nil {
			onLine(line)
		}
	}

	return resp.Code, nil
}

// Check implements runner.Runner.
func (f *Fake) Check(ctx context.Context, cmd runner.Command) error {
	_, err := f.Output(ctx, cmd)
	return err
}

// Output implements runner.Runner.
func (f *Fake) Output(ctx context.Context, cmd runner.Command) (string, error) {
	var b strings.Builder

	code, err := f.Stream(ctx, cmd, func(line string) {
		b.WriteString(line)
		b.WriteByte('\n')
	})
	if err != nil {
		return b.String(), err
	}

	if code != 0 {
		return b.String(), &runner.ExitError{Command: cmd, Code: code, Output: b.String()}
	}

	return b.String(), nil
}

// Start implements runner.Runner.
func (f *Fake) Start(_ context.Context, cmd runner.Command) error {
	return f.respond(cmd).Err
}

// Calls returns the rendered command lines in call order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.String())
	}

	return out
}

// Commands returns the recorded commands in call order.
func (f *Fake) Commands() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]runner.Command(nil), f.calls...)
}

// Count returns how many recorded commands start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0

	for _, line := range f.Calls() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}

	return n
}
