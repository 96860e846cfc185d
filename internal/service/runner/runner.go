package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/treeos-project/treeos-control/internal/logger"
)

// Command is an external program invocation.
type Command struct {
	// Name is the program, looked up in PATH.
	Name string
	// Args are the arguments after Name.
	Args []string
	// Stdin is fed to the program; empty means no input.
	Stdin string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// New builds a Command from an argument vector.
func New(argv ...string) Command {
	if len(argv) == 0 {
		return Command{}
	}

	return Command{Name: argv[0], Args: append([]string(nil), argv[1:]...)}
}

// Shell builds a Command running line through sh -c.
func Shell(line string) Command {
	return Command{Name: "sh", Args: []string{"-c", line}}
}

// String renders the command for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// ExitError reports a command that finished with a non-zero exit code.
type ExitError struct {
	// Command is the failed invocation.
	Command Command
	// Code is the exit code; -1 when killed by a signal.
	Code int
	// Output is the merged stdout and stderr.
	Output string
}

func (e *ExitError) Error() string {
	output := strings.TrimSpace(e.Output)
	if i := strings.LastIndexByte(output, '\n'); i >= 0 {
		output = output[i+1:]
	}

	if output == "" {
		return fmt.Sprintf("%s: exit code %d", e.Command, e.Code)
	}

	return fmt.Sprintf("%s: exit code %d: %s", e.Command, e.Code, output)
}

// IsExitError reports whether err is a non-zero exit rather than a failure to run.
func IsExitError(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

var errEmptyCommand = errors.New("empty command")

// Runner executes external commands.
type Runner interface {
	// Stream runs cmd, merging stderr into stdout and calling onLine for each line in order
	// while the program runs. err is set only when the program could not run to completion
	// (not found, cancelled); a non-zero exit is reported through code alone.
	Stream(ctx context.Context, cmd Command, onLine func(string)) (code int, err error)
	// Check runs cmd and returns an *ExitError when it exits non-zero.
	Check(ctx context.Context, cmd Command) error
	// Output is Check returning the merged output.
	Output(ctx context.Context, cmd Command) (string, error)
	// Start launches cmd without waiting for it.
	Start(ctx context.Context, cmd Command) error
}

// Exec runs commands as child processes. It holds no state between calls.
type Exec struct{}

// NewExec returns the process-backed Runner.
func NewExec() *Exec {
	return &Exec{}
}

func (e *Exec) command(ctx context.Context, cmd Command) (*exec.Cmd, error) {
	if cmd.Name == "" {
		return nil, errEmptyCommand
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	return c, nil
}

// Stream implements Runner.
func (e *Exec) Stream(ctx context.Context, cmd Command, onLine func(string)) (int, error) {
	c, err := e.command(ctx, cmd)
	if err != nil {
		return -1, err
	}

	reader, writer, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf("create output pipe: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	// Both streams share one pipe so lines keep the order the program wrote them in.
	c.Stdout = writer
	c.Stderr = writer

	logger.DebugKV(ctx, "Running command", "command", cmd.String())

	err = c.Start()
	// The child holds its own copy of the write end.
	_ = writer.Close()

	if err != nil {
		return -1, fmt.Errorf("start %s: %w", cmd.Name, err)
	}

	// Descendants may keep the pipe open after the child is killed.
	stop := context.AfterFunc(ctx, func() {
		_ = reader.Close()
	})
	defer stop()

	readErr := readLines(reader, onLine)
	waitErr := c.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return exitCode(c, waitErr), fmt.Errorf("%s: %w", cmd.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return -1, fmt.Errorf("wait %s: %w", cmd.Name, waitErr)
	}

	if readErr != nil {
		return exitCode(c, waitErr), fmt.Errorf("read %s output: %w", cmd.Name, readErr)
	}

	return exitCode(c, waitErr), nil
}

// readLines calls onLine for every line of r, without the line terminator.
func readLines(r io.Reader, onLine func(string)) error {
	br := bufio.NewReader(r)

	for {
		line, err := br.ReadString('\n')
		if line != "" && onLine != nil {
			onLine(strings.TrimRight(line, "\r\n"))
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}
	}
}

func exitCode(c *exec.Cmd, waitErr error) int {
	if c.ProcessState != nil {
		return c.ProcessState.ExitCode()
	}

	if waitErr != nil {
		return -1
	}

	return 0
}

// Check implements Runner.
func (e *Exec) Check(ctx context.Context, cmd Command) error {
	_, err := e.Output(ctx, cmd)
	return err
}

// Output implements Runner.
func (e *Exec) Output(ctx context.Context, cmd Command) (string, error) {
	var buf bytes.Buffer

	code, err := e.Stream(ctx, cmd, func(line string) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	})
	if err != nil {
		return buf.String(), err
	}

	if code != 0 {
		return buf.String(), &ExitError{Command: cmd, Code: code, Output: buf.String()}
	}

	return buf.String(), nil
}

// Start implements Runner. The child is reaped in the background.
func (e *Exec) Start(ctx context.Context, cmd Command) error {
	// The launched program outlives the caller, so it must not be tied to ctx.
	c, err := e.command(context.WithoutCancel(ctx), cmd)
	if err != nil {
		return err
	}

	if err = c.Start(); err != nil {
		return fmt.Errorf("start %s: %w", cmd.Name, err)
	}

	logger.DebugKV(ctx, "Launched command", "command", cmd.String(), "pid", c.Process.Pid)

	go func() {
		if waitErr := c.Wait(); waitErr != nil {
			logger.WarnKV(ctx, "Launched command exited with error", "command", cmd.String(), "error", waitErr)
		}
	}()

	return nil
}
