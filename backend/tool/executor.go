package tool

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultCommandTimeout = 120 * time.Second
	defaultGracePeriod    = 1 * time.Second

	// Exit code reported for commands that had to be killed, matching
	// the shell convention for SIGKILL.
	killExitCode = 137
)

type ExecuteInput struct {
	Command string `json:"command" jsonschema:"description=Shell command to execute"`
}

// ExecuteResult is created once per execution and serialized straight
// into the tool-response message.
type ExecuteResult struct {
	Output   string `json:"output"`
	TimedOut bool   `json:"timed_out"`
	ExitCode int32  `json:"exit_code"`
}

// Executor runs shell commands with bounded output capture and a
// wall-clock timeout. Process-level failures (non-zero exit, timeout)
// are reported in the result; only spawn failure returns an error.
type Executor struct {
	shell    string
	timeout  time.Duration
	grace    time.Duration
	maxLines int
	maxLine  int
}

type ExecutorOption func(*Executor)

func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

func WithGracePeriod(grace time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.grace = grace
	}
}

func NewExecutor(opts ...ExecutorOption) *Executor {
	executor := &Executor{
		shell:    "sh",
		timeout:  defaultCommandTimeout,
		grace:    defaultGracePeriod,
		maxLines: maxBufferedLines,
		maxLine:  maxLineLength,
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Execute spawns the command under a shell, drains stdout and stderr
// into the line buffer until both streams end, and races the drain
// against the timeout. On timeout the child is terminated gracefully
// first and force-killed after the grace period, then reaped.
func (e *Executor) Execute(ctx context.Context, command string) (*ExecuteResult, error) {
	startedAt := time.Now()

	cmd := exec.Command(e.shell, "-c", command)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to spawn command: %w", err)
	}

	// The two readers multiplex onto one channel so the buffer has a
	// single owner and insertion order reflects arrival order.
	lines := make(chan timedLine)
	readers := &errgroup.Group{}
	readers.Go(func() error { return drainStream(stdout, streamStdout, e.maxLine, lines) })
	readers.Go(func() error { return drainStream(stderr, streamStderr, e.maxLine, lines) })
	go func() {
		readers.Wait()
		close(lines)
	}()

	buffer := newLineBuffer(e.maxLines, e.maxLine)
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	timedOut := false
drain:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break drain
			}
			buffer.push(line)
		case <-timer.C:
			timedOut = true
			break drain
		case <-ctx.Done():
			// External cancellation takes the timeout path: the child
			// is killed the same way and the caller sees timed_out=true
			// with the kill exit code.
			timedOut = true
			break drain
		}
	}

	if timedOut {
		e.terminate(cmd)
		// Unblock the readers; the pipes are closed once the child is
		// reaped, so this drain always ends.
		go func() {
			for range lines {
			}
		}()
		return &ExecuteResult{
			Output:   buffer.render(startedAt),
			TimedOut: true,
			ExitCode: killExitCode,
		}, nil
	}

	exitCode := int32(0)
	if err := cmd.Wait(); err != nil {
		exitCode = int32(cmd.ProcessState.ExitCode())
	}

	return &ExecuteResult{
		Output:   buffer.render(startedAt),
		TimedOut: false,
		ExitCode: exitCode,
	}, nil
}

// terminate asks the child to exit with SIGTERM, and after the grace
// period kills it outright. Both branches wait for the child so no
// zombie is left behind.
func (e *Executor) terminate(cmd *exec.Cmd) {
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-done:
	case <-time.After(e.grace):
		cmd.Process.Kill()
		<-done
	}
}

// drainStream reads r line by line until EOF. Overlong lines are
// truncated to maxLine bytes and their remainder discarded at read
// time, so a single huge line can never stall the drain: the pipe is
// always consumed until the stream ends.
func drainStream(r io.Reader, stream streamKind, maxLine int, lines chan<- timedLine) error {
	reader := bufio.NewReader(r)
	for {
		text, err := readBoundedLine(reader, maxLine)
		if err != nil {
			if err == io.EOF {
				if text != "" {
					lines <- timedLine{at: time.Now(), stream: stream, text: text}
				}
				return nil
			}
			return err
		}

		lines <- timedLine{
			at:     time.Now(),
			stream: stream,
			text:   text,
		}
	}
}

// readBoundedLine returns the next line truncated to maxLine bytes.
// The tail of a longer line is consumed and dropped. A final
// unterminated line is returned together with io.EOF.
func readBoundedLine(reader *bufio.Reader, maxLine int) (string, error) {
	var sb strings.Builder
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			return sb.String(), err
		}

		if sb.Len() < maxLine {
			if remaining := maxLine - sb.Len(); len(chunk) > remaining {
				chunk = chunk[:remaining]
			}
			sb.Write(chunk)
		}

		if !isPrefix {
			return sb.String(), nil
		}
	}
}
