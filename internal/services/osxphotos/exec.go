package osxphotos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// waitDelay bounds how long Run waits for output pipes after ctx stops the
// process. Grandchildren that inherit the pipes would otherwise hold Run open.
const waitDelay = 5 * time.Second

// Result captures a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout followed by stderr.
func (r Result) Combined() string {
	switch {
	case r.Stdout == "":
		return r.Stderr
	case r.Stderr == "":
		return r.Stdout
	default:
		return r.Stdout + "\n" + r.Stderr
	}
}

// Executor abstracts command execution for testability. A non-zero exit is
// reported through Result.ExitCode; the error is reserved for processes that
// could not start or were stopped by ctx.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) (Result, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	// The tool runs in its own process group so cancellation reaches any
	// helpers it spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = waitDelay

	var mu sync.Mutex
	stdout := &lineWriter{mu: &mu, onLine: onLine}
	stderr := &lineWriter{mu: &mu, onLine: onLine}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", binary, err)
	}
	waitErr := cmd.Wait()
	stdout.flush()
	stderr.flush()

	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("wait %s: %w", binary, waitErr)
	}
	return result, nil
}

// lineWriter collects process output and forwards each complete line.
type lineWriter struct {
	mu      *sync.Mutex
	onLine  func(string)
	buf     bytes.Buffer
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.partial = append(w.partial, p...)
	for {
		idx := bytes.IndexByte(w.partial, '\n')
		if idx < 0 {
			break
		}
		w.emit(string(bytes.TrimSuffix(w.partial[:idx], []byte("\r"))))
		w.partial = w.partial[idx+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.emit(string(w.partial))
		w.partial = nil
	}
}

func (w *lineWriter) emit(line string) {
	w.buf.WriteString(line)
	w.buf.WriteByte('\n')
	if w.onLine != nil {
		w.onLine(line)
	}
}

func (w *lineWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}
