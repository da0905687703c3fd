package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
	"github.com/Riboost-Studio/traceability-label-bridge/internal/utils"
)

// DefaultMaxOutput caps stdout and stderr of one script run.
const DefaultMaxOutput = 1024 * 1024

// ErrOutputLimit is returned when a script writes more than the configured cap.
var ErrOutputLimit = errors.New("maxBuffer length exceeded")

// InvocationError is the error of a failed attempt.
type InvocationError struct {
	Kind  model.FailureKind
	Cause error
}

func (e *InvocationError) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return e.Cause.Error()
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// KindOf returns the failure kind of err, or FailureNone.
func KindOf(err error) model.FailureKind {
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.Kind
	}
	return model.FailureNone
}

// Runner performs a single invocation attempt.
type Runner interface {
	Run(ctx context.Context, executable string, argv []string) model.Outcome
}

// ExecRunner spawns the executable as a child process.
type ExecRunner struct {
	MaxOutput int
}

func (r ExecRunner) Run(ctx context.Context, executable string, argv []string) model.Outcome {
	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, executable, argv...)
	cmd.WaitDelay = 2 * time.Second
	stdout := &cappedBuffer{limit: limit, onOverflow: cancel}
	stderr := &cappedBuffer{limit: limit, onOverflow: cancel}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	out := model.Outcome{Executable: executable}
	err := cmd.Run()
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case stdout.Overflowed() || stderr.Overflowed():
		out.Kind = model.FailureOutputLimit
		out.ExitCode = -1
		out.Err = &InvocationError{Kind: model.FailureOutputLimit, Cause: ErrOutputLimit}
	case err == nil:
	case errors.As(err, &exitErr):
		out.Kind = model.FailureNonZeroExit
		out.ExitCode = exitErr.ExitCode()
		out.Err = &InvocationError{
			Kind:  model.FailureNonZeroExit,
			Cause: fmt.Errorf("command failed: %s: %w", commandLine(executable, argv), err),
		}
	default:
		out.Kind = model.FailureSpawn
		out.ExitCode = -1
		out.Err = &InvocationError{Kind: model.FailureSpawn, Cause: err}
	}
	return out
}

// cappedBuffer keeps at most limit bytes. Past the limit it swallows writes so
// the child never blocks on a full pipe, and calls onOverflow once.
type cappedBuffer struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	limit      int
	overflowed bool
	onOverflow func()
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.overflowed {
		return len(p), nil
	}
	if room := b.limit - b.buf.Len(); len(p) > room {
		b.buf.Write(p[:room])
		b.overflowed = true
		if b.onOverflow != nil {
			b.onOverflow()
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *cappedBuffer) Overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflowed
}

// Invoker runs python scripts with the windows "py" fallback.
type Invoker struct {
	runner Runner
	goos   string
}

func NewInvoker(runner Runner) *Invoker {
	return &Invoker{runner: runner, goos: runtime.GOOS}
}

// Invoke makes exactly one attempt.
func (inv *Invoker) Invoke(ctx context.Context, executable, scriptPath string, args []string) model.Outcome {
	argv := append([]string{scriptPath}, args...)
	log.Printf("[python] Executing: %s", commandLine(executable, argv))
	out := inv.runner.Run(ctx, executable, argv)
	if out.Success() && out.Stderr != "" {
		log.Printf("[python] stderr: %s", strings.TrimSpace(out.Stderr))
	}
	return out
}

// RunWithFallback invokes the script and, on windows only, retries once with
// the py launcher unless that was already the executable. The last attempt's
// outcome is returned.
func (inv *Invoker) RunWithFallback(ctx context.Context, executable, scriptPath string, args []string) model.Outcome {
	out := inv.Invoke(ctx, executable, scriptPath, args)
	if out.Success() {
		return out
	}
	log.Printf("[python] %s failed (%s): %v", executable, out.Kind, out.Err)

	if inv.goos != "windows" || executable == utils.WindowsLauncher || ctx.Err() != nil {
		return out
	}
	log.Printf("[python] Primary python failed, trying %q launcher...", utils.WindowsLauncher)
	out = inv.Invoke(ctx, utils.WindowsLauncher, scriptPath, args)
	if !out.Success() {
		log.Printf("[python] %s failed (%s): %v", utils.WindowsLauncher, out.Kind, out.Err)
	}
	return out
}

func commandLine(executable string, argv []string) string {
	return strings.TrimSpace(executable + " " + strings.Join(argv, " "))
}
