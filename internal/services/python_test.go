package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
)

// fakeRunner answers by executable name and records every attempt.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []string
	argv     [][]string
	succeeds map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, executable string, argv []string) model.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, executable)
	f.argv = append(f.argv, argv)

	out := model.Outcome{Executable: executable}
	if f.succeeds[executable] {
		out.Stdout = "ran with " + executable
		return out
	}
	out.Stderr = executable + " failed"
	out.Kind = model.FailureSpawn
	out.Err = &InvocationError{Kind: model.FailureSpawn, Cause: errors.New(executable + ": not found")}
	return out
}

func TestRunWithFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		goos       string
		executable string
		succeeds   map[string]bool
		wantCalls  []string
		wantOK     bool
		wantStderr string
	}{
		{
			name:       "success needs no retry",
			goos:       "windows",
			executable: "python",
			succeeds:   map[string]bool{"python": true},
			wantCalls:  []string{"python"},
			wantOK:     true,
		},
		{
			name:       "windows retries with py",
			goos:       "windows",
			executable: `C:\app\python\venv\Scripts\python.exe`,
			succeeds:   map[string]bool{"py": true},
			wantCalls:  []string{`C:\app\python\venv\Scripts\python.exe`, "py"},
			wantOK:     true,
		},
		{
			name:       "windows surfaces second failure",
			goos:       "windows",
			executable: "python",
			wantCalls:  []string{"python", "py"},
			wantStderr: "py failed",
		},
		{
			name:       "windows does not retry py",
			goos:       "windows",
			executable: "py",
			wantCalls:  []string{"py"},
			wantStderr: "py failed",
		},
		{
			name:       "linux never retries",
			goos:       "linux",
			executable: "python3",
			succeeds:   map[string]bool{"py": true},
			wantCalls:  []string{"python3"},
			wantStderr: "python3 failed",
		},
		{
			name:       "darwin never retries",
			goos:       "darwin",
			executable: "/opt/app/python/venv/bin/python",
			wantCalls:  []string{"/opt/app/python/venv/bin/python"},
			wantStderr: "/opt/app/python/venv/bin/python failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := &fakeRunner{succeeds: tt.succeeds}
			inv := NewInvoker(runner)
			inv.goos = tt.goos

			out := inv.RunWithFallback(context.Background(), tt.executable, "/scripts/print_label.py", []string{"print", "Label1"})

			assert.Equal(t, tt.wantCalls, runner.calls)
			assert.Equal(t, tt.wantOK, out.Success())
			assert.Equal(t, tt.wantCalls[len(tt.wantCalls)-1], out.Executable)
			if !tt.wantOK {
				assert.Equal(t, tt.wantStderr, out.Stderr)
				assert.Equal(t, model.FailureSpawn, KindOf(out.Err))
			}
			for _, argv := range runner.argv {
				assert.Equal(t, []string{"/scripts/print_label.py", "print", "Label1"}, argv)
			}
		})
	}
}

func TestRunWithFallback_SkipsRetryAfterCancel(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	inv := NewInvoker(runner)
	inv.goos = "windows"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv.RunWithFallback(ctx, "python", "script.py", nil)

	assert.Equal(t, []string{"python"}, runner.calls)
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for python")
	}
}

func TestExecRunner_CapturesOutput(t *testing.T) {
	skipWithoutShell(t)
	t.Parallel()

	script := filepath.Join(t.TempDir(), "hello.sh")
	writeScript(t, script, "echo \"hello $1 $2\"\necho 'careful' >&2\n")

	out := ExecRunner{}.Run(context.Background(), "/bin/sh", []string{script, "a b", "c"})

	require.NoError(t, out.Err)
	assert.Equal(t, "hello a b c\n", out.Stdout)
	assert.Equal(t, "careful\n", out.Stderr)
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, model.FailureNone, out.Kind)
	assert.Equal(t, "/bin/sh", out.Executable)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	skipWithoutShell(t)
	t.Parallel()

	script := filepath.Join(t.TempDir(), "fail.sh")
	writeScript(t, script, "echo partial\necho 'printer unreachable' >&2\nexit 3\n")

	out := ExecRunner{}.Run(context.Background(), "/bin/sh", []string{script})

	require.Error(t, out.Err)
	assert.Equal(t, model.FailureNonZeroExit, out.Kind)
	assert.Equal(t, model.FailureNonZeroExit, KindOf(out.Err))
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "partial\n", out.Stdout)
	assert.Equal(t, "printer unreachable\n", out.Stderr)
	assert.Contains(t, out.ErrorMessage(), "exit status 3")
}

func TestExecRunner_SpawnFailure(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "venv", "bin", "python")
	out := ExecRunner{}.Run(context.Background(), missing, []string{"script.py"})

	require.Error(t, out.Err)
	assert.Equal(t, model.FailureSpawn, out.Kind)
	assert.Empty(t, out.Stdout)
	assert.Empty(t, out.Stderr)
}

func TestExecRunner_OutputLimit(t *testing.T) {
	skipWithoutShell(t)
	t.Parallel()

	script := filepath.Join(t.TempDir(), "noisy.sh")
	writeScript(t, script, "i=0\nwhile [ $i -lt 500 ]; do echo 0123456789; i=$((i+1)); done\n")

	out := ExecRunner{MaxOutput: 100}.Run(context.Background(), "/bin/sh", []string{script})

	require.Error(t, out.Err)
	assert.Equal(t, model.FailureOutputLimit, out.Kind)
	assert.ErrorIs(t, out.Err, ErrOutputLimit)
	assert.Len(t, out.Stdout, 100)
	assert.True(t, strings.HasPrefix(out.Stdout, "0123456789\n"))
}

func TestCappedBuffer(t *testing.T) {
	t.Parallel()

	overflows := 0
	b := &cappedBuffer{limit: 8, onOverflow: func() { overflows++ }}

	n, err := b.Write([]byte("12345"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, b.Overflowed())

	n, err = b.Write([]byte("67890"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	_, _ = b.Write([]byte("more"))

	assert.True(t, b.Overflowed())
	assert.Equal(t, "12345678", b.String())
	assert.Equal(t, 1, overflows)
}
