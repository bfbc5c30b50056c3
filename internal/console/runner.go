// Package console drives the external instance-control binary. Every call
// carries a hard timeout; a non-zero exit and a timeout are both reported as
// a failed command.
package console

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Result captures one control-surface invocation.
type Result struct {
	Success  bool
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// Surface is the command-style control interface the lifecycle layer needs.
type Surface interface {
	Exec(ctx context.Context, timeout time.Duration, args ...string) Result
}

// ExecRunner runs the console binary via os/exec.
type ExecRunner struct {
	Path string
	Log  zerolog.Logger
}

// NewExecRunner constructs an exec-backed Surface for the given binary path.
func NewExecRunner(path string, log zerolog.Logger) *ExecRunner {
	return &ExecRunner{Path: path, Log: log}
}

// Exec runs one console command and waits for it to finish or time out.
func (r *ExecRunner) Exec(ctx context.Context, timeout time.Duration, args ...string) Result {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, r.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Success:  err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		res.ExitCode = -1
		res.TimedOut = true
		if res.Stderr == "" {
			res.Stderr = "command timed out after " + timeout.String()
		}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
	}

	if res.Success {
		r.Log.Debug().
			Str("event", "console_exec").
			Str("args", strings.Join(args, " ")).
			Dur("dur", res.Duration).
			Msg("console command ok")
	} else {
		r.Log.Warn().
			Str("event", "console_exec_failed").
			Str("args", strings.Join(args, " ")).
			Int("exit", res.ExitCode).
			Bool("timed_out", res.TimedOut).
			Str("stderr", res.Stderr).
			Msg("console command failed")
	}
	return res
}
