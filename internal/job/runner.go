// Package job executes the per-instance work command: an external worker
// binary pointed at a ready instance's adb endpoint.
package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Result is the outcome of one job run.
type Result struct {
	InstanceID int
	Success    bool
	ExitCode   int
	Duration   time.Duration
	TimedOut   bool
	Output     string
	Err        error
}

// Runner executes the work for one ready instance. The production
// implementation shells out; orchestrator tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, instanceID int, endpoint string, timeout time.Duration) Result
}

// ExecRunner launches the configured worker command with the instance id
// and endpoint appended as flags.
type ExecRunner struct {
	// Command is the worker argv; Command[0] is the binary.
	Command []string
	Log     zerolog.Logger
}

// NewExecRunner constructs an exec-backed Runner.
func NewExecRunner(command []string, log zerolog.Logger) *ExecRunner {
	return &ExecRunner{Command: command, Log: log}
}

// Run invokes the worker for one instance, enforcing the hard timeout.
// A timed-out job is a failure; there is no retry at this layer.
func (r *ExecRunner) Run(ctx context.Context, instanceID int, endpoint string, timeout time.Duration) Result {
	out := Result{InstanceID: instanceID, ExitCode: -1}
	if len(r.Command) == 0 {
		out.Err = fmt.Errorf("no worker command configured")
		return out
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append(append([]string(nil), r.Command[1:]...),
		"--instance", strconv.Itoa(instanceID),
		"--endpoint", endpoint)
	cmd := exec.CommandContext(runCtx, r.Command[0], args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	r.Log.Info().
		Str("event", "job_start").
		Int("instance", instanceID).
		Str("endpoint", endpoint).
		Msg("worker launched")
	began := time.Now()
	err := cmd.Run()
	out.Duration = time.Since(began)
	out.Output = buf.String()

	if runCtx.Err() == context.DeadlineExceeded {
		out.TimedOut = true
		out.Err = fmt.Errorf("job timed out after %s", timeout)
		r.Log.Error().
			Str("event", "job_timeout").
			Int("instance", instanceID).
			Dur("after", out.Duration).
			Msg("worker killed at deadline")
		return out
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		}
		out.Err = err
		r.Log.Warn().
			Str("event", "job_failed").
			Int("instance", instanceID).
			Int("exit_code", out.ExitCode).
			Msg("worker failed")
		return out
	}

	out.Success = true
	out.ExitCode = 0
	r.Log.Info().
		Str("event", "job_done").
		Int("instance", instanceID).
		Dur("took", out.Duration).
		Msg("worker finished")
	return out
}
