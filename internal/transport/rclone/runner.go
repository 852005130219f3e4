package rclone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/domain/command"
)

// waitDelay bounds how long output pipes are drained after the process is killed.
const waitDelay = 2 * time.Second

// Runner executes the rclone binary. A command in flight is never aborted by caller
// cancellation; only the per-command timeout bounds it.
type Runner struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner creates a Runner. timeout <= 0 means no per-command bound.
func NewRunner(binary string, timeout time.Duration, logger *zap.Logger) *Runner {
	if binary == "" {
		binary = "rclone"
	}
	return &Runner{binary: binary, timeout: timeout, logger: logger}
}

// Run executes rclone with args. A non-zero exit is a Result, not an error;
// an error means the binary could not be started.
func (r *Runner) Run(ctx context.Context, args []string) (command.Result, error) {
	runCtx := context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	r.logger.Debug("Running rclone", zap.Strings("args", args))
	err := cmd.Run()
	res := command.Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.ExitCode = -1
		res.Stderr = fmt.Sprintf("rclone timed out after %s\n%s", r.timeout, res.Stderr)
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		res.ExitCode = -1
		return res, fmt.Errorf("run %s: %w", r.binary, err)
	}
}

// HealthCheck verifies the binary is runnable.
func (r *Runner) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, r.binary, "version").Run(); err != nil {
		return fmt.Errorf("%s version: %w", r.binary, err)
	}
	return nil
}
