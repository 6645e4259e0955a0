package synth

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// runResult is the structured outcome of one external process call.
// Exactly one of timedOut / startErr / exitCode describes the failure;
// exitCode 0 with neither set means success.
type runResult struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	startErr error
}

func (r runResult) ok() bool {
	return !r.timedOut && r.startErr == nil && r.exitCode == 0
}

// diagnostic returns the most useful captured output for error messages:
// stderr when present, stdout otherwise.
func (r runResult) diagnostic() string {
	if s := strings.TrimSpace(r.stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.stdout)
}

// runCommand invokes an external process bounded by timeout, capturing
// both output streams. All strategies go through this helper so timeout
// and output handling are not duplicated per call site.
func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) runResult {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := runResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
	}

	switch {
	case err == nil:
		// exitCode 0
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		res.timedOut = true
		res.exitCode = -1
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()
		} else {
			res.exitCode = -1
			res.startErr = err
		}
	}

	return res
}
