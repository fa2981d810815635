package sim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const (
	defaultTimeout   = 120 * time.Second
	defaultMaxOutput = 256 * 1024
)

// ErrToolFailure marks an external-tool invocation that did not produce a
// usable result (binary missing, process killed, timeout). It is distinct
// from a normal non-zero exit, which is a legitimate check outcome.
var ErrToolFailure = errors.New("external tool failure")

// Runner executes external checker/simulator processes with a timeout and
// capped output capture.
type Runner struct {
	timeout        time.Duration
	maxOutputBytes int
	workDir        string
}

// Result contains the outcome of one process invocation.
type Result struct {
	ExitCode     int
	Stdout       string
	Stderr       string
	DurationMs   int64
	WasTruncated bool
}

// NewRunner creates a runner bound to the given working directory.
func NewRunner(workDir string) *Runner {
	return &Runner{
		timeout:        defaultTimeout,
		maxOutputBytes: defaultMaxOutput,
		workDir:        workDir,
	}
}

// WithTimeout sets the per-invocation timeout.
func (r *Runner) WithTimeout(timeout time.Duration) *Runner {
	r.timeout = timeout
	return r
}

// WithMaxOutputBytes caps captured stdout/stderr size.
func (r *Runner) WithMaxOutputBytes(maxBytes int) *Runner {
	r.maxOutputBytes = maxBytes
	return r
}

// Run executes the command and waits for completion. A non-zero exit code is
// reported through Result, not the error; the error is reserved for tool
// failures (cannot start, timeout, killed), which callers must treat as fatal
// to the current candidate.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}

	var stdoutBuf, stderrBuf limitedBuffer
	stdoutBuf.limit = r.maxOutputBytes
	stderrBuf.limit = r.maxOutputBytes
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	startTime := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:       stdoutBuf.String(),
		Stderr:       stderrBuf.String(),
		DurationMs:   time.Since(startTime).Milliseconds(),
		WasTruncated: stdoutBuf.truncated || stderrBuf.truncated,
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return result, fmt.Errorf("%w: %s timed out after %s", ErrToolFailure, name, r.timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("%w: %s: %v", ErrToolFailure, name, err)
	}

	return result, nil
}

// limitedBuffer is a buffer with a size cap. Writes past the cap are dropped
// and the truncation flag is set.
type limitedBuffer struct {
	bytes.Buffer
	limit     int
	truncated bool
}

func (lb *limitedBuffer) Write(p []byte) (n int, err error) {
	if lb.Len()+len(p) > lb.limit {
		remaining := lb.limit - lb.Len()
		if remaining > 0 {
			lb.Buffer.Write(p[:remaining])
		}
		lb.truncated = true
		return len(p), nil
	}
	return lb.Buffer.Write(p)
}
