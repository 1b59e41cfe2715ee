// pkg/distro/runner.go
package distro

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrToolUnavailable reports that a required external tool is not on PATH.
var ErrToolUnavailable = errors.New("tool not available")

// Runner executes package-manager tools. Backends depend on this interface
// so tests can substitute canned output for real processes.
type Runner interface {
	// Run executes name with args and returns its stdout. A non-zero exit
	// status is an error carrying the first line of stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Available reports whether name resolves on PATH.
	Available(name string) bool
}

// DefaultTimeout bounds a single tool invocation when the caller's context
// carries no deadline of its own.
const DefaultTimeout = 30 * time.Second

// ExecRunner runs real processes with a C locale so output stays parseable
// regardless of the host language settings.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner returns a runner with the given per-invocation timeout;
// zero means DefaultTimeout.
func NewExecRunner(timeout time.Duration) ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return ExecRunner{Timeout: timeout}
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrToolUnavailable)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), "LANG=C", "LC_ALL=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := firstLine(stderr.String())
		if detail != "" {
			return stdout.Bytes(), fmt.Errorf("running %s: %w: %s", name, err, detail)
		}
		return stdout.Bytes(), fmt.Errorf("running %s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

func (r ExecRunner) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
