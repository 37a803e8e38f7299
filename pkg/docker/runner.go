// Package docker drives the docker command-line tool to manage images and
// containers. Every operation runs exactly one CLI process and interprets its
// standard error; no state is kept between calls.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"dockhand/pkg/runtime"
)

// DefaultBinary is the executable used when no other binary is configured.
const DefaultBinary = "docker"

// ErrNoBinary is returned when no container CLI is found.
var ErrNoBinary = errors.New("no container CLI found (need docker or podman)")

// Older daemons capitalise "Container", current ones do not.
var notRunningRegex = regexp.MustCompile(`(?i)^Error response from daemon: container (\w+) is not running`)

// NotRunningContainer reports whether stderr is the daemon's "container is not
// running" response and returns the container id it names.
func NotRunningContainer(stderr string) (string, bool) {
	m := notRunningRegex.FindStringSubmatch(stderr)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CLIRunner implements runtime.CommandRunner by spawning the container CLI.
// It never interprets the output; callers decide what the stderr text means.
type CLIRunner struct {
	binary string
}

// RunnerOption configures a CLIRunner.
type RunnerOption func(*CLIRunner)

// WithBinary overrides the executable. An empty name keeps the default.
func WithBinary(binary string) RunnerOption {
	return func(r *CLIRunner) {
		if binary != "" {
			r.binary = binary
		}
	}
}

// NewCLIRunner creates a runner for the docker CLI.
func NewCLIRunner(opts ...RunnerOption) *CLIRunner {
	r := &CLIRunner{binary: DefaultBinary}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary returns the executable the runner invokes.
func (r *CLIRunner) Binary() string {
	return r.binary
}

// Run executes the CLI with args and waits for it to exit. Both output streams
// are drained concurrently so a chatty child cannot block on a full pipe.
// A non-zero exit status is reported through ExitCode, not as an error.
func (r *CLIRunner) Run(ctx context.Context, args ...string) (runtime.ExecutionResult, error) {
	slog.Debug("Executing docker command", "binary", r.binary, "args", args)

	cmd := exec.CommandContext(ctx, r.binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return runtime.ExecutionResult{}, fmt.Errorf("%w: failed to get stdout pipe: %w", runtime.ErrRunnerFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return runtime.ExecutionResult{}, fmt.Errorf("%w: failed to get stderr pipe: %w", runtime.ErrRunnerFailed, err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return runtime.ExecutionResult{}, fmt.Errorf("%w: %s is not installed: %w", runtime.ErrRunnerFailed, r.binary, err)
		}
		return runtime.ExecutionResult{}, fmt.Errorf("%w: failed to start %s: %w", runtime.ErrRunnerFailed, r.binary, err)
	}

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&outBuf, stdout)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&errBuf, stderr)
		return err
	})

	// Pipes must be fully read before Wait closes them.
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	result := runtime.ExecutionResult{
		Out: outBuf.String(),
		Err: errBuf.String(),
	}

	if drainErr != nil {
		return result, fmt.Errorf("%w: failed to read output of %s %s: %w", runtime.ErrRunnerFailed, r.binary, strings.Join(args, " "), drainErr)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return result, fmt.Errorf("%w: %s %s: %w", runtime.ErrRunnerFailed, r.binary, strings.Join(args, " "), waitErr)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%w: %s %s: %w", runtime.ErrRunnerFailed, r.binary, strings.Join(args, " "), ctxErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	return result, nil
}

// DetectBinary finds an available container CLI.
// Checks docker first, then podman, and verifies the binary answers `version`.
func DetectBinary() (string, error) {
	for _, bin := range []string{"docker", "podman"} {
		if _, err := exec.LookPath(bin); err != nil {
			continue
		}
		if err := exec.Command(bin, "version").Run(); err != nil {
			continue
		}
		return bin, nil
	}
	return "", ErrNoBinary
}

// Verify CLIRunner implements CommandRunner interface
var _ runtime.CommandRunner = (*CLIRunner)(nil)
