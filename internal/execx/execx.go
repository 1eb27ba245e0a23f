// Package execx runs external tools with bounded execution time.
//
// Every provisioning step that shells out goes through here so a hung
// external tool cannot wedge the run indefinitely.
package execx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultTimeout bounds a single external command unless the caller asks for
// more (package installation needs minutes, device listing milliseconds).
const DefaultTimeout = 30 * time.Second

// ErrNotRoot is returned by EnsureRoot for unprivileged processes.
var ErrNotRoot = errors.New("this command must be run as root")

// CommandError reports a command that exited non-zero where the result was
// load-bearing.
type CommandError struct {
	Argv     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %s failed with exit code %d", strings.Join(e.Argv, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

// EnsureRoot fails unless the process runs with an effective uid of 0.
func EnsureRoot() error {
	if unix.Geteuid() != 0 {
		return ErrNotRoot
	}
	return nil
}

// Output runs a command and returns its stdout. A zero timeout means
// DefaultTimeout. Non-zero exit yields a *CommandError; a missing binary
// surfaces as the underlying exec error.
func Output(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), &CommandError{
				Argv:     append([]string{name}, args...),
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return "", err
	}
	return string(out), nil
}

// Run executes a command for its side effects with stdout/stderr passed
// through to the operator.
func Run(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CommandError{
				Argv:     append([]string{name}, args...),
				ExitCode: exitErr.ExitCode(),
			}
		}
		return err
	}
	return nil
}

// RunEnv is Run with extra environment variables appended to the inherited
// environment (apt-get needs DEBIAN_FRONTEND=noninteractive).
func RunEnv(ctx context.Context, timeout time.Duration, env []string, name string, args ...string) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CommandError{
				Argv:     append([]string{name}, args...),
				ExitCode: exitErr.ExitCode(),
			}
		}
		return err
	}
	return nil
}
