package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Shell used to interpret rendered stage scripts.
const stageShell = "sh"

// Output of a command execution inside the build root.
type ExecResult struct {
	ExitCode int    // Exit code of the process.
	Output   string // Captured combined standard output and standard error.
}

// Minimal environment for stage scripts.
//
// Builds run with a scrubbed environment so host settings cannot leak into
// compiled output. home points tools that insist on writing state files at
// the build root instead of the invoking user's home directory.
func buildEnv(home string) []string {
	return []string{
		"PATH=/usr/bin:/bin",
		"HOME=" + home,
		"TERM=dumb",
	}
}

// Runs a rendered stage script in the given working directory.
//
// The script is passed to the shell as a single argument via "sh -c".
// Standard output and standard error stream through to the parent so
// compiler output is visible as it happens. A non-zero exit code is not
// treated as an error; the caller decides.
func runScript(ctx context.Context, dir string, env []string, script string) (int, error) {
	cmd := exec.CommandContext(ctx, stageShell, "-c", script)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return exit.ExitCode(), nil
		}
		return 0, fmt.Errorf("%w: %s: %w", ErrCommandFailed, stageShell, err)
	}

	return 0, nil
}

// Runs a command and arguments directly, capturing combined output.
//
// Unlike [runScript], which passes a command string to a shell and streams
// output, runCommand executes the binary without shell wrapping and collects
// output for error reporting. A non-zero exit code is not treated as an
// error; the caller decides.
func runCommand(ctx context.Context, dir string, env []string, name string, args ...string) (*ExecResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = env

	out, err := cmd.CombinedOutput()
	if err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return &ExecResult{ExitCode: exit.ExitCode(), Output: string(out)}, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCommandFailed, name, err)
	}

	return &ExecResult{ExitCode: 0, Output: string(out)}, nil
}
