// Package procexec runs external tools and captures their output.
package procexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Result captures a finished process. A non-zero ExitCode is not an error.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the process exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Result, error)
}

// CommandExecutor runs commands with os/exec. Run returns an error only when
// the process could not be started or its output could not be read.
type CommandExecutor struct{}

// maxLineBytes bounds a single output line.
const maxLineBytes = 4 * 1024 * 1024

// Run implements Executor.
func (CommandExecutor) Run(ctx context.Context, binary string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", binary, err)
	}

	var (
		wg     sync.WaitGroup
		outBuf strings.Builder
		errBuf strings.Builder
	)
	scanErrs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanErrs[0] = collectLines(stdout, &outBuf)
	}()
	go func() {
		defer wg.Done()
		scanErrs[1] = collectLines(stderr, &errBuf)
	}()
	wg.Wait()

	result := Result{Stdout: outBuf.String(), Stderr: errBuf.String()}
	waitErr := cmd.Wait()
	if scanErr := errors.Join(scanErrs...); scanErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("scan output: %w", scanErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0 {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("wait %s: %w", binary, waitErr)
	}
	return result, nil
}

// collectLines copies r into dst line by line. After a scan failure the rest
// of r is discarded so the child never blocks on a full pipe.
func collectLines(r io.Reader, dst *strings.Builder) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		dst.Write(scanner.Bytes())
		dst.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
