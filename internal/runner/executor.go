// Package runner executes submitted Python snippets and reports their output.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/codeedge/internal/config"
	"github.com/ashureev/codeedge/internal/domain"
)

const (
	defaultMaxOutput = 64 * 1024
	defaultTimeout   = 10 * time.Second

	// MaxSourceBytes bounds accepted snippets.
	MaxSourceBytes = 64 * 1024
)

// ErrSourceTooLarge is reported for snippets over MaxSourceBytes.
var ErrSourceTooLarge = fmt.Errorf("source exceeds %d bytes", MaxSourceBytes)

// Executor runs a snippet. Program failures are described in the result;
// the error is reserved for infrastructure problems such as a missing
// interpreter or an unreachable Docker daemon.
type Executor interface {
	Execute(ctx context.Context, source string) (domain.CodeExecutionResult, error)
}

// New builds the configured Executor.
func New(ctx context.Context, cfg config.RunnerConfig) (Executor, error) {
	switch cfg.Backend {
	case config.RunnerProcess:
		slog.Warn("Code runner uses a local process, submitted code is NOT sandboxed", "python", cfg.Python)
		return NewProcessExecutor(cfg.Python, cfg.Timeout, cfg.MaxOutput), nil
	case config.RunnerDocker, "":
		d, err := NewDockerExecutor(cfg)
		if err != nil {
			return nil, err
		}
		if err := d.EnsureImage(ctx); err != nil {
			return nil, fmt.Errorf("prepare runner image: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown code runner %q", cfg.Backend)
	}
}

func tooLarge() domain.CodeExecutionResult {
	return domain.CodeExecutionResult{Success: false, Error: ErrSourceTooLarge.Error()}
}

func timedOut(timeout time.Duration, stdout *TailBuffer) domain.CodeExecutionResult {
	return domain.CodeExecutionResult{
		Success:         false,
		Output:          stdout.String(),
		Error:           fmt.Sprintf("execution timed out after %s", timeout),
		OutputTruncated: stdout.Truncated(),
	}
}

// finished converts an exit status and captured streams into a result.
func finished(exitCode int, stdout, stderr *TailBuffer) domain.CodeExecutionResult {
	if exitCode == 0 {
		return domain.CodeExecutionResult{
			Success:         true,
			Output:          stdout.String(),
			OutputTruncated: stdout.Truncated(),
		}
	}
	trace := stderr.String()
	msg := exceptionMessage(trace)
	if msg == "" {
		msg = fmt.Sprintf("process exited with status %d", exitCode)
	}
	return domain.CodeExecutionResult{
		Success:         false,
		Output:          stdout.String(),
		Error:           msg,
		Trace:           trace,
		OutputTruncated: stdout.Truncated(),
	}
}

// exceptionMessage returns the text of the exception that ended a Python
// traceback: everything after the frame lines of the innermost "  File"
// entry, with the leading "Type: " removed. Multi-line messages and
// attached notes are kept. Without frames the last non-blank line is used.
func exceptionMessage(trace string) string {
	lines := strings.Split(strings.TrimRight(trace, "\n"), "\n")

	start := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "  File ") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return lastLineMessage(lines)
	}

	// Source excerpt and caret lines of the frame are indented deeper.
	for start < len(lines) && strings.HasPrefix(lines[start], "    ") {
		start++
	}
	if start >= len(lines) {
		return ""
	}

	block := lines[start:]
	if _, msg, ok := strings.Cut(block[0], ": "); ok {
		block[0] = msg
	}
	return strings.TrimSpace(strings.Join(block, "\n"))
}

func lastLineMessage(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if _, msg, ok := strings.Cut(line, ": "); ok {
			return msg
		}
		return line
	}
	return ""
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
