package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ashureev/codeedge/internal/domain"
)

// ProcessExecutor runs snippets with a local interpreter in a scratch
// directory. It enforces a timeout and output cap but is not a sandbox.
type ProcessExecutor struct {
	python    string
	timeout   time.Duration
	maxOutput int
}

// NewProcessExecutor creates an executor for the python binary.
func NewProcessExecutor(python string, timeout time.Duration, maxOutput int) *ProcessExecutor {
	if python == "" {
		python = "python3"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxOutput <= 0 {
		maxOutput = defaultMaxOutput
	}
	return &ProcessExecutor{python: python, timeout: timeout, maxOutput: maxOutput}
}

// Execute implements Executor.
func (p *ProcessExecutor) Execute(ctx context.Context, source string) (domain.CodeExecutionResult, error) {
	if len(source) > MaxSourceBytes {
		return tooLarge(), nil
	}

	dir, err := os.MkdirTemp("", "codeedge-run-")
	if err != nil {
		return domain.CodeExecutionResult{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	script := filepath.Join(dir, "main.py")
	if err := os.WriteFile(script, []byte(source), 0o600); err != nil {
		return domain.CodeExecutionResult{}, fmt.Errorf("write script: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stdout := NewTailBuffer(p.maxOutput)
	stderr := NewTailBuffer(p.maxOutput)

	cmd := exec.CommandContext(runCtx, p.python, script)
	cmd.Dir = dir
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONIOENCODING=utf-8",
		"PYTHONUNBUFFERED=1",
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if isDeadline(runCtx.Err()) {
		return timedOut(p.timeout, stdout), nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return finished(0, stdout, stderr), nil
	case errors.As(err, &exitErr):
		return finished(exitErr.ExitCode(), stdout, stderr), nil
	default:
		return domain.CodeExecutionResult{}, fmt.Errorf("run %s: %w", p.python, err)
	}
}
