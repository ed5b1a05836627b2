package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/brewer-michael/claudia-web/internal/logging"
	"github.com/brewer-michael/claudia-web/internal/metrics"
)

// ErrExecTimeout is returned when a command outlives the configured
// execution timeout. Partial output is still returned alongside it.
var ErrExecTimeout = errors.New("command timed out")

// ExecResult carries a command's interleaved stdout and stderr plus its
// exit code.
type ExecResult struct {
	Output   []byte
	ExitCode int
}

// Execute runs a shell command with the project directory as working
// directory. A non-zero exit code is not an error; the result reports
// it. Stdout and stderr share one buffer so output interleaves the way
// a terminal would show it.
func (s *Service) Execute(ctx context.Context, projectID, command string) (*ExecResult, error) {
	dir, err := s.ProjectDir(projectID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.execTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = filepath.Join(s.root, dir)
	// Surviving grandchildren keep the output pipe open after the
	// shell is killed; WaitDelay stops Run from blocking on them.
	cmd.WaitDelay = time.Second

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := &ExecResult{Output: buf.Bytes()}

	if ctx.Err() == context.DeadlineExceeded {
		metrics.RecordCommand("timeout", duration)
		logging.Warn("command timed out",
			zap.String("project", projectID),
			zap.String("command", command),
			zap.Duration("after", duration),
		)
		return result, fmt.Errorf("%w after %s", ErrExecTimeout, s.execTimeout)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			metrics.RecordCommand("error", duration)
			return nil, fmt.Errorf("run command: %w", runErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	status := "ok"
	if result.ExitCode != 0 {
		status = "nonzero"
	}
	metrics.RecordCommand(status, duration)
	logging.Debug("command finished",
		zap.String("project", projectID),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", duration),
	)
	return result, nil
}
