package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "dockhand/internal/errors"
	"dockhand/pkg/runtime"
)

// ErrStepFailed is wrapped by errors from exec steps whose output shows a failure.
var ErrStepFailed = errors.New("exec step failed")

// ExecStage runs the manifest's exec steps in order inside the container.
// Steps completed by an earlier, interrupted run are not repeated.
type ExecStage struct {
	session *session
}

func NewExecStage(s *session) *ExecStage {
	return &ExecStage{session: s}
}

func (s *ExecStage) Name() string {
	return string(StageExec)
}

func (s *ExecStage) Execute(ctx context.Context, state *ExecutionState) error {
	steps := s.session.manifest.Spec.Exec

	if s.session.dryRun {
		for _, step := range steps {
			s.session.printCommand(append([]string{"exec", s.session.containerRef(state)}, step...)...)
		}
		return nil
	}

	handle := s.session.container(state)
	if handle == nil && len(steps) > 0 {
		return fmt.Errorf("no container recorded for run %s", state.RunID)
	}

	for i, step := range steps {
		if i < state.ExecStepsCompleted {
			slog.Debug("Skipping completed exec step", "step", i+1, "command", step)
			continue
		}

		s.session.console.PrintInfo(fmt.Sprintf("▶ [%d/%d] %s", i+1, len(steps), strings.Join(step, " ")))
		res, err := handle.Execute(ctx, step...)
		if err != nil {
			return err
		}
		s.session.console.PrintOutput(res.Out, res.Err)

		if err := s.checkResult(i, step, res); err != nil {
			return err
		}
		state.ExecStepsCompleted = i + 1
	}

	slog.Info("Exec stage completed successfully", "containerID", state.ContainerID, "steps", len(steps))
	return nil
}

func (s *ExecStage) checkResult(i int, step []string, res runtime.ExecutionResult) error {
	var cause string
	switch {
	case res.ExitCode != 0:
		cause = fmt.Sprintf("command exited with code %d", res.ExitCode)
	case res.Err != "" && !s.session.manifest.Spec.AllowStderr:
		cause = "command wrote to stderr: " + strings.TrimSpace(res.Err)
	default:
		return nil
	}

	command := strings.Join(step, " ")
	return apperrors.NewContainerError(
		fmt.Sprintf("Exec step %d failed: %s", i+1, command),
		cause,
		"Fix the command, or set allowStderr: true in the manifest if stderr output is expected",
		fmt.Errorf("%w: step %d (%s): %s", ErrStepFailed, i+1, command, cause),
	)
}
