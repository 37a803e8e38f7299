package app

import (
	"context"
	"log/slog"
)

// StopStage stops the container started by StartStage.
type StopStage struct {
	session *session
}

func NewStopStage(s *session) *StopStage {
	return &StopStage{session: s}
}

func (s *StopStage) Name() string {
	return string(StageStop)
}

func (s *StopStage) Execute(ctx context.Context, state *ExecutionState) error {
	if s.session.dryRun {
		s.session.printCommand("stop", s.session.containerRef(state))
		return nil
	}

	handle := s.session.container(state)
	if handle == nil {
		slog.Debug("No container to stop", "runId", state.RunID)
		return nil
	}

	if err := handle.Stop(ctx); err != nil {
		return err
	}

	s.session.console.PrintSuccess("✅ Stopped container " + handle.ContainerID())
	slog.Info("Stop stage completed successfully", "containerID", handle.ContainerID())
	return nil
}
