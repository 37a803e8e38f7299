package app

import (
	"context"
	"log/slog"

	"dockhand/pkg/docker"
)

// StartStage starts a detached container from the manifest.
type StartStage struct {
	session *session
}

func NewStartStage(s *session) *StartStage {
	return &StartStage{session: s}
}

func (s *StartStage) Name() string {
	return string(StageStart)
}

func (s *StartStage) Execute(ctx context.Context, state *ExecutionState) error {
	if s.session.dryRun {
		flags, err := docker.RunFlags(s.session.args)
		if err != nil {
			return err
		}
		s.session.printCommand(docker.RunArgs(flags, s.session.args.Image)...)
		return nil
	}

	handle, err := s.session.factory.Containers().Start(ctx, s.session.args)
	if err != nil {
		return err
	}

	s.session.handle = handle
	state.ContainerID = handle.ContainerID()
	state.ExecStepsCompleted = 0

	s.session.console.PrintSuccess("✅ Started container " + handle.ContainerID())
	slog.Info("Start stage completed successfully", "containerID", handle.ContainerID(), "image", s.session.args.Image)
	return nil
}
