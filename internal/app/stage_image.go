package app

import (
	"context"
	"log/slog"
)

// ImageStage makes sure the manifest's image is available locally.
type ImageStage struct {
	session *session
}

func NewImageStage(s *session) *ImageStage {
	return &ImageStage{session: s}
}

func (s *ImageStage) Name() string {
	return string(StageImage)
}

func (s *ImageStage) Execute(ctx context.Context, state *ExecutionState) error {
	image := s.session.args.Image

	if s.session.dryRun {
		s.session.printCommand("image", "inspect", image)
		s.session.console.PrintInfo("🔍 DRY RUN: pull only if the image is missing")
		s.session.printCommand("pull", image)
		return nil
	}

	pulled, err := s.session.factory.Images().Ensure(ctx, image)
	if err != nil {
		return err
	}

	state.Image = image
	if pulled {
		s.session.console.PrintSuccess("✅ Pulled image " + image)
	} else {
		s.session.console.PrintSuccess("✅ Image " + image + " already present")
	}
	slog.Info("Image stage completed successfully", "image", image, "pulled", pulled)
	return nil
}
