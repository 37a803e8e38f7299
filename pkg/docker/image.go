package docker

import (
	"context"
	"fmt"
	"log/slog"

	"dockhand/pkg/runtime"
)

// Images implements runtime.ImageRegistry on top of a CommandRunner.
// Any text on standard error is treated as a failed operation.
type Images struct {
	runner runtime.CommandRunner
}

// NewImages creates an image client that invokes the CLI through runner.
func NewImages(runner runtime.CommandRunner) *Images {
	return &Images{runner: runner}
}

// Exists reports whether image is present locally. An inspect failure such as
// "no such image" yields false; only a runner failure returns an error.
func (i *Images) Exists(ctx context.Context, image string) (bool, error) {
	res, err := i.runner.Run(ctx, "image", "inspect", image)
	if err != nil {
		return false, fmt.Errorf("failed to inspect image %s: %w", image, err)
	}
	return res.Err == "" && res.Out != "", nil
}

// Pull pulls image from its registry.
func (i *Images) Pull(ctx context.Context, image string) error {
	slog.Info("Pulling Docker image", "image", image)

	res, err := i.runner.Run(ctx, "pull", image)
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	if res.Err != "" {
		return &runtime.PullError{Image: image, Stderr: res.Err}
	}

	slog.Info("Successfully pulled Docker image", "image", image)
	return nil
}

// Remove deletes image from the local store.
func (i *Images) Remove(ctx context.Context, image string) error {
	res, err := i.runner.Run(ctx, "image", "rm", image)
	if err != nil {
		return fmt.Errorf("failed to remove image %s: %w", image, err)
	}
	if res.Err != "" {
		return &runtime.RemoveError{Image: image, Stderr: res.Err}
	}

	slog.Info("Removed Docker image", "image", image)
	return nil
}

// Ensure pulls image if it is not present. It returns true when a pull was
// performed and false when the image already existed.
func (i *Images) Ensure(ctx context.Context, image string) (bool, error) {
	exists, err := i.Exists(ctx, image)
	if err != nil {
		return false, err
	}
	if exists {
		slog.Debug("Docker image already present", "image", image)
		return false, nil
	}

	if err := i.Pull(ctx, image); err != nil {
		return false, err
	}
	return true, nil
}

// Verify Images implements ImageRegistry interface
var _ runtime.ImageRegistry = (*Images)(nil)
