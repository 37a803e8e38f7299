package app

import (
	"fmt"

	"dockhand/pkg/docker"
	"dockhand/pkg/runtime"
)

// AutoBinary asks the factory to detect docker or podman on PATH.
const AutoBinary = "auto"

// RuntimeFactory builds the image and container clients for one CLI binary.
// All clients share a single CommandRunner.
type RuntimeFactory struct {
	binary     string
	runner     runtime.CommandRunner
	images     *docker.Images
	containers *docker.Containers
}

// NewRuntimeFactory creates a factory driving binary. An empty binary means
// docker; AutoBinary picks the first working CLI found on PATH.
func NewRuntimeFactory(binary string) (*RuntimeFactory, error) {
	switch binary {
	case "":
		binary = docker.DefaultBinary
	case AutoBinary:
		detected, err := docker.DetectBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to detect container CLI: %w", err)
		}
		binary = detected
	}
	return NewRuntimeFactoryWithRunner(binary, docker.NewCLIRunner(docker.WithBinary(binary))), nil
}

// NewRuntimeFactoryWithRunner creates a factory around an existing runner.
// binary is only used when printing commands.
func NewRuntimeFactoryWithRunner(binary string, runner runtime.CommandRunner) *RuntimeFactory {
	images := docker.NewImages(runner)
	return &RuntimeFactory{
		binary:     binary,
		runner:     runner,
		images:     images,
		containers: docker.NewContainers(runner, images),
	}
}

func (f *RuntimeFactory) Binary() string {
	return f.binary
}

func (f *RuntimeFactory) Runner() runtime.CommandRunner {
	return f.runner
}

func (f *RuntimeFactory) Images() *docker.Images {
	return f.images
}

func (f *RuntimeFactory) Containers() *docker.Containers {
	return f.containers
}
