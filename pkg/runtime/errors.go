package runtime

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRunnerFailed    = errors.New("container CLI could not be run")
	ErrPullFailed      = errors.New("image pull failed")
	ErrRemoveFailed    = errors.New("image removal failed")
	ErrStartFailed     = errors.New("container start failed")
	ErrStopFailed      = errors.New("container stop failed")
	ErrExecutionFailed = errors.New("container execution failed")
)

// PullError is returned when the CLI reports an error while pulling an image.
type PullError struct {
	Image  string
	Stderr string
}

func (e *PullError) Error() string {
	return fmt.Sprintf("could not pull image '%s' due to error: %s", e.Image, strings.TrimSpace(e.Stderr))
}

func (e *PullError) Unwrap() error { return ErrPullFailed }

// RemoveError is returned when the CLI reports an error while removing an image.
type RemoveError struct {
	Image  string
	Stderr string
}

func (e *RemoveError) Error() string {
	return fmt.Sprintf("could not remove image '%s' due to error: %s", e.Image, strings.TrimSpace(e.Stderr))
}

func (e *RemoveError) Unwrap() error { return ErrRemoveFailed }

// StartError is returned when a container could not be started from Image.
type StartError struct {
	Image  string
	Stderr string
}

func (e *StartError) Error() string {
	return fmt.Sprintf("could not start container from image '%s' with error: %s", e.Image, strings.TrimSpace(e.Stderr))
}

func (e *StartError) Unwrap() error { return ErrStartFailed }

// StopError is returned when stopping a container fails for any reason other
// than the container already being stopped.
type StopError struct {
	ContainerID string
	Stderr      string
}

func (e *StopError) Error() string {
	return fmt.Sprintf("could not stop container %s with error: %s", e.ContainerID, strings.TrimSpace(e.Stderr))
}

func (e *StopError) Unwrap() error { return ErrStopFailed }

// ExecutionError is returned when a command is executed in a container that is not running.
type ExecutionError struct {
	ContainerID string
	Stderr      string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("could not execute in container %s with error: %s", e.ContainerID, strings.TrimSpace(e.Stderr))
}

func (e *ExecutionError) Unwrap() error { return ErrExecutionFailed }
