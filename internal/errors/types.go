package errors

import (
	"errors"

	"dockhand/pkg/runtime"
)

var (
	ErrManifestNotFound    = errors.New("manifest file not found")
	ErrManifestParseFailed = errors.New("manifest parsing failed")
	ErrImageFailed         = errors.New("image operation failed")
	ErrContainerFailed     = errors.New("container operation failed")
	ErrDaemonUnavailable   = errors.New("container daemon unavailable")
	ErrConfigInvalid       = errors.New("configuration invalid")
	ErrFileSystemFailed    = errors.New("filesystem operation failed")
)

type DockhandError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *DockhandError) Error() string {
	return e.OriginalErr.Error()
}

func (e *DockhandError) Unwrap() error {
	return e.OriginalErr
}

func NewDockhandError(errorType error, context, cause, suggestion string, originalErr error) *DockhandError {
	return &DockhandError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewManifestError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrManifestNotFound, context, cause, suggestion, originalErr)
}

func NewParseError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrManifestParseFailed, context, cause, suggestion, originalErr)
}

func NewImageError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrImageFailed, context, cause, suggestion, originalErr)
}

func NewContainerError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrContainerFailed, context, cause, suggestion, originalErr)
}

func NewDaemonError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrDaemonUnavailable, context, cause, suggestion, originalErr)
}

func NewConfigError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}

func NewFileSystemError(context, cause, suggestion string, originalErr error) *DockhandError {
	return NewDockhandError(ErrFileSystemFailed, context, cause, suggestion, originalErr)
}

// Classify wraps errors returned by the docker package in a DockhandError
// carrying a user-facing suggestion. Errors that are already classified, or
// that it does not recognise, are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var dockhandErr *DockhandError
	if errors.As(err, &dockhandErr) {
		return err
	}

	switch {
	case errors.Is(err, runtime.ErrRunnerFailed):
		return NewDaemonError(
			"Failed to run the container CLI",
			err.Error(),
			"Install docker or podman, or point --binary at a working CLI",
			err,
		)
	case errors.Is(err, runtime.ErrPullFailed):
		return NewImageError(
			"Failed to pull image",
			err.Error(),
			"Check the image reference and that you are logged in to its registry",
			err,
		)
	case errors.Is(err, runtime.ErrRemoveFailed):
		return NewImageError(
			"Failed to remove image",
			err.Error(),
			"Stop containers using the image, or check the image reference",
			err,
		)
	case errors.Is(err, runtime.ErrStartFailed):
		return NewContainerError(
			"Failed to start container",
			err.Error(),
			"Check that every volume source exists and the run options are valid",
			err,
		)
	case errors.Is(err, runtime.ErrExecutionFailed):
		return NewContainerError(
			"Failed to execute command in container",
			err.Error(),
			"The container is not running; start a new one with 'dockhand up'",
			err,
		)
	case errors.Is(err, runtime.ErrStopFailed):
		return NewContainerError(
			"Failed to stop container",
			err.Error(),
			"Check the container id with 'docker ps -a'",
			err,
		)
	}
	return err
}
