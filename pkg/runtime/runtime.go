// Located in pkg/runtime/runtime.go
package runtime

import (
	"context"
)

// ExecutionResult holds the complete output of one finished docker invocation.
// Out and Err are always set, possibly to the empty string.
type ExecutionResult struct {
	Out string
	Err string
	// ExitCode is reported for callers; the docker package decides failure from Err alone.
	ExitCode int
}

// Volume is a bind mount from a host path to a path inside the container.
type Volume struct {
	Source   string
	Target   string
	ReadOnly bool
}

// Port publishes a container port on the host.
type Port struct {
	// HostIP restricts the binding to one host address. Empty binds all.
	HostIP    string
	Host      int
	Container int
	// Protocol defaults to tcp when empty.
	Protocol string
}

// BuildArgs defines the parameters for starting a container.
// It is treated as an immutable value once passed to Start.
type BuildArgs struct {
	Image      string
	Volumes    []Volume
	Ports      []Port
	EntryPoint string
	RunOpts    []string
}

// CommandRunner invokes the container CLI with an argument vector and returns
// both output streams once the process has exited.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) (ExecutionResult, error)
}

// ImageRegistry defines the contract for image operations.
type ImageRegistry interface {
	Exists(ctx context.Context, image string) (bool, error)
	Pull(ctx context.Context, image string) error
	Remove(ctx context.Context, image string) error
	// Ensure pulls the image when it is absent and reports whether a pull happened.
	Ensure(ctx context.Context, image string) (bool, error)
}

// ContainerHandle is a started container.
type ContainerHandle interface {
	ContainerID() string
	Execute(ctx context.Context, command ...string) (ExecutionResult, error)
	Stop(ctx context.Context) error
}

// ContainerRuntime defines the contract for container operations.
type ContainerRuntime interface {
	Start(ctx context.Context, args BuildArgs) (ContainerHandle, error)
}
