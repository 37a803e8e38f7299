package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"

	"dockhand/pkg/runtime"
)

// Containers implements runtime.ContainerRuntime using the CLI.
type Containers struct {
	runner runtime.CommandRunner
	images runtime.ImageRegistry
}

// NewContainers creates a container client. The image registry is consulted
// before every start so that missing images are pulled first.
func NewContainers(runner runtime.CommandRunner, images runtime.ImageRegistry) *Containers {
	return &Containers{
		runner: runner,
		images: images,
	}
}

// Start validates args, ensures the image is present and runs a detached
// container. Invalid args fail before any CLI call. The pull, if one is
// needed, is not cancellable beyond ctx and may be slow.
func (c *Containers) Start(ctx context.Context, args runtime.BuildArgs) (runtime.ContainerHandle, error) {
	slog.Info("Starting container", "image", args.Image, "volumes", len(args.Volumes))

	opts, err := RunFlags(args)
	if err != nil {
		return nil, &runtime.StartError{Image: args.Image, Stderr: err.Error()}
	}

	if _, err := c.images.Ensure(ctx, args.Image); err != nil {
		return nil, err
	}

	res, err := c.runner.Run(ctx, RunArgs(opts, args.Image)...)
	if err != nil {
		return nil, fmt.Errorf("failed to run container from %s: %w", args.Image, err)
	}
	if res.Err != "" {
		return nil, &runtime.StartError{Image: args.Image, Stderr: res.Err}
	}

	id := strings.TrimSpace(res.Out)
	if id == "" {
		return nil, &runtime.StartError{Image: args.Image, Stderr: "no container id was reported"}
	}

	slog.Info("Container started", "image", args.Image, "containerID", id)
	return c.Attach(id), nil
}

// Attach returns a handle for an already running container id.
func (c *Containers) Attach(id string) *Container {
	return &Container{ID: id, runner: c.runner}
}

// WithContainer starts a container, passes it to fn and stops it afterwards,
// whatever fn returns. A stop failure is joined with fn's error.
func (c *Containers) WithContainer(ctx context.Context, args runtime.BuildArgs, fn func(runtime.ContainerHandle) error) error {
	handle, err := c.Start(ctx, args)
	if err != nil {
		return err
	}

	fnErr := fn(handle)
	stopErr := handle.Stop(context.WithoutCancel(ctx))
	return errors.Join(fnErr, stopErr)
}

// RunFlags translates args into run flags: caller options first, then one
// bind mount per volume in order, then published ports and the entrypoint.
func RunFlags(args runtime.BuildArgs) ([]string, error) {
	flags := make([]string, 0, len(args.RunOpts)+2*len(args.Volumes)+2*len(args.Ports)+2)
	flags = append(flags, args.RunOpts...)

	for _, v := range args.Volumes {
		flags = append(flags, "--mount", mountSpec(bindMount(v)))
	}

	for _, p := range args.Ports {
		spec, err := publishSpec(p)
		if err != nil {
			return nil, err
		}
		flags = append(flags, "-p", spec)
	}

	if args.EntryPoint != "" {
		flags = append(flags, "--entrypoint", args.EntryPoint)
	}

	return flags, nil
}

func bindMount(v runtime.Volume) mount.Mount {
	return mount.Mount{
		Type:     mount.TypeBind,
		Source:   v.Source,
		Target:   v.Target,
		ReadOnly: v.ReadOnly,
	}
}

// mountSpec renders m in the --mount flag syntax.
func mountSpec(m mount.Mount) string {
	spec := fmt.Sprintf("type=%s,src=%s,dst=%s", m.Type, m.Source, m.Target)
	if m.ReadOnly {
		spec += ",readonly"
	}
	return spec
}

// RunArgs builds the full argument vector for a detached run.
func RunArgs(flags []string, image string) []string {
	out := make([]string, 0, len(flags)+3)
	out = append(out, "run")
	out = append(out, flags...)
	return append(out, "-d", image)
}

// publishSpec renders a port as [ip:]host:container/proto. A zero host port
// lets the daemon pick one.
func publishSpec(p runtime.Port) (string, error) {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	switch proto {
	case "tcp", "udp", "sctp":
	default:
		return "", fmt.Errorf("invalid protocol %q for port %d", proto, p.Container)
	}

	if p.Container <= 0 {
		return "", fmt.Errorf("invalid container port %d", p.Container)
	}
	port, err := nat.NewPort(proto, strconv.Itoa(p.Container))
	if err != nil {
		return "", fmt.Errorf("invalid container port %d: %w", p.Container, err)
	}

	host := ""
	if p.Host != 0 {
		if _, err := nat.ParsePort(strconv.Itoa(p.Host)); err != nil || p.Host < 0 {
			return "", fmt.Errorf("invalid host port %d", p.Host)
		}
		host = strconv.Itoa(p.Host)
	}

	if p.HostIP != "" {
		if net.ParseIP(p.HostIP) == nil {
			return "", fmt.Errorf("invalid host ip %q", p.HostIP)
		}
		return net.JoinHostPort(p.HostIP, host) + ":" + string(port), nil
	}
	if host == "" {
		return string(port), nil
	}
	return host + ":" + string(port), nil
}

// Container is a handle to a container started by Containers.
//
// The handle keeps no record of whether the container is still running; the
// daemon's responses are the only source of truth. Calls on the same handle
// are not serialized, so an Execute racing a Stop is ordered by the daemon.
type Container struct {
	ID     string
	runner runtime.CommandRunner
}

// ContainerID returns the id reported by the CLI when the container started.
func (c *Container) ContainerID() string {
	return c.ID
}

// Execute runs command inside the container and returns its raw output. The
// only interpreted case is a container that is not running, which fails with
// an ExecutionError because the handle can no longer be used.
func (c *Container) Execute(ctx context.Context, command ...string) (runtime.ExecutionResult, error) {
	args := append([]string{"exec", c.ID}, command...)

	res, err := c.runner.Run(ctx, args...)
	if err != nil {
		return res, fmt.Errorf("failed to execute in container %s: %w", c.ID, err)
	}

	if _, notRunning := NotRunningContainer(res.Err); notRunning {
		return res, &runtime.ExecutionError{ContainerID: c.ID, Stderr: res.Err}
	}

	return res, nil
}

// Stop stops the container. Stopping a container that is not running succeeds.
func (c *Container) Stop(ctx context.Context) error {
	res, err := c.runner.Run(ctx, "stop", c.ID)
	if err != nil {
		return fmt.Errorf("failed to stop container %s: %w", c.ID, err)
	}

	if res.Err != "" {
		if strings.Contains(res.Err, "is not running") {
			slog.Debug("Container already stopped", "containerID", c.ID)
			return nil
		}
		return &runtime.StopError{ContainerID: c.ID, Stderr: res.Err}
	}

	slog.Info("Container stopped", "containerID", c.ID)
	return nil
}

// Verify implementations
var (
	_ runtime.ContainerRuntime = (*Containers)(nil)
	_ runtime.ContainerHandle  = (*Container)(nil)
)
