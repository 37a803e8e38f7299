package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/spf13/cobra"

	apperrors "dockhand/internal/errors"
	"dockhand/internal/parser"
	"dockhand/pkg/runtime"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a detached container and print its id",
	Long: `Start ensures the image is present and runs a detached container. The
container is described either by a manifest (--file) or by flags:

  dockhand start --image alpine:3.14.0 --run-opt=-it -V ./data:/data -p 8080:80`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		buildArgs, err := buildArgsFromFlags(cmd)
		if err != nil {
			return err
		}

		factory, err := newFactory()
		if err != nil {
			return err
		}
		handle, err := factory.Containers().Start(cmd.Context(), buildArgs)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), handle.ContainerID())
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec CONTAINER [--] COMMAND [ARG...]",
	Short: "Run a command in a running container",
	Long: `Exec runs a command in a running container and prints its output. dockhand
exits with the command's exit code.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := execCommand(args[1:])
		if len(command) == 0 {
			err := fmt.Errorf("no command given after --")
			return apperrors.NewConfigError("Invalid exec arguments", err.Error(), "Use 'dockhand exec CONTAINER -- COMMAND [ARG...]'", err)
		}

		factory, err := newFactory()
		if err != nil {
			return err
		}
		res, err := factory.Containers().Attach(args[0]).Execute(cmd.Context(), command...)
		if err != nil {
			return err
		}
		consoleFor(cmd).PrintOutput(res.Out, res.Err)
		if res.ExitCode != 0 {
			return &exitCodeError{code: res.ExitCode}
		}
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop CONTAINER",
	Short: "Stop a container; stopping a stopped container succeeds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := newFactory()
		if err != nil {
			return err
		}
		if err := factory.Containers().Attach(args[0]).Stop(cmd.Context()); err != nil {
			return err
		}
		consoleFor(cmd).PrintSuccess("Stopped " + args[0])
		return nil
	},
}

// execCommand drops the separator that pflag keeps once interspersed flags
// are off and the container id has been seen.
func execCommand(args []string) []string {
	if len(args) > 0 && args[0] == "--" {
		return args[1:]
	}
	return args
}

// buildArgsFromFlags reads the start command's manifest or its image flags.
func buildArgsFromFlags(cmd *cobra.Command) (runtime.BuildArgs, error) {
	file, _ := cmd.Flags().GetString("file")
	image, _ := cmd.Flags().GetString("image")

	if file != "" {
		if image != "" {
			err := fmt.Errorf("--file and --image are mutually exclusive")
			return runtime.BuildArgs{}, apperrors.NewConfigError("Invalid start flags", err.Error(), "Pass either a manifest or an image", err)
		}
		m, err := parser.Parse(file)
		if err != nil {
			return runtime.BuildArgs{}, apperrors.NewParseError("Failed to load manifest "+file, err.Error(), "Fix the reported fields", err)
		}
		absPath, err := filepath.Abs(file)
		if err != nil {
			return runtime.BuildArgs{}, err
		}
		return m.Spec.ToBuildArgs(filepath.Dir(absPath)), nil
	}

	if image == "" {
		err := fmt.Errorf("no image given")
		return runtime.BuildArgs{}, apperrors.NewConfigError("Invalid start flags", err.Error(), "Pass --image IMAGE or --file MANIFEST", err)
	}

	runOpts, _ := cmd.Flags().GetStringArray("run-opt")
	volumes, _ := cmd.Flags().GetStringArray("volume")
	ports, _ := cmd.Flags().GetStringArray("publish")
	entryPoint, _ := cmd.Flags().GetString("entrypoint")

	args := runtime.BuildArgs{
		Image:      image,
		RunOpts:    runOpts,
		EntryPoint: entryPoint,
	}

	for _, raw := range volumes {
		v, err := parseVolume(raw)
		if err != nil {
			return runtime.BuildArgs{}, apperrors.NewConfigError("Invalid --volume "+raw, err.Error(), "Use SOURCE:TARGET with an absolute TARGET", err)
		}
		args.Volumes = append(args.Volumes, v)
	}

	for _, raw := range ports {
		p, err := parsePorts(raw)
		if err != nil {
			return runtime.BuildArgs{}, apperrors.NewConfigError("Invalid --publish "+raw, err.Error(), "Use [[IP:]HOST:]CONTAINER[/PROTOCOL]", err)
		}
		args.Ports = append(args.Ports, p...)
	}

	return args, nil
}

// parseVolume splits SOURCE:TARGET at the last colon and makes SOURCE absolute.
func parseVolume(raw string) (runtime.Volume, error) {
	i := strings.LastIndex(raw, ":")
	if i <= 0 || i == len(raw)-1 {
		return runtime.Volume{}, fmt.Errorf("expected SOURCE:TARGET")
	}

	source, target := raw[:i], raw[i+1:]
	if !strings.HasPrefix(target, "/") {
		return runtime.Volume{}, fmt.Errorf("target %q must be an absolute container path", target)
	}

	source, err := filepath.Abs(source)
	if err != nil {
		return runtime.Volume{}, err
	}
	return runtime.Volume{Source: source, Target: target}, nil
}

// parsePorts accepts the publish syntax understood by nat, including ranges.
func parsePorts(raw string) ([]runtime.Port, error) {
	mappings, err := nat.ParsePortSpec(raw)
	if err != nil {
		return nil, err
	}

	ports := make([]runtime.Port, 0, len(mappings))
	for _, m := range mappings {
		host := 0
		if m.Binding.HostPort != "" {
			host, err = strconv.Atoi(m.Binding.HostPort)
			if err != nil {
				return nil, fmt.Errorf("invalid host port %q", m.Binding.HostPort)
			}
		}
		ports = append(ports, runtime.Port{
			HostIP:    m.Binding.HostIP,
			Host:      host,
			Container: m.Port.Int(),
			Protocol:  m.Port.Proto(),
		})
	}
	return ports, nil
}

func init() {
	startCmd.Flags().StringP("file", "f", "", "Path to a manifest describing the container")
	startCmd.Flags().String("image", "", "Image to run")
	startCmd.Flags().StringArray("run-opt", nil, "Extra option passed to run before the mounts (repeatable)")
	startCmd.Flags().StringArrayP("volume", "V", nil, "Bind mount SOURCE:TARGET (repeatable)")
	startCmd.Flags().StringArrayP("publish", "p", nil, "Publish [[IP:]HOST:]CONTAINER[/PROTOCOL] (repeatable)")
	startCmd.Flags().String("entrypoint", "", "Override the image entrypoint")

	execCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(startCmd, execCmd, stopCmd)
}
