package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dockhand/internal/app"
	apperrors "dockhand/internal/errors"
	"dockhand/internal/parser"
	probe "dockhand/internal/runtime"
	"dockhand/pkg/docker"
	"dockhand/pkg/manifest"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run a manifest: ensure the image, start, exec each step, stop",
	Long: `Up executes the complete manifest workflow. Progress is saved to
` + app.StateFileName + ` after every stage; if a stage fails the container is left
running and re-running 'dockhand up' resumes where it stopped. 'dockhand down'
abandons the run and stops its container.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		path, err := parser.Locate(file, ".")
		if err != nil {
			return apperrors.NewManifestError(
				"Failed to locate manifest file",
				err.Error(),
				"Create one with 'dockhand init' or pass --file",
				err,
			)
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		keep, _ := cmd.Flags().GetBool("keep")
		retainState, _ := cmd.Flags().GetBool("retain-state")

		factory, err := newFactory()
		if err != nil {
			return err
		}
		return app.New(factory, consoleFor(cmd), ".").Up(cmd.Context(), path, app.UpOptions{
			DryRun:      dryRun,
			Keep:        keep,
			RetainState: retainState,
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the container of the run recorded in this directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := newFactory()
		if err != nil {
			return err
		}
		return app.New(factory, consoleFor(cmd), ".").Down(cmd.Context())
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter " + parser.DefaultFileNames[0],
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		image, _ := cmd.Flags().GetString("image")
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			if wd, err := os.Getwd(); err == nil {
				name = filepath.Base(wd)
			}
		}

		if err := parser.Write(file, manifest.Template(name, image)); err != nil {
			return apperrors.NewFileSystemError("Failed to write manifest", err.Error(), "Pass --file to choose another path", err)
		}
		consoleFor(cmd).PrintSuccess("Wrote " + file)
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that a container CLI and daemon are usable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		console := consoleFor(cmd)

		binary := viper.GetString("binary")
		if binary == "" || binary == app.AutoBinary {
			detected, err := docker.DetectBinary()
			if err != nil {
				return apperrors.NewDaemonError("No container CLI found", err.Error(), "Install docker or podman", err)
			}
			binary = detected
		}
		console.PrintInfo("CLI: " + binary)

		info, err := app.ValidatePrerequisites(cmd.Context(), binary)
		if err != nil {
			return err
		}
		console.PrintInfo(fmt.Sprintf("Daemon: %s (API %s, %s)", info.Host, info.APIVersion, info.OSType))
		if sockets := probe.ExistingSockets(); len(sockets) > 0 {
			console.PrintInfo("Sockets: " + strings.Join(sockets, ", "))
		}
		console.PrintSuccess("✅ Ready")
		slog.Debug("doctor finished", "binary", binary, "host", info.Host)
		return nil
	},
}

func init() {
	upCmd.Flags().StringP("file", "f", "", "Path to the manifest (default "+strings.Join(parser.DefaultFileNames, " or ")+")")
	upCmd.Flags().Bool("dry-run", false, "Print the CLI commands without running them")
	upCmd.Flags().Bool("keep", false, "Leave the container running after the exec steps")
	upCmd.Flags().Bool("retain-state", false, "Keep the state file after successful completion for auditing purposes")
	rootCmd.AddCommand(upCmd, downCmd)

	initCmd.Flags().StringP("file", "f", parser.DefaultFileNames[0], "Path of the manifest to write")
	initCmd.Flags().String("image", "alpine:3.14.0", "Image for the template")
	initCmd.Flags().String("name", "", "Run name (default: current directory name)")
	rootCmd.AddCommand(initCmd, doctorCmd)
}
