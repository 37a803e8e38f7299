package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dockhand/internal/app"
	apperrors "dockhand/internal/errors"
	"dockhand/internal/ui"
)

// version is set at build time via ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "dockhand",
	Short:   "dockhand - drive containers through the docker CLI",
	Version: version,
	Long: `dockhand pulls images, starts containers with bind-mounted volumes, runs
commands inside them and stops them again, all through the docker (or podman)
command line client. Manifests describe a complete run for 'dockhand up'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	},
}

// exitCodeError carries the exit code of a command run in a container.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return "command exited with a non-zero code"
}

func newFactory() (*app.RuntimeFactory, error) {
	return app.NewRuntimeFactory(viper.GetString("binary"))
}

// consoleFor writes to the command's streams, keeping colour for a real terminal.
func consoleFor(cmd *cobra.Command) *ui.Console {
	if cmd.OutOrStdout() == os.Stdout && cmd.ErrOrStderr() == os.Stderr {
		return ui.NewConsole()
	}
	return ui.NewConsoleWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func init() {
	rootCmd.PersistentFlags().String("binary", "", "Container CLI to drive: docker, podman, a path, or 'auto' (env DOCKHAND_BINARY)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")

	viper.SetEnvPrefix("DOCKHAND")
	viper.AutomaticEnv()
	for _, name := range []string{"binary", "verbose"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			slog.Error("Failed to bind flag", "flag", name, "error", err)
		}
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		apperrors.HandleError(err)
		return 1
	}
	return 0
}
