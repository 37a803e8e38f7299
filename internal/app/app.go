package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "dockhand/internal/errors"
	"dockhand/internal/parser"
	probe "dockhand/internal/runtime"
	"dockhand/internal/ui"
	"dockhand/pkg/manifest"
	"dockhand/pkg/runtime"
)

// UpOptions controls a single up run.
type UpOptions struct {
	// DryRun prints the CLI commands instead of running them.
	DryRun bool
	// Keep leaves the container running after the exec steps.
	Keep bool
	// RetainState keeps the state file after a successful run.
	RetainState bool
}

// App runs manifests against one container CLI. Session state is kept in stateDir.
type App struct {
	factory  *RuntimeFactory
	console  *ui.Console
	stateDir string
}

func New(factory *RuntimeFactory, console *ui.Console, stateDir string) *App {
	if stateDir == "" {
		stateDir = "."
	}
	return &App{
		factory:  factory,
		console:  console,
		stateDir: stateDir,
	}
}

// session carries what the stages of one run share.
type session struct {
	manifest *manifest.Manifest
	args     runtime.BuildArgs
	factory  *RuntimeFactory
	console  *ui.Console
	dryRun   bool
	handle   runtime.ContainerHandle
}

// container returns the running handle, reattaching to the recorded id on resume.
func (s *session) container(state *ExecutionState) runtime.ContainerHandle {
	if s.handle == nil && state.ContainerID != "" {
		s.handle = s.factory.Containers().Attach(state.ContainerID)
	}
	return s.handle
}

func (s *session) containerRef(state *ExecutionState) string {
	if state.ContainerID != "" {
		return state.ContainerID
	}
	return "<container-id>"
}

func (s *session) printCommand(args ...string) {
	s.console.PrintInfo("🔍 DRY RUN: " + commandLine(s.factory.Binary(), args...))
}

func commandLine(binary string, args ...string) string {
	return strings.Join(append([]string{binary}, args...), " ")
}

func buildStages(s *session, keep bool) []Stage {
	stages := []Stage{
		NewImageStage(s),
		NewStartStage(s),
		NewExecStage(s),
	}
	if !keep {
		stages = append(stages, NewStopStage(s))
	}
	return stages
}

// Up pulls the image if needed, starts a container, runs the exec steps in it
// and stops it. Progress is recorded in the state file after every stage so an
// interrupted run resumes where it failed.
func (a *App) Up(ctx context.Context, manifestPath string, opts UpOptions) error {
	slog.Info("Starting dockhand up workflow", "manifestPath", manifestPath, "dryRun", opts.DryRun, "keep", opts.Keep)

	absPath, err := filepath.Abs(manifestPath)
	if err != nil {
		return apperrors.NewFileSystemError("Failed to resolve manifest path", err.Error(), "Check the --file argument", err)
	}

	m, err := parser.Parse(absPath)
	if err != nil {
		return apperrors.NewParseError(
			"Failed to load manifest "+manifestPath,
			err.Error(),
			"Run 'dockhand init' to create a manifest, or fix the reported fields",
			err,
		)
	}
	slog.Info("Manifest parsed successfully", "name", m.Metadata.Name, "image", m.Spec.Image)

	state, err := loadState(a.stateDir)
	if err != nil {
		return apperrors.NewFileSystemError("Failed to load execution state", err.Error(), "Remove "+StateFileName+" to start over", err)
	}

	if state == nil {
		runID := uuid.New().String()
		state = newState(absPath, runID)
		slog.Info("Starting new dockhand run", "runId", runID, "manifestPath", absPath)
	} else {
		if state.ManifestPath != absPath {
			err := fmt.Errorf("state file belongs to %s", state.ManifestPath)
			return apperrors.NewConfigError(
				"Another run is active in this directory",
				err.Error(),
				"Run 'dockhand down' to finish it first",
				err,
			)
		}
		a.console.PrintWarning(fmt.Sprintf("State file found. Resuming from stage: %s", state.getNextStage()))
		slog.Info("Resuming dockhand run", "runId", state.RunID, "nextStage", state.getNextStage(), "lastStage", state.LastSuccessfulStage)
	}

	if opts.DryRun {
		a.console.PrintWarning("🔍 DRY RUN MODE - no containers will be started")
	}

	s := &session{
		manifest: m,
		args:     m.Spec.ToBuildArgs(filepath.Dir(absPath)),
		factory:  a.factory,
		console:  a.console,
		dryRun:   opts.DryRun,
	}

	for _, stage := range buildStages(s, opts.Keep) {
		name := ExecutionStage(stage.Name())
		if state.shouldSkipStage(name) {
			a.console.PrintInfo(fmt.Sprintf("⏭️  Stage %s (skipped - already completed)", name))
			continue
		}

		a.console.PrintInfo(fmt.Sprintf("🚧 Stage %s", name))
		if err := stage.Execute(ctx, state); err != nil {
			if !opts.DryRun {
				if saveErr := saveState(a.stateDir, state); saveErr != nil {
					slog.Warn("Failed to save state after stage failure", "stage", name, "error", saveErr)
				}
			}
			return fmt.Errorf("stage %s failed: %w", name, err)
		}

		state.LastSuccessfulStage = name
		if !opts.DryRun {
			if err := saveState(a.stateDir, state); err != nil {
				return apperrors.NewFileSystemError("Failed to save execution state", err.Error(), "Check that the current directory is writable", err)
			}
		}
	}

	if opts.DryRun {
		a.console.PrintSuccess("🎉 DRY RUN COMPLETED - no containers were started")
		return nil
	}

	if opts.Keep {
		a.console.PrintSuccess(fmt.Sprintf("✨ Container %s left running; run 'dockhand down' to stop it", state.ContainerID))
		slog.Info("dockhand up completed, container kept", "runId", state.RunID, "containerID", state.ContainerID)
		return nil
	}

	state.LastSuccessfulStage = StageCompleted
	if opts.RetainState {
		if err := saveState(a.stateDir, state); err != nil {
			slog.Warn("Failed to save final state", "error", err)
		} else {
			slog.Info("State file retained for auditing", "file", StateFileName)
		}
	} else if err := removeStateFile(a.stateDir); err != nil {
		slog.Warn("Failed to clean up state file", "error", err)
	}

	a.console.PrintSuccess(fmt.Sprintf("🎉 %s completed successfully", m.Metadata.Name))
	slog.Info("dockhand up workflow completed successfully", "runId", state.RunID, "name", m.Metadata.Name)
	return nil
}

// Down stops the container recorded in the state file and removes the file.
func (a *App) Down(ctx context.Context) error {
	state, err := loadState(a.stateDir)
	if err != nil {
		return apperrors.NewFileSystemError("Failed to load execution state", err.Error(), "Remove "+StateFileName+" to start over", err)
	}
	if state == nil {
		a.console.PrintInfo("No active run in this directory")
		return nil
	}

	if state.ContainerID != "" && state.LastSuccessfulStage != StageCompleted {
		container := a.factory.Containers().Attach(state.ContainerID)
		if err := container.Stop(ctx); err != nil {
			return err
		}
		a.console.PrintSuccess("✅ Stopped container " + state.ContainerID)
	}

	if err := removeStateFile(a.stateDir); err != nil {
		return apperrors.NewFileSystemError("Failed to remove state file", err.Error(), "Remove "+StateFileName+" by hand", err)
	}
	slog.Info("dockhand down completed", "runId", state.RunID, "containerID", state.ContainerID)
	return nil
}

// ValidatePrerequisites checks that binary is on PATH and that a daemon answers.
func ValidatePrerequisites(ctx context.Context, binary string) (probe.DaemonInfo, error) {
	slog.Info("Validating dockhand prerequisites", "binary", binary)

	if _, err := exec.LookPath(binary); err != nil {
		return probe.DaemonInfo{}, apperrors.NewDaemonError(
			"Container CLI '"+binary+"' not found",
			err.Error(),
			"Install docker, or set --binary / DOCKHAND_BINARY to another CLI such as podman",
			err,
		)
	}

	info, err := probe.CheckDaemon(ctx)
	if err != nil {
		suggestion := "Start the Docker daemon or set DOCKER_HOST"
		if sockets := probe.ExistingSockets(); len(sockets) > 0 {
			suggestion += "; sockets found: " + strings.Join(sockets, ", ")
		}
		return probe.DaemonInfo{}, apperrors.NewDaemonError("Docker daemon is not reachable", err.Error(), suggestion, err)
	}

	slog.Info("All prerequisites validated successfully", "host", info.Host, "apiVersion", info.APIVersion)
	return info, nil
}
