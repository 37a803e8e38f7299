package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "dockhand/internal/errors"
	"dockhand/internal/ui"
	"dockhand/pkg/runtime"
)

const manifestTemplate = `apiVersion: v1
kind: Container
metadata:
  name: smoke
spec:
  image: alpine:3.14.0
  runOpts: ["-it"]
  volumes:
    - source: ./temp
      target: /usr/local/tmp
  exec:
    - ["echo", "bla"]
    - ["sh", "-c", "ls /usr/local/tmp"]
%s`

type testEnv struct {
	app          *App
	runner       *mockRunner
	output       *bytes.Buffer
	dir          string
	manifestPath string
}

func newTestEnv(t *testing.T, extraSpec string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "dockhand.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(fmt.Sprintf(manifestTemplate, extraSpec)), 0644))

	runner := &mockRunner{}
	output := &bytes.Buffer{}
	factory := NewRuntimeFactoryWithRunner("docker", runner)

	return &testEnv{
		app:          New(factory, ui.NewConsoleWithWriters(output, output), dir),
		runner:       runner,
		output:       output,
		dir:          dir,
		manifestPath: manifestPath,
	}
}

func (e *testEnv) runArgs() []string {
	return []string{"run", "-it", "--mount", "type=bind,src=" + filepath.Join(e.dir, "temp") + ",dst=/usr/local/tmp", "-d", testImage}
}

func (e *testEnv) expectStart() {
	e.runner.expect(runtime.ExecutionResult{Out: inspectOutput}, "image", "inspect", testImage)
	e.runner.expect(runtime.ExecutionResult{Out: testContainerID + "\n"}, e.runArgs()...)
}

func (e *testEnv) expectStop() {
	e.runner.expect(runtime.ExecutionResult{Out: testContainerID + "\n"}, "stop", testContainerID)
}

func (e *testEnv) writeState(t *testing.T, state *ExecutionState) {
	t.Helper()
	require.NoError(t, saveState(e.dir, state))
}

func (e *testEnv) readState(t *testing.T) *ExecutionState {
	t.Helper()
	state, err := loadState(e.dir)
	require.NoError(t, err)
	return state
}

func TestUp_FullRun(t *testing.T) {
	env := newTestEnv(t, "")
	env.expectStart()
	env.runner.expect(runtime.ExecutionResult{Out: "bla\n"}, "exec", testContainerID, "echo", "bla")
	env.runner.expect(runtime.ExecutionResult{Out: ""}, "exec", testContainerID, "sh", "-c", "ls /usr/local/tmp")
	env.expectStop()

	err := env.app.Up(context.Background(), env.manifestPath, UpOptions{})
	require.NoError(t, err)

	env.runner.AssertExpectations(t)
	assert.Contains(t, env.output.String(), "bla\n")
	assert.Contains(t, env.output.String(), "Stopped container "+testContainerID)
	assert.Nil(t, env.readState(t), "state file should be removed after a successful run")
}

func TestUp_DryRun(t *testing.T) {
	env := newTestEnv(t, "")

	err := env.app.Up(context.Background(), env.manifestPath, UpOptions{DryRun: true})
	require.NoError(t, err)

	env.runner.AssertNotCalled(t, "Run", mock.Anything)
	out := env.output.String()
	assert.Contains(t, out, "docker image inspect alpine:3.14.0")
	assert.Contains(t, out, "docker run -it --mount type=bind,src="+filepath.Join(env.dir, "temp")+",dst=/usr/local/tmp -d alpine:3.14.0")
	assert.Contains(t, out, "docker exec <container-id> echo bla")
	assert.Contains(t, out, "docker stop <container-id>")
	assert.Nil(t, env.readState(t), "dry run must not write state")
}

func TestUp_StepWritingStderrFails(t *testing.T) {
	env := newTestEnv(t, "")
	env.expectStart()
	env.runner.expect(runtime.ExecutionResult{Out: "bla\n"}, "exec", testContainerID, "echo", "bla")
	env.runner.expect(runtime.ExecutionResult{Err: "ls: /usr/local/tmp: No such file or directory\n"}, "exec", testContainerID, "sh", "-c", "ls /usr/local/tmp")

	err := env.app.Up(context.Background(), env.manifestPath, UpOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepFailed))

	var dockhandErr *apperrors.DockhandError
	require.True(t, errors.As(err, &dockhandErr))
	assert.Equal(t, apperrors.ErrContainerFailed, dockhandErr.Type)
	assert.Contains(t, dockhandErr.Context, "Exec step 2 failed")

	env.runner.AssertNotCalled(t, "Run", []string{"stop", testContainerID})

	state := env.readState(t)
	require.NotNil(t, state, "state must survive a failed run")
	assert.Equal(t, StageStart, state.LastSuccessfulStage)
	assert.Equal(t, testContainerID, state.ContainerID)
	assert.Equal(t, 1, state.ExecStepsCompleted)
}

func TestUp_AllowStderr(t *testing.T) {
	env := newTestEnv(t, "  allowStderr: true\n")
	env.expectStart()
	env.runner.expect(runtime.ExecutionResult{Out: "bla\n"}, "exec", testContainerID, "echo", "bla")
	env.runner.expect(runtime.ExecutionResult{Err: "warning: empty dir\n"}, "exec", testContainerID, "sh", "-c", "ls /usr/local/tmp")
	env.expectStop()

	require.NoError(t, env.app.Up(context.Background(), env.manifestPath, UpOptions{}))
	env.runner.AssertExpectations(t)
}

func TestUp_NonZeroExitFailsEvenWithAllowStderr(t *testing.T) {
	env := newTestEnv(t, "  allowStderr: true\n")
	env.expectStart()
	env.runner.expect(runtime.ExecutionResult{Out: "bla\n", ExitCode: 2}, "exec", testContainerID, "echo", "bla")

	err := env.app.Up(context.Background(), env.manifestPath, UpOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepFailed))
	assert.Contains(t, err.Error(), "exited with code 2")
}

func TestUp_StartFailureKeepsImageProgress(t *testing.T) {
	env := newTestEnv(t, "")
	env.runner.expect(runtime.ExecutionResult{Out: inspectOutput}, "image", "inspect", testImage)
	env.runner.expect(runtime.ExecutionResult{Err: "docker: Error response from daemon: invalid mount config for type \"bind\": bind source path does not exist\n"}, env.runArgs()...)

	err := env.app.Up(context.Background(), env.manifestPath, UpOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, runtime.ErrStartFailed))

	state := env.readState(t)
	require.NotNil(t, state)
	assert.Equal(t, StageImage, state.LastSuccessfulStage)
	assert.Empty(t, state.ContainerID)
}

func TestUp_ResumesFromRecordedStep(t *testing.T) {
	env := newTestEnv(t, "")
	state := newState(env.manifestPath, "resume-run")
	state.LastSuccessfulStage = StageStart
	state.Image = testImage
	state.ContainerID = testContainerID
	state.ExecStepsCompleted = 1
	env.writeState(t, state)

	env.runner.expect(runtime.ExecutionResult{}, "exec", testContainerID, "sh", "-c", "ls /usr/local/tmp")
	env.expectStop()

	require.NoError(t, env.app.Up(context.Background(), env.manifestPath, UpOptions{}))

	env.runner.AssertExpectations(t)
	env.runner.AssertNumberOfCalls(t, "Run", 2)
	assert.Contains(t, env.output.String(), "Resuming from stage: exec")
	assert.Nil(t, env.readState(t))
}

func TestUp_Keep(t *testing.T) {
	env := newTestEnv(t, "")
	env.expectStart()
	env.runner.expect(runtime.ExecutionResult{Out: "bla\n"}, "exec", testContainerID, "echo", "bla")
	env.runner.expect(runtime.ExecutionResult{}, "exec", testContainerID, "sh", "-c", "ls /usr/local/tmp")

	require.NoError(t, env.app.Up(context.Background(), env.manifestPath, UpOptions{Keep: true}))

	env.runner.AssertNotCalled(t, "Run", []string{"stop", testContainerID})
	state := env.readState(t)
	require.NotNil(t, state, "kept containers stay recorded for 'down'")
	assert.Equal(t, StageExec, state.LastSuccessfulStage)
	assert.Equal(t, testContainerID, state.ContainerID)
	assert.Contains(t, env.output.String(), "left running")
}

func TestUp_RetainState(t *testing.T) {
	env := newTestEnv(t, "")
	env.expectStart()
	env.runner.expect(runtime.ExecutionResult{Out: "bla\n"}, "exec", testContainerID, "echo", "bla")
	env.runner.expect(runtime.ExecutionResult{}, "exec", testContainerID, "sh", "-c", "ls /usr/local/tmp")
	env.expectStop()

	require.NoError(t, env.app.Up(context.Background(), env.manifestPath, UpOptions{RetainState: true}))

	state := env.readState(t)
	require.NotNil(t, state)
	assert.Equal(t, StageCompleted, state.LastSuccessfulStage)
	assert.NotEmpty(t, state.RunID)
	assert.Equal(t, env.manifestPath, state.ManifestPath)
}

func TestUp_RefusesWhenAnotherRunIsActive(t *testing.T) {
	env := newTestEnv(t, "")
	env.writeState(t, newState(filepath.Join(env.dir, "other.yaml"), "other-run"))

	err := env.app.Up(context.Background(), env.manifestPath, UpOptions{})
	require.Error(t, err)

	var dockhandErr *apperrors.DockhandError
	require.True(t, errors.As(err, &dockhandErr))
	assert.Equal(t, apperrors.ErrConfigInvalid, dockhandErr.Type)
	env.runner.AssertNotCalled(t, "Run", mock.Anything)
}

func TestUp_InvalidManifest(t *testing.T) {
	env := newTestEnv(t, "")

	err := env.app.Up(context.Background(), filepath.Join(env.dir, "missing.yaml"), UpOptions{})
	require.Error(t, err)

	var dockhandErr *apperrors.DockhandError
	require.True(t, errors.As(err, &dockhandErr))
	assert.Equal(t, apperrors.ErrManifestParseFailed, dockhandErr.Type)
	assert.Contains(t, dockhandErr.Cause, "manifest file not found")
}

func TestDown(t *testing.T) {
	t.Run("stops recorded container", func(t *testing.T) {
		env := newTestEnv(t, "")
		state := newState(env.manifestPath, "down-run")
		state.LastSuccessfulStage = StageExec
		state.ContainerID = testContainerID
		env.writeState(t, state)
		env.expectStop()

		require.NoError(t, env.app.Down(context.Background()))
		env.runner.AssertExpectations(t)
		assert.Nil(t, env.readState(t))
	})

	t.Run("container already stopped", func(t *testing.T) {
		env := newTestEnv(t, "")
		state := newState(env.manifestPath, "down-run")
		state.LastSuccessfulStage = StageExec
		state.ContainerID = testContainerID
		env.writeState(t, state)
		env.runner.expect(runtime.ExecutionResult{Err: "Error response from daemon: Container " + testContainerID + " is not running\n"}, "stop", testContainerID)

		require.NoError(t, env.app.Down(context.Background()))
		assert.Nil(t, env.readState(t))
	})

	t.Run("stop failure keeps state", func(t *testing.T) {
		env := newTestEnv(t, "")
		state := newState(env.manifestPath, "down-run")
		state.LastSuccessfulStage = StageStart
		state.ContainerID = testContainerID
		env.writeState(t, state)
		env.runner.expect(runtime.ExecutionResult{Err: "Error response from daemon: No such container: " + testContainerID + "\n"}, "stop", testContainerID)

		err := env.app.Down(context.Background())
		assert.True(t, errors.Is(err, runtime.ErrStopFailed))
		assert.NotNil(t, env.readState(t))
	})

	t.Run("no active run", func(t *testing.T) {
		env := newTestEnv(t, "")

		require.NoError(t, env.app.Down(context.Background()))
		env.runner.AssertNotCalled(t, "Run", mock.Anything)
		assert.Contains(t, env.output.String(), "No active run")
	})

	t.Run("completed run only removes state", func(t *testing.T) {
		env := newTestEnv(t, "")
		state := newState(env.manifestPath, "done-run")
		state.LastSuccessfulStage = StageCompleted
		state.ContainerID = testContainerID
		state.CreatedAt = time.Now().Add(-time.Hour)
		env.writeState(t, state)

		require.NoError(t, env.app.Down(context.Background()))
		env.runner.AssertNotCalled(t, "Run", mock.Anything)
		assert.Nil(t, env.readState(t))
	})
}

func TestBuildStages(t *testing.T) {
	s := &session{}

	names := func(stages []Stage) []string {
		var out []string
		for _, stage := range stages {
			out = append(out, stage.Name())
		}
		return out
	}

	assert.Equal(t, []string{"image", "start", "exec", "stop"}, names(buildStages(s, false)))
	assert.Equal(t, []string{"image", "start", "exec"}, names(buildStages(s, true)))
}
