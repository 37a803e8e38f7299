package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionState_ShouldSkipStage(t *testing.T) {
	tests := []struct {
		last  ExecutionStage
		stage ExecutionStage
		skip  bool
	}{
		{"", StageImage, false},
		{StageImage, StageImage, true},
		{StageImage, StageStart, false},
		{StageStart, StageImage, true},
		{StageStart, StageExec, false},
		{StageExec, StageExec, true},
		{StageExec, StageStop, false},
		{StageCompleted, StageStop, true},
		{"unknown", StageImage, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.last)+"/"+string(tt.stage), func(t *testing.T) {
			state := &ExecutionState{LastSuccessfulStage: tt.last}
			assert.Equal(t, tt.skip, state.shouldSkipStage(tt.stage))
		})
	}

	var nilState *ExecutionState
	assert.False(t, nilState.shouldSkipStage(StageImage))
}

func TestExecutionState_GetNextStage(t *testing.T) {
	tests := []struct {
		last ExecutionStage
		next ExecutionStage
	}{
		{"", StageImage},
		{StageImage, StageStart},
		{StageStart, StageExec},
		{StageExec, StageStop},
		{StageStop, StageCompleted},
		{StageCompleted, StageCompleted},
	}

	for _, tt := range tests {
		state := &ExecutionState{LastSuccessfulStage: tt.last}
		assert.Equal(t, tt.next, state.getNextStage(), "after %q", tt.last)
	}
}

func TestStateFile_LoadSaveRemove(t *testing.T) {
	dir := t.TempDir()

	state, err := loadState(dir)
	require.NoError(t, err)
	assert.Nil(t, state, "missing state file means a fresh start")

	original := newState("/work/dockhand.yaml", "run-123")
	original.LastSuccessfulStage = StageStart
	original.ContainerID = "9c1d2e3f4a5b"
	original.Image = "alpine:3.14.0"
	require.NoError(t, saveState(dir, original))

	loaded, err := loadState(dir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, StateSchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, "run-123", loaded.RunID)
	assert.Equal(t, StageStart, loaded.LastSuccessfulStage)
	assert.Equal(t, "9c1d2e3f4a5b", loaded.ContainerID)
	assert.Equal(t, "/work/dockhand.yaml", loaded.ManifestPath)

	require.NoError(t, removeStateFile(dir))
	_, err = os.Stat(filepath.Join(dir, StateFileName))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, removeStateFile(dir), "removing a missing state file is not an error")
}

func TestLoadState_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), []byte("{not json"), 0644))

	_, err := loadState(dir)
	assert.ErrorContains(t, err, "failed to parse state file")
}
