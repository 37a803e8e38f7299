package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// ExecutionStage represents the stages of the up workflow
type ExecutionStage string

const (
	StageImage     ExecutionStage = "image"
	StageStart     ExecutionStage = "start"
	StageExec      ExecutionStage = "exec"
	StageStop      ExecutionStage = "stop"
	StageCompleted ExecutionStage = "completed"
)

var stageOrder = []ExecutionStage{StageImage, StageStart, StageExec, StageStop}

// ExecutionState represents the state of a dockhand up run
type ExecutionState struct {
	SchemaVersion       string         `json:"schema_version"`
	RunID               string         `json:"run_id"`
	LastSuccessfulStage ExecutionStage `json:"last_successful_stage"`
	ManifestPath        string         `json:"manifest_path"`
	Image               string         `json:"image,omitempty"`
	ContainerID         string         `json:"container_id,omitempty"`
	ExecStepsCompleted  int            `json:"exec_steps_completed"`
	CreatedAt           time.Time      `json:"created_at"`
	LastUpdatedAt       time.Time      `json:"last_updated_at"`
}

const (
	StateFileName      = ".dockhand.state.json"
	StateSchemaVersion = "1.0"
)

func statePath(dir string) string {
	return filepath.Join(dir, StateFileName)
}

// loadState attempts to load the execution state from the state file in dir.
// Returns nil if the file doesn't exist (fresh start).
func loadState(dir string) (*ExecutionState, error) {
	data, err := os.ReadFile(statePath(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	return &state, nil
}

// saveState persists the execution state to the state file in dir.
func saveState(dir string, state *ExecutionState) error {
	state.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	if err := os.WriteFile(statePath(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// newState creates a new execution state for a fresh run
func newState(manifestPath, runID string) *ExecutionState {
	now := time.Now()
	return &ExecutionState{
		SchemaVersion: StateSchemaVersion,
		RunID:         runID,
		ManifestPath:  manifestPath,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// shouldSkipStage reports whether stage already completed in this run.
func (s *ExecutionState) shouldSkipStage(stage ExecutionStage) bool {
	if s == nil || s.LastSuccessfulStage == "" {
		return false
	}
	if s.LastSuccessfulStage == StageCompleted {
		return true
	}

	last := slices.Index(stageOrder, s.LastSuccessfulStage)
	current := slices.Index(stageOrder, stage)
	if last < 0 || current < 0 {
		return false
	}
	return current <= last
}

// getNextStage returns the next stage to execute based on the current state
func (s *ExecutionState) getNextStage() ExecutionStage {
	if s == nil || s.LastSuccessfulStage == "" {
		return stageOrder[0]
	}
	if s.LastSuccessfulStage == StageCompleted {
		return StageCompleted
	}

	i := slices.Index(stageOrder, s.LastSuccessfulStage)
	if i < 0 {
		return stageOrder[0]
	}
	if i+1 >= len(stageOrder) {
		return StageCompleted
	}
	return stageOrder[i+1]
}

// removeStateFile removes the state file from dir
func removeStateFile(dir string) error {
	if err := os.Remove(statePath(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
