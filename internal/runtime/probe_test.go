package runtime

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestGetDockerSocketPaths(t *testing.T) {
	paths := getDockerSocketPaths()

	if len(paths) == 0 {
		t.Error("Expected at least one socket path, got none")
	}

	// Check that all paths are non-empty
	for i, path := range paths {
		if path == "" {
			t.Errorf("Socket path at index %d is empty", i)
		}
	}
}

func TestGetDockerSocketPaths_XDGRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	paths := getDockerSocketPaths()

	found := false
	for _, path := range paths {
		if path == "/run/user/1000/docker.sock" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected XDG runtime socket in %v", paths)
	}
}

func TestExistingSockets_OnlySockets(t *testing.T) {
	for _, path := range ExistingSockets() {
		if !strings.HasSuffix(path, ".sock") {
			t.Errorf("Unexpected socket path: %s", path)
		}
	}
}

func TestCheckDaemon_ErrorFormat(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Passes either way; only the error shape is checked when no daemon runs.
	info, err := CheckDaemon(ctx)
	if err != nil {
		errorMsg := err.Error()
		if !strings.HasPrefix(errorMsg, "failed to create Docker client") && !strings.HasPrefix(errorMsg, "failed to connect to Docker daemon") {
			t.Errorf("Unexpected error format: %s", errorMsg)
		}
		return
	}

	if info.APIVersion == "" {
		t.Error("Expected an API version from a reachable daemon")
	}
}
