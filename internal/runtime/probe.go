package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docker/docker/client"
)

// DaemonInfo describes the daemon answering a ping.
type DaemonInfo struct {
	APIVersion string
	OSType     string
	Host       string
}

// Probe checks that a Docker daemon is reachable through the Engine API.
// Lifecycle operations never go through the API; they use the CLI.
type Probe struct {
	client *client.Client
}

// NewProbe creates a Probe using client.FromEnv, so DOCKER_HOST and friends apply.
func NewProbe() (*Probe, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &Probe{
		client: dockerClient,
	}, nil
}

// Ping asks the daemon for its version information.
func (p *Probe) Ping(ctx context.Context) (DaemonInfo, error) {
	ping, err := p.client.Ping(ctx)
	if err != nil {
		return DaemonInfo{}, fmt.Errorf("failed to connect to Docker daemon: %w", err)
	}

	info := DaemonInfo{
		APIVersion: ping.APIVersion,
		OSType:     ping.OSType,
		Host:       p.client.DaemonHost(),
	}
	slog.Debug("Docker daemon reachable", "host", info.Host, "apiVersion", info.APIVersion, "os", info.OSType)
	return info, nil
}

// Close releases the underlying HTTP transport.
func (p *Probe) Close() error {
	return p.client.Close()
}

// CheckDaemon creates a probe, pings once and closes it.
func CheckDaemon(ctx context.Context) (DaemonInfo, error) {
	probe, err := NewProbe()
	if err != nil {
		return DaemonInfo{}, err
	}
	defer probe.Close()

	return probe.Ping(ctx)
}

// getDockerSocketPaths lists the unix sockets a local daemon usually listens on.
func getDockerSocketPaths() []string {
	paths := []string{"/var/run/docker.sock"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".docker", "run", "docker.sock"),
			filepath.Join(home, ".docker", "desktop", "docker.sock"),
		)
	}

	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		paths = append(paths,
			filepath.Join(xdg, "docker.sock"),
			filepath.Join(xdg, "podman", "podman.sock"),
		)
	}

	return paths
}

// ExistingSockets returns the known socket paths present on this host.
func ExistingSockets() []string {
	var found []string
	for _, path := range getDockerSocketPaths() {
		if info, err := os.Stat(path); err == nil && info.Mode()&os.ModeSocket != 0 {
			found = append(found, path)
		}
	}
	return found
}
