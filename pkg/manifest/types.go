package manifest

import (
	"path/filepath"

	"dockhand/pkg/runtime"
)

// Kind is the only manifest kind understood by dockhand.
const Kind = "Container"

// Manifest is the root object describing one container run.
// It's populated by parsing a dockhand.yaml file.
type Manifest struct {
	APIVersion string   `yaml:"apiVersion" validate:"required"`
	Kind       string   `yaml:"kind" validate:"required,eq=Container"`
	Metadata   Metadata `yaml:"metadata" validate:"required"`
	Spec       Spec     `yaml:"spec" validate:"required"`
}

// Metadata contains descriptive information about the run.
type Metadata struct {
	Name        string            `yaml:"name" validate:"required"`
	Description string            `yaml:"description,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

// Spec describes the container and the commands to execute in it.
type Spec struct {
	Image      string     `yaml:"image" validate:"required"`
	RunOpts    []string   `yaml:"runOpts,omitempty"`
	Volumes    []Volume   `yaml:"volumes,omitempty" validate:"dive"`
	Ports      []Port     `yaml:"ports,omitempty" validate:"dive"`
	EntryPoint string     `yaml:"entryPoint,omitempty"`
	Exec       [][]string `yaml:"exec,omitempty" validate:"dive,min=1"`
	// AllowStderr keeps exec steps from failing when they write to stderr.
	AllowStderr bool `yaml:"allowStderr,omitempty"`
}

// Volume is a bind mount. Relative sources resolve against the manifest's directory.
type Volume struct {
	Source string `yaml:"source" validate:"required"`
	Target   string `yaml:"target" validate:"required,startswith=/"`
	ReadOnly bool   `yaml:"readOnly,omitempty"`
}

// Port publishes a container port. A zero host port lets the daemon choose.
type Port struct {
	HostIP    string `yaml:"hostIP,omitempty" validate:"omitempty,ip"`
	Host      int    `yaml:"host,omitempty" validate:"min=0,max=65535"`
	Container int    `yaml:"container" validate:"required,min=1,max=65535"`
	Protocol  string `yaml:"protocol,omitempty" validate:"omitempty,oneof=tcp udp sctp"`
}

// ToBuildArgs converts the spec into runtime arguments, resolving relative
// volume sources against baseDir.
func (s Spec) ToBuildArgs(baseDir string) runtime.BuildArgs {
	args := runtime.BuildArgs{
		Image:      s.Image,
		EntryPoint: s.EntryPoint,
		RunOpts:    append([]string(nil), s.RunOpts...),
	}

	for _, v := range s.Volumes {
		source := v.Source
		if !filepath.IsAbs(source) && baseDir != "" {
			source = filepath.Join(baseDir, source)
		}
		args.Volumes = append(args.Volumes, runtime.Volume{Source: source, Target: v.Target, ReadOnly: v.ReadOnly})
	}

	for _, p := range s.Ports {
		args.Ports = append(args.Ports, runtime.Port{HostIP: p.HostIP, Host: p.Host, Container: p.Container, Protocol: p.Protocol})
	}

	return args
}

// Template returns a starter manifest.
func Template(name, image string) *Manifest {
	return &Manifest{
		APIVersion: "v1",
		Kind:       Kind,
		Metadata: Metadata{
			Name:        name,
			Description: "Container for integration tests",
		},
		Spec: Spec{
			Image:   image,
			RunOpts: []string{"-it"},
			Volumes: []Volume{{Source: "./temp", Target: "/usr/local/tmp"}},
			Exec:    [][]string{{"echo", "ready"}},
		},
	}
}
