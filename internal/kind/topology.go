// Package kind wraps the kind CLI for cluster lifecycle operations and
// reads the declarative cluster topology from a kind configuration file.
package kind

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Node roles as declared in a kind cluster configuration.
const (
	RoleControlPlane = "control-plane"
	RoleWorker       = "worker"
)

// ErrInvalidTopology marks a topology file that is missing, unreadable, or
// structurally invalid.
var ErrInvalidTopology = errors.New("invalid cluster topology")

// Topology is the declared node shape of the cluster. It is recomputed from
// the configuration file on every load; the file itself is the source of
// truth.
type Topology struct {
	Total         int
	ControlPlanes int
	Workers       int
}

// clusterConfig is the subset of the kind cluster configuration the lab
// cares about. Node contents beyond the role are not interpreted here.
type clusterConfig struct {
	Nodes []struct {
		Role string `yaml:"role"`
	} `yaml:"nodes"`
}

// LoadTopology parses the kind cluster configuration at path and returns the
// declared node counts. Nodes with a role other than control-plane or worker
// count toward the total but neither sub-count.
func LoadTopology(path string) (Topology, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from run configuration
	if err != nil {
		return Topology{}, fmt.Errorf("%w: reading %s: %w", ErrInvalidTopology, path, err)
	}

	var cfg clusterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Topology{}, fmt.Errorf("%w: parsing %s: %w", ErrInvalidTopology, path, err)
	}

	if cfg.Nodes == nil {
		return Topology{}, fmt.Errorf("%w: %s has no nodes list", ErrInvalidTopology, path)
	}

	topology := Topology{Total: len(cfg.Nodes)}

	for _, node := range cfg.Nodes {
		switch node.Role {
		case RoleControlPlane:
			topology.ControlPlanes++
		case RoleWorker:
			topology.Workers++
		}
	}

	return topology, nil
}
