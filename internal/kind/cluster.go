package kind

import (
	"context"
	"strings"

	"github.com/kubechaos/labctl/internal/runner"
)

// Client talks to the kind CLI. All cluster state lives in kind itself; the
// client holds no state between calls.
type Client struct {
	runner runner.Runner
}

// NewClient creates a kind client that executes commands through r.
func NewClient(r runner.Runner) *Client {
	return &Client{runner: r}
}

// ListClusters returns the names of all existing kind clusters.
func (c *Client) ListClusters(ctx context.Context) ([]string, error) {
	result, err := runner.RunChecked(ctx, c.runner, "kind", "get", "clusters")
	if err != nil {
		return nil, err
	}

	var names []string

	for _, line := range strings.Split(result.Stdout, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}

	return names, nil
}

// CreateCluster creates a cluster with the given name from the kind
// configuration file at configPath.
func (c *Client) CreateCluster(ctx context.Context, name, configPath string) error {
	_, err := runner.RunChecked(ctx, c.runner,
		"kind", "create", "cluster", "--name", name, "--config", configPath)

	return err
}

// DeleteCluster deletes the named cluster.
func (c *Client) DeleteCluster(ctx context.Context, name string) error {
	_, err := runner.RunChecked(ctx, c.runner, "kind", "delete", "cluster", "--name", name)

	return err
}
