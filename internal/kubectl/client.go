// Package kubectl queries cluster state through the kubectl CLI and decodes
// its JSON output into typed k8s.io/api objects.
//
// Every call re-queries the cluster; the client holds no cached state, so a
// crashed and restarted caller sees exactly what the cluster reports now.
package kubectl

import (
	"context"
	"encoding/json"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/kubechaos/labctl/internal/runner"
)

// Client talks to the cluster through the kubectl CLI.
type Client struct {
	runner runner.Runner
}

// NewClient creates a kubectl client that executes commands through r.
func NewClient(r runner.Runner) *Client {
	return &Client{runner: r}
}

// ClusterInfo checks that the control plane answers at all.
func (c *Client) ClusterInfo(ctx context.Context) error {
	_, err := runner.RunChecked(ctx, c.runner, "kubectl", "cluster-info")

	return err
}

// GetNodes returns all nodes in the cluster.
func (c *Client) GetNodes(ctx context.Context) (*corev1.NodeList, error) {
	var nodes corev1.NodeList
	if err := c.getJSON(ctx, &nodes, "kubectl", "get", "nodes", "-o", "json"); err != nil {
		return nil, err
	}

	return &nodes, nil
}

// GetNodesWide returns the human-readable wide node listing, used for the
// post-convergence summary.
func (c *Client) GetNodesWide(ctx context.Context) (string, error) {
	result, err := runner.RunChecked(ctx, c.runner, "kubectl", "get", "nodes", "-o", "wide")
	if err != nil {
		return "", err
	}

	return result.Stdout, nil
}

// GetDeployment returns the named deployment.
func (c *Client) GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	var deployment appsv1.Deployment

	err := c.getJSON(ctx, &deployment,
		"kubectl", "get", "deployment", "-n", namespace, name, "-o", "json")
	if err != nil {
		return nil, err
	}

	return &deployment, nil
}

// GetPods returns the pods in namespace matching the label selector.
func (c *Client) GetPods(ctx context.Context, namespace, selector string) (*corev1.PodList, error) {
	var pods corev1.PodList

	err := c.getJSON(ctx, &pods,
		"kubectl", "get", "pods", "-n", namespace, "-l", selector, "-o", "json")
	if err != nil {
		return nil, err
	}

	return &pods, nil
}

// GetJob returns the named job.
func (c *Client) GetJob(ctx context.Context, namespace, name string) (*batchv1.Job, error) {
	var job batchv1.Job

	err := c.getJSON(ctx, &job, "kubectl", "get", "job", "-n", namespace, name, "-o", "json")
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// GetEndpoints returns the named endpoints object.
func (c *Client) GetEndpoints(ctx context.Context, namespace, name string) (*corev1.Endpoints, error) {
	var endpoints corev1.Endpoints

	err := c.getJSON(ctx, &endpoints,
		"kubectl", "get", "endpoints", "-n", namespace, name, "-o", "json")
	if err != nil {
		return nil, err
	}

	return &endpoints, nil
}

// ApplyKustomize applies the kustomization in dir.
func (c *Client) ApplyKustomize(ctx context.Context, dir string) error {
	_, err := runner.RunChecked(ctx, c.runner, "kubectl", "apply", "-k", dir)

	return err
}

func (c *Client) getJSON(ctx context.Context, out any, argv ...string) error {
	result, err := runner.RunChecked(ctx, c.runner, argv...)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(result.Stdout), out); err != nil {
		return fmt.Errorf("decoding kubectl output: %w", err)
	}

	return nil
}
