// Package convergence drives the lab cluster and its platform stack from
// unknown state to known-ready.
//
// The package is stateless between polls: every decision re-queries kind or
// the cluster, so a run interrupted at any point can simply be started
// again.
package convergence

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/kubechaos/labctl/internal/config"
	"github.com/kubechaos/labctl/internal/kind"
	"github.com/kubechaos/labctl/internal/kubectl"
)

// Reconciler decides whether the cluster is created, reused, or recreated.
type Reconciler struct {
	cfg     *config.Config
	kind    *kind.Client
	kubectl *kubectl.Client
	out     io.Writer
}

// NewReconciler creates a reconciler for the configured cluster.
func NewReconciler(cfg *config.Config, kindClient *kind.Client, kubectlClient *kubectl.Client, out io.Writer) *Reconciler {
	return &Reconciler{cfg: cfg, kind: kindClient, kubectl: kubectlClient, out: out}
}

// Ensure converges the cluster itself: absent clusters are created, healthy
// ones reused untouched, unhealthy ones deleted and recreated. There is no
// partial repair; full recreation is the deliberate simplicity tradeoff.
func (r *Reconciler) Ensure(ctx context.Context) error {
	// A broken topology file is a configuration error, fatal before any
	// cluster mutation.
	expected, err := kind.LoadTopology(r.cfg.KindConfigPath)
	if err != nil {
		return err
	}

	clusters, err := r.kind.ListClusters(ctx)
	if err != nil {
		return &ProvisioningError{Step: "list clusters", Err: err}
	}

	if !slices.Contains(clusters, r.cfg.ClusterName) {
		fmt.Fprintf(r.out, "  -> creating cluster %q\n", r.cfg.ClusterName)

		return r.create(ctx)
	}

	if r.healthy(ctx, expected) {
		fmt.Fprintf(r.out, "  -> cluster %q already exists and is healthy, reusing\n", r.cfg.ClusterName)

		return nil
	}

	fmt.Fprintf(r.out, "  -> cluster %q exists but is unhealthy, recreating\n", r.cfg.ClusterName)

	if err := r.kind.DeleteCluster(ctx, r.cfg.ClusterName); err != nil {
		return &ProvisioningError{Step: "delete cluster", Err: err}
	}

	return r.create(ctx)
}

func (r *Reconciler) create(ctx context.Context) error {
	if err := r.kind.CreateCluster(ctx, r.cfg.ClusterName, r.cfg.KindConfigPath); err != nil {
		return &ProvisioningError{Step: "create cluster", Err: err}
	}

	return nil
}

// healthy takes a point-in-time health snapshot of the existing cluster:
// the control plane answers, the node count matches the declared topology,
// and every node is Ready. Any failure along the way means unhealthy, never
// an error; the caller's answer is recreation either way.
func (r *Reconciler) healthy(ctx context.Context, expected kind.Topology) bool {
	if err := r.kubectl.ClusterInfo(ctx); err != nil {
		return false
	}

	nodes, err := r.kubectl.GetNodes(ctx)
	if err != nil {
		return false
	}

	if len(nodes.Items) != expected.Total {
		return false
	}

	for i := range nodes.Items {
		if !nodeReady(&nodes.Items[i]) {
			return false
		}
	}

	return true
}
