package convergence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/kubechaos/labctl/internal/config"
	"github.com/kubechaos/labctl/internal/kind"
	"github.com/kubechaos/labctl/internal/kubectl"
	"github.com/kubechaos/labctl/internal/runner"
	"github.com/kubechaos/labctl/internal/wait"
)

// Orchestrator sequences the convergence stages in fixed order. A fatal
// error at any stage aborts the rest; re-running is always safe because
// stage one reuses a healthy cluster.
type Orchestrator struct {
	cfg        *config.Config
	kind       *kind.Client
	kubectl    *kubectl.Client
	reconciler *Reconciler
	waiter     *wait.Waiter
	httpClient *http.Client
	out        io.Writer
}

// NewOrchestrator wires the convergence sequence from a run configuration.
// When out is nil, progress goes to stdout.
func NewOrchestrator(cfg *config.Config, r runner.Runner, out io.Writer) *Orchestrator {
	if out == nil {
		out = os.Stdout
	}

	kindClient := kind.NewClient(r)
	kubectlClient := kubectl.NewClient(r)

	return &Orchestrator{
		cfg:        cfg,
		kind:       kindClient,
		kubectl:    kubectlClient,
		reconciler: NewReconciler(cfg, kindClient, kubectlClient, out),
		waiter:     wait.NewWaiter(wait.Policy{Interval: cfg.PollInterval}, out),
		httpClient: &http.Client{Timeout: cfg.Smoke.Timeout},
		out:        out,
	}
}

// Execute runs the full convergence sequence and prints a summary on
// success. Stages are strictly ordered: each gate must be observed
// satisfied before the next stage starts.
func (o *Orchestrator) Execute(ctx context.Context) error {
	stages := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"reconcile cluster", o.reconcileCluster},
		{"wait for nodes", o.waitForNodes},
		{"apply base manifests", o.applyManifests},
		{"wait for coredns", o.waitForCoreDNS},
		{"wait for ingress controller", o.waitForIngress},
		{"smoke test", o.waitForSmoke},
	}

	if o.cfg.VerifyJob.Configured() {
		stages = append(stages, struct {
			name string
			run  func(ctx context.Context) error
		}{"wait for verify job", o.waitForVerifyJob})
	}

	for i, stage := range stages {
		fmt.Fprintf(o.out, "[%d/%d] %s\n", i+1, len(stages), stage.name)

		if err := stage.run(ctx); err != nil {
			return fmt.Errorf("stage %s failed: %w", stage.name, err)
		}
	}

	return o.printSummary(ctx)
}

func (o *Orchestrator) reconcileCluster(ctx context.Context) error {
	return o.reconciler.Ensure(ctx)
}

func (o *Orchestrator) waitForNodes(ctx context.Context) error {
	expected, err := kind.LoadTopology(o.cfg.KindConfigPath)
	if err != nil {
		return err
	}

	return o.waiter.Wait(ctx, "nodes ready", NodesReady(o.kubectl, expected), nil)
}

func (o *Orchestrator) applyManifests(ctx context.Context) error {
	return ApplyManifests(ctx, o.kubectl, o.cfg.ManifestsDir)
}

func (o *Orchestrator) waitForCoreDNS(ctx context.Context) error {
	return o.waiter.Wait(ctx, "coredns available",
		DeploymentAvailable(o.kubectl, o.cfg.CoreDNS.Namespace, o.cfg.CoreDNS.Deployment),
		PodFailure(o.kubectl, o.cfg.CoreDNS.Namespace, o.cfg.CoreDNS.Selector))
}

func (o *Orchestrator) waitForIngress(ctx context.Context) error {
	return o.waiter.Wait(ctx, "ingress controller ready",
		PodsReady(o.kubectl, o.cfg.Ingress.Namespace, o.cfg.Ingress.Selector),
		PodFailure(o.kubectl, o.cfg.Ingress.Namespace, o.cfg.Ingress.Selector))
}

func (o *Orchestrator) waitForSmoke(ctx context.Context) error {
	return o.waiter.Wait(ctx, "smoke endpoint",
		SmokeHTTP(o.httpClient, o.cfg.Smoke.URL, o.cfg.Smoke.Host), nil)
}

func (o *Orchestrator) waitForVerifyJob(ctx context.Context) error {
	return o.waiter.Wait(ctx, "verify job complete",
		JobComplete(o.kubectl, o.cfg.VerifyJob.Namespace, o.cfg.VerifyJob.Name), nil)
}

func (o *Orchestrator) printSummary(ctx context.Context) error {
	fmt.Fprintf(o.out, "OK  cluster %q is ready\n", o.cfg.ClusterName)

	nodes, err := o.kubectl.GetNodesWide(ctx)
	if err == nil && strings.TrimSpace(nodes) != "" {
		fmt.Fprintln(o.out, strings.TrimSpace(nodes))
	}

	return nil
}
