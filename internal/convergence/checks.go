package convergence

import (
	"context"
	"fmt"
	"net/http"
	"os"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubechaos/labctl/internal/kind"
	"github.com/kubechaos/labctl/internal/kubectl"
	"github.com/kubechaos/labctl/internal/wait"
)

// Container waiting reasons the fail-fast detector treats as terminal. Other
// reasons (ContainerCreating, PodInitializing) resolve on their own.
var terminalWaitingReasons = map[string]bool{
	"ImagePullBackOff": true,
	"ErrImagePull":     true,
	"CrashLoopBackOff": true,
}

// NodesReady is done when the observed node count equals the expected
// topology total and every node reports Ready=True. Query failures are
// transient: the API server may still be coming up after cluster creation.
func NodesReady(kc *kubectl.Client, expected kind.Topology) wait.CheckFunc {
	return func(ctx context.Context) (bool, string, error) {
		nodes, err := kc.GetNodes(ctx)
		if err != nil {
			return false, "waiting for API server", nil
		}

		ready := 0

		for i := range nodes.Items {
			if nodeReady(&nodes.Items[i]) {
				ready++
			}
		}

		status := fmt.Sprintf("%d/%d nodes Ready", ready, expected.Total)
		done := len(nodes.Items) == expected.Total && ready == expected.Total

		return done, status, nil
	}
}

// ApplyManifests is the one convergence gate that is not polled: a single
// kustomize apply of the platform base. A missing directory or a failed
// apply is fatal.
func ApplyManifests(ctx context.Context, kc *kubectl.Client, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return &ApplyError{Dir: dir, Err: fmt.Errorf("manifest directory not found")}
	}

	if err := kc.ApplyKustomize(ctx, dir); err != nil {
		return &ApplyError{Dir: dir, Err: err}
	}

	return nil
}

// DeploymentAvailable is done when the deployment has at least one ready and
// one available replica. The gate is deliberately "has a working replica",
// not "all desired replicas available".
func DeploymentAvailable(kc *kubectl.Client, namespace, name string) wait.CheckFunc {
	return func(ctx context.Context) (bool, string, error) {
		deployment, err := kc.GetDeployment(ctx, namespace, name)
		if err != nil {
			return false, fmt.Sprintf("waiting for deployment %s/%s", namespace, name), nil
		}

		desired := int32(1)
		if deployment.Spec.Replicas != nil {
			desired = *deployment.Spec.Replicas
		}

		status := fmt.Sprintf("%s: %d/%d ready, %d available",
			name, deployment.Status.ReadyReplicas, desired, deployment.Status.AvailableReplicas)
		done := deployment.Status.ReadyReplicas >= 1 && deployment.Status.AvailableReplicas >= 1

		return done, status, nil
	}
}

// PodsReady is done when every pod matching the selector reports Ready=True.
// Zero matching pods is not-done, never an error: the controller may not
// have created them yet.
func PodsReady(kc *kubectl.Client, namespace, selector string) wait.CheckFunc {
	return func(ctx context.Context) (bool, string, error) {
		pods, err := kc.GetPods(ctx, namespace, selector)
		if err != nil {
			return false, fmt.Sprintf("waiting for pods in %s", namespace), nil
		}

		if len(pods.Items) == 0 {
			return false, fmt.Sprintf("0 pods match %s yet", selector), nil
		}

		ready := 0

		for i := range pods.Items {
			if podReady(&pods.Items[i]) {
				ready++
			}
		}

		status := fmt.Sprintf("%d/%d pods Ready", ready, len(pods.Items))

		return ready == len(pods.Items), status, nil
	}
}

// JobComplete is done when the job reports at least one succeeded pod. A
// job that does not exist yet is not-done.
func JobComplete(kc *kubectl.Client, namespace, name string) wait.CheckFunc {
	return func(ctx context.Context) (bool, string, error) {
		job, err := kc.GetJob(ctx, namespace, name)
		if err != nil {
			return false, fmt.Sprintf("waiting for job %s/%s", namespace, name), nil
		}

		status := fmt.Sprintf("job %s: %d succeeded", name, job.Status.Succeeded)

		return job.Status.Succeeded >= 1, status, nil
	}
}

// EndpointsReady is done when the endpoints object has at least one ready
// address behind it.
func EndpointsReady(kc *kubectl.Client, namespace, name string) wait.CheckFunc {
	return func(ctx context.Context) (bool, string, error) {
		endpoints, err := kc.GetEndpoints(ctx, namespace, name)
		if err != nil {
			return false, fmt.Sprintf("waiting for endpoints %s/%s", namespace, name), nil
		}

		addresses := 0
		for _, subset := range endpoints.Subsets {
			addresses += len(subset.Addresses)
		}

		status := fmt.Sprintf("%s: %d endpoint addresses", name, addresses)

		return addresses > 0, status, nil
	}
}

// PodFailure is the fail-fast detector: it reports a diagnostic when any
// container of a matching pod is stuck in a terminal waiting state. Listing
// failures yield no diagnostic; the detector only fires on positive
// evidence.
func PodFailure(kc *kubectl.Client, namespace, selector string) wait.FailFastFunc {
	return func(ctx context.Context) (string, error) {
		pods, err := kc.GetPods(ctx, namespace, selector)
		if err != nil {
			return "", nil
		}

		for i := range pods.Items {
			pod := &pods.Items[i]

			statuses := append(
				append([]corev1.ContainerStatus(nil), pod.Status.InitContainerStatuses...),
				pod.Status.ContainerStatuses...)

			for _, container := range statuses {
				waiting := container.State.Waiting
				if waiting == nil || !terminalWaitingReasons[waiting.Reason] {
					continue
				}

				diagnostic := fmt.Sprintf("pod %s container %s: %s", pod.Name, container.Name, waiting.Reason)
				if waiting.Message != "" {
					diagnostic += " (" + waiting.Message + ")"
				}

				return diagnostic, nil
			}
		}

		return "", nil
	}
}

// SmokeHTTP probes the ingress entry point. Done only on HTTP 200; a
// refused connection, timeout, or any other status is not-done, because an
// ingress that is not programmed yet legitimately resets connections.
func SmokeHTTP(client *http.Client, url, host string) wait.CheckFunc {
	return func(ctx context.Context) (bool, string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, "", err
		}

		req.Host = host

		resp, err := client.Do(req)
		if err != nil {
			return false, fmt.Sprintf("GET %s via %s: not reachable yet", url, host), nil
		}

		defer func() { _ = resp.Body.Close() }()

		status := fmt.Sprintf("GET %s via %s: %d", url, host, resp.StatusCode)

		return resp.StatusCode == http.StatusOK, status, nil
	}
}

// nodeReady returns true if the node has condition Ready=True.
func nodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}

	return false
}

// podReady returns true if the pod has condition Ready=True.
func podReady(pod *corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}

	return false
}
