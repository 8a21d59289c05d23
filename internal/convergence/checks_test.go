package convergence_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubechaos/labctl/internal/convergence"
	"github.com/kubechaos/labctl/internal/kind"
	"github.com/kubechaos/labctl/internal/kubectl"
	"github.com/kubechaos/labctl/internal/runner"
)

func nodeJSON(name, ready string) string {
	return fmt.Sprintf(
		`{"metadata":{"name":%q},"status":{"conditions":[{"type":"Ready","status":%q}]}}`,
		name, ready)
}

func nodeListJSON(nodes ...string) string {
	list := ""
	for i, node := range nodes {
		if i > 0 {
			list += ","
		}
		list += node
	}

	return `{"items":[` + list + `]}`
}

func TestNodesReady(t *testing.T) {
	t.Parallel()

	expected := kind.Topology{Total: 3, ControlPlanes: 1, Workers: 2}

	tests := []struct {
		name       string
		stdout     string
		wantDone   bool
		wantStatus string
	}{
		{
			name:       "all ready",
			stdout:     nodeListJSON(nodeJSON("a", "True"), nodeJSON("b", "True"), nodeJSON("c", "True")),
			wantDone:   true,
			wantStatus: "3/3 nodes Ready",
		},
		{
			name:       "one not ready",
			stdout:     nodeListJSON(nodeJSON("a", "True"), nodeJSON("b", "False"), nodeJSON("c", "True")),
			wantDone:   false,
			wantStatus: "2/3 nodes Ready",
		},
		{
			name:       "missing node",
			stdout:     nodeListJSON(nodeJSON("a", "True"), nodeJSON("b", "True")),
			wantDone:   false,
			wantStatus: "2/3 nodes Ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := runner.NewFake()
			fake.Script("kubectl get nodes -o json", runner.Result{Stdout: tt.stdout})

			check := convergence.NodesReady(kubectl.NewClient(fake), expected)

			done, status, err := check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantDone, done)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestNodesReadyQueryFailureIsTransient(t *testing.T) {
	t.Parallel()

	fake := runner.NewFake()
	fake.Script("kubectl get nodes -o json", runner.Result{ExitCode: 1, Stderr: "connection refused"})

	check := convergence.NodesReady(kubectl.NewClient(fake), kind.Topology{Total: 3})

	done, status, err := check(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
	assert.Contains(t, status, "waiting")
}

func TestDeploymentAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   string
		wantDone bool
	}{
		{
			name:     "nothing ready",
			status:   `{"spec":{"replicas":3},"status":{"readyReplicas":0,"availableReplicas":0}}`,
			wantDone: false,
		},
		{
			name:     "one of three is enough",
			status:   `{"spec":{"replicas":3},"status":{"readyReplicas":1,"availableReplicas":1}}`,
			wantDone: true,
		},
		{
			name:     "ready but not available",
			status:   `{"spec":{"replicas":1},"status":{"readyReplicas":1,"availableReplicas":0}}`,
			wantDone: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := runner.NewFake()
			fake.Script("kubectl get deployment -n kube-system coredns -o json",
				runner.Result{Stdout: tt.status})

			check := convergence.DeploymentAvailable(kubectl.NewClient(fake), "kube-system", "coredns")

			done, _, err := check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantDone, done)
		})
	}
}

func TestDeploymentAbsentIsTransient(t *testing.T) {
	t.Parallel()

	fake := runner.NewFake()
	fake.Script("kubectl get deployment -n kube-system coredns -o json",
		runner.Result{ExitCode: 1, Stderr: "NotFound"})

	check := convergence.DeploymentAvailable(kubectl.NewClient(fake), "kube-system", "coredns")

	done, _, err := check(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
}

func podJSON(name, ready string) string {
	return fmt.Sprintf(
		`{"metadata":{"name":%q},"status":{"conditions":[{"type":"Ready","status":%q}]}}`,
		name, ready)
}

func TestPodsReady(t *testing.T) {
	t.Parallel()

	command := "kubectl get pods -n ingress-nginx -l app.kubernetes.io/component=controller -o json"

	t.Run("zero pods is not done and not an error", func(t *testing.T) {
		t.Parallel()

		fake := runner.NewFake()
		fake.Script(command, runner.Result{Stdout: `{"items":[]}`})

		check := convergence.PodsReady(kubectl.NewClient(fake),
			"ingress-nginx", "app.kubernetes.io/component=controller")

		done, status, err := check(context.Background())
		require.NoError(t, err)
		assert.False(t, done)
		assert.Contains(t, status, "0 pods match")
	})

	t.Run("all ready", func(t *testing.T) {
		t.Parallel()

		fake := runner.NewFake()
		fake.Script(command, runner.Result{
			Stdout: `{"items":[` + podJSON("ctrl-1", "True") + `,` + podJSON("ctrl-2", "True") + `]}`,
		})

		check := convergence.PodsReady(kubectl.NewClient(fake),
			"ingress-nginx", "app.kubernetes.io/component=controller")

		done, status, err := check(context.Background())
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, "2/2 pods Ready", status)
	})

	t.Run("one not ready", func(t *testing.T) {
		t.Parallel()

		fake := runner.NewFake()
		fake.Script(command, runner.Result{
			Stdout: `{"items":[` + podJSON("ctrl-1", "True") + `,` + podJSON("ctrl-2", "False") + `]}`,
		})

		check := convergence.PodsReady(kubectl.NewClient(fake),
			"ingress-nginx", "app.kubernetes.io/component=controller")

		done, _, err := check(context.Background())
		require.NoError(t, err)
		assert.False(t, done)
	})
}

func TestPodFailure(t *testing.T) {
	t.Parallel()

	command := "kubectl get pods -n kube-system -l k8s-app=kube-dns -o json"

	tests := []struct {
		name     string
		stdout   string
		wantDiag string
	}{
		{
			name: "image pull backoff fires",
			stdout: `{"items":[{"metadata":{"name":"coredns-abc"},"status":{"containerStatuses":[
				{"name":"coredns","state":{"waiting":{"reason":"ImagePullBackOff","message":"pull failed"}}}]}}]}`,
			wantDiag: "pod coredns-abc container coredns: ImagePullBackOff (pull failed)",
		},
		{
			name: "crash loop fires",
			stdout: `{"items":[{"metadata":{"name":"coredns-abc"},"status":{"containerStatuses":[
				{"name":"coredns","state":{"waiting":{"reason":"CrashLoopBackOff"}}}]}}]}`,
			wantDiag: "pod coredns-abc container coredns: CrashLoopBackOff",
		},
		{
			name: "err image pull fires",
			stdout: `{"items":[{"metadata":{"name":"coredns-abc"},"status":{"initContainerStatuses":[
				{"name":"init","state":{"waiting":{"reason":"ErrImagePull"}}}]}}]}`,
			wantDiag: "pod coredns-abc container init: ErrImagePull",
		},
		{
			name: "container creating is benign",
			stdout: `{"items":[{"metadata":{"name":"coredns-abc"},"status":{"containerStatuses":[
				{"name":"coredns","state":{"waiting":{"reason":"ContainerCreating"}}}]}}]}`,
			wantDiag: "",
		},
		{
			name:     "running pod yields nothing",
			stdout:   `{"items":[{"metadata":{"name":"coredns-abc"},"status":{"containerStatuses":[{"name":"coredns","state":{"running":{}}}]}}]}`,
			wantDiag: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := runner.NewFake()
			fake.Script(command, runner.Result{Stdout: tt.stdout})

			failFast := convergence.PodFailure(kubectl.NewClient(fake), "kube-system", "k8s-app=kube-dns")

			diagnostic, err := failFast(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantDiag, diagnostic)
		})
	}
}

func TestPodFailureListFailureYieldsNoDiagnostic(t *testing.T) {
	t.Parallel()

	fake := runner.NewFake()
	fake.Script("kubectl get pods -n kube-system -l k8s-app=kube-dns -o json",
		runner.Result{ExitCode: 1, Stderr: "timeout"})

	failFast := convergence.PodFailure(kubectl.NewClient(fake), "kube-system", "k8s-app=kube-dns")

	diagnostic, err := failFast(context.Background())
	require.NoError(t, err)
	assert.Empty(t, diagnostic)
}

func TestJobComplete(t *testing.T) {
	t.Parallel()

	fake := runner.NewFake()
	fake.ScriptSeq("kubectl get job -n default smoke -o json",
		runner.Result{ExitCode: 1, Stderr: "NotFound"},
		runner.Result{Stdout: `{"status":{"active":1}}`},
		runner.Result{Stdout: `{"status":{"succeeded":1}}`},
	)

	check := convergence.JobComplete(kubectl.NewClient(fake), "default", "smoke")

	done, _, err := check(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	done, _, err = check(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	done, status, err := check(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "job smoke: 1 succeeded", status)
}

func TestEndpointsReady(t *testing.T) {
	t.Parallel()

	fake := runner.NewFake()
	fake.ScriptSeq("kubectl get endpoints -n kube-system kube-dns -o json",
		runner.Result{Stdout: `{"subsets":[]}`},
		runner.Result{Stdout: `{"subsets":[{"addresses":[{"ip":"10.244.0.3"},{"ip":"10.244.0.4"}]}]}`},
	)

	check := convergence.EndpointsReady(kubectl.NewClient(fake), "kube-system", "kube-dns")

	done, _, err := check(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	done, status, err := check(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "kube-dns: 2 endpoint addresses", status)
}

func TestApplyManifests(t *testing.T) {
	t.Parallel()

	t.Run("missing directory is fatal", func(t *testing.T) {
		t.Parallel()

		fake := runner.NewFake()

		err := convergence.ApplyManifests(context.Background(), kubectl.NewClient(fake),
			filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)

		var applyErr *convergence.ApplyError
		require.True(t, errors.As(err, &applyErr))
		assert.Empty(t, fake.Calls)
	})

	t.Run("apply failure is fatal", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		fake := runner.NewFake()
		fake.Script("kubectl apply -k "+dir, runner.Result{ExitCode: 1, Stderr: "bad kustomization"})

		err := convergence.ApplyManifests(context.Background(), kubectl.NewClient(fake), dir)

		var applyErr *convergence.ApplyError
		require.True(t, errors.As(err, &applyErr))
		assert.Contains(t, applyErr.Error(), dir)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "kustomization.yaml"), []byte("resources: []\n"), 0o600))

		fake := runner.NewFake()

		require.NoError(t, convergence.ApplyManifests(context.Background(), kubectl.NewClient(fake), dir))
		assert.Equal(t, []string{"kubectl apply -k " + dir}, fake.Calls)
	})
}

func TestSmokeHTTP(t *testing.T) {
	t.Parallel()

	t.Run("200 is done", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "hello.local", r.Host)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		check := convergence.SmokeHTTP(server.Client(), server.URL, "hello.local")

		done, status, err := check(context.Background())
		require.NoError(t, err)
		assert.True(t, done)
		assert.Contains(t, status, "200")
	})

	t.Run("503 is not done and not an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		check := convergence.SmokeHTTP(server.Client(), server.URL, "hello.local")

		done, status, err := check(context.Background())
		require.NoError(t, err)
		assert.False(t, done)
		assert.Contains(t, status, "503")
	})

	t.Run("connection refused is not done and not an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()

		check := convergence.SmokeHTTP(&http.Client{Timeout: time.Second}, url, "hello.local")

		done, status, err := check(context.Background())
		require.NoError(t, err)
		assert.False(t, done)
		assert.Contains(t, status, "not reachable")
	})
}
