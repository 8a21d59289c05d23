// Package config holds the immutable run configuration for labctl.
//
// Configuration is constructed once at startup and passed by reference into
// the reconciler and stage checks; there is no process-wide mutable state.
package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultFile is the configuration file auto-detected in the working
// directory.
const DefaultFile = "labctl.yaml"

// ErrInvalidConfig marks a configuration that failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full run configuration. Zero values are filled with lab
// defaults by Load.
type Config struct {
	// ClusterName identifies the kind cluster managed by this lab.
	ClusterName string `mapstructure:"cluster_name" yaml:"cluster_name"`

	// KindConfigPath is the declarative node topology consumed by kind.
	KindConfigPath string `mapstructure:"kind_config" yaml:"kind_config"`

	// ManifestsDir is the kustomize directory applied as the platform base.
	ManifestsDir string `mapstructure:"manifests_dir" yaml:"manifests_dir"`

	// PollInterval is the sleep between readiness poll iterations.
	PollInterval time.Duration `mapstructure:"-" yaml:"-"`

	CoreDNS CoreDNSConfig `mapstructure:"coredns" yaml:"coredns"`
	Ingress IngressConfig `mapstructure:"ingress" yaml:"ingress"`
	Smoke   SmokeConfig   `mapstructure:"smoke" yaml:"smoke"`

	// VerifyJob optionally names a job whose completion is awaited after
	// the smoke check. Left empty, the stage is skipped.
	VerifyJob JobRef `mapstructure:"verify_job" yaml:"verify_job"`
}

// CoreDNSConfig locates the cluster DNS deployment.
type CoreDNSConfig struct {
	Namespace  string `mapstructure:"namespace" yaml:"namespace"`
	Deployment string `mapstructure:"deployment" yaml:"deployment"`
	Selector   string `mapstructure:"selector" yaml:"selector"`
}

// IngressConfig locates the ingress controller pods.
type IngressConfig struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	Selector  string `mapstructure:"selector" yaml:"selector"`
}

// SmokeConfig describes the end-to-end HTTP probe.
type SmokeConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Host    string        `mapstructure:"host" yaml:"host"`
	Timeout time.Duration `mapstructure:"-" yaml:"-"`
}

// JobRef names a namespaced job.
type JobRef struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	Name      string `mapstructure:"name" yaml:"name"`
}

// Configured reports whether the reference points at a job.
func (j JobRef) Configured() bool {
	return j.Name != ""
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("%w: cluster_name is required", ErrInvalidConfig)
	}

	if c.KindConfigPath == "" {
		return fmt.Errorf("%w: kind_config is required", ErrInvalidConfig)
	}

	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval must not be negative", ErrInvalidConfig)
	}

	if c.VerifyJob.Name != "" && c.VerifyJob.Namespace == "" {
		return fmt.Errorf("%w: verify_job.namespace is required when verify_job.name is set", ErrInvalidConfig)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.ClusterName == "" {
		c.ClusterName = "kube-chaos-lab"
	}

	if c.KindConfigPath == "" {
		c.KindConfigPath = "infra/kind/cluster.yaml"
	}

	if c.ManifestsDir == "" {
		c.ManifestsDir = "infra/k8s/base"
	}

	if c.CoreDNS.Namespace == "" {
		c.CoreDNS.Namespace = "kube-system"
	}

	if c.CoreDNS.Deployment == "" {
		c.CoreDNS.Deployment = "coredns"
	}

	if c.CoreDNS.Selector == "" {
		c.CoreDNS.Selector = "k8s-app=kube-dns"
	}

	if c.Ingress.Namespace == "" {
		c.Ingress.Namespace = "ingress-nginx"
	}

	if c.Ingress.Selector == "" {
		c.Ingress.Selector = "app.kubernetes.io/component=controller"
	}

	if c.Smoke.URL == "" {
		c.Smoke.URL = "http://127.0.0.1:8080/"
	}

	if c.Smoke.Host == "" {
		c.Smoke.Host = "hello.local"
	}

	if c.Smoke.Timeout == 0 {
		c.Smoke.Timeout = 2 * time.Second
	}

	if c.PollInterval == 0 {
		c.PollInterval = 2 * time.Second
	}
}
