package config

import (
	"time"
)

// Defaults applied when neither a flag nor an environment variable is set.
const (
	DefaultRunnerName = "runner"
	DefaultGitHubURL  = "https://github.com/"
	DefaultExitDelay  = 10 * time.Second
)

// Runner holds the options for a single launcher invocation.
type Runner struct {
	// Namespace to operate in. Empty means the namespace of the current
	// kubeconfig context, or the pod's namespace when running in-cluster.
	Namespace string

	// Name of the runner. Also used as the VirtualMachineInstance name.
	Name string

	// JITConfig is the opaque just-in-time runner config. When set, every
	// other GitHub option except Name is ignored.
	JITConfig string

	// Legacy registration inputs.
	Token     string
	URL       string
	Ephemeral bool
	Groups    string
	Labels    string

	// URL auto-detection inputs, used when URL is empty.
	GitHubURL string
	Org       string
	Repo      string

	// VMTemplate is the VirtualMachine used as the instance template.
	VMTemplate string

	Kubeconfig         string
	DryRun             bool
	ExitDelay          time.Duration
	DeleteTimeout      time.Duration
	MetricsBindAddress string
}

// UsesJIT reports whether the runner is bootstrapped from a JIT config.
func (r *Runner) UsesJIT() bool {
	return r.JITConfig != ""
}

// Validate checks the options that do not depend on the bootstrap mode.
// Mode-specific checks (token, URL detection) happen when the bootstrap
// payload is built.
func (r *Runner) Validate() error {
	if r.Name == "" {
		return Errorf("runner name is required")
	}
	if r.VMTemplate == "" {
		return Errorf("VM template is required (--vm-template or %s)", EnvVMTemplate)
	}
	if r.ExitDelay < 0 {
		return Errorf("exit delay must not be negative, got %s", r.ExitDelay)
	}
	if r.DeleteTimeout < 0 {
		return Errorf("delete timeout must not be negative, got %s", r.DeleteTimeout)
	}
	return nil
}
