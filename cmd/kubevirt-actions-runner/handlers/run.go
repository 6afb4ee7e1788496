// Package handlers implements the business logic behind the CLI commands.
//
// Handlers receive fully parsed options from the commands package and wire
// the Kubernetes clients, the bootstrap payload and the lifecycle runner
// together.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/yaml"

	"github.com/imamik/kubevirt-actions-runner/internal/config"
	"github.com/imamik/kubevirt-actions-runner/internal/kubevirt"
	"github.com/imamik/kubevirt-actions-runner/internal/lifecycle"
	"github.com/imamik/kubevirt-actions-runner/internal/metrics"
	"github.com/imamik/kubevirt-actions-runner/internal/runnerinfo"
)

// Factory function variables for run - can be replaced in tests.
var (
	// newRESTConfig loads the Kubernetes client configuration.
	newRESTConfig = func(kubeconfig string) (*rest.Config, error) {
		if kubeconfig == "" {
			return ctrlconfig.GetConfig()
		}
		return clientConfig(kubeconfig).ClientConfig()
	}

	// resolveNamespace returns the namespace of the current kubeconfig
	// context, or the pod's namespace when running in-cluster.
	resolveNamespace = func(kubeconfig string) (string, error) {
		namespace, _, err := clientConfig(kubeconfig).Namespace()
		return namespace, err
	}

	// newInstanceClient creates the client used to manage instances.
	newInstanceClient = func(restConfig *rest.Config, namespace string, deleteTimeout time.Duration) (lifecycle.InstanceClient, error) {
		client, err := kubevirt.New(restConfig, namespace, kubevirt.WithDeleteTimeout(deleteTimeout))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	// serveMetrics starts the metrics endpoint.
	serveMetrics = func(ctx context.Context, bindAddress string, restConfig *rest.Config) error {
		if bindAddress == "" {
			return nil
		}
		httpClient, err := rest.HTTPClientFor(restConfig)
		if err != nil {
			return fmt.Errorf("failed to create HTTP client for metrics: %w", err)
		}
		return metrics.Serve(ctx, bindAddress, restConfig, httpClient)
	}

	// stdout receives the rendered instance in dry-run mode.
	stdout io.Writer = os.Stdout
)

// Run handles the root command.
//
// It builds the bootstrap payload, connects to the cluster and runs the
// instance lifecycle. In dry-run mode the composed instance is printed as
// YAML instead. An instance that does not succeed is reported as an error.
func Run(ctx context.Context, cfg *config.Runner) error {
	logger := log.FromContext(ctx)

	if err := cfg.Validate(); err != nil {
		return err
	}

	info, err := runnerinfo.Build(ctx, cfg)
	if err != nil {
		return err
	}

	restConfig, err := newRESTConfig(cfg.Kubeconfig)
	if err != nil {
		return fmt.Errorf("failed to load Kubernetes config: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace, err = resolveNamespace(cfg.Kubeconfig)
		if err != nil {
			return fmt.Errorf("failed to determine namespace: %w", err)
		}
	}

	logger = logger.WithValues("namespace", namespace)
	ctx = log.IntoContext(ctx, logger)
	logger.Info("starting runner",
		"name", cfg.Name,
		"template", cfg.VMTemplate,
		"mode", runnerinfo.Mode(info),
	)

	client, err := newInstanceClient(restConfig, namespace, cfg.DeleteTimeout)
	if err != nil {
		return err
	}

	runner := lifecycle.New(client, lifecycle.Options{
		Name:     cfg.Name,
		Template: cfg.VMTemplate,
		Info:     info,
	})

	if cfg.DryRun {
		return render(ctx, runner)
	}

	metricsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := serveMetrics(metricsCtx, cfg.MetricsBindAddress, restConfig); err != nil {
		return err
	}

	_, err = runner.Run(ctx)
	return err
}

func render(ctx context.Context, runner *lifecycle.Runner) error {
	obj, err := runner.Render(ctx)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(obj.Object)
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}

	_, err = stdout.Write(out)
	return err
}

// clientConfig loads kubeconfig, which may list several files, falling back to
// the in-cluster config.
func clientConfig(kubeconfig string) clientcmd.ClientConfig {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.Precedence = filepath.SplitList(kubeconfig)
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{})
}
