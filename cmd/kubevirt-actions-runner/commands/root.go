// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/imamik/kubevirt-actions-runner/cmd/kubevirt-actions-runner/handlers"
	"github.com/imamik/kubevirt-actions-runner/internal/config"
)

// sleep is replaced in tests.
var sleep = time.Sleep

// Root returns the root command for the kubevirt-actions-runner CLI.
func Root() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

// Execute runs the root command and returns the process exit code.
//
// Errors are reported once on stderr, followed by a pause of --exit-delay so
// the message can be read in the runner pod's logs before it is replaced.
func Execute() int {
	cmd, opts := newRoot()
	return execute(cmd, opts, os.Stderr)
}

func execute(cmd *cobra.Command, opts *config.Runner, stderr io.Writer) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	fmt.Fprintf(stderr, "Exiting in %d seconds...\n", int(opts.ExitDelay.Seconds()))
	sleep(opts.ExitDelay)
	return 1
}

func newRoot() (*cobra.Command, *config.Runner) {
	opts := config.FromEnv()
	zapOpts := zap.Options{
		Development: os.Getenv(config.EnvDebugLogger) == "true" || isTerminal(os.Stderr),
	}

	cmd := &cobra.Command{
		Use:   "kubevirt-actions-runner",
		Short: "Run a GitHub Actions job in a KubeVirt virtual machine",
		Long: `Run a GitHub Actions job in a KubeVirt virtual machine.

Creates a VirtualMachineInstance from a VirtualMachine template, passes the
runner registration to the guest through the runner-info.json downward API
volume, waits for the instance to terminate, then deletes it.

Examples:
  # Run with a JIT config supplied by actions-runner-controller
  kubevirt-actions-runner --vm-template ubuntu-runner

  # Register with a token against an organization
  RUNNER_ORG=acme kubevirt-actions-runner --vm-template ubuntu-runner --token <token>

  # Print the instance that would be created
  kubevirt-actions-runner --vm-template ubuntu-runner --dry-run`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Namespace, "namespace", "n", opts.Namespace, "Namespace to create the instance in (default: current context or pod namespace)")
	flags.StringVar(&opts.Name, "name", opts.Name, "Name of the runner and of the instance")
	flags.StringVar(&opts.JITConfig, "jitconfig", opts.JITConfig, "JIT runner config; takes precedence over the registration flags")
	flags.StringVar(&opts.Token, "token", opts.Token, "Runner registration token")
	flags.StringVar(&opts.URL, "url", opts.URL, "Repository or organization URL (default: derived from RUNNER_ORG or RUNNER_REPO)")
	flags.BoolVar(&opts.Ephemeral, "ephemeral", opts.Ephemeral, "Register an ephemeral runner")
	flags.StringVar(&opts.Groups, "groups", opts.Groups, "Runner groups")
	flags.StringVar(&opts.Labels, "labels", opts.Labels, "Runner labels")
	flags.StringVar(&opts.VMTemplate, "vm-template", opts.VMTemplate, "VirtualMachine to use as the instance template")
	flags.StringVar(&opts.Kubeconfig, "kubeconfig", opts.Kubeconfig, "Path to the kubeconfig file (default: in-cluster config)")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Print the instance as YAML instead of creating it")
	flags.DurationVar(&opts.ExitDelay, "exit-delay", opts.ExitDelay, "Time to wait before exiting after an error")
	flags.DurationVar(&opts.DeleteTimeout, "delete-timeout", 0, "Maximum time to wait for an instance to be finalized (0 waits indefinitely)")
	flags.StringVar(&opts.MetricsBindAddress, "metrics-bind-address", "", "Address to serve Prometheus metrics on (disabled when empty)")

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(goFlags)
	flags.AddGoFlagSet(goFlags)

	cmd.AddCommand(Version())

	return cmd, opts
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
