package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables read by [FromEnv].
const (
	EnvNamespace   = "POD_NAMESPACE"
	EnvRunnerName  = "RUNNER_NAME"
	EnvJITConfig   = "ACTIONS_RUNNER_INPUT_JITCONFIG"
	EnvToken       = "RUNNER_TOKEN"
	EnvEphemeral   = "RUNNER_EPHEMERAL"
	EnvGroups      = "RUNNER_GROUPS"
	EnvLabels      = "RUNNER_LABELS"
	EnvVMTemplate  = "KUBEVIRT_VM_TEMPLATE"
	EnvGitHubURL   = "GITHUB_URL"
	EnvRunnerOrg   = "RUNNER_ORG"
	EnvRunnerRepo  = "RUNNER_REPO"
	EnvExitDelay   = "RUNNER_EXIT_DELAY"
	EnvKubeconfig  = "KUBECONFIG"
	EnvDebugLogger = "DEBUG"
)

// FromEnv returns a Runner populated from environment variables, falling back
// to the built-in defaults for anything that is unset.
//
// The result is meant to seed flag defaults; flags parsed afterwards win.
func FromEnv() *Runner {
	return &Runner{
		Namespace:  os.Getenv(EnvNamespace),
		Name:       parseString(EnvRunnerName, DefaultRunnerName),
		JITConfig:  os.Getenv(EnvJITConfig),
		Token:      os.Getenv(EnvToken),
		Ephemeral:  parseBool(EnvEphemeral, false),
		Groups:     os.Getenv(EnvGroups),
		Labels:     os.Getenv(EnvLabels),
		VMTemplate: os.Getenv(EnvVMTemplate),
		GitHubURL:  parseString(EnvGitHubURL, DefaultGitHubURL),
		Org:        os.Getenv(EnvRunnerOrg),
		Repo:       os.Getenv(EnvRunnerRepo),
		Kubeconfig: os.Getenv(EnvKubeconfig),
		ExitDelay:  parseDuration(EnvExitDelay, DefaultExitDelay),
	}
}

// parseString returns the value of an environment variable or defaultVal when
// it is unset. An explicitly empty variable is returned as-is.
func parseString(envVar, defaultVal string) string {
	val, ok := os.LookupEnv(envVar)
	if !ok {
		return defaultVal
	}
	return val
}

// parseBool parses a boolean from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseBool(envVar string, defaultVal bool) bool {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}

	return b
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}
