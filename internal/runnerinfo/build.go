package runnerinfo

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubevirt-actions-runner/internal/config"
)

// Build derives the bootstrap payload from the runner options.
//
// A JIT config wins over every legacy option. In legacy mode the URL is taken
// from the options or auto-detected, and a registration token is required.
func Build(ctx context.Context, cfg *config.Runner) (Info, error) {
	logger := log.FromContext(ctx)

	if cfg.UsesJIT() {
		logger.Info("using JIT runner config")
		return JIT{JITConfig: cfg.JITConfig}, nil
	}

	url := cfg.URL
	if url == "" {
		var err error
		url, err = ResolveURL(cfg.GitHubURL, cfg.Org, cfg.Repo)
		if err != nil {
			return nil, err
		}
	}
	logger.Info("resolved runner URL", "url", url)

	if cfg.Token == "" {
		return nil, config.Errorf("a runner token is required (--token or %s)", config.EnvToken)
	}

	return Legacy{
		Name:      cfg.Name,
		Token:     cfg.Token,
		URL:       url,
		Ephemeral: cfg.Ephemeral,
		Groups:    cfg.Groups,
		Labels:    cfg.Labels,
	}, nil
}

// ResolveURL derives the registration URL from a base URL and exactly one of
// an organization or a repository ("owner/name") identifier.
func ResolveURL(base, org, repo string) (string, error) {
	switch {
	case org != "" && repo != "":
		return "", config.Errorf("%s and %s cannot both be non-empty", config.EnvRunnerRepo, config.EnvRunnerOrg)
	case org == "" && repo == "":
		return "", config.Errorf("%s or %s must be set", config.EnvRunnerRepo, config.EnvRunnerOrg)
	case org != "":
		return base + org, nil
	default:
		return base + repo, nil
	}
}
