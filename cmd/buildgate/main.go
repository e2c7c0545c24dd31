/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements the buildgate CLI: one invocation decides whether
// a package's container image must be rebuilt or whether a previously
// published fallback image can be relabeled, then executes that verdict and
// applies the retention policy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chainguard.dev/buildgate/dispatch"
	"chainguard.dev/buildgate/pipeline"
	"chainguard.dev/buildgate/probe"
	"chainguard.dev/buildgate/retention"
	"chainguard.dev/buildgate/steps"
	"chainguard.dev/buildgate/trigger"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/sethvargo/go-envconfig"
)

type config struct {
	Package       string   `env:"BUILDGATE_PACKAGE,required"`
	Registry      string   `env:"BUILDGATE_REGISTRY,default=ghcr.io"`
	Tags          string   `env:"BUILDGATE_TAGS"`
	Tag           string   `env:"BUILDGATE_TAG"` // deprecated, any value is fatal
	TagFallback   string   `env:"BUILDGATE_TAG_FALLBACK"`
	BuildContext  string   `env:"BUILDGATE_BUILD_CONTEXT"`
	BuildFile     string   `env:"BUILDGATE_BUILD_FILE"`
	Triggers      []string `env:"BUILDGATE_TRIGGERS"`
	DiffBranch    string   `env:"BUILDGATE_DIFF_BRANCH"`
	Repository    string   `env:"BUILDGATE_REPOSITORY"`
	KeepVersions  int      `env:"BUILDGATE_KEEP_VERSIONS,default=-1"`
	KeepRegex     string   `env:"BUILDGATE_KEEP_REGEX"`
	SBOM          bool     `env:"BUILDGATE_SBOM,default=true"`
	BuildArgs     []string `env:"BUILDGATE_BUILD_ARGS"`
	Secrets       []string `env:"BUILDGATE_SECRETS"`
	ArtifactDir   string   `env:"BUILDGATE_ARTIFACT_DIR"`
	RepoDir       string   `env:"BUILDGATE_REPO_DIR,default=."`
	ChangeRequest string   `env:"BUILDGATE_CHANGE_REQUEST"`

	ContextRepo string `env:"GITHUB_REPOSITORY,required"`
	Token       string `env:"GITHUB_TOKEN"`
	Output      string `env:"GITHUB_OUTPUT"`
	BaseRef     string `env:"GITHUB_BASE_REF"`
}

// diffBranch resolves the branch HEAD is diffed against: the explicit
// override first, then the change request's base branch, then main.
func (c config) diffBranch() string {
	if c.DiffBranch != "" {
		return c.DiffBranch
	}
	if c.BaseRef != "" {
		return c.BaseRef
	}
	return "main"
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	// The deprecated single-tag input stops the process before any other
	// work, including the defaults-file read.
	if cfg.Tag != "" {
		clog.FatalContextf(ctx, "BUILDGATE_TAG is no longer supported (got %q); use BUILDGATE_TAGS", cfg.Tag)
	}

	params := pipeline.Params{
		Package:      cfg.Package,
		ContextRepo:  cfg.ContextRepo,
		Repository:   cfg.Repository,
		Registry:     cfg.Registry,
		Tags:         cfg.Tags,
		TagFallback:  cfg.TagFallback,
		BuildContext: cfg.BuildContext,
		BuildFile:    cfg.BuildFile,
		Triggers:     cfg.Triggers,
		KeepVersions: cfg.KeepVersions,
		KeepRegex:    cfg.KeepRegex,
		SBOM:         cfg.SBOM,
		BuildArgs:    cfg.BuildArgs,
		Secrets:      cfg.Secrets,
		ArtifactDir:  cfg.ArtifactDir,
	}
	if params.Tags == "" {
		// Default to the numeric identifier of the current change request.
		params.Tags = cfg.ChangeRequest
	}

	defaults, err := pipeline.LoadDefaults(cfg.RepoDir, cfg.Package)
	if err != nil {
		clog.FatalContextf(ctx, "loading package defaults: %v", err)
	}
	params.ApplyDefaults(defaults)

	collab, err := buildCollaborators(ctx, cfg, params)
	if err != nil {
		clog.FatalContextf(ctx, "wiring collaborators: %v", err)
	}

	res, runErr := pipeline.Run(ctx, params, collab)

	// Outputs are emitted even after a failed run to aid diagnosis.
	if err := writeOutputs(cfg.Output, res); err != nil {
		clog.ErrorContextf(ctx, "writing outputs: %v", err)
	}
	if runErr != nil {
		clog.FatalContextf(ctx, "run failed: %v", runErr)
	}
}

func buildCollaborators(ctx context.Context, cfg config, params pipeline.Params) (pipeline.Collaborators, error) {
	oracle, err := trigger.NewGitOracle(cfg.RepoDir, cfg.diffBranch())
	if err != nil {
		return pipeline.Collaborators{}, fmt.Errorf("creating trigger oracle: %w", err)
	}

	keychain := remote.WithAuthFromKeychain(authn.DefaultKeychain)
	collab := pipeline.Collaborators{
		Oracle: oracle,
		Prober: probe.New(probe.WithRemoteOptions(keychain)),
		Dispatch: dispatch.Collaborators{
			Builder:  &steps.DockerBuilder{},
			Retagger: dispatch.NewCrane(dispatch.WithRemoteOptions(keychain)),
			SBOM:     &steps.SyftSBOM{},
			Attestor: &steps.CosignAttestor{},
		},
	}

	if params.KeepVersions >= 0 {
		owner, _, _ := strings.Cut(cfg.ContextRepo, "/")
		pruner, err := retention.NewPruner(ctx, owner, cfg.Token)
		if err != nil {
			return pipeline.Collaborators{}, fmt.Errorf("creating pruner: %w", err)
		}
		collab.Pruner = pruner
	}
	return collab, nil
}

// writeOutputs appends the digest and triggered outputs to the output file
// when one is configured, falling back to stdout.
func writeOutputs(path string, res dispatch.Result) error {
	body := fmt.Sprintf("digest=%s\ntriggered=%t\n", res.Digest, res.Triggered)
	if path == "" {
		_, err := fmt.Print(body)
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(body)
	return err
}
