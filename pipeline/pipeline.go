/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline wires one build-or-reuse invocation end to end: normalize
// the inputs, evaluate the trigger oracle and fallback probe concurrently,
// decide, dispatch, and run retention.
package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"chainguard.dev/buildgate/dispatch"
	"chainguard.dev/buildgate/plan"
	"chainguard.dev/buildgate/retention"
	"chainguard.dev/buildgate/trigger"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Params are the normalized invocation parameters for one package.
type Params struct {
	// Package is the package name (required).
	Package string

	// ContextRepo is the owner/repo slug of the invoking repository.
	ContextRepo string

	// Repository is the source repository slug. Empty means ContextRepo;
	// any other value is treated as an operator override that forces a
	// build.
	Repository string

	// Registry is the registry host images are published to.
	Registry string

	// Tags is the raw multiline tag list.
	Tags string

	// DeprecatedTag is the retired single-tag input; any value is fatal.
	DeprecatedTag string

	// TagFallback names the tag considered safe to relabel. Empty disables
	// reuse entirely.
	TagFallback string

	// BuildContext and BuildFile override the per-package defaults.
	BuildContext string
	BuildFile    string

	// Triggers are the watched path prefixes.
	Triggers []string

	// KeepVersions is the retention keep-count; negative disables the
	// policy entirely.
	KeepVersions int

	// KeepRegex protects matching version tags from retention. Empty means
	// retention.DefaultKeepPattern.
	KeepRegex string

	// SBOM gates SBOM generation and attestation on the build path.
	SBOM bool

	// BuildArgs and Secrets are passed through verbatim to the builder.
	BuildArgs []string
	Secrets   []string

	// ArtifactDir receives the SBOM document pair. Empty derives
	// "<package>-sbom".
	ArtifactDir string
}

// repoSlug returns the effective source repository.
func (p Params) repoSlug() string {
	if p.Repository != "" {
		return p.Repository
	}
	return p.ContextRepo
}

// overridden reports whether the caller pointed the build at a repository
// other than the invoking one.
func (p Params) overridden() bool {
	return !strings.EqualFold(p.repoSlug(), p.ContextRepo)
}

func (p Params) artifactDir() string {
	if p.ArtifactDir != "" {
		return p.ArtifactDir
	}
	return p.Package + "-sbom"
}

// Prober abstracts the fallback probe. Implementations never fail: errors
// degrade to plan.Unknown.
type Prober interface {
	Available(ctx context.Context, ref string) plan.Availability
}

// Pruner abstracts retention execution.
type Pruner interface {
	Prune(ctx context.Context, pkg string, keep int, ignore *regexp.Regexp) (int, error)
}

// Collaborators bundles every external capability one invocation needs.
// Pruner may be nil when retention is disabled.
type Collaborators struct {
	Oracle   trigger.Oracle
	Prober   Prober
	Pruner   Pruner
	Dispatch dispatch.Collaborators
}

// Run executes one invocation. Validation failures stop before any network
// work; the oracle and probe then run concurrently and the decision waits on
// both. Retention runs independently of the verdict, gated only on
// KeepVersions, and its failures are warnings rather than run failures.
func Run(ctx context.Context, p Params, c Collaborators) (dispatch.Result, error) {
	spec := plan.Spec{
		Name:          p.Package,
		RepoSlug:      p.repoSlug(),
		BuildContext:  p.BuildContext,
		BuildFile:     p.BuildFile,
		DeprecatedTag: p.DeprecatedTag,
	}
	if err := spec.Validate(); err != nil {
		return dispatch.Result{}, err
	}

	imagePath := spec.ImagePath(p.ContextRepo)
	tags := plan.ResolveTags(p.Registry, imagePath, p.Tags)
	fallbackRef := plan.FallbackRef(p.Registry, imagePath, p.TagFallback)

	var changed bool
	avail := plan.Unavailable
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		changed, err = c.Oracle.PathsChanged(gctx, p.Triggers)
		if err != nil {
			return fmt.Errorf("querying trigger oracle: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		avail = c.Prober.Available(gctx, fallbackRef)
		return nil
	})
	if err := g.Wait(); err != nil {
		return dispatch.Result{}, err
	}

	verdict := plan.Decide(changed, p.overridden(), fallbackRef != "", avail)
	clog.InfoContextf(ctx, "Verdict for %s: triggered=%t reason=%s (changed=%t override=%t fallback=%q avail=%s)",
		imagePath, verdict.Triggered, verdict.Reason, changed, p.overridden(), fallbackRef, avail)

	res, runErr := dispatch.Run(ctx, dispatch.Request{
		Verdict:     verdict,
		Image:       p.Registry + "/" + imagePath,
		Tags:        tags,
		FallbackRef: fallbackRef,
		Build: dispatch.BuildRequest{
			Context:    spec.Context(),
			Dockerfile: spec.Dockerfile(),
			Tags:       tags,
			BuildArgs:  p.BuildArgs,
			Secrets:    p.Secrets,
		},
		SBOMEnabled: p.SBOM,
		ArtifactDir: p.artifactDir(),
	}, c.Dispatch)

	p.runRetention(ctx, c, imagePath)

	return res, runErr
}

// runRetention applies the retention policy for the package. The package
// name within the owner is the image path with the owner segment stripped.
func (p Params) runRetention(ctx context.Context, c Collaborators, imagePath string) {
	if p.KeepVersions < 0 || c.Pruner == nil {
		return
	}

	pattern := p.KeepRegex
	if pattern == "" {
		pattern = retention.DefaultKeepPattern
	}
	ignore, err := regexp.Compile(pattern)
	if err != nil {
		clog.WarnContextf(ctx, "Invalid keep pattern %q, skipping retention: %v", pattern, err)
		return
	}

	_, pkg, ok := strings.Cut(imagePath, "/")
	if !ok {
		pkg = imagePath
	}
	if _, err := c.Pruner.Prune(ctx, pkg, p.KeepVersions, ignore); err != nil {
		// Housekeeping only; never fails the run.
		clog.WarnContextf(ctx, "Retention for %s failed: %v", pkg, err)
	}
}
