/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package dispatch

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/buildgate/plan"
	"github.com/chainguard-dev/clog"
)

// BuildRequest carries everything the build collaborator needs.
type BuildRequest struct {
	// Context is the build context directory.
	Context string

	// Dockerfile is the containerfile path.
	Dockerfile string

	// Tags are the fully-qualified tags to publish.
	Tags []string

	// BuildArgs are key=value pairs forwarded verbatim to the builder.
	BuildArgs []string

	// Secrets are secret specifications forwarded verbatim to the builder.
	Secrets []string
}

// Builder builds and pushes the image, returning its content digest.
type Builder interface {
	BuildAndPush(ctx context.Context, req BuildRequest) (string, error)
}

// Retagger points the target tags at the manifest currently behind source.
type Retagger interface {
	Retag(ctx context.Context, source string, targets []string) error
}

// SBOMPair is the document pair produced for an image: a component-graph
// document and a license/package document.
type SBOMPair struct {
	CycloneDX string
	SPDX      string
}

// SBOMGenerator produces the SBOM document pair for an image reference into
// the artifact directory.
type SBOMGenerator interface {
	Generate(ctx context.Context, imageRef, artifactDir string) (SBOMPair, error)
}

// Attestor issues an attestation for the image from the SBOM pair.
type Attestor interface {
	Attest(ctx context.Context, imageRef string, sbom SBOMPair) error
}

// Collaborators bundles the external executors the dispatch layer drives.
// Nil SBOM or Attestor entries skip the corresponding step.
type Collaborators struct {
	Builder  Builder
	Retagger Retagger
	SBOM     SBOMGenerator
	Attestor Attestor
}

// Request is one dispatch invocation.
type Request struct {
	// Verdict gates which path runs. It is never re-evaluated here.
	Verdict plan.Verdict

	// Image is the registry/imagePath the tags live under.
	Image string

	// Tags are the resolved target tags.
	Tags []string

	// FallbackRef is the fully-qualified source for the reuse path.
	FallbackRef string

	// Build carries the build-path parameters.
	Build BuildRequest

	// SBOMEnabled gates SBOM generation and attestation on the build path.
	SBOMEnabled bool

	// ArtifactDir receives the SBOM document pair.
	ArtifactDir string
}

// Result is the run summary. Digest is empty on the reuse path, where no new
// digest is produced.
type Result struct {
	Digest    string
	Triggered bool
	TagsCSV   string
}

// Run drives the collaborators according to the verdict. The summary is
// logged unconditionally, including after failures.
func Run(ctx context.Context, req Request, c Collaborators) (res Result, err error) {
	res = Result{
		Triggered: req.Verdict.Triggered,
		TagsCSV:   plan.TagCSV(req.Tags),
	}
	defer func() {
		clog.InfoContextf(ctx, "Summary: triggered=%t reason=%s digest=%q tags=%q",
			res.Triggered, req.Verdict.Reason, res.Digest, res.TagsCSV)
	}()

	if !req.Verdict.Triggered {
		if c.Retagger == nil {
			return res, errors.New("reuse path requires a retagger")
		}
		clog.InfoContextf(ctx, "Reusing fallback %s for %d tags", req.FallbackRef, len(req.Tags))
		if err := c.Retagger.Retag(ctx, req.FallbackRef, req.Tags); err != nil {
			return res, fmt.Errorf("relabeling fallback %s: %w", req.FallbackRef, err)
		}
		return res, nil
	}

	if c.Builder == nil {
		return res, errors.New("build path requires a builder")
	}
	// Never push an untagged image.
	if len(req.Tags) == 0 {
		return res, errors.New("build path requires at least one resolved tag")
	}

	digest, err := c.Builder.BuildAndPush(ctx, req.Build)
	if err != nil {
		return res, fmt.Errorf("building %s: %w", req.Image, err)
	}
	res.Digest = digest

	if !req.SBOMEnabled || c.SBOM == nil {
		return res, nil
	}

	imageRef := req.Image + "@" + digest
	sbom, err := c.SBOM.Generate(ctx, imageRef, req.ArtifactDir)
	if err != nil {
		return res, fmt.Errorf("generating SBOM for %s: %w", imageRef, err)
	}

	if c.Attestor != nil {
		if err := c.Attestor.Attest(ctx, imageRef, sbom); err != nil {
			// Usually a permissions gap on the caller's side, not a build
			// defect. The run stays successful.
			clog.WarnContextf(ctx, "Attestation for %s failed: %v", imageRef, err)
		}
	}
	return res, nil
}
