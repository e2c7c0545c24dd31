/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package steps provides the concrete external-collaborator adapters driven
// by the dispatch layer: the container builder, the SBOM generator, and the
// attestation issuer. Each shells out to the corresponding tool; retry and
// timeout policy belongs to callers and to the tools themselves.
package steps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"chainguard.dev/buildgate/dispatch"
	"github.com/chainguard-dev/clog"
)

// DockerBuilder builds and pushes images with docker buildx.
type DockerBuilder struct {
	// Binary overrides the docker binary, mainly for tests.
	Binary string
}

// BuildAndPush implements dispatch.Builder. The pushed image's digest is read
// back from the builder's iidfile.
func (b *DockerBuilder) BuildAndPush(ctx context.Context, req dispatch.BuildRequest) (string, error) {
	dir, err := os.MkdirTemp("", "buildgate-iid-")
	if err != nil {
		return "", fmt.Errorf("creating iidfile dir: %w", err)
	}
	defer os.RemoveAll(dir)
	iidfile := filepath.Join(dir, "iid")

	args := buildArgs(req, iidfile)
	clog.InfoContextf(ctx, "Running %s %s", b.binary(), strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, b.binary(), args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker buildx build: %w", err)
	}

	raw, err := os.ReadFile(iidfile)
	if err != nil {
		return "", fmt.Errorf("reading iidfile: %w", err)
	}
	digest := strings.TrimSpace(string(raw))
	if digest == "" {
		return "", fmt.Errorf("builder produced an empty digest")
	}
	return digest, nil
}

func (b *DockerBuilder) binary() string {
	if b.Binary != "" {
		return b.Binary
	}
	return "docker"
}

// buildArgs assembles the buildx argument list. BuildArgs and Secrets are
// forwarded verbatim, never parsed or validated here.
func buildArgs(req dispatch.BuildRequest, iidfile string) []string {
	args := []string{"buildx", "build", "--push", "--iidfile", iidfile, "--file", req.Dockerfile}
	for _, tag := range req.Tags {
		args = append(args, "--tag", tag)
	}
	for _, kv := range req.BuildArgs {
		args = append(args, "--build-arg", kv)
	}
	for _, kv := range req.Secrets {
		args = append(args, "--secret", kv)
	}
	return append(args, req.Context)
}
