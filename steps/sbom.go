/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package steps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"chainguard.dev/buildgate/dispatch"
	"github.com/chainguard-dev/clog"
)

// SyftSBOM generates the SBOM document pair with syft: a CycloneDX component
// graph and an SPDX license/package document.
type SyftSBOM struct {
	// Binary overrides the syft binary, mainly for tests.
	Binary string
}

// Generate implements dispatch.SBOMGenerator. Both documents land in
// artifactDir, which is created if needed.
func (s *SyftSBOM) Generate(ctx context.Context, imageRef, artifactDir string) (dispatch.SBOMPair, error) {
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return dispatch.SBOMPair{}, fmt.Errorf("creating artifact dir %q: %w", artifactDir, err)
	}

	pair := dispatch.SBOMPair{
		CycloneDX: filepath.Join(artifactDir, "sbom.cdx.json"),
		SPDX:      filepath.Join(artifactDir, "sbom.spdx.json"),
	}

	args := []string{
		"scan", "registry:" + imageRef,
		"-o", "cyclonedx-json=" + pair.CycloneDX,
		"-o", "spdx-json=" + pair.SPDX,
	}
	clog.InfoContextf(ctx, "Generating SBOM pair for %s into %s", imageRef, artifactDir)

	cmd := exec.CommandContext(ctx, s.binary(), args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return dispatch.SBOMPair{}, fmt.Errorf("syft scan: %w", err)
	}
	return pair, nil
}

func (s *SyftSBOM) binary() string {
	if s.Binary != "" {
		return s.Binary
	}
	return "syft"
}
