/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"chainguard.dev/buildgate/dispatch"
	"github.com/chainguard-dev/clog"
	"github.com/in-toto/in-toto-golang/in_toto"
	"github.com/in-toto/in-toto-golang/in_toto/slsa_provenance/common"
)

// CosignAttestor issues a CycloneDX attestation for the image via the cosign
// binary. The unsigned in-toto statement is also written next to the SBOM
// pair so the attested payload stays inspectable without registry access.
type CosignAttestor struct {
	// Binary overrides the cosign binary, mainly for tests.
	Binary string
}

// Attest implements dispatch.Attestor.
func (a *CosignAttestor) Attest(ctx context.Context, imageRef string, sbom dispatch.SBOMPair) error {
	if _, err := writeStatement(imageRef, sbom.CycloneDX); err != nil {
		return fmt.Errorf("writing statement: %w", err)
	}

	args := []string{
		"attest", "--yes",
		"--type", "cyclonedx",
		"--predicate", sbom.CycloneDX,
		imageRef,
	}
	clog.InfoContextf(ctx, "Attesting %s", imageRef)

	cmd := exec.CommandContext(ctx, a.binary(), args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cosign attest: %w", err)
	}
	return nil
}

func (a *CosignAttestor) binary() string {
	if a.Binary != "" {
		return a.Binary
	}
	return "cosign"
}

// writeStatement renders the unsigned in-toto statement for the predicate
// into <predicate-dir>/statement.json and returns its path.
func writeStatement(imageRef, predicatePath string) (string, error) {
	repo, digest, ok := strings.Cut(imageRef, "@sha256:")
	if !ok {
		return "", fmt.Errorf("image ref %q is not digest-qualified", imageRef)
	}

	predicate, err := os.ReadFile(predicatePath)
	if err != nil {
		return "", fmt.Errorf("reading predicate: %w", err)
	}

	stmt := in_toto.Statement{
		StatementHeader: in_toto.StatementHeader{
			Type:          in_toto.StatementInTotoV01,
			PredicateType: in_toto.PredicateCycloneDX,
			Subject: []in_toto.Subject{{
				Name:   repo,
				Digest: common.DigestSet{"sha256": digest},
			}},
		},
		Predicate: json.RawMessage(predicate),
	}

	out := filepath.Join(filepath.Dir(predicatePath), "statement.json")
	raw, err := json.MarshalIndent(stmt, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling statement: %w", err)
	}
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing %q: %w", out, err)
	}
	return out, nil
}
