/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package dispatch executes the verdict produced by the plan package against
// external collaborators.
//
// The layer is thin by design: collaborators (build/push, retag, SBOM
// generation, attestation issuance) are injectable capability interfaces so
// the decision logic stays pure and the orchestration stays testable without
// a registry or a container builder.
//
// # Paths
//
// A non-triggered verdict takes the reuse path: the fallback tag is relabeled
// onto the resolved tags and nothing else runs. A triggered verdict takes the
// build path: build and push, then, when enabled, SBOM generation and
// attestation keyed on the resulting digest. An attestation failure is
// surfaced as a warning rather than failing the run, since it usually
// indicates a permissions gap in the caller's environment rather than a build
// defect.
//
// Both paths emit a final summary (digest, triggered flag, tag CSV) even when
// an upstream step failed, to keep failed runs diagnosable.
package dispatch
