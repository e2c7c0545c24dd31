/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package plan

// Availability describes what the registry probe learned about the fallback
// tag. Unknown records a probe that errored or timed out; it is collapsed to
// Unavailable at the decision boundary but kept distinct for logs and tests.
type Availability int

const (
	// Unknown means the probe could not determine whether the manifest
	// exists (transport error, timeout, malformed response).
	Unknown Availability = iota

	// Available means the registry holds a manifest at the fallback tag.
	Available

	// Unavailable means the registry definitively has no such manifest.
	Unavailable
)

// String implements fmt.Stringer.
func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Collapse folds Unknown into Unavailable. A probe failure must fail toward
// building, never toward reuse.
func (a Availability) Collapse() Availability {
	if a == Available {
		return Available
	}
	return Unavailable
}

// Reason is the closed set of explanations a Verdict can carry.
type Reason string

const (
	// ReasonDiffTrigger means watched paths changed against the diff branch.
	ReasonDiffTrigger Reason = "diff-trigger"

	// ReasonRepositoryOverride means the caller pointed the build at a
	// repository other than the one the pipeline runs in.
	ReasonRepositoryOverride Reason = "repository-override"

	// ReasonNoFallbackConfigured means no fallback tag was supplied, so
	// there is nothing to reuse.
	ReasonNoFallbackConfigured Reason = "no-fallback-configured"

	// ReasonFallbackUnusable means the fallback tag was supplied but no
	// manifest could be confirmed at it.
	ReasonFallbackUnusable Reason = "fallback-unusable"

	// ReasonReuseFallback means the fallback image can be relabeled instead
	// of building.
	ReasonReuseFallback Reason = "reuse-fallback"
)

// Verdict is the engine's build-or-reuse decision. It is computed exactly
// once per invocation and never re-evaluated afterwards.
type Verdict struct {
	// Triggered is true when a fresh build must run.
	Triggered bool

	// Reason explains which rule in the priority chain fired.
	Reason Reason
}

// Decide fuses the change-detection signal, the repository override, and the
// fallback probe result into a Verdict. The checks form a priority chain and
// the first match wins; see the package documentation for the ordering
// rationale.
func Decide(pathsChanged, repoOverride, fallbackProvided bool, avail Availability) Verdict {
	switch {
	case pathsChanged:
		return Verdict{Triggered: true, Reason: ReasonDiffTrigger}
	case repoOverride:
		return Verdict{Triggered: true, Reason: ReasonRepositoryOverride}
	case !fallbackProvided:
		return Verdict{Triggered: true, Reason: ReasonNoFallbackConfigured}
	case avail.Collapse() != Available:
		return Verdict{Triggered: true, Reason: ReasonFallbackUnusable}
	default:
		return Verdict{Triggered: false, Reason: ReasonReuseFallback}
	}
}
