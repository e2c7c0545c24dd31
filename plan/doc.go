/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package plan contains the pure build-or-reuse decision logic for a single
// package in a monorepo build pipeline.
//
// The package is deliberately free of network and process side effects so the
// decision chain stays unit-testable. Collaborators feed it three signals:
//
//   - whether any watched source path changed between the current ref and the
//     diff branch (see the trigger package),
//   - whether the caller pointed the build at a repository other than the one
//     the pipeline is running in, and
//   - whether a previously published fallback image is available for reuse
//     (see the probe package).
//
// # Decision Chain
//
// Decide evaluates an ordered priority chain, first match wins:
//
//  1. watched paths changed            -> build (ReasonDiffTrigger)
//  2. repository override              -> build (ReasonRepositoryOverride)
//  3. no fallback tag configured       -> build (ReasonNoFallbackConfigured)
//  4. fallback manifest not available  -> build (ReasonFallbackUnusable)
//  5. otherwise                        -> reuse (ReasonReuseFallback)
//
// Change detection is authoritative when it fires; the override is an
// explicit operator escape hatch that wins over any fallback reasoning; the
// two fallback checks exist so that a build is never skipped merely because
// reuse is likely to work.
//
// # Fallback Availability
//
// Availability is a three-state value (Available, Unavailable, Unknown) so
// that probe errors stay distinguishable in logs and tests. Decide collapses
// Unknown to Unavailable: a probe that fails must fail toward building,
// never toward reuse.
//
// # Image Paths and Tags
//
// Spec.ImagePath derives the registry path component for the package: the
// bare repository slug when the package shares the repository's own name,
// the namespaced slug/name form otherwise, always lower-cased. ResolveTags
// expands a raw multiline tag list into fully-qualified registry tags,
// preserving order and leaving de-duplication to the registry.
package plan
