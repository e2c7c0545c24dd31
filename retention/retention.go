/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retention computes and executes deletion of old published package
// versions.
//
// The policy is pure: given the registry's newest-first version list, a keep
// count, and an ignore pattern, it marks everything but the newest keep
// candidates for deletion. A version whose tag matches the ignore pattern is
// protected and never marked, regardless of its age ranking. Execution is a
// separate concern handled by Pruner over the GitHub Packages API, where each
// deletion is independent and "nothing to delete" is success.
package retention

import "regexp"

// DefaultKeepPattern protects the conventional long-lived tags: the literal
// prod and test channels, and anything that looks like a semantic version.
const DefaultKeepPattern = `^prod$|^test$|^v?\d+\.\d+\.\d+`

// Version is one published package version as reported by the registry,
// newest first.
type Version struct {
	// ID is the registry's version identifier, used for deletion.
	ID int64

	// Tags are the tags currently pointing at this version. Untagged
	// versions have none.
	Tags []string
}

// Protected reports whether any of the version's tags matches the ignore
// pattern. A nil pattern protects nothing.
func (v Version) Protected(ignore *regexp.Regexp) bool {
	if ignore == nil {
		return false
	}
	for _, tag := range v.Tags {
		if ignore.MatchString(tag) {
			return true
		}
	}
	return false
}

// ComputeDeletions returns the IDs eligible for deletion: all versions except
// the newest keep unprotected ones and every protected version. Versions must
// be ordered newest first. A negative keep behaves like zero.
func ComputeDeletions(versions []Version, keep int, ignore *regexp.Regexp) []int64 {
	var doomed []int64
	kept := 0
	for _, v := range versions {
		if v.Protected(ignore) {
			continue
		}
		if kept < keep {
			kept++
			continue
		}
		doomed = append(doomed, v.ID)
	}
	return doomed
}
