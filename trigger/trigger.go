/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package trigger adapts change-detection oracles that decide whether any
// watched path prefix changed between the current ref and a diff branch.
package trigger

import (
	"context"
	"strings"
)

// Oracle reports whether any of the watched path prefixes saw changes
// between the current checkout and the reference branch.
type Oracle interface {
	PathsChanged(ctx context.Context, watched []string) (bool, error)
}

// Matches reports whether the changed file path falls under any watched
// prefix. Matching is path-segment aware: "api" covers "api" and "api/x.go"
// but not "api2/x.go". A trailing slash on the prefix is equivalent.
func Matches(file string, watched []string) bool {
	for _, prefix := range watched {
		prefix = strings.TrimSuffix(strings.TrimSpace(prefix), "/")
		if prefix == "" {
			continue
		}
		if file == prefix || strings.HasPrefix(file, prefix+"/") {
			return true
		}
	}
	return false
}

// anyMatch reports whether any changed file falls under a watched prefix.
// Empty names (the zero side of an add or delete) are skipped.
func anyMatch(files []string, watched []string) bool {
	for _, f := range files {
		if f == "" {
			continue
		}
		if Matches(f, watched) {
			return true
		}
	}
	return false
}
