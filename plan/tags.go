/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package plan

import "strings"

// ResolveTags expands a raw multiline tag list into fully-qualified registry
// tags of the form registry/imagePath:tag. Blank lines are dropped, input
// order is preserved, and the whole result is lower-cased. Duplicates are
// left to the registry to fold. An empty input yields an empty (but valid)
// tag set; whether that is an error belongs to the dispatch layer.
func ResolveTags(registry, imagePath, raw string) []string {
	var tags []string
	for _, line := range strings.Split(raw, "\n") {
		tag := strings.TrimSpace(line)
		if tag == "" {
			continue
		}
		tags = append(tags, strings.ToLower(registry+"/"+imagePath+":"+tag))
	}
	return tags
}

// TagCSV joins resolved tags into the comma-separated form consumed by the
// build collaborator and the final summary.
func TagCSV(tags []string) string {
	return strings.Join(tags, ",")
}

// FallbackRef resolves the fallback tag to its fully-qualified form, or ""
// when no fallback is configured.
func FallbackRef(registry, imagePath, tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	return strings.ToLower(registry + "/" + imagePath + ":" + tag)
}
