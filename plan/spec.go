/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package plan

import (
	"fmt"
	"path"
	"strings"
)

// Spec identifies the package being built and where its sources live.
type Spec struct {
	// Name is the package name, typically a top-level directory in the
	// repository (e.g. "worker").
	Name string

	// RepoSlug is the owner/repo slug the image is published under. It
	// defaults to the repository the pipeline runs in and differs only when
	// the caller overrides the source repository.
	RepoSlug string

	// BuildContext is the build context directory. Empty means Name.
	BuildContext string

	// BuildFile is the containerfile path. Empty means Name/Dockerfile.
	BuildFile string

	// DeprecatedTag holds the retired single-tag input. Any non-empty value
	// fails validation; callers must use the multiline tag list.
	DeprecatedTag string
}

// ValidationError reports invocation inputs that must stop the pipeline
// before any other work occurs.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Validate rejects specs that carry deprecated or unusable inputs. The
// deprecated single-tag field is a hard stop rather than a warning so that
// callers migrate to the multiline tag list.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{msg: "package name is required"}
	}
	if strings.TrimSpace(s.RepoSlug) == "" {
		return &ValidationError{msg: "repository slug is required"}
	}
	if s.DeprecatedTag != "" {
		return &ValidationError{msg: fmt.Sprintf("the single-tag input is no longer supported (got %q); use the multiline tag list", s.DeprecatedTag)}
	}
	return nil
}

// ImagePath derives the registry path component for this package.
//
// When the package name matches the invoking repository's own name (the part
// of contextRepo after the last slash, compared case-insensitively) the slug
// is used as-is, so a repository's primary image lives at owner/repo rather
// than owner/repo/repo. Every other package is namespaced under the slug.
// The result is always lower-cased before use as a registry path.
func (s Spec) ImagePath(contextRepo string) string {
	if strings.EqualFold(s.Name, path.Base(contextRepo)) {
		return strings.ToLower(s.RepoSlug)
	}
	return strings.ToLower(s.RepoSlug + "/" + s.Name)
}

// Context returns the build context directory, defaulting to the package name.
func (s Spec) Context() string {
	if s.BuildContext != "" {
		return s.BuildContext
	}
	return s.Name
}

// Dockerfile returns the containerfile path, defaulting to Name/Dockerfile.
func (s Spec) Dockerfile() string {
	if s.BuildFile != "" {
		return s.BuildFile
	}
	return path.Join(s.Name, "Dockerfile")
}
