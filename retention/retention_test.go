/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retention

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComputeDeletionsKeepsNewest(t *testing.T) {
	// keep=3 over 5 unprotected versions marks exactly the 2 oldest.
	versions := []Version{
		{ID: 5, Tags: []string{"pr45"}},
		{ID: 4, Tags: []string{"pr44"}},
		{ID: 3, Tags: []string{"pr43"}},
		{ID: 2, Tags: []string{"pr42"}},
		{ID: 1, Tags: []string{"pr41"}},
	}
	got := ComputeDeletions(versions, 3, nil)
	if diff := cmp.Diff([]int64{2, 1}, got); diff != "" {
		t.Errorf("ComputeDeletions (-want +got):\n%s", diff)
	}
}

func TestComputeDeletionsProtectedNeverMarked(t *testing.T) {
	ignore := regexp.MustCompile(DefaultKeepPattern)

	// Protected versions in every position, including the very oldest.
	versions := []Version{
		{ID: 6, Tags: []string{"prod"}},
		{ID: 5, Tags: []string{"pr45"}},
		{ID: 4, Tags: []string{"1.2.3"}},
		{ID: 3, Tags: []string{"pr43"}},
		{ID: 2, Tags: []string{"pr42"}},
		{ID: 1, Tags: []string{"test"}},
	}
	got := ComputeDeletions(versions, 1, ignore)
	if diff := cmp.Diff([]int64{3, 2}, got); diff != "" {
		t.Errorf("ComputeDeletions (-want +got):\n%s", diff)
	}
	for _, id := range got {
		if id == 6 || id == 4 || id == 1 {
			t.Errorf("protected version %d marked for deletion", id)
		}
	}
}

func TestComputeDeletionsEdgeCases(t *testing.T) {
	versions := []Version{{ID: 2}, {ID: 1}}

	if got := ComputeDeletions(nil, 3, nil); got != nil {
		t.Errorf("no versions: got = %v, wanted = nil", got)
	}
	if got := ComputeDeletions(versions, 5, nil); got != nil {
		t.Errorf("keep exceeds count: got = %v, wanted = nil", got)
	}
	if diff := cmp.Diff([]int64{2, 1}, ComputeDeletions(versions, 0, nil)); diff != "" {
		t.Errorf("keep zero (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2, 1}, ComputeDeletions(versions, -1, nil)); diff != "" {
		t.Errorf("negative keep behaves like zero (-want +got):\n%s", diff)
	}
}

func TestDefaultKeepPattern(t *testing.T) {
	ignore := regexp.MustCompile(DefaultKeepPattern)

	for _, tag := range []string{"prod", "test", "1.2.3", "v1.2.3", "2.0.0-rc1"} {
		if !ignore.MatchString(tag) {
			t.Errorf("MatchString(%q): got = false, wanted = true", tag)
		}
	}
	for _, tag := range []string{"pr42", "demo", "production", "testing", "latest", "v1.2"} {
		if ignore.MatchString(tag) {
			t.Errorf("MatchString(%q): got = true, wanted = false", tag)
		}
	}
}

func TestProtectedUntaggedVersion(t *testing.T) {
	ignore := regexp.MustCompile(DefaultKeepPattern)
	if (Version{ID: 1}).Protected(ignore) {
		t.Error("untagged version: got = protected, wanted = unprotected")
	}
}
