/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import "testing"

func TestDiffBranch(t *testing.T) {
	for name, tc := range map[string]struct {
		cfg  config
		want string
	}{
		"explicit override wins": {cfg: config{DiffBranch: "release", BaseRef: "develop"}, want: "release"},
		"base ref of the change": {cfg: config{BaseRef: "develop"}, want: "develop"},
		"nothing set":            {cfg: config{}, want: "main"},
	} {
		t.Run(name, func(t *testing.T) {
			if got := tc.cfg.diffBranch(); got != tc.want {
				t.Errorf("diffBranch: got = %q, wanted = %q", got, tc.want)
			}
		})
	}
}
