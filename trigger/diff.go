/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package trigger

import (
	"context"
	"fmt"

	"github.com/waigani/diffparser"
)

// DiffOracle answers from an already-computed unified diff, for callers that
// obtained the diff out of band (e.g. from a diff service) instead of a local
// checkout.
type DiffOracle struct {
	diff string
}

// NewDiffOracle returns an Oracle over the given unified diff text.
func NewDiffOracle(diff string) *DiffOracle {
	return &DiffOracle{diff: diff}
}

// PathsChanged implements Oracle.
func (o *DiffOracle) PathsChanged(_ context.Context, watched []string) (bool, error) {
	if len(watched) == 0 {
		return false, nil
	}

	parsed, err := diffparser.Parse(o.diff)
	if err != nil {
		return false, fmt.Errorf("parsing diff: %w", err)
	}

	files := make([]string, 0, 2*len(parsed.Files))
	for _, f := range parsed.Files {
		files = append(files, f.OrigName, f.NewName)
	}
	return anyMatch(files, watched), nil
}
