/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package trigger

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitOracle computes changed paths by diffing the checkout's HEAD against a
// reference branch of the same repository.
type GitOracle struct {
	path   string
	branch string
}

// NewGitOracle returns an Oracle over the repository checked out at path,
// diffing HEAD against branch.
func NewGitOracle(path, branch string) (*GitOracle, error) {
	if strings.TrimSpace(branch) == "" {
		return nil, fmt.Errorf("diff branch cannot be empty")
	}
	return &GitOracle{path: path, branch: branch}, nil
}

// PathsChanged implements Oracle. With no watched prefixes configured there
// is nothing to observe and the result is false without touching the
// repository.
func (o *GitOracle) PathsChanged(ctx context.Context, watched []string) (bool, error) {
	if len(watched) == 0 {
		return false, nil
	}

	files, err := o.changedFiles(ctx)
	if err != nil {
		return false, err
	}
	clog.InfoContextf(ctx, "Diff against %q touched %d files", o.branch, len(files))
	return anyMatch(files, watched), nil
}

func (o *GitOracle) changedFiles(ctx context.Context) ([]string, error) {
	repo, err := git.PlainOpen(o.path)
	if err != nil {
		return nil, fmt.Errorf("opening repository at %q: %w", o.path, err)
	}

	headRef, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	headCommit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("loading HEAD commit: %w", err)
	}

	baseHash, err := o.resolveBase(repo)
	if err != nil {
		return nil, err
	}
	baseCommit, err := repo.CommitObject(*baseHash)
	if err != nil {
		return nil, fmt.Errorf("loading base commit %s: %w", baseHash, err)
	}

	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading HEAD tree: %w", err)
	}
	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading base tree: %w", err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}

	files := make([]string, 0, 2*len(changes))
	for _, change := range changes {
		files = append(files, change.From.Name, change.To.Name)
	}
	return files, nil
}

// resolveBase resolves the diff branch, preferring the local ref and falling
// back to the origin remote ref for shallow CI checkouts that only fetch
// remote branches.
func (o *GitOracle) resolveBase(repo *git.Repository) (*plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(o.branch))
	if err == nil {
		return hash, nil
	}
	if !strings.Contains(o.branch, "/") {
		if remoteHash, remoteErr := repo.ResolveRevision(plumbing.Revision("origin/" + o.branch)); remoteErr == nil {
			return remoteHash, nil
		}
	}
	return nil, fmt.Errorf("resolving diff branch %q: %w", o.branch, err)
}
