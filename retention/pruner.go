/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retention

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// Pruner deletes old container package versions through the GitHub Packages
// API. Deletions are independent and idempotent: a version that is already
// gone counts as deleted, and one failed deletion does not stop the rest.
type Pruner struct {
	client *github.Client
	org    string
}

// PrunerOption configures the Pruner.
type PrunerOption func(*Pruner)

// WithClient overrides the GitHub client, primarily for tests pointing at a
// fixture server.
func WithClient(client *github.Client) PrunerOption {
	return func(p *Pruner) {
		p.client = client
	}
}

// NewPruner constructs a Pruner for container packages owned by org,
// authenticating with the provided token.
func NewPruner(ctx context.Context, org, token string, opts ...PrunerOption) (*Pruner, error) {
	if org == "" {
		return nil, errors.New("org cannot be empty")
	}
	p := &Pruner{org: org}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		p.client = github.NewClient(oauth2.NewClient(ctx, ts))
	}
	return p, nil
}

// Prune lists the versions of pkg, applies the retention policy, and deletes
// the marked versions. It returns the number of versions deleted. No eligible
// versions is not an error.
func (p *Pruner) Prune(ctx context.Context, pkg string, keep int, ignore *regexp.Regexp) (int, error) {
	versions, err := p.listVersions(ctx, pkg)
	if err != nil {
		return 0, err
	}

	doomed := ComputeDeletions(versions, keep, ignore)
	if len(doomed) == 0 {
		clog.InfoContextf(ctx, "Retention for %s/%s: nothing to delete (%d versions, keep %d)", p.org, pkg, len(versions), keep)
		return 0, nil
	}

	// Namespaced package names carry a slash, which must be escaped so the
	// API treats it as part of the name rather than a path separator.
	escaped := url.PathEscape(pkg)

	deleted := 0
	var errs []error
	for _, id := range doomed {
		resp, err := p.client.Organizations.PackageDeleteVersion(ctx, p.org, "container", escaped, id)
		if err != nil {
			// A version deleted out from under us is still a success.
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				deleted++
				continue
			}
			errs = append(errs, fmt.Errorf("deleting version %d: %w", id, err))
			continue
		}
		deleted++
	}
	clog.InfoContextf(ctx, "Retention for %s/%s: deleted %d of %d marked versions", p.org, pkg, deleted, len(doomed))
	return deleted, errors.Join(errs...)
}

// listVersions pages through the package's versions. The API reports them
// newest first, which is the order ComputeDeletions expects.
func (p *Pruner) listVersions(ctx context.Context, pkg string) ([]Version, error) {
	escaped := url.PathEscape(pkg)
	var versions []Version
	opts := &github.PackageListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		page, resp, err := p.client.Organizations.PackageGetAllVersions(ctx, p.org, "container", escaped, opts)
		if err != nil {
			// An unknown package has no versions to retire.
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("listing versions of %s/%s: %w", p.org, pkg, err)
		}
		for _, v := range page {
			versions = append(versions, Version{
				ID:   v.GetID(),
				Tags: containerTags(v),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return versions, nil
}

// containerTags decodes the version's raw metadata document. Metadata that
// is absent or undecodable leaves the version unprotected.
func containerTags(v *github.PackageVersion) []string {
	if len(v.Metadata) == 0 {
		return nil
	}
	var md github.PackageMetadata
	if err := json.Unmarshal(v.Metadata, &md); err != nil || md.Container == nil {
		return nil
	}
	return md.Container.Tags
}
