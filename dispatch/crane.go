/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package dispatch

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// Crane is a Retagger that relabels manifests in place through the registry
// API. The manifest is fetched once from the source tag and re-tagged for
// each target, so no image bytes move.
type Crane struct {
	nameOpts   []name.Option
	remoteOpts []remote.Option
}

// CraneOption configures the Crane retagger.
type CraneOption func(*Crane)

// WithNameOptions provides name.Options for reference parsing.
func WithNameOptions(opts ...name.Option) CraneOption {
	return func(c *Crane) {
		c.nameOpts = append(c.nameOpts, opts...)
	}
}

// WithRemoteOptions provides remote.Options for registry access.
func WithRemoteOptions(opts ...remote.Option) CraneOption {
	return func(c *Crane) {
		c.remoteOpts = append(c.remoteOpts, opts...)
	}
}

// NewCrane constructs a Crane retagger.
func NewCrane(opts ...CraneOption) *Crane {
	c := &Crane{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Retag implements Retagger. Targets are expected to live in the same
// repository as source, which holds by construction for resolved tags.
func (c *Crane) Retag(ctx context.Context, source string, targets []string) error {
	ref, err := name.ParseReference(source, c.nameOpts...)
	if err != nil {
		return fmt.Errorf("parsing source %q: %w", source, err)
	}

	opts := append([]remote.Option{remote.WithContext(ctx)}, c.remoteOpts...)
	desc, err := remote.Get(ref, opts...)
	if err != nil {
		return fmt.Errorf("fetching manifest %s: %w", source, err)
	}

	for _, target := range targets {
		tag, err := name.NewTag(target, c.nameOpts...)
		if err != nil {
			return fmt.Errorf("parsing target %q: %w", target, err)
		}
		if err := remote.Tag(tag, desc, opts...); err != nil {
			return fmt.Errorf("tagging %s: %w", target, err)
		}
		clog.InfoContextf(ctx, "Tagged %s -> %s", source, target)
	}
	return nil
}
