/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package probe checks the registry for manifest existence of a candidate
// fallback tag.
//
// A probe never fails the pipeline. A definitive 404 maps to
// plan.Unavailable; any other error (transport failure, timeout, malformed
// reference) maps to plan.Unknown, which the decision engine collapses to
// unavailable so that failures always fail toward building.
package probe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"chainguard.dev/buildgate/plan"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
)

// Prober performs manifest HEAD requests against the registry.
type Prober struct {
	nameOpts   []name.Option
	remoteOpts []remote.Option
}

// Option configures the Prober.
type Option func(*Prober)

// WithNameOptions provides name.Options passed to tag parsing (e.g.
// name.Insecure for plain-HTTP test registries).
func WithNameOptions(opts ...name.Option) Option {
	return func(p *Prober) {
		p.nameOpts = append(p.nameOpts, opts...)
	}
}

// WithRemoteOptions provides remote.Options for the manifest request (e.g.
// auth keychains).
func WithRemoteOptions(opts ...remote.Option) Option {
	return func(p *Prober) {
		p.remoteOpts = append(p.remoteOpts, opts...)
	}
}

// New constructs a Prober with the provided options.
func New(opts ...Option) *Prober {
	p := &Prober{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Available reports whether a manifest exists at ref. An empty ref means no
// fallback is configured and short-circuits to Unavailable without touching
// the network.
func (p *Prober) Available(ctx context.Context, ref string) plan.Availability {
	if strings.TrimSpace(ref) == "" {
		return plan.Unavailable
	}

	tag, err := name.NewTag(ref, p.nameOpts...)
	if err != nil {
		clog.WarnContextf(ctx, "Unparseable fallback ref %q: %v", ref, err)
		return plan.Unknown
	}

	opts := append([]remote.Option{remote.WithContext(ctx)}, p.remoteOpts...)
	desc, err := remote.Head(tag, opts...)
	if err != nil {
		avail := classify(err)
		clog.WarnContextf(ctx, "Fallback probe for %s: %s (%v)", ref, avail, err)
		return avail
	}

	clog.InfoContextf(ctx, "Fallback %s resolves to %s", ref, desc.Digest)
	return plan.Available
}

// classify distinguishes a definitive "manifest not found" from transient or
// ambiguous failures, which stay Unknown rather than being silently treated
// as absence.
func classify(err error) plan.Availability {
	var terr *transport.Error
	if errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound {
		return plan.Unavailable
	}
	return plan.Unknown
}
