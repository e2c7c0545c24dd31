/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v84/github"
)

// fakePackagesAPI serves just enough of the GitHub Packages API: a version
// list (newest first) and version deletion.
type fakePackagesAPI struct {
	mu       sync.Mutex
	versions []*github.PackageVersion
	deleted  []int64
}

func (f *fakePackagesAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/org/packages/container/worker/versions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := json.NewEncoder(w).Encode(f.versions); err != nil {
			t.Errorf("encoding versions: %v", err)
		}
	})
	mux.HandleFunc("DELETE /orgs/org/packages/container/worker/versions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestPruner(t *testing.T, h http.Handler) *Pruner {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parsing base url: %v", err)
	}
	client.BaseURL = base

	p, err := NewPruner(context.Background(), "org", "", WithClient(client))
	if err != nil {
		t.Fatalf("NewPruner: %v", err)
	}
	return p
}

func version(id int64, tags ...string) *github.PackageVersion {
	// The API delivers metadata as a raw JSON document.
	md, err := json.Marshal(github.PackageMetadata{
		Container: &github.PackageContainerMetadata{Tags: tags},
	})
	if err != nil {
		panic(err)
	}
	return &github.PackageVersion{
		ID:       github.Ptr(id),
		Metadata: md,
	}
}

func TestPruneDeletesOldUnprotected(t *testing.T) {
	fake := &fakePackagesAPI{versions: []*github.PackageVersion{
		version(5, "pr45"),
		version(4, "prod"),
		version(3, "pr43"),
		version(2, "pr42"),
		version(1, "pr41"),
	}}
	p := newTestPruner(t, fake.handler(t))

	deleted, err := p.Prune(context.Background(), "worker", 2, regexp.MustCompile(DefaultKeepPattern))
	if err != nil {
		t.Fatalf("Prune error: got = %v, wanted = nil", err)
	}
	if want := 2; deleted != want {
		t.Errorf("deleted count: got = %d, wanted = %d", deleted, want)
	}

	sort.Slice(fake.deleted, func(i, j int) bool { return fake.deleted[i] < fake.deleted[j] })
	if diff := cmp.Diff([]int64{1, 2}, fake.deleted); diff != "" {
		t.Errorf("deleted IDs (-want +got):\n%s", diff)
	}
}

func TestPruneNothingToDeleteIsSuccess(t *testing.T) {
	fake := &fakePackagesAPI{versions: []*github.PackageVersion{
		version(2, "pr42"),
		version(1, "pr41"),
	}}
	p := newTestPruner(t, fake.handler(t))

	deleted, err := p.Prune(context.Background(), "worker", 5, nil)
	if err != nil {
		t.Fatalf("Prune error: got = %v, wanted = nil", err)
	}
	if deleted != 0 {
		t.Errorf("deleted count: got = %d, wanted = 0", deleted)
	}
	if len(fake.deleted) != 0 {
		t.Errorf("deletions issued: got = %v, wanted = none", fake.deleted)
	}
}

func TestPruneUnknownPackageIsSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	p := newTestPruner(t, mux)

	deleted, err := p.Prune(context.Background(), "worker", 2, nil)
	if err != nil {
		t.Fatalf("Prune error: got = %v, wanted = nil", err)
	}
	if deleted != 0 {
		t.Errorf("deleted count: got = %d, wanted = 0", deleted)
	}
}

func TestPruneContinuesPastFailedDeletion(t *testing.T) {
	fake := &fakePackagesAPI{versions: []*github.PackageVersion{
		version(3, "pr43"),
		version(2, "pr42"),
		version(1, "pr41"),
	}}

	mux := http.NewServeMux()
	mux.Handle("GET /orgs/org/packages/container/worker/versions", fake.handler(t))
	mux.HandleFunc("DELETE /orgs/org/packages/container/worker/versions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "2" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fake.mu.Lock()
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		fake.deleted = append(fake.deleted, id)
		fake.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	p := newTestPruner(t, mux)

	deleted, err := p.Prune(context.Background(), "worker", 0, nil)
	if err == nil {
		t.Fatal("error: got = nil, wanted = non-nil")
	}
	if !strings.Contains(err.Error(), "deleting version 2") {
		t.Errorf("error: got = %v, wanted mention of version 2", err)
	}
	if want := 2; deleted != want {
		t.Errorf("deleted count: got = %d, wanted = %d", deleted, want)
	}
}

func TestPruneDeletedOutFromUnderUs(t *testing.T) {
	fake := &fakePackagesAPI{versions: []*github.PackageVersion{
		version(2, "pr42"),
		version(1, "pr41"),
	}}

	mux := http.NewServeMux()
	mux.Handle("GET /orgs/org/packages/container/worker/versions", fake.handler(t))
	mux.HandleFunc("DELETE /orgs/org/packages/container/worker/versions/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	p := newTestPruner(t, mux)

	deleted, err := p.Prune(context.Background(), "worker", 0, nil)
	if err != nil {
		t.Fatalf("Prune error: got = %v, wanted = nil", err)
	}
	if want := 2; deleted != want {
		t.Errorf("deleted count: got = %d, wanted = %d", deleted, want)
	}
}

func TestNewPrunerRequiresOrg(t *testing.T) {
	if _, err := NewPruner(context.Background(), "", "token"); err == nil {
		t.Error("error: got = nil, wanted = non-nil")
	}
}

func TestPrunePaginates(t *testing.T) {
	// Two pages of versions; the Link header drives pagination.
	page1 := []*github.PackageVersion{version(4, "pr44"), version(3, "pr43")}
	page2 := []*github.PackageVersion{version(2, "pr42"), version(1, "pr41")}

	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/org/packages/container/worker/versions", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			if err := json.NewEncoder(w).Encode(page2); err != nil {
				t.Errorf("encoding page2: %v", err)
			}
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/orgs/org/packages/container/worker/versions?page=2>; rel="next"`, srvURL))
		if err := json.NewEncoder(w).Encode(page1); err != nil {
			t.Errorf("encoding page1: %v", err)
		}
	})
	var deleted []int64
	var mu sync.Mutex
	mux.HandleFunc("DELETE /orgs/org/packages/container/worker/versions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		mu.Lock()
		deleted = append(deleted, id)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parsing base url: %v", err)
	}
	client.BaseURL = base
	p, err := NewPruner(context.Background(), "org", "", WithClient(client))
	if err != nil {
		t.Fatalf("NewPruner: %v", err)
	}

	count, err := p.Prune(context.Background(), "worker", 3, nil)
	if err != nil {
		t.Fatalf("Prune error: got = %v, wanted = nil", err)
	}
	if want := 1; count != want {
		t.Errorf("deleted count: got = %d, wanted = %d", count, want)
	}
	if diff := cmp.Diff([]int64{1}, deleted); diff != "" {
		t.Errorf("deleted IDs (-want +got):\n%s", diff)
	}
}

func TestPruneNamespacedPackage(t *testing.T) {
	// The slash in a namespaced package name must reach the API escaped,
	// not as an extra path segment.
	versions := []*github.PackageVersion{
		version(2, "pr42"),
		version(1, "pr41"),
	}

	var deleted []int64
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/org/packages/container/{pkg}/versions", func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.PathValue("pkg"), "platform/worker"; got != want {
			t.Errorf("package name: got = %q, wanted = %q", got, want)
		}
		if err := json.NewEncoder(w).Encode(versions); err != nil {
			t.Errorf("encoding versions: %v", err)
		}
	})
	mux.HandleFunc("DELETE /orgs/org/packages/container/{pkg}/versions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.PathValue("pkg"), "platform/worker"; got != want {
			t.Errorf("package name: got = %q, wanted = %q", got, want)
		}
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		mu.Lock()
		deleted = append(deleted, id)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	p := newTestPruner(t, mux)

	count, err := p.Prune(context.Background(), "platform/worker", 1, nil)
	if err != nil {
		t.Fatalf("Prune error: got = %v, wanted = nil", err)
	}
	if want := 1; count != want {
		t.Errorf("deleted count: got = %d, wanted = %d", count, want)
	}
	if diff := cmp.Diff([]int64{1}, deleted); diff != "" {
		t.Errorf("deleted IDs (-want +got):\n%s", diff)
	}
}

func TestContainerTags(t *testing.T) {
	for name, tc := range map[string]struct {
		v    *github.PackageVersion
		want []string
	}{
		"tagged":             {v: version(1, "prod", "pr41"), want: []string{"prod", "pr41"}},
		"untagged":           {v: version(1)},
		"no metadata":        {v: &github.PackageVersion{ID: github.Ptr(int64(1))}},
		"malformed metadata": {v: &github.PackageVersion{ID: github.Ptr(int64(1)), Metadata: json.RawMessage(`{"container":`)}},
	} {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, containerTags(tc.v)); diff != "" {
				t.Errorf("containerTags (-want +got):\n%s", diff)
			}
		})
	}
}
