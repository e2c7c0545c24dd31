/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// defaultsFile is the optional per-package defaults file, looked up inside
// the package directory.
const defaultsFile = ".buildgate.yaml"

// FileDefaults are per-package defaults supplied by the repository itself.
// Explicit invocation parameters always win over file values.
type FileDefaults struct {
	BuildContext string   `yaml:"buildContext"`
	BuildFile    string   `yaml:"buildFile"`
	Triggers     []string `yaml:"triggers"`
	KeepVersions *int     `yaml:"keepVersions"`
	KeepRegex    string   `yaml:"keepRegex"`
}

// LoadDefaults reads repoDir/pkg/.buildgate.yaml. A missing file is not an
// error and yields nil; unknown keys are rejected so typos surface instead of
// silently disabling a default.
func LoadDefaults(repoDir, pkg string) (*FileDefaults, error) {
	path := filepath.Join(repoDir, pkg, defaultsFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var d FileDefaults
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return &d, nil
}

// ApplyDefaults fills unset Params fields from the file defaults.
func (p *Params) ApplyDefaults(d *FileDefaults) {
	if d == nil {
		return
	}
	if p.BuildContext == "" {
		p.BuildContext = d.BuildContext
	}
	if p.BuildFile == "" {
		p.BuildFile = d.BuildFile
	}
	if len(p.Triggers) == 0 {
		p.Triggers = d.Triggers
	}
	if p.KeepVersions < 0 && d.KeepVersions != nil {
		p.KeepVersions = *d.KeepVersions
	}
	if p.KeepRegex == "" {
		p.KeepRegex = d.KeepRegex
	}
}
