// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// Package links installs, removes, and inspects symlinks from a host
// configuration directory to Threadline's shipped plugin assets. A
// destination that is a regular file is compared by BLAKE3 content
// hash before anything is overwritten: identical content is safe to
// replace with a link, diverged content is drift and needs --force.
package links

import (
	"fmt"
	"os"
	"path/filepath"
)

// LinkState classifies one destination relative to its asset source.
type LinkState uint8

const (
	// StateMissing means nothing exists at the destination.
	StateMissing LinkState = iota

	// StateLinked means the destination is a symlink to the source.
	StateLinked

	// StateCopy means the destination is a regular file whose
	// content matches the source.
	StateCopy

	// StateDrifted means the destination is a regular file whose
	// content differs from the source.
	StateDrifted

	// StateForeign means the destination is a symlink pointing
	// somewhere else.
	StateForeign
)

func (s LinkState) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateLinked:
		return "linked"
	case StateCopy:
		return "copy"
	case StateDrifted:
		return "drifted"
	case StateForeign:
		return "foreign"
	default:
		return fmt.Sprintf("LinkState(%d)", uint8(s))
	}
}

// Asset is one file shipped with Threadline that gets linked into the
// host directory under Name.
type Asset struct {
	// Name is the file name inside the host directory.
	Name string

	// Source is the absolute path of the shipped file.
	Source string
}

// Status is the inspection result for one asset.
type Status struct {
	Asset Asset
	State LinkState

	// Target is where an existing symlink points, for StateLinked
	// and StateForeign.
	Target string
}

// Manager operates on one host configuration directory.
type Manager struct {
	hostDir string
}

// NewManager returns a Manager for the given host directory.
func NewManager(hostDir string) *Manager {
	return &Manager{hostDir: hostDir}
}

// destination returns the link path for an asset.
func (m *Manager) destination(asset Asset) string {
	return filepath.Join(m.hostDir, asset.Name)
}

// Inspect classifies one asset's destination.
func (m *Manager) Inspect(asset Asset) (Status, error) {
	status := Status{Asset: asset}
	dest := m.destination(asset)

	info, err := os.Lstat(dest)
	if os.IsNotExist(err) {
		status.State = StateMissing
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("inspecting %s: %w", dest, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(dest)
		if err != nil {
			return status, fmt.Errorf("reading link %s: %w", dest, err)
		}
		status.Target = target
		if sameFile(target, asset.Source, dest) {
			status.State = StateLinked
		} else {
			status.State = StateForeign
		}
		return status, nil
	}

	sourceDigest, err := HashFile(asset.Source)
	if err != nil {
		return status, err
	}
	destDigest, err := HashFile(dest)
	if err != nil {
		return status, err
	}
	if sourceDigest == destDigest {
		status.State = StateCopy
	} else {
		status.State = StateDrifted
	}
	return status, nil
}

// StatusAll inspects every asset.
func (m *Manager) StatusAll(assets []Asset) ([]Status, error) {
	statuses := make([]Status, 0, len(assets))
	for _, asset := range assets {
		status, err := m.Inspect(asset)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Install links every asset into the host directory, creating it if
// needed. Already-correct links and identical copies are replaced
// silently; drifted files and foreign links are refused unless force
// is set.
func (m *Manager) Install(assets []Asset, force bool) ([]Status, error) {
	if err := os.MkdirAll(m.hostDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", m.hostDir, err)
	}

	statuses := make([]Status, 0, len(assets))
	for _, asset := range assets {
		status, err := m.Inspect(asset)
		if err != nil {
			return statuses, err
		}
		switch status.State {
		case StateLinked:
			statuses = append(statuses, status)
			continue
		case StateDrifted, StateForeign:
			if !force {
				return statuses, fmt.Errorf("%s: %s at destination, use --force to overwrite",
					asset.Name, status.State)
			}
		}

		dest := m.destination(asset)
		if status.State != StateMissing {
			if err := os.Remove(dest); err != nil {
				return statuses, fmt.Errorf("removing %s: %w", dest, err)
			}
		}
		if err := os.Symlink(asset.Source, dest); err != nil {
			return statuses, fmt.Errorf("linking %s: %w", dest, err)
		}
		status.State = StateLinked
		status.Target = asset.Source
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Remove deletes the asset links that belong to Threadline. Missing
// destinations are fine; foreign links and drifted files are left in
// place.
func (m *Manager) Remove(assets []Asset) ([]Status, error) {
	statuses := make([]Status, 0, len(assets))
	for _, asset := range assets {
		status, err := m.Inspect(asset)
		if err != nil {
			return statuses, err
		}
		if status.State == StateLinked || status.State == StateCopy {
			if err := os.Remove(m.destination(asset)); err != nil {
				return statuses, fmt.Errorf("removing %s: %w", m.destination(asset), err)
			}
			status.State = StateMissing
			status.Target = ""
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// sameFile reports whether a link target resolves to the asset
// source. Relative targets resolve against the link's directory.
func sameFile(target, source, linkPath string) bool {
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(linkPath), target)
	}
	return filepath.Clean(target) == filepath.Clean(source)
}
