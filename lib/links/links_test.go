// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package links

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testAsset(t *testing.T, name, content string) Asset {
	t.Helper()
	source := filepath.Join(t.TempDir(), name)
	writeFile(t, source, content)
	return Asset{Name: name, Source: source}
}

func TestInstallCreatesLinks(t *testing.T) {
	hostDir := filepath.Join(t.TempDir(), "plugins")
	manager := NewManager(hostDir)
	asset := testAsset(t, "telemetry.json", `{"plugin": "telemetry"}`)

	statuses, err := manager.Install([]Asset{asset}, false)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(statuses) != 1 || statuses[0].State != StateLinked {
		t.Fatalf("statuses = %+v", statuses)
	}

	target, err := os.Readlink(filepath.Join(hostDir, asset.Name))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != asset.Source {
		t.Fatalf("link target = %q, want %q", target, asset.Source)
	}

	// Re-install is a no-op on a correct link.
	if _, err := manager.Install([]Asset{asset}, false); err != nil {
		t.Fatalf("re-Install: %v", err)
	}
}

func TestInstallReplacesIdenticalCopy(t *testing.T) {
	hostDir := t.TempDir()
	manager := NewManager(hostDir)
	asset := testAsset(t, "a.json", "same content")
	writeFile(t, filepath.Join(hostDir, asset.Name), "same content")

	statuses, err := manager.Install([]Asset{asset}, false)
	if err != nil {
		t.Fatalf("Install over identical copy: %v", err)
	}
	if statuses[0].State != StateLinked {
		t.Fatalf("state = %v, want linked", statuses[0].State)
	}
}

func TestInstallRefusesDriftWithoutForce(t *testing.T) {
	hostDir := t.TempDir()
	manager := NewManager(hostDir)
	asset := testAsset(t, "a.json", "shipped")
	writeFile(t, filepath.Join(hostDir, asset.Name), "locally edited")

	if _, err := manager.Install([]Asset{asset}, false); err == nil {
		t.Fatal("expected drift refusal")
	}

	statuses, err := manager.Install([]Asset{asset}, true)
	if err != nil {
		t.Fatalf("forced Install: %v", err)
	}
	if statuses[0].State != StateLinked {
		t.Fatalf("state after force = %v", statuses[0].State)
	}
}

func TestInspectStates(t *testing.T) {
	hostDir := t.TempDir()
	manager := NewManager(hostDir)
	asset := testAsset(t, "a.json", "content")

	status, err := manager.Inspect(asset)
	if err != nil || status.State != StateMissing {
		t.Fatalf("missing: %+v, %v", status, err)
	}

	foreign := filepath.Join(t.TempDir(), "other.json")
	writeFile(t, foreign, "other")
	if err := os.Symlink(foreign, filepath.Join(hostDir, asset.Name)); err != nil {
		t.Fatal(err)
	}
	status, err = manager.Inspect(asset)
	if err != nil || status.State != StateForeign {
		t.Fatalf("foreign: %+v, %v", status, err)
	}
	if status.Target != foreign {
		t.Fatalf("foreign target = %q", status.Target)
	}
}

func TestRemoveLeavesForeignAndDrifted(t *testing.T) {
	hostDir := t.TempDir()
	manager := NewManager(hostDir)

	linked := testAsset(t, "linked.json", "x")
	if _, err := manager.Install([]Asset{linked}, false); err != nil {
		t.Fatal(err)
	}
	drifted := testAsset(t, "drifted.json", "shipped")
	writeFile(t, filepath.Join(hostDir, drifted.Name), "edited")

	statuses, err := manager.Remove([]Asset{linked, drifted})
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if statuses[0].State != StateMissing {
		t.Fatalf("linked asset not removed: %v", statuses[0].State)
	}
	if statuses[1].State != StateDrifted {
		t.Fatalf("drifted asset state = %v, want drifted", statuses[1].State)
	}
	if _, err := os.Lstat(filepath.Join(hostDir, drifted.Name)); err != nil {
		t.Fatal("drifted file was removed")
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	writeFile(t, a, "same")
	writeFile(t, b, "same")
	writeFile(t, c, "different")

	digestA, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	digestB, _ := HashFile(b)
	digestC, _ := HashFile(c)
	if digestA != digestB {
		t.Fatal("identical content hashed differently")
	}
	if digestA == digestC {
		t.Fatal("different content collided")
	}
	if len(FormatDigest(digestA)) != 64 {
		t.Fatalf("digest hex = %q", FormatDigest(digestA))
	}
}
