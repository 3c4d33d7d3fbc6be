package registry

import (
	"path/filepath"
	"testing"
)

func TestMirrorSetThenLoadPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.json")

	m := newMirror(path)
	if err := m.set("alice", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := newMirror(path)
	if err := reloaded.load(); err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if reloaded.data["alice"].Samples != 3 {
		t.Fatalf("expected 3 samples after reload, got %d", reloaded.data["alice"].Samples)
	}
}

func TestMirrorLoadMissingFileIsNotAnError(t *testing.T) {
	m := newMirror(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err := m.load(); err != nil {
		t.Fatalf("expected a missing mirror file to be a no-op, got %v", err)
	}
}

func TestMirrorDeleteRemovesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.json")
	m := newMirror(path)

	if err := m.set("alice", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.delete("alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.data["alice"]; ok {
		t.Fatalf("expected alice to be removed from the mirror")
	}
}

func TestMirrorReplaceOverwritesWholeSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.json")
	m := newMirror(path)

	if err := m.set("alice", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.replace(map[string]mirrorEntry{"bob": {Samples: 5}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.data["alice"]; ok {
		t.Fatalf("expected replace to drop the previous entry")
	}
	if m.data["bob"].Samples != 5 {
		t.Fatalf("expected bob with 5 samples, got %d", m.data["bob"].Samples)
	}
}
