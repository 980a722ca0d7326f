package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "prefs.json"))
	p, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p != Defaults() {
		t.Errorf("prefs = %+v, want defaults", p)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	store := NewStore(path)

	want := Prefs{PushToTalk: true, EventsPaneExpanded: false, AudioPlaybackEnabled: false}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("prefs = %+v, want %+v", got, want)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte(`{"push_to_talk": true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.PushToTalk {
		t.Error("push_to_talk not read from file")
	}
	if !got.EventsPaneExpanded || !got.AudioPlaybackEnabled {
		t.Error("absent fields should keep their defaults")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte(`{broken`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(path).Load()
	if err == nil {
		t.Fatal("expected error for corrupt file")
	}
	if got != Defaults() {
		t.Errorf("prefs on error = %+v, want defaults", got)
	}
}
