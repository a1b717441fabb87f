package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	m, err := NewManager(filepath.Join(root, "temp", "images"), filepath.Join(root, "images"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestSaveStagedAndPromote(t *testing.T) {
	m := newTestManager(t)
	data := []byte("jpeg bytes")

	name, err := m.SaveStaged(bytes.NewReader(data), "123", "jpg")
	if err != nil {
		t.Fatalf("SaveStaged: %v", err)
	}
	if name != "123.jpg" {
		t.Errorf("name = %q", name)
	}

	staged, err := m.StagedFiles()
	if err != nil || len(staged) != 1 || staged[0] != "123.jpg" {
		t.Fatalf("StagedFiles = %v, %v", staged, err)
	}
	if m.ImageCount() != 0 {
		t.Error("staged image must not count as permanent")
	}

	if err := m.Promote(name); err != nil {
		t.Fatalf("Promote: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(m.ImageDir(), "123.jpg"))
	if err != nil {
		t.Fatalf("read promoted file: %v", err)
	}
	if !bytes.Equal(content, data) {
		t.Error("promoted content differs")
	}
	if m.ImageCount() != 1 {
		t.Error("promoted image should be counted")
	}
	if staged, _ := m.StagedFiles(); len(staged) != 0 {
		t.Errorf("staging should be empty, got %v", staged)
	}
}

func TestPromoteCollision(t *testing.T) {
	m := newTestManager(t)

	if err := os.WriteFile(filepath.Join(m.ImageDir(), "9.png"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SaveStaged(bytes.NewReader([]byte("new")), "9", ".png"); err != nil {
		t.Fatal(err)
	}

	err := m.Promote("9.png")
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	content, _ := os.ReadFile(filepath.Join(m.ImageDir(), "9.png"))
	if string(content) != "old" {
		t.Error("existing image must not be overwritten")
	}
}

func TestNewManagerCountsExistingImages(t *testing.T) {
	root := t.TempDir()
	imageDir := filepath.Join(root, "images")
	os.MkdirAll(imageDir, 0755)
	os.WriteFile(filepath.Join(imageDir, "42.jpg"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(imageDir, ".hidden"), []byte("x"), 0644)

	m, err := NewManager(filepath.Join(root, "staging"), imageDir)
	if err != nil {
		t.Fatal(err)
	}
	if m.ImageCount() != 1 {
		t.Errorf("ImageCount = %d", m.ImageCount())
	}
}

func TestDiscard(t *testing.T) {
	m := newTestManager(t)
	name, _ := m.SaveStaged(bytes.NewReader([]byte("x")), "1", "jpg")

	if err := m.Discard(name); err != nil {
		t.Fatal(err)
	}
	if err := m.Discard(name); err != nil {
		t.Errorf("discarding twice should be fine: %v", err)
	}
}

func TestWriteFileAtomicFailureLeavesOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	os.WriteFile(path, []byte("before"), 0644)

	err := WriteFileAtomic(path, 0644, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return errors.New("interrupted")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	content, _ := os.ReadFile(path)
	if string(content) != "before" {
		t.Errorf("original clobbered: %q", content)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary file left behind: %d entries", len(entries))
	}
}
