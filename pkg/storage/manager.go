// Package storage manages image files: downloads land in a staging directory
// and are promoted into the permanent image directory once their post is archived.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrExists is returned when promoting a file whose name is already taken in the image directory
var ErrExists = errors.New("image already exists")

// Manager handles staging and permanent image directories
type Manager struct {
	stagingDir string
	imageDir   string
	images     int
	mu         sync.RWMutex
}

// NewManager creates both directories if needed and counts the permanent images
func NewManager(stagingDir, imageDir string) (*Manager, error) {
	for _, dir := range []string{stagingDir, imageDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	m := &Manager{
		stagingDir: stagingDir,
		imageDir:   imageDir,
	}

	if err := m.scanImageDir(); err != nil {
		return nil, fmt.Errorf("failed to scan existing images: %w", err)
	}

	return m, nil
}

func (m *Manager) scanImageDir() error {
	entries, err := os.ReadDir(m.imageDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		m.images++
	}
	return nil
}

// FileName returns the image file name for a post id and extension
func FileName(id, ext string) string {
	return id + "." + strings.TrimPrefix(ext, ".")
}

// ImageCount returns the number of images in the permanent directory
func (m *Manager) ImageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.images
}

// SaveStaged streams r into the staging directory as <id>.<ext> and returns the file name
func (m *Manager) SaveStaged(r io.Reader, id, ext string) (string, error) {
	name := FileName(id, ext)
	path := filepath.Join(m.stagingDir, name)

	err := WriteFileAtomic(path, 0644, func(w io.Writer) error {
		if _, err := io.Copy(w, r); err != nil {
			return fmt.Errorf("failed to write image data: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// Promote moves a staged file into the permanent image directory.
// It refuses to overwrite an existing image and returns ErrExists instead.
func (m *Manager) Promote(name string) error {
	src := filepath.Join(m.stagingDir, name)
	dst := filepath.Join(m.imageDir, name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%s: %w", name, ErrExists)
	}

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s: %w", name, err)
	}

	m.images++
	return nil
}

// Discard removes a staged file; a missing file is not an error
func (m *Manager) Discard(name string) error {
	if err := os.Remove(filepath.Join(m.stagingDir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to discard %s: %w", name, err)
	}
	return nil
}

// StagedFiles lists the files currently in the staging directory
func (m *Manager) StagedFiles() ([]string, error) {
	entries, err := os.ReadDir(m.stagingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// StagingDir returns the staging directory path
func (m *Manager) StagingDir() string {
	return m.stagingDir
}

// ImageDir returns the permanent image directory path
func (m *Manager) ImageDir() string {
	return m.imageDir
}
