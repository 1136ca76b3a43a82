package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const imageExt = ".jpg"

// Manager writes downloaded images into the output directory
type Manager struct {
	outputDir string
	filePerm  os.FileMode
}

// NewManager creates the output directory (with parents) and returns a manager for it
func NewManager(outputDir string, filePerm, dirPerm os.FileMode) (*Manager, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(outputDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		filePerm:  filePerm,
	}, nil
}

// ImagePath returns the file an image with the given identifier is written to.
// The extension is always .jpg whatever the actual image format.
func (m *Manager) ImagePath(id string) string {
	return filepath.Join(m.outputDir, id+imageExt)
}

// SaveImage writes data to <outputDir>/<id>.jpg, replacing any existing file
func (m *Manager) SaveImage(id string, data []byte) (string, error) {
	if id == "" || strings.ContainsRune(id, filepath.Separator) {
		return "", fmt.Errorf("invalid image name %q", id)
	}

	filename := m.ImagePath(id)

	tmp, err := os.CreateTemp(m.outputDir, "."+id+imageExt+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save image data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, m.filePerm); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to set file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, filename); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return filename, nil
}

// Exists reports whether an image for id is already on disk
func (m *Manager) Exists(id string) bool {
	_, err := os.Stat(m.ImagePath(id))
	return err == nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// CountImages returns the number of .jpg files in the output directory
func (m *Manager) CountImages() (int, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == imageExt && !strings.HasPrefix(entry.Name(), ".") {
			count++
		}
	}
	return count, nil
}
