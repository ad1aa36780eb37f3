package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/constants"
)

// FileHelper provides file operation utilities
type FileHelper struct{}

// NewFileHelper creates a new FileHelper
func NewFileHelper() *FileHelper {
	return &FileHelper{}
}

// IsSpecFile checks if a path names a specification file
func (h *FileHelper) IsSpecFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), constants.SpecExtension)
}

// FileExists checks if a regular file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// ReadFile reads file content
func (h *FileHelper) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ResolveRoot cleans the specification root, defaulting to the current
// directory. The root must be a directory or a single spec file.
func (h *FileHelper) ResolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return "", &domain.DiscoveryError{Root: root, Err: err}
	}
	if !info.IsDir() && !h.IsSpecFile(root) {
		return "", &domain.DiscoveryError{Root: root, Err: os.ErrInvalid}
	}
	return root, nil
}
