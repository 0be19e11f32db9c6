package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

func exists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsExist(err) {
			return true
		}

		return false
	}
	return true
}

// Workspace is a scratch folder owned by a single scanner run.
type Workspace struct {
	Path string
}

// NewWorkspace creates <root>/<prefix>-<uuid>. The random suffix keeps
// concurrent runs for the same project apart.
func NewWorkspace(root, prefix string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}

	path := filepath.Join(root, fmt.Sprintf("%s-%s", prefix, uuid.NewString()))
	if exists(path) {
		return nil, fmt.Errorf("workspace %s already exists", path)
	}

	if err := os.MkdirAll(path, os.FileMode(0755)); err != nil {
		return nil, err
	}

	return &Workspace{Path: path}, nil
}

// RepoDir is where the repository gets cloned.
func (w *Workspace) RepoDir() string {
	return filepath.Join(w.Path, "repo")
}

// ReportPath names the raw report of the index-th target of a scanner kind.
func (w *Workspace) ReportPath(kind string, index int) string {
	if index == 0 {
		return filepath.Join(w.Path, fmt.Sprintf("report-%s.json", kind))
	}
	return filepath.Join(w.Path, fmt.Sprintf("report-%s-%d.json", kind, index))
}

// Release removes the workspace. Releasing twice is a no-op.
func (w *Workspace) Release() error {
	if w.Path == "" {
		return nil
	}

	// Check directory is legal
	pwd, err := os.Getwd()
	if err == nil && pwd == w.Path {
		return errors.New("refusing to remove the working directory")
	}

	err = os.RemoveAll(w.Path)
	if err != nil {
		return err
	}

	w.Path = ""
	return nil
}
