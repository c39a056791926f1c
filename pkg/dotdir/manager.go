// Package dotdir manages the .reverie/ and ~/.reverie directories where
// configuration and the default sqlite database live.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the reverie directory.
	dirName = ".reverie"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .reverie/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.reverie/ dir
//  3. Home ~/.reverie/ dir
//  4. If none found, attempt to create ~/.reverie/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reverie directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DatabasePath returns the default sqlite database path inside the target
// directory.
func (m *Manager) DatabasePath(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(target, "reverie.db"), nil
}

// localDirExists checks whether a .reverie/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
