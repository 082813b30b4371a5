package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the directories relative paths are resolved against
type Paths struct {
	WorkingDir    string
	ExecutableDir string
}

// GetPaths returns the working and executable directories
func GetPaths() (*Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %v", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return &Paths{
		WorkingDir:    wd,
		ExecutableDir: filepath.Dir(exe),
	}, nil
}

// Resolve makes p absolute. A relative path that exists under the working
// directory wins; otherwise a copy next to the executable is used if present.
// Paths that exist in neither place resolve against the working directory so
// error messages point where users expect. Empty stays empty.
func (p *Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	fromWD := filepath.Join(p.WorkingDir, path)
	if FileExists(fromWD) {
		return fromWD
	}

	fromExe := filepath.Join(p.ExecutableDir, path)
	if FileExists(fromExe) {
		return fromExe
	}

	return fromWD
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
