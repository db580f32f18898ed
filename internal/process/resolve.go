package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/giantswarm/sidecarshell/internal/sentinel"
)

// ErrBinaryNotFound is returned by ResolveBinary when no candidate exists.
const ErrBinaryNotFound = sentinel.Error("sidecar binary not found")

// candidates lists the file names a bundled sidecar may carry in dir:
// the plain name and the platform-suffixed name used by packagers.
func candidates(dir, name string) []string {
	names := []string{name, fmt.Sprintf("%s-%s-%s", name, runtime.GOOS, runtime.GOARCH)}
	if runtime.GOOS == "windows" {
		for i, n := range names {
			if !strings.HasSuffix(n, ".exe") {
				names[i] = n + ".exe"
			}
		}
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, filepath.Join(dir, n))
	}
	return out
}

// isExecutableFile reports whether path is a regular file we may run.
func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// ResolveBinary locates the sidecar executable.
//
// A name containing a path separator is used as-is. Otherwise each directory
// in dirs is searched for the plain and platform-suffixed names; when dirs is
// empty the directory of the running shell executable is searched, because
// the sidecar ships alongside it. $PATH is the last resort.
func ResolveBinary(name string, dirs ...string) (string, error) {
	if name == "" {
		return "", ErrEmptyBinary
	}
	if strings.ContainsRune(name, os.PathSeparator) || strings.ContainsRune(name, '/') {
		if isExecutableFile(name) {
			return filepath.Abs(name)
		}
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
	}

	if len(dirs) == 0 {
		if exe, err := os.Executable(); err == nil {
			dirs = []string{filepath.Dir(exe)}
		}
	}
	for _, dir := range dirs {
		for _, path := range candidates(dir, name) {
			if isExecutableFile(path) {
				return path, nil
			}
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s (searched %s and $PATH)", ErrBinaryNotFound, name, strings.Join(dirs, ", "))
		}
		return "", fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, name, err)
	}
	return path, nil
}
