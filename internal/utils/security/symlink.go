package security

import (
	"fmt"
	"os"
	"path/filepath"
)

// SymlinkPolicy selects how file helpers treat symbolic links.
type SymlinkPolicy int

const (
	// RejectSymlinks refuses any symlink with an error.
	RejectSymlinks SymlinkPolicy = iota
	// ResolveSymlinks follows the link and operates on the target.
	ResolveSymlinks
)

// CheckSymlink applies the policy to path and returns the path to operate
// on.
func CheckSymlink(path string, policy SymlinkPolicy) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return path, nil
	}

	switch policy {
	case RejectSymlinks:
		return "", fmt.Errorf("symlinks are not allowed: %s", path)
	case ResolveSymlinks:
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", fmt.Errorf("resolving symlink %s: %w", path, err)
		}
		return resolved, nil
	default:
		return "", fmt.Errorf("invalid symlink policy: %d", policy)
	}
}

// SafeReadFile reads a file after applying the symlink policy.
func SafeReadFile(path string, policy SymlinkPolicy) ([]byte, error) {
	resolved, err := CheckSymlink(path, policy)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(resolved)
}

// SafeWriteFile writes data to path after applying the symlink policy to
// both an existing target and its parent directory.
func SafeWriteFile(path string, data []byte, perm os.FileMode, policy SymlinkPolicy) error {
	if _, err := os.Lstat(path); err == nil {
		resolved, err := CheckSymlink(path, policy)
		if err != nil {
			return fmt.Errorf("existing file symlink check failed: %w", err)
		}
		path = resolved
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if _, err := os.Lstat(dir); err == nil {
			resolved, err := CheckSymlink(dir, policy)
			if err != nil {
				return fmt.Errorf("parent directory symlink check failed: %w", err)
			}
			if resolved != dir {
				path = filepath.Join(resolved, filepath.Base(path))
			}
		}
	}

	return os.WriteFile(path, data, perm)
}
