package integrity_checker

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// SignatureExt replaces the baseline file's extension to name its token file.
	SignatureExt = ".sig"
	// SnapshotDirExt replaces the baseline file's extension to name the default snapshot directory.
	SnapshotDirExt = ".snapshots"
	// SnapshotSuffix is appended to a relative source path to name its text snapshot.
	SnapshotSuffix = ".snapshot.txt"
)

// SignaturePathFor returns the token path that sits next to a baseline file.
func SignaturePathFor(baselinePath string) string {
	return withExt(baselinePath, SignatureExt)
}

// SnapshotDirFor returns the default snapshot directory for a baseline file.
func SnapshotDirFor(baselinePath string) string {
	return withExt(baselinePath, SnapshotDirExt)
}

// ValidateBaselinePath rejects baseline names whose token file or snapshot
// directory would be the baseline file itself, e.g. "baseline.sig".
func ValidateBaselinePath(baselinePath string) error {
	if SignaturePathFor(baselinePath) == baselinePath {
		return fmt.Errorf("%w: %s would be overwritten by its own %s token", ErrInvalidBaselinePath, baselinePath, SignatureExt)
	}
	if SnapshotDirFor(baselinePath) == baselinePath {
		return fmt.Errorf("%w: %s is also its default snapshot directory", ErrInvalidBaselinePath, baselinePath)
	}
	return nil
}

// checkSnapshotDir rejects a snapshot directory that is root or above it.
// Snapshots written there would be scanned back in as tree content.
func checkSnapshotDir(root string, snapshotDir string) error {
	if isWithin(root, snapshotDir) {
		return fmt.Errorf("%w: %s holds %s", ErrSnapshotDirOverlapsRoot, snapshotDir, root)
	}
	return nil
}

// tempPattern names the temporary files written while saving path atomically.
func tempPattern(path string) string {
	return "." + filepath.Base(path) + ".tmp-*"
}

func isTempFor(candidate string, path string) bool {
	if filepath.Dir(candidate) != filepath.Dir(path) {
		return false
	}
	return strings.HasPrefix(filepath.Base(candidate), "."+filepath.Base(path)+".tmp-")
}

// RelativePath returns path relative to root in slash form.
func RelativePath(root string, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, root)
	}
	return filepath.ToSlash(rel), nil
}

// isWithin reports whether path is dir itself or below it.
func isWithin(path string, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func withExt(path string, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
