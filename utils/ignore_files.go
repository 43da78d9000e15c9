package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// IgnoreFileName is the per-tree ignore file read from the scan root.
const IgnoreFileName = ".verilite-ignore"

// ignoreCacheEntry holds parsed ignore patterns with the file's modification time
type ignoreCacheEntry struct {
	patterns []string
	modTime  time.Time
}

// Cache of parsed ignore files, reused across watch cycles
var (
	ignoreCache = make(map[string]*ignoreCacheEntry)
	cacheMutex  sync.RWMutex
)

// GetIgnorePatterns reads the patterns from the root's ignore file.
// If the file does not exist, it returns an empty pattern list.
func GetIgnorePatterns(fsys afero.Fs, root string) ([]string, error) {
	ignorePath := filepath.Join(root, IgnoreFileName)

	fileInfo, err := fsys.Stat(ignorePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error checking %s: %w", IgnoreFileName, err)
	}

	cacheMutex.RLock()
	if cached, exists := ignoreCache[ignorePath]; exists {
		if fileInfo.ModTime().Equal(cached.modTime) {
			cacheMutex.RUnlock()
			return cached.patterns, nil
		}
	}
	cacheMutex.RUnlock()

	patterns, err := readIgnoreFile(fsys, ignorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}

	cacheMutex.Lock()
	ignoreCache[ignorePath] = &ignoreCacheEntry{
		patterns: patterns,
		modTime:  fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return patterns, nil
}

// readIgnoreFile returns the non-empty, non-comment lines of an ignore file.
func readIgnoreFile(fsys afero.Fs, ignorePath string) ([]string, error) {
	content, err := afero.ReadFile(fsys, ignorePath)
	if err != nil {
		return nil, err
	}
	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// ValidatePatterns reports the first pattern doublestar cannot parse.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(strings.TrimSuffix(pattern, "/")) {
			return fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}
	return nil
}

// IsIgnored checks a slash-separated relative path against glob patterns.
// A pattern without a slash also matches the base name at any depth, and a
// pattern ending in "/" only matches directories.
func IsIgnored(relPath string, isDir bool, patterns []string) bool {
	relPath = strings.TrimPrefix(filepath.ToSlash(relPath), "./")
	for _, pattern := range patterns {
		dirOnly := strings.HasSuffix(pattern, "/")
		pattern = strings.TrimPrefix(strings.TrimSuffix(pattern, "/"), "/")
		if pattern == "" || (dirOnly && !isDir) {
			continue
		}
		if match, _ := doublestar.Match(pattern, relPath); match {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if match, _ := doublestar.Match(pattern, path.Base(relPath)); match {
				return true
			}
		}
	}
	return false
}

// ClearIgnoreCache clears all cached ignore patterns
func ClearIgnoreCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreCache = make(map[string]*ignoreCacheEntry)
}
