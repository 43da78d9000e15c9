package utils

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIgnorePatterns_MissingFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/tree", 0755))

	patterns, err := GetIgnorePatterns(fsys, "/tree")
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestGetIgnorePatterns_SkipsCommentsAndBlanks(t *testing.T) {
	ClearIgnoreCache()
	fsys := afero.NewMemMapFs()
	content := "# build output\n\n*.tmp\n  logs/  \nvendor/**\n"
	require.NoError(t, afero.WriteFile(fsys, filepath.Join("/tree", IgnoreFileName), []byte(content), 0644))

	patterns, err := GetIgnorePatterns(fsys, "/tree")
	require.NoError(t, err)
	assert.Equal(t, []string{"*.tmp", "logs/", "vendor/**"}, patterns)
}

func TestGetIgnorePatterns_ReloadsWhenModified(t *testing.T) {
	ClearIgnoreCache()
	fsys := afero.NewMemMapFs()
	ignorePath := filepath.Join("/tree", IgnoreFileName)
	require.NoError(t, afero.WriteFile(fsys, ignorePath, []byte("*.a\n"), 0644))

	first, err := GetIgnorePatterns(fsys, "/tree")
	require.NoError(t, err)
	assert.Equal(t, []string{"*.a"}, first)

	require.NoError(t, afero.WriteFile(fsys, ignorePath, []byte("*.b\n"), 0644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, fsys.Chtimes(ignorePath, later, later))

	second, err := GetIgnorePatterns(fsys, "/tree")
	require.NoError(t, err)
	assert.Equal(t, []string{"*.b"}, second)
}

func TestIsIgnored(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		isDir    bool
		patterns []string
		want     bool
	}{
		{"base name at depth", "a/b/c.log", false, []string{"*.log"}, true},
		{"anchored glob", "docs/draft.md", false, []string{"docs/*.md"}, true},
		{"anchored glob elsewhere", "other/docs/draft.md", false, []string{"docs/*.md"}, false},
		{"double star", "vendor/x/y/z.go", false, []string{"vendor/**"}, true},
		{"dir pattern on dir", "build", true, []string{"build/"}, true},
		{"dir pattern on file", "build", false, []string{"build/"}, false},
		{"no match", "main.go", false, []string{"*.log", "tmp/"}, false},
		{"leading slash", "notes.txt", false, []string{"/notes.txt"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsIgnored(tt.path, tt.isDir, tt.patterns))
		})
	}
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns([]string{"*.log", "build/", "a/**/b"}))
	assert.Error(t, ValidatePatterns([]string{"[unclosed"}))
}
