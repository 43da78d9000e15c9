package integrity_checker

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBaseline() *models.Baseline {
	return &models.Baseline{
		SchemaVersion: models.SchemaVersion,
		Algorithm:     "sha256",
		BaseDir:       "/tree",
		SnapshotDir:   "/out/baseline.snapshots",
		CreatedAt:     time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC),
		Files: []models.FileRecord{
			{Path: "a.txt", Ext: ".txt", Size: 5, RawHash: "r1", Text: &models.TextSnapshot{
				Kind:        "plain-text",
				Hash:        "t1",
				SnapshotRef: "a.txt.snapshot.txt",
				Chunking:    models.Chunking{Method: models.ChunkMethodFixedLines, Lines: 20},
				Chunks:      []string{"c1"},
			}},
			{Path: "b.bin", Ext: ".bin", Size: 2, RawHash: "r2"},
		},
	}
}

// Test a saved baseline loads back unchanged
func TestStore_SaveAndLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewStore(fsys, logger.NopSink{})
	baseline := sampleBaseline()

	require.NoError(t, store.Save(baseline, "/out/baseline.json"))

	loaded, err := store.Load("/out/baseline.json", "SHA-256")
	require.NoError(t, err)
	assert.Equal(t, baseline, loaded)

	data, err := afero.ReadFile(fsys, "/out/baseline.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"schema_version\": 2,")

	token, err := afero.ReadFile(fsys, "/out/baseline.sig")
	require.NoError(t, err)
	assert.Len(t, string(token), 64)
	assert.NotContains(t, string(token), "\n")

	entries, err := afero.ReadDir(fsys, "/out")
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Equal(t, []string{"baseline.json", "baseline.sig"}, names)
}

// Test flipping any single byte of the data file is detected
func TestStore_SingleByteFlip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewStore(fsys, logger.NopSink{})
	require.NoError(t, store.Save(sampleBaseline(), "/out/baseline.json"))

	original, err := afero.ReadFile(fsys, "/out/baseline.json")
	require.NoError(t, err)

	for _, offset := range []int{0, len(original) / 3, len(original) / 2, len(original) - 1} {
		tampered := append([]byte{}, original...)
		tampered[offset] ^= 0x01
		require.NoError(t, afero.WriteFile(fsys, "/out/baseline.json", tampered, 0644))

		loaded, err := store.Load("/out/baseline.json", "sha256")
		assert.ErrorIs(t, err, ErrTamperDetected, "offset %d", offset)
		assert.Nil(t, loaded)
	}
}

// Test a missing token is treated as tampering and a missing baseline is not
func TestStore_MissingFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewStore(fsys, logger.NopSink{})

	_, err := store.Load("/out/baseline.json", "sha256")
	assert.ErrorIs(t, err, ErrBaselineNotFound)
	assert.NotErrorIs(t, err, ErrTamperDetected)

	require.NoError(t, store.Save(sampleBaseline(), "/out/baseline.json"))
	require.NoError(t, fsys.Remove("/out/baseline.sig"))

	_, err = store.Load("/out/baseline.json", "sha256")
	assert.ErrorIs(t, err, ErrTamperDetected)
	assert.NotErrorIs(t, err, ErrBaselineNotFound)
}

// Test loading with another algorithm fails the token check with a hint
func TestStore_AlgorithmMismatch(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewStore(fsys, logger.NopSink{})
	require.NoError(t, store.Save(sampleBaseline(), "/out/baseline.json"))

	_, err := store.Load("/out/baseline.json", "md5")
	require.ErrorIs(t, err, ErrTamperDetected)
	assert.Contains(t, err.Error(), "another algorithm")

	_, err = store.Load("/out/baseline.json", "whirlpool")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

// Test a correctly signed baseline whose declared algorithm differs is malformed
func TestStore_DeclaredAlgorithmMismatch(t *testing.T) {
	fsys := afero.NewMemMapFs()
	baseline := sampleBaseline()
	baseline.Algorithm = "md5"
	data, err := Marshal(baseline)
	require.NoError(t, err)
	signData(t, fsys, "/out/baseline.json", data, "sha256")

	_, err = NewStore(fsys, logger.NopSink{}).Load("/out/baseline.json", "sha256")
	assert.ErrorIs(t, err, ErrMalformedBaseline)
}

// Test unknown schema versions, garbage and duplicate paths are refused
func TestStore_Malformed(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewStore(fsys, logger.NopSink{})

	signData(t, fsys, "/out/future.json", []byte(`{"schema_version": 7, "algorithm": "sha256", "files": []}`), "sha256")
	_, err := store.Load("/out/future.json", "sha256")
	assert.ErrorIs(t, err, ErrMalformedBaseline)

	signData(t, fsys, "/out/garbage.json", []byte(`[1, 2, 3]`), "sha256")
	_, err = store.Load("/out/garbage.json", "sha256")
	assert.ErrorIs(t, err, ErrMalformedBaseline)

	duplicate := sampleBaseline()
	duplicate.Files = append(duplicate.Files, models.FileRecord{Path: "a.txt", RawHash: "r3"})
	data, err := Marshal(duplicate)
	require.NoError(t, err)
	signData(t, fsys, "/out/duplicate.json", data, "sha256")
	_, err = store.Load("/out/duplicate.json", "sha256")
	assert.ErrorIs(t, err, ErrMalformedBaseline)

	err = store.Save(duplicate, "/out/never.json")
	assert.ErrorIs(t, err, ErrMalformedBaseline)
	exists, err := afero.Exists(fsys, "/out/never.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

// Test the legacy flat manifest is migrated into raw-only records
func TestStore_LegacyManifest(t *testing.T) {
	fsys := afero.NewMemMapFs()
	legacy := `{
    "docs/b.txt": "bbb",
    "a.txt": "aaa"
}`
	signData(t, fsys, "/out/baseline.json", []byte(legacy), "sha256")

	loaded, err := NewStore(fsys, logger.NopSink{}).Load("/out/baseline.json", "sha256")
	require.NoError(t, err)

	assert.Equal(t, models.SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, "sha256", loaded.Algorithm)
	require.Len(t, loaded.Files, 2)
	assert.Equal(t, "a.txt", loaded.Files[0].Path)
	assert.Equal(t, "aaa", loaded.Files[0].RawHash)
	assert.Nil(t, loaded.Files[0].Text)
	assert.Equal(t, "bbb", loaded.Files[1].RawHash)
}

// Test clearing snapshots removes the directory and counts files
func TestStore_ClearSnapshots(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/out/baseline.snapshots/a.txt.snapshot.txt", []byte("a\n"), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/out/baseline.snapshots/docs/b.md.snapshot.txt", []byte("b\n"), 0644))
	store := NewStore(fsys, logger.NopSink{})

	removed, err := store.ClearSnapshots("/out/baseline.snapshots")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = fsys.Stat("/out/baseline.snapshots")
	assert.True(t, os.IsNotExist(err))

	removed, err = store.ClearSnapshots("/out/baseline.snapshots")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

// Test clearing only deletes snapshot files and prunes directories left empty
func TestStore_ClearSnapshotsKeepsOtherFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"precious.db":                  "data",
		"a.txt.snapshot.txt":           "a\n",
		"docs/keep.md":                 "keep",
		"docs/b.md.snapshot.txt":       "b\n",
		"only/deep/c.txt.snapshot.txt": "c\n",
	})
	store := NewStore(fsys, logger.NopSink{})

	removed, err := store.ClearSnapshots(testRoot)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	for _, kept := range []string{"/tree/precious.db", "/tree/docs/keep.md"} {
		exists, err := afero.Exists(fsys, kept)
		require.NoError(t, err)
		assert.True(t, exists, kept)
	}
	for _, gone := range []string{"/tree/a.txt.snapshot.txt", "/tree/docs/b.md.snapshot.txt", "/tree/only"} {
		exists, err := afero.Exists(fsys, gone)
		require.NoError(t, err)
		assert.False(t, exists, gone)
	}
}

// Test pruning keeps the snapshots the baseline still references
func TestStore_PruneSnapshots(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/out/baseline.snapshots/a.txt.snapshot.txt", []byte("a\n"), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/out/baseline.snapshots/old/gone.txt.snapshot.txt", []byte("gone\n"), 0644))
	store := NewStore(fsys, logger.NopSink{})

	removed, err := store.PruneSnapshots("/out/baseline.snapshots", sampleBaseline())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	exists, err := afero.Exists(fsys, "/out/baseline.snapshots/a.txt.snapshot.txt")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.Exists(fsys, "/out/baseline.snapshots/old")
	require.NoError(t, err)
	assert.False(t, exists)
}

// Test a baseline name that would share a file with its token is refused
func TestStore_RejectsCollidingBaselinePath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewStore(fsys, logger.NopSink{})

	for _, path := range []string{"/out/baseline.sig", "/out/baseline.snapshots", "/out/.sig"} {
		err := store.Save(sampleBaseline(), path)
		assert.ErrorIs(t, err, ErrInvalidBaselinePath, path)

		exists, err := afero.Exists(fsys, path)
		require.NoError(t, err)
		assert.False(t, exists, path)
	}

	assert.NoError(t, ValidateBaselinePath("/out/baseline.json"))
	assert.NoError(t, ValidateBaselinePath("/out/baseline"))
}

// Test helper paths derived from the baseline file name
func TestStore_DerivedPaths(t *testing.T) {
	assert.Equal(t, "/out/baseline.sig", SignaturePathFor("/out/baseline.json"))
	assert.Equal(t, "/out/baseline.snapshots", SnapshotDirFor("/out/baseline.json"))
	assert.Equal(t, "/out/manifest.sig", SignaturePathFor("/out/manifest"))
	assert.True(t, strings.HasPrefix(tempPattern("/out/baseline.json"), ".baseline.json.tmp-"))
	assert.True(t, isTempFor("/out/.baseline.json.tmp-42", "/out/baseline.json"))
	assert.False(t, isTempFor("/other/.baseline.json.tmp-42", "/out/baseline.json"))
}
