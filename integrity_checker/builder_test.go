package integrity_checker

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/meysamhadeli/verilite/text_snapshot"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingExtractor struct {
	err error
}

func (f failingExtractor) TryExtract(afero.Fs, string) (*models.ExtractedText, error) {
	return nil, f.err
}

// Test a plain text file gets raw, text and chunk digests plus a persisted snapshot
func TestRecordBuilder_TextFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"docs/a.txt": "hello  \r\nworld"})

	builder := NewRecordBuilder(fsys, text_snapshot.NewDefaultRegistry(), 0, logger.NopSink{})
	record, err := builder.Build("/tree/docs/a.txt", testRoot, "/snapshots", "sha256")
	require.NoError(t, err)

	rawHash, err := digest_engine.DigestString("hello  \r\nworld", "sha256")
	require.NoError(t, err)
	textHash, err := digest_engine.DigestString("hello\nworld\n", "sha256")
	require.NoError(t, err)

	assert.Equal(t, "docs/a.txt", record.Path)
	assert.Equal(t, ".txt", record.Ext)
	assert.Equal(t, int64(14), record.Size)
	assert.Equal(t, rawHash, record.RawHash)
	assert.True(t, strings.HasPrefix(record.Mime, "text/plain"))

	require.NotNil(t, record.Text)
	assert.Equal(t, text_snapshot.KindPlainText, record.Text.Kind)
	assert.Equal(t, textHash, record.Text.Hash)
	assert.Equal(t, models.Chunking{Method: models.ChunkMethodFixedLines, Lines: DefaultChunkLines}, record.Text.Chunking)
	assert.Equal(t, []string{textHash}, record.Text.Chunks)
	assert.Equal(t, "docs/a.txt.snapshot.txt", record.Text.SnapshotRef)

	persisted, err := afero.ReadFile(fsys, "/snapshots/docs/a.txt.snapshot.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(persisted))
}

// Test rebuilding unchanged content rewrites identical snapshot bytes
func TestRecordBuilder_SnapshotIdempotent(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"a.md": "# Title\n\nBody\n"})
	builder := NewRecordBuilder(fsys, text_snapshot.NewDefaultRegistry(), 20, logger.NopSink{})

	first, err := builder.Build("/tree/a.md", testRoot, "/snapshots", "sha256")
	require.NoError(t, err)
	before, err := afero.ReadFile(fsys, "/snapshots/a.md.snapshot.txt")
	require.NoError(t, err)

	second, err := builder.Build("/tree/a.md", testRoot, "/snapshots", "sha256")
	require.NoError(t, err)
	after, err := afero.ReadFile(fsys, "/snapshots/a.md.snapshot.txt")
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, first.Text, second.Text)
}

// Test binary files and whitespace-only text produce no text snapshot
func TestRecordBuilder_NoText(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"b.bin":     "\x00\x01\x02binary",
		"blank.txt": " \n\t\r\n  ",
	})
	builder := NewRecordBuilder(fsys, text_snapshot.NewDefaultRegistry(), 20, logger.NopSink{})

	for _, name := range []string{"b.bin", "blank.txt"} {
		record, err := builder.Build(filepath.Join(testRoot, name), testRoot, "/snapshots", "sha256")
		require.NoError(t, err, name)
		assert.Nil(t, record.Text, name)
		assert.NotEmpty(t, record.RawHash, name)
	}

	exists, err := afero.DirExists(fsys, "/snapshots")
	require.NoError(t, err)
	assert.False(t, exists)
}

// Test an empty snapshot root skips persisting text
func TestRecordBuilder_NoPersistence(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"a.txt": "hello"})
	builder := NewRecordBuilder(fsys, text_snapshot.NewDefaultRegistry(), 20, logger.NopSink{})

	record, err := builder.Build("/tree/a.txt", testRoot, "", "sha256")
	require.NoError(t, err)
	require.NotNil(t, record.Text)
	assert.Empty(t, record.Text.SnapshotRef)
	assert.NotEmpty(t, record.Text.Hash)
}

// Test a failed snapshot write keeps the record and clears the reference
func TestRecordBuilder_SnapshotWriteFailure(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFiles(t, base, map[string]string{"a.txt": "hello"})
	fsys := afero.NewReadOnlyFs(base)

	builder := NewRecordBuilder(fsys, text_snapshot.NewDefaultRegistry(), 20, logger.NopSink{})
	record, err := builder.Build("/tree/a.txt", testRoot, "/snapshots", "sha256")
	require.NoError(t, err)
	require.NotNil(t, record.Text)
	assert.Empty(t, record.Text.SnapshotRef)
	assert.NotEmpty(t, record.Text.Hash)
}

// Test unreadable and unextractable files surface as RecordBuildError
func TestRecordBuilder_Errors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"a.txt": "hello"})

	builder := NewRecordBuilder(fsys, text_snapshot.NewDefaultRegistry(), 20, logger.NopSink{})
	_, err := builder.Build("/tree/missing.txt", testRoot, "", "sha256")
	var buildErr *RecordBuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "missing.txt", buildErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	extractErr := errors.New("corrupt document")
	builder = NewRecordBuilder(fsys, failingExtractor{err: extractErr}, 20, logger.NopSink{})
	_, err = builder.Build("/tree/a.txt", testRoot, "", "sha256")
	require.ErrorAs(t, err, &buildErr)
	assert.ErrorIs(t, err, extractErr)

	_, err = builder.Build("/elsewhere/a.txt", testRoot, "", "sha256")
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "resolve", buildErr.Op)
}

// Test chunk size changes the chunking parameters and chunk count
func TestRecordBuilder_ChunkLines(t *testing.T) {
	fsys := afero.NewMemMapFs()
	var lines []string
	for i := 0; i < 45; i++ {
		lines = append(lines, strings.Repeat("x", i+1))
	}
	writeFiles(t, fsys, map[string]string{"long.txt": strings.Join(lines, "\n")})

	builder := NewRecordBuilder(fsys, text_snapshot.NewDefaultRegistry(), 10, logger.NopSink{})
	record, err := builder.Build("/tree/long.txt", testRoot, "", "sha256")
	require.NoError(t, err)
	require.NotNil(t, record.Text)
	assert.Equal(t, 10, record.Text.Chunking.Lines)
	assert.Len(t, record.Text.Chunks, 5)
}
