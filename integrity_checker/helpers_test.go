package integrity_checker

import (
	"path/filepath"
	"testing"

	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/meysamhadeli/verilite/text_snapshot"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testRoot = "/tree"

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, filepath.Join(testRoot, filepath.FromSlash(name)), []byte(content), 0644))
	}
}

func newTestChecker(fsys afero.Fs, options Options) *IntegrityChecker {
	return NewIntegrityChecker(fsys, text_snapshot.NewDefaultRegistry(), logger.NopSink{}, options).(*IntegrityChecker)
}

func newTestScanner(fsys afero.Fs, options ScanOptions) *Scanner {
	builder := NewRecordBuilder(fsys, text_snapshot.NewDefaultRegistry(), DefaultChunkLines, logger.NopSink{})
	return NewScanner(fsys, builder, logger.NopSink{}, options)
}

// signData writes data and a matching token the way Save would.
func signData(t *testing.T, fsys afero.Fs, path string, data []byte, algorithm string) {
	t.Helper()
	token, err := digest_engine.DigestBytes(data, algorithm)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fsys, path, data, 0644))
	require.NoError(t, afero.WriteFile(fsys, SignaturePathFor(path), []byte(token+"\n"), 0644))
}

func paths(baseline *models.Baseline) []string {
	var result []string
	for _, record := range baseline.Files {
		result = append(result, record.Path)
	}
	return result
}

func recordFor(t *testing.T, baseline *models.Baseline, path string) models.FileRecord {
	t.Helper()
	for _, record := range baseline.Files {
		if record.Path == path {
			return record
		}
	}
	t.Fatalf("no record for %s", path)
	return models.FileRecord{}
}
