package integrity_checker

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/integrity_checker/contracts"
	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/spf13/afero"
)

// DefaultChunkLines is the number of normalized text lines hashed per chunk.
const DefaultChunkLines = 20

// mimeSniffBytes bounds how much of a file is buffered for MIME detection.
const mimeSniffBytes = 3072

// RecordBuilder turns a single file into a FileRecord.
type RecordBuilder struct {
	fsys       afero.Fs
	extractor  contracts.ITextExtractor
	chunkLines int
	log        logger.Sink
}

// NewRecordBuilder creates a builder. A nil extractor disables text snapshots.
func NewRecordBuilder(fsys afero.Fs, extractor contracts.ITextExtractor, chunkLines int, log logger.Sink) *RecordBuilder {
	if chunkLines <= 0 {
		chunkLines = DefaultChunkLines
	}
	if log == nil {
		log = logger.NopSink{}
	}
	return &RecordBuilder{
		fsys:       fsys,
		extractor:  extractor,
		chunkLines: chunkLines,
		log:        log,
	}
}

// Build hashes filePath and, when its type is recognized, snapshots its text.
// The normalized text is written below snapshotRoot unless snapshotRoot is empty.
func (b *RecordBuilder) Build(filePath string, baseRoot string, snapshotRoot string, algorithm string) (*models.FileRecord, error) {
	relativePath, err := RelativePath(baseRoot, filePath)
	if err != nil {
		return nil, &RecordBuildError{Path: filePath, Op: "resolve", Err: err}
	}

	info, err := b.fsys.Stat(filePath)
	if err != nil {
		return nil, &RecordBuildError{Path: relativePath, Op: "stat", Err: err}
	}

	rawHash, mime, err := b.hashRaw(filePath, algorithm)
	if err != nil {
		return nil, &RecordBuildError{Path: relativePath, Op: "hash", Err: err}
	}

	record := &models.FileRecord{
		Path:    relativePath,
		Ext:     strings.ToLower(filepath.Ext(filePath)),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mime:    mime,
		RawHash: rawHash,
	}

	if b.extractor == nil {
		return record, nil
	}

	extracted, err := b.extractor.TryExtract(b.fsys, filePath)
	if err != nil {
		return nil, &RecordBuildError{Path: relativePath, Op: "extract text from", Err: err}
	}
	if extracted == nil || strings.TrimSpace(extracted.Text) == "" {
		return record, nil
	}

	snapshot, err := b.textSnapshot(extracted, algorithm)
	if err != nil {
		return nil, &RecordBuildError{Path: relativePath, Op: "hash text of", Err: err}
	}
	if snapshotRoot != "" {
		snapshot.SnapshotRef = b.writeSnapshot(snapshotRoot, relativePath, extracted.Text)
	}
	record.Text = snapshot

	return record, nil
}

// hashRaw streams the file through the digest, sniffing the MIME type from its head.
func (b *RecordBuilder) hashRaw(filePath string, algorithm string) (string, string, error) {
	file, err := b.fsys.Open(filePath)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	head := make([]byte, mimeSniffBytes)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", "", err
	}
	head = head[:n]

	digest, err := digest_engine.Digest(io.MultiReader(bytes.NewReader(head), file), algorithm)
	if err != nil {
		return "", "", err
	}
	return digest, mimetype.Detect(head).String(), nil
}

func (b *RecordBuilder) textSnapshot(extracted *models.ExtractedText, algorithm string) (*models.TextSnapshot, error) {
	textHash, err := digest_engine.DigestString(extracted.Text, algorithm)
	if err != nil {
		return nil, err
	}
	chunks, err := digest_engine.ChunkDigests(extracted.Text, algorithm, b.chunkLines)
	if err != nil {
		return nil, err
	}
	return &models.TextSnapshot{
		Kind: extracted.Kind,
		Hash: textHash,
		Chunking: models.Chunking{
			Method: models.ChunkMethodFixedLines,
			Lines:  b.chunkLines,
		},
		Chunks: chunks,
	}, nil
}

// writeSnapshot persists normalized text and returns its reference, or ""
// when the copy could not be written.
func (b *RecordBuilder) writeSnapshot(snapshotRoot string, relativePath string, text string) string {
	ref := relativePath + SnapshotSuffix
	target := filepath.Join(snapshotRoot, filepath.FromSlash(ref))

	if err := b.fsys.MkdirAll(filepath.Dir(target), 0755); err != nil {
		logger.Warnf(b.log, "Could not create snapshot directory for %s: %v", relativePath, err)
		return ""
	}
	if err := afero.WriteFile(b.fsys, target, []byte(text), 0644); err != nil {
		logger.Warnf(b.log, "Could not write text snapshot for %s: %v", relativePath, err)
		return ""
	}
	return ref
}
