package text_snapshot

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/meysamhadeli/verilite/integrity_checker/contracts"
	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/spf13/afero"
)

// Extraction kinds recorded in text snapshots.
const (
	KindPlainText    = "plain-text"
	KindDocumentPDF  = "document-pdf"
	KindDocumentDOCX = "document-docx"
)

// PlainTextExtensions are read directly as text.
var PlainTextExtensions = []string{
	".txt", ".log", ".csv", ".json", ".xml", ".ini", ".cfg",
	".md", ".py", ".cs", ".java", ".js", ".ts", ".html", ".css",
}

// FormatExtractor pulls raw text out of one file format.
type FormatExtractor interface {
	Kind() string
	Extract(fsys afero.Fs, path string) (string, error)
}

// Registry selects a FormatExtractor by lower-cased file extension.
type Registry struct {
	mutex      sync.RWMutex
	extractors map[string]FormatExtractor
}

var _ contracts.ITextExtractor = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]FormatExtractor)}
}

// NewDefaultRegistry creates a registry with plain text, PDF and DOCX support.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	plain := PlainTextExtractor{}
	for _, ext := range PlainTextExtensions {
		registry.Register(ext, plain)
	}
	registry.Register(".pdf", PDFExtractor{})
	registry.Register(".docx", DOCXExtractor{})
	return registry
}

// Register binds an extractor to an extension such as ".txt".
func (r *Registry) Register(ext string, extractor FormatExtractor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.extractors[normalizeExt(ext)] = extractor
}

// Supports reports whether a file with this path would be extracted.
func (r *Registry) Supports(path string) bool {
	return r.lookup(path) != nil
}

// TryExtract returns the normalized text of the file, or nil when its
// extension has no extractor.
func (r *Registry) TryExtract(fsys afero.Fs, path string) (*models.ExtractedText, error) {
	extractor := r.lookup(path)
	if extractor == nil {
		return nil, nil
	}

	raw, err := extractor.Extract(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s text: %w", extractor.Kind(), err)
	}

	return &models.ExtractedText{
		Kind: extractor.Kind(),
		Text: Normalize(strings.ToValidUTF8(raw, "\uFFFD")),
	}, nil
}

func (r *Registry) lookup(path string) FormatExtractor {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.extractors[normalizeExt(filepath.Ext(path))]
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
