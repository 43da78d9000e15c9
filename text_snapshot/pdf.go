package text_snapshot

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/afero"
)

// PDFExtractor pulls the plain text layer out of PDF documents.
type PDFExtractor struct{}

func (PDFExtractor) Kind() string { return KindDocumentPDF }

func (PDFExtractor) Extract(fsys afero.Fs, path string) (text string, err error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", err
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}
