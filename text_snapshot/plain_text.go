package text_snapshot

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainTextExtractor reads a file as UTF-8, falling back to Latin-1 when
// the bytes are not valid UTF-8.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Kind() string { return KindPlainText }

func (PlainTextExtractor) Extract(fsys afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", err
	}
	return DecodeText(data)
}

// DecodeText decodes UTF-8 (dropping a byte order mark) or, failing that, Latin-1.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	reader := transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("transcode from latin-1: %w", err)
	}
	return string(decoded), nil
}
