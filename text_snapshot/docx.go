package text_snapshot

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

const wordprocessingNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const docxBodyPart = "word/document.xml"

var errDocxBodyMissing = errors.New("docx archive has no " + docxBodyPart)

// DOCXExtractor reads body paragraphs followed by table rows, with the
// stripped cells of a row joined by tabs.
type DOCXExtractor struct{}

func (DOCXExtractor) Kind() string { return KindDocumentDOCX }

func (DOCXExtractor) Extract(fsys afero.Fs, path string) (string, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", err
	}

	archive, err := zip.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	for _, part := range archive.File {
		if part.Name != docxBodyPart {
			continue
		}
		body, err := part.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", docxBodyPart, err)
		}
		defer body.Close()
		return parseDocumentXML(body)
	}

	return "", errDocxBodyMissing
}

// parseDocumentXML walks WordprocessingML tokens. Paragraphs inside a table
// belong to its cells; nested tables are folded into the outer cell.
func parseDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		rows       []string
		cells      []string
		cellText   []string
		paragraph  strings.Builder
		tableDepth int
		inText     bool
		inTabStops bool
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", docxBodyPart, err)
		}

		switch element := token.(type) {
		case xml.StartElement:
			if element.Name.Space != wordprocessingNamespace {
				continue
			}
			switch element.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				if tableDepth == 1 {
					cells = nil
				}
			case "tc":
				if tableDepth == 1 {
					cellText = nil
				}
			case "p":
				paragraph.Reset()
			case "t":
				inText = true
			case "tabs":
				inTabStops = true
			case "tab":
				if !inTabStops {
					paragraph.WriteByte('\t')
				}
			case "br", "cr":
				paragraph.WriteByte('\n')
			}

		case xml.EndElement:
			if element.Name.Space != wordprocessingNamespace {
				continue
			}
			switch element.Name.Local {
			case "t":
				inText = false
			case "tabs":
				inTabStops = false
			case "p":
				text := paragraph.String()
				if tableDepth == 0 {
					if text != "" {
						paragraphs = append(paragraphs, text)
					}
				} else {
					cellText = append(cellText, text)
				}
			case "tc":
				if tableDepth == 1 {
					cells = append(cells, strings.TrimSpace(strings.Join(cellText, "\n")))
				}
			case "tr":
				if tableDepth == 1 {
					row := strings.Join(cells, "\t")
					if strings.TrimSpace(row) != "" {
						rows = append(rows, row)
					}
				}
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			}

		case xml.CharData:
			if inText {
				paragraph.Write(element)
			}
		}
	}

	return strings.Join(append(paragraphs, rows...), "\n"), nil
}
