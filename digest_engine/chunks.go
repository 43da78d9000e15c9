package digest_engine

import (
	"strings"
)

// ChunkDigests splits text into consecutive groups of chunkLines lines and
// digests each group. Line terminators belong to the line they end, so the
// digests of all chunks together cover every byte of text. The final group
// may be shorter. Empty text yields an empty, non-nil slice.
func ChunkDigests(text string, algorithm string, chunkLines int) ([]string, error) {
	if chunkLines <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if _, err := New(algorithm); err != nil {
		return nil, err
	}

	digests := make([]string, 0)
	if text == "" {
		return digests, nil
	}

	lines := SplitLines(text)
	for start := 0; start < len(lines); start += chunkLines {
		end := start + chunkLines
		if end > len(lines) {
			end = len(lines)
		}

		digest, err := DigestString(strings.Join(lines[start:end], ""), algorithm)
		if err != nil {
			return nil, err
		}
		digests = append(digests, digest)
	}

	return digests, nil
}

// SplitLines splits text after every line feed. A trailing line without a
// terminator is kept; the empty remainder after a final line feed is not.
func SplitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// FormatHex groups a hex digest into space separated byte pairs for display.
func FormatHex(digest string) string {
	var builder strings.Builder
	for i := 0; i < len(digest); i += 2 {
		if i > 0 {
			builder.WriteByte(' ')
		}
		end := i + 2
		if end > len(digest) {
			end = len(digest)
		}
		builder.WriteString(digest[i:end])
	}
	return builder.String()
}
