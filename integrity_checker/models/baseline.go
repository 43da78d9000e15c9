package models

import "time"

// SchemaVersion is the current shape of a persisted Baseline.
const SchemaVersion = 2

// ChunkMethodFixedLines identifies chunking by a fixed number of lines.
const ChunkMethodFixedLines = "fixed_lines"

// Baseline is a trusted snapshot of a file tree's hashes and metadata.
type Baseline struct {
	SchemaVersion int          `json:"schema_version"`
	Algorithm     string       `json:"algorithm"`
	BaseDir       string       `json:"base_dir"`
	SnapshotDir   string       `json:"snapshot_dir"`
	CreatedAt     time.Time    `json:"created_at"`
	Files         []FileRecord `json:"files"`
}

// FileRecord is the state of a single file at scan time. Size, ModTime and
// Mime are advisory only.
type FileRecord struct {
	Path    string        `json:"path"`
	Ext     string        `json:"ext"`
	Size    int64         `json:"size"`
	ModTime time.Time     `json:"mtime"`
	Mime    string        `json:"mime,omitempty"`
	RawHash string        `json:"raw_hash"`
	Text    *TextSnapshot `json:"text,omitempty"`
}

// TextSnapshot describes the normalized text extracted from a file.
type TextSnapshot struct {
	Kind        string   `json:"kind"`
	Hash        string   `json:"hash"`
	SnapshotRef string   `json:"snapshot_ref"`
	Chunking    Chunking `json:"chunking"`
	Chunks      []string `json:"chunks"`
}

// Chunking records the parameters chunk hashes were computed with.
type Chunking struct {
	Method string `json:"method"`
	Lines  int    `json:"lines"`
}

// ExtractedText is what a text extractor hands back for a recognized file.
type ExtractedText struct {
	Kind string
	Text string
}
