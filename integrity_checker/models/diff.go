package models

// Notes attached to per-file comparisons.
const (
	NoteTextUnavailableNow = "text_unavailable_now"
	NoteTextNewlyAvailable = "text_newly_available"
	NoteChunkingMismatch   = "chunking_mismatch"
)

// DiffResult classifies every path that differs between two baselines.
// Unchanged paths appear in none of its collections.
type DiffResult struct {
	Modified   map[string]FileChange `json:"modified"`
	Added      []string              `json:"added"`
	Deleted    []string              `json:"deleted"`
	Advisories map[string]string     `json:"advisories,omitempty"`
}

// FileChange describes how one file present in both baselines changed.
// TextChanged is nil when one side has no text snapshot.
type FileChange struct {
	BaselineRaw      string     `json:"baseline_raw"`
	CurrentRaw       string     `json:"current_raw"`
	RawChanged       bool       `json:"raw_changed"`
	TextChanged      *bool      `json:"text_changed"`
	BaselineTextHash string     `json:"baseline_text_hash,omitempty"`
	CurrentTextHash  string     `json:"current_text_hash,omitempty"`
	TextNote         string     `json:"text_note,omitempty"`
	ChunkInfo        *ChunkInfo `json:"chunk_info"`
	ChunkNote        string     `json:"chunk_note,omitempty"`
}

// ChunkInfo summarizes chunk-level tamper localization. Chunk digests are
// compared as sets, so reordered content is not counted.
type ChunkInfo struct {
	TotalBaseline int     `json:"total_baseline"`
	TotalCurrent  int     `json:"total_current"`
	Removed       int     `json:"removed"`
	Added         int     `json:"added"`
	Changed       int     `json:"changed"`
	TamperRatio   float64 `json:"tamper_ratio"`
}

// HasChanges reports whether anything was modified, added or deleted.
func (d *DiffResult) HasChanges() bool {
	return len(d.Modified) > 0 || len(d.Added) > 0 || len(d.Deleted) > 0
}
