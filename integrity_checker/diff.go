package integrity_checker

import (
	"fmt"
	"math"
	"sort"

	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/integrity_checker/models"
)

// Compare classifies the differences between a trusted baseline and a fresh one.
func Compare(old *models.Baseline, current *models.Baseline) (*models.DiffResult, error) {
	if old == nil || current == nil {
		return nil, fmt.Errorf("%w: nothing to compare", ErrMalformedBaseline)
	}
	if old.SchemaVersion != current.SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d cannot be compared with %d", ErrMalformedBaseline, old.SchemaVersion, current.SchemaVersion)
	}
	if digest_engine.NormalizeName(old.Algorithm) != digest_engine.NormalizeName(current.Algorithm) {
		return nil, fmt.Errorf("%w: baseline uses %s but the scan used %s", ErrMalformedBaseline, old.Algorithm, current.Algorithm)
	}

	oldIndex, err := indexByPath(old)
	if err != nil {
		return nil, err
	}
	currentIndex, err := indexByPath(current)
	if err != nil {
		return nil, err
	}

	result := &models.DiffResult{
		Modified:   map[string]models.FileChange{},
		Added:      []string{},
		Deleted:    []string{},
		Advisories: map[string]string{},
	}

	for path := range currentIndex {
		if _, ok := oldIndex[path]; !ok {
			result.Added = append(result.Added, path)
		}
	}
	for path, before := range oldIndex {
		after, ok := currentIndex[path]
		if !ok {
			result.Deleted = append(result.Deleted, path)
			continue
		}

		change := compareRecords(before, after)
		if change.RawChanged || (change.TextChanged != nil && *change.TextChanged) {
			result.Modified[path] = change
		} else if change.TextNote != "" {
			result.Advisories[path] = change.TextNote
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Deleted)

	return result, nil
}

func indexByPath(baseline *models.Baseline) (map[string]*models.FileRecord, error) {
	index := make(map[string]*models.FileRecord, len(baseline.Files))
	for i := range baseline.Files {
		record := &baseline.Files[i]
		if _, exists := index[record.Path]; exists {
			return nil, fmt.Errorf("%w: duplicate path %s", ErrMalformedBaseline, record.Path)
		}
		index[record.Path] = record
	}
	return index, nil
}

func compareRecords(before *models.FileRecord, after *models.FileRecord) models.FileChange {
	change := models.FileChange{
		BaselineRaw: before.RawHash,
		CurrentRaw:  after.RawHash,
		RawChanged:  before.RawHash != after.RawHash,
	}

	switch {
	case before.Text != nil && after.Text != nil:
		textChanged := before.Text.Hash != after.Text.Hash
		change.TextChanged = &textChanged
		change.BaselineTextHash = before.Text.Hash
		change.CurrentTextHash = after.Text.Hash

		if before.Text.Chunking == after.Text.Chunking {
			change.ChunkInfo = compareChunks(before.Text.Chunks, after.Text.Chunks)
		} else {
			change.ChunkNote = models.NoteChunkingMismatch
		}
	case before.Text != nil:
		change.BaselineTextHash = before.Text.Hash
		change.TextNote = models.NoteTextUnavailableNow
	case after.Text != nil:
		change.CurrentTextHash = after.Text.Hash
		change.TextNote = models.NoteTextNewlyAvailable
	}

	return change
}

// compareChunks counts chunk digests present on only one side. Order and
// multiplicity are ignored.
func compareChunks(before []string, after []string) *models.ChunkInfo {
	beforeSet := toSet(before)
	afterSet := toSet(after)

	removed := 0
	for digest := range beforeSet {
		if !afterSet[digest] {
			removed++
		}
	}
	added := 0
	for digest := range afterSet {
		if !beforeSet[digest] {
			added++
		}
	}

	return &models.ChunkInfo{
		TotalBaseline: len(before),
		TotalCurrent:  len(after),
		Removed:       removed,
		Added:         added,
		Changed:       removed,
		TamperRatio:   round4(float64(removed) / float64(max(len(before), 1))),
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, value := range values {
		set[value] = true
	}
	return set
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
