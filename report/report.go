package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/meysamhadeli/verilite/constants/lipgloss"
	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/integrity_checker"
	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/meysamhadeli/verilite/utils"
	"github.com/pterm/pterm"
)

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options control how a verification report is written.
type Options struct {
	Format string
	Theme  string
	// Color enables syntax highlighting of JSON output.
	Color bool
}

// Render writes a verification report in the requested format.
func Render(w io.Writer, result *models.VerifyResult, options Options) error {
	switch strings.ToLower(options.Format) {
	case "", FormatText:
		return RenderText(w, result)
	case FormatJSON:
		return RenderJSON(w, result, options.Theme, options.Color)
	default:
		return fmt.Errorf("unknown report format %q", options.Format)
	}
}

type jsonFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type jsonReport struct {
	BaseDir           string                       `json:"base_dir"`
	Algorithm         string                       `json:"algorithm"`
	BaselineCreatedAt time.Time                    `json:"baseline_created_at"`
	Clean             bool                         `json:"clean"`
	Modified          map[string]models.FileChange `json:"modified"`
	Added             []string                     `json:"added"`
	Deleted           []string                     `json:"deleted"`
	Advisories        map[string]string            `json:"advisories"`
	Failures          []jsonFailure                `json:"failures"`
	Stats             map[string]interface{}       `json:"stats"`
}

// RenderJSON writes the report as indented JSON, highlighted when color is set.
func RenderJSON(w io.Writer, result *models.VerifyResult, theme string, color bool) error {
	doc := jsonReport{
		BaseDir:           result.Current.Baseline.BaseDir,
		Algorithm:         result.Baseline.Algorithm,
		BaselineCreatedAt: result.Baseline.CreatedAt,
		Clean:             !result.Diff.HasChanges(),
		Modified:          result.Diff.Modified,
		Added:             result.Diff.Added,
		Deleted:           result.Diff.Deleted,
		Advisories:        result.Diff.Advisories,
		Failures:          []jsonFailure{},
		Stats:             integrity_checker.StatsSummary(result.Current.Stats),
	}
	for _, failure := range result.Current.Failures {
		doc.Failures = append(doc.Failures, jsonFailure{Path: failure.Path, Error: failure.Err.Error()})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	if color {
		return utils.Highlight(w, string(data), "json", theme)
	}
	_, err = w.Write(data)
	return err
}

// RenderText writes a human-readable report.
func RenderText(w io.Writer, result *models.VerifyResult) error {
	diff := result.Diff
	var b strings.Builder

	fmt.Fprintf(&b, "Verified %s against baseline from %s (%s)\n",
		result.Current.Baseline.BaseDir, formatTime(result.Baseline.CreatedAt), result.Baseline.Algorithm)

	if !diff.HasChanges() {
		b.WriteString(lipgloss.Green.Render("✓ No changes detected") + "\n")
	} else {
		total := len(diff.Modified) + len(diff.Added) + len(diff.Deleted)
		b.WriteString(lipgloss.Red.Render(fmt.Sprintf("✗ %d changes detected (%d modified, %d added, %d deleted)",
			total, len(diff.Modified), len(diff.Added), len(diff.Deleted))) + "\n")
	}

	if len(diff.Modified) > 0 {
		table, err := modifiedTable(diff.Modified)
		if err != nil {
			return err
		}
		b.WriteString("\n" + lipgloss.Heading.Render("Modified") + "\n")
		b.WriteString(table)
		if !strings.HasSuffix(table, "\n") {
			b.WriteString("\n")
		}
	}

	writeList(&b, "Added", "+", diff.Added, lipgloss.Yellow)
	writeList(&b, "Deleted", "-", diff.Deleted, lipgloss.Red)

	if len(diff.Advisories) > 0 {
		var lines []string
		for _, path := range sortedKeys(diff.Advisories) {
			lines = append(lines, fmt.Sprintf("%s: %s", path, describeNote(diff.Advisories[path])))
		}
		writeList(&b, "Advisories", "!", lines, lipgloss.Yellow)
	}

	if len(result.Current.Failures) > 0 {
		var lines []string
		for _, failure := range result.Current.Failures {
			lines = append(lines, fmt.Sprintf("%s: %v", failure.Path, failure.Err))
		}
		writeList(&b, "Could not be read", "?", lines, lipgloss.Gray)
	}

	stats := result.Current.Stats
	b.WriteString("\n" + lipgloss.Gray.Render(fmt.Sprintf("%d files hashed, %d excluded, %d unreadable in %s",
		stats.FilesHashed, stats.FilesExcluded, stats.FilesFailed, stats.Duration.Round(time.Millisecond))) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func modifiedTable(modified map[string]models.FileChange) (string, error) {
	data := pterm.TableData{{"Path", "Raw", "Text", "Chunks", "Tamper ratio"}}
	for _, path := range sortedKeys(modified) {
		change := modified[path]
		data = append(data, []string{
			path,
			changedLabel(change.RawChanged),
			textLabel(change),
			chunkLabel(change),
			ratioLabel(change),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func changedLabel(changed bool) string {
	if changed {
		return "changed"
	}
	return "same"
}

func textLabel(change models.FileChange) string {
	if change.TextChanged == nil {
		if change.TextNote != "" {
			return "unknown (" + describeNote(change.TextNote) + ")"
		}
		return "n/a"
	}
	return changedLabel(*change.TextChanged)
}

func chunkLabel(change models.FileChange) string {
	if change.ChunkInfo == nil {
		if change.ChunkNote != "" {
			return describeNote(change.ChunkNote)
		}
		return "-"
	}
	info := change.ChunkInfo
	return fmt.Sprintf("-%d/+%d of %d", info.Removed, info.Added, info.TotalBaseline)
}

func ratioLabel(change models.FileChange) string {
	if change.ChunkInfo == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", change.ChunkInfo.TamperRatio*100)
}

func describeNote(note string) string {
	switch note {
	case models.NoteTextUnavailableNow:
		return "text no longer extractable"
	case models.NoteTextNewlyAvailable:
		return "text newly extractable"
	case models.NoteChunkingMismatch:
		return "chunk sizes differ"
	default:
		return note
	}
}

type renderer interface {
	Render(strs ...string) string
}

func writeList(b *strings.Builder, title string, marker string, items []string, style renderer) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + lipgloss.Heading.Render(title) + "\n")
	for _, item := range items {
		b.WriteString(style.Render(fmt.Sprintf("  %s %s", marker, item)) + "\n")
	}
}

// RenderScanSummary describes a freshly written baseline.
func RenderScanSummary(w io.Writer, result *models.ScanResult, baselinePath string) error {
	var b strings.Builder
	stats := result.Stats

	b.WriteString(lipgloss.Green.Render(fmt.Sprintf("✓ Baseline saved to %s", baselinePath)) + "\n")
	b.WriteString(lipgloss.BoxStyle.Render(strings.Join([]string{
		fmt.Sprintf("Root:           %s", result.Baseline.BaseDir),
		fmt.Sprintf("Algorithm:      %s", result.Baseline.Algorithm),
		fmt.Sprintf("Files:          %d", len(result.Baseline.Files)),
		fmt.Sprintf("Text snapshots: %d", stats.TextSnapshots),
		fmt.Sprintf("Snapshot dir:   %s", result.Baseline.SnapshotDir),
		fmt.Sprintf("Excluded:       %d", stats.FilesExcluded),
		fmt.Sprintf("Elapsed:        %s", stats.Duration.Round(time.Millisecond)),
	}, "\n")) + "\n")

	if len(result.Failures) > 0 {
		var lines []string
		for _, failure := range result.Failures {
			lines = append(lines, fmt.Sprintf("%s: %v", failure.Path, failure.Err))
		}
		writeList(&b, "Not included (unreadable)", "?", lines, lipgloss.Yellow)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderDigest prints a single file digest. Grouped output splits the hex into byte pairs.
func RenderDigest(w io.Writer, path string, algorithm string, digest string, grouped bool) error {
	if grouped {
		digest = digest_engine.FormatHex(digest)
	}
	_, err := fmt.Fprintf(w, "%s  %s (%s)\n", digest, path, digest_engine.NormalizeName(algorithm))
	return err
}

// RenderAlert prints a boxed warning, used when the baseline cannot be trusted.
func RenderAlert(w io.Writer, message string) error {
	_, err := fmt.Fprintln(w, lipgloss.AlertBox.Render(message))
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "an unknown time"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
