package integrity_checker

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/meysamhadeli/verilite/utils"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// ScanOptions tune a tree scan.
type ScanOptions struct {
	// SnapshotDir overrides the directory derived from the baseline path.
	SnapshotDir string
	// PersistSnapshots writes normalized text below SnapshotDir.
	PersistSnapshots bool
	// Workers bounds concurrent per-file work. Zero means one per CPU.
	Workers int
	// Exclude holds glob patterns matched against slash-separated relative paths.
	Exclude []string
	// ExcludePaths are extra files never recorded, such as the event log.
	ExcludePaths []string
}

// Scanner walks a tree and builds a Baseline from its regular files.
type Scanner struct {
	fsys    afero.Fs
	builder *RecordBuilder
	log     logger.Sink
	options ScanOptions
}

// NewScanner creates a scanner over fsys.
func NewScanner(fsys afero.Fs, builder *RecordBuilder, log logger.Sink, options ScanOptions) *Scanner {
	if log == nil {
		log = logger.NopSink{}
	}
	return &Scanner{
		fsys:    fsys,
		builder: builder,
		log:     log,
		options: options,
	}
}

// scanTarget is a file queued for record building.
type scanTarget struct {
	path string
	rel  string
}

// Scan builds a fresh baseline of baseDir. Unreadable files are reported in
// the result's failures and left out of the baseline.
func (s *Scanner) Scan(baseDir string, algorithm string, baselinePath string) (*models.ScanResult, error) {
	if !digest_engine.IsSupported(algorithm) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	algorithm = digest_engine.NormalizeName(algorithm)

	root, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan root %s: %w", baseDir, err)
	}
	info, err := s.fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	baselineFile, err := filepath.Abs(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve baseline path %s: %w", baselinePath, err)
	}
	snapshotDir := s.options.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = SnapshotDirFor(baselineFile)
	}
	if snapshotDir, err = filepath.Abs(snapshotDir); err != nil {
		return nil, fmt.Errorf("failed to resolve snapshot directory: %w", err)
	}
	if err := checkSnapshotDir(root, snapshotDir); err != nil {
		return nil, err
	}

	patterns, err := s.ignorePatterns(root)
	if err != nil {
		return nil, err
	}

	stats := newScanStats()
	excluded := s.excludedFiles(baselineFile)
	var targets []scanTarget
	var failures []models.ScanFailure

	err = afero.Walk(s.fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			rel, _ := RelativePath(root, path)
			logger.Warnf(s.log, "Could not read %s: %v", path, err)
			failures = append(failures, models.ScanFailure{Path: rel, Err: &RecordBuildError{Path: rel, Op: "read", Err: err}})
			stats.recordFailed()
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := RelativePath(root, path)
		if err != nil {
			return nil
		}

		if info.IsDir() {
			if isWithin(path, snapshotDir) || utils.IsIgnored(rel, true, patterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			logger.Debugf(s.log, "Skipping non-regular file %s", rel)
			return nil
		}

		if s.isExcluded(path, baselineFile, excluded) || utils.IsIgnored(rel, false, patterns) {
			stats.recordExcluded()
			return nil
		}

		stats.recordSeen()
		targets = append(targets, scanTarget{path: path, rel: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	persistRoot := ""
	if s.options.PersistSnapshots {
		persistRoot = snapshotDir
	}

	records, buildFailures := s.buildRecords(targets, root, persistRoot, algorithm, stats)
	failures = append(failures, buildFailures...)

	baseline := &models.Baseline{
		SchemaVersion: models.SchemaVersion,
		Algorithm:     algorithm,
		BaseDir:       root,
		SnapshotDir:   snapshotDir,
		CreatedAt:     time.Now().UTC(),
		Files:         records,
	}

	result := &models.ScanResult{
		Baseline: baseline,
		Failures: failures,
		Stats:    stats.snapshot(),
	}
	logger.Debugf(s.log, "Scanned %s: %d hashed, %d failed, %d excluded in %s",
		root, result.Stats.FilesHashed, result.Stats.FilesFailed, result.Stats.FilesExcluded, result.Stats.Duration)

	return result, nil
}

// buildRecords runs the builder on a bounded pool. Each task owns one slot so
// the output keeps traversal order.
func (s *Scanner) buildRecords(targets []scanTarget, root string, persistRoot string, algorithm string, stats *scanStats) ([]models.FileRecord, []models.ScanFailure) {
	records := make([]*models.FileRecord, len(targets))
	errs := make([]error, len(targets))

	var group errgroup.Group
	group.SetLimit(s.workers())
	for i, target := range targets {
		group.Go(func() error {
			record, err := s.builder.Build(target.path, root, persistRoot, algorithm)
			if err != nil {
				errs[i] = err
				stats.recordFailed()
				logger.Warnf(s.log, "Skipping %s: %v", target.rel, err)
				return nil
			}
			records[i] = record
			stats.recordHashed(record)
			return nil
		})
	}
	_ = group.Wait()

	files := make([]models.FileRecord, 0, len(targets))
	var failures []models.ScanFailure
	for i, target := range targets {
		if errs[i] != nil {
			failures = append(failures, models.ScanFailure{Path: target.rel, Err: errs[i]})
			continue
		}
		files = append(files, *records[i])
	}
	return files, failures
}

func (s *Scanner) workers() int {
	if s.options.Workers > 0 {
		return s.options.Workers
	}
	return runtime.NumCPU()
}

// ignorePatterns combines configured patterns with the root's ignore file.
func (s *Scanner) ignorePatterns(root string) ([]string, error) {
	fromFile, err := utils.GetIgnorePatterns(s.fsys, root)
	if err != nil {
		return nil, err
	}
	patterns := append(append([]string{}, s.options.Exclude...), fromFile...)
	if err := utils.ValidatePatterns(patterns); err != nil {
		return nil, err
	}
	return patterns, nil
}

// excludedFiles lists absolute paths that must never be recorded.
func (s *Scanner) excludedFiles(baselineFile string) map[string]bool {
	excluded := map[string]bool{
		baselineFile:                   true,
		SignaturePathFor(baselineFile): true,
	}
	for _, path := range s.options.ExcludePaths {
		if path == "" {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			excluded[abs] = true
		}
	}
	return excluded
}

func (s *Scanner) isExcluded(path string, baselineFile string, excluded map[string]bool) bool {
	if excluded[path] {
		return true
	}
	return isTempFor(path, baselineFile) || isTempFor(path, SignaturePathFor(baselineFile))
}
