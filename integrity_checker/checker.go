package integrity_checker

import (
	"fmt"
	"path/filepath"

	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/integrity_checker/contracts"
	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/spf13/afero"
)

// Options configure an IntegrityChecker.
type Options struct {
	Algorithm   string
	ChunkLines  int
	Workers     int
	SnapshotDir string
	Exclude     []string
	// ExcludePaths are files written by the tool itself, such as the event log.
	ExcludePaths []string
}

// IntegrityChecker builds baselines and verifies trees against them.
type IntegrityChecker struct {
	fsys    afero.Fs
	store   *Store
	builder *RecordBuilder
	log     logger.Sink
	options Options
}

// NewIntegrityChecker wires a scanner, record builder and store over fsys.
func NewIntegrityChecker(fsys afero.Fs, extractor contracts.ITextExtractor, log logger.Sink, options Options) contracts.IIntegrityChecker {
	if log == nil {
		log = logger.NopSink{}
	}
	if options.Algorithm == "" {
		options.Algorithm = "sha256"
	}
	return &IntegrityChecker{
		fsys:    fsys,
		store:   NewStore(fsys, log),
		builder: NewRecordBuilder(fsys, extractor, options.ChunkLines, log),
		log:     log,
		options: options,
	}
}

func (c *IntegrityChecker) scanner(snapshotDir string, persist bool) *Scanner {
	return NewScanner(c.fsys, c.builder, c.log, ScanOptions{
		SnapshotDir:      snapshotDir,
		PersistSnapshots: persist,
		Workers:          c.options.Workers,
		Exclude:          c.options.Exclude,
		ExcludePaths:     c.options.ExcludePaths,
	})
}

// CreateBaseline scans root, persists text snapshots and saves the signed baseline.
// Snapshots left over from files no longer in the tree are removed afterwards.
func (c *IntegrityChecker) CreateBaseline(root string, baselinePath string) (*models.ScanResult, error) {
	if !digest_engine.IsSupported(c.options.Algorithm) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, c.options.Algorithm)
	}
	if err := ValidateBaselinePath(baselinePath); err != nil {
		return nil, err
	}

	result, err := c.scanner(c.options.SnapshotDir, true).Scan(root, c.options.Algorithm, baselinePath)
	if err != nil {
		return nil, err
	}
	for _, failure := range result.Failures {
		logger.Warnf(c.log, "Not in baseline: %s (%v)", failure.Path, failure.Err)
	}

	if err := c.store.Save(result.Baseline, baselinePath); err != nil {
		return nil, err
	}
	if _, err := c.store.PruneSnapshots(result.Baseline.SnapshotDir, result.Baseline); err != nil {
		logger.Warnf(c.log, "Could not prune stale text snapshots: %v", err)
	}

	logger.Infof(c.log, "Baseline created for %s with %d files using %s",
		result.Baseline.BaseDir, len(result.Baseline.Files), result.Baseline.Algorithm)
	return result, nil
}

// Verify loads the trusted baseline and compares a fresh scan of root with it.
// Verification scans never write text snapshots.
func (c *IntegrityChecker) Verify(root string, baselinePath string) (*models.VerifyResult, error) {
	baseline, err := c.store.Load(baselinePath, c.options.Algorithm)
	if err != nil {
		return nil, err
	}

	snapshotDir := baseline.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = c.options.SnapshotDir
	}
	current, err := c.scanner(snapshotDir, false).Scan(root, c.options.Algorithm, baselinePath)
	if err != nil {
		return nil, err
	}

	diff, err := Compare(baseline, current.Baseline)
	if err != nil {
		return nil, err
	}

	if diff.HasChanges() {
		logger.Warnf(c.log, "Changes detected in %s: %d modified, %d added, %d deleted",
			current.Baseline.BaseDir, len(diff.Modified), len(diff.Added), len(diff.Deleted))
	} else {
		logger.Infof(c.log, "No changes detected in %s", current.Baseline.BaseDir)
	}
	for path, note := range diff.Advisories {
		logger.Warnf(c.log, "%s: %s", path, note)
	}

	return &models.VerifyResult{
		Baseline: baseline,
		Current:  current,
		Diff:     diff,
	}, nil
}

// ClearSnapshots removes the persisted text snapshots that belong to baselinePath.
func (c *IntegrityChecker) ClearSnapshots(baselinePath string) (int, error) {
	snapshotDir := c.options.SnapshotDir
	if snapshotDir == "" {
		abs, err := filepath.Abs(baselinePath)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve baseline path %s: %w", baselinePath, err)
		}
		snapshotDir = SnapshotDirFor(abs)
	}
	return c.store.ClearSnapshots(snapshotDir)
}
