package integrity_checker

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/spf13/afero"
)

// Store persists baselines next to a tamper-evidence token.
//
// The token is a bare digest of the serialized baseline. It detects
// corruption and careless edits; anyone able to rewrite both files can
// forge a matching token.
type Store struct {
	fsys afero.Fs
	log  logger.Sink
}

// NewStore creates a store over fsys.
func NewStore(fsys afero.Fs, log logger.Sink) *Store {
	if log == nil {
		log = logger.NopSink{}
	}
	return &Store{fsys: fsys, log: log}
}

// Marshal serializes a baseline in its on-disk form.
func Marshal(baseline *models.Baseline) ([]byte, error) {
	return json.MarshalIndent(baseline, "", "    ")
}

// Save writes the baseline and then its token. The data file is renamed into
// place first, so an interrupted save leaves a stale token that Load rejects.
func (s *Store) Save(baseline *models.Baseline, baselinePath string) error {
	if err := ValidateBaselinePath(baselinePath); err != nil {
		return err
	}
	if baseline == nil {
		return fmt.Errorf("%w: nil baseline", ErrMalformedBaseline)
	}
	if baseline.SchemaVersion != models.SchemaVersion {
		return fmt.Errorf("%w: cannot save schema version %d", ErrMalformedBaseline, baseline.SchemaVersion)
	}
	if !digest_engine.IsSupported(baseline.Algorithm) {
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, baseline.Algorithm)
	}
	if _, err := indexByPath(baseline); err != nil {
		return err
	}

	data, err := Marshal(baseline)
	if err != nil {
		return fmt.Errorf("failed to serialize baseline: %w", err)
	}
	token, err := digest_engine.DigestBytes(data, baseline.Algorithm)
	if err != nil {
		return err
	}

	if err := s.fsys.MkdirAll(filepath.Dir(baselinePath), 0755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}
	if err := s.writeAtomic(baselinePath, data); err != nil {
		return err
	}
	signaturePath := SignaturePathFor(baselinePath)
	if err := s.writeAtomic(signaturePath, []byte(token)); err != nil {
		return err
	}

	logger.Infof(s.log, "Baseline saved to %s and signed in %s", baselinePath, signaturePath)
	return nil
}

// writeAtomic writes data to a temp file in the target's directory and renames it into place.
func (s *Store) writeAtomic(target string, data []byte) error {
	tmpFile, err := afero.TempFile(s.fsys, filepath.Dir(target), tempPattern(target))
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", target, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = s.fsys.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync %s: %w", target, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", target, err)
	}
	if err := s.fsys.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}

	success = true
	return nil
}

// Load returns the baseline at baselinePath only if it matches its token.
func (s *Store) Load(baselinePath string, algorithm string) (*models.Baseline, error) {
	if !digest_engine.IsSupported(algorithm) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}

	data, err := afero.ReadFile(s.fsys, baselinePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no baseline file at %s", ErrBaselineNotFound, baselinePath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	signaturePath := SignaturePathFor(baselinePath)
	token, err := afero.ReadFile(s.fsys, signaturePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: signature file %s is missing", ErrTamperDetected, signaturePath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read baseline signature: %w", err)
	}

	expected := strings.TrimSpace(string(token))
	actual, err := digest_engine.DigestBytes(data, algorithm)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) != 1 {
		hint := ""
		if len(expected) != len(actual) {
			hint = fmt.Sprintf(" (the signature is not a %s digest; was the baseline built with another algorithm?)", digest_engine.NormalizeName(algorithm))
		}
		logger.Errorf(s.log, "Baseline %s does not match its signature", baselinePath)
		return nil, fmt.Errorf("%w: %s does not match %s%s", ErrTamperDetected, baselinePath, signaturePath, hint)
	}

	baseline, err := decodeBaseline(data, algorithm)
	if err != nil {
		return nil, err
	}
	if digest_engine.NormalizeName(baseline.Algorithm) != digest_engine.NormalizeName(algorithm) {
		return nil, fmt.Errorf("%w: baseline was built with %s, not %s", ErrMalformedBaseline, baseline.Algorithm, algorithm)
	}
	if _, err := indexByPath(baseline); err != nil {
		return nil, err
	}

	return baseline, nil
}

// decodeBaseline parses a current baseline or migrates a legacy flat manifest.
func decodeBaseline(data []byte, algorithm string) (*models.Baseline, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBaseline, err)
	}

	rawVersion, ok := probe["schema_version"]
	if !ok {
		return migrateLegacyManifest(data, algorithm)
	}

	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return nil, fmt.Errorf("%w: schema_version is not a number", ErrMalformedBaseline)
	}
	if version != models.SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrMalformedBaseline, version)
	}

	var baseline models.Baseline
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&baseline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBaseline, err)
	}
	for i := range baseline.Files {
		if baseline.Files[i].Path == "" {
			return nil, fmt.Errorf("%w: file record %d has no path", ErrMalformedBaseline, i)
		}
	}
	return &baseline, nil
}

// migrateLegacyManifest converts the first on-disk format, a flat object of
// path to raw digest, into a current baseline without text snapshots.
func migrateLegacyManifest(data []byte, algorithm string) (*models.Baseline, error) {
	var manifest map[string]string
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: not a baseline or legacy manifest: %v", ErrMalformedBaseline, err)
	}

	paths := make([]string, 0, len(manifest))
	for p := range manifest {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make([]models.FileRecord, 0, len(paths))
	for _, p := range paths {
		slashPath := filepath.ToSlash(p)
		files = append(files, models.FileRecord{
			Path:    slashPath,
			Ext:     strings.ToLower(path.Ext(slashPath)),
			RawHash: manifest[p],
		})
	}

	return &models.Baseline{
		SchemaVersion: models.SchemaVersion,
		Algorithm:     digest_engine.NormalizeName(algorithm),
		Files:         files,
	}, nil
}

// ClearSnapshots deletes every text snapshot below snapshotDir and prunes the
// directories left empty. Files without the snapshot suffix are never touched.
// A missing directory clears nothing.
func (s *Store) ClearSnapshots(snapshotDir string) (int, error) {
	count, err := s.removeSnapshots(snapshotDir, nil)
	if err != nil {
		return 0, err
	}
	logger.Infof(s.log, "Removed %d text snapshots from %s", count, snapshotDir)
	return count, nil
}

// PruneSnapshots deletes the text snapshots below snapshotDir that baseline
// does not reference, such as copies of files deleted since the last build.
func (s *Store) PruneSnapshots(snapshotDir string, baseline *models.Baseline) (int, error) {
	keep := make(map[string]bool)
	for _, record := range baseline.Files {
		if record.Text != nil && record.Text.SnapshotRef != "" {
			keep[record.Text.SnapshotRef] = true
		}
	}
	count, err := s.removeSnapshots(snapshotDir, keep)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Infof(s.log, "Removed %d stale text snapshots from %s", count, snapshotDir)
	}
	return count, nil
}

func (s *Store) removeSnapshots(snapshotDir string, keep map[string]bool) (int, error) {
	exists, err := afero.DirExists(s.fsys, snapshotDir)
	if err != nil {
		return 0, fmt.Errorf("failed to check snapshot directory: %w", err)
	}
	if !exists {
		return 0, nil
	}

	var snapshots, dirs []string
	err = afero.Walk(s.fsys, snapshotDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if !info.Mode().IsRegular() || !strings.HasSuffix(info.Name(), SnapshotSuffix) {
			return nil
		}
		rel, err := RelativePath(snapshotDir, path)
		if err != nil || keep[rel] {
			return nil
		}
		snapshots = append(snapshots, path)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots: %w", err)
	}

	for _, path := range snapshots {
		if err := s.fsys.Remove(path); err != nil {
			return 0, fmt.Errorf("failed to remove snapshot %s: %w", path, err)
		}
	}

	// Walk lists parents before children, so reverse order empties leaves first.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := afero.ReadDir(s.fsys, dirs[i])
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := s.fsys.Remove(dirs[i]); err != nil {
			logger.Warnf(s.log, "Could not remove empty snapshot directory %s: %v", dirs[i], err)
		}
	}

	return len(snapshots), nil
}
