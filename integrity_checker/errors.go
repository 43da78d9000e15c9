package integrity_checker

import (
	"errors"
	"fmt"

	"github.com/meysamhadeli/verilite/digest_engine"
)

var (
	// ErrUnsupportedAlgorithm is returned when a digest algorithm is not registered.
	ErrUnsupportedAlgorithm = digest_engine.ErrUnsupportedAlgorithm
	// ErrMalformedBaseline is returned for structurally invalid or incompatible baselines.
	ErrMalformedBaseline = errors.New("malformed baseline")
	// ErrTamperDetected is returned when the baseline does not match its tamper-evidence token.
	ErrTamperDetected = errors.New("baseline is not trustworthy")
	// ErrBaselineNotFound is returned when no baseline exists at the given path.
	ErrBaselineNotFound = errors.New("baseline not found")
	// ErrInvalidBaselinePath is returned when a baseline name collides with its own token or snapshot directory.
	ErrInvalidBaselinePath = errors.New("invalid baseline path")
	// ErrSnapshotDirOverlapsRoot is returned when the snapshot directory is the scan root or one of its ancestors.
	ErrSnapshotDirOverlapsRoot = errors.New("snapshot directory contains the scan root")
)

// RecordBuildError reports a single file that could not be turned into a record.
type RecordBuildError struct {
	Path string
	Op   string
	Err  error
}

func (e *RecordBuildError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RecordBuildError) Unwrap() error {
	return e.Err
}
