package contracts

import (
	"github.com/meysamhadeli/verilite/integrity_checker/models"
	"github.com/spf13/afero"
)

// IIntegrityChecker builds trusted baselines and verifies trees against them.
type IIntegrityChecker interface {
	CreateBaseline(root string, baselinePath string) (*models.ScanResult, error)
	Verify(root string, baselinePath string) (*models.VerifyResult, error)
	ClearSnapshots(baselinePath string) (int, error)
}

// ITextExtractor returns normalized text for files it recognizes. A nil
// result with a nil error means the file type is unsupported.
type ITextExtractor interface {
	TryExtract(fsys afero.Fs, path string) (*models.ExtractedText, error)
}
