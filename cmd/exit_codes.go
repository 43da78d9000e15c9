package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/meysamhadeli/verilite/constants/lipgloss"
	"github.com/meysamhadeli/verilite/integrity_checker"
	"github.com/meysamhadeli/verilite/report"
)

// Process exit codes
const (
	ExitClean            = 0
	ExitChangesDetected  = 1
	ExitTamperDetected   = 2
	ExitBaselineNotFound = 3
	ExitError            = 4
)

// ErrChangesDetected signals a successful verification that found differences.
var ErrChangesDetected = errors.New("changes detected")

// ExitCodeFor maps a command error to the process exit code.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitClean
	case errors.Is(err, ErrChangesDetected):
		return ExitChangesDetected
	case errors.Is(err, integrity_checker.ErrTamperDetected):
		return ExitTamperDetected
	case errors.Is(err, integrity_checker.ErrBaselineNotFound):
		return ExitBaselineNotFound
	default:
		return ExitError
	}
}

func printError(err error) {
	switch ExitCodeFor(err) {
	case ExitChangesDetected:
		// the report already said so
	case ExitTamperDetected:
		_ = report.RenderAlert(os.Stderr, fmt.Sprintf("Baseline is not trustworthy. Verification stopped.\n%v", err))
	case ExitBaselineNotFound:
		fmt.Fprintln(os.Stderr, lipgloss.Yellow.Render(fmt.Sprintf("%v\nRun 'verilite baseline' to create one.", err)))
	default:
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error: %v", err)))
	}
}
