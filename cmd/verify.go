package cmd

import (
	"fmt"
	"os"

	"github.com/meysamhadeli/verilite/report"
	"github.com/meysamhadeli/verilite/utils"
	"github.com/spf13/cobra"
)

// verifyCmd: verilite verify [root]
var verifyCmd = &cobra.Command{
	Use:   "verify [root]",
	Short: "Compare a directory tree against its trusted baseline",
	Long: `The 'verify' command checks the baseline against its signature, re-scans the tree and
reports modified, added and deleted files. For documents it also reports whether the
extracted text changed and what share of text chunks disappeared.

Exit status: 0 no changes, 1 changes detected, 2 baseline is not trustworthy,
3 baseline not found, 4 any other error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleVerifyCommand(rootDependencies, rootArg(args))
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func handleVerifyCommand(rootDependencies *RootDependencies, root string) error {
	stop := func() {}
	if rootDependencies.Config.ReportFormat == report.FormatText {
		stop = startSpinner(fmt.Sprintf("Verifying %s...", root))
	}
	result, err := rootDependencies.Checker.Verify(root, rootDependencies.Config.Baseline)
	stop()
	if err != nil {
		return err
	}

	err = report.Render(os.Stdout, result, report.Options{
		Format: rootDependencies.Config.ReportFormat,
		Theme:  rootDependencies.Config.Theme,
		Color:  utils.IsTerminal(os.Stdout),
	})
	if err != nil {
		return err
	}

	if result.Diff.HasChanges() {
		return ErrChangesDetected
	}
	return nil
}
