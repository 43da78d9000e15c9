package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/meysamhadeli/verilite/constants/lipgloss"
	"github.com/meysamhadeli/verilite/report"
	"github.com/meysamhadeli/verilite/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// baselineCmd: verilite baseline [root]
var baselineCmd = &cobra.Command{
	Use:   "baseline [root]",
	Short: "Record a signed baseline of a directory tree",
	Long: `The 'baseline' command hashes every regular file under the given root (default: the
current directory), extracts and normalizes text from plain text, PDF and DOCX files, and
writes the baseline together with its signature file. Normalized text is kept in the
snapshot directory so later changes can be reviewed; snapshots of files that are no longer
in the tree are removed. The snapshot directory must not be the root or one of its parents,
and the baseline name must not end in .sig or .snapshots.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleBaselineCommand(rootDependencies, rootArg(args), force)
	},
}

func init() {
	baselineCmd.Flags().BoolP("force", "f", false, "Replace an existing baseline without confirmation")
	rootCmd.AddCommand(baselineCmd)
}

func handleBaselineCommand(rootDependencies *RootDependencies, root string, force bool) error {
	baselinePath := rootDependencies.Config.Baseline

	exists, err := afero.Exists(rootDependencies.Fs, baselinePath)
	if err != nil {
		return fmt.Errorf("failed to check baseline: %w", err)
	}
	if exists && !force {
		if !utils.IsTerminal(os.Stdin) {
			return fmt.Errorf("baseline %s already exists; use --force to replace it", baselinePath)
		}
		replace, err := utils.ConfirmPrompt(bufio.NewReader(os.Stdin), os.Stdout, fmt.Sprintf("Baseline %s already exists. Replace it?", baselinePath))
		if err != nil {
			return err
		}
		if !replace {
			fmt.Println(lipgloss.Yellow.Render("Baseline left unchanged."))
			return nil
		}
	}

	stop := startSpinner(fmt.Sprintf("Building baseline of %s...", root))
	result, err := rootDependencies.Checker.CreateBaseline(root, baselinePath)
	stop()
	if err != nil {
		return err
	}

	return report.RenderScanSummary(os.Stdout, result, baselinePath)
}
