package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/meysamhadeli/verilite/constants/lipgloss"
	"github.com/meysamhadeli/verilite/utils"
	"github.com/spf13/cobra"
)

// resetSnapshotsCmd represents the reset-snapshots command
var resetSnapshotsCmd = &cobra.Command{
	Use:   "reset-snapshots",
	Short: "Remove the persisted text snapshots of the baseline",
	Long: `The 'reset-snapshots' command deletes the normalized text copies (*.snapshot.txt) written
by 'baseline' and prunes directories they leave empty. Other files are never removed. The baseline and its signature are left untouched and
verification keeps working, because snapshots are only kept for reviewing changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleResetSnapshotsCommand(rootDependencies, force)
	},
}

func init() {
	resetSnapshotsCmd.Flags().BoolP("force", "f", false, "Remove snapshots without confirmation")
	rootCmd.AddCommand(resetSnapshotsCmd)
}

func handleResetSnapshotsCommand(rootDependencies *RootDependencies, force bool) error {
	// Confirm removal (if not forced)
	if !force {
		confirmed, err := utils.ConfirmPrompt(bufio.NewReader(os.Stdin), os.Stdout, "Are you sure you want to remove all text snapshots?")
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println(lipgloss.Yellow.Render("Snapshot reset cancelled."))
			return nil
		}
	}

	stop := startSpinner("Removing text snapshots...")
	removed, err := rootDependencies.Checker.ClearSnapshots(rootDependencies.Config.Baseline)
	stop()
	if err != nil {
		return fmt.Errorf("error removing snapshots: %w", err)
	}

	if removed == 0 {
		fmt.Println(lipgloss.Yellow.Render("No text snapshots to remove."))
		return nil
	}
	fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Removed %d text snapshots", removed)))
	return nil
}
