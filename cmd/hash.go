package cmd

import (
	"fmt"
	"os"

	"github.com/meysamhadeli/verilite/digest_engine"
	"github.com/meysamhadeli/verilite/report"
	"github.com/spf13/cobra"
)

// hashCmd: verilite hash <file>...
var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print the digest of one or more files",
	Long: `The 'hash' command prints the digest of each file with the configured algorithm.
Algorithm names are case-insensitive and may contain dashes, so 'SHA-256' and 'sha256'
are the same. Use --grouped to split the digest into byte pairs for reading aloud.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		grouped, _ := cmd.Flags().GetBool("grouped")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleHashCommand(rootDependencies, args, grouped)
	},
}

func init() {
	hashCmd.Flags().BoolP("grouped", "g", false, "Print the digest as space separated byte pairs")
	rootCmd.AddCommand(hashCmd)
}

func handleHashCommand(rootDependencies *RootDependencies, files []string, grouped bool) error {
	algorithm := rootDependencies.Config.Algorithm
	for _, file := range files {
		digest, err := digest_engine.DigestFile(rootDependencies.Fs, file, algorithm)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", file, err)
		}
		if err := report.RenderDigest(os.Stdout, file, algorithm, digest, grouped); err != nil {
			return err
		}
	}
	return nil
}
