package cmd

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/meysamhadeli/verilite/config"
	"github.com/meysamhadeli/verilite/constants/lipgloss"
	"github.com/meysamhadeli/verilite/integrity_checker"
	"github.com/meysamhadeli/verilite/integrity_checker/contracts"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/meysamhadeli/verilite/text_snapshot"
	"github.com/meysamhadeli/verilite/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Version of the verilite CLI
const Version = "0.3.0"

// RootDependencies holds everything a subcommand needs after configuration is loaded.
type RootDependencies struct {
	Cwd      string
	Config   *config.Config
	Fs       afero.Fs
	Logger   *charmlog.Logger
	Sink     logger.Sink
	EventLog *logger.EventLog
	Checker  contracts.IIntegrityChecker
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "verilite",
	Short: "File tree integrity baselines with tamper-evident storage",
	Long: `Verilite records a signed baseline of a directory tree (raw digests, normalized
text digests and per-chunk digests of documents) and later re-scans the tree to report
which files were modified, added or deleted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("verilite version %s", Version)))
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command and exits with a code describing the outcome.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(ExitCodeFor(err))
	}
}

// handleRootCommand loads configuration and wires logging and the integrity checker.
func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	cfg := config.LoadConfigs(rootCmd, cwd)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return newRootDependencies(cwd, cfg, afero.NewOsFs())
}

func newRootDependencies(cwd string, cfg *config.Config, fsys afero.Fs) (*RootDependencies, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	console := logger.New(&logger.Config{
		Level:      level,
		Output:     os.Stderr,
		JSON:       cfg.LogJSON,
		TimeFormat: logger.DefaultConfig().TimeFormat,
	})

	sinks := logger.Multi{logger.ConsoleSink{Logger: console}}
	var eventLog *logger.EventLog
	if cfg.EventLog != "" {
		eventLog, err = logger.OpenEventLog(fsys, cfg.EventLog, charmlog.InfoLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open event log: %w", err)
		}
		sinks = append(sinks, eventLog)
	}

	checker := integrity_checker.NewIntegrityChecker(fsys, text_snapshot.NewDefaultRegistry(), sinks, integrity_checker.Options{
		Algorithm:    cfg.Algorithm,
		ChunkLines:   cfg.ChunkLines,
		Workers:      cfg.Workers,
		SnapshotDir:  cfg.SnapshotDir,
		Exclude:      cfg.Exclude,
		ExcludePaths: []string{cfg.EventLog},
	})

	return &RootDependencies{
		Cwd:      cwd,
		Config:   cfg,
		Fs:       fsys,
		Logger:   console,
		Sink:     sinks,
		EventLog: eventLog,
		Checker:  checker,
	}, nil
}

// Close releases the event log, if one was opened.
func (d *RootDependencies) Close() {
	if d.EventLog != nil {
		_ = d.EventLog.Close()
	}
}

// rootArg returns the tree to scan, defaulting to the working directory.
func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// startSpinner shows a spinner on interactive terminals and returns its stop function.
func startSpinner(text string) func() {
	if !utils.IsTerminal(os.Stdout) {
		return func() {}
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)

	spinnerInstance, err := spinner.Start(text)
	if err != nil {
		return func() {}
	}
	return func() {
		_ = spinnerInstance.Stop()
		fmt.Print("\r")
	}
}
