package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meysamhadeli/verilite/constants/lipgloss"
	"github.com/meysamhadeli/verilite/integrity_checker"
	"github.com/meysamhadeli/verilite/logger"
	"github.com/meysamhadeli/verilite/report"
	"github.com/meysamhadeli/verilite/utils"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// watchCmd: verilite watch [root]
var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Verify a directory tree repeatedly on a schedule",
	Long: `The 'watch' command runs a verification immediately and then on every tick of the
configured cron schedule (watch_schedule, default '@every 5m') until interrupted. A cycle
that is still running when the next tick arrives causes that tick to be skipped. Watching
stops at once if the baseline is missing or no longer matches its signature.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleWatchCommand(rootDependencies, rootArg(args))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func handleWatchCommand(rootDependencies *RootDependencies, root string) error {
	// Create a context with cancel function
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go utils.GracefulShutdown(ctx, cancel, func() {
		logger.Infof(rootDependencies.Sink, "Stopped watching %s", root)
	})

	fatal := make(chan error, 1)
	cycle := func() {
		if err := runWatchCycle(rootDependencies, root); err != nil {
			select {
			case fatal <- err:
			default:
			}
			cancel()
		}
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(rootDependencies.Config.WatchSchedule, cycle); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", rootDependencies.Config.WatchSchedule, err)
	}

	fmt.Println(lipgloss.BoxStyle.Render(fmt.Sprintf("Watching %s (%s)\nPress Ctrl+C to stop", root, rootDependencies.Config.WatchSchedule)))
	logger.Infof(rootDependencies.Sink, "Started watching %s on schedule %s", root, rootDependencies.Config.WatchSchedule)

	cycle()
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()

	select {
	case err := <-fatal:
		return err
	default:
		return nil
	}
}

// runWatchCycle verifies once. Only errors that make further cycles pointless are returned.
func runWatchCycle(rootDependencies *RootDependencies, root string) error {
	result, err := rootDependencies.Checker.Verify(root, rootDependencies.Config.Baseline)
	if err != nil {
		if errors.Is(err, integrity_checker.ErrTamperDetected) ||
			errors.Is(err, integrity_checker.ErrBaselineNotFound) ||
			errors.Is(err, integrity_checker.ErrMalformedBaseline) {
			return err
		}
		logger.Errorf(rootDependencies.Sink, "Verification of %s failed: %v", root, err)
		return nil
	}

	if err := report.Render(os.Stdout, result, report.Options{
		Format: rootDependencies.Config.ReportFormat,
		Theme:  rootDependencies.Config.Theme,
		Color:  utils.IsTerminal(os.Stdout),
	}); err != nil {
		logger.Errorf(rootDependencies.Sink, "Could not render report: %v", err)
	}
	return nil
}
