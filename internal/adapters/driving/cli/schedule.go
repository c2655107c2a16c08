package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run ingestion every day at the configured time",
	Long: `Starts the scheduler loop. Ingestion runs once a day at
FILINGWATCH_SCHEDULE_TIME in FILINGWATCH_SCHEDULE_TZ, retrying failed runs.
A trigger that fires while a run is still in progress is dropped.

Stop with Ctrl+C; an in-flight run is allowed to finish.`,
	Args:        cobra.NoArgs,
	Annotations: needsServices,
	RunE:        runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Scheduler started. Press Ctrl+C to stop.")
	err := scheduler.Start(ctx)
	if stopErr := scheduler.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	if errors.Is(err, context.Canceled) {
		cmd.Println("Scheduler stopped.")
		return nil
	}
	return err
}
