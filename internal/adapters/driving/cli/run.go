package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass now",
	Long: `Discovers, stores and notifies new ownership filings once, with the
configured number of attempts. The result is recorded in the task history
like a scheduled run.`,
	Args:        cobra.NoArgs,
	Annotations: needsServices,
	RunE:        runIngestion,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runIngestion(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Running ingestion...")
	result, err := scheduler.Trigger(ctx)
	if errors.Is(err, domain.ErrRunInProgress) {
		return errors.New("an ingestion run is already in progress")
	}
	if result != nil && result.Report != nil {
		printReport(cmd, result.Report)
	}
	if err != nil {
		attempts := 0
		if result != nil {
			attempts = result.Attempts
		}
		return fmt.Errorf("ingestion failed after %d attempt(s): %w", attempts, err)
	}

	cmd.Printf("Ingestion complete in %d attempt(s).\n", result.Attempts)
	return nil
}

func printReport(cmd *cobra.Command, r *domain.RunReport) {
	cmd.Printf("Run %s\n", r.ID)
	if !r.Since.IsZero() {
		cmd.Printf("  Since:       %s\n", r.Since.Format(time.DateOnly))
	}
	cmd.Printf("  Index files: %d\n", r.IndexFiles)
	cmd.Printf("  Discovered:  %d\n", r.Discovered)
	cmd.Printf("  Skipped:     %d\n", r.Skipped)
	cmd.Printf("  Created:     %d\n", r.Created)
	cmd.Printf("  Updated:     %d\n", r.Updated)
	cmd.Printf("  Degraded:    %d\n", r.Degraded)
	cmd.Printf("  Failed:      %d\n", r.Failed)
	cmd.Printf("  Notified:    %d\n", r.Notified)
	if !r.EndedAt.IsZero() {
		cmd.Printf("  Duration:    %s\n", r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
}
