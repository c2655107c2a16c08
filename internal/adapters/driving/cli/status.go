package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show the ingestion schedule and recent runs",
	Args:        cobra.NoArgs,
	Annotations: needsServices,
	RunE:        runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	status, err := scheduler.Status(cmd.Context(), statusLimit)
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	if status.Task == nil {
		cmd.Println("Ingestion has not been scheduled or run yet.")
	} else {
		task := status.Task
		cmd.Printf("Task:         %s\n", task.Name)
		cmd.Printf("Next run:     %s\n", formatStatusTime(task.NextRun))
		cmd.Printf("Last run:     %s\n", formatStatusTime(task.LastRun))
		cmd.Printf("Last success: %s\n", formatStatusTime(task.LastSuccess))
		if task.LastError != "" {
			cmd.Printf("Last error:   %s\n", task.LastError)
		}
	}

	if len(status.History) == 0 {
		return nil
	}
	cmd.Println("\nRecent runs:")
	for _, r := range status.History {
		outcome := "ok"
		if !r.Success {
			outcome = "failed: " + r.Error
		}
		cmd.Printf("  %s  %d attempt(s)  %d filing(s)  %s\n",
			r.StartedAt.Format(time.RFC3339), r.Attempts, r.ItemsProcessed, outcome)
	}
	return nil
}

func formatStatusTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
