package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/repository"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyAll   bool
	historyFail  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journalled backups and deletions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer services.Close()

		out := cmd.OutOrStdout()
		if !services.RunService.Enabled() {
			fmt.Fprintln(out, "Run history is disabled (history_db: off)")
			return nil
		}

		filter := repository.RunFilter{Limit: historyLimit}
		if historyFail {
			filter.Statuses = []domain.RunStatus{domain.RunStatusFailed}
		}
		if !historyAll {
			repo, err := services.CurrentRepository()
			if err != nil {
				return err
			}
			filter.Repository = &repo.Root
		}

		runs, err := services.RunService.ListRuns(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs found")
			return nil
		}

		if err := writeRunTable(out, runs); err != nil {
			return err
		}

		for _, run := range runs {
			if run.Error != nil {
				fmt.Fprintf(out, "\n%s %s failed: %s\n", run.Kind, run.ArchiveID, *run.Error)
			}
		}

		return nil
	},
}

// writeRunTable renders runs as aligned columns.
func writeRunTable(out io.Writer, runs []*domain.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tARCHIVE\tTYPE\tSTATUS\tDURATION\tREPOSITORY")
	for _, run := range runs {
		backupType := "-"
		if run.BackupType != nil {
			backupType = *run.BackupType
			if run.DryRun {
				backupType += " (dry run)"
			}
		}
		duration := "-"
		if run.IsComplete() {
			duration = run.Duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(run.StartTime),
			run.Kind,
			run.ArchiveID,
			backupType,
			run.Status,
			duration,
			run.Repository,
		)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyAll, "all-repositories", false, "Show runs of every repository")
	historyCmd.Flags().BoolVar(&historyFail, "failed", false, "Only show failed runs")
}
