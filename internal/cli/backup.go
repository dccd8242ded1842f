package cli

import (
	"fmt"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/spf13/cobra"
)

var (
	backupDryRun bool
	backupFull   bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the repository and its parents",
	Long: `Create an archive of the current repository, incremental to the previous
archive unless --full is given, then back up every enclosing parent
repository with the same flags (typically used by cron)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer services.Close()

		repo, err := services.CurrentRepository()
		if err != nil {
			return err
		}

		flags := domain.BackupFlags{DryRun: backupDryRun, ForceFull: backupFull}
		result, err := services.ChainService.RunBackup(cmd.Context(), repo, flags)

		out := cmd.OutOrStdout()
		for _, link := range result.Links {
			fmt.Fprintf(out, "%s: %s backup %s", link.Repository, link.Type, link.ArchiveID)
			if link.FromArchive != nil {
				fmt.Fprintf(out, " (from %s)", *link.FromArchive)
			}
			if link.DryRun {
				fmt.Fprint(out, " [dry run]")
			}
			fmt.Fprintln(out)
		}

		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)

	// Add flags
	backupCmd.Flags().BoolVarP(&backupDryRun, "dry-run", "n", false, "Run the transfer without keeping an archive")
	backupCmd.Flags().BoolVar(&backupFull, "full", false, "Force a full backup instead of an incremental one")
}
