package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current repository and its storage",
	Args:  cobra.NoArgs,
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

		archives, err := services.CatalogService.ListArchives(cmd.Context(), repo)
		if err != nil {
			return err
		}
		latest, err := services.CatalogService.MostRecent(cmd.Context(), repo)
		if err != nil {
			return err
		}

		parent := "none"
		root, err := services.ChainService.ParentOf(repo)
		switch {
		case err == nil:
			parent = root
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Repository:\t%s\n", repo.Root)
		fmt.Fprintf(w, "Marker:\t%s\n", repo.MarkerPath())
		fmt.Fprintf(w, "Engine:\t%s\n", repo.Engine)
		fmt.Fprintf(w, "Source:\t%s\n", repo.SourceDir)
		fmt.Fprintf(w, "Storage:\t%s\n", repo.Storage)
		fmt.Fprintf(w, "Parent:\t%s\n", parent)
		if repo.Schedule != "" {
			fmt.Fprintf(w, "Schedule:\t%s\n", repo.Schedule)
		}
		if len(repo.Excludes) > 0 {
			fmt.Fprintf(w, "Excludes:\t%v\n", repo.Excludes)
		}
		fmt.Fprintf(w, "Archives:\t%d\n", len(archives))
		if latest == "" {
			latest = "none"
		}
		fmt.Fprintf(w, "Latest:\t%s\n", latest)

		if run, err := services.RunService.LatestBackup(cmd.Context(), repo); err == nil && run != nil && run.EndTime != nil {
			fmt.Fprintf(w, "Last backup:\t%s (%s)\n", humanize.Time(*run.EndTime), run.ArchiveID)
		}

		if usage, err := disk.UsageWithContext(cmd.Context(), existingAncestor(repo.Storage)); err == nil {
			fmt.Fprintf(w, "Disk:\t%s free of %s (%.1f%% used)\n",
				humanize.Bytes(usage.Free), humanize.Bytes(usage.Total), usage.UsedPercent)
		} else {
			logger.WithError(err).WithField("storage", repo.Storage).Debug("Failed to read disk usage")
		}

		return w.Flush()
	},
}

// existingAncestor returns path or its nearest ancestor that exists.
func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
