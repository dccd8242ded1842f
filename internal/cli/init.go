package cli

import (
	"fmt"
	"path/filepath"

	"github.com/martijn/snapchain/pkg/config"
	"github.com/spf13/cobra"
)

var (
	initSource   string
	initStorage  string
	initEngine   string
	initExcludes []string
	initSchedule string
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Turn a directory into a repository",
	Long: `Write a .snapchain.yml marker into dir (default: the current directory) and
prepare the storage location with the configured engine`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := workDir
		if len(args) == 1 {
			dir = args[0]
		}
		root, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", dir, err)
		}
		if root, err = filepath.EvalSymlinks(root); err != nil {
			return fmt.Errorf("failed to resolve %s: %w", dir, err)
		}

		services, err := initServices(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer services.Close()

		path, err := config.WriteMarker(root, &config.Marker{
			SourceDir: initSource,
			Storage:   initStorage,
			Engine:    initEngine,
			Excludes:  initExcludes,
			Schedule:  initSchedule,
		})
		if err != nil {
			return err
		}

		repo, err := config.LoadRepository(root)
		if err != nil {
			return err
		}

		eng, err := services.Engines.For(repo)
		if err != nil {
			return err
		}
		if err := eng.Init(cmd.Context(), repo); err != nil {
			return fmt.Errorf("failed to initialize %s storage: %w", repo.Engine, err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Initialized %s repository in %s\n", repo.Engine, repo.Root)
		fmt.Fprintf(out, "Marker: %s\n", path)
		fmt.Fprintf(out, "Source: %s\n", repo.SourceDir)
		fmt.Fprintf(out, "Storage: %s\n", repo.Storage)

		if parent, err := services.ChainService.ParentOf(repo); err == nil {
			fmt.Fprintf(out, "Backups will cascade to parent repository %s\n", parent)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initSource, "source", ".", "Directory to back up, relative to the repository root")
	initCmd.Flags().StringVar(&initStorage, "storage", "", "Where archives are stored, relative to the repository root")
	initCmd.Flags().StringVar(&initEngine, "engine", "rsync", "Backup engine: borg or rsync")
	initCmd.Flags().StringSliceVar(&initExcludes, "exclude", nil, "Exclude pattern (repeatable)")
	initCmd.Flags().StringVar(&initSchedule, "schedule", "", "Cron expression for scheduled backups")

	initCmd.MarkFlagRequired("storage")
}
