package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/martijn/snapchain/internal/adapter/schedule"
	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/pkg/config"
	"github.com/spf13/cobra"
)

var (
	cronBinary string
	cronLogDir string
	cronFile   bool
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Print the crontab entry for the repository schedule",
	Long: `Validate the schedule in the repository marker and print a crontab line that
runs the backup, followed by the next three run times. With --file the output
is a complete cron file covering the repository and its parents.`,
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

		binary := cronBinary
		if binary == "" {
			if binary, err = os.Executable(); err != nil {
				binary = "snapchain"
			}
		}
		builder := schedule.NewCronBuilder(binary, cronLogDir)
		out := cmd.OutOrStdout()

		if cronFile {
			repos, err := chainRepositories(services, repo)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, builder.BuildCronFileContent(repos, time.Now()))
			return nil
		}

		line, err := builder.BuildLine(repo)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, line)

		runs, err := schedule.NextRuns(repo.Schedule, time.Now(), 3)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Next runs:")
		for _, next := range runs {
			fmt.Fprintf(out, "  %s\n", next.Format(time.RFC1123))
		}
		return nil
	},
}

// chainRepositories returns repo followed by every parent the backup chain
// would visit.
func chainRepositories(services *Services, repo *domain.Repository) ([]*domain.Repository, error) {
	repos := []*domain.Repository{repo}
	seen := map[string]bool{repo.Root: true}

	for current := repo; ; {
		root, err := services.ChainService.ParentOf(current)
		if err != nil || seen[root] {
			return repos, nil
		}
		seen[root] = true

		parent, err := config.LoadRepository(root)
		if err != nil {
			return nil, err
		}
		repos = append(repos, parent)
		current = parent
	}
}

func init() {
	rootCmd.AddCommand(cronCmd)

	cronCmd.Flags().StringVar(&cronBinary, "binary", "", "Path of the snapchain binary (default: this executable)")
	cronCmd.Flags().StringVar(&cronLogDir, "log-dir", "", "Append backup output to a log file in this directory")
	cronCmd.Flags().BoolVar(&cronFile, "file", false, "Print a complete cron file for the repository chain")
}
