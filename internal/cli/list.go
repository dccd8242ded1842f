package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List archives of the current repository",
	Args:    cobra.NoArgs,
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

		out := cmd.OutOrStdout()
		if len(archives) == 0 {
			fmt.Fprintln(out, "No archives found")
			return nil
		}

		latest, err := services.CatalogService.MostRecent(cmd.Context(), repo)
		if err != nil {
			return err
		}

		width := len(fmt.Sprint(len(archives)))
		for i, id := range archives {
			marker := ""
			if id == latest {
				marker = " (latest)"
			}
			fmt.Fprintf(out, "%*d) %s%s\n", width, i+1, id, marker)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
