package cli

import (
	"fmt"
	"os"

	"github.com/martijn/snapchain/internal/adapter/prompt"
	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/service"
	"github.com/spf13/cobra"
)

var (
	purgeLast  int
	purgeFirst int
	purgeOlder int
	purgeNewer int
	purgeAll   bool
	purgeYes   bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete archives selected by a retention policy",
	Long: `Delete archives of the current repository. Exactly one of --last, --first,
--older, --newer or --all selects the archives; without any of them the
archives are listed and picked interactively. The selection is always shown
and confirmed before anything is deleted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := purgePolicy(cmd)
		if err != nil {
			return err
		}

		prompter, err := purgePrompter(cmd, policy)
		if err != nil {
			return err
		}

		services, err := initServices(cmd.Context(), prompter)
		if err != nil {
			return err
		}
		defer services.Close()

		repo, err := services.CurrentRepository()
		if err != nil {
			return err
		}

		result, err := services.PurgeService.Purge(cmd.Context(), repo, policy)
		if result == nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case result.NothingToDo:
			fmt.Fprintln(out, "nothing to purge")
		case result.Aborted:
			fmt.Fprintln(out, "aborted, nothing deleted")
		default:
			for _, id := range result.Deleted {
				fmt.Fprintf(out, "deleted %s\n", id)
			}
			for _, failure := range result.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to delete %s: %v\n", failure.Archive, failure.Err)
			}
		}

		if err != nil {
			return fmt.Errorf("%w: %d of %d deletions failed", domain.ErrTransfer, len(result.Failures), len(result.Selected))
		}
		return nil
	},
}

// purgePolicy maps the mode flags onto a policy. Cobra already rejects
// combined flags; the builder keeps the rule for every other caller too.
func purgePolicy(cmd *cobra.Command) (domain.RetentionPolicy, error) {
	var b domain.PolicyBuilder
	flags := cmd.Flags()

	modes := []struct {
		flag  string
		mode  domain.RetentionMode
		value int
	}{
		{"last", domain.RetentionLast, purgeLast},
		{"first", domain.RetentionFirst, purgeFirst},
		{"older", domain.RetentionOlder, purgeOlder},
		{"newer", domain.RetentionNewer, purgeNewer},
		{"all", domain.RetentionAll, 0},
	}
	for _, m := range modes {
		if !flags.Changed(m.flag) {
			continue
		}
		if err := b.Set(m.mode, m.value); err != nil {
			return domain.RetentionPolicy{}, err
		}
	}

	return b.Build(), nil
}

func purgePrompter(cmd *cobra.Command, policy domain.RetentionPolicy) (service.Prompter, error) {
	if purgeYes {
		if policy.Mode == domain.RetentionInteractive {
			return nil, fmt.Errorf("%w: --yes needs one of --last, --first, --older, --newer or --all", domain.ErrConfiguration)
		}
		return prompt.NewScripted("y"), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && policy.Mode == domain.RetentionInteractive {
		if !prompt.IsTerminal(f) && !prompt.IsPiped(f) {
			return nil, fmt.Errorf("%w: interactive purge needs a terminal or piped input", domain.ErrConfiguration)
		}
	}
	return prompt.NewTerminal(in, cmd.OutOrStdout()), nil
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	purgeCmd.Flags().IntVar(&purgeLast, "last", 0, "Delete the N most recent archives")
	purgeCmd.Flags().IntVar(&purgeFirst, "first", 0, "Delete the N oldest archives")
	purgeCmd.Flags().IntVar(&purgeOlder, "older", 0, "Delete archives older than N days")
	purgeCmd.Flags().IntVar(&purgeNewer, "newer", 0, "Delete archives newer than N days")
	purgeCmd.Flags().BoolVar(&purgeAll, "all", false, "Delete every archive")
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "Do not ask for confirmation")

	purgeCmd.MarkFlagsMutuallyExclusive("last", "first", "older", "newer", "all")
}
