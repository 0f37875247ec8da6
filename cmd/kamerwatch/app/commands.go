package app

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// newSyncCommand creates the sync command: one full synchronization pass.
func (a *App) newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize configured dossiers against the registries",
		Long: `Sync runs one synchronization pass: unseen dossiers are bootstrapped
with a full registry enumeration, known dossiers receive the incremental
delta since the last run, and the summary overview is refreshed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kw, err := a.Kamerwatch()
			if err != nil {
				return err
			}

			result, err := kw.Sync(cmd.Context())
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(result.Dossiers))
			for id := range result.Dossiers {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				dr := result.Dossiers[id]
				mode := "incremental"
				if dr.Bootstrapped {
					mode = "bootstrap"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %d added, %d attached\n",
					id, mode, dr.Added, dr.Attached)
			}
			if len(result.NewSummaries) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "new dossiers observed: %v\n", result.NewSummaries)
			}
			if !result.Changed() {
				fmt.Fprintln(cmd.OutOrStdout(), "no changes")
			}
			return nil
		},
	}
}

// newStatusCommand creates the status command: the persisted summary table.
func (a *App) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted dossier summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kw, err := a.Kamerwatch()
			if err != nil {
				return err
			}

			summaries := kw.Summaries()
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No dossiers observed yet. Run 'kamerwatch sync' first.")
				return nil
			}

			caser := cases.Title(language.English)
			table := tablewriter.NewTable(cmd.OutOrStdout())
			table.Header(
				caser.String("dossier"),
				caser.String("items"),
				caser.String("last item"),
				caser.String("title"),
			)
			for _, s := range summaries {
				if err := table.Append(s.ID, strconv.Itoa(s.ItemCount), s.LastItemDateString(), s.Title); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}
