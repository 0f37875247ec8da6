package app

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the kamerwatch CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "kamerwatch",
		Short:   "Parliamentary dossier tracker",
		Version: a.version,
		Long: `Kamerwatch tracks Dutch parliamentary dossiers across the public
registries. It keeps a local snapshot of each configured dossier's
publications, syncs it incrementally, downloads new documents, and
maintains a summary overview of every dossier it has ever seen.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.kamerwatch.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (warnings only)")
	rootCmd.PersistentFlags().StringVar(&a.config.DossierFile, "dossiers", a.config.DossierFile, "dossier configuration file")
	rootCmd.PersistentFlags().StringVar(&a.config.SnapshotDir, "data-dir", a.config.SnapshotDir, "directory holding the persisted stores")
	rootCmd.PersistentFlags().StringVar(&a.config.ResultsDir, "results-dir", a.config.ResultsDir, "directory receiving downloads and reports")

	rootCmd.SetVersionTemplate("kamerwatch {{.Version}}\n")

	rootCmd.AddCommand(a.newSyncCommand())
	rootCmd.AddCommand(a.newStatusCommand())

	return rootCmd
}

// setupCommand is called before any command runs to apply flag overrides to
// the logger.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	logger := NewLogger(a.config)
	a.logger = &logger
	return nil
}
