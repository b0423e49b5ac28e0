package cli

import (
	"github.com/andy/kaitenbill/internal/app"
	"github.com/spf13/cobra"
)

var appInstance *app.App

var rootCmd = &cobra.Command{
	Use:   "kaitenbill",
	Short: "Invoice finished Kaiten cards",
	Long: `Kaitenbill bills finished Kaiten cards: it combines the time Kaiten reports
with a local ledger of manual entries, snapshots the cards into invoices and
archives them in Kaiten once an invoice is paid.

By default, running kaitenbill without arguments launches the interactive TUI.
Use subcommands for CLI operations.`,
	SilenceUsage: true,
	// Default behavior: launch TUI
	RunE: launchTUI,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

func init() {
	rootCmd.AddCommand(spacesCmd)
	rootCmd.AddCommand(boardsCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
}
