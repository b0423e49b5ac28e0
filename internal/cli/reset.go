package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset data in the local database",
	Long: `Reset data in the local database. Kaiten itself is never touched:
archived cards stay archived.

Examples:
  kaitenbill reset invoices    # Delete all invoices and their card snapshots
  kaitenbill reset entries     # Delete all manual time entries
  kaitenbill reset all         # Wipe both`,
}

var resetEntriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Delete all manual time entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL manual time entries. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		n, err := appInstance.Ledger.ResetAll(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear time entries: %w", err)
		}

		fmt.Printf("%d time entries have been deleted.\n", n)
		return nil
	},
}

var resetInvoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Delete all invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL invoices. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		n, err := appInstance.Invoices.ResetAll(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear invoices: %w", err)
		}

		fmt.Printf("%d invoices have been deleted.\n", n)
		return nil
	},
}

var resetAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete ALL local data: invoices and time entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL invoices and time entries. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		ctx := context.Background()
		if _, err := appInstance.Invoices.ResetAll(ctx); err != nil {
			return fmt.Errorf("failed to clear invoices: %w", err)
		}
		if _, err := appInstance.Ledger.ResetAll(ctx); err != nil {
			return fmt.Errorf("failed to clear time entries: %w", err)
		}

		fmt.Println("All data has been deleted.")
		return nil
	},
}

func init() {
	resetCmd.AddCommand(resetEntriesCmd)
	resetCmd.AddCommand(resetInvoicesCmd)
	resetCmd.AddCommand(resetAllCmd)
}
