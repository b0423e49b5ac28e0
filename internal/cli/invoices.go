package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/service"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Manage invoices",
	Long:  `Create, list, and manage invoices built from finished Kaiten cards.`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status *domain.InvoiceStatus
		if cmd.Flags().Changed("status") {
			raw, _ := cmd.Flags().GetString("status")
			s, err := domain.ParseInvoiceStatus(raw)
			if err != nil {
				return err
			}
			status = &s
		}

		invoices, err := appInstance.Invoices.ListInvoices(context.Background(), status)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		if len(invoices) == 0 {
			fmt.Println("No invoices found")
			return nil
		}

		rate := appInstance.Config.Invoice.Rate()
		currency := appInstance.Config.Invoice.Currency

		fmt.Printf("%-38s %-12s %-25s %-6s %-9s %-14s %s\n", "ID", "Created", "Board", "Cards", "Time", "Amount", "Status")
		fmt.Println(strings.Repeat("-", 120))

		for _, inv := range invoices {
			fmt.Printf("%-38s %-12s %-25s %-6d %-9s %-14s %s\n",
				inv.ID,
				inv.CreatedAt.Format(domain.DateLayout),
				truncate(inv.BoardTitle, 25),
				inv.TotalCards,
				domain.FormatTimeSpent(inv.TotalTimeSpent),
				domain.FormatCurrency(domain.CalculateCost(inv.TotalTimeSpent, rate), currency),
				inv.Status,
			)
		}

		fmt.Printf("\nTotal: %d invoice(s)\n", len(invoices))
		return nil
	},
}

var invoicesCreateCmd = &cobra.Command{
	Use:   "create [card_id...]",
	Short: "Create a draft invoice from done cards",
	Long: `Create a draft invoice from done, unarchived cards of a board.

Examples:
  kaitenbill invoices create 4211 4215 --board 77
  kaitenbill invoices create --all-done`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		boardID := appInstance.Config.Selection.BoardID
		if cmd.Flags().Changed("board") {
			boardID, _ = cmd.Flags().GetInt64("board")
		}
		spaceID := appInstance.Config.Selection.SpaceID
		if cmd.Flags().Changed("space") {
			spaceID, _ = cmd.Flags().GetInt64("space")
		}
		if boardID <= 0 || spaceID <= 0 {
			return fmt.Errorf("space and board are required; pass --space/--board or run 'kaitenbill config use'")
		}

		allDone, _ := cmd.Flags().GetBool("all-done")
		if len(args) == 0 && !allDone {
			return fmt.Errorf("pass card IDs or --all-done")
		}

		board, err := appInstance.Boards.GetBoard(ctx, boardID)
		if err != nil {
			return fmt.Errorf("failed to load board: %w", err)
		}
		boardCards, err := appInstance.Boards.ListCards(ctx, boardID)
		if err != nil {
			return fmt.Errorf("failed to load cards: %w", err)
		}

		selection := domain.NewSelection()
		if allDone {
			selection.ToggleAll(boardCards)
		} else {
			byID := make(map[int64]domain.Card, len(boardCards))
			for _, c := range boardCards {
				byID[c.ID] = c
			}
			for _, a := range args {
				id, err := parseID("card", a)
				if err != nil {
					return err
				}
				card, ok := byID[id]
				if !ok || !card.Eligible() || selection.Has(id) {
					return fmt.Errorf("card %d cannot be invoiced: %w", id, service.ErrCardNotEligible)
				}
				selection.Toggle(card)
			}
		}

		notes, _ := cmd.Flags().GetString("notes")
		data := domain.CreateInvoiceData{
			SpaceID:    spaceID,
			SpaceTitle: spaceTitle(ctx, spaceID),
			BoardID:    board.ID,
			BoardTitle: board.Title,
			Notes:      notes,
		}

		invoice, err := appInstance.Invoices.CreateInvoice(ctx, data, selection.Pick(boardCards))
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		amount := domain.CalculateCost(invoice.TotalTimeSpent, appInstance.Config.Invoice.Rate())
		fmt.Printf("✓ Draft invoice created: %s\n", invoice.ID)
		fmt.Printf("  Board: %s\n", invoice.BoardTitle)
		fmt.Printf("  Cards: %d, %s\n", invoice.TotalCards, domain.FormatTimeSpent(invoice.TotalTimeSpent))
		fmt.Printf("  Amount: %s\n", domain.FormatCurrency(amount, appInstance.Config.Invoice.Currency))
		return nil
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show invoice details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		invoice, err := appInstance.Invoices.GetInvoice(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		rate := appInstance.Config.Invoice.Rate()
		currency := appInstance.Config.Invoice.Currency

		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Invoice: %s\n", invoice.ID)
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Space:   %s\n", invoice.SpaceTitle)
		fmt.Printf("Board:   %s\n", invoice.BoardTitle)
		fmt.Printf("Created: %s\n", invoice.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("Status:  %s\n", invoice.Status)
		if invoice.Notes != "" {
			fmt.Printf("Notes:   %s\n", invoice.Notes)
		}
		fmt.Println()

		if len(invoice.Cards) > 0 {
			fmt.Println("Cards:")
			fmt.Println(strings.Repeat("-", 80))
			fmt.Printf("%-10s %-36s %-9s %-9s %s\n", "Card", "Title", "Kaiten", "Manual", "Amount")
			fmt.Println(strings.Repeat("-", 80))

			for _, item := range invoice.Cards {
				fmt.Printf("%-10d %-36s %-9s %-9s %s\n",
					item.CardID,
					truncate(item.CardTitle, 36),
					domain.FormatTimeSpent(item.APITimeSpent),
					domain.FormatTimeSpent(item.ManualTimeSpent),
					domain.FormatCurrency(domain.CalculateCost(item.TimeSpent, rate), currency),
				)
				if tags := item.Tags; len(tags) > 0 {
					names := make([]string, len(tags))
					for i, t := range tags {
						names[i] = t.Name
					}
					fmt.Printf("%-10s %s\n", "", strings.Join(names, ", "))
				}
			}
			fmt.Println(strings.Repeat("-", 80))
		}

		fmt.Println()
		fmt.Printf("Time:  %s\n", domain.FormatTimeSpent(invoice.TotalTimeSpent))
		fmt.Printf("Rate:  %s/h\n", domain.FormatCurrency(rate, currency))
		fmt.Printf("Total: %s\n", domain.FormatCurrency(domain.InvoiceAmount(invoice.Cards, rate), currency))
		fmt.Println(strings.Repeat("=", 80))
		return nil
	},
}

var invoicesStatusCmd = &cobra.Command{
	Use:   "status [id] [draft|sent|paid]",
	Short: "Change invoice status",
	Long: `Change invoice status. Marking an invoice paid archives its cards in Kaiten;
moving it back to draft or sent unarchives them. The status only changes once
every card has been updated.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := domain.ParseInvoiceStatus(args[1])
		if err != nil {
			return err
		}

		invoice, err := appInstance.Invoices.UpdateStatus(context.Background(), args[0], status)
		if err != nil {
			var syncErr *service.ArchiveSyncError
			if errors.As(err, &syncErr) && len(syncErr.Completed) > 0 {
				fmt.Printf("Cards already updated in Kaiten: %v\n", syncErr.Completed)
			}
			return fmt.Errorf("failed to update status: %w", err)
		}

		fmt.Printf("✓ Invoice %s marked as %s\n", invoice.ID, invoice.Status)
		if status.ArchivesCards() {
			fmt.Printf("  %d card(s) archived in Kaiten\n", invoice.TotalCards)
		}
		return nil
	},
}

var invoicesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if force, _ := cmd.Flags().GetBool("force"); !force {
			if !confirmPrompt(fmt.Sprintf("Delete invoice %s?", args[0])) {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := appInstance.Invoices.DeleteInvoice(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}

		fmt.Printf("✓ Invoice %s deleted\n", args[0])
		return nil
	},
}

// spaceTitle looks the title up among the cached spaces, falling back to the id
func spaceTitle(ctx context.Context, spaceID int64) string {
	spaces, err := appInstance.Boards.ListSpaces(ctx)
	if err == nil {
		for _, s := range spaces {
			if s.ID == spaceID {
				return s.Title
			}
		}
	}
	return fmt.Sprintf("Space #%d", spaceID)
}

func init() {
	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesCreateCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
	invoicesCmd.AddCommand(invoicesStatusCmd)
	invoicesCmd.AddCommand(invoicesDeleteCmd)

	// List flags
	invoicesListCmd.Flags().String("status", "", "Filter by status (draft, sent, paid)")

	// Create flags
	invoicesCreateCmd.Flags().Int64("space", 0, "Space ID (defaults to the selected space)")
	invoicesCreateCmd.Flags().Int64("board", 0, "Board ID (defaults to the selected board)")
	invoicesCreateCmd.Flags().Bool("all-done", false, "Invoice every done card on the board")
	invoicesCreateCmd.Flags().String("notes", "", "Free-text notes")

	// Delete flags
	invoicesDeleteCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
}
