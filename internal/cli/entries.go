package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/service"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage manual time entries",
	Long:  `List, add, edit, and delete time logged against Kaiten cards in the local ledger.`,
}

var entriesListCmd = &cobra.Command{
	Use:   "list [card_id]",
	Short: "List the time entries of a card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cardID, err := parseID("card", args[0])
		if err != nil {
			return err
		}

		entries, err := appInstance.Ledger.ListEntries(context.Background(), cardID)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No entries found")
			return nil
		}

		fmt.Printf("%-38s %-12s %-9s %s\n", "ID", "Date", "Time", "Description")
		fmt.Println(strings.Repeat("-", 90))

		var total int
		for _, e := range entries {
			fmt.Printf("%-38s %-12s %-9s %s\n",
				e.ID,
				e.Date.Format(domain.DateLayout),
				domain.FormatHM(e.Hours, e.Minutes),
				truncate(e.Description, 30),
			)
			total += e.TotalMinutes()
		}

		fmt.Println(strings.Repeat("-", 90))
		fmt.Printf("Total: %d entries, %s\n", len(entries), domain.FormatTimeSpent(total))
		return nil
	},
}

var entriesAddCmd = &cobra.Command{
	Use:   "add [card_id] [duration] [description]",
	Short: "Log time against a card",
	Long: `Log time against a card. Duration accepts "1h 30m", "2h", "45m", "1:30" or minutes.

Examples:
  kaitenbill entries add 4211 "1h 30m" "Review"
  kaitenbill entries add 4211 45m --date yesterday`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cardID, err := parseID("card", args[0])
		if err != nil {
			return err
		}

		minutes, err := domain.ParseTimeSpent(args[1])
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		hours, mins := domain.SplitMinutes(minutes)

		dateStr, _ := cmd.Flags().GetString("date")
		date, err := parseDate(dateStr)
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}

		description := ""
		if len(args) > 2 {
			description = args[2]
		}

		entry, err := appInstance.Ledger.AddEntry(context.Background(), service.NewTimeEntryInput{
			CardID:      cardID,
			Hours:       hours,
			Minutes:     mins,
			Description: description,
			Date:        date,
		})
		if err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}

		fmt.Printf("✓ Time entry created (ID: %s)\n", entry.ID)
		fmt.Printf("  Card: %d\n", entry.CardID)
		fmt.Printf("  Time: %s on %s\n", domain.FormatHM(entry.Hours, entry.Minutes), entry.Date.Format(domain.DateLayout))
		return nil
	},
}

var entriesEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch domain.TimeEntryPatch

		if cmd.Flags().Changed("time") {
			raw, _ := cmd.Flags().GetString("time")
			minutes, err := domain.ParseTimeSpent(raw)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			hours, mins := domain.SplitMinutes(minutes)
			patch.Hours, patch.Minutes = &hours, &mins
		}
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			patch.Description = &description
		}
		if cmd.Flags().Changed("date") {
			raw, _ := cmd.Flags().GetString("date")
			date, err := parseDate(raw)
			if err != nil {
				return fmt.Errorf("invalid date: %w", err)
			}
			patch.Date = &date
		}

		if patch == (domain.TimeEntryPatch{}) {
			return fmt.Errorf("nothing to change; use --time, --description or --date")
		}

		entry, err := appInstance.Ledger.UpdateEntry(context.Background(), args[0], patch)
		if err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}

		fmt.Printf("✓ Entry updated (ID: %s)\n", entry.ID)
		fmt.Printf("  Time: %s on %s\n", domain.FormatHM(entry.Hours, entry.Minutes), entry.Date.Format(domain.DateLayout))
		return nil
	},
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.Ledger.DeleteEntry(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		fmt.Printf("✓ Entry deleted (ID: %s)\n", args[0])
		return nil
	},
}

var entriesSummaryCmd = &cobra.Command{
	Use:   "summary [card_id...]",
	Short: "Show logged time totals per card",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, a := range args {
			id, err := parseID("card", a)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		summaries, err := appInstance.Ledger.Summaries(context.Background(), ids)
		if err != nil {
			return fmt.Errorf("failed to load summaries: %w", err)
		}

		fmt.Printf("%-10s %-9s %-8s %s\n", "Card", "Time", "Entries", "Last entry")
		fmt.Println(strings.Repeat("-", 45))
		for _, id := range ids {
			s, ok := summaries[id]
			if !ok {
				fmt.Printf("%-10d %-9s %-8d %s\n", id, domain.EmptyTimeSpent, 0, domain.EmptyTimeSpent)
				continue
			}
			last := domain.EmptyTimeSpent
			if s.LastEntryDate != nil {
				last = s.LastEntryDate.Format(domain.DateLayout)
			}
			fmt.Printf("%-10d %-9s %-8d %s\n", id, domain.FormatTimeSpent(s.TotalMinutesAll), s.EntriesCount, last)
		}
		return nil
	},
}

func init() {
	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesAddCmd)
	entriesCmd.AddCommand(entriesEditCmd)
	entriesCmd.AddCommand(entriesDeleteCmd)
	entriesCmd.AddCommand(entriesSummaryCmd)

	// Add flags
	entriesAddCmd.Flags().String("date", "today", "Date worked (YYYY-MM-DD, 'today' or 'yesterday')")

	// Edit flags
	entriesEditCmd.Flags().String("time", "", "New duration, e.g. 1h 30m")
	entriesEditCmd.Flags().String("description", "", "New description")
	entriesEditCmd.Flags().String("date", "", "New date (YYYY-MM-DD)")
}
