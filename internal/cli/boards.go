package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andy/kaitenbill/internal/domain"
)

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List Kaiten spaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		spaces, err := appInstance.Boards.ListSpaces(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list spaces: %w", err)
		}

		if len(spaces) == 0 {
			fmt.Println("No spaces found")
			return nil
		}

		fmt.Printf("%-10s %s\n", "ID", "Title")
		fmt.Println(strings.Repeat("-", 50))
		for _, s := range spaces {
			marker := " "
			if s.ID == appInstance.Config.Selection.SpaceID {
				marker = "*"
			}
			fmt.Printf("%-10d %s %s\n", s.ID, marker, s.Title)
		}
		return nil
	},
}

var boardsCmd = &cobra.Command{
	Use:   "boards [space_id]",
	Short: "List the boards of a space",
	Long:  `List the boards of a space. Without an argument the selected space is used.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID := appInstance.Config.Selection.SpaceID
		if len(args) == 1 {
			id, err := parseID("space", args[0])
			if err != nil {
				return err
			}
			spaceID = id
		}
		if spaceID == 0 {
			return fmt.Errorf("no space selected; pass a space ID or run 'kaitenbill config use <space_id>'")
		}

		boards, err := appInstance.Boards.ListBoards(context.Background(), spaceID)
		if err != nil {
			return fmt.Errorf("failed to list boards: %w", err)
		}

		if len(boards) == 0 {
			fmt.Println("No boards found")
			return nil
		}

		fmt.Printf("%-10s %s\n", "ID", "Title")
		fmt.Println(strings.Repeat("-", 50))
		for _, b := range boards {
			marker := " "
			if b.ID == appInstance.Config.Selection.BoardID {
				marker = "*"
			}
			fmt.Printf("%-10d %s %s\n", b.ID, marker, b.Title)
		}
		return nil
	},
}

var cardsCmd = &cobra.Command{
	Use:   "cards [board_id]",
	Short: "List the live cards of a board with their time",
	Long: `List the live cards of a board. Time is shown as reported by Kaiten,
logged in the local ledger, and the billable total of both.

Cards marked with ✓ are done and can be invoiced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		boardID, err := boardArg(args)
		if err != nil {
			return err
		}

		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			appInstance.Boards.Refresh()
		}

		view, err := appInstance.Boards.BoardView(context.Background(), boardID)
		if err != nil {
			return fmt.Errorf("failed to load cards: %w", err)
		}

		doneOnly, _ := cmd.Flags().GetBool("done")

		fmt.Printf("Board: %s\n\n", view.Board.Title)
		fmt.Printf("%-10s %-40s %-12s %-9s %-9s %-9s\n", "ID", "Title", "State", "Kaiten", "Manual", "Total")
		fmt.Println(strings.Repeat("-", 96))

		var total, shown int
		for _, row := range view.Rows {
			if doneOnly && !row.Card.Eligible() {
				continue
			}
			marker := " "
			if row.Card.Eligible() {
				marker = "✓"
			}
			fmt.Printf("%-10d %-40s %s %-10s %-9s %-9s %-9s\n",
				row.Card.ID,
				truncate(row.Card.Title, 40),
				marker,
				row.Card.State,
				domain.FormatTimeSpent(row.APIMinutes),
				domain.FormatTimeSpent(row.LedgerMinutes),
				domain.FormatTimeSpent(row.TotalMinutes),
			)
			total += row.TotalMinutes
			shown++
		}

		fmt.Println(strings.Repeat("-", 96))
		fmt.Printf("Total: %d card(s), %s\n", shown, domain.FormatTimeSpent(total))
		return nil
	},
}

// boardArg returns the board from args or the remembered selection
func boardArg(args []string) (int64, error) {
	if len(args) > 0 {
		return parseID("board", args[0])
	}
	if id := appInstance.Config.Selection.BoardID; id != 0 {
		return id, nil
	}
	return 0, fmt.Errorf("no board selected; pass a board ID or run 'kaitenbill config use <space_id> <board_id>'")
}

func init() {
	cardsCmd.Flags().Bool("done", false, "Only show cards that can be invoiced")
	cardsCmd.Flags().Bool("refresh", false, "Bypass cached Kaiten data")
}
