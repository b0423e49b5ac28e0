package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *appInstance.Config
		if cfg.Kaiten.APIToken != "" {
			cfg.Kaiten.APIToken = "********"
		}

		out, err := yaml.Marshal(&cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}

		fmt.Printf("# %s\n", appInstance.ConfigPath)
		fmt.Print(string(out))

		if _, err := appInstance.Keyring.GetToken(); err == nil {
			fmt.Println("# Kaiten API token: stored in keyring")
		} else if appInstance.Config.Kaiten.APIToken == "" {
			fmt.Println("# Kaiten API token: not set (run 'kaitenbill config set-token')")
		}
		return nil
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store the Kaiten API token in the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Kaiten API token: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}

		token := strings.TrimSpace(string(raw))
		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}

		if err := appInstance.Keyring.SetToken(token); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}

		fmt.Println("✓ Token stored in keyring")
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use [space_id] [board_id]",
	Short: "Select the space and board commands default to",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		spaceID, err := parseID("space", args[0])
		if err != nil {
			return err
		}
		appInstance.Config.SelectSpace(spaceID)

		if len(args) == 2 {
			boardID, err := parseID("board", args[1])
			if err != nil {
				return err
			}
			board, err := appInstance.Boards.GetBoard(ctx, boardID)
			if err != nil {
				return fmt.Errorf("failed to load board: %w", err)
			}
			appInstance.Config.SelectBoard(board.ID)
			fmt.Printf("✓ Using board %s in %s\n", board.Title, spaceTitle(ctx, spaceID))
		} else {
			fmt.Printf("✓ Using space %s\n", spaceTitle(ctx, spaceID))
		}

		if err := appInstance.SaveConfig(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stdout, appInstance.ConfigPath)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configUseCmd)
	configCmd.AddCommand(configPathCmd)
}
