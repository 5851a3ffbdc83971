package main

import (
	"fmt"
	"os"

	"github.com/aeonisk/arbiter/internal/cli"
	"github.com/aeonisk/arbiter/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "arbiter",
		Short: "Aeonisk arbiter CLI - tabletop assistant at the command line",
		Long: `Arbiter CLI talks to a running arbiterd server.

Environment variables:
  ARBITER_TOKEN    Bearer token for authentication (empty if the server runs without auth)
  ARBITER_API_URL  API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.RollCmd())
	rootCmd.AddCommand(client.CharacterCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
