package main

import (
	"fmt"
	"os"

	"github.com/aeonisk/arbiter/internal/cli"
	"github.com/aeonisk/arbiter/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "arbiterd",
		Short: "Aeonisk arbiter daemon",
		Long:  "Arbiter daemon for running the API server and loading rulebook content",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.LoadCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
