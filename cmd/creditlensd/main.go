package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/creditlens/creditlens/internal/cli"
	"github.com/creditlens/creditlens/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "creditlensd",
		Short: "CreditLens daemon",
		Long:  "CreditLens daemon for running the API server, report worker, and index administration",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IndexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
