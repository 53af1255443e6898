package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/creditlens/creditlens/internal/cli"
	"github.com/creditlens/creditlens/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "creditlens",
		Short: "CreditLens CLI - RAG-backed credit analysis reports",
		Long: `CreditLens CLI generates credit analysis reports and converses with the
document corpus through the CreditLens API server.

Environment variables:
  CREDITLENS_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ReportCmd())
	rootCmd.AddCommand(client.ChatCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
