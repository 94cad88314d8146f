package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "sqlfw-auditor",
		Short: "Audit Azure SQL server firewall rules against the approved public IP space",
		Long: `sqlfw-auditor walks every subscription visible to the Azure credential, flags SQL
server firewall rules outside the approved ranges, optionally deletes them and
recreates missing baseline ranges, then reports to Slack.

Examples:
  sqlfw-auditor plan                       # Show what would change, touch nothing
  sqlfw-auditor run --json report.json     # One audit, save the report
  sqlfw-auditor serve                      # Daily audits plus /metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Optional YAML config file (environment wins)")

	root.AddCommand(newRunCmd(&configFile))
	root.AddCommand(newPlanCmd(&configFile))
	root.AddCommand(newServeCmd(&configFile))
	root.AddCommand(newVersionCmd())
	return root
}
