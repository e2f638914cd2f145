package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tabwarden",
	Short: "Tab lifecycle daemon: evicts stale tabs, infers workspaces",
	Long:  "Tabwarden keeps a browser's tab set small by closing idle, duplicate, and memory-heavy tabs, and groups tabs that are used together into workspaces. Single Go binary; pairs with a companion extension.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logCmd)
}
