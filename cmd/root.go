// Package cmd implements the remembrance CLI: a small front door over the
// persisted long-term memory store.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	flagDataDir string
	flagBackend string
)

var rootCmd = &cobra.Command{
	Use:   "remembrance",
	Short: "Remembrance - working memory for an AI coding assistant",
	Long: `Remembrance manages a bounded context cache and a decaying
long-term memory store for an AI coding assistant.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "override the snapshot data directory")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "snapshot backend: json or sqlite")
}

func Execute() error {
	return rootCmd.Execute()
}
