package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}

	stats := svc.store.GetMemoryStats()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "memories: %d\n", stats.TotalMemories)
	fmt.Fprintf(out, "patterns: %d\n", stats.TotalPatterns)
	fmt.Fprintf(out, "average strength: %.3f\n", stats.AverageStrength)
	for itemType, count := range stats.CountsByType {
		fmt.Fprintf(out, "  %s: %d\n", itemType, count)
	}
	return nil
}
