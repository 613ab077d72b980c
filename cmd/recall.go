package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/remembrance/core/memory"
)

var (
	recallType string
	recallMax  int
)

var recallCmd = &cobra.Command{
	Use:   "recall <query...>",
	Short: "Retrieve memories relevant to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecall,
}

func init() {
	recallCmd.Flags().StringVar(&recallType, "type", "", "restrict to one memory type")
	recallCmd.Flags().IntVar(&recallMax, "max", memory.DefaultMaxResults, "maximum results")
	rootCmd.AddCommand(recallCmd)
}

func runRecall(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results := svc.store.RetrieveMemories(query, memory.ItemType(recallType), recallMax)

	// Retrieval bumps access recency; persist it.
	if err := svc.save(); err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no memories matched")
		return nil
	}

	for _, item := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s] strength=%.2f accesses=%d\n  %s\n",
			item.ID, item.Type, item.Strength, item.AccessCount, item.Content)
	}
	return nil
}
