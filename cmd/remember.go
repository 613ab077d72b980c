package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/remembrance/core/memory"
)

var (
	rememberType     string
	rememberStrength float64
	rememberTags     []string
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content...>",
	Short: "Store a learned fact in long-term memory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemember,
}

func init() {
	rememberCmd.Flags().StringVar(&rememberType, "type", string(memory.ItemTypeConversation), "memory type")
	rememberCmd.Flags().Float64Var(&rememberStrength, "strength", 0.5, "initial strength [0,1]")
	rememberCmd.Flags().StringSliceVar(&rememberTags, "tag", nil, "extra metadata tags (key=value)")
	rootCmd.AddCommand(rememberCmd)
}

func runRemember(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}

	content := strings.Join(args, " ")
	id := svc.store.AddMemory(memory.ItemType(rememberType), content, parseTagFlags(rememberTags), rememberStrength)

	if err := svc.save(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func parseTagFlags(tags []string) map[string]string {
	if len(tags) == 0 {
		return nil
	}

	md := make(map[string]string, len(tags))
	for _, tag := range tags {
		key, value, found := strings.Cut(tag, "=")
		if !found {
			md[tag] = tag
			continue
		}
		md[key] = value
	}
	return md
}
