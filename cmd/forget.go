package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Run a decay sweep and purge weak, stale memories",
	Args:  cobra.NoArgs,
	RunE:  runForget,
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}

func runForget(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}

	purged := svc.store.ForgetOldMemories()

	if err := svc.save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "purged %d memories\n", purged)
	return nil
}
