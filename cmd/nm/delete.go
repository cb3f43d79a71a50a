package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/nowledge/nm/internal"
	"github.com/spf13/cobra"
)

func NewDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <memory_id>",
		Aliases: []string{"del", "rm"},
		Short:   "Delete a memory",
		Long:    `Delete a memory from the knowledge base.`,
		Args:    cobra.ExactArgs(1),
		RunE:    makeDeleteRunner(a),
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip confirmation")
	return cmd
}

func makeDeleteRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		memoryID := args[0]
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes && !confirm(cmd, fmt.Sprintf("Delete memory %s?", memoryID)) {
			fmt.Fprintln(cmd.OutOrStdout(), styleWarn.Render("Cancelled"))
			return nil
		}

		_, client, err := a.connect(internal.Overrides{})
		if err != nil {
			return err
		}

		if err := client.DeleteMemory(cmd.Context(), memoryID); err != nil {
			return fmt.Errorf("delete memory: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Memory %s deleted\n", stylePass.Render("✓"), memoryID)
		return nil
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
