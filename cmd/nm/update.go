package main

import (
	"fmt"

	"github.com/nowledge/nm/internal"
	"github.com/spf13/cobra"
)

func NewUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <memory_id>",
		Short: "Update an existing memory",
		Long:  `Update the content, title, importance, or labels of an existing memory.`,
		Args:  cobra.ExactArgs(1),
		RunE:  makeUpdateRunner(a),
	}

	cmd.Flags().StringP("content", "c", "", "New content")
	cmd.Flags().StringP("title", "t", "", "New title")
	cmd.Flags().Float64P("importance", "i", 0, "New importance (0.0-1.0)")
	cmd.Flags().StringP("labels", "l", "", "Replace labels (comma-separated)")
	return cmd
}

func makeUpdateRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		memoryID := args[0]

		var req internal.UpdateMemoryRequest
		if cmd.Flags().Changed("content") {
			v, _ := cmd.Flags().GetString("content")
			req.Content = &v
		}
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			req.Title = &v
		}
		if cmd.Flags().Changed("importance") {
			v, _ := cmd.Flags().GetFloat64("importance")
			req.Importance = &v
		}
		if cmd.Flags().Changed("labels") {
			v, _ := cmd.Flags().GetString("labels")
			req.Labels = &v
		}

		if req.Content == nil && req.Title == nil && req.Importance == nil && req.Labels == nil {
			fmt.Fprintln(cmd.OutOrStdout(), styleWarn.Render("No changes specified. Use --content, --title, --importance, or --labels"))
			return nil
		}

		_, client, err := a.connect(internal.Overrides{})
		if err != nil {
			return err
		}

		if err := client.UpdateMemory(cmd.Context(), memoryID, req); err != nil {
			return fmt.Errorf("update memory: %w", err)
		}

		body := fmt.Sprintf("%s\n\n%s %s",
			stylePass.Render("Memory updated successfully!"),
			styleBold.Render("ID:"), memoryID,
		)
		fmt.Fprintln(cmd.OutOrStdout(), styleBox.Render(body))
		return nil
	}
}
