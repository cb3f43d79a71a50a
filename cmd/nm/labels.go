package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/nowledge/nm/internal"
	"github.com/spf13/cobra"
)

func NewLabelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List labels in the knowledge base",
		Long:  `List labels with their usage counts, most used first.`,
		Args:  cobra.NoArgs,
		RunE:  makeLabelsRunner(a),
	}

	cmd.Flags().IntP("limit", "n", 50, "Maximum labels to show")
	return cmd
}

func makeLabelsRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		_, client, err := a.connect(internal.Overrides{})
		if err != nil {
			return err
		}

		labels, err := client.ListLabels(cmd.Context())
		if err != nil {
			return fmt.Errorf("list labels: %w", err)
		}

		if len(labels) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), styleWarn.Render("No labels found."))
			return nil
		}

		sort.SliceStable(labels, func(i, j int) bool {
			return labels[i].UsageCount > labels[j].UsageCount
		})
		if limit > 0 && len(labels) > limit {
			labels = labels[:limit]
		}

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("LABEL", "USAGE")
		for _, l := range labels {
			t.Row(l.Name, fmt.Sprint(l.UsageCount))
		}

		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	}
}
