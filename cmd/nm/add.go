package main

import (
	"fmt"
	"strings"

	"github.com/nowledge/nm/internal"
	"github.com/spf13/cobra"
)

func NewAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Add a new memory",
		Long:  `Add a new memory to the knowledge base.`,
		Args:  cobra.ExactArgs(1),
		RunE:  makeAddRunner(a),
	}

	cmd.Flags().StringP("title", "t", "", "Memory title")
	cmd.Flags().Float64P("importance", "i", 0.5, "Importance (0.0-1.0)")
	cmd.Flags().StringP("labels", "l", "", "Comma-separated labels")
	cmd.Flags().String("event-start", "", "Event start date (YYYY, YYYY-MM, or YYYY-MM-DD)")
	cmd.Flags().String("event-end", "", "Event end date")
	cmd.Flags().String("temporal", "", "Temporal context (past|present|future|timeless)")
	return cmd
}

func makeAddRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		importance, _ := cmd.Flags().GetFloat64("importance")
		labels, _ := cmd.Flags().GetString("labels")
		eventStart, _ := cmd.Flags().GetString("event-start")
		eventEnd, _ := cmd.Flags().GetString("event-end")
		temporal, _ := cmd.Flags().GetString("temporal")

		if err := validateTemporal(temporal); err != nil {
			return err
		}

		_, client, err := a.connect(internal.Overrides{})
		if err != nil {
			return err
		}

		result, err := client.AddMemory(cmd.Context(), internal.AddMemoryRequest{
			Content:         args[0],
			Title:           title,
			Importance:      importance,
			Labels:          splitLabels(labels),
			EventStart:      eventStart,
			EventEnd:        eventEnd,
			TemporalContext: temporal,
		})
		if err != nil {
			return fmt.Errorf("add memory: %w", err)
		}

		body := fmt.Sprintf("%s\n\n%s %s\n%s %d applied\n%s %.2f",
			stylePass.Render("Memory added successfully!"),
			styleBold.Render("Title:"), result.Memory.Title,
			styleBold.Render("Labels:"), result.Processing.LabelsApplied,
			styleBold.Render("Importance:"), result.Memory.Importance,
		)
		fmt.Fprintln(cmd.OutOrStdout(), styleBox.Render(body))
		return nil
	}
}

func validateTemporal(temporal string) error {
	switch temporal {
	case "", "past", "present", "future", "timeless":
		return nil
	default:
		return fmt.Errorf("invalid --temporal %q (past|present|future|timeless)", temporal)
	}
}

func splitLabels(labels string) []string {
	var out []string
	for _, l := range strings.Split(labels, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
