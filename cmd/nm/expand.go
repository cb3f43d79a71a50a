package main

import (
	"fmt"

	"github.com/nowledge/nm/internal"
	"github.com/spf13/cobra"
)

func NewExpandCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand <thread_id>",
		Short: "Show the full content of a thread",
		Long:  `Fetch a stored conversation thread and print its messages.`,
		Args:  cobra.ExactArgs(1),
		RunE:  makeExpandRunner(a),
	}

	cmd.Flags().IntP("limit", "n", 0, "Maximum messages to print (0 = all)")
	return cmd
}

func makeExpandRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		_, client, err := a.connect(internal.Overrides{})
		if err != nil {
			return err
		}

		thread, err := client.GetThread(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get thread: %w", err)
		}

		out := cmd.OutOrStdout()

		title := thread.Title
		if title == "" {
			title = thread.Summary
		}
		if title == "" {
			title = "[untitled thread]"
		}
		fmt.Fprintf(out, "\n%s %s\n", styleBold.Render("Thread:"), title)
		fmt.Fprintln(out, styleDim.Render(fmt.Sprintf("id: %s (%d messages)", args[0], len(thread.Messages))))
		fmt.Fprintln(out)

		messages := thread.Messages
		elided := 0
		if limit > 0 && len(messages) > limit {
			elided = len(messages) - limit
			messages = messages[len(messages)-limit:]
		}

		fmt.Fprintln(out, "<untrusted_historical_content>")
		if elided > 0 {
			fmt.Fprintln(out, styleDim.Render(fmt.Sprintf("... %d earlier messages omitted ...", elided)))
		}
		for _, msg := range messages {
			role := styleLabel.Render("[" + msg.Role + "]")
			fmt.Fprintf(out, "%s %s\n\n", role, msg.Content)
		}
		fmt.Fprintln(out, "</untrusted_historical_content>")
		return nil
	}
}
