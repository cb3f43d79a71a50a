package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nowledge/nm/internal"
	"github.com/spf13/cobra"
)

func NewSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memories and related threads",
		Long:  `Search memories with semantic ranking and discover related conversation threads.`,
		Args:  cobra.ExactArgs(1),
		RunE:  makeSearchRunner(a),
	}

	cmd.Flags().IntP("limit", "n", 10, "Maximum memories to return")
	cmd.Flags().IntP("threads", "t", 5, "Maximum related threads")
	cmd.Flags().BoolP("verbose", "v", false, "Show more content per result")
	cmd.Flags().Bool("no-threads", false, "Skip thread search")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

func makeSearchRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		threadLimit, _ := cmd.Flags().GetInt("threads")
		verbose, _ := cmd.Flags().GetBool("verbose")
		noThreads, _ := cmd.Flags().GetBool("no-threads")
		asJSON, _ := cmd.Flags().GetBool("json")

		_, client, err := a.connect(internal.Overrides{})
		if err != nil {
			return err
		}

		svc := internal.NewSearchService(client)
		result, err := svc.Search(cmd.Context(), internal.SearchInput{
			Query:          args[0],
			MemoryLimit:    limit,
			ThreadLimit:    threadLimit,
			IncludeThreads: !noThreads,
			Verbose:        verbose,
		})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if asJSON {
			return outputSearchJSON(cmd, result)
		}
		renderSearchResult(cmd, result)
		return nil
	}
}

type searchErrorJSON struct {
	Kind    internal.ErrorKind `json:"kind"`
	Message string             `json:"message"`
}

func outputSearchJSON(cmd *cobra.Command, result *internal.SearchResult) error {
	memories := make([]map[string]any, 0, len(result.Memories))
	for _, m := range result.Memories {
		memories = append(memories, map[string]any{
			"id":               m.ID,
			"title":            m.Title,
			"content":          m.Content,
			"preview":          renderPreview(m.Preview, m.PreviewClipped),
			"score":            m.Score,
			"importance":       m.Importance,
			"labels":           m.Labels,
			"source_thread_id": m.SourceThreadID,
		})
	}

	threads := make([]map[string]any, 0, len(result.Threads))
	for _, t := range result.Threads {
		threads = append(threads, map[string]any{
			"id":            t.ID,
			"title":         t.Title,
			"summary":       t.Summary,
			"message_count": t.MessageCount,
			"score":         t.Score,
		})
	}

	out := map[string]any{
		"query":          result.Query,
		"total_memories": result.TotalMemories,
		"total_threads":  result.TotalThreads,
		"truncated":      result.Truncated,
		"memories":       memories,
		"threads":        threads,
	}

	errs := map[string]searchErrorJSON{}
	if result.MemoryErr != nil {
		errs["memories"] = searchErrorJSON{Kind: internal.Kind(result.MemoryErr), Message: result.MemoryErr.Error()}
	}
	if result.ThreadErr != nil {
		errs["threads"] = searchErrorJSON{Kind: internal.Kind(result.ThreadErr), Message: result.ThreadErr.Error()}
	}
	if len(errs) > 0 {
		out["errors"] = errs
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderSearchResult(cmd *cobra.Command, result *internal.SearchResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\n%s %s\n", styleBold.Render("Query:"), result.Query)
	fmt.Fprintln(out, styleDim.Render(fmt.Sprintf("Found %d memories, %d related threads", result.TotalMemories, result.TotalThreads)))
	fmt.Fprintln(out)

	if result.MemoryErr != nil {
		fmt.Fprintf(out, "%s memory search failed: %v\n", styleFail.Render("!"), result.MemoryErr)
	}
	if result.ThreadErr != nil {
		fmt.Fprintf(out, "%s thread search failed: %v\n", styleFail.Render("!"), result.ThreadErr)
	}

	if len(result.Memories) == 0 && result.MemoryErr == nil {
		fmt.Fprintln(out, styleWarn.Render("No memories found."))
	}

	if len(result.Memories) > 0 {
		fmt.Fprintf(out, "%s\n\n", styleLabel.Render("== Memories =="))
		fmt.Fprintln(out, "<untrusted_memory_content>")

		for i, mem := range result.Memories {
			title := mem.Title
			if title == "" {
				title = "[untitled]"
			}
			meta := fmt.Sprintf("(%s match, %s importance)", formatScore(mem.Score), formatImportance(mem.Importance))
			fmt.Fprintf(out, "%s %s\n", styleBold.Render(fmt.Sprintf("%d. %s", i+1, title)), styleDim.Render(meta))
			fmt.Fprintf(out, "   %s\n", renderPreview(mem.Preview, mem.PreviewClipped))

			if len(mem.Labels) > 0 {
				tags := make([]string, 0, len(mem.Labels))
				for _, l := range mem.Labels {
					tags = append(tags, styleLabel.Render("#"+l))
				}
				fmt.Fprintf(out, "   %s\n", strings.Join(tags, " "))
			}
			if mem.SourceThreadID != "" {
				fmt.Fprintf(out, "   %s\n", styleDim.Render("Source: thread/"+shortID(mem.SourceThreadID)))
			}
			fmt.Fprintln(out)
		}

		fmt.Fprintf(out, "</untrusted_memory_content>\n\n")
	}

	if len(result.Threads) > 0 {
		fmt.Fprintf(out, "%s\n\n", styleLabel.Render("== Related Threads =="))
		fmt.Fprintln(out, "<untrusted_thread_metadata>")
		for _, thread := range result.Threads {
			title := thread.Title
			if title == "" {
				title = thread.Summary
			}
			if title == "" {
				title = "[untitled thread]"
			}
			fmt.Fprintf(out, "  %s\n", styleBold.Render("> "+title))
			fmt.Fprintf(out, "    %s\n", styleDim.Render(fmt.Sprintf("id: %s (%d messages)", thread.ID, thread.MessageCount)))
		}
		fmt.Fprintln(out, "</untrusted_thread_metadata>")
		fmt.Fprintln(out)
		fmt.Fprintln(out, styleDim.Render("Tip: Use 'nm expand <thread_id>' to view full content"))
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
