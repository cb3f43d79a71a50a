package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nowledge/nm/internal"
	"github.com/spf13/cobra"
)

func NewPersistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persist",
		Short: "Persist the latest coding session as a thread",
		Long: `Locate the most recent Claude Code or Codex session for the project,
extract its conversation, and store it as a thread.`,
		Args: cobra.NoArgs,
		RunE: makePersistRunner(a),
	}

	cmd.Flags().StringP("title", "t", "", "Thread title (default: derived from the first user message)")
	cmd.Flags().StringP("project-path", "p", "", "Project directory (default: current directory)")
	cmd.Flags().String("source", "", "Session source (auto|claude|codex)")
	cmd.Flags().Bool("complete-turns", false, "Drop user messages without an assistant reply")
	cmd.Flags().Bool("watch", false, "Wait for the session file to stop changing before persisting")
	cmd.Flags().Duration("debounce", 2*time.Second, "Quiet period for --watch")
	cmd.Flags().Bool("debug", false, "Verbose diagnostics on stderr")
	return cmd
}

func makePersistRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		projectPath, _ := cmd.Flags().GetString("project-path")
		source, _ := cmd.Flags().GetString("source")
		completeTurns, _ := cmd.Flags().GetBool("complete-turns")
		watch, _ := cmd.Flags().GetBool("watch")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		debug, _ := cmd.Flags().GetBool("debug")

		out := cmd.OutOrStdout()
		debugf := func(format string, v ...any) {
			if debug {
				fmt.Fprintf(cmd.ErrOrStderr(), "debug: "+format+"\n", v...)
			}
		}

		cfg, client, err := a.connect(internal.Overrides{
			ProjectPath:   projectPath,
			SessionSource: source,
		})
		if err != nil {
			return err
		}
		debugf("config: api=%s timeout=%s max_messages=%d", cfg.APIURL, cfg.Timeout, cfg.MaxMessages)

		if watch {
			_, file, err := a.locator.Locate(cfg.ProjectPath, cfg.SessionSource)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, styleDim.Render(fmt.Sprintf("Watching %s (quiet period %s)...", filepath.Base(file), debounce)))
			if err := waitForSettle(cmd, file, debounce); err != nil {
				return err
			}
			debugf("session file settled")
		}

		svc := internal.NewPersistService(a.locator, client)
		in := internal.PersistInput{
			ProjectPath:         cfg.ProjectPath,
			Title:               title,
			Source:              cfg.SessionSource,
			MaxMessages:         cfg.MaxMessages,
			DropIncompleteTurns: completeTurns,
		}

		fmt.Fprintf(out, "%s %s\n", styleBold.Render("Project:"), cfg.ProjectPath)
		if cfg.MaxMessages > 0 {
			fmt.Fprintln(out, styleDim.Render(fmt.Sprintf("Parsing session (max %d messages)...", cfg.MaxMessages)))
		} else {
			fmt.Fprintln(out, styleDim.Render("Parsing session (no message limit)..."))
		}

		session, err := svc.Extract(in)
		if err != nil {
			return fmt.Errorf("extract session: %w", err)
		}

		fmt.Fprintf(out, "%s %s (%s, %s)\n", styleBold.Render("Session:"),
			filepath.Base(session.FilePath), fileSize(session.FilePath), session.Source.Label())
		fmt.Fprintf(out, "Extracted %d messages from %d lines\n", len(session.Messages), session.TotalLines)
		if session.Truncated {
			fmt.Fprintln(out, styleWarn.Render("Note: trailing incomplete record ignored (session still being written?)"))
		}

		fmt.Fprintln(out, styleDim.Render("Uploading thread..."))
		result, err := svc.Submit(cmd.Context(), session)
		if err != nil {
			switch internal.Kind(err) {
			case internal.KindAPITimeout, internal.KindAPIConnection:
				fmt.Fprintln(out, styleWarn.Render("Upload outcome unknown: the server may or may not have stored the thread. Verify with 'nm search' before retrying."))
			}
			return fmt.Errorf("save thread: %w", err)
		}

		body := fmt.Sprintf("%s\n\n%s %s\n%s %s\n%s %d\n%s %s",
			stylePass.Render("Session persisted!"),
			styleBold.Render("Thread ID:"), result.ThreadID,
			styleBold.Render("Server ID:"), orDash(result.ServerID),
			styleBold.Render("Messages:"), result.Count,
			styleBold.Render("Title:"), result.Session.Title,
		)
		fmt.Fprintln(out, styleBox.Render(body))
		return nil
	}
}

// waitForSettle blocks until the file has seen no writes for the quiet
// period. The parent directory is watched so editor rename-and-replace
// saves are seen too.
func waitForSettle(cmd *cobra.Command, file string, quiet time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(file)); err != nil {
		return fmt.Errorf("watch session directory: %w", err)
	}

	timer := time.NewTimer(quiet)
	defer timer.Stop()

	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-timer.C:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name == file && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				timer.Reset(quiet)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch session file: %w", err)
		}
	}
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown size"
	}
	return fmt.Sprintf("%.1f KB", float64(info.Size())/1024)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
