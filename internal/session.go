package internal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SessionSource identifies which assistant's transcript format to read.
type SessionSource string

const (
	SourceAuto   SessionSource = "auto"
	SourceClaude SessionSource = "claude"
	SourceCodex  SessionSource = "codex"
)

func ParseSource(s string) (SessionSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SourceAuto, nil
	case "claude", "claude-code":
		return SourceClaude, nil
	case "codex":
		return SourceCodex, nil
	default:
		return "", fmt.Errorf("%w: unknown session source %q (auto|claude|codex)", ErrConfig, s)
	}
}

// Label is the source name used in thread payloads and participants.
func (s SessionSource) Label() string {
	if s == SourceClaude {
		return "claude-code"
	}
	return string(s)
}

// Message is the canonical conversational unit after normalization.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Session is the in-memory result of one extraction run. It is never
// persisted locally.
type Session struct {
	Source      SessionSource
	ProjectPath string
	FilePath    string
	Messages    []Message
	Title       string
	TotalLines  int
	Truncated   bool
}

// Locator finds the most relevant on-disk session file for a project.
type Locator struct {
	homeDir string
}

func NewLocator() *Locator {
	home, _ := os.UserHomeDir()
	return &Locator{homeDir: home}
}

// Locate resolves the session source and returns the path of the most
// recent matching session file. Pure lookup; nothing is mutated.
func (l *Locator) Locate(projectPath string, source SessionSource) (SessionSource, string, error) {
	info, err := os.Stat(projectPath)
	if err != nil {
		return "", "", fmt.Errorf("project directory %s: %w", projectPath, err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("project path %s is not a directory", projectPath)
	}

	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", "", fmt.Errorf("resolve project path: %w", err)
	}

	switch source {
	case SourceClaude:
		path, err := l.latestClaudeSession(abs)
		return SourceClaude, path, err
	case SourceCodex:
		path, err := l.latestCodexSession(abs)
		return SourceCodex, path, err
	}

	// Auto mode probes sources in fixed priority order: Claude first.
	var details []string

	path, err := l.latestClaudeSession(abs)
	if err == nil {
		return SourceClaude, path, nil
	}
	details = append(details, err.Error())

	path, err = l.latestCodexSession(abs)
	if err == nil {
		return SourceCodex, path, nil
	}
	details = append(details, err.Error())

	return "", "", fmt.Errorf("%w for project %s\n  %s", ErrSessionNotFound, abs, strings.Join(details, "\n  "))
}

// encodeProjectDir maps a project path onto the Claude Code session
// directory name: "/." becomes "--", "/" becomes "-".
func encodeProjectDir(abs string) string {
	encoded := strings.ReplaceAll(abs, "/.", "--")
	encoded = strings.ReplaceAll(encoded, "/", "-")
	return "-" + strings.TrimLeft(encoded, "-")
}

func (l *Locator) latestClaudeSession(abs string) (string, error) {
	sessionDir := filepath.Join(l.homeDir, ".claude", "projects", encodeProjectDir(abs))

	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return "", fmt.Errorf("%w: no Claude Code session directory at %s", ErrSessionNotFound, sessionDir)
	}

	var candidates []string
	for _, e := range entries {
		name := e.Name()
		// agent-*.jsonl files are subagent logs, not the main session.
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") || strings.HasPrefix(name, "agent-") {
			continue
		}
		candidates = append(candidates, filepath.Join(sessionDir, name))
	}

	path, ok := selectLatest(candidates)
	if !ok {
		return "", fmt.Errorf("%w: no Claude Code session files in %s", ErrSessionNotFound, sessionDir)
	}
	return path, nil
}

func (l *Locator) latestCodexSession(abs string) (string, error) {
	sessionsRoot := filepath.Join(l.homeDir, ".codex", "sessions")
	if _, err := os.Stat(sessionsRoot); err != nil {
		return "", fmt.Errorf("%w: no Codex sessions root at %s", ErrSessionNotFound, sessionsRoot)
	}

	var candidates []string
	_ = filepath.WalkDir(sessionsRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		if cwd := readCodexCWD(path); cwd != "" && sameProject(cwd, abs) {
			candidates = append(candidates, path)
		}
		return nil
	})

	path, ok := selectLatest(candidates)
	if !ok {
		return "", fmt.Errorf("%w: no Codex session files for project %s", ErrSessionNotFound, abs)
	}
	return path, nil
}

// readCodexCWD extracts the recorded working directory from a Codex
// session file's leading session_meta record.
func readCodexCWD(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, MaxLineSize), MaxLineSize)
	if !sc.Scan() {
		return ""
	}

	var meta struct {
		Type    string `json:"type"`
		Payload struct {
			CWD string `json:"cwd"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(sc.Bytes(), &meta); err != nil || meta.Type != "session_meta" {
		return ""
	}
	return meta.Payload.CWD
}

func sameProject(cwd, abs string) bool {
	resolved, err := filepath.Abs(cwd)
	if err != nil {
		return false
	}
	return resolved == abs
}

// selectLatest picks the most-recently-modified file; mtime ties break
// by lexicographic path so the choice is reproducible.
func selectLatest(paths []string) (string, bool) {
	sort.Strings(paths)

	var best string
	var bestMtime int64 = -1
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if mtime := info.ModTime().UnixNano(); mtime > bestMtime {
			bestMtime = mtime
			best = p
		}
	}
	return best, best != ""
}
