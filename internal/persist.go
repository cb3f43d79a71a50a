package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ThreadWriter is the remote half of the persist workflow.
type ThreadWriter interface {
	SaveThread(ctx context.Context, req ThreadRequest) (*ThreadSaveResponse, error)
}

// PersistService owns the persist workflow: pick source, locate, parse,
// normalize, submit as one thread.
type PersistService struct {
	locator *Locator
	writer  ThreadWriter
	now     func() time.Time
}

func NewPersistService(locator *Locator, writer ThreadWriter) *PersistService {
	return &PersistService{locator: locator, writer: writer, now: time.Now}
}

type PersistInput struct {
	ProjectPath         string
	Title               string
	Source              SessionSource
	MaxMessages         int
	DropIncompleteTurns bool
}

type PersistResult struct {
	Session  Session
	ThreadID string
	ServerID string
	Count    int
}

// Extract runs the local half of the workflow only: locate, parse,
// normalize. No remote call is made.
func (s *PersistService) Extract(in PersistInput) (*Session, error) {
	source, file, err := s.locator.Locate(in.ProjectPath, in.Source)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	sc := NewScanner(f, source)
	events := sc.Collect()

	// A file that yields nothing but a rejected first record is not a
	// transcript; a truncated tail after valid events is steady state.
	if len(events) == 0 && sc.Truncated() {
		return nil, fmt.Errorf("%w: %s", ErrTranscriptParse, file)
	}

	messages, err := Normalize(events, NormalizeOptions{
		MaxMessages:         in.MaxMessages,
		DropIncompleteTurns: in.DropIncompleteTurns,
	})
	if err != nil {
		return nil, err
	}

	title := in.Title
	if title == "" {
		title = DeriveTitle(messages, source, s.now())
	}

	return &Session{
		Source:      source,
		ProjectPath: in.ProjectPath,
		FilePath:    file,
		Messages:    messages,
		Title:       title,
		TotalLines:  sc.Lines(),
		Truncated:   sc.Truncated(),
	}, nil
}

// Persist extracts the session and submits it as one atomic thread.
// An EmptySession never reaches the remote store.
func (s *PersistService) Persist(ctx context.Context, in PersistInput) (*PersistResult, error) {
	session, err := s.Extract(in)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, session)
}

// Submit sends an extracted session as one create-thread call. There is
// no partial submission and no retry on failure of unknown outcome.
func (s *PersistService) Submit(ctx context.Context, session *Session) (*PersistResult, error) {
	req := s.buildThreadRequest(session)
	resp, err := s.writer.SaveThread(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &PersistResult{
		Session:  *session,
		ThreadID: resp.Thread.ThreadID,
		ServerID: resp.Thread.ID,
		Count:    resp.Thread.MessageCount,
	}
	if result.ThreadID == "" {
		result.ThreadID = req.ThreadID
	}
	if result.Count == 0 {
		result.Count = len(session.Messages)
	}
	return result, nil
}

func (s *PersistService) buildThreadRequest(session *Session) ThreadRequest {
	now := s.now()
	project := filepath.Base(session.ProjectPath)
	workspace, err := filepath.Abs(session.ProjectPath)
	if err != nil {
		workspace = session.ProjectPath
	}

	participant := "claude"
	if session.Source == SourceCodex {
		participant = "codex"
	}

	return ThreadRequest{
		ThreadID:     fmt.Sprintf("%s_%s", project, now.Format("20060102_150405")),
		Title:        session.Title,
		Messages:     session.Messages,
		Participants: []string{"user", participant},
		Source:       session.Source.Label(),
		Project:      project,
		Workspace:    workspace,
		ImportDate:   now.UTC().Format(time.RFC3339),
		Metadata: map[string]any{
			"session_file":        filepath.Base(session.FilePath),
			"total_lines_in_file": session.TotalLines,
			"messages_extracted":  len(session.Messages),
			"persist_method":      "nowledge_mem",
			"cli":                 session.Source.Label(),
		},
	}
}
