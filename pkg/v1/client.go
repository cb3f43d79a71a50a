package v1

import (
	"context"
	"fmt"

	"github.com/nowledge/nm/internal"
)

// Client provides programmatic access to a Nowledge Mem store.
type Client struct {
	api         *internal.Client
	persist     *internal.PersistService
	search      *internal.SearchService
	maxMessages int
}

// New creates a new Client with the given options. Settings not given
// as options fall back to the environment and config file.
func New(opts ...Option) (*Client, error) {
	cfg, err := internal.LoadConfig(internal.Overrides{})
	if err != nil {
		return nil, err
	}

	cc := &clientConfig{
		baseURL:     cfg.APIURL,
		authToken:   cfg.AuthToken,
		timeout:     cfg.Timeout,
		maxMessages: cfg.MaxMessages,
	}
	for _, opt := range opts {
		opt(cc)
	}

	cfg.APIURL = cc.baseURL
	cfg.AuthToken = cc.authToken
	cfg.Timeout = cc.timeout

	api := internal.NewClient(cfg)
	return &Client{
		api:         api,
		persist:     internal.NewPersistService(internal.NewLocator(), api),
		search:      internal.NewSearchService(api),
		maxMessages: cc.maxMessages,
	}, nil
}

// Add stores a new memory and returns its id.
func (c *Client) Add(ctx context.Context, content, title string, importance float64, labels ...string) (string, error) {
	resp, err := c.api.AddMemory(ctx, internal.AddMemoryRequest{
		Content:    content,
		Title:      title,
		Importance: importance,
		Labels:     labels,
	})
	if err != nil {
		return "", fmt.Errorf("add: %w", err)
	}
	return resp.Memory.ID, nil
}

// Search queries memories and related threads. Partial failures are
// tolerated: whichever half succeeded is returned with the other's error.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	out, err := c.search.Search(ctx, internal.SearchInput{
		Query:          query,
		MemoryLimit:    limit,
		ThreadLimit:    limit,
		IncludeThreads: true,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	result := &SearchResult{}
	for _, m := range out.Memories {
		result.Memories = append(result.Memories, Memory{
			ID:             m.ID,
			Title:          m.Title,
			Content:        m.Content,
			Importance:     m.Importance,
			Labels:         m.Labels,
			Score:          m.Score,
			SourceThreadID: m.SourceThreadID,
		})
	}
	for _, t := range out.Threads {
		result.Threads = append(result.Threads, Thread{
			ID:           t.ID,
			Title:        t.Title,
			Summary:      t.Summary,
			MessageCount: t.MessageCount,
			Score:        t.Score,
		})
	}
	return result, nil
}

// Persist extracts the latest session for the project and stores it as
// a thread.
func (c *Client) Persist(ctx context.Context, projectPath string) (*PersistResult, error) {
	out, err := c.persist.Persist(ctx, internal.PersistInput{
		ProjectPath: projectPath,
		Source:      internal.SourceAuto,
		MaxMessages: c.maxMessages,
	})
	if err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return &PersistResult{
		ThreadID: out.ThreadID,
		ServerID: out.ServerID,
		Title:    out.Session.Title,
		Messages: out.Count,
	}, nil
}

// Diagnose runs the connectivity checks and returns the report.
func (c *Client) Diagnose(ctx context.Context) (internal.Report, error) {
	svc := internal.NewDiagnoseService(
		func() (*internal.Config, error) { return internal.LoadConfig(internal.Overrides{}) },
		func(cfg *internal.Config) internal.DiagnoseClient { return c.api },
	)
	return svc.Run(ctx), nil
}
