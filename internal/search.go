package internal

import (
	"context"
	"sync"
)

// Preview budgets for search result content, in characters.
const (
	PreviewBudget        = 150
	PreviewBudgetVerbose = 300
)

// SearchClient is the pair of independent remote lookups the
// aggregator fans out to.
type SearchClient interface {
	SearchMemories(ctx context.Context, query string, limit int) (*MemorySearchPage, error)
	SearchThreads(ctx context.Context, query string, limit int) (*ThreadSearchPage, error)
}

// SearchService fans a query out to the memory-level and thread-level
// lookups and merges the halves under consistent truncation rules.
type SearchService struct {
	client SearchClient
}

func NewSearchService(client SearchClient) *SearchService {
	return &SearchService{client: client}
}

type SearchInput struct {
	Query          string
	MemoryLimit    int
	ThreadLimit    int
	IncludeThreads bool
	Verbose        bool
}

// MemoryHit is one memory result with its rendered preview.
type MemoryHit struct {
	ID             string
	Title          string
	Content        string
	Preview        string
	PreviewClipped bool
	Importance     float64
	Labels         []string
	Score          float64
	SourceThreadID string
}

// ThreadHit is one thread result.
type ThreadHit struct {
	ID           string
	Title        string
	Summary      string
	MessageCount int
	Score        float64
}

// SearchResult combines both lookups. A branch failure is recorded on
// its error field and never erases the other branch's results.
type SearchResult struct {
	Query         string
	Memories      []MemoryHit
	Threads       []ThreadHit
	TotalMemories int
	TotalThreads  int
	Truncated     bool
	MemoryErr     error
	ThreadErr     error
}

// Search issues the memory lookup unconditionally and the thread lookup
// when requested, concurrently. It returns an error only when every
// issued lookup failed; partial results carry the failing half's error.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (*SearchResult, error) {
	result := &SearchResult{Query: in.Query}

	var memPage *MemorySearchPage
	var thrPage *ThreadSearchPage

	// The branches share no state and write into disjoint fields, so a
	// plain fan-out/fan-in needs no locking.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		memPage, result.MemoryErr = s.client.SearchMemories(ctx, in.Query, in.MemoryLimit)
	}()

	if in.IncludeThreads && in.ThreadLimit > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			thrPage, result.ThreadErr = s.client.SearchThreads(ctx, in.Query, in.ThreadLimit)
		}()
	}
	wg.Wait()

	if memPage != nil {
		result.TotalMemories = memPage.Total
		hits := memPage.Memories
		if len(hits) > in.MemoryLimit {
			hits = hits[:in.MemoryLimit]
			result.Truncated = true
		}
		if memPage.Total > len(hits) {
			result.Truncated = true
		}

		budget := PreviewBudget
		if in.Verbose {
			budget = PreviewBudgetVerbose
		}
		for _, m := range hits {
			preview, clipped := Clip(m.Content, budget)
			result.Memories = append(result.Memories, MemoryHit{
				ID:             m.ID,
				Title:          m.Title,
				Content:        m.Content,
				Preview:        preview,
				PreviewClipped: clipped,
				Importance:     m.Importance,
				Labels:         m.Labels,
				Score:          m.Score,
				SourceThreadID: m.SourceThreadID,
			})
		}
	}

	if thrPage != nil {
		result.TotalThreads = thrPage.Total
		refs := thrPage.Threads
		if len(refs) > in.ThreadLimit {
			refs = refs[:in.ThreadLimit]
			result.Truncated = true
		}
		for _, t := range refs {
			result.Threads = append(result.Threads, ThreadHit{
				ID:           t.Ident(),
				Title:        t.Title,
				Summary:      t.Summary,
				MessageCount: t.MessageCount,
				Score:        t.Score,
			})
		}
	}

	if result.MemoryErr != nil && (!in.IncludeThreads || in.ThreadLimit <= 0 || result.ThreadErr != nil) {
		return nil, result.MemoryErr
	}
	return result, nil
}
