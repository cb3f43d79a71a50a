package v1

// Memory is a stored memory entry with its search score.
type Memory struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Importance     float64  `json:"importance"`
	Labels         []string `json:"labels,omitempty"`
	Score          float64  `json:"score"`
	SourceThreadID string   `json:"source_thread_id,omitempty"`
}

// Thread is a stored conversation thread reference.
type Thread struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Summary      string  `json:"summary,omitempty"`
	MessageCount int     `json:"message_count"`
	Score        float64 `json:"score"`
}

// SearchResult aggregates a memory search with related threads.
type SearchResult struct {
	Memories []Memory `json:"memories"`
	Threads  []Thread `json:"threads"`
}

// PersistResult reports a persisted session.
type PersistResult struct {
	ThreadID string `json:"thread_id"`
	ServerID string `json:"server_id,omitempty"`
	Title    string `json:"title"`
	Messages int    `json:"messages"`
}
