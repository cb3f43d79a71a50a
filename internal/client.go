package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// successCodes are the statuses the API treats as success.
var successCodes = map[int]bool{200: true, 201: true, 202: true, 204: true}

// Client talks to the Nowledge Mem HTTP API. Every call makes exactly
// one attempt: a failed submit of unknown outcome is surfaced, never
// silently resubmitted.
type Client struct {
	baseURL       string
	authToken     string
	timeout       time.Duration
	healthTimeout time.Duration
	httpClient    *http.Client
}

func NewClient(cfg *Config) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.APIURL, "/"),
		authToken:     cfg.AuthToken,
		timeout:       cfg.Timeout,
		healthTimeout: cfg.HealthTimeout,
		httpClient:    &http.Client{},
	}
}

// ---- Memory operations ----

type AddMemoryRequest struct {
	Content         string   `json:"content"`
	Title           string   `json:"title,omitempty"`
	Importance      float64  `json:"importance"`
	Labels          []string `json:"labels,omitempty"`
	EventStart      string   `json:"event_start,omitempty"`
	EventEnd        string   `json:"event_end,omitempty"`
	TemporalContext string   `json:"temporal_context,omitempty"`
}

type MemoryRecord struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Importance     float64  `json:"importance"`
	Labels         []string `json:"labels"`
	SourceThreadID string   `json:"source_thread_id,omitempty"`
}

type AddMemoryResponse struct {
	Memory     MemoryRecord `json:"memory"`
	Processing struct {
		LabelsApplied int `json:"labels_applied"`
	} `json:"processing"`
}

func (c *Client) AddMemory(ctx context.Context, req AddMemoryRequest) (*AddMemoryResponse, error) {
	var out AddMemoryResponse
	if err := c.call(ctx, http.MethodPost, "/memories", nil, req, &out, c.timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

type UpdateMemoryRequest struct {
	Content    *string  `json:"content,omitempty"`
	Title      *string  `json:"title,omitempty"`
	Importance *float64 `json:"importance,omitempty"`
	Labels     *string  `json:"labels,omitempty"`
}

func (c *Client) UpdateMemory(ctx context.Context, memoryID string, req UpdateMemoryRequest) error {
	return c.call(ctx, http.MethodPatch, "/memories/"+memoryID, nil, req, nil, c.timeout)
}

func (c *Client) DeleteMemory(ctx context.Context, memoryID string) error {
	return c.call(ctx, http.MethodDelete, "/memories/"+memoryID, nil, nil, nil, c.timeout)
}

func (c *Client) GetMemory(ctx context.Context, memoryID string) (*MemoryRecord, error) {
	var out MemoryRecord
	if err := c.call(ctx, http.MethodGet, "/memories/"+memoryID, nil, nil, &out, c.timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// MemorySearchPage is one page of memory search results in the order
// the store ranked them.
type MemorySearchPage struct {
	Memories []ScoredMemory
	Total    int
}

type ScoredMemory struct {
	MemoryRecord
	Score float64
}

func (c *Client) SearchMemories(ctx context.Context, query string, limit int) (*MemorySearchPage, error) {
	body := map[string]any{"query": query, "limit": limit, "mode": "deep"}

	var raw json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/memories/search", nil, body, &raw, c.timeout); err != nil {
		return nil, err
	}
	return decodeMemoryPage(raw)
}

// decodeMemoryPage tolerates the API's response shapes: a bare list, a
// {memories, total} wrapper, and items either flat or nested under
// "memory" with a sibling similarity_score.
func decodeMemoryPage(raw json.RawMessage) (*MemorySearchPage, error) {
	items, total, err := unwrapList(raw, "memories")
	if err != nil {
		return nil, err
	}

	page := &MemorySearchPage{Total: total}
	for _, item := range items {
		var nested struct {
			Memory          *MemoryRecord `json:"memory"`
			SimilarityScore float64       `json:"similarity_score"`
		}
		if err := json.Unmarshal(item, &nested); err == nil && nested.Memory != nil {
			page.Memories = append(page.Memories, ScoredMemory{MemoryRecord: *nested.Memory, Score: nested.SimilarityScore})
			continue
		}

		var flat struct {
			MemoryRecord
			SimilarityScore float64 `json:"similarity_score"`
		}
		if err := json.Unmarshal(item, &flat); err != nil {
			return nil, &APIError{Kind: KindAPI, Message: fmt.Sprintf("malformed memory search response: %v", err)}
		}
		page.Memories = append(page.Memories, ScoredMemory{MemoryRecord: flat.MemoryRecord, Score: flat.SimilarityScore})
	}
	return page, nil
}

// ---- Label operations ----

type Label struct {
	Name       string `json:"name"`
	UsageCount int    `json:"usage_count"`
}

func (c *Client) ListLabels(ctx context.Context) ([]Label, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/labels", nil, nil, &raw, c.timeout); err != nil {
		return nil, err
	}

	items, _, err := unwrapList(raw, "labels")
	if err != nil {
		return nil, err
	}

	labels := make([]Label, 0, len(items))
	for _, item := range items {
		var l Label
		if err := json.Unmarshal(item, &l); err != nil {
			return nil, &APIError{Kind: KindAPI, Message: fmt.Sprintf("malformed labels response: %v", err)}
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// ---- Thread operations ----

// ThreadRequest is the atomic create-thread payload.
type ThreadRequest struct {
	ThreadID     string         `json:"thread_id"`
	Title        string         `json:"title"`
	Messages     []Message      `json:"messages"`
	Participants []string       `json:"participants"`
	Source       string         `json:"source"`
	Project      string         `json:"project"`
	Workspace    string         `json:"workspace"`
	ImportDate   string         `json:"import_date"`
	Metadata     map[string]any `json:"metadata"`
}

type ThreadSaveResponse struct {
	Status string `json:"status"`
	Thread struct {
		ThreadID     string `json:"thread_id"`
		ID           string `json:"id"`
		MessageCount int    `json:"message_count"`
	} `json:"thread"`
}

// SaveThread submits the whole thread in one call. There is no retry:
// after a send of unknown outcome the server state is unknown and the
// caller must decide, per the create-thread contract.
func (c *Client) SaveThread(ctx context.Context, req ThreadRequest) (*ThreadSaveResponse, error) {
	var out ThreadSaveResponse
	if err := c.call(ctx, http.MethodPost, "/threads", nil, req, &out, c.timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

type ThreadRef struct {
	ThreadID     string  `json:"thread_id"`
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Summary      string  `json:"summary"`
	MessageCount int     `json:"message_count"`
	Score        float64 `json:"score"`
}

// Ident returns the thread's preferred identifier.
func (t ThreadRef) Ident() string {
	if t.ThreadID != "" {
		return t.ThreadID
	}
	return t.ID
}

type ThreadSearchPage struct {
	Threads []ThreadRef
	Total   int
}

func (c *Client) SearchThreads(ctx context.Context, query string, limit int) (*ThreadSearchPage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", fmt.Sprint(limit))
	params.Set("mode", "full")

	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/threads/search", params, nil, &raw, c.timeout); err != nil {
		return nil, err
	}

	items, total, err := unwrapList(raw, "threads")
	if err != nil {
		return nil, err
	}

	page := &ThreadSearchPage{Total: total}
	for _, item := range items {
		var t ThreadRef
		if err := json.Unmarshal(item, &t); err != nil {
			return nil, &APIError{Kind: KindAPI, Message: fmt.Sprintf("malformed thread search response: %v", err)}
		}
		page.Threads = append(page.Threads, t)
	}
	return page, nil
}

type ThreadDetail struct {
	ThreadID     string    `json:"thread_id"`
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	MessageCount int       `json:"message_count"`
	Messages     []Message `json:"messages"`
}

func (c *Client) GetThread(ctx context.Context, threadID string) (*ThreadDetail, error) {
	var raw struct {
		ThreadDetail
		Thread   *ThreadDetail `json:"thread"`
		Messages []Message     `json:"messages"`
	}
	if err := c.call(ctx, http.MethodGet, "/threads/"+threadID, nil, nil, &raw, c.timeout); err != nil {
		return nil, err
	}

	detail := raw.ThreadDetail
	if raw.Thread != nil {
		detail = *raw.Thread
	}
	if len(detail.Messages) == 0 {
		detail.Messages = raw.Messages
	}
	return &detail, nil
}

// ---- Health & auth ----

// Health probes the health endpoint under the health-check timeout.
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil, nil, c.healthTimeout)
}

// AuthProbe makes a minimal authenticated request. A 2xx means the
// token was accepted or the server requires no auth.
func (c *Client) AuthProbe(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")
	return c.call(ctx, http.MethodGet, "/threads", params, nil, nil, c.healthTimeout)
}

// ---- Transport ----

func (c *Client) call(ctx context.Context, method, path string, params url.Values, body, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	// No Authorization header at all when the token is absent.
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportErr(err, method, path, timeout)
	}
	defer resp.Body.Close()

	if !successCodes[resp.StatusCode] {
		return apiErrorFromResponse(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: KindAPI, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func classifyTransportErr(err error, method, path string, timeout time.Duration) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{
			Kind:    KindAPITimeout,
			Message: fmt.Sprintf("%s %s timed out after %s", method, path, timeout),
			Err:     err,
		}
	}
	return &APIError{
		Kind:    KindAPIConnection,
		Message: fmt.Sprintf("%s %s connection failed", method, path),
		Err:     err,
	}
}

func apiErrorFromResponse(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 500))

	kind := KindAPI
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		kind = KindAuth
	}
	return &APIError{
		Kind:    kind,
		Status:  resp.StatusCode,
		Message: strings.TrimSpace(fmt.Sprintf("API error: %s", bytes.TrimSpace(snippet))),
	}
}

// unwrapList accepts either a bare JSON array or an object wrapping the
// array under key, with an optional sibling "total".
func unwrapList(raw json.RawMessage, key string) ([]json.RawMessage, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, len(items), nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, 0, &APIError{Kind: KindAPI, Message: "malformed response: expected list or object"}
	}

	if inner, ok := wrapper[key]; ok {
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil, 0, &APIError{Kind: KindAPI, Message: fmt.Sprintf("malformed response: %q is not a list", key)}
		}
	}

	total := len(items)
	if rawTotal, ok := wrapper["total"]; ok {
		var n int
		if err := json.Unmarshal(rawTotal, &n); err == nil {
			total = n
		}
	}
	return items, total, nil
}
