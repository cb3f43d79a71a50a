package internal

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&Config{
		APIURL:        srv.URL,
		Timeout:       5 * time.Second,
		HealthTimeout: time.Second,
	}), srv
}

func TestClientHeaders(t *testing.T) {
	var got http.Header
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(&Config{APIURL: srv.URL, AuthToken: "sekrit", Timeout: time.Second, HealthTimeout: time.Second})
	require.NoError(t, client.Health(context.Background()))

	assert.Equal(t, "Bearer sekrit", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestClientOmitsAuthorizationWithoutToken(t *testing.T) {
	var got http.Header
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.Health(context.Background()))

	_, present := got["Authorization"]
	assert.False(t, present, "Authorization header must be absent entirely")
}

func TestClientAcceptedStatusCodes(t *testing.T) {
	for _, code := range []int{200, 201, 202, 204} {
		status := code
		client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		assert.NoError(t, client.Health(context.Background()), "status %d", status)
	}
}

func TestClientClassifiesAuthErrors(t *testing.T) {
	for _, code := range []int{401, 403} {
		status := code
		client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no", status)
		}))

		err := client.Health(context.Background())
		require.Error(t, err)
		assert.Equal(t, KindAuth, Kind(err), "status %d", status)
	}
}

func TestClientClassifiesServerErrors(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	err := client.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindAPI, Kind(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestClientClassifiesConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewClient(&Config{APIURL: "http://" + addr, Timeout: time.Second, HealthTimeout: time.Second})
	err = client.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindAPIConnection, Kind(err))
}

func TestClientClassifiesTimeout(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	client.timeout = 50 * time.Millisecond
	client.healthTimeout = 50 * time.Millisecond

	err := client.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindAPITimeout, Kind(err))
}

func TestSearchMemoriesDecodesNestedShape(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/memories/search", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deep", body["mode"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"memories":[{"memory":{"id":"m1","title":"T","content":"C"},"similarity_score":0.91}],"total":7}`))
	}))

	page, err := client.SearchMemories(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Memories, 1)
	assert.Equal(t, "m1", page.Memories[0].ID)
	assert.InDelta(t, 0.91, page.Memories[0].Score, 1e-9)
}

func TestSearchMemoriesDecodesFlatList(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"m2","content":"x","similarity_score":0.5}]`))
	}))

	page, err := client.SearchMemories(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Memories, 1)
	assert.Equal(t, "m2", page.Memories[0].ID)
}

func TestSearchThreadsQueryParams(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/threads/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "deploy", q.Get("query"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "full", q.Get("mode"))

		w.Write([]byte(`{"threads":[{"thread_id":"th_1","title":"Deploy","message_count":12}],"total":1}`))
	}))

	page, err := client.SearchThreads(context.Background(), "deploy", 5)
	require.NoError(t, err)
	require.Len(t, page.Threads, 1)
	assert.Equal(t, "th_1", page.Threads[0].Ident())
}

func TestSaveThreadSingleAttempt(t *testing.T) {
	attempts := 0
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))

	_, err := client.SaveThread(context.Background(), ThreadRequest{ThreadID: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "a failed submit must never be retried")
}

func TestSaveThreadSuccess(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/threads", r.URL.Path)

		var req ThreadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "proj_20260829_120000", req.ThreadID)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"ok","thread":{"thread_id":"proj_20260829_120000","id":"srv-9","message_count":2}}`))
	}))

	resp, err := client.SaveThread(context.Background(), ThreadRequest{ThreadID: "proj_20260829_120000"})
	require.NoError(t, err)
	assert.Equal(t, "srv-9", resp.Thread.ID)
	assert.Equal(t, 2, resp.Thread.MessageCount)
}

func TestGetThreadToleratesWrappedShape(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"thread":{"thread_id":"th_2","title":"Wrapped"},"messages":[{"role":"user","content":"hi"}]}`))
	}))

	detail, err := client.GetThread(context.Background(), "th_2")
	require.NoError(t, err)
	assert.Equal(t, "Wrapped", detail.Title)
	require.Len(t, detail.Messages, 1)
}

func TestListLabels(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/labels", r.URL.Path)
		w.Write([]byte(`{"labels":[{"name":"go","usage_count":4},{"name":"infra","usage_count":2}]}`))
	}))

	labels, err := client.ListLabels(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "go", labels[0].Name)
}

func TestUnwrapList(t *testing.T) {
	items, total, err := unwrapList([]byte(`[1,2,3]`), "things")
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, total)

	items, total, err = unwrapList([]byte(`{"things":[1],"total":42}`), "things")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 42, total)

	_, _, err = unwrapList([]byte(`"nope"`), "things")
	require.Error(t, err)
}
