package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOptionsOverrideEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NOWLEDGE_MEM_API_URL", "http://env.example:1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"memories":[{"memory":{"id":"m1","title":"T","content":"c"},"similarity_score":0.5}],"total":1}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(
		WithBaseURL(srv.URL),
		WithToken("tok"),
		WithTimeout(2*time.Second),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := client.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Memories) != 1 || result.Memories[0].ID != "m1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAddReturnsMemoryID(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/memories" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"memory":{"id":"mem-7","title":"t"},"processing":{"labels_applied":1}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id, err := client.Add(context.Background(), "content", "t", 0.5, "go")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != "mem-7" {
		t.Errorf("id = %q", id)
	}
}
