package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgallion1/notepress/internal/blocks"
)

func paragraphs(n int) []blocks.Block {
	bs := make([]blocks.Block, n)
	for i := range bs {
		bs[i] = blocks.Block{
			Type: blocks.Paragraph,
			Runs: []blocks.StyledRun{{Text: fmt.Sprintf("para %d", i)}},
		}
	}
	return bs
}

func TestCreatePage_SendsAuthAndVersionHeaders(t *testing.T) {
	var gotAuth, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		json.NewEncoder(w).Encode(map[string]string{"id": "page-1"})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("secret-token", srv.URL)
	id, err := c.CreatePage(context.Background(), "parent-1", "Title", paragraphs(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "page-1" {
		t.Errorf("expected page id %q, got %q", "page-1", id)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotVersion == "" {
		t.Error("expected Notion-Version header")
	}
}

func TestCreatePage_RejectsOversizedChildList(t *testing.T) {
	c := NewClient("tok")
	_, err := c.CreatePage(context.Background(), "parent", "Big", paragraphs(blocks.MaxChildren+1))
	if err == nil {
		t.Fatal("expected error for oversized child list")
	}
}

func TestAppendBlockChildren_BatchesRequests(t *testing.T) {
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Children []json.RawMessage `json:"children"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		batchSizes = append(batchSizes, len(body.Children))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	if err := c.AppendBlockChildren(context.Background(), "block-1", paragraphs(250)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{100, 100, 50}
	if len(batchSizes) != len(want) {
		t.Fatalf("expected %d batches, got %v", len(want), batchSizes)
	}
	for i, w := range want {
		if batchSizes[i] != w {
			t.Errorf("batch[%d]: expected %d blocks, got %d", i, w, batchSizes[i])
		}
	}
}

func TestPublishPage_SplitsCreateAndAppend(t *testing.T) {
	var createChildren int
	var appendCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/pages":
			var body struct {
				Children []json.RawMessage `json:"children"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			createChildren = len(body.Children)
			json.NewEncoder(w).Encode(map[string]string{"id": "page-9"})
		case r.Method == http.MethodPatch:
			appendCalls++
			w.Write([]byte("{}"))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	id, err := c.PublishPage(context.Background(), "parent", "Long Page", paragraphs(130))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "page-9" {
		t.Errorf("expected page id %q, got %q", "page-9", id)
	}
	if createChildren != 100 {
		t.Errorf("expected 100 blocks at creation, got %d", createChildren)
	}
	if appendCalls != 1 {
		t.Errorf("expected 1 append call for overflow, got %d", appendCalls)
	}
}

func TestAPIError_RetryableStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		e := &APIError{StatusCode: tt.status}
		if e.Retryable() != tt.want {
			t.Errorf("status %d: expected retryable=%v", tt.status, tt.want)
		}
	}
}

func TestArchivePage_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	err := c.ArchivePage(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
}
