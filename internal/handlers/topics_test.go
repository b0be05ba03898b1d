package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"librarian/internal/topicstore"
	"librarian/internal/vectorindex"

	"go.uber.org/mock/gomock"
)

func TestTopicsHandler_ListsTopicsWithStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, store := indexedLibrary(t)
	handler := NewTopicsHandler(store, testSettings)

	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp TopicsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(resp.Topics) != 1 {
		t.Fatalf("topics = %+v", resp.Topics)
	}
	topic := resp.Topics[0]
	if topic.ID != "history" || topic.Path != "History" {
		t.Errorf("topic = %+v", topic)
	}
	if !topic.Indexed {
		t.Error("topic not reported as indexed")
	}
	if topic.LastIndexedAt == nil {
		t.Error("last indexed timestamp missing")
	}
}

func TestTopicsHandler_EmptyLibrary(t *testing.T) {
	root := t.TempDir()
	store := topicstore.New(root, vectorindex.NewFileBackend(root))
	handler := NewTopicsHandler(store, testSettings)

	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp TopicsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(resp.Topics) != 0 {
		t.Fatalf("expected no topics, got %+v", resp.Topics)
	}
}
