package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"librarian/internal/topicstore"
	"librarian/internal/vectorindex"
)

func TestHealthHandler_Healthy(t *testing.T) {
	_, store := indexedLibrary(t)
	handler := NewHealthHandler(store, testSettings)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.IndexedTopics != 1 || resp.TotalTopics != 1 {
		t.Errorf("counts = %d/%d", resp.IndexedTopics, resp.TotalTopics)
	}
}

func TestHealthHandler_MissingRootIsUnhealthy(t *testing.T) {
	store := topicstore.New("/nonexistent/library", vectorindex.NewFileBackend("/nonexistent/library"))
	handler := NewHealthHandler(store, testSettings)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Status != "unhealthy" || len(resp.Issues) == 0 {
		t.Errorf("response = %+v", resp)
	}
}
