package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func embeddingsServer(t *testing.T, dim int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if calls != nil {
			calls.Add(1)
		}

		var req EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp := EmbeddingsResponse{Data: make([]EmbeddingData, len(req.Input))}
		for i := range req.Input {
			vec := make([]float64, dim)
			vec[0] = float64(i)
			resp.Data[i] = EmbeddingData{Embedding: vec}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedTexts_ReturnsVectorsInOrder(t *testing.T) {
	srv := embeddingsServer(t, 4, nil)
	defer srv.Close()

	client := NewEmbeddingsClient(srv.URL, "key", "test-model", 4, 32)
	vecs, err := client.EmbedTexts(t.Context(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("EmbedTexts failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, vec := range vecs {
		if len(vec) != 4 {
			t.Fatalf("vector %d has dimension %d", i, len(vec))
		}
		if vec[0] != float32(i) {
			t.Errorf("vector %d out of order: head = %f", i, vec[0])
		}
	}
}

func TestEmbedTexts_BatchesRequests(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingsServer(t, 2, &calls)
	defer srv.Close()

	client := NewEmbeddingsClient(srv.URL, "key", "test-model", 2, 2)
	texts := []string{"a", "b", "c", "d", "e"}

	vecs, err := client.EmbedTexts(t.Context(), texts)
	if err != nil {
		t.Fatalf("EmbedTexts failed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 batch requests, got %d", got)
	}
}

func TestEmbedTexts_EmptyInput(t *testing.T) {
	client := NewEmbeddingsClient("http://unused", "key", "m", 4, 32)
	if _, err := client.EmbedTexts(t.Context(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestEmbedTexts_RejectsWrongDimension(t *testing.T) {
	srv := embeddingsServer(t, 3, nil)
	defer srv.Close()

	client := NewEmbeddingsClient(srv.URL, "key", "test-model", 4, 32)
	if _, err := client.EmbedTexts(t.Context(), []string{"x"}); err == nil {
		t.Fatal("expected dimension validation error")
	}
}

func TestEmbedTexts_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewEmbeddingsClient(srv.URL, "key", "test-model", 4, 32)
	if _, err := client.EmbedTexts(t.Context(), []string{"x"}); err == nil {
		t.Fatal("expected error on server failure")
	}
}
