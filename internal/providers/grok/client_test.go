package grok

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"funmoji/internal/domain"
	"funmoji/internal/providers/normalize"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		APIKey:     "xai-test",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
}

func TestGenerateViaEditsEndpoint(t *testing.T) {
	var gotBody map[string]any
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/edits" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer xai-test" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"url": "https://api.x.ai/files/out.png"})
	}))

	job, err := client.Generate(context.Background(), BuildStickerPrompt("big eyes"), "data:image/jpeg;base64,xx")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s", job.Status)
	}
	if gotBody["model"] != "grok-imagine-image" || gotBody["aspect_ratio"] != "1:1" {
		t.Fatalf("body = %v", gotBody)
	}
	res := normalize.Normalize(job.RawOutput)
	if len(res.URLs) != 1 || res.URLs[0] != "https://api.x.ai/files/out.png" {
		t.Fatalf("normalized = %v", res.URLs)
	}
}

func TestGenerateFallsBackToGenerationsOn404(t *testing.T) {
	var edits, gens atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/images/edits":
			edits.Add(1)
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "route not found"})
		case "/v1/images/generations":
			gens.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"b64_json": "aGVsbG8="}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	job, err := client.Generate(context.Background(), BuildStickerPrompt(""), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if edits.Load() != 1 || gens.Load() != 1 {
		t.Fatalf("edits=%d gens=%d", edits.Load(), gens.Load())
	}
	res := normalize.Normalize(job.RawOutput)
	if len(res.URLs) != 1 || res.URLs[0] != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("normalized = %v", res.URLs)
	}
}

func TestGenerateSurfacesProviderError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "prompt rejected"}})
	}))

	_, err := client.Generate(context.Background(), "x", "")
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
}

func TestGenerateWithoutCredentials(t *testing.T) {
	client := NewClient(Options{})
	_, err := client.Generate(context.Background(), "x", "")
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func TestBuildStickerPrompt(t *testing.T) {
	if got := BuildStickerPrompt("  "); got == "" {
		t.Fatalf("empty prompt should still produce an instruction")
	}
	got := BuildStickerPrompt("Anime style with big eyes.")
	if got == "Anime style with big eyes." {
		t.Fatalf("user prompt should be wrapped, got %q", got)
	}
}
