package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"funmoji/internal/domain"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Options{
		APIToken:        "test-token",
		BaseURL:         srv.URL,
		HTTPClient:      srv.Client(),
		PollInterval:    time.Millisecond,
		PollMaxAttempts: 60,
	})
	return client, srv
}

func TestSubmitReturnsPredictionID(t *testing.T) {
	var gotBody map[string]any
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predictions" {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token test-token" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-1", "status": "starting"})
	}))

	id, err := client.Submit(context.Background(), FaceToStickerVersion, FaceToStickerInput("data:image/png;base64,xx", "anime"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != "pred-1" {
		t.Fatalf("id = %q", id)
	}
	if gotBody["version"] != FaceToStickerVersion {
		t.Fatalf("version = %v", gotBody["version"])
	}
	input, _ := gotBody["input"].(map[string]any)
	if input["prompt"] != "anime" {
		t.Fatalf("input = %v", input)
	}
}

func TestSubmitRetriesOnceOnThrottle(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{"retry_after": 0.01})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-2", "status": "starting"})
	}))

	start := time.Now()
	id, err := client.Submit(context.Background(), TextToImageVersion, TextToImageInput("cute dragon"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != "pred-2" {
		t.Fatalf("id = %q", id)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Fatalf("expected a bounded sleep before retry, elapsed %v", elapsed)
	}
}

func TestSubmitFailsAfterSecondThrottle(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"retry_after": 0.01})
	}))

	_, err := client.Submit(context.Background(), TextToImageVersion, TextToImageInput("x"))
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want exactly 2", calls.Load())
	}
}

func TestSubmitWithoutCredentials(t *testing.T) {
	client := NewClient(Options{})
	_, err := client.Submit(context.Background(), TextToImageVersion, TextToImageInput("x"))
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func TestSubmitRejectedCredentials(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "invalid token"})
	}))
	_, err := client.Submit(context.Background(), TextToImageVersion, TextToImageInput("x"))
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func pollHandler(t *testing.T, pending int, terminal map[string]any) http.Handler {
	var calls atomic.Int32
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if int(calls.Add(1)) <= pending {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-3", "status": "processing"})
			return
		}
		_ = json.NewEncoder(w).Encode(terminal)
	})
}

func TestWaitSucceedsWithinAttemptCap(t *testing.T) {
	client, _ := testClient(t, pollHandler(t, 59, map[string]any{
		"id":     "pred-3",
		"status": "succeeded",
		"output": []string{"https://replicate.delivery/pbxt/out-0.png"},
	}))

	job, err := client.Wait(context.Background(), "pred-3")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s", job.Status)
	}
	out, ok := job.RawOutput.([]any)
	if !ok || len(out) != 1 {
		t.Fatalf("raw output = %#v", job.RawOutput)
	}
}

func TestWaitTimesOutPastAttemptCap(t *testing.T) {
	client, _ := testClient(t, pollHandler(t, 61, nil))

	_, err := client.Wait(context.Background(), "pred-3")
	if !errors.Is(err, domain.ErrJobTimeout) {
		t.Fatalf("err = %v, want ErrJobTimeout", err)
	}
}

func TestWaitSurfacesProviderFailureReason(t *testing.T) {
	client, _ := testClient(t, pollHandler(t, 0, map[string]any{
		"id":     "pred-4",
		"status": "failed",
		"error":  "NSFW content detected",
	}))

	job, err := client.Wait(context.Background(), "pred-4")
	if !errors.Is(err, domain.ErrJobFailed) {
		t.Fatalf("err = %v, want ErrJobFailed", err)
	}
	if job.ErrorMessage != "NSFW content detected" {
		t.Fatalf("error message = %q", job.ErrorMessage)
	}
	if !errors.Is(err, domain.ErrJobFailed) || err.Error() != "job failed: NSFW content detected" {
		t.Fatalf("error text = %q", err.Error())
	}
}
