package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(Options{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}, zaptest.NewLogger(t))
}

func TestDescribeImage_Success(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "a red bicycle"}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	desc, err := c.DescribeImage(context.Background(), []byte{0xFF, 0xD8}, "Describe the image.")
	if err != nil {
		t.Fatalf("DescribeImage failed: %v", err)
	}
	if desc != "a red bicycle" {
		t.Errorf("Unexpected description: %q", desc)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Missing auth header, got %q", gotAuth)
	}

	// The image must travel as a base64 data URL inside the user message.
	raw, _ := json.Marshal(gotBody)
	if !strings.Contains(string(raw), "data:image/jpeg;base64,") {
		t.Error("Request does not carry the image payload")
	}
}

func TestDescribeImage_APIErrorNotRetried(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Rate limit reached"},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.DescribeImage(context.Background(), []byte{0x01}, "Describe the image.")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "Rate limit reached") {
		t.Errorf("API message not surfaced: %v", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("API rejection must not be retried, saw %d requests", n)
	}
}

func TestDescribeImage_TransportErrorRetriedOnce(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			// Kill the connection to force a transport-level failure.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("Recorder does not support hijacking")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "after retry"}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	desc, err := c.DescribeImage(context.Background(), []byte{0x01}, "Describe the image.")
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if desc != "after retry" {
		t.Errorf("Unexpected description: %q", desc)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("Expected exactly 2 attempts, saw %d", n)
	}
}

func TestGenerateImage_URLResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["n"] != float64(1) {
			t.Errorf("Expected n=1, got %v", body["n"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"url": "https://images.example/out.png"}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	result, err := c.GenerateImage(context.Background(), "a watercolor painting")
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if result.URL != "https://images.example/out.png" || result.Data != nil {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestGenerateImage_InlineResult(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4E, 0x47}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString(payload)}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	result, err := c.GenerateImage(context.Background(), "a watercolor painting")
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if string(result.Data) != string(payload) {
		t.Errorf("Inline payload not decoded: %v", result.Data)
	}
}

func TestFetchImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing.png") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	data, err := c.FetchImage(context.Background(), srv.URL+"/out.png")
	if err != nil {
		t.Fatalf("FetchImage failed: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("Unexpected payload: %q", data)
	}

	if _, err := c.FetchImage(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Fatal("Expected error for non-success status")
	} else if !strings.Contains(err.Error(), "unexpected status") {
		t.Errorf("Unexpected error: %v", err)
	}
}
