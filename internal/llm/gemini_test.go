package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"log/slog"

	"github.com/Davidng2000/Gai-proxy/internal/retry"
)

func testPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = 3
	p.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func newTestClient(baseURL string) *GeminiClient {
	return &GeminiClient{
		apiKey:     "test-key",
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		policy:     testPolicy(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestGenerateContentSuccess(t *testing.T) {
	var gotPath, gotKey, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hi there"}]}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	answer, err := client.GenerateContent(context.Background(), "gemini-2.5-flash", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Hi there" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if gotPath != "/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if !strings.Contains(gotBody, `"text":"hello"`) {
		t.Fatalf("prompt missing from request body: %q", gotBody)
	}
}

func TestGenerateContentRequiresModel(t *testing.T) {
	client := newTestClient("http://unused")
	if _, err := client.GenerateContent(context.Background(), "", "hello"); err != ErrInvalidModel {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
}

func TestGenerateContentAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GenerateContent(context.Background(), "gemini-2.5-flash", "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("expected API message in error, got %v", err)
	}
}

func TestGenerateContentRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"recovered"}]}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	answer, err := client.GenerateContent(context.Background(), "gemini-2.5-flash", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "recovered" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestGenerateContentEmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.GenerateContent(context.Background(), "gemini-2.5-flash", "hello"); err == nil {
		t.Fatalf("expected error for blank reply")
	}
}

func TestExtractTextShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "direct text field",
			body: `{"text":"direct answer"}`,
			want: "direct answer",
		},
		{
			name: "candidates with parts",
			body: `{"candidates":[{"content":{"parts":[{"text":"part one "},{"text":"part two"}]}}]}`,
			want: "part one part two",
		},
		{
			name: "candidates with plain content",
			body: `{"candidates":[{"content":"plain content"}]}`,
			want: "plain content",
		},
		{
			name: "unknown shape falls back to raw body",
			body: `{"something":"else"}`,
			want: `{"something":"else"}`,
		},
		{
			name: "direct text wins over candidates",
			body: `{"text":"direct","candidates":[{"content":{"parts":[{"text":"nested"}]}}]}`,
			want: "direct",
		},
	}

	for _, c := range cases {
		if got := extractText([]byte(c.body)); got != c.want {
			t.Fatalf("%s: extractText = %q, want %q", c.name, got, c.want)
		}
	}
}
