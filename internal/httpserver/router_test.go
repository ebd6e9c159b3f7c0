package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"
)

func TestRouterLiveness(t *testing.T) {
	router := NewRouter(RouterDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		AskHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "bot online" {
		t.Fatalf("unexpected liveness body %q", rr.Body.String())
	}
}

func TestRouterDispatchesAsk(t *testing.T) {
	var called bool
	router := NewRouter(RouterDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		AskHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}),
	})

	req := httptest.NewRequest("GET", "/ask?q=hello", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if !called {
		t.Fatalf("ask handler was not invoked")
	}
}
