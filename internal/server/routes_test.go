package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iniduniaku/anon/internal/chat"
	"github.com/iniduniaku/anon/internal/upload"
)

func testServer(t *testing.T) (*Server, context.CancelFunc) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uploads, err := upload.NewService(t.TempDir(), "/uploads", 1<<20, logger)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	hub := chat.NewHub(nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	return New(hub, uploads, logger), cancel
}

func TestHealth(t *testing.T) {
	s, stop := testServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestStats(t *testing.T) {
	s, stop := testServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats chat.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Connections != 0 || stats.Waiting != 0 || stats.Rooms != 0 {
		t.Errorf("stats = %+v, want all zero on a fresh hub", stats)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	s, stop := testServer(t)
	defer stop()
	mux := s.Routes()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "cat.png")
	if err != nil {
		t.Fatalf("CreateFormFile() error: %v", err)
	}
	part.Write([]byte("pretend png"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var res upload.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if res.OriginalName != "cat.png" || !strings.HasPrefix(res.URL, "/uploads/") {
		t.Errorf("result = %+v", res)
	}

	// The stored file is served back under /uploads/.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, res.URL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", res.URL, rec.Code)
	}
	if rec.Body.String() != "pretend png" {
		t.Errorf("served body = %q", rec.Body.String())
	}
}

func TestUploadRejectsWrongMethod(t *testing.T) {
	s, stop := testServer(t)
	defer stop()

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	s, stop := testServer(t)
	defer stop()

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"plain remote addr", "203.0.113.7:1234", "", "203.0.113.7"},
		{"forwarded single", "10.0.0.1:80", "198.51.100.9", "198.51.100.9"},
		{"forwarded chain takes first hop", "10.0.0.1:80", "198.51.100.9, 10.0.0.2", "198.51.100.9"},
		{"forwarded with spaces", "10.0.0.1:80", "  198.51.100.9  ", "198.51.100.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
