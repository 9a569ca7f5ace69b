package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"seqtag/internal/logging"
)

func TestUsageEndpoint(t *testing.T) {
	s := New(nil, logging.Discard())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "POST /tag") {
		t.Errorf("usage text missing: %q", rec.Body.String())
	}
}

func TestTagWithoutFilePart(t *testing.T) {
	s := New(nil, logging.Discard())
	req := httptest.NewRequest(http.MethodPost, "/tag", strings.NewReader("no multipart"))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /tag without a file part returned %d, want 400", rec.Code)
	}
}
