package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/askdesk/internal/domain"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", fmt.Errorf("resolve: %w", domain.ErrNotFound), http.StatusNotFound, "ask session not found"},
		{"conflict", &domain.ThreadRaceError{AskSessionID: "s1", Shared: true, Err: domain.ErrNotFound}, http.StatusConflict, "modified by another request"},
		{"wrapped race", fmt.Errorf("resolve thread: %w", &domain.ThreadRaceError{AskSessionID: "s1", UserID: "u1", Err: fmt.Errorf("refetch: %w", domain.ErrNotFound)}), http.StatusConflict, "modified by another request"},
		{"validation", fmt.Errorf("append message: content is required: %w", domain.ErrValidation), http.StatusBadRequest, "append message: content is required"},
		{"storage", fmt.Errorf("list: %w", domain.ErrStorageUnavailable), http.StatusServiceUnavailable, "storage unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/", http.NoBody)
			writeDomainError(w, r, tt.err, "ask session not found")
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("expected body containing %q, got %s", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestWriteDomainErrorHidesSentinelText(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", http.NoBody)
	writeDomainError(w, r, fmt.Errorf("post message: bad: %w", domain.ErrValidation), "")
	if strings.Contains(w.Body.String(), domain.ErrValidation.Error()) {
		t.Fatalf("sentinel text leaked: %s", w.Body.String())
	}
}
