package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Strob0t/askdesk/internal/domain/message"
	"github.com/Strob0t/askdesk/internal/middleware"
)

// Stream event names.
const (
	sseContext = "context"
	sseMessage = "message"
	sseDone    = "done"
)

// sseWriter writes Server-Sent Events and flushes after each one.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, f: f}, true
}

func (s *sseWriter) event(name string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, raw); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

type streamDone struct {
	MessageCount int `json:"messageCount"`
}

// StreamContext handles GET /api/v1/ask/{keyOrToken}/stream
// It emits the context without its messages, one event per message summary,
// then done.
func (h *Handlers) StreamContext(w http.ResponseWriter, r *http.Request) {
	cc, loc, err := h.Context.ResolveAndAssemble(r.Context(), urlParam(r, "keyOrToken"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err, "ask session not found")
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	head := *cc
	head.Messages = []message.Summary{}
	if err := sse.event(sseContext, contextResponse{Context: &head, ParticipantID: loc.ParticipantID()}); err != nil {
		slog.WarnContext(r.Context(), "stream write failed", "error", err)
		return
	}
	for i := range cc.Messages {
		if r.Context().Err() != nil {
			return
		}
		if err := sse.event(sseMessage, cc.Messages[i]); err != nil {
			slog.WarnContext(r.Context(), "stream write failed", "error", err)
			return
		}
	}
	_ = sse.event(sseDone, streamDone{MessageCount: len(cc.Messages)})
}
