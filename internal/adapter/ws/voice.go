package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// Voice socket message types.
const (
	EventVoiceInit    = "voice.init"
	EventVoiceRefresh = "voice.refresh"
	EventVoiceError   = "voice.error"
)

// Refresher rebuilds the voice agent's context on request.
type Refresher func(ctx context.Context) (any, error)

type voiceError struct {
	Error string `json:"error"`
}

// ServeVoice upgrades the request and sends initial as the voice.init frame.
// Each voice.refresh message from the agent is answered with a new
// voice.init built by refresh. The call returns when the agent disconnects.
func (h *Hub) ServeVoice(w http.ResponseWriter, r *http.Request, initial any, refresh Refresher) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("voice websocket accept failed", "error", err)
		return
	}
	defer func() { _ = ws.CloseNow() }()

	ctx := r.Context()
	if err := writeFrame(ctx, ws, EventVoiceInit, initial); err != nil {
		slog.WarnContext(ctx, "voice init write failed", "error", err)
		return
	}

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				slog.DebugContext(ctx, "voice socket closed", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != EventVoiceRefresh {
			continue
		}

		payload, err := refresh(ctx)
		if err != nil {
			slog.WarnContext(ctx, "voice refresh failed", "error", err)
			if err := writeFrame(ctx, ws, EventVoiceError, voiceError{Error: "context unavailable"}); err != nil {
				return
			}
			continue
		}
		if err := writeFrame(ctx, ws, EventVoiceInit, payload); err != nil {
			slog.WarnContext(ctx, "voice refresh write failed", "error", err)
			return
		}
	}
}

func writeFrame(ctx context.Context, ws *websocket.Conn, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	data, err := json.Marshal(Message{Type: eventType, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
