package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// sessionScope picks the session an event belongs to out of its payload.
type sessionScope struct {
	AskSessionID string `json:"ask_session_id"`
}

// BroadcastEvent marshals a typed event and broadcasts it. Payloads that
// carry an ask_session_id only reach sockets following that session.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	var scope sessionScope
	_ = json.Unmarshal(data, &scope)

	h.BroadcastToSession(ctx, scope.AskSessionID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
