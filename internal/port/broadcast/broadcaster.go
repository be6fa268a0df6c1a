// Package broadcast defines the port that pushes ask session events to
// connected sockets.
package broadcast

import "context"

// Broadcaster fans an event out to the sockets following the ask session
// named by the payload's ask_session_id. Payloads without one reach every
// socket.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
