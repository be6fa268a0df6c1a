// Package database defines the storage port the resolution engine reads from.
package database

import (
	"context"

	"github.com/Strob0t/askdesk/internal/domain/ask"
	"github.com/Strob0t/askdesk/internal/domain/challenge"
	"github.com/Strob0t/askdesk/internal/domain/message"
	"github.com/Strob0t/askdesk/internal/domain/project"
	"github.com/Strob0t/askdesk/internal/domain/thread"
	"github.com/Strob0t/askdesk/internal/domain/user"
)

// Store is the port interface for database operations.
//
// Single-row getters return an error wrapping domain.ErrNotFound when no row
// matches. Infrastructure failures wrap domain.ErrStorageUnavailable.
type Store interface {
	// ASK sessions
	GetAskSession(ctx context.Context, id string) (*ask.Session, error)
	GetAskSessionByKey(ctx context.Context, key string) (*ask.Session, error)
	// FindAskSessionByKeyFold matches key case-insensitively with no
	// wildcard interpretation and returns the most recently created match.
	FindAskSessionByKeyFold(ctx context.Context, key string) (*ask.Session, error)

	// Participants
	ListParticipants(ctx context.Context, askSessionID string) ([]ask.Participant, error)
	GetParticipantByInviteToken(ctx context.Context, token string) (*ask.Participant, error)

	// Users. Unknown IDs are skipped; the result order is unspecified.
	ListUsersByIDs(ctx context.Context, ids []string) ([]user.User, error)

	// Threads. CreateThread returns an error wrapping domain.ErrConflict when
	// a thread already exists for the scope.
	FindThread(ctx context.Context, scope thread.Scope) (*thread.Thread, error)
	CreateThread(ctx context.Context, scope thread.Scope) (*thread.Thread, error)

	// Messages, each list ordered by created_at then insertion.
	ListThreadMessages(ctx context.Context, threadID string) ([]message.Message, error)
	ListLegacyMessages(ctx context.Context, askSessionID string) ([]message.Message, error)
	ListSessionMessages(ctx context.Context, askSessionID string) ([]message.Message, error)
	CreateMessage(ctx context.Context, m *message.Message) (*message.Message, error)

	// Enrichment
	GetProject(ctx context.Context, id string) (*project.Project, error)
	GetChallenge(ctx context.Context, id string) (*challenge.Challenge, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
