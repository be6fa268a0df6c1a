package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/thread"
)

const threadColumns = `id, ask_session_id, user_id, is_shared, created_at`

// FindThread returns the thread owning scope.
func (s *Store) FindThread(ctx context.Context, scope thread.Scope) (*thread.Thread, error) {
	if !validID(scope.AskSessionID) {
		return nil, fmt.Errorf("find thread: %w", domain.ErrNotFound)
	}

	var row pgx.Row
	if scope.Shared {
		row = s.pool.QueryRow(ctx,
			`SELECT `+threadColumns+` FROM conversation_threads
			 WHERE ask_session_id = $1 AND is_shared AND user_id IS NULL`, scope.AskSessionID)
	} else {
		uid := scope.UserIDOrEmpty()
		if !validID(uid) {
			return nil, fmt.Errorf("find thread: %w", domain.ErrNotFound)
		}
		row = s.pool.QueryRow(ctx,
			`SELECT `+threadColumns+` FROM conversation_threads
			 WHERE ask_session_id = $1 AND user_id = $2 AND NOT is_shared`, scope.AskSessionID, uid)
	}

	t, err := scanThread(row)
	if err != nil {
		return nil, wrapErr(err, "find thread for session %s", scope.AskSessionID)
	}
	return &t, nil
}

// CreateThread inserts a thread for scope. The partial unique indexes turn a
// concurrent duplicate into domain.ErrConflict.
func (s *Store) CreateThread(ctx context.Context, scope thread.Scope) (*thread.Thread, error) {
	if !validID(scope.AskSessionID) {
		return nil, fmt.Errorf("create thread: %w", domain.ErrNotFound)
	}
	var userID *string
	if !scope.Shared {
		userID = nullIfEmpty(scope.UserIDOrEmpty())
		if userID == nil {
			return nil, fmt.Errorf("create thread: individual thread needs a user: %w", domain.ErrValidation)
		}
		if !validID(*userID) {
			return nil, fmt.Errorf("create thread: requester %q is not a user id: %w", *userID, domain.ErrValidation)
		}
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO conversation_threads (ask_session_id, user_id, is_shared)
		 VALUES ($1, $2, $3)
		 RETURNING `+threadColumns, scope.AskSessionID, userID, scope.Shared)
	t, err := scanThread(row)
	if err != nil {
		return nil, wrapErr(err, "create thread for session %s", scope.AskSessionID)
	}
	return &t, nil
}

func scanThread(row scannable) (thread.Thread, error) {
	var t thread.Thread
	err := row.Scan(&t.ID, &t.AskSessionID, &t.UserID, &t.IsShared, &t.CreatedAt)
	return t, err
}
