package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/message"
)

const messageColumns = `id, ask_session_id, conversation_thread_id, user_id, sender_type, content,
	message_type, metadata, created_at, plan_step_id`

func (s *Store) ListThreadMessages(ctx context.Context, threadID string) ([]message.Message, error) {
	if !validID(threadID) {
		return []message.Message{}, nil
	}
	return s.listMessages(ctx, "list thread messages",
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_thread_id = $1 ORDER BY created_at ASC, seq ASC`, threadID)
}

func (s *Store) ListLegacyMessages(ctx context.Context, askSessionID string) ([]message.Message, error) {
	if !validID(askSessionID) {
		return []message.Message{}, nil
	}
	return s.listMessages(ctx, "list legacy messages",
		`SELECT `+messageColumns+` FROM messages
		 WHERE ask_session_id = $1 AND conversation_thread_id IS NULL ORDER BY created_at ASC, seq ASC`, askSessionID)
}

func (s *Store) ListSessionMessages(ctx context.Context, askSessionID string) ([]message.Message, error) {
	if !validID(askSessionID) {
		return []message.Message{}, nil
	}
	return s.listMessages(ctx, "list session messages",
		`SELECT `+messageColumns+` FROM messages
		 WHERE ask_session_id = $1 ORDER BY created_at ASC, seq ASC`, askSessionID)
}

func (s *Store) listMessages(ctx context.Context, op, query string, arg string) ([]message.Message, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, wrapErr(err, "%s %s", op, arg)
	}
	defer rows.Close()

	var out []message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, wrapErr(err, "scan message")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "%s %s", op, arg)
	}
	return orEmpty(out), nil
}

// CreateMessage inserts m and returns the stored row.
func (s *Store) CreateMessage(ctx context.Context, m *message.Message) (*message.Message, error) {
	if !validID(m.AskSessionID) {
		return nil, fmt.Errorf("create message: %w", domain.ErrNotFound)
	}
	if m.UserID != nil && !validID(*m.UserID) {
		return nil, fmt.Errorf("create message: sender %q is not a user id: %w", *m.UserID, domain.ErrValidation)
	}
	var meta []byte
	if len(m.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(m.Metadata); err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO messages (ask_session_id, conversation_thread_id, user_id, sender_type, content,
		                       message_type, metadata, plan_step_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+messageColumns,
		m.AskSessionID, m.ConversationThreadID, m.UserID, m.SenderType, m.Content,
		m.MessageType, meta, m.PlanStepID)
	created, err := scanMessage(row)
	if err != nil {
		return nil, wrapErr(err, "create message in session %s", m.AskSessionID)
	}
	return &created, nil
}

func scanMessage(row scannable) (message.Message, error) {
	var (
		m    message.Message
		meta []byte
	)
	err := row.Scan(&m.ID, &m.AskSessionID, &m.ConversationThreadID, &m.UserID, &m.SenderType, &m.Content,
		&m.MessageType, &meta, &m.CreatedAt, &m.PlanStepID)
	if err != nil {
		return m, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return m, fmt.Errorf("unmarshal metadata for message %s: %w", m.ID, err)
		}
	}
	return m, nil
}
