package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/ask"
)

// Store implements database.Store and planprovider.Provider using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks that the pool can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// validID reports whether id can be compared against a UUID column. Lookups
// with malformed IDs are answered as not found without a round trip.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// --- ASK sessions ---

const askSessionColumns = `id, ask_key, name, question, conversation_mode, audience_scope, response_mode,
	project_id, challenge_id, created_at`

func (s *Store) GetAskSession(ctx context.Context, id string) (*ask.Session, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get ask session %s: %w", id, domain.ErrNotFound)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+askSessionColumns+` FROM ask_sessions WHERE id = $1`, id)
	sess, err := scanAskSession(row)
	if err != nil {
		return nil, wrapErr(err, "get ask session %s", id)
	}
	return &sess, nil
}

func (s *Store) GetAskSessionByKey(ctx context.Context, key string) (*ask.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+askSessionColumns+` FROM ask_sessions WHERE ask_key = $1`, key)
	sess, err := scanAskSession(row)
	if err != nil {
		return nil, wrapErr(err, "get ask session by key")
	}
	return &sess, nil
}

func (s *Store) FindAskSessionByKeyFold(ctx context.Context, key string) (*ask.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+askSessionColumns+` FROM ask_sessions
		 WHERE ask_key ILIKE $1 ESCAPE '\'
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, escapeLike(key))
	sess, err := scanAskSession(row)
	if err != nil {
		return nil, wrapErr(err, "find ask session by key")
	}
	return &sess, nil
}

func scanAskSession(row scannable) (ask.Session, error) {
	var (
		sess                     ask.Session
		mode, audience, response *string
	)
	err := row.Scan(&sess.ID, &sess.Key, &sess.Name, &sess.Question, &mode, &audience, &response,
		&sess.ProjectID, &sess.ChallengeID, &sess.CreatedAt)
	if err != nil {
		return sess, err
	}
	if mode != nil {
		m := ask.ConversationMode(*mode)
		sess.ConversationMode = &m
	}
	if audience != nil {
		a := ask.AudienceScope(*audience)
		sess.AudienceScope = &a
	}
	if response != nil {
		r := ask.ResponseMode(*response)
		sess.ResponseMode = &r
	}
	return sess, nil
}

// --- Participants ---

const participantColumns = `id, ask_session_id, participant_name, role, is_spokesperson, user_id,
	invite_token, last_active_at, joined_at`

func (s *Store) ListParticipants(ctx context.Context, askSessionID string) ([]ask.Participant, error) {
	if !validID(askSessionID) {
		return []ask.Participant{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+participantColumns+` FROM ask_participants
		 WHERE ask_session_id = $1 ORDER BY joined_at ASC, id ASC`, askSessionID)
	if err != nil {
		return nil, wrapErr(err, "list participants %s", askSessionID)
	}
	defer rows.Close()

	var out []ask.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, wrapErr(err, "scan participant")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "list participants %s", askSessionID)
	}
	return orEmpty(out), nil
}

func (s *Store) GetParticipantByInviteToken(ctx context.Context, token string) (*ask.Participant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM ask_participants WHERE invite_token = $1`, token)
	p, err := scanParticipant(row)
	if err != nil {
		return nil, wrapErr(err, "get participant by invite token")
	}
	return &p, nil
}

func scanParticipant(row scannable) (ask.Participant, error) {
	var p ask.Participant
	err := row.Scan(&p.ID, &p.AskSessionID, &p.ParticipantName, &p.Role, &p.IsSpokesperson,
		&p.UserID, &p.InviteToken, &p.LastActiveAt, &p.JoinedAt)
	return p, err
}
