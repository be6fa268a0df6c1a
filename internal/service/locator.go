package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/ask"
	"github.com/Strob0t/askdesk/internal/port/database"
)

// LocatorService finds the ASK session behind a public key or an invite token.
type LocatorService struct {
	store database.Store
	fuzzy bool
}

// NewLocatorService creates a LocatorService. With fuzzyKeyMatch, a key with
// no exact match falls back to a case-insensitive literal match.
func NewLocatorService(store database.Store, fuzzyKeyMatch bool) *LocatorService {
	return &LocatorService{store: store, fuzzy: fuzzyKeyMatch}
}

// Located is the result of resolving a key or token. Participant is set only
// when an invite token matched.
type Located struct {
	Session     *ask.Session
	Participant *ask.Participant
}

// ParticipantID returns the resolving participant's ID, or nil.
func (l *Located) ParticipantID() *string {
	if l == nil || l.Participant == nil {
		return nil
	}
	return &l.Participant.ID
}

// FindByKey returns the session with the given public key, or nil when
// nothing matches or the key is blank.
func (s *LocatorService) FindByKey(ctx context.Context, rawKey string) (*ask.Session, error) {
	key := strings.TrimSpace(rawKey)
	if key == "" {
		return nil, nil
	}

	sess, err := s.store.GetAskSessionByKey(ctx, key)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find session by key: %w", err)
	}
	if !s.fuzzy {
		return nil, nil
	}

	sess, err = s.store.FindAskSessionByKeyFold(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session by key (case-insensitive): %w", err)
	}
	return sess, nil
}

// FindByToken returns the session and participant ID an invite token
// belongs to, or nils when the token is blank or unknown.
func (s *LocatorService) FindByToken(ctx context.Context, token string) (*ask.Session, *string, error) {
	loc, err := s.findByToken(ctx, token)
	if err != nil || loc == nil {
		return nil, nil, err
	}
	return loc.Session, loc.ParticipantID(), nil
}

func (s *LocatorService) findByToken(ctx context.Context, rawToken string) (*Located, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, nil
	}

	p, err := s.store.GetParticipantByInviteToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session by token: %w", err)
	}

	sess, err := s.store.GetAskSession(ctx, p.AskSessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session by token: session %s: %w", p.AskSessionID, err)
	}
	return &Located{Session: sess, Participant: p}, nil
}

// Resolve tries keyOrToken as a public key, then as an invite token. It
// returns an error wrapping domain.ErrNotFound when neither matches.
func (s *LocatorService) Resolve(ctx context.Context, keyOrToken string) (*Located, error) {
	sess, err := s.FindByKey(ctx, keyOrToken)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return &Located{Session: sess}, nil
	}

	loc, err := s.findByToken(ctx, keyOrToken)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("resolve session: %w", domain.ErrNotFound)
	}
	return loc, nil
}
