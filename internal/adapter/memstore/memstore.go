// Package memstore implements database.Store and planprovider.Provider in
// memory. It enforces the same uniqueness rules as the postgres schema and
// backs tests and the "memory" storage driver.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/ask"
	"github.com/Strob0t/askdesk/internal/domain/challenge"
	"github.com/Strob0t/askdesk/internal/domain/message"
	"github.com/Strob0t/askdesk/internal/domain/plan"
	"github.com/Strob0t/askdesk/internal/domain/project"
	"github.com/Strob0t/askdesk/internal/domain/thread"
	"github.com/Strob0t/askdesk/internal/domain/user"
)

type storedMessage struct {
	msg message.Message
	seq int64
}

// Store is an in-memory store safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	now          func() time.Time
	seq          int64
	sessions     map[string]ask.Session
	participants map[string]ask.Participant
	users        map[string]user.User
	threads      map[string]thread.Thread
	messages     []storedMessage
	projects     map[string]project.Project
	challenges   map[string]challenge.Challenge
	plans        map[string]plan.Plan // by thread ID
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:          time.Now,
		sessions:     make(map[string]ask.Session),
		participants: make(map[string]ask.Participant),
		users:        make(map[string]user.User),
		threads:      make(map[string]thread.Thread),
		projects:     make(map[string]project.Project),
		challenges:   make(map[string]challenge.Challenge),
		plans:        make(map[string]plan.Plan),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// --- seeding ---

// AddSession stores sess, assigning an ID and CreatedAt when missing.
// Keys are unique like the ask_key column.
func (s *Store) AddSession(sess ask.Session) (ask.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	for _, existing := range s.sessions {
		if existing.Key == sess.Key && existing.ID != sess.ID {
			return ask.Session{}, fmt.Errorf("add session key %q: %w", sess.Key, domain.ErrConflict)
		}
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

// AddParticipant stores p. Invite tokens are unique.
func (s *Store) AddParticipant(p ask.Participant) (ask.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = s.now()
	}
	if p.InviteToken != nil {
		for _, existing := range s.participants {
			if existing.InviteToken != nil && *existing.InviteToken == *p.InviteToken && existing.ID != p.ID {
				return ask.Participant{}, fmt.Errorf("add participant: invite token: %w", domain.ErrConflict)
			}
		}
	}
	s.participants[p.ID] = p
	return p, nil
}

// AddUser stores u.
func (s *Store) AddUser(u user.User) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
	return u
}

// AddProject stores p.
func (s *Store) AddProject(p project.Project) project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.projects[p.ID] = p
	return p
}

// AddChallenge stores c.
func (s *Store) AddChallenge(c challenge.Challenge) challenge.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.challenges[c.ID] = c
	return c
}

// AddPlan attaches p to its thread, replacing any previous plan.
func (s *Store) AddPlan(p plan.Plan) plan.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.plans[p.ConversationThreadID] = p
	return p
}

// AddMessage stores m as-is, keeping a zero CreatedAt so legacy rows without
// timestamps can be reproduced.
func (s *Store) AddMessage(m message.Message) message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	s.seq++
	s.messages = append(s.messages, storedMessage{msg: m, seq: s.seq})
	return m
}

// --- ASK sessions ---

func (s *Store) GetAskSession(_ context.Context, id string) (*ask.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get ask session %s: %w", id, domain.ErrNotFound)
	}
	return &sess, nil
}

func (s *Store) GetAskSessionByKey(_ context.Context, key string) (*ask.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.Key == key {
			return &sess, nil
		}
	}
	return nil, fmt.Errorf("get ask session by key: %w", domain.ErrNotFound)
}

func (s *Store) FindAskSessionByKeyFold(_ context.Context, key string) (*ask.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *ask.Session
	for _, sess := range s.sessions {
		if !strings.EqualFold(sess.Key, key) {
			continue
		}
		if best == nil || newerSession(sess, *best) {
			best = &sess
		}
	}
	if best == nil {
		return nil, fmt.Errorf("find ask session by key: %w", domain.ErrNotFound)
	}
	return best, nil
}

// newerSession orders by creation time, then by ID, so equal timestamps
// still pick one session every time.
func newerSession(a, b ask.Session) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// --- Participants ---

func (s *Store) ListParticipants(_ context.Context, askSessionID string) ([]ask.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []ask.Participant{}
	for _, p := range s.participants {
		if p.AskSessionID == askSessionID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b ask.Participant) int {
		return cmp.Or(a.JoinedAt.Compare(b.JoinedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) GetParticipantByInviteToken(_ context.Context, token string) (*ask.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.InviteToken != nil && *p.InviteToken == token {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get participant by invite token: %w", domain.ErrNotFound)
}

// --- Users ---

func (s *Store) ListUsersByIDs(_ context.Context, ids []string) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []user.User{}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- Threads ---

func (s *Store) FindThread(_ context.Context, scope thread.Scope) (*thread.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.findThreadLocked(scope); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("find thread for session %s: %w", scope.AskSessionID, domain.ErrNotFound)
}

func (s *Store) findThreadLocked(scope thread.Scope) *thread.Thread {
	for _, t := range s.threads {
		if scope.Matches(&t) {
			return &t
		}
	}
	return nil
}

// CreateThread inserts a thread for scope, failing with domain.ErrConflict
// when one already exists.
func (s *Store) CreateThread(_ context.Context, scope thread.Scope) (*thread.Thread, error) {
	if !scope.Shared && scope.UserIDOrEmpty() == "" {
		return nil, fmt.Errorf("create thread: individual thread needs a user: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[scope.AskSessionID]; !ok {
		return nil, fmt.Errorf("create thread: session %s: %w", scope.AskSessionID, domain.ErrNotFound)
	}
	if s.findThreadLocked(scope) != nil {
		return nil, fmt.Errorf("create thread for session %s: %w", scope.AskSessionID, domain.ErrConflict)
	}

	t := thread.Thread{
		ID:           uuid.NewString(),
		AskSessionID: scope.AskSessionID,
		IsShared:     scope.Shared,
		CreatedAt:    s.now(),
	}
	if !scope.Shared {
		uid := scope.UserIDOrEmpty()
		t.UserID = &uid
	}
	s.threads[t.ID] = t
	return &t, nil
}

// --- Messages ---

func (s *Store) ListThreadMessages(_ context.Context, threadID string) ([]message.Message, error) {
	return s.listMessages(func(m *message.Message) bool {
		return m.ConversationThreadID != nil && *m.ConversationThreadID == threadID
	}), nil
}

func (s *Store) ListLegacyMessages(_ context.Context, askSessionID string) ([]message.Message, error) {
	return s.listMessages(func(m *message.Message) bool {
		return m.AskSessionID == askSessionID && m.ConversationThreadID == nil
	}), nil
}

func (s *Store) ListSessionMessages(_ context.Context, askSessionID string) ([]message.Message, error) {
	return s.listMessages(func(m *message.Message) bool {
		return m.AskSessionID == askSessionID
	}), nil
}

func (s *Store) listMessages(keep func(*message.Message) bool) []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []storedMessage
	for i := range s.messages {
		if keep(&s.messages[i].msg) {
			rows = append(rows, s.messages[i])
		}
	}
	slices.SortFunc(rows, func(a, b storedMessage) int {
		return cmp.Or(a.msg.CreatedAt.Compare(b.msg.CreatedAt), cmp.Compare(a.seq, b.seq))
	})
	out := make([]message.Message, 0, len(rows))
	for _, r := range rows {
		m := r.msg
		m.Metadata = maps.Clone(m.Metadata)
		out = append(out, m)
	}
	return out
}

// CreateMessage stores m with a fresh ID and the current time.
func (s *Store) CreateMessage(_ context.Context, m *message.Message) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[m.AskSessionID]; !ok {
		return nil, fmt.Errorf("create message: session %s: %w", m.AskSessionID, domain.ErrNotFound)
	}
	if m.ConversationThreadID != nil {
		if _, ok := s.threads[*m.ConversationThreadID]; !ok {
			return nil, fmt.Errorf("create message: thread %s: %w", *m.ConversationThreadID, domain.ErrNotFound)
		}
	}

	created := *m
	created.ID = uuid.NewString()
	created.CreatedAt = s.now()
	created.Metadata = maps.Clone(m.Metadata)
	s.seq++
	s.messages = append(s.messages, storedMessage{msg: created, seq: s.seq})
	return &created, nil
}

// --- Enrichment ---

func (s *Store) GetProject(_ context.Context, id string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("get project %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetChallenge(_ context.Context, id string) (*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, fmt.Errorf("get challenge %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

// PlanForThread returns the plan attached to threadID.
func (s *Store) PlanForThread(_ context.Context, threadID string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[threadID]
	if !ok {
		return nil, fmt.Errorf("plan for thread %s: %w", threadID, domain.ErrNotFound)
	}
	p.Steps = slices.Clone(p.Steps)
	return &p, nil
}

// ThreadCount returns the number of stored threads.
func (s *Store) ThreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
