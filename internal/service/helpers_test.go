package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/askdesk/internal/adapter/memstore"
	"github.com/Strob0t/askdesk/internal/domain/ask"
	"github.com/Strob0t/askdesk/internal/domain/challenge"
	"github.com/Strob0t/askdesk/internal/domain/message"
	"github.com/Strob0t/askdesk/internal/domain/plan"
	"github.com/Strob0t/askdesk/internal/domain/project"
	"github.com/Strob0t/askdesk/internal/domain/thread"
	"github.com/Strob0t/askdesk/internal/domain/user"
	"github.com/Strob0t/askdesk/internal/port/database"
	"github.com/Strob0t/askdesk/internal/port/messagequeue"
)

func ptr[T any](v T) *T { return &v }

var t0 = time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

// Ensure the store fakes implement database.Store at compile time.
var (
	_ database.Store = (*memstore.Store)(nil)
	_ database.Store = (*hookStore)(nil)
)

// hookStore wraps a memstore and lets tests inject failures or observe
// calls per method. Unset hooks fall through to the memstore.
type hookStore struct {
	*memstore.Store

	mu              sync.Mutex
	userBatches     [][]string
	getProjectCalls int

	findThread       func(ctx context.Context, scope thread.Scope) (*thread.Thread, error)
	createThread     func(ctx context.Context, scope thread.Scope) (*thread.Thread, error)
	listParticipants func(ctx context.Context, id string) ([]ask.Participant, error)
	listThreadMsgs   func(ctx context.Context, id string) ([]message.Message, error)
	listSessionMsgs  func(ctx context.Context, id string) ([]message.Message, error)
	listUsers        func(ctx context.Context, ids []string) ([]user.User, error)
	getProject       func(ctx context.Context, id string) (*project.Project, error)
	getChallenge     func(ctx context.Context, id string) (*challenge.Challenge, error)
	getSessionByKey  func(ctx context.Context, key string) (*ask.Session, error)
}

func newHookStore() *hookStore {
	return &hookStore{Store: memstore.New()}
}

func (h *hookStore) FindThread(ctx context.Context, scope thread.Scope) (*thread.Thread, error) {
	if h.findThread != nil {
		return h.findThread(ctx, scope)
	}
	return h.Store.FindThread(ctx, scope)
}

func (h *hookStore) CreateThread(ctx context.Context, scope thread.Scope) (*thread.Thread, error) {
	if h.createThread != nil {
		return h.createThread(ctx, scope)
	}
	return h.Store.CreateThread(ctx, scope)
}

func (h *hookStore) ListParticipants(ctx context.Context, id string) ([]ask.Participant, error) {
	if h.listParticipants != nil {
		return h.listParticipants(ctx, id)
	}
	return h.Store.ListParticipants(ctx, id)
}

func (h *hookStore) ListThreadMessages(ctx context.Context, id string) ([]message.Message, error) {
	if h.listThreadMsgs != nil {
		return h.listThreadMsgs(ctx, id)
	}
	return h.Store.ListThreadMessages(ctx, id)
}

func (h *hookStore) ListSessionMessages(ctx context.Context, id string) ([]message.Message, error) {
	if h.listSessionMsgs != nil {
		return h.listSessionMsgs(ctx, id)
	}
	return h.Store.ListSessionMessages(ctx, id)
}

func (h *hookStore) ListUsersByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	h.mu.Lock()
	h.userBatches = append(h.userBatches, append([]string(nil), ids...))
	h.mu.Unlock()
	if h.listUsers != nil {
		return h.listUsers(ctx, ids)
	}
	return h.Store.ListUsersByIDs(ctx, ids)
}

func (h *hookStore) GetProject(ctx context.Context, id string) (*project.Project, error) {
	h.mu.Lock()
	h.getProjectCalls++
	h.mu.Unlock()
	if h.getProject != nil {
		return h.getProject(ctx, id)
	}
	return h.Store.GetProject(ctx, id)
}

func (h *hookStore) GetChallenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	if h.getChallenge != nil {
		return h.getChallenge(ctx, id)
	}
	return h.Store.GetChallenge(ctx, id)
}

func (h *hookStore) GetAskSessionByKey(ctx context.Context, key string) (*ask.Session, error) {
	if h.getSessionByKey != nil {
		return h.getSessionByKey(ctx, key)
	}
	return h.Store.GetAskSessionByKey(ctx, key)
}

func (h *hookStore) batches() [][]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.userBatches
}

// fakeQueue records publishes and dispatches to in-process subscribers.
type fakeQueue struct {
	mu         sync.Mutex
	published  []published
	handlers   map[string]messagequeue.Handler
	publishErr error
}

type published struct {
	subject string
	data    []byte
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{handlers: make(map[string]messagequeue.Handler)}
}

func (q *fakeQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return err
	}
	q.mu.Lock()
	if q.publishErr != nil {
		q.mu.Unlock()
		return q.publishErr
	}
	q.published = append(q.published, published{subject: subject, data: data})
	h := q.handlers[subject]
	q.mu.Unlock()
	if h != nil {
		return h(ctx, subject, data)
	}
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = handler
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.handlers, subject)
	}, nil
}

func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

func (q *fakeQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, p := range q.published {
		out = append(out, p.subject)
	}
	return out
}

// fakeHub records broadcasts.
type fakeHub struct {
	mu     sync.Mutex
	events []string
}

func (h *fakeHub) BroadcastEvent(_ context.Context, eventType string, _ any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, eventType)
}

func (h *fakeHub) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

// fakePlans is a planprovider.Provider with a fixed answer.
type fakePlans struct {
	mu    sync.Mutex
	plan  *plan.Plan
	err   error
	calls int
}

func (f *fakePlans) PlanForThread(_ context.Context, threadID string) (*plan.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.plan == nil {
		return nil, nil
	}
	p := *f.plan
	p.ConversationThreadID = threadID
	return &p, nil
}

// fixture is a seeded store plus a fully wired ContextService.
type fixture struct {
	store   *hookStore
	threads *ThreadService
	msgs    *MessageService
	locator *LocatorService
	catalog *CatalogService
	svc     *ContextService
	plans   *fakePlans
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newHookStore()
	f := &fixture{store: store, plans: &fakePlans{}}
	f.threads = NewThreadService(store, Classifier{})
	f.msgs = NewMessageService(store)
	f.locator = NewLocatorService(store, true)
	f.catalog = NewCatalogService(store, nil, time.Minute)
	f.svc = NewContextService(store, f.locator, f.threads, f.msgs, f.catalog, f.plans)
	return f
}

func (f *fixture) session(t *testing.T, sess ask.Session) *ask.Session {
	t.Helper()
	got, err := f.store.AddSession(sess)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return &got
}

// participant seeds a user and a participant for them.
func (f *fixture) participant(t *testing.T, sessionID, fullName string, joined time.Time) (user.User, ask.Participant) {
	t.Helper()
	u := f.store.AddUser(user.User{FullName: fullName, Email: fullName + "@example.test"})
	p, err := f.store.AddParticipant(ask.Participant{AskSessionID: sessionID, UserID: &u.ID, JoinedAt: joined})
	if err != nil {
		t.Fatalf("seed participant: %v", err)
	}
	return u, p
}

// say appends a message as the given user through the real resolution path,
// the way the chat endpoint does.
func (f *fixture) say(t *testing.T, sess *ask.Session, userID, content string) {
	t.Helper()
	ctx := context.Background()
	thr, err := f.threads.Resolve(ctx, sess.ID, &userID, thread.ConfigOf(sess))
	if err != nil {
		t.Fatalf("resolve thread: %v", err)
	}
	if _, err := f.msgs.Append(ctx, AppendRequest{AskSessionID: sess.ID, Thread: thr, UserID: &userID, Content: content}); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func contents(msgs []message.Summary) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
