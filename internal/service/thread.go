// Package service implements the conversation context resolution engine on
// top of ports.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	cfotel "github.com/Strob0t/askdesk/internal/adapter/otel"
	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/thread"
	"github.com/Strob0t/askdesk/internal/port/broadcast"
	"github.com/Strob0t/askdesk/internal/port/database"
	"github.com/Strob0t/askdesk/internal/port/messagequeue"
)

// EventThreadCreated is the broadcast event type for new threads.
const EventThreadCreated = "thread.created"

// Classifier classifies session configuration with a process-wide default
// for sessions that carry no signal at all.
type Classifier struct {
	DefaultShared bool
}

// Classify applies thread.Classify with the configured default.
func (c Classifier) Classify(cfg thread.Config) thread.Decision {
	return thread.Classify(cfg, c.DefaultShared)
}

// ThreadService resolves the conversation thread a request belongs to,
// creating it on first access.
type ThreadService struct {
	store      database.Store
	classifier Classifier
	queue      messagequeue.Queue
	hub        broadcast.Broadcaster
	metrics    *cfotel.Metrics
}

// NewThreadService creates a ThreadService.
func NewThreadService(store database.Store, classifier Classifier) *ThreadService {
	return &ThreadService{store: store, classifier: classifier}
}

// SetQueue publishes threads.created events to q after each insert.
func (s *ThreadService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetBroadcaster broadcasts thread.created directly when no queue is set.
func (s *ThreadService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetMetrics sets the metric instruments.
func (s *ThreadService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Classify reports how cfg groups conversations.
func (s *ThreadService) Classify(cfg thread.Config) thread.Decision {
	return s.classifier.Classify(cfg)
}

// Resolve returns the thread for the session and requester, creating it if
// needed. It returns nil without error when the session is individual, the
// requester is anonymous, and no shared thread exists; callers then read the
// whole session.
//
// Concurrent first access is settled by the storage uniqueness constraint:
// an insert that loses the race re-fetches once. A failed re-fetch surfaces
// as *domain.ThreadRaceError.
func (s *ThreadService) Resolve(ctx context.Context, askSessionID string, requestingUserID *string, cfg thread.Config) (thr *thread.Thread, err error) {
	decision := s.classifier.Classify(cfg)
	ctx, span := cfotel.StartThreadResolveSpan(ctx, askSessionID, decision.Shared)
	defer func() { cfotel.EndSpan(span, err) }()

	userID := normalizeUserID(requestingUserID)

	if !decision.Shared && userID == nil {
		thr, err = s.store.FindThread(ctx, thread.SharedScope(askSessionID))
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolve thread: shared fallback: %w", err)
		}
		return thr, nil
	}

	scope := thread.SharedScope(askSessionID)
	if !decision.Shared {
		scope = thread.UserScope(askSessionID, *userID)
	}

	thr, err = s.store.FindThread(ctx, scope)
	if err == nil {
		return thr, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}

	thr, err = s.store.CreateThread(ctx, scope)
	if err == nil {
		s.metrics.ThreadCreated(ctx, scope.Shared)
		slog.InfoContext(ctx, "thread created", "ask_session_id", askSessionID, "thread_id", thr.ID, "shared", scope.Shared)
		s.announce(ctx, thr)
		return thr, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("resolve thread: create: %w", err)
	}

	thr, err = s.store.FindThread(ctx, scope)
	s.metrics.RaceRetry(ctx, err == nil)
	if err != nil {
		return nil, &domain.ThreadRaceError{
			AskSessionID: askSessionID,
			UserID:       scope.UserIDOrEmpty(),
			Shared:       scope.Shared,
			Err:          err,
		}
	}
	slog.DebugContext(ctx, "thread race lost, using existing thread", "thread_id", thr.ID)
	return thr, nil
}

// announce publishes the new thread. Failures are logged, never returned.
func (s *ThreadService) announce(ctx context.Context, thr *thread.Thread) {
	payload := messagequeue.ThreadCreatedPayload{
		ThreadID:     thr.ID,
		AskSessionID: thr.AskSessionID,
		IsShared:     thr.IsShared,
		CreatedAt:    thr.CreatedAt,
	}
	if thr.UserID != nil {
		payload.UserID = *thr.UserID
	}

	if s.queue == nil {
		if s.hub != nil {
			s.hub.BroadcastEvent(ctx, EventThreadCreated, payload)
		}
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal thread event", "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectThreadCreated, data); err != nil {
		slog.WarnContext(ctx, "publish thread event failed", "thread_id", thr.ID, "error", err)
	}
}

// normalizeUserID treats a blank user ID as anonymous.
func normalizeUserID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
