package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/askdesk/internal/adapter/otel"
	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/message"
	"github.com/Strob0t/askdesk/internal/domain/thread"
	"github.com/Strob0t/askdesk/internal/domain/user"
	"github.com/Strob0t/askdesk/internal/port/broadcast"
	"github.com/Strob0t/askdesk/internal/port/database"
	"github.com/Strob0t/askdesk/internal/port/messagequeue"
)

// MessageService aggregates a conversation's messages into summaries and
// appends new ones.
type MessageService struct {
	store database.Store
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewMessageService creates a MessageService.
func NewMessageService(store database.Store) *MessageService {
	return &MessageService{store: store}
}

// SetQueue publishes messages.created events to q after each append.
func (s *MessageService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetBroadcaster pushes messages.created straight to b when no queue is set.
func (s *MessageService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// Load is LoadWithRoster without participant positions.
func (s *MessageService) Load(ctx context.Context, askSessionID string, thr *thread.Thread, known user.Index) ([]message.Summary, user.Index, error) {
	return s.LoadWithRoster(ctx, askSessionID, thr, known, nil)
}

// LoadWithRoster returns the summaries of the conversation and the user
// index extended with every sender it had to look up.
//
// With a thread, thread-scoped rows and the session's legacy rows (no thread)
// are merged; without one, every message of the session is read. Senders
// missing from known are fetched in a single batch. roster maps user IDs to
// their participant position for the "Participant N" fallback name.
func (s *MessageService) LoadWithRoster(ctx context.Context, askSessionID string, thr *thread.Thread, known user.Index, roster map[string]int) (summaries []message.Summary, users user.Index, err error) {
	threadID := ""
	if thr != nil {
		threadID = thr.ID
	}
	ctx, span := cfotel.StartMessagesLoadSpan(ctx, askSessionID, threadID)
	defer func() { cfotel.EndSpan(span, err) }()

	msgs, err := s.fetch(ctx, askSessionID, threadID)
	if err != nil {
		return nil, nil, err
	}

	users = maps.Clone(known)
	if users == nil {
		users = user.Index{}
	}
	if missing := users.Missing(message.SenderUserIDs(msgs)); len(missing) > 0 {
		fetched, err := s.store.ListUsersByIDs(ctx, missing)
		if err != nil {
			return nil, nil, fmt.Errorf("load messages: senders: %w", err)
		}
		for _, u := range fetched {
			users[u.ID] = u
		}
	}

	return message.Summarize(msgs, users, roster), users, nil
}

func (s *MessageService) fetch(ctx context.Context, askSessionID, threadID string) ([]message.Message, error) {
	if threadID == "" {
		all, err := s.store.ListSessionMessages(ctx, askSessionID)
		if err != nil {
			return nil, fmt.Errorf("load messages: session %s: %w", askSessionID, err)
		}
		return message.Merge(all), nil
	}

	var scoped, legacy []message.Message
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if scoped, err = s.store.ListThreadMessages(gctx, threadID); err != nil {
			return fmt.Errorf("load messages: thread %s: %w", threadID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if legacy, err = s.store.ListLegacyMessages(gctx, askSessionID); err != nil {
			return fmt.Errorf("load messages: legacy %s: %w", askSessionID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return message.Merge(scoped, legacy), nil
}

// AppendRequest is a new message for a session.
type AppendRequest struct {
	AskSessionID string
	Thread       *thread.Thread
	UserID       *string
	SenderType   string
	SenderName   string
	Content      string
	MessageType  string
	PlanStepID   *string
}

// Append validates and stores a message, attaching it to the thread when
// one is given.
func (s *MessageService) Append(ctx context.Context, req AppendRequest) (*message.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("append message: content is required: %w", domain.ErrValidation)
	}
	senderType := req.SenderType
	if senderType == "" {
		senderType = message.SenderUser
	}
	switch senderType {
	case message.SenderUser, message.SenderAI, message.SenderSystem:
	default:
		return nil, fmt.Errorf("append message: unknown sender type %q: %w", senderType, domain.ErrValidation)
	}

	m := &message.Message{
		AskSessionID: req.AskSessionID,
		UserID:       normalizeUserID(req.UserID),
		SenderType:   senderType,
		Content:      content,
		MessageType:  req.MessageType,
		PlanStepID:   req.PlanStepID,
	}
	if m.MessageType == "" {
		m.MessageType = message.TypeText
	}
	if req.Thread != nil {
		m.ConversationThreadID = &req.Thread.ID
	}
	if name := strings.TrimSpace(req.SenderName); name != "" {
		m.Metadata = map[string]any{message.MetadataSenderName: name}
	}

	created, err := s.store.CreateMessage(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	s.announce(ctx, created)
	return created, nil
}

func (s *MessageService) announce(ctx context.Context, m *message.Message) {
	payload := messagequeue.MessageCreatedPayload{
		MessageID:    m.ID,
		AskSessionID: m.AskSessionID,
		SenderType:   m.SenderType,
	}
	if m.ConversationThreadID != nil {
		payload.ThreadID = *m.ConversationThreadID
	}

	if s.queue == nil {
		if s.hub != nil {
			s.hub.BroadcastEvent(ctx, EventMessageCreated, payload)
		}
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal message event", "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectMessageCreated, data); err != nil {
		slog.WarnContext(ctx, "publish message event failed", "message_id", m.ID, "error", err)
	}
}
