package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/askdesk/internal/port/broadcast"
	"github.com/Strob0t/askdesk/internal/port/messagequeue"
)

// EventMessageCreated is the broadcast event type for appended messages.
const EventMessageCreated = "message.created"

// EventRelay consumes queue events: thread and message events are forwarded
// to connected dashboard sockets, catalog invalidations clear the local cache.
type EventRelay struct {
	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	catalog *CatalogService
	cancels []func()
}

// NewEventRelay creates an EventRelay. hub and catalog may be nil.
func NewEventRelay(queue messagequeue.Queue, hub broadcast.Broadcaster, catalog *CatalogService) *EventRelay {
	return &EventRelay{queue: queue, hub: hub, catalog: catalog}
}

// Start subscribes to every subject the relay handles.
func (r *EventRelay) Start(ctx context.Context) error {
	subs := map[string]messagequeue.Handler{
		messagequeue.SubjectThreadCreated:     r.handleThreadCreated,
		messagequeue.SubjectMessageCreated:    r.handleMessageCreated,
		messagequeue.SubjectCatalogInvalidate: r.handleCatalogInvalidate,
	}
	for subject, h := range subs {
		cancel, err := r.queue.Subscribe(ctx, subject, h)
		if err != nil {
			r.Stop()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		r.cancels = append(r.cancels, cancel)
	}
	slog.Info("event relay started", "subjects", len(subs))
	return nil
}

// Stop cancels all subscriptions.
func (r *EventRelay) Stop() {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

func (r *EventRelay) handleThreadCreated(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.ThreadCreatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode thread event: %w", err)
	}
	if r.hub != nil {
		r.hub.BroadcastEvent(ctx, EventThreadCreated, p)
	}
	return nil
}

func (r *EventRelay) handleMessageCreated(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.MessageCreatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode message event: %w", err)
	}
	if r.hub != nil {
		r.hub.BroadcastEvent(ctx, EventMessageCreated, p)
	}
	return nil
}

func (r *EventRelay) handleCatalogInvalidate(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.CatalogInvalidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode catalog event: %w", err)
	}
	if r.catalog == nil {
		return nil
	}
	if err := r.catalog.InvalidateLocal(ctx, p.Kind, p.ID); err != nil {
		return fmt.Errorf("invalidate %s %s: %w", p.Kind, p.ID, err)
	}
	slog.DebugContext(ctx, "catalog entry invalidated", "kind", p.Kind, "id", p.ID)
	return nil
}

// PublishCatalogInvalidate asks every instance to drop a cached catalog row.
// The shared level is cleared here, once.
func PublishCatalogInvalidate(ctx context.Context, q messagequeue.Queue, catalog *CatalogService, kind, id string) error {
	if err := catalog.Invalidate(ctx, kind, id); err != nil {
		return err
	}
	data, err := json.Marshal(messagequeue.CatalogInvalidatePayload{Kind: kind, ID: id})
	if err != nil {
		return fmt.Errorf("marshal catalog event: %w", err)
	}
	return q.Publish(ctx, messagequeue.SubjectCatalogInvalidate, data)
}
