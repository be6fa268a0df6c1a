package nats

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/Strob0t/askdesk/internal/logger"
	"github.com/Strob0t/askdesk/internal/port/messagequeue"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

func TestQueue_PublishSubscribe(t *testing.T) {
	q := testConnect(t)
	if !q.IsConnected() {
		t.Fatal("expected connected queue")
	}

	want := messagequeue.ThreadCreatedPayload{
		ThreadID:     "t-" + t.Name(),
		AskSessionID: "s1",
		IsShared:     true,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	type delivery struct {
		payload messagequeue.ThreadCreatedPayload
		reqID   string
	}
	got := make(chan delivery, 4)

	stop, err := q.Subscribe(context.Background(), messagequeue.SubjectThreadCreated, func(ctx context.Context, _ string, d []byte) error {
		var p messagequeue.ThreadCreatedPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		got <- delivery{payload: p, reqID: logger.RequestID(ctx)}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	ctx := logger.WithRequestID(context.Background(), "req-nats-1")
	if err := q.Publish(ctx, messagequeue.SubjectThreadCreated, data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case d := <-got:
			if d.payload.ThreadID != want.ThreadID {
				continue
			}
			if d.reqID != "req-nats-1" {
				t.Errorf("request id = %q, want req-nats-1", d.reqID)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for message")
		}
	}
}

func TestQueue_PublishRejectsInvalidPayload(t *testing.T) {
	q := testConnect(t)

	err := q.Publish(context.Background(), messagequeue.SubjectCatalogInvalidate, []byte(`{"kind":"client"}`))
	if err == nil {
		t.Fatal("expected schema validation error")
	}
}
