package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/ask"
	"github.com/Strob0t/askdesk/internal/domain/message"
	"github.com/Strob0t/askdesk/internal/domain/thread"
	"github.com/Strob0t/askdesk/internal/domain/user"
	"github.com/Strob0t/askdesk/internal/port/messagequeue"
)

func TestLoadMergesThreadAndLegacy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.session(t, ask.Session{Key: "merge"})
	thr, err := f.store.CreateThread(ctx, thread.SharedScope(sess.ID))
	if err != nil {
		t.Fatal(err)
	}
	other, err := f.store.CreateThread(ctx, thread.UserScope(sess.ID, "someone-else"))
	if err != nil {
		t.Fatal(err)
	}

	f.store.AddMessage(message.Message{ID: "t2", AskSessionID: sess.ID, ConversationThreadID: &thr.ID, Content: "t2", CreatedAt: t0.Add(3 * time.Minute)})
	f.store.AddMessage(message.Message{ID: "l1", AskSessionID: sess.ID, Content: "l1", CreatedAt: t0.Add(1 * time.Minute)})
	f.store.AddMessage(message.Message{ID: "t1", AskSessionID: sess.ID, ConversationThreadID: &thr.ID, Content: "t1", CreatedAt: t0.Add(2 * time.Minute)})
	f.store.AddMessage(message.Message{ID: "x1", AskSessionID: sess.ID, ConversationThreadID: &other.ID, Content: "x1", CreatedAt: t0})
	f.store.AddMessage(message.Message{ID: "l0", AskSessionID: sess.ID, Content: "l0"}) // no timestamp

	got, _, err := f.msgs.Load(ctx, sess.ID, thr, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"l0", "l1", "t1", "t2"}
	if !equalStrings(contents(got), want) {
		t.Fatalf("expected %v, got %v", want, contents(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("summaries not sorted at %d", i)
		}
	}
}

func TestLoadWithoutThreadReadsWholeSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.session(t, ask.Session{Key: "whole"})
	thr, err := f.store.CreateThread(ctx, thread.UserScope(sess.ID, "u1"))
	if err != nil {
		t.Fatal(err)
	}
	f.store.AddMessage(message.Message{ID: "a", AskSessionID: sess.ID, ConversationThreadID: &thr.ID, Content: "a", CreatedAt: t0})
	f.store.AddMessage(message.Message{ID: "b", AskSessionID: sess.ID, Content: "b", CreatedAt: t0.Add(time.Second)})

	got, _, err := f.msgs.Load(ctx, sess.ID, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(contents(got), []string{"a", "b"}) {
		t.Fatalf("expected every session message, got %v", contents(got))
	}
}

func TestLoadBatchesUnknownSenders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.session(t, ask.Session{Key: "batch"})
	known := f.store.AddUser(user.User{FullName: "Known Person"})
	a := f.store.AddUser(user.User{FirstName: "Ada", LastName: "Lovelace"})
	b := f.store.AddUser(user.User{Email: "b@example.test"})

	for i, uid := range []string{known.ID, a.ID, b.ID, a.ID, b.ID} {
		f.store.AddMessage(message.Message{AskSessionID: sess.ID, UserID: &uid, SenderType: message.SenderUser,
			Content: fmt.Sprint(i), CreatedAt: t0.Add(time.Duration(i) * time.Second)})
	}

	got, users, err := f.msgs.Load(ctx, sess.ID, nil, user.Index{known.ID: known})
	if err != nil {
		t.Fatal(err)
	}

	batches := f.store.batches()
	if len(batches) != 1 {
		t.Fatalf("expected one user lookup, got %d: %v", len(batches), batches)
	}
	slices.Sort(batches[0])
	wantIDs := []string{a.ID, b.ID}
	slices.Sort(wantIDs)
	if !equalStrings(batches[0], wantIDs) {
		t.Fatalf("expected lookup of %v, got %v", wantIDs, batches[0])
	}
	if len(users) != 3 {
		t.Fatalf("expected index with 3 users, got %d", len(users))
	}

	names := []string{got[0].SenderName, got[1].SenderName, got[2].SenderName}
	want := []string{"Known Person", "Ada Lovelace", "b@example.test"}
	if !equalStrings(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
}

func TestLoadSkipsLookupWhenAllKnown(t *testing.T) {
	f := newFixture(t)
	sess := f.session(t, ask.Session{Key: "known"})
	u := f.store.AddUser(user.User{FullName: "Only One"})
	f.store.AddMessage(message.Message{AskSessionID: sess.ID, UserID: &u.ID, Content: "hi", CreatedAt: t0})

	if _, _, err := f.msgs.Load(context.Background(), sess.ID, nil, user.Index{u.ID: u}); err != nil {
		t.Fatal(err)
	}
	if n := len(f.store.batches()); n != 0 {
		t.Fatalf("expected no user lookup, got %d", n)
	}
}

func TestLoadSenderNames(t *testing.T) {
	f := newFixture(t)
	sess := f.session(t, ask.Session{Key: "names"})
	f.store.AddMessage(message.Message{ID: "1", AskSessionID: sess.ID, SenderType: message.SenderAI, Content: "q", CreatedAt: t0})
	f.store.AddMessage(message.Message{ID: "2", AskSessionID: sess.ID, SenderType: message.SenderAI, Content: "q2",
		Metadata: map[string]any{message.MetadataSenderName: "Facilitator"}, CreatedAt: t0.Add(time.Second)})
	f.store.AddMessage(message.Message{ID: "3", AskSessionID: sess.ID, SenderType: message.SenderUser, Content: "a",
		UserID: ptr("ghost"), CreatedAt: t0.Add(2 * time.Second)})

	got, _, err := f.msgs.LoadWithRoster(context.Background(), sess.ID, nil, nil, map[string]int{"ghost": 4})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Agent", "Facilitator", "Participant 5"}
	for i, w := range want {
		if got[i].SenderName != w {
			t.Errorf("message %d: expected %q, got %q", i, w, got[i].SenderName)
		}
	}
}

func TestSummariesAlwaysCarryPlanStepID(t *testing.T) {
	f := newFixture(t)
	sess := f.session(t, ask.Session{Key: "json"})
	f.store.AddMessage(message.Message{AskSessionID: sess.ID, Content: "no step", CreatedAt: t0})
	f.store.AddMessage(message.Message{AskSessionID: sess.ID, Content: "step", PlanStepID: ptr("step_1"), CreatedAt: t0.Add(time.Second)})

	got, _, err := f.msgs.Load(context.Background(), sess.ID, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	for i, m := range decoded {
		if _, ok := m["planStepId"]; !ok {
			t.Fatalf("summary %d lacks planStepId: %s", i, raw)
		}
	}
	if decoded[0]["planStepId"] != nil || decoded[1]["planStepId"] != "step_1" {
		t.Fatalf("unexpected planStepId values: %s", raw)
	}
}

func TestLoadPropagatesStorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.session(t, ask.Session{Key: "fail"})
	thr, _ := f.store.CreateThread(ctx, thread.SharedScope(sess.ID))
	f.store.listThreadMsgs = func(context.Context, string) ([]message.Message, error) {
		return nil, domain.ErrStorageUnavailable
	}

	if _, _, err := f.msgs.Load(ctx, sess.ID, thr, nil); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestAppend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.session(t, ask.Session{Key: "append"})
	thr, _ := f.store.CreateThread(ctx, thread.SharedScope(sess.ID))
	q := newFakeQueue()
	f.msgs.SetQueue(q)

	m, err := f.msgs.Append(ctx, AppendRequest{
		AskSessionID: sess.ID, Thread: thr, UserID: ptr("u1"), Content: "  hello  ", SenderName: "Ada",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Content != "hello" || m.SenderType != message.SenderUser || m.MessageType != message.TypeText {
		t.Fatalf("unexpected stored message %+v", m)
	}
	if m.ConversationThreadID == nil || *m.ConversationThreadID != thr.ID {
		t.Fatal("expected message attached to thread")
	}
	if m.ExplicitSenderName() != "Ada" {
		t.Fatalf("expected sender name metadata, got %v", m.Metadata)
	}
	if got := q.subjects(); len(got) != 1 || got[0] != messagequeue.SubjectMessageCreated {
		t.Fatalf("expected messages.created, got %v", got)
	}
}

func TestAppendValidation(t *testing.T) {
	f := newFixture(t)
	sess := f.session(t, ask.Session{Key: "invalid"})

	tests := []struct {
		name string
		req  AppendRequest
		want string
	}{
		{"blank content", AppendRequest{AskSessionID: sess.ID, Content: "   "}, "content is required"},
		{"bad sender", AppendRequest{AskSessionID: sess.ID, Content: "x", SenderType: "robot"}, "unknown sender type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.msgs.Append(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected validation error containing %q, got %v", tt.want, err)
			}
		})
	}

	_, err := f.msgs.Append(context.Background(), AppendRequest{AskSessionID: "missing", Content: "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
}
