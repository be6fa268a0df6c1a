package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/ask"
	"github.com/Strob0t/askdesk/internal/domain/message"
	"github.com/Strob0t/askdesk/internal/domain/thread"
)

func ptr[T any](v T) *T { return &v }

func mustSession(t *testing.T, s *Store, sess ask.Session) ask.Session {
	t.Helper()
	got, err := s.AddSession(sess)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestAddSessionKeyUnique(t *testing.T) {
	s := New()
	mustSession(t, s, ask.Session{Key: "alpha"})
	if _, err := s.AddSession(ask.Session{Key: "alpha"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFindAskSessionByKeyFoldPrefersNewest(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mustSession(t, s, ask.Session{Key: "team", CreatedAt: base})
	newer := mustSession(t, s, ask.Session{Key: "TEAM", CreatedAt: base.Add(time.Hour)})

	got, err := s.FindAskSessionByKeyFold(ctx, "Team")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != newer.ID {
		t.Fatalf("expected newest match %s, got %s", newer.ID, got.ID)
	}

	if _, err := s.FindAskSessionByKeyFold(ctx, "other"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindAskSessionByKeyFoldTieIsStable(t *testing.T) {
	s := New()
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mustSession(t, s, ask.Session{ID: "0000aaaa", Key: "Team-2024", CreatedAt: at})
	mustSession(t, s, ask.Session{ID: "ffff0000", Key: "TEAM-2024", CreatedAt: at})

	for i := 0; i < 50; i++ {
		got, err := s.FindAskSessionByKeyFold(context.Background(), "team-2024")
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != "ffff0000" {
			t.Fatalf("iteration %d: expected the higher ID on a tie, got %s", i, got.ID)
		}
	}
}

func TestCreateThreadUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := mustSession(t, s, ask.Session{Key: "k"})

	tests := []struct {
		name  string
		scope thread.Scope
	}{
		{"shared", thread.SharedScope(sess.ID)},
		{"individual", thread.UserScope(sess.ID, "u1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := s.CreateThread(ctx, tt.scope)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.CreateThread(ctx, tt.scope); !errors.Is(err, domain.ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
			found, err := s.FindThread(ctx, tt.scope)
			if err != nil {
				t.Fatal(err)
			}
			if found.ID != first.ID {
				t.Fatalf("expected %s, got %s", first.ID, found.ID)
			}
		})
	}

	if _, err := s.CreateThread(ctx, thread.Scope{AskSessionID: sess.ID}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for user-less individual scope, got %v", err)
	}
}

func TestCreateThreadConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := mustSession(t, s, ask.Session{Key: "k"})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateThread(ctx, thread.SharedScope(sess.ID))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, domain.ErrConflict):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || s.ThreadCount() != 1 {
		t.Fatalf("expected exactly one thread, got %d successes and %d threads", ok, s.ThreadCount())
	}
}

func TestMessageListing(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := mustSession(t, s, ask.Session{Key: "k"})
	thr, err := s.CreateThread(ctx, thread.SharedScope(sess.ID))
	if err != nil {
		t.Fatal(err)
	}

	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.AddMessage(message.Message{ID: "m2", AskSessionID: sess.ID, ConversationThreadID: &thr.ID, CreatedAt: t0.Add(time.Minute)})
	s.AddMessage(message.Message{ID: "m1", AskSessionID: sess.ID, CreatedAt: t0})
	s.AddMessage(message.Message{ID: "m3", AskSessionID: sess.ID, ConversationThreadID: &thr.ID, CreatedAt: t0.Add(time.Minute)})

	ids := func(msgs []message.Message) []string {
		var out []string
		for _, m := range msgs {
			out = append(out, m.ID)
		}
		return out
	}

	byThread, _ := s.ListThreadMessages(ctx, thr.ID)
	if got := ids(byThread); len(got) != 2 || got[0] != "m2" || got[1] != "m3" {
		t.Fatalf("thread messages = %v", got)
	}
	legacy, _ := s.ListLegacyMessages(ctx, sess.ID)
	if got := ids(legacy); len(got) != 1 || got[0] != "m1" {
		t.Fatalf("legacy messages = %v", got)
	}
	all, _ := s.ListSessionMessages(ctx, sess.ID)
	if got := ids(all); len(got) != 3 || got[0] != "m1" {
		t.Fatalf("session messages = %v", got)
	}
}

func TestCreateMessageRequiresSession(t *testing.T) {
	s := New()
	_, err := s.CreateMessage(context.Background(), &message.Message{AskSessionID: "missing", Content: "hi"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParticipantByInviteToken(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := mustSession(t, s, ask.Session{Key: "k"})
	p, err := s.AddParticipant(ask.Participant{AskSessionID: sess.ID, InviteToken: ptr("tok")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddParticipant(ask.Participant{AskSessionID: sess.ID, InviteToken: ptr("tok")}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate token conflict, got %v", err)
	}

	got, err := s.GetParticipantByInviteToken(ctx, "tok")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID {
		t.Fatalf("expected %s, got %s", p.ID, got.ID)
	}
	if _, err := s.GetParticipantByInviteToken(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
