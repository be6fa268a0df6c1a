// Package thread defines conversation threads and decides whether a session
// uses one shared thread or one thread per user.
package thread

import "time"

// Thread groups the messages of one scope within an ASK session.
// UserID is nil exactly when the thread is shared.
type Thread struct {
	ID           string    `json:"id"`
	AskSessionID string    `json:"askSessionId"`
	UserID       *string   `json:"userId"`
	IsShared     bool      `json:"isShared"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Scope identifies the single thread a lookup or insert targets.
type Scope struct {
	AskSessionID string
	UserID       *string
	Shared       bool
}

// SharedScope is the session-wide scope.
func SharedScope(askSessionID string) Scope {
	return Scope{AskSessionID: askSessionID, Shared: true}
}

// UserScope is the per-user scope.
func UserScope(askSessionID, userID string) Scope {
	return Scope{AskSessionID: askSessionID, UserID: &userID}
}

// Matches reports whether t belongs to s.
func (s Scope) Matches(t *Thread) bool {
	if t == nil || t.AskSessionID != s.AskSessionID || t.IsShared != s.Shared {
		return false
	}
	if s.Shared {
		return t.UserID == nil
	}
	return t.UserID != nil && s.UserID != nil && *t.UserID == *s.UserID
}

// UserIDOrEmpty returns the scope user or "".
func (s Scope) UserIDOrEmpty() string {
	if s.UserID == nil {
		return ""
	}
	return *s.UserID
}
