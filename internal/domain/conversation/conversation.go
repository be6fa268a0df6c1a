// Package conversation defines the assembled conversation context handed to
// the chat stream, the voice agent and the admin test harness.
package conversation

import (
	"github.com/Strob0t/askdesk/internal/domain/ask"
	"github.com/Strob0t/askdesk/internal/domain/challenge"
	"github.com/Strob0t/askdesk/internal/domain/message"
	"github.com/Strob0t/askdesk/internal/domain/plan"
	"github.com/Strob0t/askdesk/internal/domain/project"
	"github.com/Strob0t/askdesk/internal/domain/thread"
	"github.com/Strob0t/askdesk/internal/domain/user"
)

// Context is a snapshot valid for a single resolution call. Callers must not
// mutate it or cache it across session changes.
type Context struct {
	AskSession         ask.Session              `json:"askSession"`
	Participants       []ask.ParticipantSummary `json:"participants"`
	Messages           []message.Summary        `json:"messages"`
	Project            *project.Project         `json:"project"`
	Challenge          *challenge.Challenge     `json:"challenge"`
	ConversationPlan   *plan.Plan               `json:"conversationPlan"`
	ConversationThread *thread.Thread           `json:"conversationThread"`
	UsersByID          user.Index               `json:"usersById"`
	Classification     thread.Decision          `json:"classification"`
}

// ThreadID returns the resolved thread's ID, or "" when messages were
// loaded for the whole session.
func (c *Context) ThreadID() string {
	if c == nil || c.ConversationThread == nil {
		return ""
	}
	return c.ConversationThread.ID
}

// LastMessage returns the most recent message summary, or nil.
func (c *Context) LastMessage() *message.Summary {
	if c == nil || len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}
