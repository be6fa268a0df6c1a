// Package message defines stored conversation messages and the canonical
// summary every front-end receives.
package message

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/Strob0t/askdesk/internal/domain/identity"
	"github.com/Strob0t/askdesk/internal/domain/user"
)

// Sender types.
const (
	SenderUser   = "user"
	SenderAI     = identity.SenderTypeAI
	SenderSystem = "system"
)

// TypeText is the default message type.
const TypeText = "text"

// MetadataSenderName is the metadata key carrying an explicit sender name.
const MetadataSenderName = "senderName"

// Message is one stored utterance. A nil ConversationThreadID marks a row
// written before threading existed.
type Message struct {
	ID                   string         `json:"id"`
	AskSessionID         string         `json:"askSessionId"`
	ConversationThreadID *string        `json:"conversationThreadId"`
	UserID               *string        `json:"userId"`
	SenderType           string         `json:"senderType"`
	Content              string         `json:"content"`
	MessageType          string         `json:"messageType"`
	Metadata             map[string]any `json:"metadata"`
	CreatedAt            time.Time      `json:"createdAt"`
	PlanStepID           *string        `json:"planStepId"`
}

// ExplicitSenderName returns metadata.senderName when it is a string.
func (m *Message) ExplicitSenderName() string {
	if m.Metadata == nil {
		return ""
	}
	name, _ := m.Metadata[MetadataSenderName].(string)
	return name
}

// Summary is the only message shape exposed to callers. PlanStepID is always
// serialized, as null when the message is not tied to a plan step.
type Summary struct {
	ID         string    `json:"id"`
	SenderType string    `json:"senderType"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	PlanStepID *string   `json:"planStepId"`
}

// Merge concatenates the given batches in order, drops repeated IDs (first
// occurrence wins) and stable-sorts ascending by CreatedAt. Rows without a
// timestamp compare as the zero time, so they lead and keep their fetch order.
func Merge(batches ...[]Message) []Message {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	seen := make(map[string]struct{}, total)
	merged := make([]Message, 0, total)
	for _, b := range batches {
		for i := range b {
			if _, dup := seen[b[i].ID]; dup {
				continue
			}
			seen[b[i].ID] = struct{}{}
			merged = append(merged, b[i])
		}
	}
	slices.SortStableFunc(merged, func(a, b Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return merged
}

// SenderUserIDs returns the distinct non-empty user IDs referenced by msgs in
// first-seen order.
func SenderUserIDs(msgs []Message) []string {
	seen := make(map[string]struct{})
	var ids []string
	for i := range msgs {
		id := msgs[i].UserID
		if id == nil || strings.TrimSpace(*id) == "" {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	return ids
}

// Summarize projects msgs into summaries. rosterIndex maps a user ID to the
// sender's position in the participant roster so "Participant N" fallbacks
// agree with the roster; senders outside the roster use their message index.
func Summarize(msgs []Message, users user.Index, rosterIndex map[string]int) []Summary {
	out := make([]Summary, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		idx := i
		if m.UserID != nil {
			if pos, ok := rosterIndex[*m.UserID]; ok {
				idx = pos
			}
		}
		out = append(out, Summary{
			ID:         m.ID,
			SenderType: cmp.Or(m.SenderType, SenderUser),
			SenderName: identity.ResolveSenderName(m.ExplicitSenderName(), m.SenderType, users.Lookup(m.UserID), idx),
			Content:    m.Content,
			Timestamp:  m.CreatedAt,
			PlanStepID: m.PlanStepID,
		})
	}
	return out
}
