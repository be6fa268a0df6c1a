// Package ask defines ASK sessions and their participants.
package ask

import "time"

// ConversationMode is the current-generation setting that decides how a
// session's conversation is grouped. Unknown values are carried verbatim.
type ConversationMode string

const (
	ModeIndividualParallel ConversationMode = "individual_parallel"
	ModeCollaborative      ConversationMode = "collaborative"
	ModeGroupReporter      ConversationMode = "group_reporter"
	ModeConsultant         ConversationMode = "consultant"
)

// AudienceScope is a legacy field: who the session addresses.
type AudienceScope string

const (
	AudienceIndividual AudienceScope = "individual"
	AudienceGroup      AudienceScope = "group"
)

// ResponseMode is a legacy field: whether answers are given per person or collectively.
type ResponseMode string

const (
	ResponseIndividual ResponseMode = "individual"
	ResponseCollective ResponseMode = "collective"
)

// Session is one configured ASK session, addressed by its public key.
// Nil pointer fields were NULL in storage.
type Session struct {
	ID               string            `json:"id"`
	Key              string            `json:"key"`
	Name             string            `json:"name"`
	Question         string            `json:"question,omitempty"`
	ConversationMode *ConversationMode `json:"conversationMode"`
	AudienceScope    *AudienceScope    `json:"audienceScope"`
	ResponseMode     *ResponseMode     `json:"responseMode"`
	ProjectID        *string           `json:"projectId"`
	ChallengeID      *string           `json:"challengeId"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// Participant is a person attached to a session, optionally linked to a user.
type Participant struct {
	ID              string     `json:"id"`
	AskSessionID    string     `json:"askSessionId"`
	ParticipantName *string    `json:"participantName"`
	Role            *string    `json:"role"`
	IsSpokesperson  bool       `json:"isSpokesperson"`
	UserID          *string    `json:"userId"`
	InviteToken     *string    `json:"-"`
	LastActiveAt    *time.Time `json:"lastActiveAt"`
	JoinedAt        time.Time  `json:"joinedAt"`
}

// ParticipantSummary is the canonical roster entry exposed to every caller.
type ParticipantSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Role           *string `json:"role"`
	Description    *string `json:"description"`
	IsSpokesperson bool    `json:"isSpokesperson"`
	UserID         *string `json:"userId"`
}
