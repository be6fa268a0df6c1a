// Package identity computes the display name shown for participants and
// message senders. Both rosters and message lists go through the same chain
// so a person is named identically wherever they appear.
package identity

import (
	"strconv"
	"strings"

	"github.com/Strob0t/askdesk/internal/domain/user"
)

// AgentName is the display name of every AI-authored message.
const AgentName = "Agent"

// SenderTypeAI marks messages produced by the facilitating agent.
const SenderTypeAI = "ai"

// ResolveDisplayName returns the first non-blank of: explicit, the user's
// full name, the user's first and last name, the user's email, and finally
// "Participant N" where N is fallbackIndex+1. The result is never empty.
func ResolveDisplayName(explicit string, u *user.User, fallbackIndex int) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	if u != nil {
		if name := strings.TrimSpace(u.FullName); name != "" {
			return name
		}
		if name := joinNonEmpty(u.FirstName, u.LastName); name != "" {
			return name
		}
		if email := strings.TrimSpace(u.Email); email != "" {
			return email
		}
	}
	return fallback(fallbackIndex)
}

// ResolveSenderName is ResolveDisplayName for messages: an explicit
// metadata name still wins, but AI messages are named AgentName without
// consulting the user record.
func ResolveSenderName(explicit, senderType string, u *user.User, fallbackIndex int) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	if senderType == SenderTypeAI {
		return AgentName
	}
	return ResolveDisplayName("", u, fallbackIndex)
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func fallback(index int) string {
	if index < 0 {
		index = 0
	}
	return "Participant " + strconv.Itoa(index+1)
}
