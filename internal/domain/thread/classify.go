package thread

import "github.com/Strob0t/askdesk/internal/domain/ask"

// DefaultShared is the classification of a session that carries neither a
// conversation mode nor any legacy audience/response field. Individual is the
// isolating choice: nobody sees another participant's answers unless the
// session was explicitly configured for sharing.
const DefaultShared = false

// Source names which generation of configuration produced a Decision.
type Source string

const (
	SourceMode    Source = "conversation_mode"
	SourceLegacy  Source = "legacy_audience_response"
	SourceDefault Source = "default"
)

// Config is the subset of session configuration the classifier reads.
type Config struct {
	ConversationMode *ask.ConversationMode
	AudienceScope    *ask.AudienceScope
	ResponseMode     *ask.ResponseMode
}

// ConfigOf extracts the classifier input from a session.
func ConfigOf(s *ask.Session) Config {
	if s == nil {
		return Config{}
	}
	return Config{
		ConversationMode: s.ConversationMode,
		AudienceScope:    s.AudienceScope,
		ResponseMode:     s.ResponseMode,
	}
}

// Decision is the outcome of classification together with the rule that
// produced it.
type Decision struct {
	Shared bool   `json:"shared"`
	Source Source `json:"source"`
}

// individualModes resolve to per-user threads; every other mode, including
// unknown future ones, is shared.
var individualModes = map[ask.ConversationMode]bool{
	ask.ModeIndividualParallel: true,
	ask.ModeConsultant:         true,
}

// Classify applies the precedence: conversation mode, then the legacy pair,
// then defaultShared. A blank conversation mode counts as absent.
func Classify(cfg Config, defaultShared bool) Decision {
	if cfg.ConversationMode != nil && *cfg.ConversationMode != "" {
		return Decision{Shared: !individualModes[*cfg.ConversationMode], Source: SourceMode}
	}
	if cfg.AudienceScope != nil || cfg.ResponseMode != nil {
		shared := cfg.AudienceScope != nil && *cfg.AudienceScope == ask.AudienceGroup &&
			cfg.ResponseMode != nil && *cfg.ResponseMode == ask.ResponseCollective
		return Decision{Shared: shared, Source: SourceLegacy}
	}
	return Decision{Shared: defaultShared, Source: SourceDefault}
}

// IsShared classifies cfg with DefaultShared as the no-signal fallback.
func IsShared(cfg Config) bool {
	return Classify(cfg, DefaultShared).Shared
}
