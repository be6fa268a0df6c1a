package thread

import (
	"testing"

	"github.com/Strob0t/askdesk/internal/domain/ask"
)

func mode(m ask.ConversationMode) *ask.ConversationMode { return &m }
func audience(a ask.AudienceScope) *ask.AudienceScope   { return &a }
func response(r ask.ResponseMode) *ask.ResponseMode     { return &r }

func TestClassifyConversationModes(t *testing.T) {
	tests := []struct {
		mode ask.ConversationMode
		want bool
	}{
		{ask.ModeIndividualParallel, false},
		{ask.ModeConsultant, false},
		{ask.ModeCollaborative, true},
		{ask.ModeGroupReporter, true},
		{"some_future_mode", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			d := Classify(Config{ConversationMode: mode(tt.mode)}, DefaultShared)
			if d.Shared != tt.want {
				t.Errorf("Classify(%q).Shared = %v, want %v", tt.mode, d.Shared, tt.want)
			}
			if d.Source != SourceMode {
				t.Errorf("Source = %s, want %s", d.Source, SourceMode)
			}
		})
	}
}

func TestClassifyBlankModeFallsThrough(t *testing.T) {
	d := Classify(Config{
		ConversationMode: mode(""),
		AudienceScope:    audience(ask.AudienceGroup),
		ResponseMode:     response(ask.ResponseCollective),
	}, DefaultShared)
	if !d.Shared || d.Source != SourceLegacy {
		t.Errorf("blank mode must defer to the legacy pair, got %+v", d)
	}
}

func TestClassifyModeOverridesLegacy(t *testing.T) {
	cfg := Config{
		ConversationMode: mode(ask.ModeIndividualParallel),
		AudienceScope:    audience(ask.AudienceGroup),
		ResponseMode:     response(ask.ResponseCollective),
	}
	if IsShared(cfg) {
		t.Error("individual_parallel must win over a shared legacy pair")
	}

	cfg = Config{
		ConversationMode: mode(ask.ModeCollaborative),
		AudienceScope:    audience(ask.AudienceIndividual),
		ResponseMode:     response(ask.ResponseIndividual),
	}
	if !IsShared(cfg) {
		t.Error("collaborative must win over an individual legacy pair")
	}
}

func TestClassifyLegacyPairs(t *testing.T) {
	tests := []struct {
		name     string
		audience *ask.AudienceScope
		response *ask.ResponseMode
		want     bool
	}{
		{"group collective", audience(ask.AudienceGroup), response(ask.ResponseCollective), true},
		{"group individual", audience(ask.AudienceGroup), response(ask.ResponseIndividual), false},
		{"individual collective", audience(ask.AudienceIndividual), response(ask.ResponseCollective), false},
		{"individual individual", audience(ask.AudienceIndividual), response(ask.ResponseIndividual), false},
		{"group only", audience(ask.AudienceGroup), nil, false},
		{"collective only", nil, response(ask.ResponseCollective), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(Config{AudienceScope: tt.audience, ResponseMode: tt.response}, true)
			if d.Shared != tt.want {
				t.Errorf("Shared = %v, want %v", d.Shared, tt.want)
			}
			if d.Source != SourceLegacy {
				t.Errorf("Source = %s, want %s", d.Source, SourceLegacy)
			}
		})
	}
}

func TestClassifyNoSignalUsesDefault(t *testing.T) {
	if IsShared(Config{}) != DefaultShared {
		t.Errorf("empty config must classify as DefaultShared (%v)", DefaultShared)
	}
	if DefaultShared {
		t.Error("documented default is individual")
	}

	d := Classify(Config{}, true)
	if !d.Shared || d.Source != SourceDefault {
		t.Errorf("override default: got %+v", d)
	}
}

func TestConfigOf(t *testing.T) {
	if got := ConfigOf(nil); got != (Config{}) {
		t.Errorf("ConfigOf(nil) = %+v", got)
	}
	s := &ask.Session{ConversationMode: mode(ask.ModeConsultant)}
	if IsShared(ConfigOf(s)) {
		t.Error("consultant sessions are individual")
	}
}

func TestScopeMatches(t *testing.T) {
	uid := "u-1"
	other := "u-2"
	shared := &Thread{ID: "t-1", AskSessionID: "s-1", IsShared: true}
	mine := &Thread{ID: "t-2", AskSessionID: "s-1", UserID: &uid}

	tests := []struct {
		name  string
		scope Scope
		t     *Thread
		want  bool
	}{
		{"shared matches shared", SharedScope("s-1"), shared, true},
		{"shared rejects user thread", SharedScope("s-1"), mine, false},
		{"user matches own", UserScope("s-1", uid), mine, true},
		{"user rejects other", UserScope("s-1", other), mine, false},
		{"other session", SharedScope("s-2"), shared, false},
		{"nil thread", SharedScope("s-1"), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Matches(tt.t); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
