package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/askdesk/internal/adapter/otel"
	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/ask"
	"github.com/Strob0t/askdesk/internal/domain/challenge"
	"github.com/Strob0t/askdesk/internal/domain/conversation"
	"github.com/Strob0t/askdesk/internal/domain/identity"
	"github.com/Strob0t/askdesk/internal/domain/message"
	"github.com/Strob0t/askdesk/internal/domain/plan"
	"github.com/Strob0t/askdesk/internal/domain/project"
	"github.com/Strob0t/askdesk/internal/domain/thread"
	"github.com/Strob0t/askdesk/internal/domain/user"
	"github.com/Strob0t/askdesk/internal/logger"
	"github.com/Strob0t/askdesk/internal/port/database"
	"github.com/Strob0t/askdesk/internal/port/planprovider"
	"github.com/Strob0t/askdesk/internal/resilience"
)

// ContextService assembles the canonical conversation context shared by the
// chat stream, the voice initializer and the admin test harness.
type ContextService struct {
	store    database.Store
	locator  *LocatorService
	threads  *ThreadService
	messages *MessageService
	catalog  *CatalogService
	plans    planprovider.Provider
	breaker  *resilience.Breaker
	metrics  *cfotel.Metrics
}

// NewContextService creates a ContextService. plans may be nil, in which
// case contexts never carry a plan.
func NewContextService(
	store database.Store,
	locator *LocatorService,
	threads *ThreadService,
	messages *MessageService,
	catalog *CatalogService,
	plans planprovider.Provider,
) *ContextService {
	return &ContextService{
		store:    store,
		locator:  locator,
		threads:  threads,
		messages: messages,
		catalog:  catalog,
		plans:    plans,
	}
}

// SetBreaker guards plan lookups with b.
func (s *ContextService) SetBreaker(b *resilience.Breaker) { s.breaker = b }

// SetMetrics sets the metric instruments.
func (s *ContextService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Locator returns the session locator.
func (s *ContextService) Locator() *LocatorService { return s.locator }

// Messages returns the message service.
func (s *ContextService) Messages() *MessageService { return s.messages }

// Threads returns the thread service.
func (s *ContextService) Threads() *ThreadService { return s.threads }

// ResolveAndAssemble locates the session behind keyOrToken and assembles its
// context. When an invite token resolved and no requester was given, the
// token's participant becomes the requester.
func (s *ContextService) ResolveAndAssemble(ctx context.Context, keyOrToken string, requestingUserID *string) (*conversation.Context, *Located, error) {
	loc, err := s.locator.Resolve(ctx, keyOrToken)
	if err != nil {
		return nil, nil, err
	}

	cc, err := s.Assemble(ctx, loc.Session, requesterFor(loc, requestingUserID))
	if err != nil {
		return nil, nil, err
	}
	return cc, loc, nil
}

// requesterFor falls back to the invite token's user when no requester
// was given.
func requesterFor(loc *Located, requestingUserID *string) *string {
	requester := normalizeUserID(requestingUserID)
	if requester == nil && loc.Participant != nil {
		requester = normalizeUserID(loc.Participant.UserID)
	}
	return requester
}

// PostRequest is a participant message submitted through a key or token.
type PostRequest struct {
	Content     string
	SenderName  string
	MessageType string
	PlanStepID  *string
}

// Post locates the session behind keyOrToken, resolves the requester's
// thread and appends the message to it. Anonymous requesters cannot write
// to individual sessions: their message would belong to no one's thread.
func (s *ContextService) Post(ctx context.Context, keyOrToken string, requestingUserID *string, req PostRequest) (*message.Message, error) {
	loc, err := s.locator.Resolve(ctx, keyOrToken)
	if err != nil {
		return nil, err
	}
	requester := requesterFor(loc, requestingUserID)
	cfg := thread.ConfigOf(loc.Session)
	if requester == nil && !s.threads.Classify(cfg).Shared {
		return nil, fmt.Errorf("post message: individual session needs an identified participant: %w", domain.ErrValidation)
	}

	ctx = logger.WithFields(ctx, logger.Fields{AskSessionID: loc.Session.ID})
	thr, err := s.threads.Resolve(ctx, loc.Session.ID, requester, cfg)
	if err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	return s.messages.Append(ctx, AppendRequest{
		AskSessionID: loc.Session.ID,
		Thread:       thr,
		UserID:       requester,
		SenderType:   message.SenderUser,
		SenderName:   req.SenderName,
		Content:      req.Content,
		MessageType:  req.MessageType,
		PlanStepID:   req.PlanStepID,
	})
}

// Assemble builds the conversation context of session for the requester.
// Participants, thread and messages are required; project, challenge and
// plan degrade to nil when their lookups fail.
func (s *ContextService) Assemble(ctx context.Context, session *ask.Session, requestingUserID *string) (cc *conversation.Context, err error) {
	if session == nil {
		return nil, fmt.Errorf("assemble context: %w", domain.ErrNotFound)
	}
	start := time.Now()
	requester := normalizeUserID(requestingUserID)

	ctx = logger.WithFields(ctx, logger.Fields{AskSessionID: session.ID})
	ctx, span := cfotel.StartAssembleSpan(ctx, session.ID, requester == nil)
	defer func() { cfotel.EndSpan(span, err) }()

	participants, users, roster, err := s.loadParticipants(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	cfg := thread.ConfigOf(session)
	decision := s.threads.Classify(cfg)
	thr, err := s.threads.Resolve(ctx, session.ID, requester, cfg)
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}
	if thr != nil {
		ctx = logger.WithFields(ctx, logger.Fields{ThreadID: thr.ID})
	}

	summaries, users, err := s.messages.LoadWithRoster(ctx, session.ID, thr, users, roster)
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}

	proj, chal, pl := s.enrich(ctx, session, thr)

	cc = &conversation.Context{
		AskSession:         *session,
		Participants:       participants,
		Messages:           summaries,
		Project:            proj,
		Challenge:          chal,
		ConversationPlan:   pl,
		ConversationThread: thr,
		UsersByID:          users,
		Classification:     decision,
	}

	s.metrics.ContextAssembled(ctx, string(decision.Source), time.Since(start).Seconds())
	slog.DebugContext(ctx, "context assembled",
		"messages", len(summaries), "participants", len(participants), "shared", decision.Shared)
	return cc, nil
}

// loadParticipants returns participant summaries, the users they reference
// (one batched lookup) and each user's roster position.
func (s *ContextService) loadParticipants(ctx context.Context, askSessionID string) ([]ask.ParticipantSummary, user.Index, map[string]int, error) {
	participants, err := s.store.ListParticipants(ctx, askSessionID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("assemble context: participants: %w", err)
	}

	users := user.Index{}
	roster := make(map[string]int, len(participants))
	var ids []string
	for i := range participants {
		if uid := participants[i].UserID; uid != nil && *uid != "" {
			if _, seen := roster[*uid]; !seen {
				roster[*uid] = i
				ids = append(ids, *uid)
			}
		}
	}
	if len(ids) > 0 {
		fetched, err := s.store.ListUsersByIDs(ctx, ids)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("assemble context: participant users: %w", err)
		}
		for _, u := range fetched {
			users[u.ID] = u
		}
	}

	out := make([]ask.ParticipantSummary, 0, len(participants))
	for i := range participants {
		p := &participants[i]
		u := users.Lookup(p.UserID)
		explicit := ""
		if p.ParticipantName != nil {
			explicit = *p.ParticipantName
		}
		var desc *string
		if u != nil && u.Description != "" {
			desc = &u.Description
		}
		out = append(out, ask.ParticipantSummary{
			ID:             p.ID,
			Name:           identity.ResolveDisplayName(explicit, u, i),
			Role:           p.Role,
			Description:    desc,
			IsSpokesperson: p.IsSpokesperson,
			UserID:         p.UserID,
		})
	}
	return out, users, roster, nil
}

// enrich fetches project, challenge and plan concurrently. Every failure is
// logged and leaves the field nil.
func (s *ContextService) enrich(ctx context.Context, session *ask.Session, thr *thread.Thread) (*project.Project, *challenge.Challenge, *plan.Plan) {
	var (
		proj *project.Project
		chal *challenge.Challenge
		pl   *plan.Plan
		g    errgroup.Group
	)

	if id := session.ProjectID; id != nil && *id != "" {
		g.Go(func() error {
			p, err := s.catalog.Project(ctx, *id)
			s.degrade(ctx, KindProject, *id, err)
			if err == nil {
				proj = p
			}
			return nil
		})
	}
	if id := session.ChallengeID; id != nil && *id != "" {
		g.Go(func() error {
			c, err := s.catalog.Challenge(ctx, *id)
			s.degrade(ctx, KindChallenge, *id, err)
			if err == nil {
				chal = c
			}
			return nil
		})
	}
	if thr != nil && s.plans != nil {
		g.Go(func() error {
			p, err := s.planFor(ctx, thr.ID)
			s.degrade(ctx, "plan", thr.ID, err)
			if err == nil {
				pl = p
			}
			return nil
		})
	}
	_ = g.Wait()
	return proj, chal, pl
}

func (s *ContextService) planFor(ctx context.Context, threadID string) (*plan.Plan, error) {
	if s.breaker == nil {
		return s.plans.PlanForThread(ctx, threadID)
	}
	var p *plan.Plan
	err := s.breaker.Execute(func() error {
		var err error
		p, err = s.plans.PlanForThread(ctx, threadID)
		return err
	})
	return p, err
}

// degrade logs a failed enrichment lookup. Absence is expected and quiet.
func (s *ContextService) degrade(ctx context.Context, kind, id string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		slog.DebugContext(ctx, "enrichment absent", "kind", kind, "id", id)
	default:
		s.metrics.EnrichmentFailed(ctx, kind)
		slog.WarnContext(ctx, "enrichment failed", "kind", kind, "id", id, "error", err)
	}
}

// Diagnostics summarizes how a context was resolved, for the admin harness.
type Diagnostics struct {
	ClassificationSource thread.Source  `json:"classificationSource"`
	Shared               bool           `json:"shared"`
	ThreadID             *string        `json:"threadId"`
	ParticipantCount     int            `json:"participantCount"`
	MessageCount         int            `json:"messageCount"`
	MessagesBySender     map[string]int `json:"messagesBySender"`
	PlanLoaded           bool           `json:"planLoaded"`
	ActiveStep           *string        `json:"activeStep"`
	ResolvedParticipant  *string        `json:"resolvedParticipantId"`
}

// Diagnose derives Diagnostics from an assembled context.
func Diagnose(cc *conversation.Context, loc *Located) Diagnostics {
	d := Diagnostics{
		ClassificationSource: cc.Classification.Source,
		Shared:               cc.Classification.Shared,
		ParticipantCount:     len(cc.Participants),
		MessageCount:         len(cc.Messages),
		MessagesBySender:     make(map[string]int),
		PlanLoaded:           cc.ConversationPlan != nil,
		ResolvedParticipant:  loc.ParticipantID(),
	}
	if id := cc.ThreadID(); id != "" {
		d.ThreadID = &id
	}
	for _, m := range cc.Messages {
		d.MessagesBySender[m.SenderName]++
	}
	if step := cc.ConversationPlan.ActiveStep(); step != nil {
		d.ActiveStep = &step.StepIdentifier
	}
	return d
}
