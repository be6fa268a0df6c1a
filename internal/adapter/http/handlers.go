package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/askdesk/internal/adapter/ristretto"
	"github.com/Strob0t/askdesk/internal/adapter/ws"
	"github.com/Strob0t/askdesk/internal/domain/conversation"
	"github.com/Strob0t/askdesk/internal/domain/plan"
	"github.com/Strob0t/askdesk/internal/middleware"
	"github.com/Strob0t/askdesk/internal/port/database"
	"github.com/Strob0t/askdesk/internal/port/messagequeue"
	"github.com/Strob0t/askdesk/internal/service"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MB

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Context        *service.ContextService
	Catalog        *service.CatalogService
	Hub            *ws.Hub
	Store          database.Store
	Queue          messagequeue.Queue // nil when NATS is disabled
	CatalogL1      *ristretto.Cache   // optional; reported by /health
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

func (h *Handlers) bodyLimit() int64 {
	if h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

// contextResponse is the bootstrap payload of the chat front-end.
type contextResponse struct {
	Context       *conversation.Context `json:"context"`
	ParticipantID *string               `json:"participantId"`
}

// GetContext handles GET /api/v1/ask/{keyOrToken}/context
func (h *Handlers) GetContext(w http.ResponseWriter, r *http.Request) {
	cc, loc, err := h.Context.ResolveAndAssemble(r.Context(), urlParam(r, "keyOrToken"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err, "ask session not found")
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{Context: cc, ParticipantID: loc.ParticipantID()})
}

// voiceInit is the first frame sent to the voice agent.
type voiceInit struct {
	Context       *conversation.Context `json:"context"`
	ParticipantID *string               `json:"participantId"`
	ActiveStep    *plan.Step            `json:"activeStep"`
}

func newVoiceInit(cc *conversation.Context, loc *service.Located) voiceInit {
	return voiceInit{Context: cc, ParticipantID: loc.ParticipantID(), ActiveStep: cc.ConversationPlan.ActiveStep()}
}

// Voice handles GET /api/v1/ask/{keyOrToken}/voice
// Resolution errors are answered over plain HTTP before the upgrade.
func (h *Handlers) Voice(w http.ResponseWriter, r *http.Request) {
	keyOrToken := urlParam(r, "keyOrToken")
	requester := middleware.UserIDFromContext(r.Context())

	cc, loc, err := h.Context.ResolveAndAssemble(r.Context(), keyOrToken, requester)
	if err != nil {
		writeDomainError(w, r, err, "ask session not found")
		return
	}

	h.Hub.ServeVoice(w, r, newVoiceInit(cc, loc), func(ctx context.Context) (any, error) {
		cc, loc, err := h.Context.ResolveAndAssemble(ctx, keyOrToken, requester)
		if err != nil {
			return nil, err
		}
		return newVoiceInit(cc, loc), nil
	})
}

type postMessageRequest struct {
	Content     string  `json:"content"`
	SenderName  string  `json:"senderName"`
	MessageType string  `json:"messageType"`
	PlanStepID  *string `json:"planStepId"`
}

// PostMessage handles POST /api/v1/ask/{keyOrToken}/messages
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[postMessageRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	m, err := h.Context.Post(r.Context(), urlParam(r, "keyOrToken"), middleware.UserIDFromContext(r.Context()), service.PostRequest{
		Content:     req.Content,
		SenderName:  req.SenderName,
		MessageType: req.MessageType,
		PlanStepID:  req.PlanStepID,
	})
	if err != nil {
		writeDomainError(w, r, err, "ask session not found")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type adminTestRequest struct {
	UserID *string `json:"userId"`
}

type adminTestResponse struct {
	Context     *conversation.Context `json:"context"`
	Diagnostics service.Diagnostics   `json:"diagnostics"`
}

// AdminTest handles POST /api/v1/admin/ask/{keyOrToken}/test
// The body may name a user to impersonate; an empty body resolves anonymously.
func (h *Handlers) AdminTest(w http.ResponseWriter, r *http.Request) {
	req, ok := readOptionalJSON[adminTestRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}

	cc, loc, err := h.Context.ResolveAndAssemble(r.Context(), urlParam(r, "keyOrToken"), req.UserID)
	if err != nil {
		writeDomainError(w, r, err, "ask session not found")
		return
	}
	writeJSON(w, http.StatusOK, adminTestResponse{Context: cc, Diagnostics: service.Diagnose(cc, loc)})
}

// InvalidateCatalog handles POST /api/v1/admin/catalog/{kind}/{id}/invalidate
func (h *Handlers) InvalidateCatalog(w http.ResponseWriter, r *http.Request) {
	kind, id := urlParam(r, "kind"), urlParam(r, "id")

	var err error
	if h.Queue != nil {
		err = service.PublishCatalogInvalidate(r.Context(), h.Queue, h.Catalog, kind, id)
	} else {
		err = h.Catalog.Invalidate(r.Context(), kind, id)
	}
	if err != nil {
		writeDomainError(w, r, err, "catalog entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type healthResponse struct {
	Status        string `json:"status"`
	Storage       string `json:"storage"`
	Queue         string `json:"queue"`
	WSConnections int    `json:"ws_connections"`

	CatalogCache *ristretto.Stats `json:"catalog_cache,omitempty"`
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Storage: "ok", Queue: "disabled"}
	status := http.StatusOK
	if err := h.Store.Ping(ctx); err != nil {
		resp.Status, resp.Storage = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}
	if h.Queue != nil {
		resp.Queue = "connected"
		if !h.Queue.IsConnected() {
			resp.Queue = "disconnected"
			resp.Status = "degraded"
		}
	}
	if h.Hub != nil {
		resp.WSConnections = h.Hub.ConnectionCount()
	}
	if h.CatalogL1 != nil {
		st := h.CatalogL1.Stats()
		resp.CatalogCache = &st
	}
	writeJSON(w, status, resp)
}
