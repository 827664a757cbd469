package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quillhub/quillhub/internal/domain"
	"github.com/quillhub/quillhub/internal/pkg/httputil"
	"github.com/quillhub/quillhub/internal/service/ledger"
	"github.com/quillhub/quillhub/internal/service/newsletter"
	"github.com/quillhub/quillhub/internal/service/registry"
)

// ActorSource resolves the acting user from a request. Implemented by
// auth.Manager; tests supply a fake.
type ActorSource interface {
	Actor(r *http.Request) domain.Actor
}

// DeletionTrail exposes recent audit entries so the 404 body for a
// deleted newsletter can show who removed it. Optional.
type DeletionTrail interface {
	RecentByNewsletter(ctx context.Context, newsletterID int64, kind domain.AuditKind, limit int) ([]domain.AuditEvent, error)
}

// Handlers holds the HTTP handlers for the newsletter API.
type Handlers struct {
	svc    *newsletter.Service
	actors ActorSource
	trail  DeletionTrail

	startTime time.Time
}

// NewHandlers creates the handler set. trail may be nil.
func NewHandlers(svc *newsletter.Service, actors ActorSource, trail DeletionTrail) *Handlers {
	return &Handlers{svc: svc, actors: actors, trail: trail, startTime: time.Now()}
}

// HealthCheck reports server liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}

func (h *Handlers) actor(r *http.Request) domain.Actor {
	if h.actors == nil {
		return domain.Actor{}
	}
	return h.actors.Actor(r)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, name, fallback string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		v = fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// respondServiceError maps service errors to HTTP statuses.
func (h *Handlers) respondServiceError(w http.ResponseWriter, r *http.Request, newsletterID int64, err error) {
	var verr *newsletter.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.JSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, newsletter.ErrInvalidPage):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, newsletter.ErrLoginRequired):
		httputil.Error(w, http.StatusUnauthorized, "login required")
	case errors.Is(err, newsletter.ErrActorBlocked),
		errors.Is(err, newsletter.ErrNotPublisher),
		errors.Is(err, newsletter.ErrUnauthorized):
		httputil.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, ledger.ErrUnknownNewsletter):
		h.respondNotFound(w, r, newsletterID)
	case errors.Is(err, ledger.ErrIssueNotFound),
		errors.Is(err, newsletter.ErrPageNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrDuplicateName),
		errors.Is(err, registry.ErrMainPageInUse):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, newsletter.ErrRateLimited):
		httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, newsletter.ErrStorage):
		httputil.Error(w, http.StatusBadGateway, "storage unavailable")
	default:
		httputil.InternalError(w, err)
	}
}

// respondNotFound writes the 404 body. When the newsletter was deleted
// the recent removal audit entries are included so readers can see what
// happened to it.
func (h *Handlers) respondNotFound(w http.ResponseWriter, r *http.Request, newsletterID int64) {
	body := httputil.ErrorResponse{Error: "newsletter not found"}
	if h.trail != nil && newsletterID > 0 {
		entries, err := h.trail.RecentByNewsletter(r.Context(), newsletterID, domain.AuditNewsletterRemoved, 5)
		if err == nil && len(entries) > 0 {
			body.Details = map[string]any{"deletion_log": entries}
		}
	}
	httputil.JSON(w, http.StatusNotFound, body)
}

type createNewsletterRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MainPageRef string `json:"main_page_ref"`
}

// CreateNewsletter handles POST /api/newsletters.
func (h *Handlers) CreateNewsletter(w http.ResponseWriter, r *http.Request) {
	var req createNewsletterRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	id, err := h.svc.Create(r.Context(), h.actor(r), req.Name, req.Description, req.MainPageRef)
	if err != nil {
		h.respondServiceError(w, r, 0, err)
		return
	}
	httputil.Created(w, map[string]int64{"id": id})
}

// ListNewsletters handles GET /api/newsletters.
func (h *Handlers) ListNewsletters(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", "50")
	offset := queryInt(r, "offset", "0")

	items, total, err := h.svc.Newsletters(r.Context(), limit, offset)
	if err != nil {
		h.respondServiceError(w, r, 0, err)
		return
	}
	httputil.OK(w, map[string]any{
		"newsletters": items,
		"total":       total,
	})
}

// ViewNewsletter handles GET /api/newsletters/{id}.
func (h *Handlers) ViewNewsletter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid newsletter id")
		return
	}

	view, err := h.svc.View(r.Context(), h.actor(r), id)
	if err != nil {
		h.respondServiceError(w, r, id, err)
		return
	}
	httputil.OK(w, view)
}

// DeleteNewsletter handles DELETE /api/newsletters/{id}.
func (h *Handlers) DeleteNewsletter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid newsletter id")
		return
	}

	if err := h.svc.Delete(r.Context(), h.actor(r), id); err != nil {
		h.respondServiceError(w, r, id, err)
		return
	}
	httputil.NoContent(w)
}

// Subscribe handles POST /api/newsletters/{id}/subscribe.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.toggleSubscription(w, r, true)
}

// Unsubscribe handles POST /api/newsletters/{id}/unsubscribe.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.toggleSubscription(w, r, false)
}

func (h *Handlers) toggleSubscription(w http.ResponseWriter, r *http.Request, subscribe bool) {
	id, ok := pathID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid newsletter id")
		return
	}

	var (
		changed bool
		err     error
	)
	if subscribe {
		changed, err = h.svc.Subscribe(r.Context(), h.actor(r), id)
	} else {
		changed, err = h.svc.Unsubscribe(r.Context(), h.actor(r), id)
	}
	if err != nil {
		h.respondServiceError(w, r, id, err)
		return
	}
	httputil.OK(w, map[string]bool{"changed": changed})
}

type announceRequest struct {
	PageRef string `json:"page_ref"`
	Summary string `json:"summary"`
}

// AnnounceIssue handles POST /api/newsletters/{id}/issues.
func (h *Handlers) AnnounceIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid newsletter id")
		return
	}
	var req announceRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.svc.Announce(r.Context(), h.actor(r), id, req.PageRef, req.Summary)
	if err != nil {
		h.respondServiceError(w, r, id, err)
		return
	}
	httputil.Created(w, res)
}

// ListIssues handles GET /api/newsletters/{id}/issues.
func (h *Handlers) ListIssues(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid newsletter id")
		return
	}

	issues, err := h.svc.RecentIssues(r.Context(), id, queryInt(r, "limit", "10"))
	if err != nil {
		h.respondServiceError(w, r, id, err)
		return
	}
	httputil.OK(w, map[string]any{"issues": issues})
}

// GetIssue handles GET /api/issues/{id}. Issues outlive their
// newsletter, so this succeeds for deleted newsletters too.
func (h *Handlers) GetIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid issue id")
		return
	}

	issue, err := h.svc.Issue(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, 0, err)
		return
	}
	httputil.OK(w, issue)
}

// ListSubscribers handles GET /api/newsletters/{id}/subscribers.
func (h *Handlers) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid newsletter id")
		return
	}

	subs, err := h.svc.Subscribers(r.Context(), h.actor(r), id, queryInt(r, "limit", "0"), queryInt(r, "offset", "0"))
	if err != nil {
		h.respondServiceError(w, r, id, err)
		return
	}
	httputil.OK(w, map[string]any{"subscribers": subs})
}

type publisherRequest struct {
	UserID string `json:"user_id"`
}

// AddPublisher handles POST /api/newsletters/{id}/publishers.
func (h *Handlers) AddPublisher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid newsletter id")
		return
	}
	var req publisherRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	changed, err := h.svc.ManagePublisher(r.Context(), h.actor(r), id, req.UserID, true)
	if err != nil {
		h.respondServiceError(w, r, id, err)
		return
	}
	httputil.OK(w, map[string]bool{"changed": changed})
}

// RemovePublisher handles DELETE /api/newsletters/{id}/publishers/{userID}.
func (h *Handlers) RemovePublisher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid newsletter id")
		return
	}
	userID := chi.URLParam(r, "userID")

	changed, err := h.svc.ManagePublisher(r.Context(), h.actor(r), id, userID, false)
	if err != nil {
		h.respondServiceError(w, r, id, err)
		return
	}
	httputil.OK(w, map[string]bool{"changed": changed})
}
