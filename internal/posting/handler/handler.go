// Package handler exposes the posting endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hirelane/internal/posting/models"
	"hirelane/internal/posting/service"
	"hirelane/internal/transport/http/shared"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/requestcontext"
)

// Service is the posting surface the handler needs.
type Service interface {
	Create(ctx context.Context, cmd service.CreateCommand) (*models.Posting, error)
	Get(ctx context.Context, postingID id.PostingID) (*models.Posting, error)
	List(ctx context.Context, status *models.Status) ([]*models.Posting, error)
	Close(ctx context.Context, postingID id.PostingID, actorRef id.AccountRef) (*models.Posting, error)
}

// Handler serves the posting routes.
type Handler struct {
	postings Service
	logger   *slog.Logger
}

// New creates a posting Handler.
func New(postings Service, logger *slog.Logger) *Handler {
	return &Handler{postings: postings, logger: logger}
}

// Register attaches the posting routes. Auth and the rest of the middleware
// chain are applied by the mounting router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/postings", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{postingID}", h.handleGet)
		r.Post("/{postingID}/close", h.handleClose)
	})
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.postings.Create(ctx, service.CreateCommand{
		CompanyRef:  actor,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create posting failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var status *models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseStatus(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		status = &parsed
	}

	postings, err := h.postings.List(ctx, status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"postings": postings,
		"count":    len(postings),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	postingID, err := id.ParsePostingID(chi.URLParam(r, "postingID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	p, err := h.postings.Get(r.Context(), postingID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	postingID, err := id.ParsePostingID(chi.URLParam(r, "postingID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	p, err := h.postings.Close(ctx, postingID, actor)
	if err != nil {
		h.logger.WarnContext(ctx, "close posting failed",
			"request_id", requestcontext.RequestID(ctx),
			"posting_id", postingID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, p)
}
