// Package handler exposes the application lifecycle endpoints.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hirelane/internal/application/models"
	"hirelane/internal/application/service"
	"hirelane/internal/transport/http/shared"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/requestcontext"
)

// Service is the application surface the handler needs.
type Service interface {
	Submit(ctx context.Context, cmd service.SubmitCommand) (*models.Application, error)
	UpdateStatus(ctx context.Context, appID id.ApplicationID, newStatus models.Status, actorRef id.AccountRef, notes, rejectionReason string) (*models.Application, error)
	Withdraw(ctx context.Context, appID id.ApplicationID, applicantRef, actorRef id.AccountRef) (*models.Application, error)
	SoftDelete(ctx context.Context, appID id.ApplicationID, actorRef id.AccountRef) error
	UploadDocument(ctx context.Context, content []byte, rawDocType string, ownerRef id.AccountRef) (string, error)
	PresignedURL(ctx context.Context, appID id.ApplicationID, rawDocType string, expiry time.Duration) (string, error)
	Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	ListByApplicant(ctx context.Context, applicantRef id.AccountRef) ([]*models.Application, error)
	ListByPosting(ctx context.Context, postingRef id.PostingID) ([]*models.Application, error)
}

// Handler serves the application routes.
type Handler struct {
	applications Service
	logger       *slog.Logger
}

// New creates an application Handler.
func New(applications Service, logger *slog.Logger) *Handler {
	return &Handler{applications: applications, logger: logger}
}

// Register attaches the application routes. Auth and the rest of the
// middleware chain are applied by the mounting router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Get("/", h.handleList)
		r.Get("/{applicationID}", h.handleGet)
		r.Post("/{applicationID}/status", h.handleUpdateStatus)
		r.Post("/{applicationID}/withdraw", h.handleWithdraw)
		r.Delete("/{applicationID}", h.handleDelete)
		r.Get("/{applicationID}/documents/{documentType}/url", h.handlePresignedURL)
	})
	r.Post("/documents", h.handleUploadDocument)
}

type submitRequest struct {
	ApplicantRef string `json:"applicant_ref"`
	PostingRef   string `json:"posting_ref"`
	Documents    struct {
		CoverLetterRef string `json:"cover_letter_ref"`
		ResumeRef      string `json:"resume_ref"`
		PortfolioRef   string `json:"portfolio_ref"`
	} `json:"documents"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	// The applicant defaults to the caller; staff may file on an
	// applicant's behalf by naming them.
	applicantRef := actor
	if req.ApplicantRef != "" {
		parsed, err := id.ParseAccountRef(req.ApplicantRef)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		applicantRef = parsed
	}

	postingRef, err := id.ParsePostingID(req.PostingRef)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	a, err := h.applications.Submit(ctx, service.SubmitCommand{
		ApplicantRef: applicantRef,
		PostingRef:   postingRef,
		SubmitterRef: actor,
		Documents: models.Documents{
			CoverLetterRef: req.Documents.CoverLetterRef,
			ResumeRef:      req.Documents.ResumeRef,
			PortfolioRef:   req.Documents.PortfolioRef,
		},
		ClientInfo: requestcontext.ClientInfo(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit application failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if raw := r.URL.Query().Get("posting_ref"); raw != "" {
		postingRef, err := id.ParsePostingID(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		apps, err := h.applications.ListByPosting(ctx, postingRef)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		writeApplicationList(w, apps)
		return
	}

	// Without a posting filter the list is the caller's own applications,
	// unless they name another applicant explicitly.
	applicantRef := requestcontext.ActorRef(ctx)
	if raw := r.URL.Query().Get("applicant_ref"); raw != "" {
		parsed, err := id.ParseAccountRef(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		applicantRef = parsed
	}
	if applicantRef.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	apps, err := h.applications.ListByApplicant(ctx, applicantRef)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	writeApplicationList(w, apps)
}

func writeApplicationList(w http.ResponseWriter, apps []*models.Application) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"applications": apps,
		"count":        len(apps),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	a, err := h.applications.Get(r.Context(), appID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, a)
}

type updateStatusRequest struct {
	Status          string `json:"status"`
	Notes           string `json:"notes"`
	RejectionReason string `json:"rejection_reason"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	newStatus, err := models.ParseStatus(req.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	a, err := h.applications.UpdateStatus(ctx, appID, newStatus, actor, req.Notes, req.RejectionReason)
	if err != nil {
		h.logger.WarnContext(ctx, "update application status failed",
			"request_id", requestcontext.RequestID(ctx),
			"application_id", appID,
			"new_status", newStatus,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	// Withdrawal is self-service: ownership is asserted by the caller's
	// own identity, never by a body field.
	a, err := h.applications.Withdraw(ctx, appID, actor, actor)
	if err != nil {
		h.logger.WarnContext(ctx, "withdraw application failed",
			"request_id", requestcontext.RequestID(ctx),
			"application_id", appID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.applications.SoftDelete(ctx, appID, actor); err != nil {
		h.logger.WarnContext(ctx, "delete application failed",
			"request_id", requestcontext.RequestID(ctx),
			"application_id", appID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePresignedURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var expiry time.Duration
	if raw := r.URL.Query().Get("expiry_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "expiry_minutes must be a positive integer"))
			return
		}
		expiry = time.Duration(minutes) * time.Minute
	}

	url, err := h.applications.PresignedURL(ctx, appID, chi.URLParam(r, "documentType"), expiry)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

type uploadDocumentRequest struct {
	DocumentType  string `json:"document_type"`
	ContentBase64 string `json:"content_base64"`
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req uploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "content_base64 is not valid base64"))
		return
	}

	ref, err := h.applications.UploadDocument(ctx, content, req.DocumentType, actor)
	if err != nil {
		h.logger.WarnContext(ctx, "upload document failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, map[string]string{"ref": ref})
}
