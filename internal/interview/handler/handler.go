// Package handler exposes the interview lifecycle endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hirelane/internal/interview/models"
	"hirelane/internal/interview/service"
	"hirelane/internal/transport/http/shared"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/requestcontext"
)

// Service is the interview surface the handler needs.
type Service interface {
	Schedule(ctx context.Context, cmd service.ScheduleCommand) (*models.Interview, error)
	Update(ctx context.Context, interviewID id.InterviewID, patch models.UpdatePatch, actorRef id.AccountRef) (*models.Interview, error)
	Cancel(ctx context.Context, interviewID id.InterviewID, actorRef id.AccountRef) (*models.Interview, error)
	Complete(ctx context.Context, interviewID id.InterviewID, actorRef id.AccountRef) (*models.Interview, error)
	NoShow(ctx context.Context, interviewID id.InterviewID, actorRef id.AccountRef) (*models.Interview, error)
	AddFeedback(ctx context.Context, interviewID id.InterviewID, feedback string, rating int, actorRef id.AccountRef) (*models.Interview, error)
	Get(ctx context.Context, interviewID id.InterviewID) (*models.Interview, error)
	ListByApplication(ctx context.Context, applicationRef id.ApplicationID) ([]*models.Interview, error)
}

// Handler serves the interview routes.
type Handler struct {
	interviews Service
	logger     *slog.Logger
}

// New creates an interview Handler.
func New(interviews Service, logger *slog.Logger) *Handler {
	return &Handler{interviews: interviews, logger: logger}
}

// Register attaches the interview routes. Auth and the rest of the middleware
// chain are applied by the mounting router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", h.handleSchedule)
		r.Get("/", h.handleList)
		r.Get("/{interviewID}", h.handleGet)
		r.Patch("/{interviewID}", h.handleUpdate)
		r.Post("/{interviewID}/cancel", h.handleCancel)
		r.Post("/{interviewID}/complete", h.handleComplete)
		r.Post("/{interviewID}/no-show", h.handleNoShow)
		r.Post("/{interviewID}/feedback", h.handleFeedback)
	})
}

type scheduleRequest struct {
	ApplicationRef  string    `json:"application_ref"`
	Type            string    `json:"type"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Location        string    `json:"location"`
	MeetingLink     string    `json:"meeting_link"`
	InterviewerRef  string    `json:"interviewer_ref"`
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	applicationRef, err := id.ParseApplicationID(req.ApplicationRef)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	itype, err := models.ParseType(req.Type)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var interviewerRef *id.AccountRef
	if req.InterviewerRef != "" {
		parsed, err := id.ParseAccountRef(req.InterviewerRef)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		interviewerRef = &parsed
	}

	iv, err := h.interviews.Schedule(ctx, service.ScheduleCommand{
		ApplicationRef:  applicationRef,
		Type:            itype,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		MeetingLink:     req.MeetingLink,
		InterviewerRef:  interviewerRef,
		ActorRef:        actor,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "schedule interview failed",
			"request_id", requestcontext.RequestID(ctx),
			"application_ref", req.ApplicationRef,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, iv)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("application_ref")
	if raw == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "application_ref query parameter is required"))
		return
	}
	applicationRef, err := id.ParseApplicationID(raw)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	interviews, err := h.interviews.ListByApplication(r.Context(), applicationRef)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"interviews": interviews,
		"count":      len(interviews),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	interviewID, err := id.ParseInterviewID(chi.URLParam(r, "interviewID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	iv, err := h.interviews.Get(r.Context(), interviewID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, iv)
}

// updateRequest uses pointers so absent fields stay untouched.
type updateRequest struct {
	Type            *string    `json:"type"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	Location        *string    `json:"location"`
	MeetingLink     *string    `json:"meeting_link"`
	InterviewerRef  *string    `json:"interviewer_ref"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	interviewID, err := id.ParseInterviewID(chi.URLParam(r, "interviewID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	patch := models.UpdatePatch{
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		MeetingLink:     req.MeetingLink,
	}
	if req.Type != nil {
		itype, err := models.ParseType(*req.Type)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		patch.Type = &itype
	}
	if req.InterviewerRef != nil {
		parsed, err := id.ParseAccountRef(*req.InterviewerRef)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		patch.InterviewerRef = &parsed
	}

	iv, err := h.interviews.Update(ctx, interviewID, patch, actor)
	if err != nil {
		h.logger.WarnContext(ctx, "update interview failed",
			"request_id", requestcontext.RequestID(ctx),
			"interview_id", interviewID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, iv)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleOutcome(w, r, "cancel interview failed", h.interviews.Cancel)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.handleOutcome(w, r, "complete interview failed", h.interviews.Complete)
}

func (h *Handler) handleNoShow(w http.ResponseWriter, r *http.Request) {
	h.handleOutcome(w, r, "mark interview no-show failed", h.interviews.NoShow)
}

func (h *Handler) handleOutcome(w http.ResponseWriter, r *http.Request, failMsg string, op func(ctx context.Context, interviewID id.InterviewID, actorRef id.AccountRef) (*models.Interview, error)) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	interviewID, err := id.ParseInterviewID(chi.URLParam(r, "interviewID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	iv, err := op(ctx, interviewID, actor)
	if err != nil {
		h.logger.WarnContext(ctx, failMsg,
			"request_id", requestcontext.RequestID(ctx),
			"interview_id", interviewID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, iv)
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
	Rating   int    `json:"rating"`
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.ActorRef(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	interviewID, err := id.ParseInterviewID(chi.URLParam(r, "interviewID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	iv, err := h.interviews.AddFeedback(ctx, interviewID, req.Feedback, req.Rating, actor)
	if err != nil {
		h.logger.WarnContext(ctx, "record interview feedback failed",
			"request_id", requestcontext.RequestID(ctx),
			"interview_id", interviewID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, iv)
}
