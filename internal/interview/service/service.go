// Package service implements the interview lifecycle and its coupling to the
// parent application: scheduling moves the application to INTERVIEW_SCHEDULED,
// completion to INTERVIEWED, a no-show rejects it. Cancellation leaves the
// application alone.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	appmodels "hirelane/internal/application/models"
	"hirelane/internal/interview/metrics"
	"hirelane/internal/interview/models"
	"hirelane/internal/outbox"
	"hirelane/internal/registry"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/platform/sentinel"
	"hirelane/pkg/platform/tx"
	"hirelane/pkg/requestcontext"
)

// noShowRejectionReason is written onto the application when the candidate
// does not appear.
const noShowRejectionReason = "No-show for interview"

// InterviewStore is the persistence contract the service needs.
type InterviewStore interface {
	Create(ctx context.Context, iv *models.Interview) error
	FindByID(ctx context.Context, interviewID id.InterviewID) (*models.Interview, error)
	Execute(ctx context.Context, interviewID id.InterviewID, validate func(*models.Interview) error, apply func(*models.Interview)) (*models.Interview, error)
	ListByApplication(ctx context.Context, applicationRef id.ApplicationID) ([]*models.Interview, error)
}

// ApplicationUpdater moves the parent application when an interview outcome
// demands it. The application service satisfies it; its transaction joins the
// ambient one, so both aggregates commit or roll back together.
type ApplicationUpdater interface {
	UpdateStatus(ctx context.Context, appID id.ApplicationID, newStatus appmodels.Status, actorRef id.AccountRef, notes, rejectionReason string) (*appmodels.Application, error)
}

// ScheduleCommand carries the fields for a new interview.
type ScheduleCommand struct {
	ApplicationRef  id.ApplicationID
	Type            models.Type
	ScheduledAt     time.Time
	DurationMinutes int
	Location        string
	MeetingLink     string
	InterviewerRef  *id.AccountRef
	ActorRef        id.AccountRef
}

// Service owns the interview lifecycle.
type Service struct {
	interviews   InterviewStore
	applications ApplicationUpdater
	registry     registry.Existence
	outbox       outbox.Store
	runner       tx.Runner
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(interviews InterviewStore, applications ApplicationUpdater, reg registry.Existence, outboxStore outbox.Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		interviews:   interviews,
		applications: applications,
		registry:     reg,
		outbox:       outboxStore,
		runner:       runner,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule creates a SCHEDULED interview and moves the application to
// INTERVIEW_SCHEDULED in the same transaction. The application moves first:
// an application that cannot be scheduled leaves no interview behind.
func (s *Service) Schedule(ctx context.Context, cmd ScheduleCommand) (*models.Interview, error) {
	ok, err := s.registry.Exists(ctx, registry.EntityApplication, cmd.ApplicationRef.String())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeReferenceNotFound, "application %s does not exist", cmd.ApplicationRef)
	}

	if cmd.InterviewerRef != nil {
		ok, err := s.registry.Exists(ctx, registry.EntityStaff, cmd.InterviewerRef.String())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeReferenceNotFound, "interviewer %s does not exist", cmd.InterviewerRef)
		}
	}

	iv, err := models.NewInterview(
		id.NewInterviewID(),
		cmd.ApplicationRef,
		cmd.Type,
		cmd.ScheduledAt,
		cmd.DurationMinutes,
		cmd.Location,
		cmd.MeetingLink,
		cmd.InterviewerRef,
		requestcontext.Now(ctx),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.applications.UpdateStatus(ctx, cmd.ApplicationRef, appmodels.StatusInterviewScheduled, cmd.ActorRef, "", ""); err != nil {
			return err
		}
		if err := s.interviews.Create(ctx, iv); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create interview")
		}
		return s.appendEvent(ctx, iv.ID.String(), outbox.TypeInterviewScheduled, interviewScheduled{
			InterviewID:    iv.ID.String(),
			ApplicationRef: iv.ApplicationRef.String(),
			Type:           iv.Type.String(),
			ScheduledAt:    iv.ScheduledAt,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "interview scheduled",
		"interview_id", iv.ID,
		"application_ref", iv.ApplicationRef,
		"type", iv.Type,
		"scheduled_at", iv.ScheduledAt,
	)
	s.incrementScheduled()
	return iv, nil
}

// Update reschedules or edits a still-SCHEDULED interview. It never touches
// the application and emits no event.
func (s *Service) Update(ctx context.Context, interviewID id.InterviewID, patch models.UpdatePatch, actorRef id.AccountRef) (*models.Interview, error) {
	if patch.InterviewerRef != nil {
		ok, err := s.registry.Exists(ctx, registry.EntityStaff, patch.InterviewerRef.String())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeReferenceNotFound, "interviewer %s does not exist", patch.InterviewerRef)
		}
	}

	now := requestcontext.Now(ctx)
	updated, err := s.interviews.Execute(ctx, interviewID,
		func(iv *models.Interview) error {
			if err := iv.CanMutate(); err != nil {
				return err
			}
			return iv.ValidatePatch(patch, now)
		},
		func(iv *models.Interview) {
			iv.ApplyPatch(patch, actorRef, now)
		},
	)
	if err != nil {
		return nil, s.mutationErr(err, "failed to update interview")
	}

	s.logger.InfoContext(ctx, "interview updated",
		"interview_id", updated.ID,
		"scheduled_at", updated.ScheduledAt,
	)
	s.incrementRescheduled()
	return updated, nil
}

// Cancel tombstones a SCHEDULED interview. The application keeps its status;
// staff reroute it by hand when the interview will not be replaced.
func (s *Service) Cancel(ctx context.Context, interviewID id.InterviewID, actorRef id.AccountRef) (*models.Interview, error) {
	var updated *models.Interview
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		iv, err := s.interviews.Execute(ctx, interviewID,
			func(iv *models.Interview) error { return iv.CanMutate() },
			func(iv *models.Interview) {
				iv.ApplyCancelled(actorRef, requestcontext.Now(ctx))
			},
		)
		if err != nil {
			return s.mutationErr(err, "failed to cancel interview")
		}
		updated = iv

		return s.appendEvent(ctx, iv.ID.String(), outbox.TypeInterviewStatusChanged, interviewStatusChanged{
			InterviewID:    iv.ID.String(),
			ApplicationRef: iv.ApplicationRef.String(),
			OldStatus:      models.StatusScheduled.String(),
			NewStatus:      models.StatusCancelled.String(),
			ActorRef:       actorRef.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "interview cancelled",
		"interview_id", updated.ID,
		"application_ref", updated.ApplicationRef,
	)
	s.incrementOutcome(models.StatusCancelled.String())
	return updated, nil
}

// Complete records that the interview took place and moves the application
// to INTERVIEWED in the same transaction.
func (s *Service) Complete(ctx context.Context, interviewID id.InterviewID, actorRef id.AccountRef) (*models.Interview, error) {
	updated, err := s.finish(ctx, interviewID, actorRef,
		appmodels.StatusInterviewed, "",
		models.StatusCompleted,
		func(iv *models.Interview, now time.Time) { iv.ApplyCompleted(actorRef, now) },
	)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "interview completed",
		"interview_id", updated.ID,
		"application_ref", updated.ApplicationRef,
	)
	s.incrementOutcome(models.StatusCompleted.String())
	return updated, nil
}

// NoShow records that the candidate did not appear and rejects the
// application in the same transaction.
func (s *Service) NoShow(ctx context.Context, interviewID id.InterviewID, actorRef id.AccountRef) (*models.Interview, error) {
	updated, err := s.finish(ctx, interviewID, actorRef,
		appmodels.StatusRejected, noShowRejectionReason,
		models.StatusNoShow,
		func(iv *models.Interview, now time.Time) { iv.ApplyNoShow(actorRef, now) },
	)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "interview marked as no-show",
		"interview_id", updated.ID,
		"application_ref", updated.ApplicationRef,
	)
	s.incrementOutcome(models.StatusNoShow.String())
	return updated, nil
}

// finish drives both outcome paths. The interview gate is checked before the
// application moves, so an ineligible interview never touches the
// application; Execute re-validates under the row lock.
func (s *Service) finish(ctx context.Context, interviewID id.InterviewID, actorRef id.AccountRef, appStatus appmodels.Status, rejectionReason string, newStatus models.Status, apply func(*models.Interview, time.Time)) (*models.Interview, error) {
	var updated *models.Interview
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.interviews.FindByID(ctx, interviewID)
		if err != nil {
			return s.mutationErr(err, "failed to load interview")
		}
		if err := current.CanMutate(); err != nil {
			return err
		}

		if _, err := s.applications.UpdateStatus(ctx, current.ApplicationRef, appStatus, actorRef, "", rejectionReason); err != nil {
			return err
		}

		iv, err := s.interviews.Execute(ctx, interviewID,
			func(iv *models.Interview) error { return iv.CanMutate() },
			func(iv *models.Interview) { apply(iv, requestcontext.Now(ctx)) },
		)
		if err != nil {
			return s.mutationErr(err, "failed to record interview outcome")
		}
		updated = iv

		return s.appendEvent(ctx, iv.ID.String(), outbox.TypeInterviewStatusChanged, interviewStatusChanged{
			InterviewID:    iv.ID.String(),
			ApplicationRef: iv.ApplicationRef.String(),
			OldStatus:      models.StatusScheduled.String(),
			NewStatus:      newStatus.String(),
			ActorRef:       actorRef.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddFeedback records the interviewer's verdict on a completed interview.
func (s *Service) AddFeedback(ctx context.Context, interviewID id.InterviewID, feedback string, rating int, actorRef id.AccountRef) (*models.Interview, error) {
	updated, err := s.interviews.Execute(ctx, interviewID,
		func(iv *models.Interview) error { return iv.CanAddFeedback(feedback, rating) },
		func(iv *models.Interview) {
			iv.ApplyFeedback(feedback, rating, actorRef, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		return nil, s.mutationErr(err, "failed to record feedback")
	}

	s.logger.InfoContext(ctx, "interview feedback recorded",
		"interview_id", updated.ID,
		"rating", updated.Rating,
	)
	s.incrementFeedbackRecorded()
	return updated, nil
}

// Get returns one live interview.
func (s *Service) Get(ctx context.Context, interviewID id.InterviewID) (*models.Interview, error) {
	iv, err := s.interviews.FindByID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "interview not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load interview")
	}
	return iv, nil
}

// ListByApplication returns an application's live interviews, soonest first.
func (s *Service) ListByApplication(ctx context.Context, applicationRef id.ApplicationID) ([]*models.Interview, error) {
	out, err := s.interviews.ListByApplication(ctx, applicationRef)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list interviews")
	}
	return out, nil
}

// mutationErr translates store sentinels, passes domain errors through, and
// wraps the rest as internal.
func (s *Service) mutationErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "interview not found")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) appendEvent(ctx context.Context, key, eventType string, payload any) error {
	e, err := outbox.NewEvent(key, eventType, payload, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.outbox.Append(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append outbox event")
	}
	return nil
}

// Outbound event payloads.
type interviewScheduled struct {
	InterviewID    string    `json:"interviewId"`
	ApplicationRef string    `json:"applicationRef"`
	Type           string    `json:"type"`
	ScheduledAt    time.Time `json:"scheduledAt"`
}

type interviewStatusChanged struct {
	InterviewID    string `json:"interviewId"`
	ApplicationRef string `json:"applicationRef"`
	OldStatus      string `json:"oldStatus"`
	NewStatus      string `json:"newStatus"`
	ActorRef       string `json:"actorRef"`
}

func (s *Service) incrementScheduled() {
	if s.metrics != nil {
		s.metrics.IncrementScheduled()
	}
}

func (s *Service) incrementOutcome(status string) {
	if s.metrics != nil {
		s.metrics.IncrementOutcome(status)
	}
}

func (s *Service) incrementRescheduled() {
	if s.metrics != nil {
		s.metrics.IncrementRescheduled()
	}
}

func (s *Service) incrementFeedbackRecorded() {
	if s.metrics != nil {
		s.metrics.IncrementFeedbackRecorded()
	}
}
