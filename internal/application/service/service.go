// Package service implements the application lifecycle: submission with
// referential and duplicate guards, the status state machine, withdrawal,
// soft deletion with best-effort document cleanup, and presigned document
// URLs.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hirelane/internal/application/metrics"
	"hirelane/internal/application/models"
	"hirelane/internal/docstore"
	"hirelane/internal/outbox"
	"hirelane/internal/registry"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/platform/circuit"
	"hirelane/pkg/platform/sentinel"
	"hirelane/pkg/platform/tx"
	"hirelane/pkg/requestcontext"
)

// ApplicationStore is the persistence contract the service needs.
type ApplicationStore interface {
	Create(ctx context.Context, a *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, apply func(*models.Application)) (*models.Application, error)
	ExistsLive(ctx context.Context, applicantRef id.AccountRef, postingRef id.PostingID) (bool, error)
	ListByApplicant(ctx context.Context, applicantRef id.AccountRef) ([]*models.Application, error)
	ListByPosting(ctx context.Context, postingRef id.PostingID) ([]*models.Application, error)
}

// SubmitCommand carries the fields for a new application. SubmitterRef is
// the authenticated caller; ApplicantRef is whose application it is (they
// differ when staff submits on an applicant's behalf).
type SubmitCommand struct {
	ApplicantRef id.AccountRef
	PostingRef   id.PostingID
	SubmitterRef id.AccountRef
	Documents    models.Documents
	ClientInfo   string
}

// Service owns the application lifecycle.
type Service struct {
	applications  ApplicationStore
	registry      registry.Existence
	documents     docstore.Storage
	outbox        outbox.Store
	runner        tx.Runner
	breaker       *circuit.Breaker
	deleteTimeout time.Duration
	maxURLExpiry  time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics
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

// WithBreaker replaces the default document-cleanup circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

// WithDeleteTimeout bounds each document deletion attempt during soft delete.
func WithDeleteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.deleteTimeout = d
		}
	}
}

// WithMaxURLExpiry caps the lifetime of presigned document URLs.
func WithMaxURLExpiry(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxURLExpiry = d
		}
	}
}

// New constructs a Service.
func New(applications ApplicationStore, reg registry.Existence, documents docstore.Storage, outboxStore outbox.Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		applications:  applications,
		registry:      reg,
		documents:     documents,
		outbox:        outboxStore,
		runner:        runner,
		breaker:       circuit.New("docstore"),
		deleteTimeout: 5 * time.Second,
		maxURLExpiry:  15 * time.Minute,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a SUBMITTED application after referential and duplicate
// checks. The pre-check gives the friendly duplicate error; the store's
// unique constraint closes the concurrent window, and both surface as
// CodeDuplicateSubmission.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*models.Application, error) {
	ok, err := s.registry.Exists(ctx, registry.EntityApplicant, cmd.ApplicantRef.String())
	if err != nil {
		return nil, err
	}
	if !ok {
		s.incrementRejectedSubmit("applicant_not_found")
		return nil, dErrors.Newf(dErrors.CodeReferenceNotFound, "applicant %s does not exist", cmd.ApplicantRef)
	}

	ok, err = s.registry.Exists(ctx, registry.EntityPosting, cmd.PostingRef.String())
	if err != nil {
		return nil, err
	}
	if !ok {
		s.incrementRejectedSubmit("posting_not_found")
		return nil, dErrors.Newf(dErrors.CodeReferenceNotFound, "posting %s does not exist", cmd.PostingRef)
	}

	exists, err := s.applications.ExistsLive(ctx, cmd.ApplicantRef, cmd.PostingRef)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for existing application")
	}
	if exists {
		s.incrementRejectedSubmit("duplicate")
		return nil, dErrors.Newf(dErrors.CodeDuplicateSubmission, "applicant %s already has a live application for posting %s", cmd.ApplicantRef, cmd.PostingRef)
	}

	a, err := models.NewApplication(
		id.NewApplicationID(),
		cmd.ApplicantRef,
		cmd.PostingRef,
		cmd.SubmitterRef,
		cmd.Documents,
		cmd.ClientInfo,
		requestcontext.Now(ctx),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			s.incrementRejectedSubmit("invalid")
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.applications.Create(ctx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeDuplicateSubmission, "applicant %s already has a live application for posting %s", cmd.ApplicantRef, cmd.PostingRef)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
		}
		return s.appendEvent(ctx, a.ID.String(), outbox.TypeApplicationSubmitted, applicationSubmitted{
			ApplicationID: a.ID.String(),
			ApplicantRef:  a.ApplicantRef.String(),
			PostingRef:    a.PostingRef.String(),
			SubmittedAt:   a.SubmittedAt,
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeDuplicateSubmission) {
			s.incrementRejectedSubmit("duplicate")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "application submitted",
		"application_id", a.ID,
		"applicant_ref", a.ApplicantRef,
		"posting_ref", a.PostingRef,
	)
	s.incrementSubmitted()
	return a, nil
}

// UpdateStatus moves an application through the state machine. Same-status
// updates succeed without touching timestamps or emitting an event; real
// transitions stamp their lifecycle timestamp once and record the actor as
// reviewer.
func (s *Service) UpdateStatus(ctx context.Context, appID id.ApplicationID, newStatus models.Status, actorRef id.AccountRef, notes, rejectionReason string) (*models.Application, error) {
	var (
		updated   *models.Application
		oldStatus models.Status
	)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.applications.Execute(ctx, appID,
			func(a *models.Application) error {
				oldStatus = a.Status
				return a.CanUpdateStatus(newStatus)
			},
			func(a *models.Application) {
				a.ApplyStatusChange(newStatus, actorRef, notes, rejectionReason, requestcontext.Now(ctx))
			},
		)
		if err != nil {
			return s.mutationErr(err, "failed to update application status")
		}
		updated = a

		if oldStatus == newStatus {
			return nil
		}
		return s.appendEvent(ctx, a.ID.String(), outbox.TypeApplicationStatusChanged, applicationStatusChanged{
			ApplicationID: a.ID.String(),
			OldStatus:     oldStatus.String(),
			NewStatus:     newStatus.String(),
			ActorRef:      actorRef.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if oldStatus != newStatus {
		s.logger.InfoContext(ctx, "application status changed",
			"application_id", updated.ID,
			"old_status", oldStatus,
			"new_status", newStatus,
			"actor_ref", actorRef,
		)
		s.incrementStatusChange(newStatus.String())
	}
	return updated, nil
}

// Withdraw lets the owning applicant pull their application. It finalizes
// as WITHDRAWN without recording a reviewer.
func (s *Service) Withdraw(ctx context.Context, appID id.ApplicationID, applicantRef, actorRef id.AccountRef) (*models.Application, error) {
	var (
		updated   *models.Application
		oldStatus models.Status
	)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.applications.Execute(ctx, appID,
			func(a *models.Application) error {
				oldStatus = a.Status
				return a.CanWithdraw(applicantRef)
			},
			func(a *models.Application) {
				a.ApplyWithdrawal(requestcontext.Now(ctx))
			},
		)
		if err != nil {
			return s.mutationErr(err, "failed to withdraw application")
		}
		updated = a

		return s.appendEvent(ctx, a.ID.String(), outbox.TypeApplicationStatusChanged, applicationStatusChanged{
			ApplicationID: a.ID.String(),
			OldStatus:     oldStatus.String(),
			NewStatus:     models.StatusWithdrawn.String(),
			ActorRef:      actorRef.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "application withdrawn",
		"application_id", updated.ID,
		"applicant_ref", applicantRef,
	)
	s.incrementWithdrawn()
	return updated, nil
}

// SoftDelete removes the application from every read path. Stored documents
// are deleted first, each attempted independently and best-effort: cleanup
// failures are logged and counted, never surfaced, so a dead blob store
// cannot make an application undeletable.
func (s *Service) SoftDelete(ctx context.Context, appID id.ApplicationID, actorRef id.AccountRef) error {
	a, err := s.applications.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}

	s.cleanupDocuments(ctx, a)

	_, err = s.applications.Execute(ctx, appID,
		func(*models.Application) error { return nil },
		func(a *models.Application) {
			a.ApplySoftDelete(actorRef, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		return s.mutationErr(err, "failed to delete application")
	}

	s.logger.InfoContext(ctx, "application deleted",
		"application_id", appID,
		"actor_ref", actorRef,
	)
	s.incrementDeleted()
	return nil
}

// cleanupDocuments deletes stored refs ahead of the soft-delete flip. Each
// ref gets its own bounded attempt; once a failure lands while the breaker
// is open the remaining refs are skipped, so a dead store costs at most one
// timeout per delete.
func (s *Service) cleanupDocuments(ctx context.Context, a *models.Application) {
	skipRemaining := false
	for _, ref := range a.Documents.Refs() {
		if skipRemaining {
			s.incrementDocumentCleanup("skipped")
			continue
		}

		dctx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
		err := s.documents.Delete(dctx, ref)
		cancel()

		switch {
		case err == nil:
			s.breaker.RecordSuccess()
			s.incrementDocumentCleanup("deleted")
		case errors.Is(err, sentinel.ErrNotFound):
			// Already gone; nothing to clean.
			s.breaker.RecordSuccess()
			s.incrementDocumentCleanup("missing")
		default:
			_, change := s.breaker.RecordFailure()
			if change.Opened {
				s.logger.ErrorContext(ctx, "document storage circuit opened",
					"breaker", s.breaker.Name(),
				)
			}
			s.incrementDocumentCleanup("failed")
			s.logger.WarnContext(ctx, "document cleanup failed, continuing delete",
				"application_id", a.ID,
				"document_ref", ref,
				"error", err,
			)
			if s.breaker.IsOpen() {
				skipRemaining = true
			}
		}
	}
}

// UploadDocument stores content and returns the ref callers attach to a
// submission.
func (s *Service) UploadDocument(ctx context.Context, content []byte, rawDocType string, ownerRef id.AccountRef) (string, error) {
	docType, err := id.ParseDocumentType(rawDocType)
	if err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "document content must not be empty")
	}

	ref, err := s.documents.Store(ctx, content, docType.String(), ownerRef.String())
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDownstreamUnavailable, "document storage unavailable")
	}
	return ref, nil
}

// PresignedURL returns a time-limited download URL for one of the
// application's documents. Expiry is clamped to the configured maximum.
func (s *Service) PresignedURL(ctx context.Context, appID id.ApplicationID, rawDocType string, expiry time.Duration) (string, error) {
	docType, err := id.ParseDocumentType(rawDocType)
	if err != nil {
		return "", err
	}

	a, err := s.Get(ctx, appID)
	if err != nil {
		return "", err
	}

	ref := a.Documents.RefFor(docType)
	if ref == "" {
		return "", dErrors.Newf(dErrors.CodeDocumentNotFound, "application has no %s document", docType)
	}

	if expiry <= 0 || expiry > s.maxURLExpiry {
		expiry = s.maxURLExpiry
	}
	url, err := s.documents.PresignedURL(ctx, ref, expiry)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign document URL")
	}

	s.incrementPresignedURL()
	return url, nil
}

// Get returns one live application.
func (s *Service) Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	a, err := s.applications.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return a, nil
}

// ListByApplicant returns the applicant's live applications, newest first.
func (s *Service) ListByApplicant(ctx context.Context, applicantRef id.AccountRef) ([]*models.Application, error) {
	out, err := s.applications.ListByApplicant(ctx, applicantRef)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return out, nil
}

// ListByPosting returns a posting's live applications, newest first.
func (s *Service) ListByPosting(ctx context.Context, postingRef id.PostingID) ([]*models.Application, error) {
	out, err := s.applications.ListByPosting(ctx, postingRef)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return out, nil
}

// mutationErr translates store sentinels, passes domain errors through, and
// wraps the rest as internal.
func (s *Service) mutationErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
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
type applicationSubmitted struct {
	ApplicationID string    `json:"applicationId"`
	ApplicantRef  string    `json:"applicantRef"`
	PostingRef    string    `json:"postingRef"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

type applicationStatusChanged struct {
	ApplicationID string `json:"applicationId"`
	OldStatus     string `json:"oldStatus"`
	NewStatus     string `json:"newStatus"`
	ActorRef      string `json:"actorRef"`
}

func (s *Service) incrementSubmitted() {
	if s.metrics != nil {
		s.metrics.IncrementSubmitted()
	}
}

func (s *Service) incrementStatusChange(status string) {
	if s.metrics != nil {
		s.metrics.IncrementStatusChange(status)
	}
}

func (s *Service) incrementWithdrawn() {
	if s.metrics != nil {
		s.metrics.IncrementWithdrawn()
	}
}

func (s *Service) incrementDeleted() {
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
}

func (s *Service) incrementRejectedSubmit(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementRejectedSubmit(reason)
	}
}

func (s *Service) incrementDocumentCleanup(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementDocumentCleanup(outcome)
	}
}

func (s *Service) incrementPresignedURL() {
	if s.metrics != nil {
		s.metrics.IncrementPresignedURL()
	}
}
