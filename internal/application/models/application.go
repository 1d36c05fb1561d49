// Package models defines the job application aggregate and its status
// machine.
package models

import (
	"strings"
	"time"

	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
)

// Status is the application lifecycle position.
type Status string

const (
	StatusSubmitted          Status = "SUBMITTED"
	StatusUnderReview        Status = "UNDER_REVIEW"
	StatusInterviewScheduled Status = "INTERVIEW_SCHEDULED"
	StatusInterviewed        Status = "INTERVIEWED"
	StatusOfferExtended      Status = "OFFER_EXTENDED"
	StatusAccepted           Status = "ACCEPTED"
	StatusRejected           Status = "REJECTED"
	StatusWithdrawn          Status = "WITHDRAWN"
)

// allowedTransitions is the full status machine. Terminal statuses have no
// entry: once reached, nothing leaves them.
var allowedTransitions = map[Status]map[Status]struct{}{
	StatusSubmitted: {
		StatusUnderReview: {}, StatusRejected: {}, StatusWithdrawn: {},
	},
	StatusUnderReview: {
		StatusInterviewScheduled: {}, StatusRejected: {}, StatusWithdrawn: {},
	},
	StatusInterviewScheduled: {
		StatusInterviewed: {}, StatusRejected: {}, StatusWithdrawn: {},
	},
	StatusInterviewed: {
		StatusOfferExtended: {}, StatusRejected: {}, StatusWithdrawn: {},
	},
	StatusOfferExtended: {
		StatusAccepted: {}, StatusRejected: {}, StatusWithdrawn: {},
	},
}

var validStatuses = map[Status]struct{}{
	StatusSubmitted:          {},
	StatusUnderReview:        {},
	StatusInterviewScheduled: {},
	StatusInterviewed:        {},
	StatusOfferExtended:      {},
	StatusAccepted:           {},
	StatusRejected:           {},
	StatusWithdrawn:          {},
}

// ParseStatus validates a caller-supplied status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := validStatuses[s]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown application status %q", raw)
	}
	return s, nil
}

func (s Status) String() string { return string(s) }

// IsTerminal reports whether the status freezes the application.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusWithdrawn:
		return true
	default:
		return false
	}
}

// CanTransitionTo consults the status machine. Same-status no-ops are the
// aggregate's concern, not the table's.
func (s Status) CanTransitionTo(next Status) bool {
	nexts, ok := allowedTransitions[s]
	if !ok {
		return false
	}
	_, ok = nexts[next]
	return ok
}

// Documents holds the storage references attached at submission. Cover
// letter and resume are mandatory; portfolio is optional and stays empty
// when not provided.
type Documents struct {
	CoverLetterRef string `json:"cover_letter_ref"`
	ResumeRef      string `json:"resume_ref"`
	PortfolioRef   string `json:"portfolio_ref,omitempty"`
}

// RefFor maps a document type onto its stored reference. Absent documents
// return the empty string.
func (d Documents) RefFor(docType id.DocumentType) string {
	switch docType {
	case id.DocumentCoverLetter:
		return d.CoverLetterRef
	case id.DocumentResume:
		return d.ResumeRef
	case id.DocumentPortfolio:
		return d.PortfolioRef
	default:
		return ""
	}
}

// Refs returns the non-empty references, for cleanup iteration.
func (d Documents) Refs() []string {
	refs := make([]string, 0, 3)
	for _, ref := range []string{d.CoverLetterRef, d.ResumeRef, d.PortfolioRef} {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Application is one candidate's submission against one posting.
//
// Invariants:
//   - exactly one non-deleted application exists per (ApplicantRef,
//     PostingRef) pair; the store's live-pair uniqueness backs this
//   - a terminal status (ACCEPTED, REJECTED, WITHDRAWN) freezes the record;
//     FinalizedAt is set exactly once
//   - each lifecycle timestamp is stamped the first time its status is
//     reached and never overwritten
//   - applications are soft-deleted, never removed
type Application struct {
	ID              id.ApplicationID `json:"id"`
	ApplicantRef    id.AccountRef    `json:"applicant_ref"`
	PostingRef      id.PostingID     `json:"posting_ref"`
	SubmitterRef    id.AccountRef    `json:"submitter_ref"`
	ReviewerRef     *id.AccountRef   `json:"reviewer_ref,omitempty"`
	Documents       Documents        `json:"documents"`
	Status          Status           `json:"status"`
	HRNotes         string           `json:"hr_notes,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	ClientInfo      string           `json:"client_info,omitempty"`

	SubmittedAt          time.Time  `json:"submitted_at"`
	ReviewedAt           *time.Time `json:"reviewed_at,omitempty"`
	InterviewScheduledAt *time.Time `json:"interview_scheduled_at,omitempty"`
	OfferExtendedAt      *time.Time `json:"offer_extended_at,omitempty"`
	FinalizedAt          *time.Time `json:"finalized_at,omitempty"`

	Deleted      bool           `json:"deleted"`
	DeletedAt    *time.Time     `json:"deleted_at,omitempty"`
	DeletedByRef *id.AccountRef `json:"deleted_by_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewApplication constructs a SUBMITTED application.
func NewApplication(appID id.ApplicationID, applicantRef id.AccountRef, postingRef id.PostingID, submitterRef id.AccountRef, docs Documents, clientInfo string, now time.Time) (*Application, error) {
	if applicantRef.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application requires an applicant reference")
	}
	if postingRef.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application requires a posting reference")
	}
	if submitterRef.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application requires a submitter reference")
	}
	if docs.CoverLetterRef == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application requires a cover letter document")
	}
	if docs.ResumeRef == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application requires a resume document")
	}
	return &Application{
		ID:           appID,
		ApplicantRef: applicantRef,
		PostingRef:   postingRef,
		SubmitterRef: submitterRef,
		Documents:    docs,
		Status:       StatusSubmitted,
		ClientInfo:   clientInfo,
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsFinalized reports whether the application reached a terminal status.
func (a *Application) IsFinalized() bool {
	return a.Status.IsTerminal()
}

// CanUpdateStatus validates a requested transition. The terminal freeze is
// checked first, then the table; a same-status update is always permitted
// (and applies as a timestamp-preserving no-op).
func (a *Application) CanUpdateStatus(next Status) error {
	if a.IsFinalized() {
		return dErrors.Newf(dErrors.CodeFinalized, "application is finalized in status %s", a.Status)
	}
	if next == a.Status {
		return nil
	}
	if !a.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "invalid transition from %s to %s", a.Status, next)
	}
	return nil
}

// CanWithdraw validates that applicantRef owns the application and it is
// still open.
func (a *Application) CanWithdraw(applicantRef id.AccountRef) error {
	if a.ApplicantRef != applicantRef {
		return dErrors.New(dErrors.CodeForbidden, "application belongs to another applicant")
	}
	if a.IsFinalized() {
		return dErrors.Newf(dErrors.CodeFinalized, "application is finalized in status %s", a.Status)
	}
	return nil
}

// ApplyStatusChange moves the application to next, records the acting
// reviewer, appends notes and the rejection reason when provided, and stamps
// the lifecycle timestamp for next the first time it is reached.
func (a *Application) ApplyStatusChange(next Status, actorRef id.AccountRef, notes, rejectionReason string, now time.Time) {
	a.Status = next
	a.ReviewerRef = &actorRef
	if notes != "" {
		if a.HRNotes != "" {
			a.HRNotes += "\n" + notes
		} else {
			a.HRNotes = notes
		}
	}
	if rejectionReason != "" {
		a.RejectionReason = rejectionReason
	}
	a.stampOnce(next, now)
	a.UpdatedAt = now
}

// ApplyWithdrawal finalizes the application as withdrawn by its applicant.
// Unlike ApplyStatusChange it records no reviewer.
func (a *Application) ApplyWithdrawal(now time.Time) {
	a.Status = StatusWithdrawn
	a.stampOnce(StatusWithdrawn, now)
	a.UpdatedAt = now
}

// ApplySoftDelete tombstones the application. Document cleanup happens
// before this, in the service.
func (a *Application) ApplySoftDelete(actorRef id.AccountRef, now time.Time) {
	a.Deleted = true
	a.DeletedAt = &now
	a.DeletedByRef = &actorRef
	a.UpdatedAt = now
}

// stampOnce sets the lifecycle timestamp for the status just entered, first
// time only. INTERVIEWED carries no timestamp of its own; SUBMITTED is
// stamped at construction.
func (a *Application) stampOnce(next Status, now time.Time) {
	switch next {
	case StatusUnderReview:
		if a.ReviewedAt == nil {
			a.ReviewedAt = &now
		}
	case StatusInterviewScheduled:
		if a.InterviewScheduledAt == nil {
			a.InterviewScheduledAt = &now
		}
	case StatusOfferExtended:
		if a.OfferExtendedAt == nil {
			a.OfferExtendedAt = &now
		}
	case StatusAccepted, StatusRejected, StatusWithdrawn:
		if a.FinalizedAt == nil {
			a.FinalizedAt = &now
		}
	}
}
