// Package models defines the interview aggregate. An interview belongs to
// one application and its outcome drives that application's status.
package models

import (
	"strings"
	"time"

	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
)

// Type is the interview format.
type Type string

const (
	TypePhoneScreen Type = "PHONE_SCREEN"
	TypeTechnical   Type = "TECHNICAL"
	TypeBehavioral  Type = "BEHAVIORAL"
	TypeOnsite      Type = "ONSITE"
	TypeFinal       Type = "FINAL"
)

var validTypes = map[Type]struct{}{
	TypePhoneScreen: {},
	TypeTechnical:   {},
	TypeBehavioral:  {},
	TypeOnsite:      {},
	TypeFinal:       {},
}

// ParseType validates a caller-supplied interview type.
func ParseType(raw string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := validTypes[t]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown interview type %q", raw)
	}
	return t, nil
}

func (t Type) String() string { return string(t) }

// Status is the interview lifecycle position. SCHEDULED is the only state
// that permits mutation; the other three are final.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
)

func (s Status) String() string { return string(s) }

// Rating bounds for interviewer feedback.
const (
	MinRating = 1
	MaxRating = 5
)

// Interview is one scheduled interview for an application.
type Interview struct {
	ID              id.InterviewID   `json:"id"`
	ApplicationRef  id.ApplicationID `json:"application_ref"`
	Type            Type             `json:"type"`
	Status          Status           `json:"status"`
	ScheduledAt     time.Time        `json:"scheduled_at"`
	DurationMinutes int              `json:"duration_minutes,omitempty"`
	Location        string           `json:"location,omitempty"`
	MeetingLink     string           `json:"meeting_link,omitempty"`
	InterviewerRef  *id.AccountRef   `json:"interviewer_ref,omitempty"`
	Feedback        string           `json:"feedback,omitempty"`
	Rating          int              `json:"rating,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	UpdatedByRef    *id.AccountRef   `json:"updated_by_ref,omitempty"`

	Deleted      bool           `json:"-"`
	DeletedAt    *time.Time     `json:"-"`
	DeletedByRef *id.AccountRef `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewInterview builds a SCHEDULED interview.
// Invariants: the application reference is set, the type is valid, the slot
// lies in the future, and duration is not negative.
func NewInterview(interviewID id.InterviewID, applicationRef id.ApplicationID, itype Type, scheduledAt time.Time, durationMinutes int, location, meetingLink string, interviewerRef *id.AccountRef, now time.Time) (*Interview, error) {
	if interviewID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "interview id must be set")
	}
	if applicationRef.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application reference must be set")
	}
	if _, ok := validTypes[itype]; !ok {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown interview type %q", itype)
	}
	if !scheduledAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "interview must be scheduled in the future")
	}
	if durationMinutes < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "duration must not be negative")
	}

	return &Interview{
		ID:              interviewID,
		ApplicationRef:  applicationRef,
		Type:            itype,
		Status:          StatusScheduled,
		ScheduledAt:     scheduledAt,
		DurationMinutes: durationMinutes,
		Location:        location,
		MeetingLink:     meetingLink,
		InterviewerRef:  interviewerRef,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// UpdatePatch carries optional field updates for a scheduled interview. Nil
// fields are left untouched.
type UpdatePatch struct {
	Type            *Type
	ScheduledAt     *time.Time
	DurationMinutes *int
	Location        *string
	MeetingLink     *string
	InterviewerRef  *id.AccountRef
}

// CanMutate gates reschedules and outcome changes: both need the interview
// to still be SCHEDULED.
func (i *Interview) CanMutate() error {
	if i.Status != StatusScheduled {
		return dErrors.Newf(dErrors.CodeNotSchedulable, "interview is %s, only scheduled interviews can change", i.Status)
	}
	return nil
}

// ValidatePatch checks patch fields against the same rules as construction.
func (i *Interview) ValidatePatch(patch UpdatePatch, now time.Time) error {
	if patch.Type != nil {
		if _, ok := validTypes[*patch.Type]; !ok {
			return dErrors.Newf(dErrors.CodeValidation, "unknown interview type %q", *patch.Type)
		}
	}
	if patch.ScheduledAt != nil && !patch.ScheduledAt.After(now) {
		return dErrors.New(dErrors.CodeValidation, "interview must be scheduled in the future")
	}
	if patch.DurationMinutes != nil && *patch.DurationMinutes < 0 {
		return dErrors.New(dErrors.CodeValidation, "duration must not be negative")
	}
	return nil
}

// ApplyPatch writes the provided fields and records the actor.
func (i *Interview) ApplyPatch(patch UpdatePatch, actorRef id.AccountRef, now time.Time) {
	if patch.Type != nil {
		i.Type = *patch.Type
	}
	if patch.ScheduledAt != nil {
		i.ScheduledAt = *patch.ScheduledAt
	}
	if patch.DurationMinutes != nil {
		i.DurationMinutes = *patch.DurationMinutes
	}
	if patch.Location != nil {
		i.Location = *patch.Location
	}
	if patch.MeetingLink != nil {
		i.MeetingLink = *patch.MeetingLink
	}
	if patch.InterviewerRef != nil {
		i.InterviewerRef = patch.InterviewerRef
	}
	i.UpdatedByRef = &actorRef
	i.UpdatedAt = now
}

// ApplyCompleted records that the interview took place.
func (i *Interview) ApplyCompleted(actorRef id.AccountRef, now time.Time) {
	i.Status = StatusCompleted
	i.CompletedAt = &now
	i.UpdatedByRef = &actorRef
	i.UpdatedAt = now
}

// ApplyNoShow records that the candidate did not appear. The slot is spent,
// so completedAt is stamped here too.
func (i *Interview) ApplyNoShow(actorRef id.AccountRef, now time.Time) {
	i.Status = StatusNoShow
	i.CompletedAt = &now
	i.UpdatedByRef = &actorRef
	i.UpdatedAt = now
}

// ApplyCancelled tombstones the interview. The parent application is
// deliberately left alone.
func (i *Interview) ApplyCancelled(actorRef id.AccountRef, now time.Time) {
	i.Status = StatusCancelled
	i.Deleted = true
	i.DeletedAt = &now
	i.DeletedByRef = &actorRef
	i.UpdatedByRef = &actorRef
	i.UpdatedAt = now
}

// CanAddFeedback gates feedback on a finished interview with a sane rating.
func (i *Interview) CanAddFeedback(feedback string, rating int) error {
	if i.Status != StatusCompleted {
		return dErrors.Newf(dErrors.CodeNotCompleted, "interview is %s, feedback needs a completed interview", i.Status)
	}
	if strings.TrimSpace(feedback) == "" {
		return dErrors.New(dErrors.CodeValidation, "feedback must not be empty")
	}
	if rating < MinRating || rating > MaxRating {
		return dErrors.Newf(dErrors.CodeValidation, "rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// ApplyFeedback records the interviewer's verdict.
func (i *Interview) ApplyFeedback(feedback string, rating int, actorRef id.AccountRef, now time.Time) {
	i.Feedback = feedback
	i.Rating = rating
	i.UpdatedByRef = &actorRef
	i.UpdatedAt = now
}
