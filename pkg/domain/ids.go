// Package domain holds the typed identifiers shared across feature packages.
//
// Each identifier wraps uuid.UUID in its own named type so an application id
// can never be passed where an interview id is expected. Parse functions are
// the trust boundary: they reject empty, malformed, and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "hirelane/pkg/domain-errors"
)

type (
	// AccountRef is the external identity service's account reference.
	// It is minted by the identity service and immutable here.
	AccountRef uuid.UUID

	// ProfileID identifies a directory profile (job seeker, company, staff).
	ProfileID uuid.UUID

	// ApplicationID identifies a job application.
	ApplicationID uuid.UUID

	// InterviewID identifies an interview.
	InterviewID uuid.UUID

	// PostingID identifies a job posting.
	PostingID uuid.UUID

	// EventID identifies one logical event occurrence. It is generated once
	// at publish time and survives redelivery, which makes it the
	// deduplication key.
	EventID uuid.UUID
)

func parse(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseAccountRef parses an external account reference.
func ParseAccountRef(raw string) (AccountRef, error) {
	u, err := parse(raw)
	return AccountRef(u), err
}

// ParseProfileID parses a profile id.
func ParseProfileID(raw string) (ProfileID, error) {
	u, err := parse(raw)
	return ProfileID(u), err
}

// ParseApplicationID parses an application id.
func ParseApplicationID(raw string) (ApplicationID, error) {
	u, err := parse(raw)
	return ApplicationID(u), err
}

// ParseInterviewID parses an interview id.
func ParseInterviewID(raw string) (InterviewID, error) {
	u, err := parse(raw)
	return InterviewID(u), err
}

// ParsePostingID parses a job posting id.
func ParsePostingID(raw string) (PostingID, error) {
	u, err := parse(raw)
	return PostingID(u), err
}

// ParseEventID parses an event id.
func ParseEventID(raw string) (EventID, error) {
	u, err := parse(raw)
	return EventID(u), err
}

// NewProfileID mints a fresh profile id.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// NewApplicationID mints a fresh application id.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewInterviewID mints a fresh interview id.
func NewInterviewID() InterviewID { return InterviewID(uuid.New()) }

// NewPostingID mints a fresh posting id.
func NewPostingID() PostingID { return PostingID(uuid.New()) }

// NewEventID mints a fresh event id.
func NewEventID() EventID { return EventID(uuid.New()) }

func (r AccountRef) String() string    { return uuid.UUID(r).String() }
func (p ProfileID) String() string     { return uuid.UUID(p).String() }
func (a ApplicationID) String() string { return uuid.UUID(a).String() }
func (i InterviewID) String() string   { return uuid.UUID(i).String() }
func (p PostingID) String() string     { return uuid.UUID(p).String() }
func (e EventID) String() string       { return uuid.UUID(e).String() }

func (r AccountRef) IsNil() bool    { return uuid.UUID(r) == uuid.Nil }
func (p ProfileID) IsNil() bool     { return uuid.UUID(p) == uuid.Nil }
func (a ApplicationID) IsNil() bool { return uuid.UUID(a) == uuid.Nil }
func (i InterviewID) IsNil() bool   { return uuid.UUID(i) == uuid.Nil }
func (p PostingID) IsNil() bool     { return uuid.UUID(p) == uuid.Nil }
func (e EventID) IsNil() bool       { return uuid.UUID(e) == uuid.Nil }

// MarshalText/UnmarshalText keep the canonical UUID string form on the wire,
// with UnmarshalText running the same validation as the Parse functions.

func (r AccountRef) MarshalText() ([]byte, error)    { return []byte(r.String()), nil }
func (p ProfileID) MarshalText() ([]byte, error)     { return []byte(p.String()), nil }
func (a ApplicationID) MarshalText() ([]byte, error) { return []byte(a.String()), nil }
func (i InterviewID) MarshalText() ([]byte, error)   { return []byte(i.String()), nil }
func (p PostingID) MarshalText() ([]byte, error)     { return []byte(p.String()), nil }
func (e EventID) MarshalText() ([]byte, error)       { return []byte(e.String()), nil }

func (r *AccountRef) UnmarshalText(b []byte) error {
	parsed, err := ParseAccountRef(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (p *ProfileID) UnmarshalText(b []byte) error {
	parsed, err := ParseProfileID(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (a *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (i *InterviewID) UnmarshalText(b []byte) error {
	parsed, err := ParseInterviewID(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func (p *PostingID) UnmarshalText(b []byte) error {
	parsed, err := ParsePostingID(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (e *EventID) UnmarshalText(b []byte) error {
	parsed, err := ParseEventID(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
