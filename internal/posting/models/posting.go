// Package models defines the job posting aggregate.
package models

import (
	"strings"
	"time"

	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
)

// Status is the posting lifecycle. There is no draft state: a posting is
// accepting submissions or it is closed.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// ParseStatus validates a caller-supplied status filter.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusOpen, StatusClosed:
		return s, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown posting status %q", raw)
	}
}

// Posting is the referential target applications submit against. CompanyRef
// is the owning company account; only that account may close the posting.
type Posting struct {
	ID          id.PostingID  `json:"id"`
	CompanyRef  id.AccountRef `json:"company_ref"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Location    string        `json:"location,omitempty"`
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ClosedAt    *time.Time    `json:"closed_at,omitempty"`
}

// NewPosting constructs an OPEN posting.
func NewPosting(postingID id.PostingID, companyRef id.AccountRef, title, description, location string, now time.Time) (*Posting, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "posting requires a title")
	}
	if companyRef.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "posting requires a company reference")
	}
	return &Posting{
		ID:          postingID,
		CompanyRef:  companyRef,
		Title:       title,
		Description: strings.TrimSpace(description),
		Location:    strings.TrimSpace(location),
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Posting) IsOpen() bool {
	return p.Status == StatusOpen
}

// Close ends the posting. Closed postings keep their applications readable
// but accept no new submissions.
func (p *Posting) Close(now time.Time) error {
	if p.Status == StatusClosed {
		return dErrors.New(dErrors.CodeInvalidState, "posting is already closed")
	}
	p.Status = StatusClosed
	p.ClosedAt = &now
	p.UpdatedAt = now
	return nil
}
