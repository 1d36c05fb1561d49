// Package models defines the directory profile projected from identity
// events.
package models

import (
	"time"

	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
)

// Kind discriminates the three profile variants. The set is closed; events
// carrying a role outside it never reach a Profile.
type Kind string

const (
	KindJobSeeker   Kind = "JOB_SEEKER"
	KindCompany     Kind = "COMPANY"
	KindStaffMember Kind = "STAFF_MEMBER"
)

var validKinds = map[Kind]struct{}{
	KindJobSeeker:   {},
	KindCompany:     {},
	KindStaffMember: {},
}

// Profile is one directory entry, keyed by the identity service's account
// reference.
//
// Invariants:
//   - AccountRef is unique and immutable: at most one profile of any kind
//     exists per account
//   - Kind is immutable after construction
//   - Profiles are created only by the reconciliation consumer, never by API
//     callers, and are deactivated rather than deleted
//
// Variant-specific fields are additive: ResumeRef applies to job seekers,
// CompanyName to companies, EmployerRef and Title to staff members. Unused
// fields stay empty.
type Profile struct {
	ID            id.ProfileID  `json:"id"`
	AccountRef    id.AccountRef `json:"account_ref"`
	Kind          Kind          `json:"kind"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	EmailVerified bool          `json:"email_verified"`
	Active        bool          `json:"active"`
	ResumeRef     string        `json:"resume_ref,omitempty"`
	CompanyName   string        `json:"company_name,omitempty"`
	EmployerRef   string        `json:"employer_ref,omitempty"`
	Title         string        `json:"title,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewProfile constructs an active, unverified profile.
func NewProfile(profileID id.ProfileID, accountRef id.AccountRef, kind Kind, email, firstName, lastName string, now time.Time) (*Profile, error) {
	if _, ok := validKinds[kind]; !ok {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "profile kind %q is not one of the three variants", kind)
	}
	if accountRef.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile requires an account reference")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile requires an email")
	}
	return &Profile{
		ID:            profileID,
		AccountRef:    accountRef,
		Kind:          kind,
		Email:         email,
		FirstName:     firstName,
		LastName:      lastName,
		EmailVerified: false,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (p *Profile) IsActive() bool {
	return p.Active
}

// MarkEmailVerified sets the verified flag. Applying it twice is harmless;
// idempotency against redelivery lives in the ledger, not here.
func (p *Profile) MarkEmailVerified(now time.Time) {
	p.EmailVerified = true
	p.UpdatedAt = now
}

// Deactivate turns the profile off without deleting it. Applications and
// interviews referencing it stay readable.
func (p *Profile) Deactivate(now time.Time) {
	p.Active = false
	p.UpdatedAt = now
}
