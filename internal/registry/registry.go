// Package registry answers referential-existence questions. Write paths
// validate cross-entity references through it before persisting anything
// that points at another aggregate.
package registry

import (
	"context"

	dirmodels "hirelane/internal/directory/models"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
)

// EntityType enumerates what can be checked. The set is closed.
type EntityType string

const (
	EntityApplicant   EntityType = "applicant"
	EntityStaff       EntityType = "staff"
	EntityPosting     EntityType = "posting"
	EntityApplication EntityType = "application"
)

// Existence reports whether the referenced entity exists in a usable state:
// active profiles for applicant and staff, OPEN postings for posting, live
// (not soft-deleted) applications for application.
type Existence interface {
	Exists(ctx context.Context, entityType EntityType, entityID string) (bool, error)
}

// Directory answers profile existence; satisfied by the directory service.
type Directory interface {
	ExistsActive(ctx context.Context, ref id.AccountRef, kind dirmodels.Kind) (bool, error)
}

// Postings answers posting existence; satisfied by the posting store.
type Postings interface {
	ExistsOpen(ctx context.Context, postingID id.PostingID) (bool, error)
}

// Applications answers application existence; satisfied by the application
// store.
type Applications interface {
	ExistsLiveByID(ctx context.Context, appID id.ApplicationID) (bool, error)
}

// Checker resolves existence against the backing stores.
type Checker struct {
	directory    Directory
	postings     Postings
	applications Applications
}

// NewChecker constructs a store-backed existence checker.
func NewChecker(directory Directory, postings Postings, applications Applications) *Checker {
	return &Checker{directory: directory, postings: postings, applications: applications}
}

// Exists resolves the reference. A malformed entityID is simply absent, not
// an error: nothing can reference what cannot be keyed.
func (c *Checker) Exists(ctx context.Context, entityType EntityType, entityID string) (bool, error) {
	switch entityType {
	case EntityApplicant:
		ref, err := id.ParseAccountRef(entityID)
		if err != nil {
			return false, nil
		}
		return c.profileExists(ctx, ref, dirmodels.KindJobSeeker)
	case EntityStaff:
		ref, err := id.ParseAccountRef(entityID)
		if err != nil {
			return false, nil
		}
		return c.profileExists(ctx, ref, dirmodels.KindStaffMember)
	case EntityPosting:
		postingID, err := id.ParsePostingID(entityID)
		if err != nil {
			return false, nil
		}
		ok, err := c.postings.ExistsOpen(ctx, postingID)
		if err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeDownstreamUnavailable, "posting existence check failed")
		}
		return ok, nil
	case EntityApplication:
		appID, err := id.ParseApplicationID(entityID)
		if err != nil {
			return false, nil
		}
		ok, err := c.applications.ExistsLiveByID(ctx, appID)
		if err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeDownstreamUnavailable, "application existence check failed")
		}
		return ok, nil
	default:
		return false, dErrors.Newf(dErrors.CodeInternal, "unknown entity type %q", entityType)
	}
}

func (c *Checker) profileExists(ctx context.Context, ref id.AccountRef, kind dirmodels.Kind) (bool, error) {
	ok, err := c.directory.ExistsActive(ctx, ref, kind)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeDownstreamUnavailable, "profile existence check failed")
	}
	return ok, nil
}
