// Package service orchestrates directory profile projection. All mutations
// arrive through the reconciliation consumer; API callers only read.
package service

import (
	"context"
	"errors"
	"log/slog"

	"hirelane/internal/directory/metrics"
	"hirelane/internal/directory/models"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/platform/sentinel"
	"hirelane/pkg/requestcontext"
)

// ProfileStore is the persistence contract the service needs.
type ProfileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByAccountRef(ctx context.Context, ref id.AccountRef) (*models.Profile, error)
	FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	ExistsActive(ctx context.Context, ref id.AccountRef, kind models.Kind) (bool, error)
}

// CreateCommand carries the fields projected from an IdentityCreated event.
type CreateCommand struct {
	AccountRef id.AccountRef
	Kind       models.Kind
	Email      string
	FirstName  string
	LastName   string
}

// Service projects identity events into directory profiles.
type Service struct {
	profiles ProfileStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
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
func New(profiles ProfileStore, opts ...Option) *Service {
	s := &Service{profiles: profiles, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFromIdentity creates the profile variant for a new account.
// A profile that already exists for the account surfaces as CodeConflict;
// callers decide whether that is a duplicate event or an upstream bug.
func (s *Service) CreateFromIdentity(ctx context.Context, cmd CreateCommand) (*models.Profile, error) {
	p, err := models.NewProfile(
		id.NewProfileID(),
		cmd.AccountRef,
		cmd.Kind,
		cmd.Email,
		cmd.FirstName,
		cmd.LastName,
		requestcontext.Now(ctx),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "profile already exists for account %s", cmd.AccountRef)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}

	s.logger.InfoContext(ctx, "profile created",
		"profile_id", p.ID,
		"account_ref", p.AccountRef,
		"kind", p.Kind,
	)
	s.incrementCreated(string(p.Kind))
	return p, nil
}

// MarkEmailVerified flips the verified flag on whichever variant holds the
// account reference.
func (s *Service) MarkEmailVerified(ctx context.Context, ref id.AccountRef) (*models.Profile, error) {
	p, err := s.findByAccountRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	p.MarkEmailVerified(requestcontext.Now(ctx))
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}

	s.logger.InfoContext(ctx, "profile email verified",
		"profile_id", p.ID,
		"account_ref", p.AccountRef,
	)
	s.incrementVerified()
	return p, nil
}

// Deactivate turns the account's profile off. The reason is recorded in logs
// only; the profile keeps no tombstone beyond active=false.
func (s *Service) Deactivate(ctx context.Context, ref id.AccountRef, reason string) (*models.Profile, error) {
	p, err := s.findByAccountRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	p.Deactivate(requestcontext.Now(ctx))
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}

	s.logger.InfoContext(ctx, "profile deactivated",
		"profile_id", p.ID,
		"account_ref", p.AccountRef,
		"reason", reason,
	)
	s.incrementDeactivated()
	return p, nil
}

// GetByAccountRef returns the profile for an account.
func (s *Service) GetByAccountRef(ctx context.Context, ref id.AccountRef) (*models.Profile, error) {
	return s.findByAccountRef(ctx, ref)
}

// GetByID returns a profile by its own id.
func (s *Service) GetByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	p, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

// ExistsActive reports whether an active profile of the given kind holds the
// account reference. The registry uses this for referential checks.
func (s *Service) ExistsActive(ctx context.Context, ref id.AccountRef, kind models.Kind) (bool, error) {
	ok, err := s.profiles.ExistsActive(ctx, ref, kind)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check profile existence")
	}
	return ok, nil
}

func (s *Service) findByAccountRef(ctx context.Context, ref id.AccountRef) (*models.Profile, error) {
	p, err := s.profiles.FindByAccountRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

func (s *Service) incrementCreated(kind string) {
	if s.metrics != nil {
		s.metrics.IncrementCreated(kind)
	}
}

func (s *Service) incrementVerified() {
	if s.metrics != nil {
		s.metrics.IncrementVerified()
	}
}

func (s *Service) incrementDeactivated() {
	if s.metrics != nil {
		s.metrics.IncrementDeactivated()
	}
}
