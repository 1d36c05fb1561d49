// Package service implements the posting catalog operations.
package service

import (
	"context"
	"errors"
	"log/slog"

	dirmodels "hirelane/internal/directory/models"
	"hirelane/internal/posting/models"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/platform/sentinel"
	"hirelane/pkg/requestcontext"
)

// PostingStore is the persistence contract the service needs.
type PostingStore interface {
	Create(ctx context.Context, p *models.Posting) error
	FindByID(ctx context.Context, postingID id.PostingID) (*models.Posting, error)
	Update(ctx context.Context, p *models.Posting) error
	List(ctx context.Context, status *models.Status) ([]*models.Posting, error)
}

// Directory answers whether an account holds an active profile of a kind.
// Satisfied by the directory service.
type Directory interface {
	ExistsActive(ctx context.Context, ref id.AccountRef, kind dirmodels.Kind) (bool, error)
}

// CreateCommand carries the fields for a new posting. CompanyRef is the
// authenticated caller.
type CreateCommand struct {
	CompanyRef  id.AccountRef
	Title       string
	Description string
	Location    string
}

// Service owns the posting catalog.
type Service struct {
	postings  PostingStore
	directory Directory
	logger    *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(postings PostingStore, directory Directory, opts ...Option) *Service {
	s := &Service{postings: postings, directory: directory, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a posting. The caller must hold an active company profile.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*models.Posting, error) {
	ok, err := s.directory.ExistsActive(ctx, cmd.CompanyRef, dirmodels.KindCompany)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check company profile")
	}
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "account %s holds no active company profile", cmd.CompanyRef)
	}

	p, err := models.NewPosting(
		id.NewPostingID(),
		cmd.CompanyRef,
		cmd.Title,
		cmd.Description,
		cmd.Location,
		requestcontext.Now(ctx),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.postings.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create posting")
	}

	s.logger.InfoContext(ctx, "posting created",
		"posting_id", p.ID,
		"company_ref", p.CompanyRef,
		"title", p.Title,
	)
	return p, nil
}

// Get returns one posting.
func (s *Service) Get(ctx context.Context, postingID id.PostingID) (*models.Posting, error) {
	p, err := s.postings.FindByID(ctx, postingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "posting not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load posting")
	}
	return p, nil
}

// List returns postings, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *models.Status) ([]*models.Posting, error) {
	out, err := s.postings.List(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list postings")
	}
	return out, nil
}

// Close ends a posting. Only the owning company account may close it.
func (s *Service) Close(ctx context.Context, postingID id.PostingID, actorRef id.AccountRef) (*models.Posting, error) {
	p, err := s.Get(ctx, postingID)
	if err != nil {
		return nil, err
	}
	if p.CompanyRef != actorRef {
		return nil, dErrors.New(dErrors.CodeForbidden, "posting belongs to another company")
	}

	if err := p.Close(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.postings.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update posting")
	}

	s.logger.InfoContext(ctx, "posting closed",
		"posting_id", p.ID,
		"company_ref", p.CompanyRef,
	)
	return p, nil
}
