package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	dirmodels "hirelane/internal/directory/models"
	dirservice "hirelane/internal/directory/service"
	"hirelane/internal/directory/store/profile"
	"hirelane/internal/posting/models"
	"hirelane/internal/posting/store/posting"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
)

type PostingServiceSuite struct {
	suite.Suite
	ctx       context.Context
	postings  *posting.InMemory
	directory *dirservice.Service
	service   *Service
}

func TestPostingServiceSuite(t *testing.T) {
	suite.Run(t, new(PostingServiceSuite))
}

func (s *PostingServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()
	s.postings = posting.NewInMemory()
	s.directory = dirservice.New(profile.NewInMemory(), dirservice.WithLogger(logger))
	s.service = New(s.postings, s.directory, WithLogger(logger))
}

func (s *PostingServiceSuite) newAccountRef() id.AccountRef {
	ref, err := id.ParseAccountRef(uuid.NewString())
	s.Require().NoError(err)
	return ref
}

func (s *PostingServiceSuite) createProfile(kind dirmodels.Kind) id.AccountRef {
	ref := s.newAccountRef()
	_, err := s.directory.CreateFromIdentity(s.ctx, dirservice.CreateCommand{
		AccountRef: ref,
		Kind:       kind,
		Email:      "owner@example.com",
		FirstName:  "Pat",
		LastName:   "Reyes",
	})
	s.Require().NoError(err)
	return ref
}

func (s *PostingServiceSuite) TestCreate() {
	companyRef := s.createProfile(dirmodels.KindCompany)

	p, err := s.service.Create(s.ctx, CreateCommand{
		CompanyRef:  companyRef,
		Title:       "  Backend Engineer  ",
		Description: "Build the hiring pipeline",
		Location:    "Remote",
	})
	s.Require().NoError(err)
	s.Equal("Backend Engineer", p.Title)
	s.Equal(models.StatusOpen, p.Status)
	s.True(p.IsOpen())
	s.Nil(p.ClosedAt)

	got, err := s.service.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)

	open, err := s.postings.ExistsOpen(s.ctx, p.ID)
	s.Require().NoError(err)
	s.True(open)
}

func (s *PostingServiceSuite) TestCreateRequiresCompanyProfile() {
	s.Run("no profile at all", func() {
		_, err := s.service.Create(s.ctx, CreateCommand{
			CompanyRef: s.newAccountRef(),
			Title:      "Backend Engineer",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("job seeker profile", func() {
		ref := s.createProfile(dirmodels.KindJobSeeker)
		_, err := s.service.Create(s.ctx, CreateCommand{
			CompanyRef: ref,
			Title:      "Backend Engineer",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *PostingServiceSuite) TestCreateRejectsEmptyTitle() {
	companyRef := s.createProfile(dirmodels.KindCompany)
	_, err := s.service.Create(s.ctx, CreateCommand{
		CompanyRef: companyRef,
		Title:      "   ",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *PostingServiceSuite) TestClose() {
	companyRef := s.createProfile(dirmodels.KindCompany)
	p, err := s.service.Create(s.ctx, CreateCommand{CompanyRef: companyRef, Title: "SRE"})
	s.Require().NoError(err)

	closed, err := s.service.Close(s.ctx, p.ID, companyRef)
	s.Require().NoError(err)
	s.Equal(models.StatusClosed, closed.Status)
	s.Require().NotNil(closed.ClosedAt)

	open, err := s.postings.ExistsOpen(s.ctx, p.ID)
	s.Require().NoError(err)
	s.False(open)

	_, err = s.service.Close(s.ctx, p.ID, companyRef)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *PostingServiceSuite) TestCloseOwnership() {
	owner := s.createProfile(dirmodels.KindCompany)
	other := s.createProfile(dirmodels.KindCompany)

	p, err := s.service.Create(s.ctx, CreateCommand{CompanyRef: owner, Title: "Recruiter"})
	s.Require().NoError(err)

	_, err = s.service.Close(s.ctx, p.ID, other)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	got, err := s.service.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusOpen, got.Status)
}

func (s *PostingServiceSuite) TestListFiltersByStatus() {
	companyRef := s.createProfile(dirmodels.KindCompany)

	first, err := s.service.Create(s.ctx, CreateCommand{CompanyRef: companyRef, Title: "First"})
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctx, CreateCommand{CompanyRef: companyRef, Title: "Second"})
	s.Require().NoError(err)
	_, err = s.service.Close(s.ctx, first.ID, companyRef)
	s.Require().NoError(err)

	all, err := s.service.List(s.ctx, nil)
	s.Require().NoError(err)
	s.Len(all, 2)

	open := models.StatusOpen
	onlyOpen, err := s.service.List(s.ctx, &open)
	s.Require().NoError(err)
	s.Require().Len(onlyOpen, 1)
	s.Equal("Second", onlyOpen[0].Title)
}

func (s *PostingServiceSuite) TestGetUnknown() {
	_, err := s.service.Get(s.ctx, id.NewPostingID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
