package registry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	appmodels "hirelane/internal/application/models"
	"hirelane/internal/application/store/application"
	dirmodels "hirelane/internal/directory/models"
	dirservice "hirelane/internal/directory/service"
	"hirelane/internal/directory/store/profile"
	postingmodels "hirelane/internal/posting/models"
	"hirelane/internal/posting/store/posting"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
)

type CheckerSuite struct {
	suite.Suite
	ctx          context.Context
	directory    *dirservice.Service
	postings     *posting.InMemory
	applications *application.InMemory
	checker      *Checker
}

func TestCheckerSuite(t *testing.T) {
	suite.Run(t, new(CheckerSuite))
}

func (s *CheckerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()
	s.directory = dirservice.New(profile.NewInMemory(), dirservice.WithLogger(logger))
	s.postings = posting.NewInMemory()
	s.applications = application.NewInMemory()
	s.checker = NewChecker(s.directory, s.postings, s.applications)
}

func (s *CheckerSuite) createProfile(kind dirmodels.Kind) id.AccountRef {
	ref, err := id.ParseAccountRef(uuid.NewString())
	s.Require().NoError(err)
	_, err = s.directory.CreateFromIdentity(s.ctx, dirservice.CreateCommand{
		AccountRef: ref,
		Kind:       kind,
		Email:      "someone@example.com",
	})
	s.Require().NoError(err)
	return ref
}

func (s *CheckerSuite) TestApplicantExistence() {
	ref := s.createProfile(dirmodels.KindJobSeeker)

	ok, err := s.checker.Exists(s.ctx, EntityApplicant, ref.String())
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.checker.Exists(s.ctx, EntityApplicant, uuid.NewString())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CheckerSuite) TestKindsDoNotCrossAnswer() {
	companyRef := s.createProfile(dirmodels.KindCompany)

	ok, err := s.checker.Exists(s.ctx, EntityApplicant, companyRef.String())
	s.Require().NoError(err)
	s.False(ok)

	staffRef := s.createProfile(dirmodels.KindStaffMember)
	ok, err = s.checker.Exists(s.ctx, EntityStaff, staffRef.String())
	s.Require().NoError(err)
	s.True(ok)
}

func (s *CheckerSuite) TestDeactivatedProfileDoesNotExist() {
	ref := s.createProfile(dirmodels.KindJobSeeker)
	_, err := s.directory.Deactivate(s.ctx, ref, "account disabled")
	s.Require().NoError(err)

	ok, err := s.checker.Exists(s.ctx, EntityApplicant, ref.String())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CheckerSuite) TestPostingExistence() {
	companyRef, err := id.ParseAccountRef(uuid.NewString())
	s.Require().NoError(err)
	open, err := postingmodels.NewPosting(id.NewPostingID(), companyRef, "Backend Engineer", "", "", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.postings.Create(s.ctx, open))

	ok, err := s.checker.Exists(s.ctx, EntityPosting, open.ID.String())
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(open.Close(time.Now().UTC()))
	s.Require().NoError(s.postings.Update(s.ctx, open))

	ok, err = s.checker.Exists(s.ctx, EntityPosting, open.ID.String())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CheckerSuite) TestApplicationExistence() {
	applicantRef, err := id.ParseAccountRef(uuid.NewString())
	s.Require().NoError(err)
	docs := appmodels.Documents{CoverLetterRef: "doc-cl", ResumeRef: "doc-cv"}
	app, err := appmodels.NewApplication(id.NewApplicationID(), applicantRef, id.NewPostingID(), applicantRef, docs, "", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.applications.Create(s.ctx, app))

	ok, err := s.checker.Exists(s.ctx, EntityApplication, app.ID.String())
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.applications.Execute(s.ctx, app.ID,
		func(*appmodels.Application) error { return nil },
		func(a *appmodels.Application) { a.ApplySoftDelete(applicantRef, time.Now().UTC()) },
	)
	s.Require().NoError(err)

	ok, err = s.checker.Exists(s.ctx, EntityApplication, app.ID.String())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CheckerSuite) TestMalformedIDIsAbsent() {
	ok, err := s.checker.Exists(s.ctx, EntityApplicant, "not-a-uuid")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CheckerSuite) TestUnknownEntityType() {
	_, err := s.checker.Exists(s.ctx, EntityType("tenant"), uuid.NewString())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
