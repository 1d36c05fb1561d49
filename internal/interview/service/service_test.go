package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	appmodels "hirelane/internal/application/models"
	appservice "hirelane/internal/application/service"
	"hirelane/internal/application/store/application"
	dirmodels "hirelane/internal/directory/models"
	dirservice "hirelane/internal/directory/service"
	"hirelane/internal/directory/store/profile"
	"hirelane/internal/docstore"
	"hirelane/internal/interview/models"
	"hirelane/internal/interview/store/interview"
	"hirelane/internal/outbox"
	postingmodels "hirelane/internal/posting/models"
	"hirelane/internal/posting/store/posting"
	"hirelane/internal/registry"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/platform/tx"
)

type InterviewServiceSuite struct {
	suite.Suite
	ctx        context.Context
	apps       *application.InMemory
	interviews *interview.InMemory
	directory  *dirservice.Service
	postings   *posting.InMemory
	outbox     *outbox.InMemory
	appService *appservice.Service
	service    *Service

	applicantRef id.AccountRef
	staffRef     id.AccountRef
}

func TestInterviewServiceSuite(t *testing.T) {
	suite.Run(t, new(InterviewServiceSuite))
}

func (s *InterviewServiceSuite) SetupTest() {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()

	s.apps = application.NewInMemory()
	s.interviews = interview.NewInMemory()
	s.directory = dirservice.New(profile.NewInMemory(), dirservice.WithLogger(quiet))
	s.postings = posting.NewInMemory()
	s.outbox = outbox.NewInMemory()

	docs := docstore.NewMemory(docstore.NewURLSigner([]byte("test-secret"), "https://docs.test/download"))
	checker := registry.NewChecker(s.directory, s.postings, s.apps)
	runner := tx.NewMemoryRunner()
	s.appService = appservice.New(s.apps, checker, docs, s.outbox, runner, appservice.WithLogger(quiet))
	s.service = New(s.interviews, s.appService, checker, s.outbox, runner, WithLogger(quiet))

	s.applicantRef = s.createProfile(dirmodels.KindJobSeeker)
	s.staffRef = s.createProfile(dirmodels.KindStaffMember)
}

func (s *InterviewServiceSuite) createProfile(kind dirmodels.Kind) id.AccountRef {
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

// createReviewedApplication files an application against a fresh posting and
// moves it to UNDER_REVIEW, the state scheduling requires.
func (s *InterviewServiceSuite) createReviewedApplication() *appmodels.Application {
	companyRef, err := id.ParseAccountRef(uuid.NewString())
	s.Require().NoError(err)
	p, err := postingmodels.NewPosting(id.NewPostingID(), companyRef, "Backend Engineer", "", "", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.postings.Create(s.ctx, p))

	cl, err := s.appService.UploadDocument(s.ctx, []byte("cover letter"), "cover_letter", s.applicantRef)
	s.Require().NoError(err)
	cv, err := s.appService.UploadDocument(s.ctx, []byte("resume"), "resume", s.applicantRef)
	s.Require().NoError(err)

	a, err := s.appService.Submit(s.ctx, appservice.SubmitCommand{
		ApplicantRef: s.applicantRef,
		PostingRef:   p.ID,
		SubmitterRef: s.applicantRef,
		Documents:    appmodels.Documents{CoverLetterRef: cl, ResumeRef: cv},
	})
	s.Require().NoError(err)

	reviewed, err := s.appService.UpdateStatus(s.ctx, a.ID, appmodels.StatusUnderReview, s.staffRef, "", "")
	s.Require().NoError(err)
	return reviewed
}

func (s *InterviewServiceSuite) schedule(appID id.ApplicationID) *models.Interview {
	iv, err := s.service.Schedule(s.ctx, ScheduleCommand{
		ApplicationRef:  appID,
		Type:            models.TypeTechnical,
		ScheduledAt:     time.Now().UTC().Add(24 * time.Hour),
		DurationMinutes: 60,
		Location:        "Room 4",
		InterviewerRef:  &s.staffRef,
		ActorRef:        s.staffRef,
	})
	s.Require().NoError(err)
	return iv
}

func (s *InterviewServiceSuite) pendingEventTypes() []string {
	pending, err := s.outbox.ListPending(s.ctx, 100)
	s.Require().NoError(err)
	types := make([]string, 0, len(pending))
	for _, e := range pending {
		types = append(types, e.EventType)
	}
	return types
}

func (s *InterviewServiceSuite) appStatus(appID id.ApplicationID) appmodels.Status {
	a, err := s.appService.Get(s.ctx, appID)
	s.Require().NoError(err)
	return a.Status
}

func (s *InterviewServiceSuite) TestSchedule() {
	s.Run("schedules and moves the application", func() {
		app := s.createReviewedApplication()
		iv := s.schedule(app.ID)

		s.Equal(models.StatusScheduled, iv.Status)
		s.Equal(app.ID, iv.ApplicationRef)
		s.Require().NotNil(iv.InterviewerRef)
		s.Equal(s.staffRef, *iv.InterviewerRef)

		moved, err := s.appService.Get(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(appmodels.StatusInterviewScheduled, moved.Status)
		s.NotNil(moved.InterviewScheduledAt)

		types := s.pendingEventTypes()
		s.Contains(types, outbox.TypeInterviewScheduled)
		s.Contains(types, outbox.TypeApplicationStatusChanged)
	})

	s.Run("second interview for the same application", func() {
		app := s.createReviewedApplication()
		s.schedule(app.ID)
		s.schedule(app.ID)

		listed, err := s.service.ListByApplication(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Len(listed, 2)
	})

	s.Run("unknown application is ReferenceNotFound", func() {
		_, err := s.service.Schedule(s.ctx, ScheduleCommand{
			ApplicationRef: id.NewApplicationID(),
			Type:           models.TypeTechnical,
			ScheduledAt:    time.Now().UTC().Add(time.Hour),
			ActorRef:       s.staffRef,
		})
		s.Require().Error(err)
		s.Equal(dErrors.CodeReferenceNotFound, dErrors.CodeOf(err))
		s.Contains(err.Error(), "application")
	})

	s.Run("unknown interviewer is ReferenceNotFound", func() {
		app := s.createReviewedApplication()
		ghost, err := id.ParseAccountRef(uuid.NewString())
		s.Require().NoError(err)

		_, err = s.service.Schedule(s.ctx, ScheduleCommand{
			ApplicationRef: app.ID,
			Type:           models.TypeTechnical,
			ScheduledAt:    time.Now().UTC().Add(time.Hour),
			InterviewerRef: &ghost,
			ActorRef:       s.staffRef,
		})
		s.Require().Error(err)
		s.Equal(dErrors.CodeReferenceNotFound, dErrors.CodeOf(err))
		s.Contains(err.Error(), "interviewer")
	})

	s.Run("past slot is rejected", func() {
		app := s.createReviewedApplication()

		_, err := s.service.Schedule(s.ctx, ScheduleCommand{
			ApplicationRef: app.ID,
			Type:           models.TypeTechnical,
			ScheduledAt:    time.Now().UTC().Add(-time.Hour),
			ActorRef:       s.staffRef,
		})
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})

	s.Run("application that cannot move leaves no interview behind", func() {
		app := s.createReviewedApplication()
		_, err := s.appService.Withdraw(s.ctx, app.ID, s.applicantRef, s.applicantRef)
		s.Require().NoError(err)

		_, err = s.service.Schedule(s.ctx, ScheduleCommand{
			ApplicationRef: app.ID,
			Type:           models.TypeTechnical,
			ScheduledAt:    time.Now().UTC().Add(time.Hour),
			ActorRef:       s.staffRef,
		})
		s.Require().Error(err)
		s.Equal(dErrors.CodeFinalized, dErrors.CodeOf(err))

		listed, err := s.service.ListByApplication(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Empty(listed)
	})
}

func (s *InterviewServiceSuite) TestUpdate() {
	s.Run("reschedules while scheduled", func() {
		iv := s.schedule(s.createReviewedApplication().ID)

		newSlot := time.Now().UTC().Add(72 * time.Hour)
		location := "Boardroom"
		updated, err := s.service.Update(s.ctx, iv.ID, models.UpdatePatch{
			ScheduledAt: &newSlot,
			Location:    &location,
		}, s.staffRef)
		s.Require().NoError(err)

		s.True(updated.ScheduledAt.Equal(newSlot))
		s.Equal("Boardroom", updated.Location)
		s.Equal(60, updated.DurationMinutes)
		s.Require().NotNil(updated.UpdatedByRef)
		s.Equal(s.staffRef, *updated.UpdatedByRef)
	})

	s.Run("completed interview refuses updates", func() {
		iv := s.schedule(s.createReviewedApplication().ID)
		_, err := s.service.Complete(s.ctx, iv.ID, s.staffRef)
		s.Require().NoError(err)

		newSlot := time.Now().UTC().Add(time.Hour)
		_, err = s.service.Update(s.ctx, iv.ID, models.UpdatePatch{ScheduledAt: &newSlot}, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotSchedulable, dErrors.CodeOf(err))
	})

	s.Run("past reschedule is rejected", func() {
		iv := s.schedule(s.createReviewedApplication().ID)

		past := time.Now().UTC().Add(-time.Hour)
		_, err := s.service.Update(s.ctx, iv.ID, models.UpdatePatch{ScheduledAt: &past}, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})

	s.Run("unknown interviewer in patch is ReferenceNotFound", func() {
		iv := s.schedule(s.createReviewedApplication().ID)
		ghost, err := id.ParseAccountRef(uuid.NewString())
		s.Require().NoError(err)

		_, err = s.service.Update(s.ctx, iv.ID, models.UpdatePatch{InterviewerRef: &ghost}, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeReferenceNotFound, dErrors.CodeOf(err))
	})

	s.Run("unknown interview is NotFound", func() {
		newSlot := time.Now().UTC().Add(time.Hour)
		_, err := s.service.Update(s.ctx, id.NewInterviewID(), models.UpdatePatch{ScheduledAt: &newSlot}, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *InterviewServiceSuite) TestCancel() {
	s.Run("cancels and leaves the application alone", func() {
		app := s.createReviewedApplication()
		iv := s.schedule(app.ID)

		cancelled, err := s.service.Cancel(s.ctx, iv.ID, s.staffRef)
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, cancelled.Status)
		s.True(cancelled.Deleted)
		s.NotNil(cancelled.DeletedAt)
		s.Require().NotNil(cancelled.DeletedByRef)
		s.Equal(s.staffRef, *cancelled.DeletedByRef)

		s.Equal(appmodels.StatusInterviewScheduled, s.appStatus(app.ID))
		s.Contains(s.pendingEventTypes(), outbox.TypeInterviewStatusChanged)
	})

	s.Run("cancelled interview drops out of reads", func() {
		iv := s.schedule(s.createReviewedApplication().ID)
		_, err := s.service.Cancel(s.ctx, iv.ID, s.staffRef)
		s.Require().NoError(err)

		_, err = s.service.Get(s.ctx, iv.ID)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))

		_, err = s.service.Cancel(s.ctx, iv.ID, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *InterviewServiceSuite) TestComplete() {
	s.Run("completes and moves the application", func() {
		app := s.createReviewedApplication()
		iv := s.schedule(app.ID)

		completed, err := s.service.Complete(s.ctx, iv.ID, s.staffRef)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, completed.Status)
		s.NotNil(completed.CompletedAt)

		s.Equal(appmodels.StatusInterviewed, s.appStatus(app.ID))
	})

	s.Run("second outcome is refused", func() {
		iv := s.schedule(s.createReviewedApplication().ID)
		_, err := s.service.Complete(s.ctx, iv.ID, s.staffRef)
		s.Require().NoError(err)

		_, err = s.service.Complete(s.ctx, iv.ID, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotSchedulable, dErrors.CodeOf(err))

		_, err = s.service.NoShow(s.ctx, iv.ID, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotSchedulable, dErrors.CodeOf(err))
	})

	s.Run("frozen application fails the outcome and keeps the interview scheduled", func() {
		app := s.createReviewedApplication()
		iv := s.schedule(app.ID)
		_, err := s.appService.Withdraw(s.ctx, app.ID, s.applicantRef, s.applicantRef)
		s.Require().NoError(err)

		_, err = s.service.Complete(s.ctx, iv.ID, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeFinalized, dErrors.CodeOf(err))

		still, err := s.service.Get(s.ctx, iv.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusScheduled, still.Status)
	})
}

func (s *InterviewServiceSuite) TestNoShow() {
	app := s.createReviewedApplication()
	iv := s.schedule(app.ID)

	marked, err := s.service.NoShow(s.ctx, iv.ID, s.staffRef)
	s.Require().NoError(err)
	s.Equal(models.StatusNoShow, marked.Status)
	s.NotNil(marked.CompletedAt)

	rejected, err := s.appService.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(appmodels.StatusRejected, rejected.Status)
	s.Equal("No-show for interview", rejected.RejectionReason)
	s.NotNil(rejected.FinalizedAt)

	s.Contains(s.pendingEventTypes(), outbox.TypeInterviewStatusChanged)
}

func (s *InterviewServiceSuite) TestAddFeedback() {
	s.Run("records feedback on a completed interview", func() {
		iv := s.schedule(s.createReviewedApplication().ID)
		_, err := s.service.Complete(s.ctx, iv.ID, s.staffRef)
		s.Require().NoError(err)

		updated, err := s.service.AddFeedback(s.ctx, iv.ID, "strong systems knowledge", 4, s.staffRef)
		s.Require().NoError(err)
		s.Equal("strong systems knowledge", updated.Feedback)
		s.Equal(4, updated.Rating)
		s.Require().NotNil(updated.UpdatedByRef)
		s.Equal(s.staffRef, *updated.UpdatedByRef)
	})

	s.Run("scheduled interview cannot take feedback", func() {
		iv := s.schedule(s.createReviewedApplication().ID)

		_, err := s.service.AddFeedback(s.ctx, iv.ID, "too early", 3, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotCompleted, dErrors.CodeOf(err))
	})

	s.Run("rating outside bounds is rejected", func() {
		iv := s.schedule(s.createReviewedApplication().ID)
		_, err := s.service.Complete(s.ctx, iv.ID, s.staffRef)
		s.Require().NoError(err)

		_, err = s.service.AddFeedback(s.ctx, iv.ID, "fine", 6, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))

		_, err = s.service.AddFeedback(s.ctx, iv.ID, "fine", 0, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})

	s.Run("empty feedback is rejected", func() {
		iv := s.schedule(s.createReviewedApplication().ID)
		_, err := s.service.Complete(s.ctx, iv.ID, s.staffRef)
		s.Require().NoError(err)

		_, err = s.service.AddFeedback(s.ctx, iv.ID, "   ", 3, s.staffRef)
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})
}

func (s *InterviewServiceSuite) TestListByApplication() {
	app := s.createReviewedApplication()
	other := s.createReviewedApplication()

	second, err := s.service.Schedule(s.ctx, ScheduleCommand{
		ApplicationRef: app.ID,
		Type:           models.TypeOnsite,
		ScheduledAt:    time.Now().UTC().Add(96 * time.Hour),
		ActorRef:       s.staffRef,
	})
	s.Require().NoError(err)
	first := s.schedule(app.ID)
	s.schedule(other.ID)

	listed, err := s.service.ListByApplication(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(first.ID, listed[0].ID)
	s.Equal(second.ID, listed[1].ID)
}
