package consumer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"hirelane/internal/directory/models"
	dirservice "hirelane/internal/directory/service"
	"hirelane/internal/directory/store/profile"
	"hirelane/internal/platform/kafka/consumer"
	"hirelane/internal/reconcile/events"
	"hirelane/internal/reconcile/ledger"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/platform/sentinel"
	"hirelane/pkg/platform/tx"
)

type ProjectorSuite struct {
	suite.Suite
	ctx       context.Context
	profiles  *profile.InMemory
	ledger    *ledger.InMemory
	directory *dirservice.Service
	router    *Router
}

func TestProjectorSuite(t *testing.T) {
	suite.Run(t, new(ProjectorSuite))
}

func (s *ProjectorSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()
	s.profiles = profile.NewInMemory()
	s.ledger = ledger.NewInMemory()
	s.directory = dirservice.New(s.profiles, dirservice.WithLogger(logger))
	projector := New(s.directory, s.ledger, tx.NewMemoryRunner(), WithLogger(logger))
	s.router = projector.Router()
}

func (s *ProjectorSuite) newAccountRef() id.AccountRef {
	ref, err := id.ParseAccountRef(uuid.NewString())
	s.Require().NoError(err)
	return ref
}

func (s *ProjectorSuite) message(topic string, kind events.Kind, payload any) (*consumer.Message, events.Envelope) {
	env := events.Envelope{
		EventID:    id.NewEventID(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
	}
	data, err := events.Marshal(env, payload)
	s.Require().NoError(err)
	return &consumer.Message{
		Topic:    topic,
		Value:    data,
		Attempts: 1,
	}, env
}

func (s *ProjectorSuite) createdMessage(ref id.AccountRef, role events.Role) (*consumer.Message, events.Envelope) {
	return s.message(events.TopicIdentityCreated, events.KindIdentityCreated, events.IdentityCreated{
		AccountRef: ref,
		Email:      "person@example.com",
		FirstName:  "Dana",
		LastName:   "Okafor",
		Role:       role,
	})
}

func (s *ProjectorSuite) TestIdentityCreatedProjectsProfile() {
	ref := s.newAccountRef()
	msg, env := s.createdMessage(ref, events.RoleApplicant)

	s.Require().NoError(s.router.Handle(s.ctx, msg))

	got, err := s.directory.GetByAccountRef(s.ctx, ref)
	s.Require().NoError(err)
	s.Equal(models.KindJobSeeker, got.Kind)
	s.Equal("person@example.com", got.Email)
	s.True(got.Active)
	s.False(got.EmailVerified)

	rec, err := s.ledger.Get(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusProcessed, rec.Status)
	s.Equal(events.KindIdentityCreated, rec.Kind)
	s.Equal(got.ID.String(), rec.RelatedEntityID)
	s.Equal(1, rec.Attempts)
}

func (s *ProjectorSuite) TestIdentityCreatedRoleMapping() {
	cases := []struct {
		role events.Role
		kind models.Kind
	}{
		{events.RoleApplicant, models.KindJobSeeker},
		{events.RoleCompany, models.KindCompany},
		{events.RoleStaff, models.KindStaffMember},
	}
	for _, tc := range cases {
		s.Run(string(tc.role), func() {
			ref := s.newAccountRef()
			msg, _ := s.createdMessage(ref, tc.role)
			s.Require().NoError(s.router.Handle(s.ctx, msg))

			got, err := s.directory.GetByAccountRef(s.ctx, ref)
			s.Require().NoError(err)
			s.Equal(tc.kind, got.Kind)
		})
	}
}

func (s *ProjectorSuite) TestRedeliveredIdentityCreatedIsIdempotent() {
	ref := s.newAccountRef()
	msg, env := s.createdMessage(ref, events.RoleApplicant)

	s.Require().NoError(s.router.Handle(s.ctx, msg))
	first, err := s.directory.GetByAccountRef(s.ctx, ref)
	s.Require().NoError(err)

	// Simulated redelivery of the exact same record.
	s.Require().NoError(s.router.Handle(s.ctx, msg))

	second, err := s.directory.GetByAccountRef(s.ctx, ref)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(first.CreatedAt, second.CreatedAt)

	rec, err := s.ledger.Get(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusProcessed, rec.Status)
}

func (s *ProjectorSuite) TestIdentityCreatedUnknownRole() {
	ref := s.newAccountRef()
	msg, env := s.createdMessage(ref, events.RoleUnknown)

	s.Require().NoError(s.router.Handle(s.ctx, msg))

	_, err := s.directory.GetByAccountRef(s.ctx, ref)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	// Consumed without a profile: the event must not be redelivered.
	rec, err := s.ledger.Get(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusProcessed, rec.Status)
	s.Empty(rec.RelatedEntityID)
}

func (s *ProjectorSuite) TestIdentityCreatedConvergesOnExistingProfile() {
	ref := s.newAccountRef()
	existing, err := s.directory.CreateFromIdentity(s.ctx, dirservice.CreateCommand{
		AccountRef: ref,
		Kind:       models.KindJobSeeker,
		Email:      "original@example.com",
		FirstName:  "Original",
		LastName:   "Owner",
	})
	s.Require().NoError(err)

	// Upstream re-emitted creation under a fresh eventId.
	msg, env := s.createdMessage(ref, events.RoleApplicant)
	s.Require().NoError(s.router.Handle(s.ctx, msg))

	got, err := s.directory.GetByAccountRef(s.ctx, ref)
	s.Require().NoError(err)
	s.Equal(existing.ID, got.ID)
	s.Equal("original@example.com", got.Email)

	rec, err := s.ledger.Get(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusProcessed, rec.Status)
	s.Equal(existing.ID.String(), rec.RelatedEntityID)
}

func (s *ProjectorSuite) TestEmailVerifiedBeforeCreationRetries() {
	ref := s.newAccountRef()
	verify, env := s.message(events.TopicEmailVerified, events.KindEmailVerified, events.EmailVerified{
		AccountRef: ref,
	})

	err := s.router.Handle(s.ctx, verify)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.ledger.Get(s.ctx, env.EventID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// Creation lands, then the broker redelivers the verification.
	created, _ := s.createdMessage(ref, events.RoleApplicant)
	s.Require().NoError(s.router.Handle(s.ctx, created))
	s.Require().NoError(s.router.Handle(s.ctx, verify))

	got, err := s.directory.GetByAccountRef(s.ctx, ref)
	s.Require().NoError(err)
	s.True(got.EmailVerified)

	rec, err := s.ledger.Get(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusProcessed, rec.Status)
	s.Equal(got.ID.String(), rec.RelatedEntityID)
}

func (s *ProjectorSuite) TestRoleChangedIsRecordedWithoutMigration() {
	ref := s.newAccountRef()
	created, _ := s.createdMessage(ref, events.RoleApplicant)
	s.Require().NoError(s.router.Handle(s.ctx, created))

	change, env := s.message(events.TopicRoleChanged, events.KindRoleChanged, events.RoleChanged{
		AccountRef: ref,
		OldRole:    events.RoleApplicant,
		NewRole:    events.RoleCompany,
	})
	s.Require().NoError(s.router.Handle(s.ctx, change))

	got, err := s.directory.GetByAccountRef(s.ctx, ref)
	s.Require().NoError(err)
	s.Equal(models.KindJobSeeker, got.Kind)

	rec, err := s.ledger.Get(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusProcessed, rec.Status)
	s.Empty(rec.RelatedEntityID)
}

func (s *ProjectorSuite) TestAccountDisabledDeactivatesProfile() {
	ref := s.newAccountRef()
	created, _ := s.createdMessage(ref, events.RoleCompany)
	s.Require().NoError(s.router.Handle(s.ctx, created))

	disable, env := s.message(events.TopicAccountDisabled, events.KindAccountDisabled, events.AccountDisabled{
		AccountRef: ref,
		Reason:     "terms violation",
		ActorRef:   uuid.NewString(),
	})
	s.Require().NoError(s.router.Handle(s.ctx, disable))

	got, err := s.directory.GetByAccountRef(s.ctx, ref)
	s.Require().NoError(err)
	s.False(got.Active)

	rec, err := s.ledger.Get(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusProcessed, rec.Status)

	// Redelivery after commit is a skip, not a second deactivation.
	s.Require().NoError(s.router.Handle(s.ctx, disable))
}

func (s *ProjectorSuite) TestAccountDisabledUnknownProfileRetries() {
	disable, env := s.message(events.TopicAccountDisabled, events.KindAccountDisabled, events.AccountDisabled{
		AccountRef: s.newAccountRef(),
		Reason:     "fraud",
	})

	err := s.router.Handle(s.ctx, disable)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.ledger.Get(s.ctx, env.EventID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ProjectorSuite) TestMalformedPayloadFails() {
	msg := &consumer.Message{
		Topic:    events.TopicIdentityCreated,
		Value:    []byte(`{"eventId":"not-a-uuid","kind":"IDENTITY_CREATED","payload":{}}`),
		Attempts: 1,
	}

	err := s.router.Handle(s.ctx, msg)
	s.True(dErrors.HasCode(err, dErrors.CodeDeserialization))
}

func (s *ProjectorSuite) TestUnroutedTopicIsSkipped() {
	msg := &consumer.Message{
		Topic:    "identity.password-changed",
		Value:    []byte(`{}`),
		Attempts: 1,
	}
	s.NoError(s.router.Handle(s.ctx, msg))
}

func (s *ProjectorSuite) TestParkRecorderWritesFailedRow() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	onPark := NewParkRecorder(s.ledger, logger, nil)

	msg, env := s.createdMessage(s.newAccountRef(), events.RoleApplicant)
	msg.Attempts = 5
	onPark(s.ctx, msg, context.DeadlineExceeded)

	rec, err := s.ledger.Get(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusFailed, rec.Status)
	s.Equal(events.KindIdentityCreated, rec.Kind)
	s.Equal(5, rec.Attempts)
	s.Contains(rec.LastError, "deadline")
}

func (s *ProjectorSuite) TestParkRecorderToleratesGarbage() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	onPark := NewParkRecorder(s.ledger, logger, nil)

	onPark(s.ctx, &consumer.Message{
		Topic:    events.TopicIdentityCreated,
		Value:    []byte("not json at all"),
		Attempts: 5,
	}, context.DeadlineExceeded)
}
