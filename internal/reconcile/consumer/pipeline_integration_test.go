//go:build integration

package consumer_test

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
	"hirelane/internal/platform/kafka/admin"
	kafkaconsumer "hirelane/internal/platform/kafka/consumer"
	"hirelane/internal/platform/kafka/producer"
	reconsumer "hirelane/internal/reconcile/consumer"
	"hirelane/internal/reconcile/events"
	"hirelane/internal/reconcile/ledger"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/tx"
	"hirelane/pkg/testutil/containers"
)

const (
	pipelineDLQTopic = "hirelane.identity-dlq"
	pipelineWait     = 30 * time.Second
	pipelineTick     = 100 * time.Millisecond
)

// PipelineSuite drives the full path: produce to Redpanda, consume through
// the group, project into the directory, record in the ledger. One group
// runs for the whole suite; tests isolate themselves by account reference.
type PipelineSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	producer  *producer.Producer
	group     *kafkaconsumer.Group
	profiles  *profile.InMemory
	ledger    *ledger.InMemory
	directory *dirservice.Service
}

func TestPipelineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupSuite() {
	mgr := containers.GetManager()
	redpanda := mgr.GetRedpanda(s.T())
	brokers := []string{redpanda.Broker}

	ctx := context.Background()
	err := admin.EnsureTopics(ctx, brokers, append(events.Topics(), pipelineDLQTopic)...)
	s.Require().NoError(err)

	s.producer, err = producer.New(brokers)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.profiles = profile.NewInMemory()
	s.ledger = ledger.NewInMemory()
	s.directory = dirservice.New(s.profiles, dirservice.WithLogger(logger))

	projector := reconsumer.New(s.directory, s.ledger, tx.NewMemoryRunner(), reconsumer.WithLogger(logger))

	s.group, err = kafkaconsumer.New(kafkaconsumer.Config{
		Brokers:       brokers,
		Group:         "reconcile-e2e-" + uuid.NewString(),
		Topics:        events.Topics(),
		MaxAttempts:   2,
		HandleTimeout: 5 * time.Second,
		DLQTopic:      pipelineDLQTopic,
		Producer:      s.producer,
		OnPark:        reconsumer.NewParkRecorder(s.ledger, logger, nil),
	}, projector.Router(), logger)
	s.Require().NoError(err)

	s.ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		_ = s.group.Run(s.ctx)
	}()
}

func (s *PipelineSuite) TearDownSuite() {
	s.cancel()
	s.group.Close()
	s.producer.Close()
}

func (s *PipelineSuite) newAccountRef() id.AccountRef {
	ref, err := id.ParseAccountRef(uuid.NewString())
	s.Require().NoError(err)
	return ref
}

func (s *PipelineSuite) produce(topic string, kind events.Kind, key string, payload any) events.Envelope {
	env := events.Envelope{
		EventID:    id.NewEventID(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
	}
	data, err := events.Marshal(env, payload)
	s.Require().NoError(err)
	s.Require().NoError(s.producer.Produce(context.Background(), topic, []byte(key), data))
	return env
}

func (s *PipelineSuite) produceCreated(ref id.AccountRef) events.Envelope {
	return s.produce(events.TopicIdentityCreated, events.KindIdentityCreated, ref.String(), events.IdentityCreated{
		AccountRef: ref,
		Email:      "pipeline@example.com",
		FirstName:  "Priya",
		LastName:   "Raman",
		Role:       events.RoleApplicant,
	})
}

func (s *PipelineSuite) TestCreatedEventProjectsProfile() {
	ref := s.newAccountRef()
	env := s.produceCreated(ref)

	s.Require().Eventually(func() bool {
		_, err := s.directory.GetByAccountRef(s.ctx, ref)
		return err == nil
	}, pipelineWait, pipelineTick, "profile never appeared")

	got, err := s.directory.GetByAccountRef(s.ctx, ref)
	s.Require().NoError(err)
	s.Equal(models.KindJobSeeker, got.Kind)
	s.Equal("pipeline@example.com", got.Email)
	s.False(got.EmailVerified)

	processed, err := s.ledger.HasProcessed(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.True(processed)
}

func (s *PipelineSuite) TestDuplicateDeliveryAppliesOnce() {
	ref := s.newAccountRef()
	env := s.produceCreated(ref)

	// Replayed envelope, byte for byte. Same key, so it lands behind the
	// original on the same partition.
	data, err := events.Marshal(env, events.IdentityCreated{
		AccountRef: ref,
		Email:      "pipeline@example.com",
		FirstName:  "Priya",
		LastName:   "Raman",
		Role:       events.RoleApplicant,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.producer.Produce(context.Background(), events.TopicIdentityCreated, []byte(ref.String()), data))

	// A trailing marker event: once it is applied, the duplicate before it
	// has been consumed too.
	s.produce(events.TopicEmailVerified, events.KindEmailVerified, ref.String(), events.EmailVerified{AccountRef: ref})

	s.Require().Eventually(func() bool {
		got, err := s.directory.GetByAccountRef(s.ctx, ref)
		return err == nil && got.EmailVerified
	}, pipelineWait, pipelineTick, "marker event never applied")

	rec, err := s.ledger.Get(s.ctx, env.EventID)
	s.Require().NoError(err)
	s.Equal(ledger.StatusProcessed, rec.Status)
	s.Equal(1, rec.Attempts, "duplicate must not re-apply")
}

func (s *PipelineSuite) TestPoisonRecordParksToDLQ() {
	// Valid envelope, junk payload: decoding fails on every attempt, so the
	// record exhausts its budget and parks.
	eventID := id.NewEventID()
	data := []byte(`{"eventId":"` + eventID.String() + `","kind":"IDENTITY_CREATED",` +
		`"occurredAt":"2026-08-01T12:00:00Z",` +
		`"payload":{"accountRef":"not-a-uuid","email":"poison@example.com"}}`)
	s.Require().NoError(s.producer.Produce(context.Background(), events.TopicIdentityCreated, []byte("poison"), data))

	s.Require().Eventually(func() bool {
		rec, err := s.ledger.Get(s.ctx, eventID)
		return err == nil && rec.Status == ledger.StatusFailed
	}, pipelineWait, pipelineTick, "poison record never parked")

	rec, err := s.ledger.Get(s.ctx, eventID)
	s.Require().NoError(err)
	s.Equal(2, rec.Attempts)
	s.NotEmpty(rec.LastError)

	s.Run("later records on the topic still process", func() {
		ref := s.newAccountRef()
		s.produceCreated(ref)

		s.Require().Eventually(func() bool {
			_, err := s.directory.GetByAccountRef(s.ctx, ref)
			return err == nil
		}, pipelineWait, pipelineTick, "follow-up event blocked behind parked record")
	})
}
