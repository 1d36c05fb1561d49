package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"hirelane/internal/reconcile/events"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
)

type LedgerSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *LedgerSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) TestRecordProcessed() {
	s.Run("fresh event is not processed", func() {
		ok, err := s.store.HasProcessed(s.ctx, id.NewEventID())
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("recording marks the event processed", func() {
		eventID := id.NewEventID()
		err := s.store.RecordProcessed(s.ctx, Record{
			EventID:         eventID,
			Kind:            events.KindIdentityCreated,
			RelatedEntityID: id.NewProfileID().String(),
			Attempts:        1,
		})
		s.Require().NoError(err)

		ok, err := s.store.HasProcessed(s.ctx, eventID)
		s.Require().NoError(err)
		s.True(ok)

		rec, err := s.store.Get(s.ctx, eventID)
		s.Require().NoError(err)
		s.Equal(StatusProcessed, rec.Status)
		s.Equal(1, rec.Attempts)
		s.False(rec.ProcessedAt.IsZero())
	})

	s.Run("second record for the same event conflicts", func() {
		eventID := id.NewEventID()
		rec := Record{EventID: eventID, Kind: events.KindEmailVerified, Attempts: 1}

		s.Require().NoError(s.store.RecordProcessed(s.ctx, rec))
		err := s.store.RecordProcessed(s.ctx, rec)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *LedgerSuite) TestRecordFailed() {
	s.Run("parked event is not processed", func() {
		eventID := id.NewEventID()
		err := s.store.RecordFailed(s.ctx, Record{
			EventID:   eventID,
			Kind:      events.KindAccountDisabled,
			Attempts:  5,
			LastError: "profile not found",
		})
		s.Require().NoError(err)

		ok, err := s.store.HasProcessed(s.ctx, eventID)
		s.Require().NoError(err)
		s.False(ok)

		rec, err := s.store.Get(s.ctx, eventID)
		s.Require().NoError(err)
		s.Equal(StatusFailed, rec.Status)
		s.Equal("profile not found", rec.LastError)
	})

	s.Run("repeat failures accumulate attempts", func() {
		eventID := id.NewEventID()
		rec := Record{EventID: eventID, Kind: events.KindEmailVerified, Attempts: 5, LastError: "x"}

		s.Require().NoError(s.store.RecordFailed(s.ctx, rec))
		s.Require().NoError(s.store.RecordFailed(s.ctx, rec))

		got, err := s.store.Get(s.ctx, eventID)
		s.Require().NoError(err)
		s.Equal(10, got.Attempts)
	})

	s.Run("failure after success does not clobber", func() {
		eventID := id.NewEventID()
		s.Require().NoError(s.store.RecordProcessed(s.ctx, Record{EventID: eventID, Kind: events.KindEmailVerified, Attempts: 1}))

		s.Require().NoError(s.store.RecordFailed(s.ctx, Record{EventID: eventID, Kind: events.KindEmailVerified, Attempts: 1, LastError: "late"}))

		rec, err := s.store.Get(s.ctx, eventID)
		s.Require().NoError(err)
		s.Equal(StatusProcessed, rec.Status)
		s.Empty(rec.LastError)
	})
}

func (s *LedgerSuite) TestFailedPromotesToProcessed() {
	eventID := id.NewEventID()
	s.Require().NoError(s.store.RecordFailed(s.ctx, Record{
		EventID:   eventID,
		Kind:      events.KindIdentityCreated,
		Attempts:  5,
		LastError: "store unavailable",
	}))

	err := s.store.RecordProcessed(s.ctx, Record{
		EventID:         eventID,
		Kind:            events.KindIdentityCreated,
		RelatedEntityID: id.NewProfileID().String(),
		Attempts:        1,
	})
	s.Require().NoError(err)

	rec, err := s.store.Get(s.ctx, eventID)
	s.Require().NoError(err)
	s.Equal(StatusProcessed, rec.Status)
	s.Equal(6, rec.Attempts)
	s.Empty(rec.LastError)
}

func (s *LedgerSuite) TestGetUnknownEvent() {
	_, err := s.store.Get(s.ctx, id.NewEventID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
