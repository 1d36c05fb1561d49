package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"hirelane/internal/reconcile/events"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
	txcontext "hirelane/pkg/platform/tx"
	"hirelane/pkg/requestcontext"
)

// PostgresStore persists ledger records in the processed_events table.
// The primary key on event_id is what makes duplicate delivery safe.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) HasProcessed(ctx context.Context, eventID id.EventID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM processed_events
			WHERE event_id = $1 AND status = 'PROCESSED'
		)
	`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(eventID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check processed event: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) RecordProcessed(ctx context.Context, rec Record) error {
	const query = `
		INSERT INTO processed_events (event_id, kind, related_entity_id, status, attempts, last_error, processed_at)
		VALUES ($1, $2, $3, 'PROCESSED', $4, '', $5)
		ON CONFLICT (event_id) DO UPDATE
		SET status            = 'PROCESSED',
		    related_entity_id = EXCLUDED.related_entity_id,
		    attempts          = processed_events.attempts + EXCLUDED.attempts,
		    last_error        = '',
		    processed_at      = EXCLUDED.processed_at
		WHERE processed_events.status = 'FAILED'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.EventID),
		string(rec.Kind),
		rec.RelatedEntityID,
		rec.Attempts,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("record processed event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record processed event: rows affected: %w", err)
	}
	if affected == 0 {
		// A PROCESSED row already exists: duplicate delivery.
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) RecordFailed(ctx context.Context, rec Record) error {
	const query = `
		INSERT INTO processed_events (event_id, kind, related_entity_id, status, attempts, last_error, processed_at)
		VALUES ($1, $2, '', 'FAILED', $3, $4, $5)
		ON CONFLICT (event_id) DO UPDATE
		SET attempts     = processed_events.attempts + EXCLUDED.attempts,
		    last_error   = EXCLUDED.last_error,
		    processed_at = EXCLUDED.processed_at
		WHERE processed_events.status = 'FAILED'
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.EventID),
		string(rec.Kind),
		rec.Attempts,
		rec.LastError,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("record failed event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, eventID id.EventID) (Record, error) {
	const query = `
		SELECT event_id, kind, related_entity_id, status, attempts, last_error, processed_at
		FROM processed_events
		WHERE event_id = $1
	`
	var (
		rec    Record
		rawID  uuid.UUID
		kind   string
		status string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(eventID)).Scan(
		&rawID,
		&kind,
		&rec.RelatedEntityID,
		&status,
		&rec.Attempts,
		&rec.LastError,
		&rec.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, sentinel.ErrNotFound
		}
		return Record{}, fmt.Errorf("get ledger record: %w", err)
	}

	rec.EventID = id.EventID(rawID)
	rec.Kind = events.Kind(kind)
	rec.Status = Status(status)
	return rec, nil
}
