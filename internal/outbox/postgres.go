package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hirelane/pkg/platform/sentinel"
	txcontext "hirelane/pkg/platform/tx"
)

// PostgresStore persists outbox rows in the outbox_events table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed outbox store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, e *Event) error {
	const query = `
		INSERT INTO outbox_events (id, topic, key, event_type, payload, status, attempts, last_error, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		e.ID,
		e.Topic,
		e.Key,
		e.EventType,
		e.Payload,
		string(e.Status),
		e.Attempts,
		e.LastError,
		e.CreatedAt,
		e.PublishedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]*Event, error) {
	const query = `
		SELECT id, topic, key, event_type, payload, status, attempts, last_error, created_at, published_at
		FROM outbox_events
		WHERE status = 'PENDING'
		ORDER BY created_at, id
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var (
			e      Event
			status string
		)
		err := rows.Scan(
			&e.ID,
			&e.Topic,
			&e.Key,
			&e.EventType,
			&e.Payload,
			&status,
			&e.Attempts,
			&e.LastError,
			&e.CreatedAt,
			&e.PublishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Status = Status(status)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	const query = `
		UPDATE outbox_events
		SET status = 'PUBLISHED', published_at = $2
		WHERE id = $1
	`
	return s.exec(ctx, query, eventID, at)
}

func (s *PostgresStore) MarkAttemptFailed(ctx context.Context, eventID uuid.UUID, lastError string, final bool) error {
	status := string(StatusPending)
	if final {
		status = string(StatusFailed)
	}
	const query = `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $2, status = $3
		WHERE id = $1
	`
	return s.exec(ctx, query, eventID, lastError, status)
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update outbox event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update outbox event: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
