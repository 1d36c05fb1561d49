package interview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hirelane/internal/interview/models"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
	txcontext "hirelane/pkg/platform/tx"
)

// PostgresStore persists interviews in the interviews table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed interview store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const interviewColumns = `
	id, application_ref, type, status,
	scheduled_at, duration_minutes, location, meeting_link, interviewer_ref,
	feedback, rating, completed_at, updated_by_ref,
	deleted, deleted_at, deleted_by_ref, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, iv *models.Interview) error {
	const query = `
		INSERT INTO interviews (` + interviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
		        $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(iv.ID),
		uuid.UUID(iv.ApplicationRef),
		string(iv.Type),
		string(iv.Status),
		iv.ScheduledAt,
		iv.DurationMinutes,
		iv.Location,
		iv.MeetingLink,
		nullableRef(iv.InterviewerRef),
		iv.Feedback,
		iv.Rating,
		iv.CompletedAt,
		nullableRef(iv.UpdatedByRef),
		iv.Deleted,
		iv.DeletedAt,
		nullableRef(iv.DeletedByRef),
		iv.CreatedAt,
		iv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert interview: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, interviewID id.InterviewID) (*models.Interview, error) {
	const query = `
		SELECT ` + interviewColumns + `
		FROM interviews
		WHERE id = $1 AND NOT deleted
	`
	return scanInterview(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(interviewID)))
}

// Execute locks the row, runs validate on the current state, applies the
// mutation, and writes it back. Callers run it inside a transaction so the
// FOR UPDATE lock holds until commit.
func (s *PostgresStore) Execute(ctx context.Context, interviewID id.InterviewID, validate func(*models.Interview) error, apply func(*models.Interview)) (*models.Interview, error) {
	const query = `
		SELECT ` + interviewColumns + `
		FROM interviews
		WHERE id = $1 AND NOT deleted
		FOR UPDATE
	`
	iv, err := scanInterview(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(interviewID)))
	if err != nil {
		return nil, err
	}

	if err := validate(iv); err != nil {
		return nil, err
	}
	apply(iv)

	if err := s.update(ctx, iv); err != nil {
		return nil, err
	}
	return iv, nil
}

func (s *PostgresStore) update(ctx context.Context, iv *models.Interview) error {
	const query = `
		UPDATE interviews
		SET type = $2, status = $3, scheduled_at = $4, duration_minutes = $5,
		    location = $6, meeting_link = $7, interviewer_ref = $8,
		    feedback = $9, rating = $10, completed_at = $11, updated_by_ref = $12,
		    deleted = $13, deleted_at = $14, deleted_by_ref = $15, updated_at = $16
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(iv.ID),
		string(iv.Type),
		string(iv.Status),
		iv.ScheduledAt,
		iv.DurationMinutes,
		iv.Location,
		iv.MeetingLink,
		nullableRef(iv.InterviewerRef),
		iv.Feedback,
		iv.Rating,
		iv.CompletedAt,
		nullableRef(iv.UpdatedByRef),
		iv.Deleted,
		iv.DeletedAt,
		nullableRef(iv.DeletedByRef),
		iv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update interview: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update interview: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, applicationRef id.ApplicationID) ([]*models.Interview, error) {
	const query = `
		SELECT ` + interviewColumns + `
		FROM interviews
		WHERE application_ref = $1 AND NOT deleted
		ORDER BY scheduled_at, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(applicationRef))
	if err != nil {
		return nil, fmt.Errorf("list interviews by application: %w", err)
	}
	defer rows.Close()
	return scanInterviews(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterview(row rowScanner) (*models.Interview, error) {
	var (
		iv             models.Interview
		interviewID    uuid.UUID
		applicationRef uuid.UUID
		interviewerRef uuid.NullUUID
		updatedByRef   uuid.NullUUID
		deletedByRef   uuid.NullUUID
		itype          string
		status         string
	)
	err := row.Scan(
		&interviewID,
		&applicationRef,
		&itype,
		&status,
		&iv.ScheduledAt,
		&iv.DurationMinutes,
		&iv.Location,
		&iv.MeetingLink,
		&interviewerRef,
		&iv.Feedback,
		&iv.Rating,
		&iv.CompletedAt,
		&updatedByRef,
		&iv.Deleted,
		&iv.DeletedAt,
		&deletedByRef,
		&iv.CreatedAt,
		&iv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan interview: %w", err)
	}

	iv.ID = id.InterviewID(interviewID)
	iv.ApplicationRef = id.ApplicationID(applicationRef)
	iv.Type = models.Type(itype)
	iv.Status = models.Status(status)
	if interviewerRef.Valid {
		ref := id.AccountRef(interviewerRef.UUID)
		iv.InterviewerRef = &ref
	}
	if updatedByRef.Valid {
		ref := id.AccountRef(updatedByRef.UUID)
		iv.UpdatedByRef = &ref
	}
	if deletedByRef.Valid {
		ref := id.AccountRef(deletedByRef.UUID)
		iv.DeletedByRef = &ref
	}
	return &iv, nil
}

func scanInterviews(rows *sql.Rows) ([]*models.Interview, error) {
	var out []*models.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interviews: %w", err)
	}
	return out, nil
}

func nullableRef(ref *id.AccountRef) any {
	if ref == nil {
		return nil
	}
	return uuid.UUID(*ref)
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
