package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hirelane/internal/application/models"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
	txcontext "hirelane/pkg/platform/tx"
)

// PostgresStore persists applications in the applications table. A partial
// unique index on (applicant_ref, posting_ref) WHERE NOT deleted backs the
// one-live-application-per-pair invariant; the service's pre-check gives the
// friendly error, the index closes the concurrent window.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed application store.
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

const applicationColumns = `
	id, applicant_ref, posting_ref, submitter_ref, reviewer_ref,
	cover_letter_ref, resume_ref, portfolio_ref,
	status, hr_notes, rejection_reason, client_info,
	submitted_at, reviewed_at, interview_scheduled_at, offer_extended_at, finalized_at,
	deleted, deleted_at, deleted_by_ref, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, a *models.Application) error {
	const query = `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID),
		uuid.UUID(a.ApplicantRef),
		uuid.UUID(a.PostingRef),
		uuid.UUID(a.SubmitterRef),
		nullableRef(a.ReviewerRef),
		a.Documents.CoverLetterRef,
		a.Documents.ResumeRef,
		a.Documents.PortfolioRef,
		string(a.Status),
		a.HRNotes,
		a.RejectionReason,
		a.ClientInfo,
		a.SubmittedAt,
		a.ReviewedAt,
		a.InterviewScheduledAt,
		a.OfferExtendedAt,
		a.FinalizedAt,
		a.Deleted,
		a.DeletedAt,
		nullableRef(a.DeletedByRef),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE id = $1 AND NOT deleted
	`
	return scanApplication(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
}

// Execute locks the row, runs validate on the current state, applies the
// mutation, and writes it back. Callers run it inside a transaction so the
// FOR UPDATE lock holds until commit.
func (s *PostgresStore) Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, apply func(*models.Application)) (*models.Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE id = $1 AND NOT deleted
		FOR UPDATE
	`
	a, err := scanApplication(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if err != nil {
		return nil, err
	}

	if err := validate(a); err != nil {
		return nil, err
	}
	apply(a)

	if err := s.update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) update(ctx context.Context, a *models.Application) error {
	const query = `
		UPDATE applications
		SET reviewer_ref = $2, status = $3, hr_notes = $4, rejection_reason = $5,
		    reviewed_at = $6, interview_scheduled_at = $7, offer_extended_at = $8,
		    finalized_at = $9, deleted = $10, deleted_at = $11, deleted_by_ref = $12,
		    updated_at = $13
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID),
		nullableRef(a.ReviewerRef),
		string(a.Status),
		a.HRNotes,
		a.RejectionReason,
		a.ReviewedAt,
		a.InterviewScheduledAt,
		a.OfferExtendedAt,
		a.FinalizedAt,
		a.Deleted,
		a.DeletedAt,
		nullableRef(a.DeletedByRef),
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExistsLive(ctx context.Context, applicantRef id.AccountRef, postingRef id.PostingID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM applications
			WHERE applicant_ref = $1 AND posting_ref = $2 AND NOT deleted
		)
	`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(applicantRef), uuid.UUID(postingRef)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check live application: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ExistsLiveByID(ctx context.Context, appID id.ApplicationID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM applications
			WHERE id = $1 AND NOT deleted
		)
	`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check application existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListByApplicant(ctx context.Context, applicantRef id.AccountRef) ([]*models.Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE applicant_ref = $1 AND NOT deleted
		ORDER BY submitted_at DESC, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(applicantRef))
	if err != nil {
		return nil, fmt.Errorf("list applications by applicant: %w", err)
	}
	defer rows.Close()
	return scanApplications(rows)
}

func (s *PostgresStore) ListByPosting(ctx context.Context, postingRef id.PostingID) ([]*models.Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE posting_ref = $1 AND NOT deleted
		ORDER BY submitted_at DESC, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(postingRef))
	if err != nil {
		return nil, fmt.Errorf("list applications by posting: %w", err)
	}
	defer rows.Close()
	return scanApplications(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		a            models.Application
		appID        uuid.UUID
		applicantRef uuid.UUID
		postingRef   uuid.UUID
		submitterRef uuid.UUID
		reviewerRef  uuid.NullUUID
		deletedByRef uuid.NullUUID
		status       string
	)
	err := row.Scan(
		&appID,
		&applicantRef,
		&postingRef,
		&submitterRef,
		&reviewerRef,
		&a.Documents.CoverLetterRef,
		&a.Documents.ResumeRef,
		&a.Documents.PortfolioRef,
		&status,
		&a.HRNotes,
		&a.RejectionReason,
		&a.ClientInfo,
		&a.SubmittedAt,
		&a.ReviewedAt,
		&a.InterviewScheduledAt,
		&a.OfferExtendedAt,
		&a.FinalizedAt,
		&a.Deleted,
		&a.DeletedAt,
		&deletedByRef,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}

	a.ID = id.ApplicationID(appID)
	a.ApplicantRef = id.AccountRef(applicantRef)
	a.PostingRef = id.PostingID(postingRef)
	a.SubmitterRef = id.AccountRef(submitterRef)
	a.Status = models.Status(status)
	if reviewerRef.Valid {
		ref := id.AccountRef(reviewerRef.UUID)
		a.ReviewerRef = &ref
	}
	if deletedByRef.Valid {
		ref := id.AccountRef(deletedByRef.UUID)
		a.DeletedByRef = &ref
	}
	return &a, nil
}

func scanApplications(rows *sql.Rows) ([]*models.Application, error) {
	var out []*models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
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
