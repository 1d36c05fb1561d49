package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hirelane/internal/directory/models"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
	txcontext "hirelane/pkg/platform/tx"
)

// PostgresStore persists profiles in the profiles table. The unique index on
// account_ref backs the one-profile-per-account invariant.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
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

const profileColumns = `
	id, account_ref, kind, email, first_name, last_name,
	email_verified, active, resume_ref, company_name, employer_ref, title,
	created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, p *models.Profile) error {
	const query = `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		uuid.UUID(p.AccountRef),
		string(p.Kind),
		p.Email,
		p.FirstName,
		p.LastName,
		p.EmailVerified,
		p.Active,
		p.ResumeRef,
		p.CompanyName,
		p.EmployerRef,
		p.Title,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByAccountRef(ctx context.Context, ref id.AccountRef) (*models.Profile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE account_ref = $1
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(ref)))
}

func (s *PostgresStore) FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE id = $1
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(profileID)))
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Profile) error {
	const query = `
		UPDATE profiles
		SET email = $2, first_name = $3, last_name = $4,
		    email_verified = $5, active = $6, resume_ref = $7,
		    company_name = $8, employer_ref = $9, title = $10,
		    updated_at = $11
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.Email,
		p.FirstName,
		p.LastName,
		p.EmailVerified,
		p.Active,
		p.ResumeRef,
		p.CompanyName,
		p.EmployerRef,
		p.Title,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExistsActive(ctx context.Context, ref id.AccountRef, kind models.Kind) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM profiles
			WHERE account_ref = $1 AND kind = $2 AND active
		)
	`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(ref), string(kind)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check profile existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Profile, error) {
	var (
		p          models.Profile
		profileID  uuid.UUID
		accountRef uuid.UUID
		kind       string
	)
	err := row.Scan(
		&profileID,
		&accountRef,
		&kind,
		&p.Email,
		&p.FirstName,
		&p.LastName,
		&p.EmailVerified,
		&p.Active,
		&p.ResumeRef,
		&p.CompanyName,
		&p.EmployerRef,
		&p.Title,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	p.ID = id.ProfileID(profileID)
	p.AccountRef = id.AccountRef(accountRef)
	p.Kind = models.Kind(kind)
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
