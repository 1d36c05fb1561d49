package posting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hirelane/internal/posting/models"
	id "hirelane/pkg/domain"
	"hirelane/pkg/platform/sentinel"
	txcontext "hirelane/pkg/platform/tx"
)

// PostgresStore persists postings in the postings table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed posting store.
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

const postingColumns = `
	id, company_ref, title, description, location, status,
	created_at, updated_at, closed_at
`

func (s *PostgresStore) Create(ctx context.Context, p *models.Posting) error {
	const query = `
		INSERT INTO postings (` + postingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		uuid.UUID(p.CompanyRef),
		p.Title,
		p.Description,
		p.Location,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
		nullTime(p.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("insert posting: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, postingID id.PostingID) (*models.Posting, error) {
	const query = `
		SELECT ` + postingColumns + `
		FROM postings
		WHERE id = $1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(postingID))
	p, err := scanPosting(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find posting: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Posting) error {
	const query = `
		UPDATE postings
		SET title = $2, description = $3, location = $4, status = $5,
		    updated_at = $6, closed_at = $7
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.Title,
		p.Description,
		p.Location,
		string(p.Status),
		p.UpdatedAt,
		nullTime(p.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("update posting: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update posting: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, status *models.Status) ([]*models.Posting, error) {
	query := `
		SELECT ` + postingColumns + `
		FROM postings
	`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var out []*models.Posting
	for rows.Next() {
		p, err := scanPosting(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ExistsOpen(ctx context.Context, postingID id.PostingID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM postings
			WHERE id = $1 AND status = 'OPEN'
		)
	`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(postingID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check posting existence: %w", err)
	}
	return exists, nil
}

func scanPosting(scan func(dest ...any) error) (*models.Posting, error) {
	var (
		p          models.Posting
		postingID  uuid.UUID
		companyRef uuid.UUID
		status     string
		closedAt   sql.NullTime
	)
	err := scan(
		&postingID,
		&companyRef,
		&p.Title,
		&p.Description,
		&p.Location,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&closedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ID = id.PostingID(postingID)
	p.CompanyRef = id.AccountRef(companyRef)
	p.Status = models.Status(status)
	if closedAt.Valid {
		t := closedAt.Time
		p.ClosedAt = &t
	}
	return &p, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
