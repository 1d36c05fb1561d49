//go:build integration

package containers

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// schema bootstraps the tables the stores expect. Migration tooling is out
// of scope, so integration suites create the schema directly.
const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id             UUID PRIMARY KEY,
	account_ref    UUID NOT NULL UNIQUE,
	kind           TEXT NOT NULL,
	email          TEXT NOT NULL,
	first_name     TEXT NOT NULL DEFAULT '',
	last_name      TEXT NOT NULL DEFAULT '',
	email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	active         BOOLEAN NOT NULL DEFAULT TRUE,
	resume_ref     TEXT NOT NULL DEFAULT '',
	company_name   TEXT NOT NULL DEFAULT '',
	employer_ref   TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS postings (
	id          UUID PRIMARY KEY,
	company_ref UUID NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	closed_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS applications (
	id                     UUID PRIMARY KEY,
	applicant_ref          UUID NOT NULL,
	posting_ref            UUID NOT NULL,
	submitter_ref          UUID NOT NULL,
	reviewer_ref           UUID,
	cover_letter_ref       TEXT NOT NULL DEFAULT '',
	resume_ref             TEXT NOT NULL DEFAULT '',
	portfolio_ref          TEXT NOT NULL DEFAULT '',
	status                 TEXT NOT NULL,
	hr_notes               TEXT NOT NULL DEFAULT '',
	rejection_reason       TEXT NOT NULL DEFAULT '',
	client_info            TEXT NOT NULL DEFAULT '',
	submitted_at           TIMESTAMPTZ NOT NULL,
	reviewed_at            TIMESTAMPTZ,
	interview_scheduled_at TIMESTAMPTZ,
	offer_extended_at      TIMESTAMPTZ,
	finalized_at           TIMESTAMPTZ,
	deleted                BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at             TIMESTAMPTZ,
	deleted_by_ref         UUID,
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS applications_live_pair
	ON applications (applicant_ref, posting_ref) WHERE NOT deleted;

CREATE TABLE IF NOT EXISTS interviews (
	id               UUID PRIMARY KEY,
	application_ref  UUID NOT NULL,
	type             TEXT NOT NULL,
	status           TEXT NOT NULL,
	scheduled_at     TIMESTAMPTZ NOT NULL,
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	location         TEXT NOT NULL DEFAULT '',
	meeting_link     TEXT NOT NULL DEFAULT '',
	interviewer_ref  UUID,
	feedback         TEXT NOT NULL DEFAULT '',
	rating           INTEGER NOT NULL DEFAULT 0,
	completed_at     TIMESTAMPTZ,
	updated_by_ref   UUID,
	deleted          BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at       TIMESTAMPTZ,
	deleted_by_ref   UUID,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS interviews_by_application
	ON interviews (application_ref, scheduled_at) WHERE NOT deleted;

CREATE TABLE IF NOT EXISTS processed_events (
	event_id          UUID PRIMARY KEY,
	kind              TEXT NOT NULL,
	related_entity_id TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL,
	attempts          INTEGER NOT NULL DEFAULT 0,
	last_error        TEXT NOT NULL DEFAULT '',
	processed_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS outbox_events (
	id           UUID PRIMARY KEY,
	topic        TEXT NOT NULL,
	key          TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	payload      BYTEA NOT NULL,
	status       TEXT NOT NULL,
	attempts     INTEGER NOT NULL DEFAULT 0,
	last_error   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_events_pending
	ON outbox_events (created_at) WHERE status = 'PENDING';
`

// PostgresContainer wraps a testcontainers Postgres instance with an open
// database/sql pool.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the
// schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("hirelane_test"),
		tcpostgres.WithUsername("hirelane"),
		tcpostgres.WithPassword("hirelane"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres pool: %v", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Cleanup is left to the singleton Manager and Ryuk, same as Redis.

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables empties the named tables. Use between tests to ensure
// isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	return err
}
