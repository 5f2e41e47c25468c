package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the leads and interactions tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS leads (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    phone      TEXT NOT NULL UNIQUE,
    email      TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL DEFAULT 'New',
    notes      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads(phone);

CREATE TABLE IF NOT EXISTS interactions (
    id        BIGSERIAL PRIMARY KEY,
    lead_id   BIGINT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
    kind      TEXT NOT NULL,
    content   TEXT NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_interactions_lead ON interactions(lead_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] using the given connection or
// pool. The caller is responsible for calling [PostgresStore.Migrate] before
// issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the tables if they do not
// already exist, and inserts [SeedLeads] when the leads table is empty.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("crm: migrate: %w", err)
	}

	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM leads`).Scan(&count); err != nil {
		return fmt.Errorf("crm: migrate: count leads: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, lead := range SeedLeads {
		if _, err := s.Create(ctx, lead); err != nil {
			return fmt.Errorf("crm: migrate: seed %q: %w", lead.Phone, err)
		}
	}
	return nil
}

// FindByPhone implements [Store].
func (s *PostgresStore) FindByPhone(ctx context.Context, phone string) (*Lead, error) {
	const q = `
		SELECT id, name, phone, email, status, notes, created_at
		FROM leads WHERE phone = $1`

	var lead Lead
	err := s.db.QueryRow(ctx, q, phone).Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.Status, &lead.Notes, &lead.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("crm: find by phone: %w", err)
	}
	return &lead, nil
}

// AppendNote implements [Store]. The note append and the optional status
// change happen in one statement so concurrent calls cannot interleave
// partial updates.
func (s *PostgresStore) AppendNote(ctx context.Context, phone, annotation, status string) (*Lead, error) {
	const q = `
		UPDATE leads SET
		    notes  = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END,
		    status = CASE WHEN $3 <> '' THEN $3 ELSE status END
		WHERE phone = $1
		RETURNING id, name, phone, email, status, notes, created_at`

	var lead Lead
	err := s.db.QueryRow(ctx, q, phone, annotation, status).Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.Status, &lead.Notes, &lead.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("crm: append note: %w", err)
	}
	return &lead, nil
}

// Create implements [Store].
func (s *PostgresStore) Create(ctx context.Context, lead Lead) (*Lead, error) {
	if lead.Status == "" {
		lead.Status = "New"
	}
	const q = `
		INSERT INTO leads (name, phone, email, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := s.db.QueryRow(ctx, q, lead.Name, lead.Phone, lead.Email, lead.Status, lead.Notes).
		Scan(&lead.ID, &lead.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("crm: create lead: %w", err)
	}
	return &lead, nil
}

// RecordInteraction implements [Store].
func (s *PostgresStore) RecordInteraction(ctx context.Context, leadID int64, kind, content string) error {
	const q = `INSERT INTO interactions (lead_id, kind, content) VALUES ($1, $2, $3)`
	if _, err := s.db.Exec(ctx, q, leadID, kind, content); err != nil {
		return fmt.Errorf("crm: record interaction: %w", err)
	}
	return nil
}
