package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Compile-time interface check.
var _ Searcher = (*PostgresStore)(nil)

// PostgresStore is a pgvector-backed knowledge base. Documents are embedded
// on insert; Search embeds the query and ranks by cosine distance.
// All operations are safe for concurrent use.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder Embedder
}

// NewPostgresStore establishes a connection pool to the database at dsn,
// registers pgvector types on every connection, runs the schema migration,
// and indexes [SeedDocuments] when the table is empty.
//
// dimensions must match the output dimension of the embedding model (768 for
// text-embedding-004). Changing it after the first migration requires a
// manual schema change.
func NewPostgresStore(ctx context.Context, dsn string, embedder Embedder, dimensions int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("knowledge: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("knowledge: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("knowledge: ping: %w", err)
	}

	s := &PostgresStore{pool: pool, embedder: embedder}
	if err := s.migrate(ctx, dimensions); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context, dimensions int) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS knowledge_docs (
    id         TEXT         PRIMARY KEY,
    content    TEXT         NOT NULL,
    embedding  vector(%d)   NOT NULL,
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_knowledge_docs_embedding
    ON knowledge_docs USING hnsw (embedding vector_cosine_ops);
`, dimensions)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("knowledge: migrate: %w", err)
	}

	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM knowledge_docs`).Scan(&count); err != nil {
		return fmt.Errorf("knowledge: migrate: count docs: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, doc := range SeedDocuments {
		if err := s.Add(ctx, doc); err != nil {
			return fmt.Errorf("knowledge: migrate: seed %q: %w", doc.ID, err)
		}
	}
	return nil
}

// Add embeds and upserts one document.
func (s *PostgresStore) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("knowledge: add %q: %w", doc.ID, err)
	}

	const q = `
		INSERT INTO knowledge_docs (id, content, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
		    content   = EXCLUDED.content,
		    embedding = EXCLUDED.embedding`

	if _, err := s.pool.Exec(ctx, q, doc.ID, doc.Text, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("knowledge: add %q: %w", doc.ID, err)
	}
	return nil
}

// Search implements [Searcher]. Results are ordered by ascending cosine
// distance (most similar first).
func (s *PostgresStore) Search(ctx context.Context, query string, topN int) ([]string, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("knowledge: search: %w", err)
	}

	const q = `
		SELECT content
		FROM   knowledge_docs
		ORDER  BY embedding <=> $1
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), topN)
	if err != nil {
		return nil, fmt.Errorf("knowledge: search: %w", err)
	}

	passages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var content string
		err := row.Scan(&content)
		return content, err
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: scan rows: %w", err)
	}
	return passages, nil
}

// Ping verifies database connectivity. Used by readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
