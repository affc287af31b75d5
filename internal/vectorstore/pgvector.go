package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// PgStore implements Store on Postgres with the pgvector extension. All
// namespaces share one repo_chunks table; a namespace "exists" once it
// holds rows, which matches the skip-if-populated ingestion policy.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore connects to the database at url.
func NewPgStore(ctx context.Context, url string) (*PgStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PgStore{pool: pool}, nil
}

// Namespace reports the stored document count for a namespace.
func (s *PgStore) Namespace(ctx context.Context, namespace string) (NamespaceInfo, error) {
	var count uint64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM repo_chunks WHERE namespace = $1`, namespace,
	).Scan(&count)
	if err != nil {
		if isUndefinedTable(err) {
			return NamespaceInfo{}, nil
		}
		return NamespaceInfo{}, fmt.Errorf("counting namespace %s: %w", namespace, err)
	}
	return NamespaceInfo{Exists: count > 0, Points: count}, nil
}

// CreateNamespace ensures the shared schema exists with dim-dimensional
// vectors. It is idempotent.
func (s *PgStore) CreateNamespace(ctx context.Context, namespace string, dim int) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS repo_chunks (
  id           TEXT PRIMARY KEY,
  namespace    TEXT NOT NULL,
  file_name    TEXT NOT NULL,
  path         TEXT NOT NULL,
  language     TEXT,
  start_offset INT NOT NULL DEFAULT 0,
  content      TEXT,
  embedding    vector(%d),
  created_at   TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE INDEX IF NOT EXISTS repo_chunks_namespace_idx
  ON repo_chunks (namespace);

CREATE INDEX IF NOT EXISTS repo_chunks_embedding_idx
  ON repo_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(q, dim)); err != nil {
		return fmt.Errorf("creating namespace schema: %w", err)
	}
	return nil
}

// Upsert inserts one batch of documents for a namespace.
func (s *PgStore) Upsert(ctx context.Context, namespace string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	const q = `
		INSERT INTO repo_chunks (id, namespace, file_name, path, language, start_offset, content, embedding)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			content   = EXCLUDED.content,
			embedding = EXCLUDED.embedding;`

	batch := &pgx.Batch{}
	for _, doc := range docs {
		batch.Queue(q,
			doc.ID,
			namespace,
			metaString(doc.Metadata, "file_name"),
			metaString(doc.Metadata, "path"),
			metaString(doc.Metadata, "language"),
			metaInt(doc.Metadata, "start_offset"),
			doc.Content,
			pgvector.NewVector(doc.Vector),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range docs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upserting into %s: %w", namespace, err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks database connectivity.
func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// isUndefinedTable reports the Postgres "relation does not exist" error,
// which simply means no namespace has been created yet.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
