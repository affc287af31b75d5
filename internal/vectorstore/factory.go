package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider selects a Store backend.
type Provider string

const (
	ProviderQdrant   Provider = "qdrant"
	ProviderPgVector Provider = "pgvector"
)

// Config selects and configures a backend.
type Config struct {
	Provider Provider

	// Qdrant settings.
	QdrantHost     string
	QdrantPort     int
	QdrantAPIKey   string
	QdrantTLS      bool
	RequestTimeout time.Duration

	// Postgres DSN for the pgvector backend.
	DatabaseURL string
}

// New builds the configured Store.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case ProviderQdrant:
		return NewQdrantStore(ctx, QdrantConfig{
			Host:           cfg.QdrantHost,
			Port:           cfg.QdrantPort,
			APIKey:         cfg.QdrantAPIKey,
			UseTLS:         cfg.QdrantTLS,
			RequestTimeout: cfg.RequestTimeout,
		})
	case ProviderPgVector:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("%w: database URL required for pgvector", ErrInvalidConfig)
		}
		return NewPgStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
