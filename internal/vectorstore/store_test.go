package vectorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	// Suppress logs during testing
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func TestQdrantConfigDefaults(t *testing.T) {
	cfg := QdrantConfig{}
	cfg.applyDefaults()

	if cfg.Host != "localhost" {
		t.Errorf("Host = %q, want localhost", cfg.Host)
	}
	if cfg.Port != 6334 {
		t.Errorf("Port = %d, want 6334", cfg.Port)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.MaxMessageSize != 50*1024*1024 {
		t.Errorf("MaxMessageSize = %d, want 50MiB", cfg.MaxMessageSize)
	}
}

func TestQdrantConfigDefaultsPreserveExplicit(t *testing.T) {
	cfg := QdrantConfig{
		Host:           "qdrant.internal",
		Port:           7000,
		RequestTimeout: time.Minute,
		MaxMessageSize: 1024,
	}
	cfg.applyDefaults()

	if cfg.Host != "qdrant.internal" || cfg.Port != 7000 {
		t.Errorf("explicit endpoint overwritten: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.RequestTimeout != time.Minute || cfg.MaxMessageSize != 1024 {
		t.Errorf("explicit limits overwritten: %v, %d", cfg.RequestTimeout, cfg.MaxMessageSize)
	}
}

func TestQdrantConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     QdrantConfig
		wantErr bool
	}{
		{"valid", QdrantConfig{Host: "localhost", Port: 6334}, false},
		{"missing host", QdrantConfig{Port: 6334}, true},
		{"negative port", QdrantConfig{Host: "localhost", Port: -1}, true},
		{"port too large", QdrantConfig{Host: "localhost", Port: 70000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "faiss"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestFactoryRejectsPgVectorWithoutURL(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderPgVector})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestFactoryProviderCaseInsensitive(t *testing.T) {
	// "PGVECTOR" must route to the pgvector branch, which then fails on
	// the missing URL rather than on an unknown provider.
	_, err := New(context.Background(), Config{Provider: "PGVECTOR"})
	if err == nil || !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
}
