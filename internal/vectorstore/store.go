package vectorstore

import (
	"context"
	"errors"
)

// ErrInvalidConfig indicates an unusable store configuration.
var ErrInvalidConfig = errors.New("invalid vector store configuration")

// Document is one embedded chunk ready for storage.
type Document struct {
	// ID is a fresh unique identifier assigned at upsert time.
	ID string
	// Content is the chunk text the vector was computed from.
	Content string
	// Vector is the embedding.
	Vector []float32
	// Metadata carries chunk provenance (file name, path, start offset).
	Metadata map[string]any
}

// NamespaceInfo describes one per-repository namespace.
type NamespaceInfo struct {
	Exists bool
	// Points is the number of stored documents; meaningful only when
	// Exists is true.
	Points uint64
}

// Store is the embedding/storage sink. Implementations isolate each
// repository in its own namespace and treat namespace creation as
// idempotent.
type Store interface {
	// Namespace reports whether a namespace exists and how many documents
	// it holds.
	Namespace(ctx context.Context, namespace string) (NamespaceInfo, error)

	// CreateNamespace creates a namespace sized for dim-dimensional
	// vectors. Creating an existing namespace is not an error.
	CreateNamespace(ctx context.Context, namespace string, dim int) error

	// Upsert stores one batch of documents in a namespace. All chunks of
	// one file are submitted as a single batch.
	Upsert(ctx context.Context, namespace string, docs []Document) error

	Close() error
}
