package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// QdrantConfig configures the Qdrant gRPC backend.
type QdrantConfig struct {
	// Host and Port address the gRPC endpoint (6334 by default, not the
	// 6333 REST port).
	Host string
	Port int

	UseTLS bool
	APIKey string

	// RequestTimeout bounds individual requests.
	RequestTimeout time.Duration

	// MaxMessageSize is the gRPC message cap; large files produce large
	// upsert batches.
	MaxMessageSize int
}

func (c *QdrantConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// Validate checks the configuration.
func (c *QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Port)
	}
	return nil
}

// QdrantStore implements Store on a Qdrant cluster; namespaces map to
// collections created with Cosine distance.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
}

// NewQdrantStore connects to Qdrant and verifies the connection with a
// health check.
func NewQdrantStore(ctx context.Context, config QdrantConfig) (*QdrantStore, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	grpcOptions := []grpc.DialOption{
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
			grpc.MaxCallSendMsgSize(config.MaxMessageSize),
		),
	}
	if !config.UseTLS {
		grpcOptions = append(grpcOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:        config.Host,
		Port:        config.Port,
		UseTLS:      config.UseTLS,
		APIKey:      config.APIKey,
		GrpcOptions: grpcOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	s := &QdrantStore{client: client, config: config}

	hctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()
	if _, err := client.HealthCheck(hctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check: %w", err)
	}
	log.Info().Str("host", config.Host).Int("port", config.Port).Msg("connected to qdrant")

	return s, nil
}

// Namespace reports collection existence and point count.
func (s *QdrantStore) Namespace(ctx context.Context, namespace string) (NamespaceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	info, err := s.client.GetCollectionInfo(ctx, namespace)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
			return NamespaceInfo{}, nil
		}
		return NamespaceInfo{}, fmt.Errorf("getting collection %s: %w", namespace, err)
	}
	if info == nil {
		return NamespaceInfo{}, nil
	}
	return NamespaceInfo{Exists: true, Points: info.GetPointsCount()}, nil
}

// CreateNamespace creates the collection; an AlreadyExists response is
// treated as success so creation stays idempotent under races.
func (s *QdrantStore) CreateNamespace(ctx context.Context, namespace string, dim int) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: namespace,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("creating collection %s: %w", namespace, err)
	}
	return nil
}

// Upsert writes one batch of points.
func (s *QdrantStore) Upsert(ctx context.Context, namespace string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Vector...),
			Payload: toPayload(doc),
		}
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: namespace,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting %d points into %s: %w", len(points), namespace, err)
	}
	return nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func toPayload(doc Document) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"page_content": qdrantValue(doc.Content),
	}
	for k, v := range doc.Metadata {
		payload[k] = qdrantValue(v)
	}
	return payload
}

func qdrantValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
	}
}
