package qdrant

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"patentrag/internal/domain"
	"patentrag/internal/vectorstore"
)

// pointNamespace scopes the deterministic point IDs derived from chunk IDs.
var pointNamespace = uuid.MustParse("6f1c7a52-4d0e-4c55-9a8e-2b7f0c3d9e41")

const upsertBatch = 256

// Storage is a Qdrant gRPC client using cosine distance. Init recreates the
// collection so that it mirrors the persisted index exactly.
type Storage struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	apiKey      string
	collection  string
	timeout     time.Duration
	dimension   int
}

var _ vectorstore.Storage = (*Storage)(nil)

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Timeout    time.Duration
}

// NewStorage dials Qdrant lazily; no RPC is made until Init.
func NewStorage(cfg Config) (*Storage, error) {
	if cfg.Host == "" {
		return nil, errors.New("qdrant host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 6334
	}
	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	conn, err := grpc.NewClient(fmt.Sprintf("%s:%d", cfg.Host, port), grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "patentrag"
	}
	return &Storage{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		apiKey:      cfg.APIKey,
		collection:  collection,
		timeout:     timeout,
	}, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	ctx, cancel := s.rpcContext(ctx)
	defer cancel()

	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: s.collection})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("qdrant delete collection: %w", err)
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dimension), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	for start := 0; start < len(entries); start += upsertBatch {
		end := min(start+upsertBatch, len(entries))
		points := make([]*pb.PointStruct, 0, end-start)
		for _, e := range entries[start:end] {
			if len(e.Vector) != s.dimension {
				return errors.New("vector dimension mismatch")
			}
			points = append(points, &pb.PointStruct{
				Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(e.Chunk.ChunkID)}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: toFloat32(e.Vector)}}},
				Payload: payloadOf(e),
			})
		}
		wait := true
		rctx, cancel := s.rpcContext(ctx)
		_, err := s.points.Upsert(rctx, &pb.UpsertPoints{
			CollectionName: s.collection,
			Wait:           &wait,
			Points:         points,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("qdrant upsert: %w", err)
		}
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, errors.New("topK must be positive")
	}
	ctx, cancel := s.rpcContext(ctx)
	defer cancel()
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         toFloat32(vector),
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		results = append(results, domain.SearchResult{Entry: entryOf(pt.GetPayload()), Score: float64(pt.GetScore())})
	}
	// Qdrant does not order equal scores by insertion.
	vectorstore.SortResults(results)
	return results, nil
}

func (s *Storage) Close() error {
	return s.conn.Close()
}

// PointID maps a chunk ID to a stable Qdrant point UUID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func (s *Storage) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func payloadOf(e domain.IndexEntry) map[string]*pb.Value {
	str := func(v string) *pb.Value { return &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}} }
	num := func(v int) *pb.Value { return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(v)}} }
	return map[string]*pb.Value{
		"document_id": str(e.Chunk.DocumentID),
		"chunk_id":    str(e.Chunk.ChunkID),
		"index":       num(e.Chunk.Index),
		"text":        str(e.Chunk.Text),
		"source":      str(e.Source),
		"title":       str(e.Title),
		"patent":      str(e.Patent),
		"ordinal":     num(e.Ordinal),
	}
}

func entryOf(p map[string]*pb.Value) domain.IndexEntry {
	return domain.IndexEntry{
		Chunk: domain.Chunk{
			DocumentID: p["document_id"].GetStringValue(),
			ChunkID:    p["chunk_id"].GetStringValue(),
			Index:      int(p["index"].GetIntegerValue()),
			Text:       p["text"].GetStringValue(),
		},
		Source:  p["source"].GetStringValue(),
		Title:   p["title"].GetStringValue(),
		Patent:  p["patent"].GetStringValue(),
		Ordinal: int(p["ordinal"].GetIntegerValue()),
	}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
