// Package qdrant stores the vector index in a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"druglookup/internal/domain"
	"druglookup/internal/vectorstore"
)

var _ domain.VectorStore = (*Storage)(nil)

// Payload keys.
const (
	payloadContent   = "content"
	payloadDrugName  = "drug_name"
	payloadEmbedder  = "index_embedder"
	payloadDimension = "index_dimension"
	payloadDigest    = "index_digest"
)

// Storage is the sole owner of Qdrant operations for one collection.
// The collection's presence is the persistence marker.
type Storage struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	apiKey      string
	meta        domain.IndexMeta
}

type Config struct {
	Addr       string
	APIKey     string
	Collection string
}

// NewStorage creates a client for the gRPC endpoint at cfg.Addr. The
// connection is established lazily on the first call.
func NewStorage(cfg Config) (*Storage, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant: collection is required")
	}
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: dial %s: %w", cfg.Addr, err)
	}
	return &Storage{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.Collection,
		apiKey:      cfg.APIKey,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Storage) Close() error {
	return s.conn.Close()
}

func (s *Storage) rpcContext(ctx context.Context) context.Context {
	if s.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
}

func (s *Storage) Exists(ctx context.Context) (bool, error) {
	list, err := s.collections.List(s.rpcContext(ctx), &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return true, nil
		}
	}
	return false, nil
}

// Meta reads the build metadata stored with the points. An empty or
// missing collection yields the zero value.
func (s *Storage) Meta(ctx context.Context) (domain.IndexMeta, error) {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return domain.IndexMeta{}, err
	}
	limit := uint32(1)
	resp, err := s.points.Scroll(s.rpcContext(ctx), &pb.ScrollPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return domain.IndexMeta{}, fmt.Errorf("qdrant: scroll %s: %w", s.collection, err)
	}
	if len(resp.GetResult()) == 0 {
		return domain.IndexMeta{}, nil
	}
	return metaFromPayload(resp.GetResult()[0].GetPayload()), nil
}

// Init recreates the collection with cosine distance and records meta on
// every point upserted afterwards.
func (s *Storage) Init(ctx context.Context, meta domain.IndexMeta) error {
	dimension := meta.Dimension
	if dimension <= 0 {
		return errors.New("qdrant: invalid dimension")
	}
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		if err := s.Clear(ctx); err != nil {
			return err
		}
	}
	_, err = s.collections.Create(s.rpcContext(ctx), &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", s.collection, err)
	}
	s.meta = meta
	return nil
}

func (s *Storage) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float64) error {
	if len(docs) != len(vectors) {
		return errors.New("qdrant: documents and vectors length mismatch")
	}
	if len(docs) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(docs))
	for i := range docs {
		points[i] = toPoint(docs[i], vectors[i], s.meta)
	}
	wait := true
	_, err := s.points.Upsert(s.rpcContext(ctx), &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %d points: %w", len(points), err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	resp, err := s.points.Search(s.rpcContext(ctx), &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vectorstore.ToFloat32(vector),
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	results := make([]domain.SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = fromScored(r)
	}
	return results, nil
}

// Clear drops the collection.
func (s *Storage) Clear(ctx context.Context) error {
	_, err := s.collections.Delete(s.rpcContext(ctx), &pb.DeleteCollection{CollectionName: s.collection})
	if err != nil {
		return fmt.Errorf("qdrant: delete collection %s: %w", s.collection, err)
	}
	return nil
}

// toPoint maps a document to a point. Document IDs must be UUIDs.
func toPoint(d domain.Document, vector []float64, meta domain.IndexMeta) *pb.PointStruct {
	return &pb.PointStruct{
		Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: d.ID}},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: vectorstore.ToFloat32(vector)},
			},
		},
		Payload: map[string]*pb.Value{
			payloadContent:   {Kind: &pb.Value_StringValue{StringValue: d.Content}},
			payloadDrugName:  {Kind: &pb.Value_StringValue{StringValue: d.DrugName}},
			payloadEmbedder:  {Kind: &pb.Value_StringValue{StringValue: meta.Embedder}},
			payloadDimension: {Kind: &pb.Value_IntegerValue{IntegerValue: int64(meta.Dimension)}},
			payloadDigest:    {Kind: &pb.Value_StringValue{StringValue: meta.Digest}},
		},
	}
}

func metaFromPayload(payload map[string]*pb.Value) domain.IndexMeta {
	return domain.IndexMeta{
		Embedder:  payload[payloadEmbedder].GetStringValue(),
		Dimension: int(payload[payloadDimension].GetIntegerValue()),
		Digest:    payload[payloadDigest].GetStringValue(),
	}
}

func fromScored(r *pb.ScoredPoint) domain.SearchResult {
	payload := r.GetPayload()
	return domain.SearchResult{
		Document: domain.Document{
			ID:       r.GetId().GetUuid(),
			Content:  payload[payloadContent].GetStringValue(),
			DrugName: payload[payloadDrugName].GetStringValue(),
		},
		Score: float64(r.GetScore()),
	}
}
