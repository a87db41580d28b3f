package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/efebarandurmaz/flowgraph/internal/config"
	"github.com/efebarandurmaz/flowgraph/internal/vector"
)

// QdrantRepository implements vector.Repository using Qdrant.
type QdrantRepository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// NewQdrant creates a Qdrant-backed repository.
func NewQdrant(ctx context.Context, host string, port int, collection string) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantRepository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Open connects using the vector section of the configuration and makes sure
// the collection exists.
func Open(ctx context.Context, cfg config.VectorConfig) (*QdrantRepository, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("vector.host is not configured")
	}
	r, err := NewQdrant(ctx, cfg.Host, cfg.Port, cfg.Collection)
	if err != nil {
		return nil, err
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = vector.DefaultDimension
	}
	if err := r.EnsureCollection(ctx, dim); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// EnsureCollection creates the collection with cosine distance unless it
// already exists.
func (r *QdrantRepository) EnsureCollection(ctx context.Context, dimension int) error {
	list, err := r.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == r.collection {
			return nil
		}
	}
	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dimension), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", r.collection, err)
	}
	return nil
}

func (r *QdrantRepository) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         toPoints(docs),
	})
	return err
}

// Payload keys stored with each point.
const (
	payloadGraphID  = "graphId"
	payloadNodeID   = "nodeId"
	payloadNodeType = "type"
	payloadName     = "name"
)

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func toPoints(docs []vector.Document) []*pb.PointStruct {
	points := make([]*pb.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: d.PointID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: d.Vector}}},
			Payload: map[string]*pb.Value{
				payloadGraphID:  stringValue(d.GraphID),
				payloadNodeID:   stringValue(d.NodeID),
				payloadNodeType: stringValue(d.NodeType),
				payloadName:     stringValue(d.Name),
			},
		}
	}
	return points
}

func (r *QdrantRepository) Search(ctx context.Context, vec []float32, topK int) ([]vector.SearchResult, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, err
	}
	return fromScored(resp.GetResult()), nil
}

func fromScored(points []*pb.ScoredPoint) []vector.SearchResult {
	results := make([]vector.SearchResult, len(points))
	for i, pt := range points {
		payload := pt.GetPayload()
		results[i] = vector.SearchResult{
			PointID:  pt.GetId().GetUuid(),
			GraphID:  payload[payloadGraphID].GetStringValue(),
			NodeID:   payload[payloadNodeID].GetStringValue(),
			NodeType: payload[payloadNodeType].GetStringValue(),
			Name:     payload[payloadName].GetStringValue(),
			Score:    pt.GetScore(),
		}
	}
	return results
}

// Ping checks that the collection is reachable.
func (r *QdrantRepository) Ping(ctx context.Context) error {
	_, err := r.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: r.collection})
	return err
}

func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

var _ vector.Repository = (*QdrantRepository)(nil)
