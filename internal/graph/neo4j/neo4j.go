package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/flowgraph/internal/config"
	"github.com/efebarandurmaz/flowgraph/internal/graph"
	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// Every stored node carries the Node label plus one per type, so lookups by
// id need not know the type.
const baseLabel = "Node"

var labels = map[unified.NodeType]string{
	unified.NodeMethod:        "Method",
	unified.NodePrivateMethod: "PrivateMethod",
	unified.NodeEndpoint:      "Endpoint",
	unified.NodeTopic:         "Topic",
	unified.NodeClass:         "Class",
	unified.NodeService:       "Service",
}

// Neo4jRepository implements graph.Repository using Neo4j.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed repository.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

// Open connects using the graph section of the configuration.
func Open(ctx context.Context, cfg config.GraphConfig) (*Neo4jRepository, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("graph.uri is not configured")
	}
	return NewNeo4j(ctx, cfg.URI, cfg.Username, cfg.Password)
}

func (r *Neo4jRepository) StoreGraph(ctx context.Context, g *unified.Graph) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	nodeBatches := nodeRows(g)
	for _, t := range unified.NodeTypes {
		rows := nodeBatches[t]
		if len(rows) == 0 {
			continue
		}
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, mergeNodesQuery(t), map[string]any{"graphId": g.ID(), "rows": rows})
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("store %s nodes: %w", t, err)
		}
	}

	edgeBatches := edgeRows(g)
	for _, t := range unified.EdgeTypes {
		rows := edgeBatches[t]
		if len(rows) == 0 {
			continue
		}
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, mergeEdgesQuery(t), map[string]any{"graphId": g.ID(), "rows": rows})
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("store %s edges: %w", t, err)
		}
	}
	return nil
}

func (r *Neo4jRepository) Callees(ctx context.Context, graphID, methodID string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (:Node {graphId: $graphId, id: $id})-[:CALL]->(callee:Node {graphId: $graphId}) "+
				"RETURN callee.id AS id ORDER BY id",
			map[string]any{"graphId": graphID, "id": methodID})
		if err != nil {
			return nil, err
		}
		var ids []string
		for records.Next(ctx) {
			v, _ := records.Record().Get("id")
			if s, ok := v.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids, records.Err()
	})
	if err != nil {
		return nil, err
	}
	ids, _ := result.([]string)
	return ids, nil
}

// Ping verifies the driver can still reach the server.
func (r *Neo4jRepository) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func mergeNodesQuery(t unified.NodeType) string {
	return fmt.Sprintf("UNWIND $rows AS row "+
		"MERGE (n:%s {graphId: $graphId, id: row.id}) "+
		"SET n:%s, n.name = row.name, n.type = row.type, n.seq = row.seq, n += row.props",
		baseLabel, labels[t])
}

func mergeEdgesQuery(t unified.EdgeType) string {
	return fmt.Sprintf("UNWIND $rows AS row "+
		"MATCH (a:%[1]s {graphId: $graphId, id: row.from}) "+
		"MATCH (b:%[1]s {graphId: $graphId, id: row.to}) "+
		"MERGE (a)-[r:%[2]s]->(b) "+
		"SET r.id = row.id, r.seq = row.seq",
		baseLabel, string(t))
}

// nodeRows groups nodes by type as UNWIND parameter rows. seq keeps the
// graph's insertion order recoverable.
func nodeRows(g *unified.Graph) map[unified.NodeType][]any {
	out := make(map[unified.NodeType][]any)
	for i, n := range g.Nodes() {
		out[n.Type] = append(out[n.Type], map[string]any{
			"id":    n.ID,
			"name":  n.Name,
			"type":  string(n.Type),
			"seq":   int64(i),
			"props": properties(n.Attrs),
		})
	}
	return out
}

func edgeRows(g *unified.Graph) map[unified.EdgeType][]any {
	out := make(map[unified.EdgeType][]any)
	for i, e := range g.Edges() {
		out[e.Type] = append(out[e.Type], map[string]any{
			"id":   e.ID,
			"from": e.From,
			"to":   e.To,
			"seq":  int64(i),
		})
	}
	return out
}

// properties converts attributes to values Neo4j can store: strings, bools,
// numbers and lists of strings. Anything else is stored as its text form.
// Keys that would clobber the fixed properties get an attr_ prefix.
func properties(a unified.Attributes) map[string]any {
	props := make(map[string]any, a.Len())
	for _, k := range a.Keys() {
		v, _ := a.Get(k)
		key := k
		switch k {
		case "id", "name", "type", "seq", "graphId":
			key = "attr_" + k
		}
		switch tv := v.(type) {
		case string, bool, int64, float64:
			props[key] = tv
		case int:
			props[key] = int64(tv)
		case []string:
			props[key] = append([]string(nil), tv...)
		case []any:
			list := make([]string, 0, len(tv))
			for _, item := range tv {
				list = append(list, fmt.Sprint(item))
			}
			props[key] = list
		default:
			props[key] = fmt.Sprint(tv)
		}
	}
	return props
}

var _ graph.Repository = (*Neo4jRepository)(nil)
