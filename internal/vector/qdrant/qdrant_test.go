package qdrant

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/efebarandurmaz/flowgraph/internal/vector"
)

func TestToPoints(t *testing.T) {
	points := toPoints([]vector.Document{{
		PointID:  "5b1f8d6e-0c47-5a2b-9f3e-1d2c3b4a5f60",
		GraphID:  "shop",
		NodeID:   "com.x.OrderService#placeOrder(String):String",
		NodeType: "METHOD",
		Name:     "OrderService.placeOrder",
		Vector:   []float32{0.6, 0.8},
	}})
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	p := points[0]
	if p.GetId().GetUuid() != "5b1f8d6e-0c47-5a2b-9f3e-1d2c3b4a5f60" {
		t.Errorf("id = %v", p.GetId())
	}
	payload := p.GetPayload()
	want := map[string]string{
		payloadGraphID:  "shop",
		payloadNodeID:   "com.x.OrderService#placeOrder(String):String",
		payloadNodeType: "METHOD",
		payloadName:     "OrderService.placeOrder",
	}
	for k, v := range want {
		if got := payload[k].GetStringValue(); got != v {
			t.Errorf("payload[%s] = %q, want %q", k, got, v)
		}
	}
	if data := p.GetVectors().GetVector().GetData(); len(data) != 2 || data[1] != 0.8 {
		t.Errorf("vector = %v", data)
	}
}

func TestFromScored(t *testing.T) {
	results := fromScored([]*pb.ScoredPoint{{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "abc"}},
		Score: 0.9,
		Payload: map[string]*pb.Value{
			payloadGraphID:  stringValue("shop"),
			payloadNodeID:   stringValue("endpoint:GET /orders"),
			payloadNodeType: stringValue("ENDPOINT"),
			payloadName:     stringValue("GET /orders"),
		},
	}})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.PointID != "abc" || r.Score != 0.9 || r.GraphID != "shop" {
		t.Errorf("result = %+v", r)
	}
	if r.NodeID != "endpoint:GET /orders" || r.NodeType != "ENDPOINT" || r.Name != "GET /orders" {
		t.Errorf("result = %+v", r)
	}
}
