package qdrant

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// PointID identifies a point either by UUID or by unsigned integer.
type PointID struct {
	uuid    string
	num     uint64
	numeric bool
}

// UUIDPoint returns a UUID-based point ID.
func UUIDPoint(id uuid.UUID) PointID {
	return PointID{uuid: id.String()}
}

// NumericPoint returns an integer point ID.
func NumericPoint(n uint64) PointID {
	return PointID{num: n, numeric: true}
}

// ParsePointID accepts a decimal integer or any UUID representation.
func ParsePointID(s string) (PointID, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return NumericPoint(n), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return PointID{}, fmt.Errorf("%w: %q", ErrInvalidPointID, s)
	}
	return UUIDPoint(id), nil
}

func (p PointID) String() string {
	if p.numeric {
		return strconv.FormatUint(p.num, 10)
	}
	return p.uuid
}

// IsZero reports whether p was never assigned.
func (p PointID) IsZero() bool {
	return !p.numeric && p.uuid == ""
}

func (p PointID) proto() *qdrant.PointId {
	if p.numeric {
		return qdrant.NewIDNum(p.num)
	}
	return qdrant.NewIDUUID(p.uuid)
}

// Point is a vector with an identifier and an optional payload.
type Point struct {
	ID      PointID
	Vector  []float32
	Payload map[string]any
}

// SearchResult is one hit of a similarity search.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]any
}

func toPointStruct(p Point) (*qdrant.PointStruct, error) {
	if p.ID.IsZero() {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidPointID)
	}
	ps := &qdrant.PointStruct{
		Id:      p.ID.proto(),
		Vectors: qdrant.NewVectors(p.Vector...),
	}
	if len(p.Payload) > 0 {
		payload, err := qdrant.TryValueMap(p.Payload)
		if err != nil {
			return nil, fmt.Errorf("point %s: invalid payload: %w", p.ID, err)
		}
		ps.Payload = payload
	}
	return ps, nil
}

func toPointStructs(points []Point) ([]*qdrant.PointStruct, error) {
	out := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		ps, err := toPointStruct(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, nil
}

func toSearchResults(resp []*qdrant.ScoredPoint) []SearchResult {
	results := make([]SearchResult, 0, len(resp))
	for _, r := range resp {
		results = append(results, SearchResult{
			ID:      pointIDString(r.GetId()),
			Score:   r.GetScore(),
			Payload: convertPayload(r.GetPayload()),
		})
	}
	return results
}

func pointIDString(id *qdrant.PointId) string {
	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10)
	case *qdrant.PointId_Uuid:
		return v.Uuid
	default:
		return ""
	}
}

// convertPayload converts Qdrant's protobuf payload to a generic map.
func convertPayload(payload map[string]*qdrant.Value) map[string]any {
	if payload == nil {
		return nil
	}
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		result[k] = extractValue(v)
	}
	return result
}

func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_StructValue:
		if val.StructValue == nil {
			return nil
		}
		return convertPayload(val.StructValue.Fields)
	case *qdrant.Value_ListValue:
		if val.ListValue == nil {
			return nil
		}
		items := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			items[i] = extractValue(item)
		}
		return items
	default:
		return nil
	}
}
