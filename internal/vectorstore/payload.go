package vectorstore

import (
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload keys as stored in the vector database.
const (
	keyChunkID    = "chunk_id"
	keyDocumentID = "document_id"
	keyFilename   = "filename"
	keyChunkIndex = "chunk_index"
	keySource     = "source"
	keyUserID     = "user_id"
	keyText       = "text"
)

// PointUUID maps a chunk id onto the UUID used as the Qdrant point id.
// Qdrant only accepts UUIDs or integers, so the chunk id is hashed (UUIDv5) and kept in the payload.
func PointUUID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func (p Payload) toMap() map[string]any {
	m := map[string]any{
		keyChunkID:    p.ChunkID,
		keyFilename:   p.Filename,
		keyChunkIndex: int64(p.ChunkIndex),
		keySource:     p.Partition,
		keyText:       p.Text,
	}
	if p.DocumentID != "" {
		m[keyDocumentID] = p.DocumentID
	}
	if p.OwnerID != "" {
		m[keyUserID] = p.OwnerID
	}
	return m
}

func payloadFromMap(m map[string]any) Payload {
	return Payload{
		ChunkID:    metaString(m, keyChunkID),
		DocumentID: metaString(m, keyDocumentID),
		Filename:   metaString(m, keyFilename),
		ChunkIndex: metaInt(m, keyChunkIndex),
		Partition:  metaString(m, keySource),
		OwnerID:    metaString(m, keyUserID),
		Text:       metaString(m, keyText),
	}
}

func metaString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// metaInt accepts the integer shapes a payload may decode into.
func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}

// buildFilter translates f into Qdrant must-conditions, or nil when f is empty.
func buildFilter(f Filter) *qdrant.Filter {
	var must []*qdrant.Condition
	if f.Partition != "" {
		must = append(must, qdrant.NewMatch(keySource, f.Partition))
	}
	if f.OwnerID != "" {
		must = append(must, qdrant.NewMatch(keyUserID, f.OwnerID))
	}
	if f.DocumentID != "" {
		must = append(must, qdrant.NewMatch(keyDocumentID, f.DocumentID))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}
