package vectorstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

func TestQdrantEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		wantHost string
		wantPort int
		wantTLS  bool
	}{
		{name: "default port", urlStr: "http://localhost:6333", wantHost: "localhost", wantPort: 6334},
		{name: "custom port", urlStr: "http://qdrant:9000", wantHost: "qdrant", wantPort: 9001},
		{name: "no port", urlStr: "http://localhost", wantHost: "localhost", wantPort: 6334},
		{name: "no hostname", urlStr: "http://:6333", wantHost: "localhost", wantPort: 6334},
		{name: "https enables tls", urlStr: "https://cloud.example.com:6333", wantHost: "cloud.example.com", wantPort: 6334, wantTLS: true},
		{name: "invalid URL", urlStr: "://invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, useTLS, err := qdrantEndpoint(tt.urlStr)
			if tt.wantErr {
				if err == nil {
					t.Error("qdrantEndpoint() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("qdrantEndpoint() unexpected error: %v", err)
			}
			if host != tt.wantHost || port != tt.wantPort || useTLS != tt.wantTLS {
				t.Errorf("qdrantEndpoint() = (%s, %d, %v), want (%s, %d, %v)", host, port, useTLS, tt.wantHost, tt.wantPort, tt.wantTLS)
			}
		})
	}
}

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	if _, err := NewQdrantStore("://invalid", ""); err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestPointUUID(t *testing.T) {
	id := PointUUID("doc-1_chunk_0")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("PointUUID() = %q is not a UUID: %v", id, err)
	}
	if PointUUID("doc-1_chunk_0") != id {
		t.Error("PointUUID() should be deterministic")
	}
	if PointUUID("doc-1_chunk_1") == id {
		t.Error("PointUUID() should differ per chunk")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	in := Payload{
		ChunkID:    "d7_chunk_3",
		DocumentID: "d7",
		Filename:   "Acme_Invoice_2023.pdf",
		ChunkIndex: 3,
		Partition:  PartitionUser,
		OwnerID:    "U1",
		Text:       "Invoice total",
	}

	values, err := qdrant.TryValueMap(in.toMap())
	if err != nil {
		t.Fatalf("TryValueMap() error = %v", err)
	}
	out := payloadFromMap(convertPayloadToMap(values))
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestPayloadFromMap_IntegerShapes(t *testing.T) {
	for _, v := range []any{int(4), int64(4), float64(4)} {
		p := payloadFromMap(map[string]any{keyChunkIndex: v})
		if p.ChunkIndex != 4 {
			t.Errorf("payloadFromMap(%T) ChunkIndex = %d, want 4", v, p.ChunkIndex)
		}
	}
}

func TestPayload_SystemOmitsOwner(t *testing.T) {
	m := Payload{ChunkID: "c", Partition: PartitionSystem}.toMap()
	if _, ok := m[keyUserID]; ok {
		t.Error("system payload should not carry user_id")
	}
	if _, ok := m[keyDocumentID]; ok {
		t.Error("legacy payload without document id should not carry document_id")
	}
}

func TestBuildFilter(t *testing.T) {
	if buildFilter(Filter{}) != nil {
		t.Error("buildFilter() of empty filter should be nil")
	}
	f := buildFilter(Filter{Partition: PartitionUser, OwnerID: "A", DocumentID: "d1"})
	if f == nil || len(f.Must) != 3 {
		t.Fatalf("buildFilter() = %+v, want three must conditions", f)
	}
}

func TestQdrantStore_EarlyReturns(t *testing.T) {
	store := &QdrantStore{}
	ctx := context.Background()

	if err := store.Upsert(ctx, "c", nil); err != nil {
		t.Errorf("Upsert() with empty points should return early, got: %v", err)
	}
	if err := store.Delete(ctx, "c", nil); err != nil {
		t.Errorf("Delete() with empty IDs should return early, got: %v", err)
	}
	if _, err := store.Search(ctx, "c", []float32{1, 2}, 0, Filter{}); err == nil {
		t.Error("Search() with k=0 should return error")
	}
	if _, err := store.Search(ctx, "c", []float32{1, 2}, 5, Filter{Partition: PartitionUser}); err == nil {
		t.Error("Search() on the user partition without owner should return error")
	}
	if err := store.DeleteByFilter(ctx, "c", Filter{}); err == nil {
		t.Error("DeleteByFilter() with empty filter should return error")
	}
}

func TestConvertPayloadToMap_Nil(t *testing.T) {
	result := convertPayloadToMap(nil)
	if result == nil || len(result) != 0 {
		t.Errorf("convertPayloadToMap(nil) = %v, want empty map", result)
	}
}
