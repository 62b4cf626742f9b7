package metadata

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/wpkernel/wpkgen/internal/compiler/identity"
)

func sampleController() *ControllerMetadata {
	return &ControllerMetadata{
		Name:     "book",
		Identity: identity.Resolved{Type: identity.String, Param: "slug"},
		Routes: []RouteMetadata{
			{Method: "GET", Path: "/books", Kind: RouteList, CacheSegments: []any{"book", "list"}},
			{Method: "PUT", Path: "/books/:slug", Kind: RouteUpdate, Tags: map[string]string{"resource.wpPost.mutation": "update"}},
		},
		Cache: &CacheMetadata{Events: []CacheEvent{
			{Scope: RouteList, Operation: CacheRead, Segments: []string{"book", "list"}, Description: "List query"},
		}},
	}
}

// TestSerialize_KindFirst tests that the metadata kind leads the object
func TestSerialize_KindFirst(t *testing.T) {
	data, err := Serialize(sampleController())
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	if !json.Valid(data) {
		t.Fatal("Serialized data is not valid JSON")
	}

	kindAt := bytes.Index(data, []byte(`"kind"`))
	nameAt := bytes.Index(data, []byte(`"name"`))
	if kindAt < 0 || kindAt > nameAt {
		t.Errorf("expected kind as first member, got:\n%s", data)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded["name"] != "book" {
		t.Errorf("name mismatch: got %v", decoded["name"])
	}
	routes := decoded["routes"].([]any)
	if len(routes) != 2 {
		t.Fatalf("routes length mismatch: got %d", len(routes))
	}
	if _, ok := routes[1].(map[string]any)["cacheSegments"]; ok {
		t.Error("expected cacheSegments to be omitted for a route without segments")
	}
}

// TestSerialize_Deterministic tests that serialization produces consistent output
func TestSerialize_Deterministic(t *testing.T) {
	m := sampleController()

	data1, err := Serialize(m)
	if err != nil {
		t.Fatalf("First serialization failed: %v", err)
	}

	data2, err := Serialize(m.Clone())
	if err != nil {
		t.Fatalf("Second serialization failed: %v", err)
	}

	if !bytes.Equal(data1, data2) {
		t.Error("Serialization is not deterministic")
	}
}

// TestSerialize_SupportFiles tests the kind of every support metadata type
func TestSerialize_SupportFiles(t *testing.T) {
	tests := []struct {
		meta FileMetadata
		kind string
	}{
		{&BaseControllerMetadata{Name: "BaseController"}, "base-controller"},
		{&IndexFileMetadata{}, "index-file"},
		{&CapabilityHelperMetadata{Name: "Capability"}, "capability-helper"},
	}

	for _, tt := range tests {
		data, err := Serialize(tt.meta)
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}
		if decoded["kind"] != tt.kind {
			t.Errorf("kind mismatch: got %v, want %s", decoded["kind"], tt.kind)
		}
	}
}

// TestSerialize_NilMetadata tests error handling for nil metadata
func TestSerialize_NilMetadata(t *testing.T) {
	_, err := Serialize(nil)
	if err == nil {
		t.Fatal("Expected error for nil metadata, got nil")
	}

	if !strings.Contains(err.Error(), "metadata cannot be nil") {
		t.Errorf("Expected 'metadata cannot be nil' error, got: %v", err)
	}
}

// TestSerialize_EmptySegments tests that an event without a cache key
// serializes an empty segment list rather than null
func TestSerialize_EmptySegments(t *testing.T) {
	host := NewControllerHost(&ControllerMetadata{Name: "book"})
	RecordCacheEvent(host, CacheEventInput{Scope: RouteCreate, Operation: CacheInvalidate, Segments: []any{}})
	RecordCacheEvent(host, CacheEventInput{Scope: RouteRemove, Operation: CacheInvalidate})

	data, err := Serialize(host.Metadata())
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	var decoded struct {
		Cache struct {
			Events []map[string]any `json:"events"`
		} `json:"cache"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(decoded.Cache.Events) != 2 {
		t.Fatalf("Expected 2 events, got %d in: %s", len(decoded.Cache.Events), data)
	}
	for i, e := range decoded.Cache.Events {
		segments, ok := e["segments"].([]any)
		if !ok {
			t.Errorf("Event %d: expected a segment array, got %#v", i, e["segments"])
			continue
		}
		if len(segments) != 0 {
			t.Errorf("Event %d: expected no segments, got %v", i, segments)
		}
	}
}

// TestCompress_RoundTrip tests compression of repetitive metadata
func TestCompress_RoundTrip(t *testing.T) {
	original, err := Serialize(sampleController())
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	original = bytes.Repeat(original, 20)

	compressed, err := Compress(original)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	if len(compressed) >= len(original) {
		t.Errorf("expected compression, got %d >= %d bytes", len(compressed), len(original))
	}

	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	if !bytes.Equal(original, decompressed) {
		t.Error("Decompressed data doesn't match original")
	}
}

// TestCompress_EmptyAndNil tests edge cases of the gzip helpers
func TestCompress_EmptyAndNil(t *testing.T) {
	out, err := Compress([]byte{})
	if err != nil || len(out) != 0 {
		t.Errorf("expected empty output for empty input, got %v, %v", out, err)
	}

	if _, err := Compress(nil); err == nil {
		t.Error("expected error for nil data")
	}

	if _, err := Decompress(nil); err == nil {
		t.Error("expected error for nil data")
	}

	if _, err := Decompress([]byte("not gzip")); err == nil {
		t.Error("expected error for corrupted data")
	}
}

// TestWriteToFile tests writing plain and compressed metadata
func TestWriteToFile(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "Rest", "BookController.php.meta.json")
	packed := filepath.Join(dir, "Rest", "BookController.php.meta.json.gz")

	if err := WriteToFile(sampleController(), plain); err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}
	if err := WriteCompressedToFile(sampleController(), packed); err != nil {
		t.Fatalf("WriteCompressedToFile failed: %v", err)
	}

	raw, err := os.ReadFile(plain)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	gz, err := os.ReadFile(packed)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	unpacked, err := Decompress(gz)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	if !bytes.Equal(raw, unpacked) {
		t.Error("compressed and plain files differ after decompression")
	}
}

// TestWriteToFile_EmptyPath tests error handling for an empty path
func TestWriteToFile_EmptyPath(t *testing.T) {
	if err := WriteToFile(sampleController(), ""); err == nil {
		t.Error("expected error for empty path")
	}
}
