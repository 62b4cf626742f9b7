package metadata

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// Serialize converts file metadata to indented JSON.
// The output is deterministic: map keys are sorted and slices keep their
// recorded order, so identical builds produce identical bytes.
func Serialize(m FileMetadata) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("metadata cannot be nil")
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata: %w", err)
	}

	return data, nil
}

// Compress compresses data using gzip at the best compression level.
// Compression happens once per build so the slower level is acceptable.
func Compress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}

	if len(data) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close() // Ignore close error when write failed
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses gzip-compressed data
func Decompress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}

	if len(data) == 0 {
		return []byte{}, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() {
		_ = reader.Close() // Ignore close error - we already have the data
	}()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}

	return decompressed, nil
}

// WriteToFile writes the metadata as JSON next to the generated program,
// e.g. build/Rest/BookController.php.meta.json
func WriteToFile(m FileMetadata, outputPath string) error {
	data, err := Serialize(m)
	if err != nil {
		return err
	}
	return WriteBytes(outputPath, data, false)
}

// WriteCompressedToFile writes gzip-compressed metadata JSON
func WriteCompressedToFile(m FileMetadata, outputPath string) error {
	data, err := Serialize(m)
	if err != nil {
		return err
	}
	return WriteBytes(outputPath, data, true)
}

// WriteBytes writes data to outputPath, creating parent directories and
// optionally compressing it first
func WriteBytes(outputPath string, data []byte, compress bool) error {
	if outputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	if compress {
		compressed, err := Compress(data)
		if err != nil {
			return fmt.Errorf("failed to compress %s: %w", outputPath, err)
		}
		data = compressed
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	return nil
}
