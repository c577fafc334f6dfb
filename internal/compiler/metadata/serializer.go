package metadata

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
)

// Format is a serialisation format for metadata trees.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXML  Format = "xml"
)

// ParseFormat validates a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xml":
		return FormatXML, nil
	}
	return "", fmt.Errorf("unsupported format %q (want json, yaml or xml)", s)
}

// Serialize renders a metadata tree. The output is deterministic: the same
// tree always produces the same bytes.
func Serialize(root *proptree.Node, format Format) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("metadata cannot be nil")
	}

	switch format {
	case FormatJSON, "":
		raw, err := json.Marshal(root)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize metadata: %w", err)
		}
		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			return nil, fmt.Errorf("failed to indent metadata: %w", err)
		}
		out.WriteByte('\n')
		return out.Bytes(), nil

	case FormatYAML:
		var out bytes.Buffer
		enc := yaml.NewEncoder(&out)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return nil, fmt.Errorf("failed to serialize metadata: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to flush yaml encoder: %w", err)
		}
		return out.Bytes(), nil

	case FormatXML:
		var out bytes.Buffer
		out.WriteString(xml.Header)
		enc := xml.NewEncoder(&out)
		enc.Indent("", "  ")
		if err := enc.Encode(root); err != nil {
			return nil, fmt.Errorf("failed to serialize metadata: %w", err)
		}
		out.WriteByte('\n')
		return out.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// Compress gzips data at the best compression level.
func Compress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}
	if len(data) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}
	if len(data) == 0 {
		return []byte{}, nil
	}

	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}
	return out, nil
}

// WriteBytes writes already serialised metadata to outputPath, creating
// parent directories. With compress set the file is gzipped.
func WriteBytes(outputPath string, data []byte, compress bool) error {
	if outputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if compress {
		var err error
		if data, err = Compress(data); err != nil {
			return fmt.Errorf("failed to compress metadata: %w", err)
		}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata to %s: %w", outputPath, err)
	}
	return nil
}
