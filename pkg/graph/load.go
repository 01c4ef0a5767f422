package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an on-disk encoding of a node/edge set
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the encoding from a file extension (YAML unless .json)
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Decode reads a node/edge set. The result is not sanitized.
func Decode(r io.Reader, format Format) (Set, error) {
	var set Set
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&set); err != nil {
			return Set{}, fmt.Errorf("failed to decode graph json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&set); err != nil && err != io.EOF {
			return Set{}, fmt.Errorf("failed to decode graph yaml: %w", err)
		}
	default:
		return Set{}, fmt.Errorf("unsupported graph format %q", format)
	}
	return set, nil
}

// LoadFile reads a node/edge set from a YAML or JSON file
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	return Decode(f, FormatFromPath(path))
}
