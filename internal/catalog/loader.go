package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a catalog file. JSON and YAML arrays of entries are supported,
// selected by file extension.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DecodeJSON(data)
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// DecodeJSON parses a JSON array of entries.
func DecodeJSON(data []byte) ([]Entry, error) {
	var entries []Entry
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse catalog json: %w", err)
	}
	return assignIDs(entries), nil
}

// DecodeYAML parses a YAML sequence of entries.
func DecodeYAML(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	return assignIDs(entries), nil
}

// assignIDs gives every entry without an ID a random one.
func assignIDs(entries []Entry) []Entry {
	for i := range entries {
		if strings.TrimSpace(entries[i].ID) == "" {
			entries[i].ID = uuid.NewString()
		}
	}
	return entries
}
