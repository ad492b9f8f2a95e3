package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// RequiredSections are the top-level keys every backup document must carry.
var RequiredSections = []string{"backup_metadata", "database_schema", "tables"}

// ValidationError reports a snapshot that cannot be used as input.
type ValidationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid backup file %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid backup file %s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Load reads and validates a backup document. Every failure is a *ValidationError.
func Load(path string) (*Document, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, &ValidationError{Path: path, Reason: "malformed JSON", Err: err}
	}
	for _, key := range RequiredSections {
		// A null section is as unusable as an absent one.
		if raw, ok := sections[key]; !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("missing '%s' section", key)}
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Path: path, Reason: "unexpected document structure", Err: err}
	}
	return &doc, nil
}

// Save writes doc as indented JSON, creating the parent directory if needed.
func Save(path string, doc *Document) error {
	return writeJSON(path, doc)
}

// LoadDiscovery reads a schema discovery file written by `discover`.
func LoadDiscovery(path string) (*Discovery, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var d Discovery
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &ValidationError{Path: path, Reason: "malformed JSON", Err: err}
	}
	return &d, nil
}

func SaveDiscovery(path string, d *Discovery) error {
	return writeJSON(path, d)
}

// Encode renders v the way snapshot files are stored: indented, without HTML escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ValidationError{Path: path, Reason: "file not found", Err: err}
		}
		return nil, &ValidationError{Path: path, Reason: "unreadable", Err: err}
	}
	return data, nil
}

func writeJSON(path string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
