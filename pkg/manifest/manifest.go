// Package manifest loads the product manifest and classifies its records.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	FieldProductNumber = "ManufacturerProductNumber"
	FieldPhotoURL      = "PhotoUrl"
)

// Manifest is the ordered list of raw records. Entries that are not JSON
// objects are kept as nil so indices line up with the file.
type Manifest struct {
	Path    string
	Records []map[string]any
}

// Len returns the number of records
func (m *Manifest) Len() int {
	return len(m.Records)
}

// Load reads a manifest file holding a JSON array of objects
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	records, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	return &Manifest{Path: path, Records: records}, nil
}

// Decode parses a JSON array into raw records
func Decode(data []byte) ([]map[string]any, error) {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}

	records := make([]map[string]any, len(items))
	for i, item := range items {
		if obj, ok := item.(map[string]any); ok {
			records[i] = obj
		}
	}
	return records, nil
}

// Record is the parsed form of a raw manifest entry. When Valid is false the
// other fields are empty.
type Record struct {
	Valid         bool
	ProductNumber string
	PhotoURL      string
}

// FileName returns the output image name for a valid record
func (r Record) FileName() string {
	return Sanitize(r.ProductNumber) + ".jpg"
}

// Parse classifies a raw record. It is invalid when either required field is
// missing, not a string, or empty.
func Parse(raw map[string]any) Record {
	pn, ok := stringField(raw, FieldProductNumber)
	if !ok {
		return Record{}
	}
	photo, ok := stringField(raw, FieldPhotoURL)
	if !ok {
		return Record{}
	}
	return Record{Valid: true, ProductNumber: pn, PhotoURL: photo}
}

func stringField(raw map[string]any, key string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Sanitize replaces every "/" in a product number with "-"
func Sanitize(productNumber string) string {
	return strings.ReplaceAll(productNumber, "/", "-")
}

// Entry is a minimal manifest record used when writing manifests
type Entry struct {
	ManufacturerProductNumber string `json:"ManufacturerProductNumber"`
	PhotoUrl                  string `json:"PhotoUrl"`
}

// Write saves entries as a pretty-printed manifest file
func Write(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
