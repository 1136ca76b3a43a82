package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want Record
	}{
		{
			name: "valid",
			raw:  map[string]any{"ManufacturerProductNumber": "AB/12", "PhotoUrl": "http://x/1", "Extra": 3.0},
			want: Record{Valid: true, ProductNumber: "AB/12", PhotoURL: "http://x/1"},
		},
		{name: "empty object", raw: map[string]any{}, want: Record{}},
		{name: "nil", raw: nil, want: Record{}},
		{name: "missing photo", raw: map[string]any{"ManufacturerProductNumber": "AB"}, want: Record{}},
		{name: "missing product number", raw: map[string]any{"PhotoUrl": "http://x/1"}, want: Record{}},
		{name: "empty product number", raw: map[string]any{"ManufacturerProductNumber": "", "PhotoUrl": "http://x/1"}, want: Record{}},
		{name: "empty photo", raw: map[string]any{"ManufacturerProductNumber": "AB", "PhotoUrl": ""}, want: Record{}},
		{name: "non-string product number", raw: map[string]any{"ManufacturerProductNumber": 12.0, "PhotoUrl": "http://x/1"}, want: Record{}},
		{name: "null photo", raw: map[string]any{"ManufacturerProductNumber": "AB", "PhotoUrl": nil}, want: Record{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "AB-12", Sanitize("AB/12"))
	assert.Equal(t, "A-B-C-", Sanitize("A/B/C/"))
	assert.Equal(t, "plain", Sanitize("plain"))
	assert.Equal(t, "AB-12.jpg", Record{Valid: true, ProductNumber: "AB/12"}.FileName())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	content := `[
  {"ManufacturerProductNumber": "AB/12", "PhotoUrl": "http://x/1"},
  {},
  42,
  {"ManufacturerProductNumber": "CD-34", "PhotoUrl": "http://x/2", "Category": "MCU"}
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, m.Len())

	assert.True(t, Parse(m.Records[0]).Valid)
	assert.False(t, Parse(m.Records[1]).Valid)
	assert.Nil(t, m.Records[2])
	assert.False(t, Parse(m.Records[2]).Valid)
	assert.Equal(t, "CD-34", Parse(m.Records[3]).ProductNumber)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "object.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ManufacturerProductNumber": "AB"}`), 0644))
	_, err = Load(path)
	assert.Error(t, err, "top level must be an array")
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retry", "failed-manifest.json")
	entries := []Entry{{ManufacturerProductNumber: "AB-12", PhotoUrl: "http://x/1"}}

	require.NoError(t, Write(path, entries))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, Record{Valid: true, ProductNumber: "AB-12", PhotoURL: "http://x/1"}, Parse(m.Records[0]))
}
