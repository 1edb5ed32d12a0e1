package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeFile(t, "ds.yaml", `
source: inventory-export
captured_at: 2026-08-23T10:00:00Z
identity_field: id
records:
  - id: 1
    name: alpha
    qty: 3
  - id: 2
    name: beta
    price: 9.5
`)

	ds, err := LoadDataset(path)
	require.NoError(t, err)

	assert.Equal(t, "inventory-export", ds.Source)
	assert.Equal(t, "id", ds.IdentityField)
	require.Len(t, ds.Records, 2)

	assert.Equal(t, dataset.Int(1), ds.Records[0].Fields["id"])
	assert.Equal(t, dataset.String("alpha"), ds.Records[0].Fields["name"])
	assert.Equal(t, dataset.Int(3), ds.Records[0].Fields["qty"])
	assert.Equal(t, dataset.Float(9.5), ds.Records[1].Fields["price"])
}

func TestLoadDatasetRequiresIdentityField(t *testing.T) {
	path := writeFile(t, "ds.yaml", `
source: x
records:
  - id: 1
`)

	_, err := LoadDataset(path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "identity_field")
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoadDatasetMalformedYAML(t *testing.T) {
	path := writeFile(t, "ds.yaml", "records: [unclosed")
	_, err := LoadDataset(path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoadSchema(t *testing.T) {
	path := writeFile(t, "schema.yaml", `
type: array
required: [id, name]
fields:
  id:
    type: integer
    min: 1
  name:
    type: string
    pattern: "^[a-z]+$"
`)

	s, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "array", s.Type)
	assert.Equal(t, []string{"id", "name"}, s.Required)
	require.Contains(t, s.Fields, "id")
	require.NotNil(t, s.Fields["id"].Min)
	assert.Equal(t, 1.0, *s.Fields["id"].Min)
	assert.Equal(t, "^[a-z]+$", s.Fields["name"].Pattern)
}
