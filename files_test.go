package familiar

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefinition(t *testing.T) {
	root := t.TempDir()
	err := NewDefinition(root, KindView, "chickens", "", 1)
	assert.Nil(t, err)
	f, _ := os.ReadFile(path.Join(root, "views", "chickens_v1.sql"))
	assert.Contains(t, string(f), "SELECT 1 / 0")
	assert.Contains(t, string(f), "the query that defines chickens")

	// the stub must resolve through the store it was written for
	_, err = FileStore{Root: root}.Lookup(KindView, "chickens", "", 1)
	assert.Nil(t, err)
}

func TestNewDefinitionFunction(t *testing.T) {
	root := t.TempDir()
	err := NewDefinition(root, KindFunction, "uppercase_name", "", 1)
	assert.Nil(t, err)
	f, _ := os.ReadFile(path.Join(root, "functions", "uppercase_name_v1.sql"))
	assert.Contains(t, string(f), "RETURNS integer AS $$")
	assert.Contains(t, string(f), "the body of uppercase_name")
}

func TestNewDefinitionSchema(t *testing.T) {
	root := t.TempDir()
	err := NewDefinition(root, KindView, "chickens", "reporting", 2)
	assert.Nil(t, err)
	_, err = os.Stat(path.Join(root, "views", "reporting", "chickens_v2.sql"))
	assert.Nil(t, err)
}

func TestNewDefinitionNeverOverwrites(t *testing.T) {
	root := t.TempDir()
	assert.Nil(t, NewDefinition(root, KindView, "chickens", "", 1))
	err := NewDefinition(root, KindView, "chickens", "", 1)
	if assert.NotNil(t, err) {
		assert.Contains(t, err.Error(), "versions are immutable")
	}
}

func TestNewDefinitionBadArgs(t *testing.T) {
	root := t.TempDir()
	assert.NotNil(t, NewDefinition(root, KindView, "chickens", "", 0))
	assert.NotNil(t, NewDefinition(root, "table", "chickens", "", 1))
	assert.NotNil(t, NewDefinition(root, KindView, "", "", 1))
}
