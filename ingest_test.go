package familiar

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadDefinitions(t *testing.T) {
	root := t.TempDir()
	writeDefinition(t, root, "views/chickens_v1.sql", chickensV1)
	writeDefinition(t, root, "views/chickens_v2.sql", chickensV2)
	writeDefinition(t, root, "views/reporting/chickens_v1.sql", chickensV1)
	writeDefinition(t, root, "functions/uppercase_name_v1.sql", upperFuncV1)
	writeDefinition(t, root, "views/notes.txt", "not a definition")

	store, err := ReadDefinitions(root)
	assert.Nil(t, err)
	assert.Equal(t, MapStore{
		"views/chickens_v1.sql":           chickensV1,
		"views/chickens_v2.sql":           chickensV2,
		"views/reporting/chickens_v1.sql": chickensV1,
		"functions/uppercase_name_v1.sql": upperFuncV1,
	}, store)
}

func TestReadDefinitionsViewsOnly(t *testing.T) {
	// a tree with no functions/ directory is fine
	root := t.TempDir()
	writeDefinition(t, root, "views/chickens_v1.sql", chickensV1)
	store, err := ReadDefinitions(root)
	assert.Nil(t, err)
	assert.Equal(t, MapStore{"views/chickens_v1.sql": chickensV1}, store)
}

func TestIngestDefinitions(t *testing.T) {
	root := t.TempDir()
	writeDefinition(t, root, "views/chickens_v1.sql", chickensV1)
	writeDefinition(t, root, "functions/uppercase_name_v1.sql", upperFuncV1)

	err := IngestDefinitions(root, "testdefinitions.go", "somepackage", true)
	assert.Nil(t, err)
	f, _ := os.ReadFile(path.Join(root, "testdefinitions.go"))
	contents := string(f)
	assert.Contains(t, contents, "package somepackage")
	assert.Contains(
		t,
		contents,
		"//go:generate fam ingest -package somepackage -gofile testdefinitions.go",
	)
	assert.Contains(t, contents, `"views/chickens_v1.sql"`)
	assert.Contains(t, contents, chickensV1)
	assert.Contains(t, contents, `"functions/uppercase_name_v1.sql"`)
	assert.Contains(t, contents, upperFuncV1)

	// also check disabling "go generate" tag
	err = IngestDefinitions(root, "testdefinitions.go", "somepackage", false)
	assert.Nil(t, err)
	f, _ = os.ReadFile(path.Join(root, "testdefinitions.go"))
	assert.NotContains(t, string(f), "//go:generate")
}
