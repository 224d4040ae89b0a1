package familiar

import (
	"errors"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeDefinition(t *testing.T, root, rel, body string) {
	t.Helper()
	full := path.Join(root, rel)
	assert.Nil(t, os.MkdirAll(path.Dir(full), 0755))
	assert.Nil(t, os.WriteFile(full, []byte(body), 0644))
}

func TestDefinitionFile(t *testing.T) {
	tt := []struct {
		kind    ObjectKind
		name    string
		schema  string
		version int
		out     string
	}{
		{KindView, "chickens", "", 1, "views/chickens_v1.sql"},
		{KindView, "chickens", "reporting", 2, "views/reporting/chickens_v2.sql"},
		{KindFunction, "uppercase_name", "", 12, "functions/uppercase_name_v12.sql"},
	}
	for _, tc := range tt {
		assert.Equal(t, tc.out, definitionFile(tc.kind, tc.name, tc.schema, tc.version))
	}
}

func TestFileStoreLookup(t *testing.T) {
	root := t.TempDir()
	writeDefinition(t, root, "views/chickens_v1.sql", chickensV1+"\n")
	writeDefinition(t, root, "views/reporting/chickens_v1.sql", chickensV2+"\n")
	writeDefinition(t, root, "functions/uppercase_name_v1.sql", upperFuncV1+"\n")

	store := FileStore{Root: root}

	body, err := store.Lookup(KindView, "chickens", "", 1)
	assert.Nil(t, err)
	// bodies come back verbatim, trailing newline included
	assert.Equal(t, chickensV1+"\n", body)

	body, err = store.Lookup(KindView, "chickens", "reporting", 1)
	assert.Nil(t, err)
	assert.Equal(t, chickensV2+"\n", body)

	body, err = store.Lookup(KindFunction, "uppercase_name", "", 1)
	assert.Nil(t, err)
	assert.Equal(t, upperFuncV1+"\n", body)
}

func TestFileStoreLookupMissing(t *testing.T) {
	root := t.TempDir()
	writeDefinition(t, root, "views/chickens_v1.sql", chickensV1)

	store := FileStore{Root: root}
	_, err := store.Lookup(KindView, "chickens", "", 2)
	var nferr *NotFoundError
	assert.True(t, errors.As(err, &nferr))
	assert.Equal(t, KindView, nferr.Kind)
	assert.Equal(t, "chickens", nferr.Name)
	assert.Equal(t, 2, nferr.Version)
	assert.Equal(t, path.Join(root, "views/chickens_v2.sql"), nferr.Path)

	// same name, different schema: also missing
	_, err = store.Lookup(KindView, "chickens", "reporting", 1)
	assert.True(t, errors.As(err, &nferr))
	assert.Equal(t, "reporting", nferr.Schema)
}

func TestMapStoreLookup(t *testing.T) {
	body, err := testStore.Lookup(KindView, "chickens", "", 2)
	assert.Nil(t, err)
	assert.Equal(t, chickensV2, body)

	body, err = testStore.Lookup(KindFunction, "uppercase_name", "", 1)
	assert.Nil(t, err)
	assert.Equal(t, upperFuncV1, body)

	_, err = testStore.Lookup(KindView, "ducks", "", 1)
	var nferr *NotFoundError
	assert.True(t, errors.As(err, &nferr))
	assert.Equal(t, "ducks", nferr.Name)
	assert.Equal(t, "views/ducks_v1.sql", nferr.Path)
}
