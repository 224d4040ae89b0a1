package familiar

import (
	"fmt"
	"os"
	"path"
)

const definitionExt = ".sql"

// definitionFile returns the store-relative path for one versioned
// definition: "<kind-plural>/[<schema>/]<name>_v<version>.sql".
func definitionFile(kind ObjectKind, name, schema string, version int) string {
	fname := fmt.Sprintf("%s_v%d%s", name, version, definitionExt)
	if schema != "" {
		return path.Join(kind.dirName(), schema, fname)
	}
	return path.Join(kind.dirName(), fname)
}

// FileStore reads definitions from .sql files under Root, laid out as
// Root/views/... and Root/functions/....  Definition files are treated as
// immutable once published, so lookups are plain reads with no locking.
type FileStore struct {
	Root string
}

// Lookup returns the definition body for the given object and version,
// verbatim.  A missing file is a *NotFoundError; it is never reported as an
// empty body.
func (s FileStore) Lookup(kind ObjectKind, name, schema string, version int) (string, error) {
	p := path.Join(s.Root, definitionFile(kind, name, schema, version))
	body, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return "", &NotFoundError{
			Kind:    kind,
			Name:    name,
			Schema:  schema,
			Version: version,
			Path:    p,
		}
	}
	if err != nil {
		return "", fmt.Errorf("error reading definition %s: %v", p, err)
	}
	return string(body), nil
}

// MapStore holds definitions in memory, keyed by the same relative path a
// FileStore would read ("views/chickens_v1.sql").  It backs the Go files
// written by IngestDefinitions, and is handy in tests.
type MapStore map[string]string

// Lookup implements DefinitionStore.
func (s MapStore) Lookup(kind ObjectKind, name, schema string, version int) (string, error) {
	key := definitionFile(kind, name, schema, version)
	body, ok := s[key]
	if !ok {
		return "", &NotFoundError{
			Kind:    kind,
			Name:    name,
			Schema:  schema,
			Version: version,
			Path:    key,
		}
	}
	return body, nil
}
