package familiar

import (
	"fmt"
	"os"
	"path"
)

const viewTmpl = `SELECT 1 / 0 -- Delete this line and replace with the query that defines %s.
`

const functionTmpl = `() RETURNS integer AS $$
SELECT 1 / 0; -- Delete this line and replace with the body of %s.
$$ LANGUAGE sql
`

// NewDefinition writes a stub .sql file for the given object and version
// under root, in the same layout FileStore reads from.  Published versions
// are immutable, so it refuses to overwrite an existing file; bump the
// version instead of editing one that migrations may already reference.
func NewDefinition(root string, kind ObjectKind, name, schema string, version int) error {
	if _, err := makeRef(kind, name, schema, false); err != nil {
		return err
	}
	if err := requireVersion("new definition", version); err != nil {
		return err
	}
	tmpl := viewTmpl
	if kind == KindFunction {
		tmpl = functionTmpl
	}
	fname := path.Join(root, definitionFile(kind, name, schema, version))
	if err := os.MkdirAll(path.Dir(fname), 0755); err != nil {
		return fmt.Errorf("error creating definitions directory: %v", err)
	}
	f, err := os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("definition %s already exists; versions are immutable, create version %d instead", fname, version+1)
		}
		return fmt.Errorf("error writing definition file: %v", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, tmpl, name); err != nil {
		return fmt.Errorf("error writing definition file: %v", err)
	}
	fmt.Printf("Definition stub written to %s\n", fname)
	return nil
}
