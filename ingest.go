package familiar

import (
	"bytes"
	"fmt"
	"go/format"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"text/template"
)

type srcContext struct {
	PackageName string
	GoFile      string
	GenerateTag bool
	Definitions []srcDefinition
}

type srcDefinition struct {
	Path string
	Body string
}

// Quoted returns the definition body surrounded with backticks for easy
// injection into a definitions.go template.
func (d srcDefinition) Quoted() string {
	return "`" + d.Body + "`"
}

const srcTmpl = `package {{.PackageName}}

{{if .GenerateTag}}//go:generate fam ingest -package {{.PackageName}} -gofile {{.GoFile}}
{{end}}
import "github.com/Multiverse-io/familiar"

// Definitions holds every ingested .sql definition, keyed by its
// store-relative path.
var Definitions = familiar.MapStore{
{{range .Definitions}}{{printf "%q" .Path}}: {{.Quoted}},
{{end}}}
`

// ReadDefinitions reads every .sql definition under root into a MapStore,
// keyed by store-relative path.
func ReadDefinitions(root string) (MapStore, error) {
	store := MapStore{}
	for _, kind := range []ObjectKind{KindView, KindFunction} {
		kindDir := filepath.Join(root, kind.dirName())
		err := filepath.WalkDir(kindDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(p) != definitionExt {
				return nil
			}
			body, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			store[filepath.ToSlash(rel)] = string(body)
			return nil
		})
		if os.IsNotExist(err) {
			// a definitions dir with only views, or only functions, is fine
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error reading definitions: %v", err)
		}
	}
	return store, nil
}

// IngestDefinitions reads all the definitions under the given directory and
// writes them to a Go source file in the same directory, as a
// familiar.MapStore that binaries can use without shipping .sql files.  The
// generateTag argument determines whether the new Go file will contain a
// "//go:generate" comment to tag it for automatic regeneration by
// "go generate".
func IngestDefinitions(dir, goFile, packageName string, generateTag bool) error {
	store, err := ReadDefinitions(dir)
	if err != nil {
		return err
	}
	err = writeGoDefinitions(dir, goFile, packageName, store, generateTag)
	if err != nil {
		return err
	}
	fmt.Printf("Definitions written to %s\n", path.Join(dir, goFile))
	return nil
}

func writeGoDefinitions(dir, goFile, packageName string, store MapStore, generateTag bool) error {
	tmpl, err := template.New("definitions").Parse(srcTmpl)
	if err != nil {
		return err
	}

	defs := []srcDefinition{}
	for p, body := range store {
		defs = append(defs, srcDefinition{Path: p, Body: body})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })

	tmplData := srcContext{
		PackageName: packageName,
		GoFile:      path.Base(goFile),
		GenerateTag: generateTag,
		Definitions: defs,
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, tmplData)
	if err != nil {
		return err
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return err
	}
	fname := path.Join(dir, goFile)
	return os.WriteFile(fname, formatted, 0644)
}
