// Package familiar implements helper functions and a CLI (fam) for managing
// versioned database views and functions alongside SQL migrations.
//
// Each version of a view or function lives in its own .sql file under a
// definitions directory. The Engine resolves a (kind, name, schema, version)
// tuple to a SQL body and builds forward and reverse DDL plans for the
// create, update, replace and drop operations, so that rolling back a
// migration restores the exact previous definition. See the README.md on
// Github for examples and explanations.
package familiar

import (
	"fmt"
	"time"
)

// ObjectKind is the kind of database object a definition describes.
type ObjectKind string

const (
	// KindView is a plain or materialized SQL view.
	KindView ObjectKind = "view"
	// KindFunction is a stored SQL function.
	KindFunction ObjectKind = "function"
)

// ParseObjectKind converts a string like "view" or "function" into an
// ObjectKind.  Used by the fam CLI to parse positional args.
func ParseObjectKind(s string) (ObjectKind, error) {
	switch k := ObjectKind(s); k {
	case KindView, KindFunction:
		return k, nil
	}
	return "", ContractError(fmt.Sprintf("unknown object kind %q (want view or function)", s))
}

func (k ObjectKind) valid() bool {
	return k == KindView || k == KindFunction
}

// dirName returns the directory segment that holds definitions of this kind.
func (k ObjectKind) dirName() string {
	switch k {
	case KindView:
		return "views"
	case KindFunction:
		return "functions"
	}
	return string(k)
}

// ObjectRef identifies one named database object.  Schema is optional; when
// empty the object is referenced unqualified and resolves via the database's
// search path.
type ObjectRef struct {
	Kind   ObjectKind
	Name   string
	Schema string
}

// Plan is the ordered DDL for one operation.  Up runs immediately; Down, when
// present, is what a rollback must run to restore the previous state.  Down
// is nil exactly when the operation was not given the information needed to
// reverse it.  A Plan has no identity beyond the single execution: it is
// built, handed to an Executor, and discarded.
type Plan struct {
	Up   []string
	Down []string
}

// DefinitionStore resolves a versioned definition to its SQL body.  The body
// is opaque text returned verbatim.  A missing version must fail with
// *NotFoundError rather than returning an empty body.
type DefinitionStore interface {
	Lookup(kind ObjectKind, name, schema string, version int) (string, error)
}

// Executor is the collaborator that runs a Plan.  Apply must execute the Up
// statements in order immediately, and persist the Down statements (when
// present) so they can be run later on rollback.  Transactional guarantees
// belong to the Executor, not the Engine.
type Executor interface {
	Apply(plan Plan) error
}

// NotFoundError reports that no definition file exists for the requested
// object and version.
type NotFoundError struct {
	Kind    ObjectKind
	Name    string
	Schema  string
	Version int
	Path    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no definition for %s %s version %d (%s)",
		e.Kind, e.Name, e.Version, e.Path)
}

// ContractError reports a malformed operation: a missing required option, an
// invalid identifier, or an option that does not apply to the object kind.
type ContractError string

func (e ContractError) Error() string { return string(e) }

// HistoryRecord is one row of the familiar_history table kept by TxExecutor.
type HistoryRecord struct {
	ID      int       `db:"id"`
	Time    time.Time `db:"time"`
	Who     string    `db:"who"`
	UpSQL   []string  `db:"up_sql"`
	DownSQL []string  `db:"down_sql"`
}
