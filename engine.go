package familiar

import "fmt"

// Engine builds and dispatches DDL plans for versioned views and functions.
// It is stateless: each operation is a pure function of its options plus one
// or two store lookups, and which version is currently live is tracked only
// by the surrounding migration history.  Construct one with the store and
// executor collaborators it should use; there is no ambient configuration.
type Engine struct {
	store DefinitionStore
	exec  Executor
}

// NewEngine returns an Engine that reads definitions from store and hands
// finished plans to exec.
func NewEngine(store DefinitionStore, exec Executor) *Engine {
	return &Engine{store: store, exec: exec}
}

// CreateOptions configures Engine.Create.  Version is required.
type CreateOptions struct {
	Version      int
	Materialized bool
	Schema       string
}

// UpdateOptions configures Engine.Update.  Version is required; Revert, when
// nonzero, names the version the rollback should restore.
type UpdateOptions struct {
	Version      int
	Revert       int
	Materialized bool
	Schema       string
}

// ReplaceOptions configures Engine.Replace.  Version is required; Revert,
// when nonzero, names the version the rollback should restore.  Replace has
// no materialized form: Postgres cannot CREATE OR REPLACE a materialized
// view.
type ReplaceOptions struct {
	Version int
	Revert  int
	Schema  string
}

// DropOptions configures Engine.Drop.  Revert, when nonzero, names the
// version the rollback should recreate the object from.
type DropOptions struct {
	Materialized bool
	Revert       int
	Schema       string
}

// Create makes a new view or function from the given definition version.
// The plan's reverse is always the matching DROP: reverting a create removes
// the object, so no prior version is involved.
func (e *Engine) Create(kind ObjectKind, name string, opts CreateOptions) error {
	ref, err := makeRef(kind, name, opts.Schema, opts.Materialized)
	if err != nil {
		return err
	}
	if err := requireVersion("create", opts.Version); err != nil {
		return err
	}
	body, err := e.store.Lookup(kind, name, opts.Schema, opts.Version)
	if err != nil {
		return err
	}
	return e.exec.Apply(Plan{
		Up:   []string{createStatement(ref, opts.Materialized, body)},
		Down: []string{dropStatement(ref, opts.Materialized)},
	})
}

// Update drops the object and recreates it from the given definition
// version.  Unlike Replace this works even when the new definition changes
// the column list or signature, at the cost of being disruptive: any
// dependent objects (other views, functions, triggers) must be dropped by the
// caller first; the Engine does not discover or cascade to dependents.  When
// Revert is set, the rollback drops the object and recreates it from the old
// version.
func (e *Engine) Update(kind ObjectKind, name string, opts UpdateOptions) error {
	ref, err := makeRef(kind, name, opts.Schema, opts.Materialized)
	if err != nil {
		return err
	}
	if err := requireVersion("update", opts.Version); err != nil {
		return err
	}
	newBody, err := e.store.Lookup(kind, name, opts.Schema, opts.Version)
	if err != nil {
		return err
	}
	plan := Plan{
		Up: []string{
			dropStatement(ref, opts.Materialized),
			createStatement(ref, opts.Materialized, newBody),
		},
	}
	if opts.Revert != 0 {
		oldBody, err := e.lookupRevert(kind, name, opts.Schema, opts.Revert)
		if err != nil {
			return err
		}
		plan.Down = []string{
			dropStatement(ref, opts.Materialized),
			createStatement(ref, opts.Materialized, oldBody),
		}
	}
	return e.exec.Apply(plan)
}

// Replace swaps in the given definition version with CREATE OR REPLACE,
// leaving dependent objects untouched.  Valid only when the new definition
// keeps the existing column list (views) or argument and return signature
// (functions); the Engine cannot check that precondition, the database will
// reject the statement if it is violated.  When Revert is set, the rollback
// is a CREATE OR REPLACE from the old version.
func (e *Engine) Replace(kind ObjectKind, name string, opts ReplaceOptions) error {
	ref, err := makeRef(kind, name, opts.Schema, false)
	if err != nil {
		return err
	}
	if err := requireVersion("replace", opts.Version); err != nil {
		return err
	}
	newBody, err := e.store.Lookup(kind, name, opts.Schema, opts.Version)
	if err != nil {
		return err
	}
	plan := Plan{Up: []string{replaceStatement(ref, newBody)}}
	if opts.Revert != 0 {
		oldBody, err := e.lookupRevert(kind, name, opts.Schema, opts.Revert)
		if err != nil {
			return err
		}
		plan.Down = []string{replaceStatement(ref, oldBody)}
	}
	return e.exec.Apply(plan)
}

// Drop removes the object.  When Revert is set, the rollback recreates it
// from that definition version; the reverse is a plain create, since after
// the drop there is nothing left to drop first.
func (e *Engine) Drop(kind ObjectKind, name string, opts DropOptions) error {
	ref, err := makeRef(kind, name, opts.Schema, opts.Materialized)
	if err != nil {
		return err
	}
	plan := Plan{Up: []string{dropStatement(ref, opts.Materialized)}}
	if opts.Revert != 0 {
		oldBody, err := e.lookupRevert(kind, name, opts.Schema, opts.Revert)
		if err != nil {
			return err
		}
		plan.Down = []string{createStatement(ref, opts.Materialized, oldBody)}
	}
	return e.exec.Apply(plan)
}

func (e *Engine) lookupRevert(kind ObjectKind, name, schema string, revert int) (string, error) {
	if revert < 0 {
		return "", ContractError(fmt.Sprintf("revert version must be positive, got %d", revert))
	}
	return e.store.Lookup(kind, name, schema, revert)
}

// makeRef validates the object identity and the materialized flag, which
// only applies to views.  Passing materialized for a function is an error
// rather than silently ignored; ignoring it would mask caller mistakes.
func makeRef(kind ObjectKind, name, schema string, materialized bool) (ObjectRef, error) {
	if !kind.valid() {
		return ObjectRef{}, ContractError(fmt.Sprintf("unknown object kind %q (want view or function)", kind))
	}
	if name == "" {
		return ObjectRef{}, ContractError("object name must not be empty")
	}
	if materialized && kind != KindView {
		return ObjectRef{}, ContractError("materialized is only valid for views")
	}
	return ObjectRef{Kind: kind, Name: name, Schema: schema}, nil
}

func requireVersion(op string, version int) error {
	if version < 1 {
		return ContractError(fmt.Sprintf("%s requires a positive version, got %d", op, version))
	}
	return nil
}
