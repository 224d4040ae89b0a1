package familiar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lib/pq"
)

// This file should contain only private, mostly pure functions.  They should
// not interact with the filesystem or database.

// sqlName returns the quoted, optionally schema-qualified identifier for ref,
// e.g. `"reporting"."daily totals"`.  Quoting goes through pq.QuoteIdentifier
// in one place so keyword collisions and mixed-case names are handled the
// same everywhere.
func sqlName(ref ObjectRef) string {
	if ref.Schema != "" {
		return pq.QuoteIdentifier(ref.Schema) + "." + pq.QuoteIdentifier(ref.Name)
	}
	return pq.QuoteIdentifier(ref.Name)
}

// objectType returns the SQL type keywords for ref: VIEW, MATERIALIZED VIEW,
// or FUNCTION.
func objectType(ref ObjectRef, materialized bool) string {
	if ref.Kind == KindFunction {
		return "FUNCTION"
	}
	if materialized {
		return "MATERIALIZED VIEW"
	}
	return "VIEW"
}

// createStatement builds the CREATE statement for ref from a definition
// body.  View bodies are the SELECT after AS; function bodies carry their own
// argument list and AS clause, so no AS is inserted for them.
func createStatement(ref ObjectRef, materialized bool, body string) string {
	if ref.Kind == KindFunction {
		return fmt.Sprintf("CREATE FUNCTION %s\n%s", sqlName(ref), strings.TrimRight(body, " \t\n"))
	}
	return fmt.Sprintf("CREATE %s %s AS\n%s",
		objectType(ref, materialized), sqlName(ref), strings.TrimRight(body, " \t\n"))
}

// replaceStatement builds the CREATE OR REPLACE form.  Only valid when the
// new body preserves the column list or signature; that precondition is the
// caller's, not ours.
func replaceStatement(ref ObjectRef, body string) string {
	if ref.Kind == KindFunction {
		return fmt.Sprintf("CREATE OR REPLACE FUNCTION %s\n%s", sqlName(ref), strings.TrimRight(body, " \t\n"))
	}
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", sqlName(ref), strings.TrimRight(body, " \t\n"))
}

// dropStatement builds the DROP statement for ref.
func dropStatement(ref ObjectRef, materialized bool) string {
	return fmt.Sprintf("DROP %s %s", objectType(ref, materialized), sqlName(ref))
}

// getConfirm shows the plan's statements and asks for a y/n answer on input.
func getConfirm(plan Plan, input io.Reader, output io.Writer) error {
	fmt.Fprintf(output, "Statements that will be run:\n%s\n", strings.Join(plan.Up, "\n"))
	if plan.Down != nil {
		fmt.Fprintf(output, "Statements recorded for rollback:\n%s\n", strings.Join(plan.Down, "\n"))
	}
	fmt.Fprint(output, "Run these statements? (y/n) ")
	reader := bufio.NewReader(input)
	resp, err := reader.ReadString('\n')
	if err != nil {
		return err
	}

	switch resp = strings.TrimSpace(resp); resp {
	case "y":
		return nil
	case "n":
		return errors.New("cancelled")
	}
	return fmt.Errorf("Invalid option: %s", resp)
}
