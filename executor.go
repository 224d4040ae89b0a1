package familiar

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/lib/pq"
)

// DefaultHistoryTable is where TxExecutor records applied plans.
const DefaultHistoryTable = "familiar_history"

// Connect calls sql.Open for you, specifying the Postgres driver and printing
// the DB name and host to stdout so you can check that you're connecting to
// the right place before continuing.
func Connect(dburl string) (*sql.DB, error) {
	// Failure to set the DATABASE_URL env var or provide the dburl command
	// line flag could result in an empty dburl here.  Catch that.
	if dburl == "" {
		return nil, errors.New("empty database url provided")
	}
	url, err := url.Parse(dburl)
	if err != nil {
		return nil, err
	}
	// trim leading slash
	dbname := strings.Trim(url.Path, "/")
	fmt.Printf("Connecting to database '%s' on host '%s'\n", dbname, url.Host)
	return sql.Open("postgres", dburl)
}

// TxExecutor applies plans against a live Postgres database.  Each Apply
// runs the plan's up statements inside one transaction, together with a row
// insert into the history table recording the plan, so a mid-plan failure
// rolls back cleanly.  Rollback pops the most recent history row and runs its
// down statements the same way.
type TxExecutor struct {
	DB *sql.DB
	// Table is the history table name.  Empty means DefaultHistoryTable.
	Table string
}

func (x *TxExecutor) table() string {
	if x.Table == "" {
		return DefaultHistoryTable
	}
	return x.Table
}

// Apply implements Executor.  Statements run in the given order; an
// irreversible plan is recorded with an empty down_sql array.
func (x *TxExecutor) Apply(plan Plan) error {
	tx, err := x.DB.Begin()
	if err != nil {
		return fmt.Errorf("apply plan: %v", err)
	}
	defer tx.Rollback()
	if err := x.ensureHistoryTable(tx); err != nil {
		return err
	}
	for _, stmt := range plan.Up {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("error running statement %q: %v", stmt, err)
		}
	}
	down := plan.Down
	if down == nil {
		down = []string{}
	}
	_, err = tx.Exec(
		fmt.Sprintf("INSERT INTO %s (up_sql, down_sql) VALUES ($1, $2)", pq.QuoteIdentifier(x.table())),
		pq.Array(plan.Up), pq.Array(down),
	)
	if err != nil {
		return fmt.Errorf("error recording plan: %v", err)
	}
	return tx.Commit()
}

// Rollback runs the down statements of the most recently applied plan and
// removes its history row, all in one transaction.  It errors if the history
// is empty or the latest plan was applied without rollback information.
func (x *TxExecutor) Rollback() error {
	exists, err := x.historyTableExists()
	if err != nil {
		return fmt.Errorf("rollback: %v", err)
	}
	if !exists {
		return errors.New("history is empty. cannot roll back")
	}
	tx, err := x.DB.Begin()
	if err != nil {
		return fmt.Errorf("rollback: %v", err)
	}
	defer tx.Rollback()
	var id int
	var down []string
	err = tx.QueryRow(fmt.Sprintf(
		"SELECT id, down_sql FROM %s ORDER BY id DESC LIMIT 1 FOR UPDATE",
		pq.QuoteIdentifier(x.table()),
	)).Scan(&id, pq.Array(&down))
	if err == sql.ErrNoRows {
		return errors.New("history is empty. cannot roll back")
	}
	if err != nil {
		return fmt.Errorf("rollback: %v", err)
	}
	if len(down) == 0 {
		return fmt.Errorf("plan %d was applied without rollback statements", id)
	}
	for _, stmt := range down {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("error running statement %q: %v", stmt, err)
		}
	}
	if _, err := tx.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE id = $1", pq.QuoteIdentifier(x.table())), id,
	); err != nil {
		return fmt.Errorf("rollback: %v", err)
	}
	return tx.Commit()
}

// History returns all recorded plans, oldest first.  If the history table
// does not exist yet, it returns an empty list.
func (x *TxExecutor) History() ([]HistoryRecord, error) {
	exists, err := x.historyTableExists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return []HistoryRecord{}, nil
	}
	rows, err := x.DB.Query(fmt.Sprintf(
		"SELECT id, time, who, up_sql, down_sql FROM %s ORDER BY id",
		pq.QuoteIdentifier(x.table()),
	))
	if err != nil {
		return nil, fmt.Errorf("get history: %v", err)
	}
	defer rows.Close()
	records := []HistoryRecord{}
	for rows.Next() {
		var r HistoryRecord
		if err := rows.Scan(&r.ID, &r.Time, &r.Who, pq.Array(&r.UpSQL), pq.Array(&r.DownSQL)); err != nil {
			return nil, fmt.Errorf("get history: %v", err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (x *TxExecutor) historyTableExists() (bool, error) {
	var exists bool
	err := x.DB.QueryRow(`
      SELECT EXISTS (
         SELECT 1
         FROM   pg_tables
         WHERE  schemaname = 'public'
         AND    tablename = $1
       );`, x.table()).Scan(&exists)
	return exists, err
}

func (x *TxExecutor) ensureHistoryTable(tx *sql.Tx) error {
	_, err := tx.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id SERIAL PRIMARY KEY,
	time TIMESTAMP WITH TIME ZONE DEFAULT now() NOT NULL,
	who TEXT DEFAULT CURRENT_USER NOT NULL,
	up_sql TEXT[] NOT NULL,
	down_sql TEXT[] NOT NULL
)`, pq.QuoteIdentifier(x.table())))
	if err != nil {
		return fmt.Errorf("error creating history table: %v", err)
	}
	return nil
}

// PrintExecutor writes plans to Out instead of executing them.  Used by the
// fam CLI's -print flag for dry runs.
type PrintExecutor struct {
	Out io.Writer
}

// Apply implements Executor.
func (x PrintExecutor) Apply(plan Plan) error {
	for _, stmt := range plan.Up {
		fmt.Fprintf(x.Out, "%s;\n", stmt)
	}
	if plan.Down != nil {
		fmt.Fprintln(x.Out, "-- rollback")
		for _, stmt := range plan.Down {
			fmt.Fprintf(x.Out, "%s;\n", stmt)
		}
	}
	return nil
}

// ConfirmExecutor shows each plan and asks for confirmation on In before
// handing it to Next.
type ConfirmExecutor struct {
	Next Executor
	In   io.Reader
	Out  io.Writer
}

// Apply implements Executor.
func (x ConfirmExecutor) Apply(plan Plan) error {
	in := x.In
	if in == nil {
		in = os.Stdin
	}
	out := x.Out
	if out == nil {
		out = os.Stdout
	}
	if err := getConfirm(plan, in, out); err != nil {
		return err
	}
	return x.Next.Apply(plan)
}
