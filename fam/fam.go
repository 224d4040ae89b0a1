package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Multiverse-io/familiar"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "fam"
	app.Usage = "Create and run versioned Postgres view/function changes"
	app.Version = "0.0.1"

	// These flags are declared once up here and used in multiple places
	// below.  Single-use flags will be declared inline.
	dirFlag := &cli.StringFlag{
		Name:  "dir",
		Value: ".",
		Usage: "Definitions directory (holds views/ and functions/)",
	}
	dbFlag := &cli.StringFlag{
		Name:    "dburl",
		Usage:   "Database URL",
		EnvVars: []string{"DATABASE_URL"},
	}
	schemaFlag := &cli.StringFlag{
		Name:  "schema",
		Usage: "Schema the object lives in (empty means search path)",
	}
	versionFlag := &cli.IntFlag{
		Name:  "version",
		Usage: "Definition version to apply",
	}
	revertFlag := &cli.IntFlag{
		Name:  "revert",
		Usage: "Definition version a rollback should restore",
	}
	materializedFlag := &cli.BoolFlag{
		Name:  "materialized",
		Usage: "Treat the view as materialized",
	}
	printFlag := &cli.BoolFlag{
		Name:  "print",
		Usage: "Print the statements instead of running them",
	}
	yesFlag := &cli.BoolFlag{
		Name:  "yes",
		Usage: "Skip the confirmation prompt",
	}
	opFlags := []cli.Flag{dirFlag, dbFlag, schemaFlag, versionFlag, revertFlag, materializedFlag, printFlag, yesFlag}

	app.Commands = []*cli.Command{
		{
			Name:  "new",
			Usage: "Create a definition stub for the given kind and name",
			Flags: []cli.Flag{
				dirFlag,
				schemaFlag,
				&cli.IntFlag{
					Name:  "version",
					Value: 1,
					Usage: "Version number for the new definition",
				},
			},
			Action: func(c *cli.Context) error {
				kind, name, err := kindNameArgs(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				err = familiar.NewDefinition(c.String("dir"), kind, name, c.String("schema"), c.Int("version"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:  "ingest",
			Usage: "Convert .sql definitions to a definitions.go file",
			Flags: []cli.Flag{
				dirFlag,
				&cli.StringFlag{
					Name:  "gofile",
					Value: "definitions.go",
					Usage: "filename to be written",
				},
				&cli.StringFlag{
					Name:  "package",
					Value: "definitions",
					Usage: "Go package name for file to be written",
				},
				&cli.BoolFlag{
					Name:  "nogenerate",
					Usage: "Don't include a go:generate tag inside file",
				},
			},
			Action: func(c *cli.Context) error {
				err := familiar.IngestDefinitions(
					c.String("dir"),
					c.String("gofile"),
					c.String("package"),
					!c.Bool("nogenerate"),
				)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:  "create",
			Usage: "Create a view or function from a definition version",
			Flags: opFlags,
			Action: func(c *cli.Context) error {
				return runOp(c, func(eng *familiar.Engine, kind familiar.ObjectKind, name string) error {
					return eng.Create(kind, name, familiar.CreateOptions{
						Version:      c.Int("version"),
						Materialized: c.Bool("materialized"),
						Schema:       c.String("schema"),
					})
				})
			},
		},
		{
			Name:  "update",
			Usage: "Drop and recreate a view or function at a new definition version",
			Flags: opFlags,
			Action: func(c *cli.Context) error {
				return runOp(c, func(eng *familiar.Engine, kind familiar.ObjectKind, name string) error {
					return eng.Update(kind, name, familiar.UpdateOptions{
						Version:      c.Int("version"),
						Revert:       c.Int("revert"),
						Materialized: c.Bool("materialized"),
						Schema:       c.String("schema"),
					})
				})
			},
		},
		{
			Name:  "replace",
			Usage: "CREATE OR REPLACE a view or function at a new definition version",
			Flags: opFlags,
			Action: func(c *cli.Context) error {
				return runOp(c, func(eng *familiar.Engine, kind familiar.ObjectKind, name string) error {
					return eng.Replace(kind, name, familiar.ReplaceOptions{
						Version: c.Int("version"),
						Revert:  c.Int("revert"),
						Schema:  c.String("schema"),
					})
				})
			},
		},
		{
			Name:  "drop",
			Usage: "Drop a view or function",
			Flags: opFlags,
			Action: func(c *cli.Context) error {
				return runOp(c, func(eng *familiar.Engine, kind familiar.ObjectKind, name string) error {
					return eng.Drop(kind, name, familiar.DropOptions{
						Materialized: c.Bool("materialized"),
						Revert:       c.Int("revert"),
						Schema:       c.String("schema"),
					})
				})
			},
		},
		{
			Name:  "rollback",
			Usage: "Run the rollback statements of the most recent change",
			Flags: []cli.Flag{dbFlag},
			Action: func(c *cli.Context) error {
				db, err := familiar.Connect(c.String("dburl"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				exec := &familiar.TxExecutor{DB: db}
				if err := exec.Rollback(); err != nil {
					return cli.NewExitError(err, 1)
				}
				fmt.Println("Done")
				return nil
			},
		},
		{
			Name:  "log",
			Usage: "Show the recorded change history",
			Flags: []cli.Flag{dbFlag},
			Action: func(c *cli.Context) error {
				db, err := familiar.Connect(c.String("dburl"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				exec := &familiar.TxExecutor{DB: db}
				records, err := exec.History()
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				w := new(tabwriter.Writer)
				w.Init(os.Stdout, 5, 0, 1, ' ', tabwriter.Debug)
				fmt.Fprintln(w, "ID\t TIME\t WHO\t UP\t DOWN")
				for _, r := range records {
					fmt.Fprintf(w, "%d\t %s\t %s\t %s\t %s\n",
						r.ID, r.Time, r.Who,
						strings.Join(r.UpSQL, " "),
						strings.Join(r.DownSQL, " "),
					)
				}
				w.Flush()
				return nil
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// runOp wires up a definitions store and an executor from the cli context,
// then hands the Engine to op.  It's shared by the create, update, replace,
// and drop commands.
func runOp(c *cli.Context, op func(eng *familiar.Engine, kind familiar.ObjectKind, name string) error) error {
	kind, name, err := kindNameArgs(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var exec familiar.Executor
	if c.Bool("print") {
		exec = familiar.PrintExecutor{Out: os.Stdout}
	} else {
		db, err := familiar.Connect(c.String("dburl"))
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		exec = &familiar.TxExecutor{DB: db}
		if !c.Bool("yes") {
			exec = familiar.ConfirmExecutor{Next: exec}
		}
	}
	store := familiar.FileStore{Root: c.String("dir")}
	if err := op(familiar.NewEngine(store, exec), kind, name); err != nil {
		return cli.NewExitError(err, 1)
	}
	if !c.Bool("print") {
		fmt.Println("Done")
	}
	return nil
}

// kindNameArgs reads the object kind and name from the first two positional
// args, prompting for any that are missing.
func kindNameArgs(c *cli.Context) (familiar.ObjectKind, string, error) {
	kindArg, err := getArg(c, 0, "object kind (view or function)")
	if err != nil {
		return "", "", err
	}
	kind, err := familiar.ParseObjectKind(kindArg)
	if err != nil {
		return "", "", err
	}
	name, err := getArg(c, 1, "object name")
	if err != nil {
		return "", "", err
	}
	if name == "" {
		return "", "", fmt.Errorf("empty name not permitted")
	}
	return kind, name, nil
}

// get arg from position specified by idx. If empty, then prompt for it.
func getArg(c *cli.Context, idx int, prompt string) (string, error) {
	arg := c.Args().Get(idx)
	if arg != "" {
		return arg, nil
	}
	fmt.Printf("%s: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	arg, err := reader.ReadString('\n')
	if err != nil {
		return arg, err
	}
	arg = strings.TrimSpace(arg)
	return arg, nil
}
