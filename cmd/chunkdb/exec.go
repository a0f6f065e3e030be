package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bsm/chunkdb"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type execCommand struct {
	*env

	ReadOnly   bool
	RowReserve int
}

func newExecCommand(e *env) *cobra.Command {
	c := &execCommand{env: e}
	cmd := &cobra.Command{
		Use:   "exec <file> [statement...]",
		Short: "Execute SQL statements.",
		Long: `
Executes SQL statements against a database file, creating it if necessary.
Statements are taken from the arguments or, if none are given, from stdin,
one per line. Lines starting with -- are ignored.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(args[0], args[1:])
		},
	}
	cmd.Flags().BoolVar(&c.ReadOnly, "read-only", false, "Open the database read-only.")
	cmd.Flags().IntVar(&c.RowReserve, "row-reserve", 32, "Row slots to reserve per row data chunk.")
	return cmd
}

func (c *execCommand) Run(path string, stmts []string) error {
	db, err := chunkdb.Open(path, &chunkdb.Options{
		Logger:     c.logger,
		ReadOnly:   c.ReadOnly,
		RowReserve: c.RowReserve,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if len(stmts) == 0 {
		if stmts, err = readStatements(c.stdin); err != nil {
			return err
		}
	}

	failed := 0
	for _, sql := range stmts {
		c.logger.Debugf("exec: %s", sql)
		if !c.writeResult(sql, db.Exec(sql)) {
			failed++
		}
	}

	if err := db.Close(); err != nil {
		return err
	}
	if failed != 0 {
		return errors.Errorf("%d of %d statements failed", failed, len(stmts))
	}
	return nil
}

// writeResult prints rows as a table, or a summary for statements which do
// not return rows. Errors go to stderr.
func (c *execCommand) writeResult(sql string, res *chunkdb.Result) bool {
	if !res.Good() {
		for _, err := range res.Errors {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
		}
		return false
	}

	if res.Columns == nil {
		fmt.Fprintf(c.stdout, "OK, %d rows affected\n", res.RowsAffected)
		return true
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.stdout)
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(res.Columns))
	for i, name := range res.Columns {
		header[i] = name
	}
	t.AppendHeader(header)

	for _, row := range res.Rows {
		vals := make(table.Row, row.Len())
		for i, e := range row.Entries() {
			vals[i] = e.String()
		}
		t.AppendRow(vals)
	}
	t.Render()

	fmt.Fprintf(c.stdout, "(%d rows)\n", len(res.Rows))
	return true
}

func readStatements(r io.Reader) ([]string, error) {
	var stmts []string

	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		stmts = append(stmts, line)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "reading statements")
	}
	return stmts, nil
}
