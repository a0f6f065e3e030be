package main

import (
	"fmt"
	"time"

	"github.com/bsm/chunkdb"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/spf13/cobra"
)

type inspectCommand struct {
	*env

	Chunks bool
}

func newInspectCommand(e *env) *cobra.Command {
	c := &inspectCommand{env: e}
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Describe a database file.",
		Long: `
Lists the tables of a database file and, optionally, every chunk with its
header fields.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(args[0])
		},
	}
	cmd.Flags().BoolVar(&c.Chunks, "chunks", false, "List all chunks.")
	return cmd
}

func (c *inspectCommand) Run(path string) error {
	db, err := chunkdb.Open(path, &chunkdb.Options{Logger: c.logger, ReadOnly: true})
	if err != nil {
		return err
	}
	defer db.Close()

	tt := c.newTable()
	tt.AppendHeader(table.Row{"ID", "Table", "Columns", "Row size", "Rows"})
	for _, t := range db.Tables() {
		cols := ""
		for i, col := range t.Columns() {
			if i != 0 {
				cols += ", "
			}
			cols += col.Name + " " + col.Type.String()
		}
		tt.AppendRow(table.Row{t.ID(), t.Name(), cols, t.RowSize(), t.NumRows()})
	}
	tt.Render()

	var used, padding, removed int64
	infos := db.Chunks()
	for _, info := range infos {
		if info.Type == chunkdb.TypeRemoved {
			removed += info.End() - info.Offset
			continue
		}
		used += int64(info.Size)
		padding += int64(info.Padding)
	}

	if c.Chunks {
		ct := c.newTable()
		ct.AppendHeader(table.Row{"Offset", "Type", "Owner", "Index", "Size", "Padding"})
		for _, info := range infos {
			ct.AppendRow(table.Row{info.Offset, info.Type, info.Owner, info.Index, info.Size, info.Padding})
		}
		ct.AppendFooter(table.Row{"", "", "", "", used, padding})
		ct.Render()
	}

	fmt.Fprintf(c.stdout, "%d bytes, %d chunks, %d bytes used, %d bytes padding, %d bytes tombstoned\n",
		db.Size(), len(infos), used, padding, removed)
	if ts := db.Created(); !ts.IsZero() {
		fmt.Fprintf(c.stdout, "created %s\n", ts.UTC().Format(time.RFC3339))
	}
	return nil
}

func (c *inspectCommand) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(c.stdout)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}
