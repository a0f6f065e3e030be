package main

import (
	"fmt"

	"github.com/bsm/chunkdb"
	"github.com/spf13/cobra"
)

type cleanCommand struct {
	*env

	Snappy bool
}

func newCleanCommand(e *env) *cobra.Command {
	c := &cleanCommand{env: e}
	cmd := &cobra.Command{
		Use:   "clean <src> <dst>",
		Short: "Write a compacted copy of a database file.",
		Long: `
Writes a copy of src to dst without tombstones and padding, with the chunks
of each table grouped together. The destination must not exist.

With --snappy the copy is a compressed archive which must be expanded with
"chunkdb restore" before it can be opened.
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(args[0], args[1])
		},
	}
	cmd.Flags().BoolVar(&c.Snappy, "snappy", false, "Write a snappy compressed archive.")
	return cmd
}

func (c *cleanCommand) Run(src, dst string) error {
	o := &chunkdb.CleanOptions{Logger: c.logger}
	if c.Snappy {
		o.Compression = chunkdb.SnappyCompression
	}

	stats, err := chunkdb.CleanFile(dst, src, o)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "kept %d chunks, dropped %d, reclaimed %d bytes\n", stats.Kept, stats.Dropped, stats.Reclaimed)
	return nil
}
