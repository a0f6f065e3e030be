package main

import (
	"fmt"
	"os"

	"github.com/bsm/chunkdb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type restoreCommand struct {
	*env

	Verify bool
}

func newRestoreCommand(e *env) *cobra.Command {
	c := &restoreCommand{env: e}
	cmd := &cobra.Command{
		Use:   "restore <archive> <dst>",
		Short: "Expand a compressed archive.",
		Long: `
Expands a snappy compressed archive written by "chunkdb clean --snappy" into
a database file. The destination must not exist.
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(args[0], args[1])
		},
	}
	cmd.Flags().BoolVar(&c.Verify, "verify", true, "Open the restored file to verify it.")
	return cmd
}

func (c *restoreCommand) Run(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrap(err, "creating destination")
	}
	defer out.Close()

	if err := chunkdb.Restore(out, in); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, "closing destination")
	}

	if c.Verify {
		db, err := chunkdb.Open(dst, &chunkdb.Options{Logger: c.logger, ReadOnly: true})
		if err != nil {
			return errors.Wrap(err, "verifying restored file")
		}
		c.logger.Infof("restore: %s holds %d tables", dst, len(db.Tables()))
		if err := db.Close(); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.stdout, "restored %s\n", dst)
	return nil
}
