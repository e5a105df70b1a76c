package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core/progress"
)

func (cli *commandLine) reset(key progress.Key, yes bool) error {
	if !yes {
		ok, err := cli.confirm(fmt.Sprintf("Delete %s's checkpoints for %q?", key.StudentID, key.ActivityID))
		if err != nil {
			return errors.Wrap(err, "reading confirmation")
		}
		if !ok {
			return errAborted
		}
	}

	n, err := cli.svc.Reset(context.Background(), key)
	if err != nil {
		return errors.Wrap(err, "resetting checkpoints")
	}
	fmt.Fprintf(cli.out, "%d checkpoint(s) deleted\n", n)
	return nil
}
