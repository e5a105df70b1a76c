package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core"
)

func (cli *commandLine) progress(activityID, ordering string) error {
	rows, err := cli.svc.Report(context.Background(), activityID, core.ParseDBOrderings(ordering))
	if err != nil {
		return errors.Wrap(err, "querying activity progress")
	}
	if len(rows) == 0 {
		fmt.Fprintf(cli.out, "no checkpoints for %q\n", activityID)
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tCOMPLETED\tPROGRESS\tUPDATED")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%d/%d\t%.2f%%\t%s\n",
			row.StudentID, row.Completed, len(cli.svc.Tracked()), row.Progress, row.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return w.Flush()
}
