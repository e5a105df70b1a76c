package main

import (
	"bufio"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/progress"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	db   *sql.DB
	conf *core.Config
	svc  progress.ServiceInterface

	in    io.Reader
	inFd  int
	out   io.Writer
	flags flag.ErrorHandling
}

func newCommandLine(db *sql.DB, conf *core.Config, svc progress.ServiceInterface) *commandLine {
	return &commandLine{
		db:    db,
		conf:  conf,
		svc:   svc,
		in:    os.Stdin,
		inFd:  int(os.Stdin.Fd()),
		out:   os.Stdout,
		flags: flag.ExitOnError,
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  progress -activity ID [-ordering FIELDS] - print the activity's progress report")
	fmt.Fprintln(cli.out, "  reset -student ID -activity ID [-yes] - delete a student's checkpoints")
	fmt.Fprintln(cli.out, "  token -subject ID -roles ROLES - issue an API token")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, cli.flags)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	progressCmd := cli.newFlagSet("progress")
	progressActivity := progressCmd.String("activity", "", "The activity ID.")
	progressOrdering := progressCmd.String("ordering", "", "Comma separated fields, '-' prefixed for descending (student_id, completed, updated_at).")

	resetCmd := cli.newFlagSet("reset")
	resetStudent := resetCmd.String("student", "", "The student ID.")
	resetActivity := resetCmd.String("activity", "", "The activity ID.")
	resetYes := resetCmd.Bool("yes", false, "Do not ask for confirmation.")

	tokenCmd := cli.newFlagSet("token")
	tokenSubject := tokenCmd.String("subject", "", "The token subject (student ID for students).")
	tokenRoles := tokenCmd.String("roles", "student", "Comma separated roles: student, teacher, admin.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "progress":
		if err := progressCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *progressActivity == "" {
			progressCmd.Usage()
			return errHelp
		}
		return cli.progress(*progressActivity, *progressOrdering)
	case "reset":
		if err := resetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetStudent == "" || *resetActivity == "" {
			resetCmd.Usage()
			return errHelp
		}
		return cli.reset(progress.Key{StudentID: *resetStudent, ActivityID: *resetActivity}, *resetYes)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSubject == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenSubject, splitFields(*tokenRoles))
	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks a yes/no question when stdin is a terminal. Anything else is a yes.
func (cli *commandLine) confirm(question string) (bool, error) {
	if !isTerminalFunc(cli.inFd) {
		return true, nil
	}
	fmt.Fprintf(cli.out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = core.CleanString(answer, true /* lower */)
	return answer == "y" || answer == "yes", nil
}

func splitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
