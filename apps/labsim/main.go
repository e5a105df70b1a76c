package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/progress"
	"github.com/trezcool/masomo-lab/services/logger"
	"github.com/trezcool/masomo-lab/services/progress"
	"github.com/trezcool/masomo-lab/storage/database/dummy"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "LABSIM : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	if err := run(context.Background(), conf, logger, os.Args[1:], os.Stdout); err != nil {
		if err != flag.ErrHelp {
			logger.Error(fmt.Sprintf("labsim: %v", err), err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, conf *core.Config, logger core.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("labsim", flag.ContinueOnError)
	fs.SetOutput(out)
	scriptPath := fs.String("script", "", "The YAML gesture script to replay.")
	apiURL := fs.String("api", "", "The lab API base URL. Checkpoints stay in memory when empty.")
	token := fs.String("token", "", "The student's API token.")
	activity := fs.String("activity", "pc-build", "The activity ID.")
	student := fs.String("student", "local", "The student ID, for in-memory checkpoints.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scriptPath == "" {
		fs.Usage()
		return flag.ErrHelp
	}

	f, err := os.Open(*scriptPath)
	if err != nil {
		return errors.Wrap(err, "opening script")
	}
	defer func() { _ = f.Close() }()

	sc, err := ParseScript(f)
	if err != nil {
		return err
	}

	var store progress.Store
	if *apiURL != "" {
		store = progresssvc.NewRESTStore(*apiURL, *token, *activity, nil)
	} else {
		db, err := dummydb.Open()
		if err != nil {
			return errors.Wrap(err, "opening in-memory store")
		}
		svc := progress.NewService(nil, dummydb.NewCheckpointRepository(db), logger, conf)
		store = progresssvc.NewLocalStore(svc, progress.Key{StudentID: *student, ActivityID: *activity})
	}

	r := &runner{conf: conf, store: store, logger: logger, out: out}
	return r.run(ctx, sc)
}
