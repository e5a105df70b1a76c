package main

import (
	"log"
	"os"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/progress"
	"github.com/trezcool/masomo-lab/services/logger"
	"github.com/trezcool/masomo-lab/storage/database"
	"github.com/trezcool/masomo-lab/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	// start CLI
	cli := newCommandLine(db, conf, progress.NewService(db, sqlxrepos.NewCheckpointRepository(db, conf.Database.Engine), logger, conf))
	err = cli.run(os.Args)
	if cErr := db.Close(); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("admin: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
