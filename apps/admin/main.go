package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/umoja/campus/core"
	"github.com/umoja/campus/core/grade"
	emailsvc "github.com/umoja/campus/services/email"
	"github.com/umoja/campus/storage/database"
	"github.com/umoja/campus/storage/database/postgres"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())
	sdb := sqlx.NewDb(db, conf.Database.Engine)

	gradeSvc := grade.NewService(
		postgres.NewGradeRepository(sdb),
		postgres.NewEnrollmentRepository(sdb),
		postgres.NewAssignmentScoreRepository(sdb),
		postgres.NewCourseRepository(sdb),
		postgres.NewAuditSink(sdb),
		emailsvc.NewConsoleService(conf),
		conf,
	)

	// start CLI
	cli := commandLine{
		db:       db,
		conf:     conf,
		gradeSvc: gradeSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
