package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/umoja/campus/core"
	"github.com/umoja/campus/core/grade"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	conf     *core.Config
	gradeSvc *grade.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  autocalc -course COURSE -semester N -year YYYY-YYYY - auto-grade a course from assignment scores")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	autoCalcCmd := flag.NewFlagSet("autocalc", flag.ExitOnError)
	autoCalcCourse := autoCalcCmd.String("course", "", "The course id to grade.")
	autoCalcSemester := autoCalcCmd.Int("semester", 0, "The semester (1-4).")
	autoCalcYear := autoCalcCmd.String("year", "", "The academic year (YYYY-YYYY).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "autocalc":
		if err := autoCalcCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *autoCalcCourse == "" || *autoCalcSemester == 0 || *autoCalcYear == "" {
			autoCalcCmd.Usage()
			return errHelp
		}
		return cli.autoCalc(*autoCalcCourse, *autoCalcSemester, *autoCalcYear)
	default:
		cli.printUsage()
		return errHelp
	}
}
