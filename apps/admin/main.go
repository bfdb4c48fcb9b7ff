package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/practical"
	"github.com/trezcool/followup/core/result"
	"github.com/trezcool/followup/core/student"
	logsvc "github.com/trezcool/followup/services/logger"
	"github.com/trezcool/followup/storage/database"
	sqlxrepos "github.com/trezcool/followup/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	tx := database.NewTxRunner(db)
	studentRepo := sqlxrepos.NewStudentRepository(db)
	subjectRepo := sqlxrepos.NewSubjectRepository(db)
	mentors := mentor.NewIdentityResolver(sqlxrepos.NewMentorRepository(db), logger)

	// start CLI
	cli := commandLine{
		db:         db.DB,
		modules:    academic.NewService(sqlxrepos.NewModuleRepository(db)),
		students:   student.NewService(studentRepo, mentors, logger),
		attendance: attendance.NewService(tx, sqlxrepos.NewAttendanceRepository(db), studentRepo, logger),
		results:    result.NewService(tx, sqlxrepos.NewResultRepository(db), subjectRepo, studentRepo, logger),
		practicals: practical.NewService(tx, sqlxrepos.NewPracticalRepository(db), subjectRepo, studentRepo, logger),
		validate:   validate,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
