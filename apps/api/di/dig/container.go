package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/followup/apps/api/echo"
	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/practical"
	"github.com/trezcool/followup/core/result"
	"github.com/trezcool/followup/core/student"
	"github.com/trezcool/followup/core/subject"
	logsvc "github.com/trezcool/followup/services/logger"
	"github.com/trezcool/followup/storage/database"
	sqlxrepos "github.com/trezcool/followup/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newJobRunner(svc *result.Service, conf *core.Config, logger core.Logger) (*result.JobRunner, error) {
	return result.NewJobRunner(svc, conf.Jobs, logger)
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	ModuleSvc     *academic.Service
	MentorRepo    mentor.Repository
	StudentSvc    *student.Service
	AttendanceSvc *attendance.Service
	SubjectSvc    *subject.Service
	ResultSvc     *result.Service
	ResultJobs    *result.JobRunner
	PracticalSvc  *practical.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		ModuleSvc:     p.ModuleSvc,
		MentorRepo:    p.MentorRepo,
		StudentSvc:    p.StudentSvc,
		AttendanceSvc: p.AttendanceSvc,
		SubjectSvc:    p.SubjectSvc,
		ResultSvc:     p.ResultSvc,
		ResultJobs:    p.ResultJobs,
		PracticalSvc:  p.PracticalSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(database.NewTxRunner, dig.As(new(core.TxRunner))))

	// repositories
	must(c.Provide(sqlxrepos.NewModuleRepository, dig.As(new(academic.Repository))))
	must(c.Provide(sqlxrepos.NewMentorRepository, dig.As(new(mentor.Repository))))
	must(c.Provide(sqlxrepos.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(sqlxrepos.NewAttendanceRepository, dig.As(new(attendance.Repository))))
	must(c.Provide(sqlxrepos.NewSubjectRepository, dig.As(new(subject.Repository))))
	must(c.Provide(sqlxrepos.NewResultRepository, dig.As(new(result.Repository))))
	must(c.Provide(sqlxrepos.NewPracticalRepository, dig.As(new(practical.Repository))))

	// services
	must(c.Provide(mentor.NewIdentityResolver))
	must(c.Provide(academic.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(subject.NewService))
	must(c.Provide(result.NewService))
	must(c.Provide(practical.NewService))
	must(c.Provide(newJobRunner))

	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
