package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/practical"
	"github.com/trezcool/followup/core/result"
	"github.com/trezcool/followup/core/student"
	"github.com/trezcool/followup/core/subject"
)

type (
	ServerDeps struct {
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

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Server.MaxUploadMB > 0 {
		s.app.Use(middleware.BodyLimit(formatMB(conf.Server.MaxUploadMB)))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	registerModuleAPI(v1, s.deps.ModuleSvc, s.deps.Validate)
	registerMentorAPI(v1, s.deps.MentorRepo, s.deps.Validate)

	mg := v1.Group("/modules/:moduleID", moduleMiddleware(s.deps.ModuleSvc))
	registerStudentAPI(mg, s.deps.StudentSvc)
	registerSubjectAPI(mg, s.deps.SubjectSvc, s.deps.Validate)
	registerAttendanceAPI(mg, s.deps.AttendanceSvc, s.deps.MentorRepo, s.deps.Validate, s.deps.Logger)
	registerResultAPI(mg, s.deps.ResultSvc, s.deps.ResultJobs, s.deps.MentorRepo, s.deps.Validate)
	registerPracticalAPI(mg, s.deps.PracticalSvc)
}

func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the error that stopped the server.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives the OS signals & internal requests to shut down.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Follow-up Tracker API!")
}
