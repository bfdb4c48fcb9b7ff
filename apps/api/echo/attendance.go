package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/call"
	"github.com/trezcool/followup/core/mentor"
)

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerAttendanceAPI(
	g *echo.Group,
	svc *attendance.Service,
	mentors mentor.Repository,
	validate *validator.Validate,
	logger core.Logger,
) {
	api := attendanceApi{svc: svc, validate: validate, logger: logger}

	ag := g.Group("/attendance")
	ag.GET("", api.query)
	ag.POST("/upload", api.upload)
	ag.DELETE("", api.deleteAll)
	ag.GET("/calls", api.queryCalls)
	ag.GET("/weeks", api.weeks)
	ag.POST("/weeks/:week/lock", api.lockWeek)
	ag.DELETE("/weeks/:week", api.deleteWeek)

	mg := g.Group("/mentors/:mentorID", mentorMiddleware(mentors))
	mg.GET("/attendance-calls", api.mentorCalls)
	mg.PUT("/attendance-calls/:callID", api.recordCall)
	mg.POST("/attendance-calls/:callID/message-sent", api.messageSent)
	mg.GET("/attendance-report", api.report)
}

func attendanceFilter(ctx echo.Context) (attendance.QueryFilter, error) {
	filter := attendance.QueryFilter{ModuleID: contextModule(ctx).ID}

	var err error
	if filter.WeekNo, err = queryInt(ctx, "week"); err != nil {
		return filter, err
	}
	if filter.MentorID, err = queryInt(ctx, "mentor_id"); err != nil {
		return filter, err
	}
	if raw := ctx.QueryParam("call_required"); raw != "" {
		required, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, core.NewValidationError(err, core.FieldError{Field: "call_required", Error: "must be a boolean"})
		}
		filter.CallRequired = &required
	}
	return filter, nil
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter, err := attendanceFilter(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering attendance")
	}
	if rows == nil {
		rows = []attendance.Attendance{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *attendanceApi) queryCalls(ctx echo.Context) error {
	filter, err := attendanceFilter(ctx)
	if err != nil {
		return err
	}
	return api.calls(ctx, filter)
}

func (api *attendanceApi) calls(ctx echo.Context, filter attendance.QueryFilter) error {
	calls, err := api.svc.FilterCalls(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering attendance calls")
	}
	if calls == nil {
		calls = []attendance.CallRecord{}
	}
	return ctx.JSON(http.StatusOK, calls)
}

type attendanceUploadResponse struct {
	Msg string `json:"msg"`
	attendance.ImportSummary
}

func (api *attendanceApi) upload(ctx echo.Context) error {
	weekly, err := formFile(ctx, "weekly_file", true)
	if err != nil {
		return err
	}
	overall, err := formFile(ctx, "overall_file", false)
	if err != nil {
		return err
	}

	req := attendance.ImportRequest{
		ModuleID: contextModule(ctx).ID,
		Rule:     attendance.Rule(ctx.FormValue("rule")),
		Weekly:   weekly,
		Overall:  overall,
	}
	if raw := ctx.FormValue("week"); raw != "" {
		if req.WeekNo, err = strconv.Atoi(raw); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "week", Error: "must be a number"})
		}
	}
	if err = req.Validate(api.validate); err != nil {
		return err
	}

	sum, err := api.svc.Import(ctx.Request().Context(), req)
	if err != nil {
		return errors.Wrap(err, "importing attendance")
	}
	api.logger.Info(fmt.Sprintf("attendance week %d imported: %s", sum.WeekNo, sum.Message()), contextActor(ctx))
	return ctx.JSON(http.StatusOK, attendanceUploadResponse{Msg: sum.Message(), ImportSummary: sum})
}

func (api *attendanceApi) weeks(ctx echo.Context) error {
	weeks, err := api.svc.Weeks(ctx.Request().Context(), contextModule(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing weeks")
	}
	if weeks == nil {
		weeks = []int{}
	}
	return ctx.JSON(http.StatusOK, weeks)
}

func (api *attendanceApi) lockWeek(ctx echo.Context) error {
	week, err := pathID(ctx, "week")
	if err != nil {
		return err
	}
	if err = api.svc.LockWeek(ctx.Request().Context(), contextModule(ctx).ID, week); err != nil {
		return errors.Wrap(err, "locking week")
	}
	return ctx.JSON(http.StatusOK, msgResponse{Msg: fmt.Sprintf("Week %d locked", week)})
}

func (api *attendanceApi) deleteWeek(ctx echo.Context) error {
	week, err := pathID(ctx, "week")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteWeek(ctx.Request().Context(), contextModule(ctx).ID, week); err != nil {
		return errors.Wrap(err, "deleting week")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) deleteAll(ctx echo.Context) error {
	if err := api.svc.DeleteAll(ctx.Request().Context(), contextModule(ctx).ID); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// mentorCalls lists the calls of the mentor's students, `?week=` defaulting to the latest week.
func (api *attendanceApi) mentorCalls(ctx echo.Context) error {
	filter, err := attendanceFilter(ctx)
	if err != nil {
		return err
	}
	filter.MentorID = contextMentor(ctx).ID
	if filter.WeekNo == 0 {
		if filter.WeekNo, err = api.latestWeek(ctx); err != nil {
			return err
		}
	}
	return api.calls(ctx, filter)
}

func (api *attendanceApi) latestWeek(ctx echo.Context) (int, error) {
	weeks, err := api.svc.Weeks(ctx.Request().Context(), contextModule(ctx).ID)
	if err != nil {
		return 0, errors.Wrap(err, "listing weeks")
	}
	latest := 0
	for _, w := range weeks {
		if w > latest {
			latest = w
		}
	}
	return latest, nil
}

func (api *attendanceApi) recordCall(ctx echo.Context) error {
	callID, err := pathID(ctx, "callID")
	if err != nil {
		return err
	}
	var data call.Update
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to call.Update")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.RecordCall(ctx.Request().Context(), contextModule(ctx).ID, contextMentor(ctx).ID, callID, data)
	if err != nil {
		return errors.Wrap(err, "recording attendance call")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *attendanceApi) messageSent(ctx echo.Context) error {
	callID, err := pathID(ctx, "callID")
	if err != nil {
		return err
	}
	if err = api.svc.MarkMessageSent(ctx.Request().Context(), contextModule(ctx).ID, contextMentor(ctx).ID, callID); err != nil {
		return errors.Wrap(err, "marking message sent")
	}
	return ctx.JSON(http.StatusOK, msgResponse{Msg: "Message marked as sent"})
}

type attendanceReportResponse struct {
	attendance.Report
	Text string `json:"text"`
}

func (api *attendanceApi) report(ctx echo.Context) error {
	week, err := queryInt(ctx, "week")
	if err != nil {
		return err
	}
	if week == 0 {
		if week, err = api.latestWeek(ctx); err != nil {
			return err
		}
	}
	if week == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "week", Error: "no attendance uploaded yet"})
	}

	report, err := api.svc.MentorReport(ctx.Request().Context(), contextModule(ctx).ID, contextMentor(ctx), week)
	if err != nil {
		return errors.Wrap(err, "building attendance report")
	}
	return ctx.JSON(http.StatusOK, attendanceReportResponse{Report: report, Text: report.Text()})
}
