package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/call"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/result"
)

type resultApi struct {
	svc      *result.Service
	jobs     *result.JobRunner
	validate *validator.Validate
}

func registerResultAPI(
	g *echo.Group,
	svc *result.Service,
	jobs *result.JobRunner,
	mentors mentor.Repository,
	validate *validator.Validate,
) {
	api := resultApi{svc: svc, jobs: jobs, validate: validate}

	rg := g.Group("/results")
	rg.GET("", api.query)
	rg.DELETE("", api.deleteAll)
	rg.GET("/calls", api.queryCalls)
	rg.GET("/uploads", api.uploads)
	rg.POST("/uploads", api.upload)
	rg.GET("/uploads/:uploadID", api.uploadStats)
	rg.DELETE("/uploads/:uploadID", api.deleteUpload)
	rg.GET("/jobs/:jobID", api.job)
	rg.POST("/jobs/:jobID/cancel", api.cancelJob)

	mg := g.Group("/mentors/:mentorID", mentorMiddleware(mentors))
	mg.GET("/result-calls", api.mentorCalls)
	mg.PUT("/result-calls/:callID", api.recordCall)
	mg.POST("/result-calls/:callID/message-sent", api.messageSent)
	mg.GET("/result-report", api.report)
}

// upload queues a result file; its progress is polled through the returned job.
func (api *resultApi) upload(ctx echo.Context) error {
	file, err := formFile(ctx, "result_file", false)
	if err != nil {
		return err
	}
	req := result.UploadRequest{
		ModuleID:   contextModule(ctx).ID,
		TestName:   ctx.FormValue("test_name"),
		SubjectID:  ctx.FormValue("subject_id"),
		Mode:       ctx.FormValue("upload_mode"),
		Confirm:    ctx.FormValue("bulk_confirm"),
		UploadedBy: contextActor(ctx).Username,
		File:       file,
	}

	job, err := api.jobs.Submit(req)
	if err != nil {
		return errors.Wrap(err, "submitting result upload")
	}
	return ctx.JSON(http.StatusAccepted, job)
}

func (api *resultApi) job(ctx echo.Context) error {
	job, err := api.jobs.Get(contextModule(ctx).ID, ctx.Param("jobID"))
	if err != nil {
		return errors.Wrap(err, "getting result upload job")
	}
	return ctx.JSON(http.StatusOK, job)
}

func (api *resultApi) cancelJob(ctx echo.Context) error {
	if err := api.jobs.Cancel(contextModule(ctx).ID, ctx.Param("jobID")); err != nil {
		return errors.Wrap(err, "cancelling result upload job")
	}
	return ctx.JSON(http.StatusOK, msgResponse{Msg: "Cancellation requested."})
}

func (api *resultApi) uploads(ctx echo.Context) error {
	uploads, err := api.svc.Uploads(ctx.Request().Context(), contextModule(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing result uploads")
	}
	if uploads == nil {
		uploads = []result.Upload{}
	}
	return ctx.JSON(http.StatusOK, uploads)
}

func (api *resultApi) uploadStats(ctx echo.Context) error {
	id, err := pathID(ctx, "uploadID")
	if err != nil {
		return err
	}
	u, err := api.svc.UploadStats(ctx.Request().Context(), contextModule(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "getting result upload")
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *resultApi) deleteUpload(ctx echo.Context) error {
	id, err := pathID(ctx, "uploadID")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteUpload(ctx.Request().Context(), contextModule(ctx).ID, id); err != nil {
		return errors.Wrap(err, "deleting result upload")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *resultApi) deleteAll(ctx echo.Context) error {
	n, err := api.svc.DeleteAll(ctx.Request().Context(), contextModule(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "deleting result uploads")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": n})
}

func (api *resultApi) query(ctx echo.Context) error {
	filter := result.ResultFilter{ModuleID: contextModule(ctx).ID}

	var err error
	if filter.UploadID, err = queryInt(ctx, "upload_id"); err != nil {
		return err
	}
	if filter.MentorID, err = queryInt(ctx, "mentor_id"); err != nil {
		return err
	}
	filter.FailedOnly, _ = strconv.ParseBool(ctx.QueryParam("failed"))

	results, err := api.svc.Results(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering results")
	}
	if results == nil {
		results = []result.StudentResult{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func callFilter(ctx echo.Context) (result.CallFilter, error) {
	filter := result.CallFilter{ModuleID: contextModule(ctx).ID}

	var err error
	if filter.UploadID, err = queryInt(ctx, "upload_id"); err != nil {
		return filter, err
	}
	if filter.MentorID, err = queryInt(ctx, "mentor_id"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (api *resultApi) queryCalls(ctx echo.Context) error {
	filter, err := callFilter(ctx)
	if err != nil {
		return err
	}
	return api.calls(ctx, filter)
}

func (api *resultApi) mentorCalls(ctx echo.Context) error {
	filter, err := callFilter(ctx)
	if err != nil {
		return err
	}
	filter.MentorID = contextMentor(ctx).ID
	return api.calls(ctx, filter)
}

func (api *resultApi) calls(ctx echo.Context, filter result.CallFilter) error {
	calls, err := api.svc.Calls(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering result calls")
	}
	if calls == nil {
		calls = []result.CallRecord{}
	}
	return ctx.JSON(http.StatusOK, calls)
}

func (api *resultApi) recordCall(ctx echo.Context) error {
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
		return errors.Wrap(err, "recording result call")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *resultApi) messageSent(ctx echo.Context) error {
	callID, err := pathID(ctx, "callID")
	if err != nil {
		return err
	}
	if err = api.svc.MarkMessageSent(ctx.Request().Context(), contextModule(ctx).ID, contextMentor(ctx).ID, callID); err != nil {
		return errors.Wrap(err, "marking message sent")
	}
	return ctx.JSON(http.StatusOK, msgResponse{Msg: "Message marked as sent"})
}

type resultReportResponse struct {
	result.Report
	Text string `json:"text"`
}

func (api *resultApi) report(ctx echo.Context) error {
	uploadID, err := queryInt(ctx, "upload_id")
	if err != nil {
		return err
	}
	if uploadID == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "upload_id", Error: "this field is required"})
	}

	report, err := api.svc.MentorReport(ctx.Request().Context(), contextModule(ctx).ID, contextMentor(ctx), uploadID)
	if err != nil {
		return errors.Wrap(err, "building result report")
	}
	return ctx.JSON(http.StatusOK, resultReportResponse{Report: report, Text: report.Text()})
}
