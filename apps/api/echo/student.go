package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core/student"
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, svc *student.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("/upload", api.upload)
	sg.DELETE("", api.clear)
	sg.GET("/:studentID", api.retrieve)
}

func (api *studentApi) query(ctx echo.Context) error {
	mentorID, err := queryInt(ctx, "mentor_id")
	if err != nil {
		return err
	}
	filter := student.QueryFilter{
		ModuleID: contextModule(ctx).ID,
		MentorID: mentorID,
		Search:   ctx.QueryParam("search"),
	}

	students, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "studentID")
	if err != nil {
		return err
	}
	s, err := api.svc.Get(ctx.Request().Context(), contextModule(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, s)
}

type studentUploadResponse struct {
	Msg string `json:"msg"`
	student.ImportSummary
}

func (api *studentApi) upload(ctx echo.Context) error {
	file, err := formFile(ctx, "file", true)
	if err != nil {
		return err
	}
	sum, err := api.svc.Import(ctx.Request().Context(), contextModule(ctx).ID, file)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, studentUploadResponse{Msg: sum.String(), ImportSummary: sum})
}

func (api *studentApi) clear(ctx echo.Context) error {
	n, err := api.svc.ClearModule(ctx.Request().Context(), contextModule(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "clearing students")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": n})
}
