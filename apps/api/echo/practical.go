package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core/practical"
)

type practicalApi struct {
	svc *practical.Service
}

func registerPracticalAPI(g *echo.Group, svc *practical.Service) {
	api := practicalApi{svc: svc}

	pg := g.Group("/practicals")
	pg.GET("", api.query)
	pg.POST("/upload", api.upload)
}

func (api *practicalApi) query(ctx echo.Context) error {
	filter := practical.QueryFilter{ModuleID: contextModule(ctx).ID}

	var err error
	if filter.SubjectID, err = queryInt(ctx, "subject_id"); err != nil {
		return err
	}
	if filter.StudentID, err = queryInt(ctx, "student_id"); err != nil {
		return err
	}

	marks, err := api.svc.Marks(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering practical marks")
	}
	if marks == nil {
		marks = []practical.Mark{}
	}
	return ctx.JSON(http.StatusOK, marks)
}

func (api *practicalApi) upload(ctx echo.Context) error {
	file, err := formFile(ctx, "practical_file", true)
	if err != nil {
		return err
	}
	sum, err := api.svc.Import(ctx.Request().Context(), contextModule(ctx).ID, contextActor(ctx).Username, file)
	if err != nil {
		return errors.Wrap(err, "importing practical marks")
	}
	return ctx.JSON(http.StatusOK, sum)
}
