package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core/subject"
)

type subjectApi struct {
	svc      *subject.Service
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, svc *subject.Service, validate *validator.Validate) {
	api := subjectApi{svc: svc, validate: validate}

	sg := g.Group("/subjects")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:subjectID", api.retrieve)
	sg.PUT("/:subjectID", api.update)
	sg.DELETE("/:subjectID", api.delete)
}

// query lists the subjects in display order; `?active=true` drops the inactive ones.
func (api *subjectApi) query(ctx echo.Context) error {
	moduleID := contextModule(ctx).ID
	activeOnly, _ := strconv.ParseBool(ctx.QueryParam("active"))

	var (
		subjects []subject.Subject
		err      error
	)
	if activeOnly {
		subjects, err = api.svc.Ordered(ctx.Request().Context(), moduleID)
	} else {
		subjects, err = api.svc.List(ctx.Request().Context(), moduleID, false)
		subject.Sort(subjects)
	}
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), contextModule(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "subjectID")
	if err != nil {
		return err
	}
	s, err := api.svc.Get(ctx.Request().Context(), contextModule(ctx).ID, id)
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "subjectID")
	if err != nil {
		return err
	}
	var data subject.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), contextModule(ctx).ID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) delete(ctx echo.Context) error {
	id, err := pathID(ctx, "subjectID")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), contextModule(ctx).ID, id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}
