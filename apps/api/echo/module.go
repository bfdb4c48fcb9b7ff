package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core/academic"
)

type moduleApi struct {
	svc      *academic.Service
	validate *validator.Validate
}

func registerModuleAPI(g *echo.Group, svc *academic.Service, validate *validator.Validate) {
	api := moduleApi{svc: svc, validate: validate}

	mg := g.Group("/modules")
	mg.GET("", api.query)
	mg.POST("", api.create)
	mg.GET("/current", api.current)
	mg.PUT("/:moduleID/active", api.setActive)
}

func (api *moduleApi) query(ctx echo.Context) error {
	activeOnly, _ := strconv.ParseBool(ctx.QueryParam("active"))
	modules, err := api.svc.List(ctx.Request().Context(), activeOnly)
	if err != nil {
		return errors.Wrap(err, "listing modules")
	}
	if modules == nil {
		modules = []academic.Module{}
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *moduleApi) create(ctx echo.Context) error {
	var data academic.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, m)
}

// current resolves the working module: the requested one when active, else the newest active one.
func (api *moduleApi) current(ctx echo.Context) error {
	id, err := queryInt(ctx, "id")
	if err != nil {
		return err
	}
	m, err := api.svc.Current(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting current module")
	}
	return ctx.JSON(http.StatusOK, m)
}

type activeRequest struct {
	IsActive bool `json:"is_active"`
}

func (api *moduleApi) setActive(ctx echo.Context) error {
	id, err := pathID(ctx, "moduleID")
	if err != nil {
		return err
	}
	var data activeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to activeRequest")
	}

	m, err := api.svc.SetActive(ctx.Request().Context(), id, data.IsActive)
	if err != nil {
		return errors.Wrap(err, "setting module activity")
	}
	return ctx.JSON(http.StatusOK, m)
}
