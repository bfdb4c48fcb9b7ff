package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core/mentor"
)

type mentorApi struct {
	repo     mentor.Repository
	validate *validator.Validate
}

func registerMentorAPI(g *echo.Group, repo mentor.Repository, validate *validator.Validate) {
	api := mentorApi{repo: repo, validate: validate}

	mg := g.Group("/mentors")
	mg.GET("", api.query)
	mg.PUT("/:mentorID", api.update, mentorMiddleware(repo))
}

func (api *mentorApi) query(ctx echo.Context) error {
	mentors, err := api.repo.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing mentors")
	}
	if mentors == nil {
		mentors = []mentor.Mentor{}
	}
	return ctx.JSON(http.StatusOK, mentors)
}

func (api *mentorApi) update(ctx echo.Context) error {
	m := contextMentor(ctx)

	var data mentor.UpdateMentor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMentor")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.repo.UpdateFullName(ctx.Request().Context(), m.ID, data.FullName); err != nil {
		return errors.Wrap(err, "updating mentor")
	}
	m.FullName = data.FullName
	return ctx.JSON(http.StatusOK, m)
}
