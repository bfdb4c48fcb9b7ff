package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/mentor"
)

const (
	contextModuleKey = "module"
	contextMentorKey = "mentor"

	// actorHeader carries the coordinator or mentor code set by the fronting auth proxy.
	actorHeader = "X-Actor"
)

// moduleMiddleware loads the academic module of the `:moduleID` path parameter.
func moduleMiddleware(svc *academic.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := pathID(ctx, "moduleID")
			if err != nil {
				return err
			}
			m, err := svc.Get(ctx.Request().Context(), id)
			if err != nil {
				return errors.Wrap(err, "getting module")
			}
			ctx.Set(contextModuleKey, m)
			return next(ctx)
		}
	}
}

// mentorMiddleware loads the mentor of the `:mentorID` path parameter.
func mentorMiddleware(repo mentor.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := pathID(ctx, "mentorID")
			if err != nil {
				return err
			}
			m, err := repo.GetByID(ctx.Request().Context(), id)
			if err != nil {
				return errors.Wrap(err, "getting mentor")
			}
			ctx.Set(contextMentorKey, m)
			return next(ctx)
		}
	}
}

func contextModule(ctx echo.Context) academic.Module {
	m, _ := ctx.Get(contextModuleKey).(academic.Module)
	return m
}

func contextMentor(ctx echo.Context) mentor.Mentor {
	m, _ := ctx.Get(contextMentorKey).(mentor.Mentor)
	return m
}

func contextActor(ctx echo.Context) core.Actor {
	name := strings.TrimSpace(ctx.Request().Header.Get(actorHeader))
	if m := contextMentor(ctx); m.ID > 0 && name == "" {
		name = m.Name
	}
	return core.Actor{ID: name, Username: name}
}
