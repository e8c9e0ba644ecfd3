package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/remshq/rems/core/program"
)

type programApi struct {
	svc      *program.Service
	statsSvc *program.StatsService
	validate *validator.Validate
}

func registerProgramAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := programApi{
		svc:      deps.ProgramSvc,
		statsSvc: deps.StatsSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/programs", jwt)

	// curriculum reads are open to any authenticated user
	pg.GET("/tracks", api.tracks)
	pg.GET("/tracks/:id", api.retrieveTrack)
	pg.GET("/modules/:id", api.retrieveModule)
	pg.GET("/modules/:id/test", api.retrieveTest)
	pg.GET("/sessions/:id", api.retrieveSession)

	// authoring is staff-only
	sg := pg.Group("", staffMiddleware())
	sg.POST("/tracks", api.createTrack)
	sg.PUT("/tracks/:id", api.updateTrack)
	sg.DELETE("/tracks/:id", api.destroyTrack, adminMiddleware())
	sg.POST("/modules", api.createModule)
	sg.PUT("/modules/:id", api.updateModule)
	sg.DELETE("/modules/:id", api.destroyModule, adminMiddleware())
	sg.POST("/sessions", api.createSession)
	sg.PUT("/sessions/:id", api.updateSession)
	sg.DELETE("/sessions/:id", api.destroySession, adminMiddleware())
	sg.PUT("/modules/:id/test", api.replaceTest)
	sg.GET("/stats/trainees", api.traineeStats)

	// exam attempts
	pg.POST("/modules/:id/test/attempts", api.submitAttempt)
}

// Handlers

func (api *programApi) createTrack(ctx echo.Context) error {
	var data program.NewTrack
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTrack")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	track, err := api.svc.CreateTrack(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating track")
	}
	return ctx.JSON(http.StatusCreated, track)
}

func (api *programApi) tracks(ctx echo.Context) error {
	tracks, err := api.svc.Tracks(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying tracks")
	}
	if tracks == nil {
		tracks = []program.Track{}
	}
	return ctx.JSON(http.StatusOK, tracks)
}

func (api *programApi) retrieveTrack(ctx echo.Context) error {
	track, err := api.svc.GetTrack(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusOK, track)
}

func (api *programApi) updateTrack(ctx echo.Context) error {
	var data program.NewTrack
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTrack")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	track, err := api.svc.UpdateTrack(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusOK, track)
}

func (api *programApi) destroyTrack(ctx echo.Context) error {
	if err := api.svc.DeleteTrack(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *programApi) createModule(ctx echo.Context) error {
	var data program.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	mod, err := api.svc.CreateModule(ctx.Request().Context(), data)
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *programApi) retrieveModule(ctx echo.Context) error {
	mod, err := api.svc.GetModule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *programApi) updateModule(ctx echo.Context) error {
	var data program.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	mod, err := api.svc.UpdateModule(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *programApi) destroyModule(ctx echo.Context) error {
	if err := api.svc.DeleteModule(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *programApi) createSession(ctx echo.Context) error {
	var data program.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	sess, err := api.svc.CreateSession(ctx.Request().Context(), data)
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *programApi) retrieveSession(ctx echo.Context) error {
	sess, err := api.svc.GetSession(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *programApi) updateSession(ctx echo.Context) error {
	var data program.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	sess, err := api.svc.UpdateSession(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *programApi) destroySession(ctx echo.Context) error {
	if err := api.svc.DeleteSession(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *programApi) retrieveTest(ctx echo.Context) error {
	test, err := api.svc.GetTest(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusOK, test)
}

func (api *programApi) replaceTest(ctx echo.Context) error {
	var data program.ReplaceTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReplaceTest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	test, err := api.svc.ReplaceTestQuestions(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusOK, test)
}

func (api *programApi) submitAttempt(ctx echo.Context) error {
	var data program.NewTestAttempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTestAttempt")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	result, err := api.svc.SubmitTestAttempt(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return trapProgramNotFound(err)
	}
	return ctx.JSON(http.StatusCreated, result)
}

func (api *programApi) traineeStats(ctx echo.Context) error {
	stats, err := api.statsSvc.TraineeStats(ctx.Request().Context(), ctx.QueryParam("track"))
	if err != nil {
		return err
	}
	if stats == nil {
		stats = []program.TraineeStats{}
	}
	return ctx.JSON(http.StatusOK, stats)
}

// trapProgramNotFound maps the program not-found sentinels to a 404.
func trapProgramNotFound(err error) error {
	switch errors.Cause(err) {
	case program.ErrTrackNotFound, program.ErrModuleNotFound, program.ErrSessionNotFound, program.ErrTestNotFound:
		return errHttpNotFound
	}
	return err
}
