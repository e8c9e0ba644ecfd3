package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/remshq/rems/core/interview"
	"github.com/remshq/rems/core/user"
)

type interviewApi struct {
	svc      *interview.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerInterviewAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := interviewApi{
		svc:      deps.InterviewSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	ig := g.Group("/interviews", jwt, staffMiddleware())

	ig.POST("/forms", api.createForm, adminMiddleware())
	ig.GET("/forms", api.forms)
	ig.GET("/forms/:id", api.retrieveForm)
	ig.POST("/forms/:id/submissions", api.submit)

	cg := ig.Group("/candidates/:id")
	cg.GET("/submissions", api.submissions)
	cg.GET("/breakdown", api.breakdown)
	cg.POST("/summary", api.summarize)
}

// Handlers

type newFormRequest struct {
	Title  string            `json:"title" validate:"required"`
	Fields []interview.Field `json:"fields" validate:"required,min=1"`
}

func (api *interviewApi) createForm(ctx echo.Context) error {
	var data newFormRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to newFormRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	form, err := api.svc.CreateForm(ctx.Request().Context(), interview.Form{
		Title:  data.Title,
		Fields: data.Fields,
	})
	if err != nil {
		return errors.Wrap(err, "creating form")
	}
	return ctx.JSON(http.StatusCreated, form)
}

// forms lists all forms for a candidate, flagging those the requesting
// interviewer already submitted.
func (api *interviewApi) forms(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	items, err := api.svc.Forms(ctx.Request().Context(), ctx.QueryParam("candidate"), claims.Subject)
	if err != nil {
		return err
	}
	if items == nil {
		items = []interview.FormListItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *interviewApi) retrieveForm(ctx echo.Context) error {
	form, err := api.svc.GetForm(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == interview.ErrFormNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, form)
}

type submitRequest struct {
	CandidateID string                      `json:"candidate_id" validate:"required"`
	Answers     map[string]interview.Answer `json:"answers" validate:"required"`
}

func (api *interviewApi) submit(ctx echo.Context) error {
	var data submitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to submitRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), data.CandidateID, claims.Subject, data.Answers)
	if err != nil {
		switch errors.Cause(err) {
		case interview.ErrFormNotFound:
			return errHttpNotFound
		case interview.ErrAlreadySubmitted:
			return echo.NewHTTPError(http.StatusConflict, interview.ErrAlreadySubmitted.Error())
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *interviewApi) submissions(ctx echo.Context) error {
	subs, err := api.svc.Submissions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []interview.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *interviewApi) breakdown(ctx echo.Context) error {
	kind := interview.FormKind(ctx.QueryParam("kind"))
	bd, err := api.svc.Breakdown(ctx.Request().Context(), ctx.Param("id"), kind)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, bd)
}

func (api *interviewApi) summarize(ctx echo.Context) error {
	kind := interview.FormKind(ctx.QueryParam("kind"))
	text, err := api.svc.Summarize(ctx.Request().Context(), ctx.Param("id"), kind)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"summary": text})
}
