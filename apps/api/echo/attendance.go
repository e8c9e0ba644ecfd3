package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/remshq/rems/core/attendance"
	"github.com/remshq/rems/core/user"
)

type attendanceApi struct {
	svc      *attendance.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		svc:      deps.AttendanceSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/attendance", jwt)

	// staff endpoints
	ag.POST("/submit", api.checkIn, staffMiddleware())
	ag.PUT("/submit", api.update, staffMiddleware())
	ag.POST("/checkout", api.bulkCheckOut, staffMiddleware())
	ag.GET("/overview", api.overview, staffMiddleware())
	ag.GET("/overview/export", api.export, staffMiddleware())
	ag.POST("/events", api.createEvent, adminMiddleware())

	// trainee endpoints
	ag.GET("/events", api.events)
	ag.GET("/my-logs", api.myLogs)
}

// Handlers

func (api *attendanceApi) checkIn(ctx echo.Context) error {
	var data attendance.NewCheckIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCheckIn")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	result, err := api.svc.CheckIn(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	var data attendance.UpdateAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendance")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	log, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, log)
}

type bulkCheckOutRequest struct {
	CandidateIDs   []string `json:"candidate_ids" validate:"required,min=1"`
	Event          string   `json:"event" validate:"required"`
	AttendanceDate string   `json:"attendance_date" validate:"omitempty,isodate"`
	CheckOutTime   string   `json:"check_out_time" validate:"omitempty,clock"`
}

func (api *attendanceApi) bulkCheckOut(ctx echo.Context) error {
	var data bulkCheckOutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to bulkCheckOutRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	result, err := api.svc.BulkCheckOut(ctx.Request().Context(), data.CandidateIDs, data.Event, data.AttendanceDate, data.CheckOutTime)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *attendanceApi) createEvent(ctx echo.Context) error {
	var data attendance.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	evt, err := api.svc.CreateEvent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *attendanceApi) events(ctx echo.Context) error {
	events, err := api.svc.Events(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []attendance.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *attendanceApi) myLogs(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	logs, err := api.svc.MyLogs(ctx.Request().Context(), claims.Subject, ctx.QueryParam("date"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, logs)
}

type overviewResponse struct {
	Date  string                    `json:"date"`
	Stats *attendance.RosterStats   `json:"stats,omitempty"`
	Rows  []attendance.OverviewUser `json:"rows"`
}

func (api *attendanceApi) overviewRows(ctx echo.Context) ([]attendance.OverviewUser, attendance.Date, string, error) {
	dateStr := ctx.QueryParam("date")
	if dateStr == "" {
		dateStr = attendance.NewDate(attendance.NowFunc().UTC()).String()
	}
	date, err := attendance.ParseDate(dateStr)
	if err != nil {
		return nil, attendance.Date{}, "", err
	}

	rows, err := api.svc.Overview(ctx.Request().Context(), dateStr)
	if err != nil {
		return nil, attendance.Date{}, "", err
	}

	eventID := ctx.QueryParam("event")
	filter := attendance.RosterFilter{
		Search: ctx.QueryParam("search"),
		Track:  ctx.QueryParam("track"),
		Status: attendance.Status(ctx.QueryParam("status")),
	}
	rows = attendance.FilterRoster(rows, eventID, filter)
	attendance.SortRoster(rows, eventID)
	return rows, date, eventID, nil
}

func (api *attendanceApi) overview(ctx echo.Context) error {
	rows, date, eventID, err := api.overviewRows(ctx)
	if err != nil {
		return err
	}

	stats := attendance.ComputeRosterStats(rows, eventID)
	return ctx.JSON(http.StatusOK, overviewResponse{
		Date:  date.String(),
		Stats: &stats,
		Rows:  rows,
	})
}

func (api *attendanceApi) export(ctx echo.Context) error {
	rows, date, _, err := api.overviewRows(ctx)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("attendance-%s", date)
	switch format := ctx.QueryParam("format"); format {
	case "", "csv":
		blob := attendance.ExportCSV(rows, date)
		ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename+".csv"))
		return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", blob)
	case "xlsx":
		blob, err := attendance.ExportXLSX(rows, date)
		if err != nil {
			return errors.Wrap(err, "exporting xlsx")
		}
		ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename+".xlsx"))
		return ctx.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", blob)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported export format: "+format)
	}
}
