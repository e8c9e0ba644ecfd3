package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/remshq/rems/core"
	"github.com/remshq/rems/core/user"
)

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		GetEventByID(ctx context.Context, id string) (Event, error)
		QueryEvents(ctx context.Context) ([]Event, error)
		// GetLog returns the unique log of a (trainee, event, date) triple,
		// or ErrLogNotFound.
		GetLog(ctx context.Context, traineeID, eventID string, date Date) (Log, error)
		CreateLog(ctx context.Context, log Log) (Log, error)
		UpdateLog(ctx context.Context, log Log) (Log, error)
		QueryLogsByDate(ctx context.Context, date Date) ([]Log, error)
		// QueryLogsByTrainee returns the trainee's logs for a date, or the
		// last 24h when date is zero.
		QueryLogsByTrainee(ctx context.Context, traineeID string, date Date) ([]Log, error)
		// CountAttendedDays counts distinct attendance dates with a check-in per trainee.
		CountAttendedDays(ctx context.Context, traineeIDs ...string) (map[string]int, error)
	}

	Service struct {
		repo   Repository
		usrSvc *user.Service
		logger core.Logger
	}
)

func NewService(repo Repository, usrSvc *user.Service, logger core.Logger) *Service {
	return &Service{repo: repo, usrSvc: usrSvc, logger: logger}
}

// NewCheckIn is the check-in request; either CandidateID or CandidateIDs must
// be provided. The time defaults to the current wall-clock time truncated to
// whole seconds.
type NewCheckIn struct {
	CandidateID    string   `json:"candidate_id"`
	CandidateIDs   []string `json:"candidate_ids"`
	Event          string   `json:"event" validate:"required"`
	AttendanceDate string   `json:"attendance_date" validate:"omitempty,isodate"`
	CheckInTime    string   `json:"check_in_time" validate:"omitempty,clock"`
	Notes          string   `json:"notes"`
}

func (ci *NewCheckIn) candidateIDs() []string {
	if ci.CandidateID != "" {
		return []string{ci.CandidateID}
	}
	return ci.CandidateIDs
}

// UpdateAttendance mutates the log of a (candidate, event, date) triple:
// exactly one of check-out, break-start or break-end.
type UpdateAttendance struct {
	CandidateID    string `json:"candidate_id" validate:"required"`
	Event          string `json:"event" validate:"required"`
	AttendanceDate string `json:"attendance_date" validate:"omitempty,isodate"`
	CheckOutTime   string `json:"check_out_time" validate:"omitempty,clock"`
	BreakStartTime string `json:"break_start_time" validate:"omitempty,clock"`
	BreakEndTime   string `json:"break_end_time" validate:"omitempty,clock"`
	Notes          string `json:"notes"`
}

// ItemResult is the per-candidate outcome of a (bulk) write.
type ItemResult struct {
	CandidateID string `json:"candidate_id"`
	Status      string `json:"status"` // checked_in | checked_out | skipped | error
	Code        string `json:"code,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// BulkResult aggregates per-candidate outcomes; the successful subset is never
// rolled back on partial failure.
type BulkResult struct {
	Success int          `json:"success"`
	Skipped int          `json:"skipped"`
	Errors  int          `json:"errors"`
	Results []ItemResult `json:"results"`
}

func (br *BulkResult) add(res ItemResult) {
	switch res.Status {
	case "skipped":
		br.Skipped++
	case "error":
		br.Errors++
	default:
		br.Success++
	}
	br.Results = append(br.Results, res)
}

func (svc *Service) CreateEvent(ctx context.Context, ne NewEvent) (Event, error) {
	now := NowFunc().UTC()
	return svc.repo.CreateEvent(ctx, Event{
		Title:     core.CleanString(ne.Title),
		StartTime: ne.StartTime.UTC(),
		EndTime:   ne.EndTime.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Events(ctx context.Context) ([]Event, error) {
	return svc.repo.QueryEvents(ctx)
}

// resolveWhen parses the request date/time, defaulting both to "now".
func resolveWhen(dateStr, clockStr string) (Date, Clock, error) {
	now := NowFunc().UTC()

	date := NewDate(now)
	if dateStr != "" {
		var err error
		if date, err = ParseDate(dateStr); err != nil {
			return Date{}, Clock{}, err
		}
	}

	if clockStr == "" {
		// default: current wall-clock truncated to whole seconds, on the requested date
		clockStr = NewClock(now).String()
	}
	clock, err := ParseClock(clockStr, date)
	if err != nil {
		return Date{}, Clock{}, err
	}
	return date, clock, nil
}

// CheckIn creates the log(s) for the requested candidates. The selection is
// pre-filtered: candidates with an existing log for the triple are reported as
// skipped (duplicate check-in) without a write; unknown candidates are
// reported as errors. Eligible candidates are written independently.
func (svc *Service) CheckIn(ctx context.Context, ci NewCheckIn) (BulkResult, error) {
	var result BulkResult

	ids := ci.candidateIDs()
	if len(ids) == 0 {
		return result, ErrIdentifierRequired
	}

	date, clock, err := resolveWhen(ci.AttendanceDate, ci.CheckInTime)
	if err != nil {
		return result, err
	}

	evt, err := svc.repo.GetEventByID(ctx, ci.Event)
	if err != nil {
		return result, err
	}

	for _, id := range ids {
		res := svc.checkInOne(ctx, id, evt, date, clock, ci.Notes)
		result.add(res)
	}
	return result, nil
}

func (svc *Service) checkInOne(ctx context.Context, candidateID string, evt Event, date Date, clock Clock, notes string) ItemResult {
	if _, err := svc.usrSvc.GetByID(ctx, candidateID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return ItemResult{CandidateID: candidateID, Status: "error", Code: ErrCandidateNotFound.Code, Detail: ErrCandidateNotFound.Detail}
		}
		return ItemResult{CandidateID: candidateID, Status: "error", Detail: err.Error()}
	}

	// at most one log per (trainee, event, date)
	if _, err := svc.repo.GetLog(ctx, candidateID, evt.ID, date); err == nil {
		return ItemResult{CandidateID: candidateID, Status: "skipped", Code: ErrDuplicateCheckIn.Code, Detail: ErrDuplicateCheckIn.Detail}
	} else if errors.Cause(err) != ErrLogNotFound {
		return ItemResult{CandidateID: candidateID, Status: "error", Detail: err.Error()}
	}

	now := NowFunc().UTC()
	_, err := svc.repo.CreateLog(ctx, Log{
		TraineeID:      candidateID,
		EventID:        evt.ID,
		AttendanceDate: date,
		CheckInTime:    clock,
		Notes:          core.CleanString(notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return ItemResult{CandidateID: candidateID, Status: "error", Detail: err.Error()}
	}
	return ItemResult{CandidateID: candidateID, Status: "checked_in"}
}

// Update applies a check-out, break-start or break-end (in that precedence) to
// the candidate's log. Break toggling is idempotent: redundant start/end
// requests leave the log untouched and return it unchanged.
func (svc *Service) Update(ctx context.Context, ua UpdateAttendance) (Log, error) {
	if ua.CandidateID == "" {
		return Log{}, ErrIdentifierRequired
	}

	dateStr := ua.AttendanceDate
	var clockStr string
	switch {
	case ua.CheckOutTime != "":
		clockStr = ua.CheckOutTime
	case ua.BreakStartTime != "":
		clockStr = ua.BreakStartTime
	case ua.BreakEndTime != "":
		clockStr = ua.BreakEndTime
	}
	date, clock, err := resolveWhen(dateStr, clockStr)
	if err != nil {
		return Log{}, err
	}

	log, err := svc.repo.GetLog(ctx, ua.CandidateID, ua.Event, date)
	if err != nil {
		return Log{}, err
	}

	var changed bool
	switch {
	case ua.CheckOutTime != "":
		if err = log.checkOut(clock); err != nil {
			return Log{}, err
		}
		changed = true
	case ua.BreakStartTime != "":
		changed = log.startBreak(clock)
	case ua.BreakEndTime != "":
		changed = log.endBreak(clock)
	default:
		return Log{}, ErrInvalidFormat
	}

	if notes := core.CleanString(ua.Notes); notes != "" {
		log.Notes = notes
		changed = true
	}
	if !changed {
		return log, nil
	}

	log.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateLog(ctx, log)
}

// BulkCheckOut checks out a selected set of candidates, pre-filtering the
// selection to logs for which checkout is still legal.
func (svc *Service) BulkCheckOut(ctx context.Context, candidateIDs []string, eventID, dateStr, clockStr string) (BulkResult, error) {
	var result BulkResult

	if len(candidateIDs) == 0 {
		return result, ErrIdentifierRequired
	}
	date, clock, err := resolveWhen(dateStr, clockStr)
	if err != nil {
		return result, err
	}

	for _, id := range candidateIDs {
		log, err := svc.repo.GetLog(ctx, id, eventID, date)
		if err != nil {
			result.add(ItemResult{CandidateID: id, Status: "skipped", Code: core.ErrorCode(err), Detail: err.Error()})
			continue
		}
		if log.CheckedOut() {
			result.add(ItemResult{CandidateID: id, Status: "skipped", Code: ErrDuplicateCheckOut.Code, Detail: ErrDuplicateCheckOut.Detail})
			continue
		}
		if err = log.checkOut(clock); err != nil {
			result.add(ItemResult{CandidateID: id, Status: "error", Code: core.ErrorCode(err), Detail: err.Error()})
			continue
		}
		log.UpdatedAt = NowFunc().UTC()
		if _, err = svc.repo.UpdateLog(ctx, log); err != nil {
			result.add(ItemResult{CandidateID: id, Status: "error", Detail: err.Error()})
			continue
		}
		result.add(ItemResult{CandidateID: id, Status: "checked_out"})
	}
	return result, nil
}

// MyLogs returns a trainee's logs for a date, or the last 24 hours when the
// date is empty.
func (svc *Service) MyLogs(ctx context.Context, traineeID, dateStr string) ([]Log, error) {
	var date Date
	if dateStr != "" {
		var err error
		if date, err = ParseDate(dateStr); err != nil {
			return nil, err
		}
	}
	logs, err := svc.repo.QueryLogsByTrainee(ctx, traineeID, date)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []Log{}
	}
	return logs, nil
}

// OverviewEntry pairs one known event with the trainee's log for the date;
// the log is nil (status absent) when no check-in exists.
type OverviewEntry struct {
	EventID    string `json:"event_id"`
	EventTitle string `json:"event_title"`
	Log        *Log   `json:"log"`
	Status     Status `json:"status"`
}

// OverviewUser is the per-trainee per-event roster row for one date,
// assembled per request and discarded on the next fetch.
type OverviewUser struct {
	UserID    string          `json:"user_id"`
	UserName  string          `json:"user_name"`
	UserEmail string          `json:"user_email"`
	Track     string          `json:"track"`
	Phone     string          `json:"phone"`
	Events    []OverviewEntry `json:"events"`
}

// Overview assembles the per-user per-event roster for a date: one entry per
// known event for every active trainee, synthesized as absent when no log exists.
func (svc *Service) Overview(ctx context.Context, dateStr string) ([]OverviewUser, error) {
	date, err := ParseDate(dateStr)
	if err != nil {
		return nil, err
	}

	trainees, err := svc.usrSvc.Trainees(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying trainees")
	}
	events, err := svc.repo.QueryEvents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	logs, err := svc.repo.QueryLogsByDate(ctx, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}

	// index logs by (trainee, event)
	type key struct{ trainee, event string }
	byKey := make(map[key]*Log, len(logs))
	for i := range logs {
		byKey[key{logs[i].TraineeID, logs[i].EventID}] = &logs[i]
	}

	rows := make([]OverviewUser, 0, len(trainees))
	for _, t := range trainees {
		row := OverviewUser{
			UserID:    t.ID,
			UserName:  t.Name,
			UserEmail: t.Email,
			Track:     t.Track,
			Phone:     t.Phone,
			Events:    make([]OverviewEntry, 0, len(events)),
		}
		for _, evt := range events {
			log := byKey[key{t.ID, evt.ID}]
			row.Events = append(row.Events, OverviewEntry{
				EventID:    evt.ID,
				EventTitle: evt.Title,
				Log:        log,
				Status:     log.Status(),
			})
		}
		rows = append(rows, row)
	}
	return rows, nil
}
