package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/remshq/rems/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

type dbEvent struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

func unpackEvent(row dbEvent) attendance.Event {
	return attendance.Event{
		ID:        row.ID,
		Title:     row.Title,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

type dbAttendanceLog struct {
	ID             string    `db:"id"`
	TraineeID      string    `db:"trainee_id"`
	EventID        string    `db:"event_id"`
	AttendanceDate time.Time `db:"attendance_date"`
	CheckInTime    time.Time `db:"check_in_time"`
	CheckOutTime   null.Time `db:"check_out_time"`
	Notes          string    `db:"notes"`
	BreakStartedAt null.Time `db:"break_started_at"`
	BreakAccum     int64     `db:"break_accumulated"`
	CreatedAt      null.Time `db:"created_at"`
	UpdatedAt      null.Time `db:"updated_at"`
}

type dbBreak struct {
	ID        string    `db:"id"`
	LogID     string    `db:"log_id"`
	StartTime time.Time `db:"start_time"`
	EndTime   null.Time `db:"end_time"`
}

func (repo attendanceRepository) CreateEvent(ctx context.Context, evt attendance.Event) (attendance.Event, error) {
	evt.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO attendance_event (id, title, start_time, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		evt.ID, evt.Title, evt.StartTime.UTC(), evt.EndTime.UTC(), evt.CreatedAt.UTC(), evt.UpdatedAt.UTC())
	if err != nil {
		return attendance.Event{}, errors.Wrap(err, "inserting attendance event")
	}
	return evt, nil
}

func (repo attendanceRepository) GetEventByID(ctx context.Context, id string) (attendance.Event, error) {
	var row dbEvent
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, title, start_time, end_time, created_at, updated_at
		FROM attendance_event WHERE id = $1`, id)
	if err != nil {
		return attendance.Event{}, trapNoRowsErr(err, attendance.ErrEventNotFound, "getting attendance event")
	}
	return unpackEvent(row), nil
}

func (repo attendanceRepository) QueryEvents(ctx context.Context) ([]attendance.Event, error) {
	var rows []dbEvent
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, title, start_time, end_time, created_at, updated_at
		FROM attendance_event ORDER BY start_time`)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance events")
	}
	events := make([]attendance.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, unpackEvent(row))
	}
	return events, nil
}

func (repo attendanceRepository) unpackLog(row dbAttendanceLog, breaks []dbBreak) attendance.Log {
	log := attendance.Log{
		ID:             row.ID,
		TraineeID:      row.TraineeID,
		EventID:        row.EventID,
		AttendanceDate: attendance.Date(row.AttendanceDate),
		CheckInTime:    attendance.Clock(row.CheckInTime),
		Notes:          row.Notes,
		BreakAccum:     time.Duration(row.BreakAccum) * time.Second,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
	if row.CheckOutTime.Valid {
		out := attendance.Clock(row.CheckOutTime.Time)
		log.CheckOutTime = &out
	}
	if row.BreakStartedAt.Valid {
		started := attendance.Clock(row.BreakStartedAt.Time)
		log.BreakStartedAt = &started
	}
	for _, brk := range breaks {
		bi := attendance.BreakInterval{Start: attendance.Clock(brk.StartTime)}
		if brk.EndTime.Valid {
			end := attendance.Clock(brk.EndTime.Time)
			bi.End = &end
		}
		log.BreakIntervals = append(log.BreakIntervals, bi)
	}
	return log
}

func (repo attendanceRepository) loadBreaks(ctx context.Context, logIDs []string) (map[string][]dbBreak, error) {
	if len(logIDs) == 0 {
		return map[string][]dbBreak{}, nil
	}
	var rows []dbBreak
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, log_id, start_time, end_time
		FROM attendance_break WHERE log_id = ANY($1) ORDER BY start_time`, pq.Array(logIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance breaks")
	}
	byLog := make(map[string][]dbBreak, len(logIDs))
	for _, row := range rows {
		byLog[row.LogID] = append(byLog[row.LogID], row)
	}
	return byLog, nil
}

func (repo attendanceRepository) GetLog(ctx context.Context, traineeID, eventID string, date attendance.Date) (attendance.Log, error) {
	var row dbAttendanceLog
	err := repo.db.GetContext(ctx, &row, `
		SELECT * FROM attendance_log
		WHERE trainee_id = $1 AND event_id = $2 AND attendance_date = $3`,
		traineeID, eventID, date.Time())
	if err != nil {
		return attendance.Log{}, trapNoRowsErr(err, attendance.ErrLogNotFound, "getting attendance log")
	}
	breaks, err := repo.loadBreaks(ctx, []string{row.ID})
	if err != nil {
		return attendance.Log{}, err
	}
	return repo.unpackLog(row, breaks[row.ID]), nil
}

func (repo attendanceRepository) CreateLog(ctx context.Context, log attendance.Log) (attendance.Log, error) {
	log.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO attendance_log (id, trainee_id, event_id, attendance_date, check_in_time,
		                            check_out_time, notes, break_started_at, break_accumulated,
		                            created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		log.ID, log.TraineeID, log.EventID, log.AttendanceDate.Time(), log.CheckInTime.Time(),
		clockPtr(log.CheckOutTime), log.Notes, clockPtr(log.BreakStartedAt),
		int64(log.BreakAccum/time.Second), log.CreatedAt.UTC(), log.UpdatedAt.UTC())
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
			return attendance.Log{}, attendance.ErrDuplicateCheckIn
		}
		return attendance.Log{}, errors.Wrap(err, "inserting attendance log")
	}
	return log, nil
}

func (repo attendanceRepository) UpdateLog(ctx context.Context, log attendance.Log) (attendance.Log, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return attendance.Log{}, errors.Wrap(err, "beginning log update tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE attendance_log
		SET check_out_time = $2, notes = $3, break_started_at = $4, break_accumulated = $5, updated_at = $6
		WHERE id = $1`,
		log.ID, clockPtr(log.CheckOutTime), log.Notes, clockPtr(log.BreakStartedAt),
		int64(log.BreakAccum/time.Second), log.UpdatedAt.UTC())
	if err != nil {
		return attendance.Log{}, errors.Wrap(err, "updating attendance log")
	}

	// break intervals are replaced wholesale; the list is small.
	if _, err = tx.ExecContext(ctx, `DELETE FROM attendance_break WHERE log_id = $1`, log.ID); err != nil {
		return attendance.Log{}, errors.Wrap(err, "clearing attendance breaks")
	}
	for _, bi := range log.BreakIntervals {
		var end interface{}
		if bi.End != nil {
			end = bi.End.Time()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attendance_break (id, log_id, start_time, end_time)
			VALUES ($1, $2, $3, $4)`,
			uuid.New().String(), log.ID, bi.Start.Time(), end)
		if err != nil {
			return attendance.Log{}, errors.Wrap(err, "inserting attendance break")
		}
	}

	if err = tx.Commit(); err != nil {
		return attendance.Log{}, errors.Wrap(err, "committing log update tx")
	}
	return log, nil
}

func (repo attendanceRepository) QueryLogsByDate(ctx context.Context, date attendance.Date) ([]attendance.Log, error) {
	var rows []dbAttendanceLog
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM attendance_log WHERE attendance_date = $1 ORDER BY check_in_time`, date.Time())
	if err != nil {
		return nil, errors.Wrap(err, "querying logs by date")
	}
	return repo.attachBreaks(ctx, rows)
}

func (repo attendanceRepository) QueryLogsByTrainee(ctx context.Context, traineeID string, date attendance.Date) ([]attendance.Log, error) {
	var (
		rows []dbAttendanceLog
		err  error
	)
	if date.IsZero() {
		cutoff := time.Now().UTC().Add(-24 * time.Hour)
		err = repo.db.SelectContext(ctx, &rows, `
			SELECT * FROM attendance_log
			WHERE trainee_id = $1 AND check_in_time >= $2 ORDER BY check_in_time DESC`,
			traineeID, cutoff)
	} else {
		err = repo.db.SelectContext(ctx, &rows, `
			SELECT * FROM attendance_log
			WHERE trainee_id = $1 AND attendance_date = $2 ORDER BY check_in_time DESC`,
			traineeID, date.Time())
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying logs by trainee")
	}
	return repo.attachBreaks(ctx, rows)
}

func (repo attendanceRepository) attachBreaks(ctx context.Context, rows []dbAttendanceLog) ([]attendance.Log, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	breaks, err := repo.loadBreaks(ctx, ids)
	if err != nil {
		return nil, err
	}
	logs := make([]attendance.Log, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, repo.unpackLog(row, breaks[row.ID]))
	}
	return logs, nil
}

func (repo attendanceRepository) CountAttendedDays(ctx context.Context, traineeIDs ...string) (map[string]int, error) {
	counts := make(map[string]int, len(traineeIDs))
	if len(traineeIDs) == 0 {
		return counts, nil
	}
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT trainee_id, COUNT(DISTINCT attendance_date)
		FROM attendance_log WHERE trainee_id = ANY($1) GROUP BY trainee_id`, pq.Array(traineeIDs))
	if err != nil {
		return nil, errors.Wrap(err, "counting attended days")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err = rows.Scan(&id, &n); err != nil {
			return nil, errors.Wrap(err, "scanning attended days")
		}
		counts[id] = n
	}
	return counts, errors.Wrap(rows.Err(), "iterating attended days")
}

func clockPtr(c *attendance.Clock) interface{} {
	if c == nil {
		return nil
	}
	return c.Time()
}
