package attendance

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

// Date is a calendar day (YYYY-MM-DD), stored and compared at UTC midnight.
type Date time.Time

func NewDate(t time.Time) Date {
	t = t.UTC()
	return Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a YYYY-MM-DD string; a malformed value yields ErrInvalidDateFormat.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, ErrInvalidDateFormat
	}
	return Date(t), nil
}

func (d Date) Time() time.Time   { return time.Time(d) }
func (d Date) IsZero() bool      { return time.Time(d).IsZero() }
func (d Date) String() string    { return time.Time(d).Format(dateLayout) }
func (d Date) Equal(o Date) bool { return time.Time(d).Equal(time.Time(o)) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDateFormat
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) { return time.Time(d), nil }

func (d *Date) Scan(src interface{}) error {
	t, ok := src.(time.Time)
	if !ok {
		return errors.Errorf("attendance.Date: cannot scan %T", src)
	}
	*d = NewDate(t)
	return nil
}

// Clock is a wall-clock timestamp truncated to whole seconds, rendered as HH:MM:SS.
// The full timestamp (date included) is retained so durations spanning midnight stay correct.
type Clock time.Time

func NewClock(t time.Time) Clock {
	return Clock(t.UTC().Truncate(time.Second))
}

// ParseClock parses an HH:MM:SS string onto the given date; a malformed value
// yields ErrInvalidFormat.
func ParseClock(s string, day Date) (Clock, error) {
	t, err := time.ParseInLocation(clockLayout, s, time.UTC)
	if err != nil {
		return Clock{}, ErrInvalidFormat
	}
	d := day.Time()
	return Clock(time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)), nil
}

func (c Clock) Time() time.Time    { return time.Time(c) }
func (c Clock) IsZero() bool       { return time.Time(c).IsZero() }
func (c Clock) String() string     { return time.Time(c).Format(clockLayout) }
func (c Clock) Before(o Clock) bool { return time.Time(c).Before(time.Time(o)) }

func (c Clock) Sub(o Clock) time.Duration { return time.Time(c).Sub(time.Time(o)) }

func (c Clock) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*c = Clock{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidFormat
	}
	t, err := time.Parse(clockLayout, s[1:len(s)-1])
	if err != nil {
		return ErrInvalidFormat
	}
	*c = Clock(t)
	return nil
}

func (c Clock) Value() (driver.Value, error) { return time.Time(c), nil }

func (c *Clock) Scan(src interface{}) error {
	t, ok := src.(time.Time)
	if !ok {
		return errors.Errorf("attendance.Clock: cannot scan %T", src)
	}
	*c = NewClock(t)
	return nil
}

// Event is a scheduled occasion (a training day, a workshop) attendance is tracked against.
// Events are managed by staff; trainees only check in and out of them.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Title     string    `json:"title" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

// BreakInterval is one start/end pair during which a checked-in trainee is not
// actively present. An in-progress break has a nil End.
type BreakInterval struct {
	Start Clock  `json:"start"`
	End   *Clock `json:"end"`
}

func (bi BreakInterval) Closed() bool { return bi.End != nil }

// Status is the derived presence state of a trainee for one (event, date) pair.
type Status string

const (
	StatusAbsent   Status = "absent"
	StatusPresent  Status = "present"
	StatusOnBreak  Status = "on_break"
	StatusComplete Status = "complete"
)

// Log is the attendance record of one (trainee, event, date) triple.
// At most one Log exists per triple.
type Log struct {
	ID             string          `json:"id"`
	TraineeID      string          `json:"trainee_id"`
	EventID        string          `json:"event_id"`
	AttendanceDate Date            `json:"attendance_date"`
	CheckInTime    Clock           `json:"check_in_time"`
	CheckOutTime   *Clock          `json:"check_out_time"`
	Notes          string          `json:"notes"`
	BreakStartedAt *Clock          `json:"break_started_at"`
	BreakIntervals []BreakInterval `json:"break_intervals"`
	BreakAccum     time.Duration   `json:"break_accumulated"` // closed intervals only
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (l *Log) CheckedIn() bool  { return !l.CheckInTime.IsZero() }
func (l *Log) CheckedOut() bool { return l.CheckOutTime != nil }

// OnBreak reports whether an open break interval exists.
func (l *Log) OnBreak() bool {
	for _, bi := range l.BreakIntervals {
		if !bi.Closed() {
			return true
		}
	}
	return false
}

// Status derives the presence state: Absent if never checked in; Complete once
// checked out; OnBreak while an open break interval exists; Present otherwise.
func (l *Log) Status() Status {
	switch {
	case l == nil || !l.CheckedIn():
		return StatusAbsent
	case l.CheckedOut():
		return StatusComplete
	case l.OnBreak():
		return StatusOnBreak
	default:
		return StatusPresent
	}
}

// TotalBreak sums all closed break intervals.
func (l *Log) TotalBreak() time.Duration {
	var total time.Duration
	for _, bi := range l.BreakIntervals {
		if bi.Closed() {
			total += bi.End.Sub(bi.Start)
		}
	}
	return total
}

// WorkedDuration is (checkout - checkin) - total break time.
// It is undefined (ok == false) until checkout is set.
func (l *Log) WorkedDuration() (time.Duration, bool) {
	if !l.CheckedIn() || !l.CheckedOut() {
		return 0, false
	}
	return l.CheckOutTime.Sub(l.CheckInTime) - l.TotalBreak(), true
}

// Duration renders WorkedDuration as HH:MM:SS, or "" until checkout.
func (l *Log) Duration() string {
	d, ok := l.WorkedDuration()
	if !ok {
		return ""
	}
	return FormatDuration(d)
}

// checkOut transitions the log to its terminal state. Guards: must be checked
// in, must not already be checked out, and t must not precede check-in.
func (l *Log) checkOut(t Clock) error {
	if !l.CheckedIn() || l.CheckedOut() {
		return ErrDuplicateCheckOut
	}
	if t.Before(l.CheckInTime) {
		return ErrInvalidTimeOrder
	}
	// an open break is closed implicitly at checkout time
	l.endBreak(t)
	l.CheckOutTime = &t
	return nil
}

// startBreak opens a break interval. Starting while already on break, or after
// checkout, is a no-op; the returned bool reports whether state changed.
func (l *Log) startBreak(t Clock) bool {
	if !l.CheckedIn() || l.CheckedOut() || l.OnBreak() {
		return false
	}
	l.BreakStartedAt = &t
	l.BreakIntervals = append(l.BreakIntervals, BreakInterval{Start: t})
	return true
}

// endBreak closes the open break interval and accumulates its length.
// Ending while no break is open is a no-op.
func (l *Log) endBreak(t Clock) bool {
	for i := range l.BreakIntervals {
		if !l.BreakIntervals[i].Closed() {
			end := t
			if end.Before(l.BreakIntervals[i].Start) {
				end = l.BreakIntervals[i].Start
			}
			l.BreakIntervals[i].End = &end
			l.BreakAccum += end.Sub(l.BreakIntervals[i].Start)
			l.BreakStartedAt = nil
			return true
		}
	}
	return false
}

// FormatDuration renders d as HH:MM:SS; hours may exceed 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
