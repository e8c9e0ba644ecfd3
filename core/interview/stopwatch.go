package interview

import (
	"fmt"
	"time"
)

// Stopwatch drives the presentation timer. It follows an accumulated-time
// model: elapsed time is the sum of all completed run intervals plus the
// current one, so pausing and resuming never loses time already run.
type Stopwatch struct {
	accum     time.Duration
	startedAt time.Time
	running   bool

	now func() time.Time // mockable
}

func NewStopwatch() *Stopwatch {
	return &Stopwatch{now: time.Now}
}

func (sw *Stopwatch) Running() bool { return sw.running }

// Start begins (or resumes) a run interval; starting while running is a no-op.
func (sw *Stopwatch) Start() {
	if sw.running {
		return
	}
	sw.startedAt = sw.now()
	sw.running = true
}

// Pause closes the current run interval, folding it into the accumulated total.
func (sw *Stopwatch) Pause() {
	if !sw.running {
		return
	}
	sw.accum += sw.now().Sub(sw.startedAt)
	sw.running = false
}

// Elapsed is the accumulated total plus the in-progress interval, if any.
func (sw *Stopwatch) Elapsed() time.Duration {
	if sw.running {
		return sw.accum + sw.now().Sub(sw.startedAt)
	}
	return sw.accum
}

// Finish freezes the total and returns it formatted for the form's time field.
func (sw *Stopwatch) Finish() string {
	sw.Pause()
	return FormatElapsed(sw.accum)
}

// Reset clears the stopwatch; called whenever a different presentation form is
// selected.
func (sw *Stopwatch) Reset() {
	sw.accum = 0
	sw.running = false
}

// FormatElapsed renders a duration as HH:MM:SS, or MM:SS when under an hour.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
