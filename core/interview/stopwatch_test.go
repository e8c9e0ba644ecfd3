package interview

import (
	"testing"
	"time"
)

func TestStopwatch(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	sw := NewStopwatch()
	sw.now = func() time.Time { return now }

	if sw.Running() {
		t.Fatal("new stopwatch is running")
	}
	if sw.Elapsed() != 0 {
		t.Fatalf("Elapsed() = %v, want 0", sw.Elapsed())
	}

	sw.Start()
	now = now.Add(3 * time.Minute)
	if got, want := sw.Elapsed(), 3*time.Minute; got != want {
		t.Errorf("Elapsed() = %v, want %v", got, want)
	}

	// starting while running is a no-op; the interval is not restarted
	sw.Start()
	now = now.Add(2 * time.Minute)
	sw.Pause()
	if sw.Running() {
		t.Error("Pause() left the stopwatch running")
	}
	if got, want := sw.Elapsed(), 5*time.Minute; got != want {
		t.Errorf("Elapsed() = %v, want %v", got, want)
	}

	// time does not accrue while paused
	now = now.Add(10 * time.Minute)
	if got, want := sw.Elapsed(), 5*time.Minute; got != want {
		t.Errorf("Elapsed() = %v, want %v", got, want)
	}

	// resume folds the new interval into the accumulated total
	sw.Start()
	now = now.Add(90 * time.Second)
	if got, want := sw.Finish(), "06:30"; got != want {
		t.Errorf("Finish() = %q, want %q", got, want)
	}
	if sw.Running() {
		t.Error("Finish() left the stopwatch running")
	}

	sw.Reset()
	if sw.Elapsed() != 0 || sw.Running() {
		t.Errorf("Reset() state: elapsed=%v running=%v", sw.Elapsed(), sw.Running())
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "zero", d: 0, want: "00:00"},
		{name: "negative clamps", d: -time.Second, want: "00:00"},
		{name: "under an hour", d: 12*time.Minute + 7*time.Second, want: "12:07"},
		{name: "an hour and over", d: time.Hour + time.Second, want: "01:00:01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatElapsed(tt.d); got != tt.want {
				t.Errorf("FormatElapsed() = %q, want %q", got, tt.want)
			}
		})
	}
}
