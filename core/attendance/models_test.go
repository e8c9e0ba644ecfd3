package attendance

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func mustClock(t *testing.T, s string, day Date) Clock {
	t.Helper()
	c, err := ParseClock(s, day)
	if err != nil {
		t.Fatalf("ParseClock(%q): %v", s, err)
	}
	return c
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "valid", in: "2024-03-15", want: "2024-03-15"},
		{name: "empty", in: "", wantErr: ErrInvalidDateFormat},
		{name: "wrong layout", in: "15/03/2024", wantErr: ErrInvalidDateFormat},
		{name: "time included", in: "2024-03-15T09:00:00Z", wantErr: ErrInvalidDateFormat},
		{name: "month out of range", in: "2024-13-01", wantErr: ErrInvalidDateFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.in)
			if err != tt.wantErr {
				t.Fatalf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && d.String() != tt.want {
				t.Errorf("ParseDate() = %v, want %v", d.String(), tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	day := mustDate(t, "2024-03-15")

	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "valid", in: "09:30:00"},
		{name: "midnight", in: "00:00:00"},
		{name: "empty", in: "", wantErr: ErrInvalidFormat},
		{name: "no seconds", in: "09:30", wantErr: ErrInvalidFormat},
		{name: "out of range", in: "25:00:00", wantErr: ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseClock(tt.in, day)
			if err != tt.wantErr {
				t.Fatalf("ParseClock() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if c.String() != tt.in {
				t.Errorf("ParseClock() = %v, want %v", c.String(), tt.in)
			}
			// the clock must land on the requested day
			if got := NewDate(c.Time()); !got.Equal(day) {
				t.Errorf("ParseClock() day = %v, want %v", got, day)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := mustDate(t, "2024-03-15")
	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON(): %v", err)
	}
	if string(data) != `"2024-03-15"` {
		t.Errorf("MarshalJSON() = %s", data)
	}

	var parsed Date
	if err = parsed.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON(): %v", err)
	}
	if !parsed.Equal(d) {
		t.Errorf("UnmarshalJSON() = %v, want %v", parsed, d)
	}

	if err = parsed.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("UnmarshalJSON(null): %v", err)
	}
	if !parsed.IsZero() {
		t.Errorf("UnmarshalJSON(null) = %v, want zero", parsed)
	}
	if err = parsed.UnmarshalJSON([]byte(`"lol"`)); err != ErrInvalidDateFormat {
		t.Errorf("UnmarshalJSON(lol) error = %v, want %v", err, ErrInvalidDateFormat)
	}
}

func TestLog_Status(t *testing.T) {
	day := mustDate(t, "2024-03-15")
	nine := mustClock(t, "09:00:00", day)
	ten := mustClock(t, "10:00:00", day)

	var nilLog *Log
	if got := nilLog.Status(); got != StatusAbsent {
		t.Errorf("Status() = %v, want %v", got, StatusAbsent)
	}

	log := &Log{}
	if got := log.Status(); got != StatusAbsent {
		t.Errorf("Status() = %v, want %v", got, StatusAbsent)
	}

	log.CheckInTime = nine
	if got := log.Status(); got != StatusPresent {
		t.Errorf("Status() = %v, want %v", got, StatusPresent)
	}

	log.startBreak(ten)
	if got := log.Status(); got != StatusOnBreak {
		t.Errorf("Status() = %v, want %v", got, StatusOnBreak)
	}

	if err := log.checkOut(mustClock(t, "17:00:00", day)); err != nil {
		t.Fatalf("checkOut(): %v", err)
	}
	if got := log.Status(); got != StatusComplete {
		t.Errorf("Status() = %v, want %v", got, StatusComplete)
	}
}

func TestLog_checkOut(t *testing.T) {
	day := mustDate(t, "2024-03-15")
	nine := mustClock(t, "09:00:00", day)
	eight := mustClock(t, "08:00:00", day)
	five := mustClock(t, "17:00:00", day)

	t.Run("not checked in", func(t *testing.T) {
		log := &Log{}
		if err := log.checkOut(five); err != ErrDuplicateCheckOut {
			t.Errorf("checkOut() error = %v, want %v", err, ErrDuplicateCheckOut)
		}
	})
	t.Run("before check-in", func(t *testing.T) {
		log := &Log{CheckInTime: nine}
		if err := log.checkOut(eight); err != ErrInvalidTimeOrder {
			t.Errorf("checkOut() error = %v, want %v", err, ErrInvalidTimeOrder)
		}
	})
	t.Run("already checked out", func(t *testing.T) {
		log := &Log{CheckInTime: nine}
		if err := log.checkOut(five); err != nil {
			t.Fatalf("checkOut(): %v", err)
		}
		if err := log.checkOut(five); err != ErrDuplicateCheckOut {
			t.Errorf("checkOut() error = %v, want %v", err, ErrDuplicateCheckOut)
		}
	})
	t.Run("closes open break", func(t *testing.T) {
		log := &Log{CheckInTime: nine}
		log.startBreak(mustClock(t, "12:00:00", day))
		if err := log.checkOut(five); err != nil {
			t.Fatalf("checkOut(): %v", err)
		}
		if log.OnBreak() {
			t.Error("checkOut() left an open break")
		}
		if got, want := log.TotalBreak(), 5*time.Hour; got != want {
			t.Errorf("TotalBreak() = %v, want %v", got, want)
		}
	})
}

func TestLog_breaks(t *testing.T) {
	day := mustDate(t, "2024-03-15")
	log := &Log{CheckInTime: mustClock(t, "09:00:00", day)}

	if log.endBreak(mustClock(t, "09:30:00", day)) {
		t.Error("endBreak() with no open break reported a change")
	}

	if !log.startBreak(mustClock(t, "10:00:00", day)) {
		t.Fatal("startBreak() reported no change")
	}
	if log.startBreak(mustClock(t, "10:05:00", day)) {
		t.Error("startBreak() while on break reported a change")
	}
	if !log.endBreak(mustClock(t, "10:15:00", day)) {
		t.Fatal("endBreak() reported no change")
	}

	// a second break; accumulated time survives the first
	log.startBreak(mustClock(t, "12:00:00", day))
	log.endBreak(mustClock(t, "12:45:00", day))

	if got, want := log.TotalBreak(), time.Hour; got != want {
		t.Errorf("TotalBreak() = %v, want %v", got, want)
	}
	if got, want := log.BreakAccum, time.Hour; got != want {
		t.Errorf("BreakAccum = %v, want %v", got, want)
	}

	if _, ok := log.WorkedDuration(); ok {
		t.Error("WorkedDuration() defined before checkout")
	}
	if got := log.Duration(); got != "" {
		t.Errorf("Duration() = %q before checkout", got)
	}

	if err := log.checkOut(mustClock(t, "17:00:00", day)); err != nil {
		t.Fatalf("checkOut(): %v", err)
	}
	worked, ok := log.WorkedDuration()
	if !ok {
		t.Fatal("WorkedDuration() undefined after checkout")
	}
	if want := 7 * time.Hour; worked != want {
		t.Errorf("WorkedDuration() = %v, want %v", worked, want)
	}
	if got, want := log.Duration(), "07:00:00"; got != want {
		t.Errorf("Duration() = %q, want %q", got, want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "zero", d: 0, want: "00:00:00"},
		{name: "negative clamps", d: -time.Minute, want: "00:00:00"},
		{name: "sub-minute", d: 42 * time.Second, want: "00:00:42"},
		{name: "typical day", d: 7*time.Hour + 30*time.Minute + 5*time.Second, want: "07:30:05"},
		{name: "over 24h", d: 26*time.Hour + time.Minute, want: "26:01:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration() = %q, want %q", got, tt.want)
			}
		})
	}
}
