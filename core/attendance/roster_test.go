package attendance

import (
	"testing"
)

func rosterFixture(t *testing.T) ([]OverviewUser, string) {
	t.Helper()
	day := mustDate(t, "2024-03-15")
	eventID := "evt1"

	present := &Log{CheckInTime: mustClock(t, "09:00:00", day)}

	onBreak := &Log{CheckInTime: mustClock(t, "09:05:00", day)}
	onBreak.startBreak(mustClock(t, "10:00:00", day))

	complete := &Log{CheckInTime: mustClock(t, "09:10:00", day)}
	if err := complete.checkOut(mustClock(t, "17:00:00", day)); err != nil {
		t.Fatalf("checkOut(): %v", err)
	}

	row := func(id, name, email, track string, log *Log) OverviewUser {
		return OverviewUser{
			UserID:    id,
			UserName:  name,
			UserEmail: email,
			Track:     track,
			Events:    []OverviewEntry{{EventID: eventID, Log: log, Status: log.Status()}},
		}
	}
	rows := []OverviewUser{
		row("u1", "Alice Mwamba", "alice@test.cd", "Backend", present),
		row("u2", "Bob Ilunga", "bob@test.cd", "Frontend", onBreak),
		row("u3", "Carol Kanku", "carol@test.cd", "Backend", complete),
		row("u4", "Dan Mbuyi", "dan@test.cd", "Frontend", nil),
	}
	return rows, eventID
}

func rosterIDs(rows []OverviewUser) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterRoster(t *testing.T) {
	rows, eventID := rosterFixture(t)

	tests := []struct {
		name   string
		filter RosterFilter
		want   []string
	}{
		{name: "empty filter", filter: RosterFilter{}, want: []string{"u1", "u2", "u3", "u4"}},
		{name: "search by name", filter: RosterFilter{Search: "alice"}, want: []string{"u1"}},
		{name: "search by email", filter: RosterFilter{Search: "BOB@"}, want: []string{"u2"}},
		{name: "search unknown", filter: RosterFilter{Search: "nope"}, want: []string{}},
		{name: "track", filter: RosterFilter{Track: "backend"}, want: []string{"u1", "u3"}},
		{name: "status present", filter: RosterFilter{Status: StatusPresent}, want: []string{"u1"}},
		{name: "status absent", filter: RosterFilter{Status: StatusAbsent}, want: []string{"u4"}},
		{name: "track and status", filter: RosterFilter{Track: "Frontend", Status: StatusOnBreak}, want: []string{"u2"}},
		{name: "conjunction misses", filter: RosterFilter{Search: "alice", Track: "Frontend"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRoster(rows, eventID, tt.filter)
			if !equalIDs(rosterIDs(got), tt.want) {
				t.Errorf("FilterRoster() = %v, want %v", rosterIDs(got), tt.want)
			}
		})
	}
}

func TestSortRoster(t *testing.T) {
	rows, eventID := rosterFixture(t)

	SortRoster(rows, eventID)

	// absentees first, checked-in rows keep their relative order
	want := []string{"u4", "u1", "u2", "u3"}
	if got := rosterIDs(rows); !equalIDs(got, want) {
		t.Errorf("SortRoster() = %v, want %v", got, want)
	}
}

func TestComputeRosterStats(t *testing.T) {
	rows, eventID := rosterFixture(t)

	got := ComputeRosterStats(rows, eventID)
	want := RosterStats{Total: 4, Present: 1, Absent: 1, OnBreak: 1, Complete: 1}
	if got != want {
		t.Errorf("ComputeRosterStats() = %+v, want %+v", got, want)
	}

	// stats reflect the filtered subset, not the full roster
	filtered := FilterRoster(rows, eventID, RosterFilter{Track: "Backend"})
	got = ComputeRosterStats(filtered, eventID)
	want = RosterStats{Total: 2, Present: 1, Complete: 1}
	if got != want {
		t.Errorf("ComputeRosterStats(filtered) = %+v, want %+v", got, want)
	}
}
