package attendance

import (
	"sort"
	"strings"
)

// RosterFilter is the conjunction of roster predicates; zero values match everything.
type RosterFilter struct {
	Search string
	Track  string
	Status Status
}

func (f RosterFilter) IsEmpty() bool {
	return f.Search == "" && f.Track == "" && f.Status == ""
}

func (f RosterFilter) matches(row OverviewUser, eventID string) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !(strings.Contains(strings.ToLower(row.UserName), q) ||
			strings.Contains(strings.ToLower(row.UserEmail), q) ||
			strings.Contains(strings.ToLower(row.Phone), q)) {
			return false
		}
	}
	if f.Track != "" && !strings.EqualFold(f.Track, row.Track) {
		return false
	}
	if f.Status != "" && rowStatus(row, eventID) != f.Status {
		return false
	}
	return true
}

func rowStatus(row OverviewUser, eventID string) Status {
	for _, e := range row.Events {
		if e.EventID == eventID {
			return e.Status
		}
	}
	return StatusAbsent
}

// FilterRoster applies the filter predicates as a conjunction against the
// given event. An empty filter returns the rows unchanged.
func FilterRoster(rows []OverviewUser, eventID string, f RosterFilter) []OverviewUser {
	if f.IsEmpty() {
		return rows
	}
	out := make([]OverviewUser, 0, len(rows))
	for _, row := range rows {
		if f.matches(row, eventID) {
			out = append(out, row)
		}
	}
	return out
}

// SortRoster orders not-yet-checked-in trainees before checked-in ones for the
// given event; the relative order of rows is otherwise preserved.
func SortRoster(rows []OverviewUser, eventID string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rowStatus(rows[i], eventID) == StatusAbsent && rowStatus(rows[j], eventID) != StatusAbsent
	})
}

// RosterStats is the present/absent tally of the currently visible roster.
type RosterStats struct {
	Total    int `json:"total"`
	Present  int `json:"present"`
	Absent   int `json:"absent"`
	OnBreak  int `json:"on_break"`
	Complete int `json:"complete"`
}

// ComputeRosterStats tallies statuses over the given (already filtered) rows,
// not the full roster.
func ComputeRosterStats(rows []OverviewUser, eventID string) RosterStats {
	stats := RosterStats{Total: len(rows)}
	for _, row := range rows {
		switch rowStatus(row, eventID) {
		case StatusPresent:
			stats.Present++
		case StatusOnBreak:
			stats.OnBreak++
		case StatusComplete:
			stats.Complete++
		default:
			stats.Absent++
		}
	}
	return stats
}
