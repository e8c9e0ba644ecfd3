package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/remshq/rems/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateEvent(_ context.Context, evt attendance.Event) (attendance.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	evt.ID = uuid.New().String()
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *attendanceRepository) GetEventByID(_ context.Context, id string) (attendance.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if evt, ok := repo.db.events[id]; ok {
		return *evt, nil
	}
	return attendance.Event{}, attendance.ErrEventNotFound
}

func (repo *attendanceRepository) QueryEvents(_ context.Context) ([]attendance.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	events := make([]attendance.Event, 0, len(repo.db.events))
	for _, evt := range repo.db.events {
		events = append(events, *evt)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartTime.Before(events[j].StartTime) })
	return events, nil
}

func (repo *attendanceRepository) GetLog(_ context.Context, traineeID, eventID string, date attendance.Date) (attendance.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, log := range repo.db.logs {
		if log.TraineeID == traineeID && log.EventID == eventID && log.AttendanceDate.Equal(date) {
			return cloneLog(log), nil
		}
	}
	return attendance.Log{}, attendance.ErrLogNotFound
}

func (repo *attendanceRepository) CreateLog(_ context.Context, log attendance.Log) (attendance.Log, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// at most one log per (trainee, event, date)
	for _, l := range repo.db.logs {
		if l.TraineeID == log.TraineeID && l.EventID == log.EventID && l.AttendanceDate.Equal(log.AttendanceDate) {
			return attendance.Log{}, attendance.ErrDuplicateCheckIn
		}
	}

	log.ID = uuid.New().String()
	stored := cloneLog(&log)
	repo.db.logs[log.ID] = &stored
	return log, nil
}

func (repo *attendanceRepository) UpdateLog(_ context.Context, log attendance.Log) (attendance.Log, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.logs[log.ID]; !ok {
		return attendance.Log{}, attendance.ErrLogNotFound
	}
	stored := cloneLog(&log)
	repo.db.logs[log.ID] = &stored
	return log, nil
}

func (repo *attendanceRepository) QueryLogsByDate(_ context.Context, date attendance.Date) ([]attendance.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	logs := make([]attendance.Log, 0)
	for _, log := range repo.db.logs {
		if log.AttendanceDate.Equal(date) {
			logs = append(logs, cloneLog(log))
		}
	}
	sortLogs(logs)
	return logs, nil
}

func (repo *attendanceRepository) QueryLogsByTrainee(_ context.Context, traineeID string, date attendance.Date) ([]attendance.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cutoff := attendance.NowFunc().UTC().Add(-24 * time.Hour)

	logs := make([]attendance.Log, 0)
	for _, log := range repo.db.logs {
		if log.TraineeID != traineeID {
			continue
		}
		if date.IsZero() {
			// last 24h when no date requested
			if log.CheckInTime.Time().Before(cutoff) {
				continue
			}
		} else if !log.AttendanceDate.Equal(date) {
			continue
		}
		logs = append(logs, cloneLog(log))
	}
	sortLogs(logs)
	return logs, nil
}

func (repo *attendanceRepository) CountAttendedDays(_ context.Context, traineeIDs ...string) (map[string]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	wanted := make(map[string]bool, len(traineeIDs))
	for _, id := range traineeIDs {
		wanted[id] = true
	}

	seen := make(map[string]map[string]bool) // trainee -> set of dates
	for _, log := range repo.db.logs {
		if !wanted[log.TraineeID] {
			continue
		}
		if seen[log.TraineeID] == nil {
			seen[log.TraineeID] = make(map[string]bool)
		}
		seen[log.TraineeID][log.AttendanceDate.String()] = true
	}

	counts := make(map[string]int, len(traineeIDs))
	for id, dates := range seen {
		counts[id] = len(dates)
	}
	return counts, nil
}

func sortLogs(logs []attendance.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CheckInTime.Time().Before(logs[j].CheckInTime.Time())
	})
}

// cloneLog deep-copies the break interval slice so callers cannot mutate
// stored state through the returned value.
func cloneLog(log *attendance.Log) attendance.Log {
	cp := *log
	if log.BreakIntervals != nil {
		cp.BreakIntervals = make([]attendance.BreakInterval, len(log.BreakIntervals))
		for i, bi := range log.BreakIntervals {
			cp.BreakIntervals[i] = bi
			if bi.End != nil {
				end := *bi.End
				cp.BreakIntervals[i].End = &end
			}
		}
	}
	if log.CheckOutTime != nil {
		out := *log.CheckOutTime
		cp.CheckOutTime = &out
	}
	if log.BreakStartedAt != nil {
		start := *log.BreakStartedAt
		cp.BreakStartedAt = &start
	}
	return cp
}
