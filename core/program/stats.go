package program

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/remshq/rems/core/user"
)

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

type (
	// AttendanceCounter is the slice of the attendance store the stats view
	// needs: distinct attended days per trainee.
	AttendanceCounter interface {
		CountAttendedDays(ctx context.Context, traineeIDs ...string) (map[string]int, error)
	}

	// ModuleStat is one module's pre/post performance of a trainee.
	ModuleStat struct {
		ModuleID    string   `json:"module_id"`
		ModuleTitle string   `json:"module_title"`
		Week        int      `json:"week"`
		PreScore    *float64 `json:"pre_score"`
		PostScore   *float64 `json:"post_score"`
		PrePercent  string   `json:"pre_percent"`
		PostPercent string   `json:"post_percent"`
		Rank        int      `json:"rank"` // by post score among the track's trainees; 0 when unranked
	}

	// TraineeStats is the precomputed per-trainee performance summary.
	TraineeStats struct {
		TraineeID      string       `json:"trainee_id"`
		TraineeName    string       `json:"trainee_name"`
		Track          string       `json:"track"`
		AttendanceDays int          `json:"attendance_days"`
		Modules        []ModuleStat `json:"modules"`
	}

	// StatsService assembles aggregate trainee statistics from the program,
	// user and attendance stores.
	StatsService struct {
		repo       Repository
		usrSvc     *user.Service
		attendance AttendanceCounter
	}
)

func NewStatsService(repo Repository, usrSvc *user.Service, attendance AttendanceCounter) *StatsService {
	return &StatsService{repo: repo, usrSvc: usrSvc, attendance: attendance}
}

// latestResults keeps, per (trainee, module, phase), the most recent attempt.
func latestResults(results []TestResult) map[string]TestResult {
	latest := make(map[string]TestResult, len(results))
	for _, r := range results {
		k := r.TraineeID + "|" + r.ModuleID + "|" + string(r.Phase)
		if prev, ok := latest[k]; !ok || r.TakenAt.After(prev.TakenAt) {
			latest[k] = r
		}
	}
	return latest
}

// TraineeStats assembles the summary for every active trainee, optionally
// restricted to one track.
func (svc *StatsService) TraineeStats(ctx context.Context, track string) ([]TraineeStats, error) {
	trainees, err := svc.usrSvc.Trainees(ctx, track)
	if err != nil {
		return nil, errors.Wrap(err, "querying trainees")
	}
	if len(trainees) == 0 {
		return []TraineeStats{}, nil
	}

	ids := make([]string, 0, len(trainees))
	for _, t := range trainees {
		ids = append(ids, t.ID)
	}

	days, err := svc.attendance.CountAttendedDays(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "counting attended days")
	}
	results, err := svc.repo.QueryTestResults(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "querying test results")
	}
	tracks, err := svc.repo.QueryTracks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying tracks")
	}

	latest := latestResults(results)
	modules := modulesOf(tracks, track)
	ranks := rankByModule(modules, ids, latest)

	stats := make([]TraineeStats, 0, len(trainees))
	for _, t := range trainees {
		ts := TraineeStats{
			TraineeID:      t.ID,
			TraineeName:    t.Name,
			Track:          t.Track,
			AttendanceDays: days[t.ID],
			Modules:        make([]ModuleStat, 0, len(modules)),
		}
		for _, mod := range modules {
			ms := ModuleStat{
				ModuleID:    mod.ID,
				ModuleTitle: mod.Title,
				Week:        mod.Week,
				Rank:        ranks[mod.ID][t.ID],
			}
			if r, ok := latest[t.ID+"|"+mod.ID+"|"+string(PhasePre)]; ok {
				score := r.Score
				ms.PreScore = &score
				ms.PrePercent = r.Percent()
			}
			if r, ok := latest[t.ID+"|"+mod.ID+"|"+string(PhasePost)]; ok {
				score := r.Score
				ms.PostScore = &score
				ms.PostPercent = r.Percent()
			}
			ts.Modules = append(ts.Modules, ms)
		}
		stats = append(stats, ts)
	}
	return stats, nil
}

// modulesOf flattens the track hierarchy, optionally restricted to one track name.
func modulesOf(tracks []Track, trackName string) []Module {
	var modules []Module
	for _, tr := range tracks {
		if trackName != "" && tr.Name != trackName {
			continue
		}
		modules = append(modules, tr.Modules...)
	}
	return modules
}

// rankByModule ranks trainees per module by their latest post-exam percentage,
// descending; equal percentages share a rank. Trainees without a post attempt
// are unranked (0).
func rankByModule(modules []Module, traineeIDs []string, latest map[string]TestResult) map[string]map[string]int {
	ranks := make(map[string]map[string]int, len(modules))

	for _, mod := range modules {
		type scored struct {
			trainee string
			pct     float64
		}
		var entries []scored
		for _, id := range traineeIDs {
			r, ok := latest[id+"|"+mod.ID+"|"+string(PhasePost)]
			if !ok || r.Total == 0 {
				continue
			}
			entries = append(entries, scored{trainee: id, pct: r.Score / r.Total})
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].pct > entries[j].pct })

		modRanks := make(map[string]int, len(entries))
		for i, e := range entries {
			rank := i + 1
			if i > 0 && entries[i-1].pct == e.pct {
				rank = modRanks[entries[i-1].trainee]
			}
			modRanks[e.trainee] = rank
		}
		ranks[mod.ID] = modRanks
	}
	return ranks
}
