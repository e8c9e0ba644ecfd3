package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/remshq/rems/core/program"
)

type programRepository struct {
	db *DB
}

var _ program.Repository = (*programRepository)(nil)

func NewProgramRepository(db *DB) *programRepository {
	return &programRepository{db: db}
}

func (repo *programRepository) CreateTrack(_ context.Context, track program.Track) (program.Track, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	track.ID = uuid.New().String()
	repo.db.tracks[track.ID] = &track
	return track, nil
}

// assemble nests modules (with sessions and test) under their track.
func (repo *programRepository) assemble(track program.Track) program.Track {
	track.Modules = nil
	for _, mod := range repo.db.modules {
		if mod.TrackID != track.ID {
			continue
		}
		m := *mod
		m.Sessions = nil
		for _, sess := range repo.db.sessions {
			if sess.ModuleID == m.ID {
				m.Sessions = append(m.Sessions, *sess)
			}
		}
		sort.SliceStable(m.Sessions, func(i, j int) bool { return m.Sessions[i].Day < m.Sessions[j].Day })
		if test, ok := repo.db.tests[m.ID]; ok {
			t := *test
			m.Test = &t
		}
		track.Modules = append(track.Modules, m)
	}
	sort.SliceStable(track.Modules, func(i, j int) bool { return track.Modules[i].Week < track.Modules[j].Week })
	return track
}

func (repo *programRepository) QueryTracks(_ context.Context) ([]program.Track, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tracks := make([]program.Track, 0, len(repo.db.tracks))
	for _, tr := range repo.db.tracks {
		tracks = append(tracks, repo.assemble(*tr))
	}
	sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].Name < tracks[j].Name })
	return tracks, nil
}

func (repo *programRepository) GetTrackByID(_ context.Context, id string) (program.Track, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if tr, ok := repo.db.tracks[id]; ok {
		return repo.assemble(*tr), nil
	}
	return program.Track{}, program.ErrTrackNotFound
}

func (repo *programRepository) UpdateTrack(_ context.Context, track program.Track) (program.Track, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.tracks[track.ID]; !ok {
		return program.Track{}, program.ErrTrackNotFound
	}
	stored := track
	stored.Modules = nil
	repo.db.tracks[track.ID] = &stored
	return track, nil
}

func (repo *programRepository) DeleteTrack(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.tracks[id]; !ok {
		return program.ErrTrackNotFound
	}
	delete(repo.db.tracks, id)
	return nil
}

func (repo *programRepository) CreateModule(_ context.Context, mod program.Module) (program.Module, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	mod.ID = uuid.New().String()
	repo.db.modules[mod.ID] = &mod
	return mod, nil
}

func (repo *programRepository) GetModuleByID(_ context.Context, id string) (program.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if mod, ok := repo.db.modules[id]; ok {
		return *mod, nil
	}
	return program.Module{}, program.ErrModuleNotFound
}

func (repo *programRepository) UpdateModule(_ context.Context, mod program.Module) (program.Module, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.modules[mod.ID]; !ok {
		return program.Module{}, program.ErrModuleNotFound
	}
	stored := mod
	stored.Sessions = nil
	stored.Test = nil
	repo.db.modules[mod.ID] = &stored
	return mod, nil
}

func (repo *programRepository) DeleteModule(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.modules[id]; !ok {
		return program.ErrModuleNotFound
	}
	delete(repo.db.modules, id)
	delete(repo.db.tests, id)
	return nil
}

func (repo *programRepository) CreateSession(_ context.Context, sess program.Session) (program.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sess.ID = uuid.New().String()
	for i := range sess.Content {
		if sess.Content[i].ID == "" {
			sess.Content[i].ID = uuid.New().String()
		}
		sess.Content[i].SessionID = sess.ID
	}
	for i := range sess.Assignments {
		if sess.Assignments[i].ID == "" {
			sess.Assignments[i].ID = uuid.New().String()
		}
		sess.Assignments[i].SessionID = sess.ID
	}
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *programRepository) GetSessionByID(_ context.Context, id string) (program.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sess, ok := repo.db.sessions[id]; ok {
		return *sess, nil
	}
	return program.Session{}, program.ErrSessionNotFound
}

func (repo *programRepository) UpdateSession(_ context.Context, sess program.Session) (program.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[sess.ID]; !ok {
		return program.Session{}, program.ErrSessionNotFound
	}
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *programRepository) DeleteSession(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[id]; !ok {
		return program.ErrSessionNotFound
	}
	delete(repo.db.sessions, id)
	return nil
}

func (repo *programRepository) GetTestByModuleID(_ context.Context, moduleID string) (program.ModuleTest, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if test, ok := repo.db.tests[moduleID]; ok {
		return *test, nil
	}
	return program.ModuleTest{}, program.ErrTestNotFound
}

func (repo *programRepository) SaveTest(_ context.Context, test program.ModuleTest) (program.ModuleTest, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if test.ID == "" {
		test.ID = uuid.New().String()
	}
	for i := range test.Questions {
		if test.Questions[i].ID == "" {
			test.Questions[i].ID = uuid.New().String()
		}
		for j := range test.Questions[i].Choices {
			if test.Questions[i].Choices[j].ID == "" {
				test.Questions[i].Choices[j].ID = uuid.New().String()
			}
		}
	}
	repo.db.tests[test.ModuleID] = &test
	return test, nil
}

func (repo *programRepository) CreateTestResult(_ context.Context, res program.TestResult) (program.TestResult, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	res.ID = uuid.New().String()
	repo.db.results[res.ID] = &res
	return res, nil
}

func (repo *programRepository) QueryTestResults(_ context.Context, traineeIDs ...string) ([]program.TestResult, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	wanted := make(map[string]bool, len(traineeIDs))
	for _, id := range traineeIDs {
		wanted[id] = true
	}

	results := make([]program.TestResult, 0)
	for _, res := range repo.db.results {
		if len(traineeIDs) == 0 || wanted[res.TraineeID] {
			results = append(results, *res)
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].TakenAt.Before(results[j].TakenAt) })
	return results, nil
}
