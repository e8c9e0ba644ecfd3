package program

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/remshq/rems/core"
)

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

type (
	Repository interface {
		CreateTrack(ctx context.Context, track Track) (Track, error)
		// QueryTracks returns tracks with their module/session hierarchy nested.
		QueryTracks(ctx context.Context) ([]Track, error)
		GetTrackByID(ctx context.Context, id string) (Track, error)
		UpdateTrack(ctx context.Context, track Track) (Track, error)
		DeleteTrack(ctx context.Context, id string) error

		CreateModule(ctx context.Context, mod Module) (Module, error)
		GetModuleByID(ctx context.Context, id string) (Module, error)
		UpdateModule(ctx context.Context, mod Module) (Module, error)
		DeleteModule(ctx context.Context, id string) error

		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		UpdateSession(ctx context.Context, sess Session) (Session, error)
		DeleteSession(ctx context.Context, id string) error

		// GetTestByModuleID returns the module's exam, or ErrTestNotFound.
		GetTestByModuleID(ctx context.Context, moduleID string) (ModuleTest, error)
		// SaveTest upserts the exam, replacing its full question list.
		SaveTest(ctx context.Context, test ModuleTest) (ModuleTest, error)

		CreateTestResult(ctx context.Context, res TestResult) (TestResult, error)
		QueryTestResults(ctx context.Context, traineeIDs ...string) ([]TestResult, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) CreateTrack(ctx context.Context, nt NewTrack) (Track, error) {
	now := NowFunc().UTC()
	return svc.repo.CreateTrack(ctx, Track{
		Name:        core.CleanString(nt.Name),
		Description: core.CleanString(nt.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Tracks(ctx context.Context) ([]Track, error) {
	tracks, err := svc.repo.QueryTracks(ctx)
	if err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []Track{}
	}
	return tracks, nil
}

func (svc *Service) GetTrack(ctx context.Context, id string) (Track, error) {
	return svc.repo.GetTrackByID(ctx, id)
}

func (svc *Service) UpdateTrack(ctx context.Context, id string, nt NewTrack) (Track, error) {
	track, err := svc.repo.GetTrackByID(ctx, id)
	if err != nil {
		return Track{}, err
	}
	track.Name = core.CleanString(nt.Name)
	track.Description = core.CleanString(nt.Description)
	track.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateTrack(ctx, track)
}

func (svc *Service) DeleteTrack(ctx context.Context, id string) error {
	return svc.repo.DeleteTrack(ctx, id)
}

func (svc *Service) CreateModule(ctx context.Context, nm NewModule) (Module, error) {
	if _, err := svc.repo.GetTrackByID(ctx, nm.TrackID); err != nil {
		return Module{}, err
	}
	now := NowFunc().UTC()
	return svc.repo.CreateModule(ctx, Module{
		TrackID:   nm.TrackID,
		Title:     core.CleanString(nm.Title),
		Week:      nm.Week,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModuleByID(ctx, id)
}

func (svc *Service) UpdateModule(ctx context.Context, id string, nm NewModule) (Module, error) {
	mod, err := svc.repo.GetModuleByID(ctx, id)
	if err != nil {
		return Module{}, err
	}
	mod.Title = core.CleanString(nm.Title)
	mod.Week = nm.Week
	mod.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateModule(ctx, mod)
}

func (svc *Service) DeleteModule(ctx context.Context, id string) error {
	return svc.repo.DeleteModule(ctx, id)
}

func (svc *Service) CreateSession(ctx context.Context, ns NewSession) (Session, error) {
	if _, err := svc.repo.GetModuleByID(ctx, ns.ModuleID); err != nil {
		return Session{}, err
	}
	now := NowFunc().UTC()
	return svc.repo.CreateSession(ctx, Session{
		ModuleID:    ns.ModuleID,
		Title:       core.CleanString(ns.Title),
		Day:         ns.Day,
		Content:     ns.Content,
		Assignments: ns.Assignments,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetSession(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *Service) UpdateSession(ctx context.Context, id string, ns NewSession) (Session, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	sess.Title = core.CleanString(ns.Title)
	sess.Day = ns.Day
	sess.Content = ns.Content
	sess.Assignments = ns.Assignments
	sess.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateSession(ctx, sess)
}

func (svc *Service) DeleteSession(ctx context.Context, id string) error {
	return svc.repo.DeleteSession(ctx, id)
}

// GetTest returns a module's exam; absence is an explicit empty state
// (ErrTestNotFound), not a failure.
func (svc *Service) GetTest(ctx context.Context, moduleID string) (ModuleTest, error) {
	return svc.repo.GetTestByModuleID(ctx, moduleID)
}

// ReplaceTestQuestions validates and saves the full question list of a
// module's exam. No write happens when validation fails.
func (svc *Service) ReplaceTestQuestions(ctx context.Context, moduleID string, rt ReplaceTest) (ModuleTest, error) {
	if _, err := svc.repo.GetModuleByID(ctx, moduleID); err != nil {
		return ModuleTest{}, err
	}
	if err := NormalizeQuestions(rt.Questions); err != nil {
		return ModuleTest{}, err
	}

	test, err := svc.repo.GetTestByModuleID(ctx, moduleID)
	if err != nil {
		if errors.Cause(err) != ErrTestNotFound {
			return ModuleTest{}, err
		}
		test = ModuleTest{ModuleID: moduleID, CreatedAt: NowFunc().UTC()}
	}
	test.Title = core.CleanString(rt.Title)
	test.Questions = rt.Questions
	test.UpdatedAt = NowFunc().UTC()
	return svc.repo.SaveTest(ctx, test)
}

// SubmitTestAttempt grades a trainee's answers against the module exam and
// records the result. Unanswered questions count as wrong.
func (svc *Service) SubmitTestAttempt(ctx context.Context, traineeID, moduleID string, na NewTestAttempt) (TestResult, error) {
	if !na.Phase.Valid() {
		return TestResult{}, core.NewValidationError(errors.New("invalid phase"),
			core.FieldError{Field: "phase", Error: "must be pre or post"})
	}

	test, err := svc.repo.GetTestByModuleID(ctx, moduleID)
	if err != nil {
		return TestResult{}, err
	}

	var correct int
	for _, q := range test.Questions {
		want, ok := q.CorrectChoice()
		if !ok {
			continue
		}
		if na.Answers[q.ID] == want.ID {
			correct++
		}
	}

	return svc.repo.CreateTestResult(ctx, TestResult{
		TraineeID: traineeID,
		ModuleID:  moduleID,
		Phase:     na.Phase,
		Score:     float64(correct),
		Total:     float64(len(test.Questions)),
		TakenAt:   NowFunc().UTC(),
	})
}
