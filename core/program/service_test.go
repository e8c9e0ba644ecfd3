package program_test

import (
	"context"
	"testing"
	"time"

	"github.com/remshq/rems/core"
	"github.com/remshq/rems/core/attendance"
	"github.com/remshq/rems/core/program"
	"github.com/remshq/rems/core/user"
	inmemdb "github.com/remshq/rems/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) (*program.Service, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.NewDB()
	return program.NewService(inmemdb.NewProgramRepository(db), nopLogger{}), db
}

func createCurriculum(t *testing.T, svc *program.Service) (program.Track, program.Module) {
	t.Helper()
	ctx := context.Background()

	track, err := svc.CreateTrack(ctx, program.NewTrack{Name: "Backend", Description: "Go & SQL"})
	if err != nil {
		t.Fatalf("CreateTrack(): %v", err)
	}
	mod, err := svc.CreateModule(ctx, program.NewModule{TrackID: track.ID, Title: "Databases", Week: 3})
	if err != nil {
		t.Fatalf("CreateModule(): %v", err)
	}
	return track, mod
}

func examQuestions() []program.Question {
	return []program.Question{
		{
			Text:  "What does ACID stand for?",
			Order: 1,
			Choices: []program.Choice{
				{Text: "Atomicity, Consistency, Isolation, Durability", IsCorrect: true, Order: 1},
				{Text: "A database vendor", Order: 2},
			},
		},
		{
			Text:  "Which statement creates an index?",
			Order: 2,
			Choices: []program.Choice{
				{Text: "CREATE INDEX", IsCorrect: true, Order: 1},
				{Text: "MAKE INDEX", Order: 2},
				{Text: "NEW INDEX", Order: 3},
			},
		},
	}
}

func TestService_Tracks(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	track, mod := createCurriculum(t, svc)

	sess, err := svc.CreateSession(ctx, program.NewSession{
		ModuleID: mod.ID,
		Title:    "Transactions",
		Day:      2,
		Content:  []program.ContentItem{{Title: "Slides", URL: "https://example.com/slides", Order: 1}},
	})
	if err != nil {
		t.Fatalf("CreateSession(): %v", err)
	}

	got, err := svc.GetTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("GetTrack(): %v", err)
	}
	if len(got.Modules) != 1 || got.Modules[0].ID != mod.ID {
		t.Fatalf("GetTrack() modules = %+v", got.Modules)
	}
	if sessions := got.Modules[0].Sessions; len(sessions) != 1 || sessions[0].ID != sess.ID {
		t.Errorf("nested sessions = %+v", sessions)
	}

	t.Run("unknown ids", func(t *testing.T) {
		if _, err := svc.GetTrack(ctx, "nope"); err != program.ErrTrackNotFound {
			t.Errorf("GetTrack() error = %v, want %v", err, program.ErrTrackNotFound)
		}
		if _, err := svc.GetModule(ctx, "nope"); err != program.ErrModuleNotFound {
			t.Errorf("GetModule() error = %v, want %v", err, program.ErrModuleNotFound)
		}
		if _, err := svc.GetSession(ctx, "nope"); err != program.ErrSessionNotFound {
			t.Errorf("GetSession() error = %v, want %v", err, program.ErrSessionNotFound)
		}
		if _, err := svc.CreateModule(ctx, program.NewModule{TrackID: "nope", Title: "x"}); err != program.ErrTrackNotFound {
			t.Errorf("CreateModule() error = %v, want %v", err, program.ErrTrackNotFound)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		upd, err := svc.UpdateTrack(ctx, track.ID, program.NewTrack{Name: "  Backend Engineering  "})
		if err != nil {
			t.Fatalf("UpdateTrack(): %v", err)
		}
		if upd.Name != "Backend Engineering" {
			t.Errorf("Name = %q", upd.Name)
		}

		if err = svc.DeleteSession(ctx, sess.ID); err != nil {
			t.Fatalf("DeleteSession(): %v", err)
		}
		if _, err = svc.GetSession(ctx, sess.ID); err != program.ErrSessionNotFound {
			t.Errorf("GetSession() after delete error = %v", err)
		}
	})
}

func TestService_ReplaceTestQuestions(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	_, mod := createCurriculum(t, svc)

	t.Run("no exam yet", func(t *testing.T) {
		if _, err := svc.GetTest(ctx, mod.ID); err != program.ErrTestNotFound {
			t.Errorf("GetTest() error = %v, want %v", err, program.ErrTestNotFound)
		}
	})
	t.Run("unknown module", func(t *testing.T) {
		_, err := svc.ReplaceTestQuestions(ctx, "nope", program.ReplaceTest{Title: "Exam", Questions: examQuestions()})
		if err != program.ErrModuleNotFound {
			t.Errorf("ReplaceTestQuestions() error = %v, want %v", err, program.ErrModuleNotFound)
		}
	})
	t.Run("invalid questions are rejected before any write", func(t *testing.T) {
		bad := examQuestions()
		bad[0].Choices = bad[0].Choices[:1]
		if _, err := svc.ReplaceTestQuestions(ctx, mod.ID, program.ReplaceTest{Title: "Exam", Questions: bad}); err == nil {
			t.Fatal("ReplaceTestQuestions() accepted an invalid question list")
		}
		if _, err := svc.GetTest(ctx, mod.ID); err != program.ErrTestNotFound {
			t.Errorf("a failed replace wrote the exam: %v", err)
		}
	})
	t.Run("create then replace wholesale", func(t *testing.T) {
		test, err := svc.ReplaceTestQuestions(ctx, mod.ID, program.ReplaceTest{Title: "DB Exam", Questions: examQuestions()})
		if err != nil {
			t.Fatalf("ReplaceTestQuestions(): %v", err)
		}
		if len(test.Questions) != 2 {
			t.Fatalf("Questions len = %d, want 2", len(test.Questions))
		}

		replacement := examQuestions()[:1]
		test, err = svc.ReplaceTestQuestions(ctx, mod.ID, program.ReplaceTest{Title: "DB Exam v2", Questions: replacement})
		if err != nil {
			t.Fatalf("ReplaceTestQuestions(): %v", err)
		}
		if test.Title != "DB Exam v2" || len(test.Questions) != 1 {
			t.Errorf("replaced exam = %q with %d questions", test.Title, len(test.Questions))
		}

		got, err := svc.GetTest(ctx, mod.ID)
		if err != nil {
			t.Fatalf("GetTest(): %v", err)
		}
		if len(got.Questions) != 1 {
			t.Errorf("stored exam has %d questions, want 1", len(got.Questions))
		}
	})
}

func TestService_SubmitTestAttempt(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	_, mod := createCurriculum(t, svc)

	test, err := svc.ReplaceTestQuestions(ctx, mod.ID, program.ReplaceTest{Title: "DB Exam", Questions: examQuestions()})
	if err != nil {
		t.Fatalf("ReplaceTestQuestions(): %v", err)
	}

	answers := make(map[string]string, len(test.Questions))
	for i, q := range test.Questions {
		want, ok := q.CorrectChoice()
		if !ok {
			t.Fatalf("question %d has no correct choice", i)
		}
		if i == 0 {
			answers[q.ID] = want.ID
		} else {
			answers[q.ID] = q.Choices[1].ID // wrong on purpose
		}
	}

	t.Run("invalid phase", func(t *testing.T) {
		_, err := svc.SubmitTestAttempt(ctx, "t1", mod.ID, program.NewTestAttempt{Phase: "mid", Answers: answers})
		if err == nil {
			t.Error("SubmitTestAttempt() accepted an invalid phase")
		}
	})
	t.Run("graded", func(t *testing.T) {
		res, err := svc.SubmitTestAttempt(ctx, "t1", mod.ID, program.NewTestAttempt{Phase: program.PhasePre, Answers: answers})
		if err != nil {
			t.Fatalf("SubmitTestAttempt(): %v", err)
		}
		if res.Score != 1 || res.Total != 2 {
			t.Errorf("result = %v/%v, want 1/2", res.Score, res.Total)
		}
		if res.Percent() != "50.0%" {
			t.Errorf("Percent() = %q", res.Percent())
		}
	})
	t.Run("unanswered questions count as wrong", func(t *testing.T) {
		res, err := svc.SubmitTestAttempt(ctx, "t1", mod.ID, program.NewTestAttempt{Phase: program.PhasePost, Answers: map[string]string{}})
		if err != nil {
			t.Fatalf("SubmitTestAttempt(): %v", err)
		}
		if res.Score != 0 || res.Total != 2 {
			t.Errorf("result = %v/%v, want 0/2", res.Score, res.Total)
		}
	})
}

func TestStatsService_TraineeStats(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	repo := inmemdb.NewProgramRepository(db)
	svc := program.NewService(repo, nopLogger{})
	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, nil, &core.Config{AppName: "REMS"})
	attRepo := inmemdb.NewAttendanceRepository(db)
	stats := program.NewStatsService(repo, usrSvc, attRepo)

	track, err := svc.CreateTrack(ctx, program.NewTrack{Name: "Backend"})
	if err != nil {
		t.Fatalf("CreateTrack(): %v", err)
	}
	mod, err := svc.CreateModule(ctx, program.NewModule{TrackID: track.ID, Title: "Databases", Week: 3})
	if err != nil {
		t.Fatalf("CreateModule(): %v", err)
	}
	test, err := svc.ReplaceTestQuestions(ctx, mod.ID, program.ReplaceTest{Title: "DB Exam", Questions: examQuestions()})
	if err != nil {
		t.Fatalf("ReplaceTestQuestions(): %v", err)
	}

	active := true
	trainee, err := usrRepo.CreateUser(ctx, user.User{
		Name: "Alice Mwamba", Username: "alicem", Email: "alice@test.cd",
		Track: "Backend", IsActive: &active, Roles: []string{user.RoleTrainee},
	})
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}

	// two attended days
	evt, err := attRepo.CreateEvent(ctx, attendance.Event{Title: "Bootcamp"})
	if err != nil {
		t.Fatalf("CreateEvent(): %v", err)
	}
	for _, day := range []string{"2024-03-14", "2024-03-15"} {
		date, err := attendance.ParseDate(day)
		if err != nil {
			t.Fatalf("ParseDate(): %v", err)
		}
		clock, err := attendance.ParseClock("09:00:00", date)
		if err != nil {
			t.Fatalf("ParseClock(): %v", err)
		}
		_, err = attRepo.CreateLog(ctx, attendance.Log{
			TraineeID: trainee.ID, EventID: evt.ID, AttendanceDate: date, CheckInTime: clock,
		})
		if err != nil {
			t.Fatalf("CreateLog(): %v", err)
		}
	}

	// pre 0/2, post 2/2
	allCorrect := make(map[string]string, len(test.Questions))
	for _, q := range test.Questions {
		c, _ := q.CorrectChoice()
		allCorrect[q.ID] = c.ID
	}
	if _, err = svc.SubmitTestAttempt(ctx, trainee.ID, mod.ID, program.NewTestAttempt{Phase: program.PhasePre, Answers: nil}); err != nil {
		t.Fatalf("SubmitTestAttempt(pre): %v", err)
	}
	program.NowFunc = func() time.Time { return time.Now().Add(time.Hour) }
	t.Cleanup(func() { program.NowFunc = time.Now })
	if _, err = svc.SubmitTestAttempt(ctx, trainee.ID, mod.ID, program.NewTestAttempt{Phase: program.PhasePost, Answers: allCorrect}); err != nil {
		t.Fatalf("SubmitTestAttempt(post): %v", err)
	}

	got, err := stats.TraineeStats(ctx, "")
	if err != nil {
		t.Fatalf("TraineeStats(): %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("TraineeStats() len = %d, want 1", len(got))
	}

	ts := got[0]
	if ts.TraineeID != trainee.ID || ts.AttendanceDays != 2 {
		t.Errorf("stats = %+v", ts)
	}
	if len(ts.Modules) != 1 {
		t.Fatalf("Modules = %+v", ts.Modules)
	}
	ms := ts.Modules[0]
	if ms.PreScore == nil || *ms.PreScore != 0 || ms.PrePercent != "0.0%" {
		t.Errorf("pre = %+v", ms)
	}
	if ms.PostScore == nil || *ms.PostScore != 2 || ms.PostPercent != "100.0%" {
		t.Errorf("post = %+v", ms)
	}
	if ms.Rank != 1 {
		t.Errorf("Rank = %d, want 1", ms.Rank)
	}
}
