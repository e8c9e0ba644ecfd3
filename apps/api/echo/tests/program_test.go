package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/remshq/rems/core/program"
	"github.com/remshq/rems/core/user"
)

func createTrack(t *testing.T, name string) program.Track {
	t.Helper()
	track, err := progSvc.CreateTrack(context.Background(), program.NewTrack{Name: name})
	if err != nil {
		t.Fatalf("createTrack(): %v", err)
	}
	return track
}

func createModule(t *testing.T, trackID, title string, week int) program.Module {
	t.Helper()
	mod, err := progSvc.CreateModule(context.Background(), program.NewModule{TrackID: trackID, Title: title, Week: week})
	if err != nil {
		t.Fatalf("createModule(): %v", err)
	}
	return mod
}

func examQuestions() []program.Question {
	return []program.Question{
		{
			Text: "What does ACID stand for?", Order: 1,
			Choices: []program.Choice{
				{Text: "Atomicity, Consistency, Isolation, Durability", IsCorrect: true, Order: 1},
				{Text: "Availability, Caching, Indexing, Distribution", Order: 2},
			},
		},
		{
			Text: "Which statement removes a table?", Order: 2,
			Choices: []program.Choice{
				{Text: "DELETE TABLE", Order: 1},
				{Text: "DROP TABLE", IsCorrect: true, Order: 2},
			},
		},
	}
}

func Test_programApi_curriculum(t *testing.T) {
	app := setup(t)

	trainee := createUser(t, "Hero Kabila", "herokab", "", []string{user.RoleTrainee}, true)
	staff := createUser(t, "Sam Staff", "samstaff", "", []string{user.RoleStaff}, true)
	admin := createUser(t, "Admin Kat", "adminkat", "", []string{user.RoleAdmin}, true)
	traineeToken := getToken(t, trainee)
	staffToken := getToken(t, staff)

	track := createTrack(t, "Backend")
	mod := createModule(t, track.ID, "Databases", 3)

	tests := []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/api/v1/programs/tracks", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "staff required to author", method: http.MethodPost, path: "/api/v1/programs/tracks",
			body: marchallObj(t, program.NewTrack{Name: "Frontend"}), token: traineeToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "name required", method: http.MethodPost, path: "/api/v1/programs/tracks",
			body: marchallObj(t, program.NewTrack{}), token: staffToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "module needs existing track", method: http.MethodPost, path: "/api/v1/programs/modules",
			body: marchallObj(t, program.NewModule{TrackID: "ghost", Title: "Orphan", Week: 1}), token: staffToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "unknown track", method: http.MethodGet, path: "/api/v1/programs/tracks/ghost", token: traineeToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "admin required to destroy", method: http.MethodDelete, path: "/api/v1/programs/tracks/" + track.ID, token: staffToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("trainee reads nested track", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/programs/tracks/"+track.ID, traineeToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got program.Track
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Name != "Backend" || len(got.Modules) != 1 || got.Modules[0].Title != "Databases" {
			t.Errorf("track = %+v", got)
		}
	})
	t.Run("staff creates session", func(t *testing.T) {
		body := marchallObj(t, program.NewSession{ModuleID: mod.ID, Title: "Indexes", Day: 2})
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/programs/sessions", staffToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var sess program.Session
		if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}

		req, rec = newAuthRequest(http.MethodDelete, "/api/v1/programs/sessions/"+sess.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		req, rec = newAuthRequest(http.MethodGet, "/api/v1/programs/sessions/"+sess.ID, staffToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})
	t.Run("staff renames track", func(t *testing.T) {
		body := marchallObj(t, program.NewTrack{Name: "  Backend Engineering  "})
		req, rec := newAuthRequest(http.MethodPut, "/api/v1/programs/tracks/"+track.ID, staffToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got program.Track
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Name != "Backend Engineering" {
			t.Errorf("Name = %q", got.Name)
		}
	})
}

func Test_programApi_moduleTest(t *testing.T) {
	app := setup(t)

	trainee := createUser(t, "Hero Kabila", "herokab", "", []string{user.RoleTrainee}, true)
	staff := createUser(t, "Sam Staff", "samstaff", "", []string{user.RoleStaff}, true)
	traineeToken := getToken(t, trainee)
	staffToken := getToken(t, staff)

	track := createTrack(t, "Backend")
	mod := createModule(t, track.ID, "Databases", 3)
	testPath := "/api/v1/programs/modules/" + mod.ID + "/test"

	tests := []httpTest{
		{
			name: "no test yet", method: http.MethodGet, path: testPath, token: traineeToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "staff required to edit", method: http.MethodPut, path: testPath,
			body: marchallObj(t, program.ReplaceTest{Title: "Databases Exam", Questions: examQuestions()}), token: traineeToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "questions required", method: http.MethodPut, path: testPath,
			body: marchallObj(t, map[string]interface{}{"title": "Databases Exam"}), token: staffToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"questions": "this field is required"}),
		},
		{
			name: "questions checked per entry", method: http.MethodPut, path: testPath,
			body: marchallObj(t, program.ReplaceTest{Title: "Databases Exam", Questions: []program.Question{
				{Text: "Lonely choice", Choices: []program.Choice{{Text: "Only one", IsCorrect: true}}},
			}}), token: staffToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"questions[0]": "at least two choices are required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	var exam program.ModuleTest
	t.Run("staff replaces questions", func(t *testing.T) {
		body := marchallObj(t, program.ReplaceTest{Title: "Databases Exam", Questions: examQuestions()})
		req, rec := newAuthRequest(http.MethodPut, testPath, staffToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &exam); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if exam.Title != "Databases Exam" || len(exam.Questions) != 2 {
			t.Fatalf("test = %+v", exam)
		}
	})
	t.Run("invalid phase", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"phase": "mid", "answers": map[string]string{}})
		req, rec := newAuthRequest(http.MethodPost, testPath+"/attempts", traineeToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"phase": "must be pre or post"}),
		}
		checkCodeAndData(t, tt, rec)
	})
	t.Run("graded attempt", func(t *testing.T) {
		q1, q2 := exam.Questions[0], exam.Questions[1]
		correct, _ := q1.CorrectChoice()
		var wrong program.Choice
		for _, c := range q2.Choices {
			if !c.IsCorrect {
				wrong = c
			}
		}
		body := marchallObj(t, program.NewTestAttempt{
			Phase:   program.PhasePost,
			Answers: map[string]string{q1.ID: correct.ID, q2.ID: wrong.ID},
		})
		req, rec := newAuthRequest(http.MethodPost, testPath+"/attempts", traineeToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var result program.TestResult
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if result.TraineeID != trainee.ID || result.Score != 1 || result.Total != 2 {
			t.Errorf("result = %+v", result)
		}
		if got, want := result.Percent(), "50.0%"; got != want {
			t.Errorf("Percent() = %q, want %q", got, want)
		}
	})
}

func Test_programApi_traineeStats(t *testing.T) {
	app := setup(t)

	trainee := createUser(t, "Hero Kabila", "herokab", "", []string{user.RoleTrainee}, true)
	staff := createUser(t, "Sam Staff", "samstaff", "", []string{user.RoleStaff}, true)

	track := createTrack(t, "Backend")
	mod := createModule(t, track.ID, "Databases", 3)
	if _, err := progSvc.ReplaceTestQuestions(context.Background(), mod.ID, program.ReplaceTest{
		Title: "Databases Exam", Questions: examQuestions(),
	}); err != nil {
		t.Fatalf("seeding test: %v", err)
	}

	trainee.Track = "Backend"
	trainee, err := usrRepo.UpdateUser(context.Background(), trainee, nil)
	if err != nil {
		t.Fatalf("assigning track: %v", err)
	}

	t.Run("staff required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/programs/stats/trainees", getToken(t, trainee))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
	t.Run("per trainee summary", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/programs/stats/trainees?track=Backend", getToken(t, staff))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var stats []program.TraineeStats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(stats) != 1 {
			t.Fatalf("stats len = %d, want 1", len(stats))
		}
		ts := stats[0]
		if ts.TraineeID != trainee.ID || ts.Track != "Backend" || len(ts.Modules) != 1 {
			t.Errorf("stats = %+v", ts)
		}
		if ts.Modules[0].ModuleTitle != "Databases" {
			t.Errorf("module stat = %+v", ts.Modules[0])
		}
	})
}
