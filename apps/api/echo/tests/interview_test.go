package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/remshq/rems/core/interview"
	"github.com/remshq/rems/core/user"
)

func formPayload(t *testing.T, title string) []byte {
	return marchallObj(t, map[string]interface{}{
		"title": title,
		"fields": []map[string]interface{}{
			{
				"label": "Motivation", "type": "question", "required": true, "weight": 2, "order": 1,
				"options": []map[string]interface{}{
					{"label": "Low", "score": 1, "order": 1},
					{"label": "High", "score": 5, "order": 2},
				},
			},
			{"label": "Comments", "type": "text", "order": 2},
		},
	})
}

func createForm(t *testing.T, app http.Handler, adminToken, title string) interview.Form {
	t.Helper()
	req, rec := newAuthRequest(http.MethodPost, "/api/v1/interviews/forms", adminToken, formPayload(t, title))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("createForm(): %v %s", rec.Code, rec.Body.String())
	}
	var form interview.Form
	if err := json.Unmarshal(rec.Body.Bytes(), &form); err != nil {
		t.Fatalf("createForm(): %v", err)
	}
	return form
}

func questionOption(t *testing.T, form interview.Form, optLabel string) (string, string) {
	t.Helper()
	for _, fld := range form.Fields {
		if fld.Type != interview.FieldQuestion {
			continue
		}
		for _, opt := range fld.Options {
			if opt.Label == optLabel {
				return fld.ID, opt.ID
			}
		}
	}
	t.Fatalf("option %q not found", optLabel)
	return "", ""
}

func Test_interviewApi_forms(t *testing.T) {
	app := setup(t)

	trainee := createUser(t, "Hero Kabila", "herokab", "", []string{user.RoleTrainee}, true)
	staff := createUser(t, "Ivy Interviewer", "ivyint1", "", []string{user.RoleStaffInterviewer}, true)
	admin := createUser(t, "Admin Kat", "adminkat", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/api/v1/interviews/forms", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "staff required", method: http.MethodGet, path: "/api/v1/interviews/forms", token: getToken(t, trainee),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "admin required to create", method: http.MethodPost, path: "/api/v1/interviews/forms",
			body: formPayload(t, "HR Interview"), token: getToken(t, staff),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "fields required", method: http.MethodPost, path: "/api/v1/interviews/forms",
			body: marchallObj(t, map[string]interface{}{"title": "Empty"}), token: adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"fields": "this field is required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("create and retrieve", func(t *testing.T) {
		form := createForm(t, app, adminToken, "HR Interview")

		req, rec := newAuthRequest(http.MethodGet, "/api/v1/interviews/forms/"+form.ID, getToken(t, staff))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got interview.Form
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Title != "HR Interview" || len(got.Fields) != 2 {
			t.Errorf("form = %+v", got)
		}
	})
	t.Run("unknown form", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/interviews/forms/ghost", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})
}

func Test_interviewApi_submit(t *testing.T) {
	app := setup(t)

	staff := createUser(t, "Ivy Interviewer", "ivyint1", "", []string{user.RoleStaffInterviewer}, true)
	other := createUser(t, "Omar Interviewer", "omarint", "", []string{user.RoleStaffInterviewer}, true)
	admin := createUser(t, "Admin Kat", "adminkat", "", []string{user.RoleAdmin}, true)
	candidate := createUser(t, "Carl Candidate", "carlcan", "", []string{user.RoleCandidate}, true)

	form := createForm(t, app, getToken(t, admin), "HR Interview")
	fieldID, optID := questionOption(t, form, "High")
	staffToken := getToken(t, staff)

	submitPath := "/api/v1/interviews/forms/" + form.ID + "/submissions"
	body := marchallObj(t, map[string]interface{}{
		"candidate_id": candidate.ID,
		"answers":      map[string]interface{}{fieldID: map[string]string{"option": optID}},
	})

	t.Run("missing required answer reported by label", func(t *testing.T) {
		bad := marchallObj(t, map[string]interface{}{
			"candidate_id": candidate.ID,
			"answers":      map[string]interface{}{},
		})
		req, rec := newAuthRequest(http.MethodPost, submitPath, staffToken, bad)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"Motivation": "an option must be selected"}),
		}
		checkCodeAndData(t, tt, rec)
	})
	t.Run("submitted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, submitPath, staffToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var sub interview.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if sub.FinalScore != 10 || sub.SubmittedBy != staff.ID {
			t.Errorf("submission = %+v", sub)
		}
	})
	t.Run("resubmission conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, submitPath, staffToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "form already submitted for this candidate"}),
		}
		checkCodeAndData(t, tt, rec)
	})
	t.Run("forms flag submitted by me", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/interviews/forms?candidate="+candidate.ID, staffToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var items []interview.FormListItem
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(items) != 1 || !items[0].SubmittedByMe {
			t.Errorf("items = %+v", items)
		}

		// a colleague still sees the form as open
		req, rec = newAuthRequest(http.MethodGet, "/api/v1/interviews/forms?candidate="+candidate.ID, getToken(t, other))
		app.ServeHTTP(rec, req)
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if items[0].SubmittedByMe {
			t.Errorf("items = %+v", items)
		}
	})
	t.Run("breakdown and summary", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/interviews/candidates/"+candidate.ID+"/breakdown?kind=hr", staffToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var bd interview.Breakdown
		if err := json.Unmarshal(rec.Body.Bytes(), &bd); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if bd.Average != 10 || len(bd.Criteria) != 1 {
			t.Errorf("breakdown = %+v", bd)
		}

		req, rec = newAuthRequest(http.MethodPost, "/api/v1/interviews/candidates/"+candidate.ID+"/summary?kind=hr", staffToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]string{"summary": "A solid, consistent candidate."}),
		}
		checkCodeAndData(t, tt, rec)
	})
}
