package interview_test

import (
	"context"
	"testing"

	"github.com/remshq/rems/core/interview"
	inmemdb "github.com/remshq/rems/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// stubSummarizer records the last request and answers with canned text.
type stubSummarizer struct {
	lastReq interview.SummaryRequest
	text    string
}

func (s *stubSummarizer) Summarize(_ context.Context, req interview.SummaryRequest) (string, error) {
	s.lastReq = req
	return s.text, nil
}

func setup(t *testing.T) (*interview.Service, *stubSummarizer) {
	t.Helper()
	db := inmemdb.NewDB()
	sum := &stubSummarizer{text: "A solid, consistent candidate."}
	return interview.NewService(inmemdb.NewInterviewRepository(db), sum, nopLogger{}), sum
}

func createForm(t *testing.T, svc *interview.Service, title string) interview.Form {
	t.Helper()
	form, err := svc.CreateForm(context.Background(), interview.Form{
		Title: title,
		Fields: []interview.Field{
			{Label: "Motivation", Type: interview.FieldQuestion, Required: true, Weight: 2, Order: 2,
				Options: []interview.Option{
					{ID: "opt-low", Label: "Low", Score: 1, Order: 1},
					{ID: "opt-high", Label: "High", Score: 5, Order: 2},
				}},
			{Label: "Email", Type: interview.FieldEmail, Order: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateForm(): %v", err)
	}
	return form
}

func TestService_GetForm(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	created := createForm(t, svc, "HR Interview")

	form, err := svc.GetForm(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetForm(): %v", err)
	}
	// fields come back in backend order
	if form.Fields[0].Type != interview.FieldEmail {
		t.Errorf("first field = %v, want email", form.Fields[0].Type)
	}

	if _, err = svc.GetForm(ctx, "nope"); err != interview.ErrFormNotFound {
		t.Errorf("GetForm() error = %v, want %v", err, interview.ErrFormNotFound)
	}
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	form := createForm(t, svc, "HR Interview")

	var questionID string
	for _, fld := range form.Fields {
		if fld.Type == interview.FieldQuestion {
			questionID = fld.ID
		}
	}
	answers := map[string]interview.Answer{questionID: {OptionID: "opt-high"}}

	sub, err := svc.Submit(ctx, form.ID, "cand1", "staff1", answers)
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	if got, want := sub.FinalScore, 10.0; got != want {
		t.Errorf("FinalScore = %v, want %v", got, want)
	}
	if sub.FormTitle != "HR Interview" {
		t.Errorf("FormTitle = %q", sub.FormTitle)
	}

	t.Run("same interviewer cannot resubmit", func(t *testing.T) {
		if _, err = svc.Submit(ctx, form.ID, "cand1", "staff1", answers); err != interview.ErrAlreadySubmitted {
			t.Errorf("Submit() error = %v, want %v", err, interview.ErrAlreadySubmitted)
		}
	})
	t.Run("another interviewer may submit", func(t *testing.T) {
		if _, err = svc.Submit(ctx, form.ID, "cand1", "staff2", answers); err != nil {
			t.Errorf("Submit(): %v", err)
		}
	})
	t.Run("unknown form", func(t *testing.T) {
		if _, err = svc.Submit(ctx, "nope", "cand1", "staff1", answers); err != interview.ErrFormNotFound {
			t.Errorf("Submit() error = %v, want %v", err, interview.ErrFormNotFound)
		}
	})
	t.Run("missing required answer", func(t *testing.T) {
		if _, err = svc.Submit(ctx, form.ID, "cand2", "staff1", nil); err == nil {
			t.Error("Submit() accepted missing required answers")
		}
	})
}

func TestService_Forms(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	hr := createForm(t, svc, "HR Interview")
	tech := createForm(t, svc, "Technical Round")

	var questionID string
	for _, fld := range hr.Fields {
		if fld.Type == interview.FieldQuestion {
			questionID = fld.ID
		}
	}
	_, err := svc.Submit(ctx, hr.ID, "cand1", "staff1", map[string]interview.Answer{questionID: {OptionID: "opt-low"}})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	items, err := svc.Forms(ctx, "cand1", "staff1")
	if err != nil {
		t.Fatalf("Forms(): %v", err)
	}
	byID := make(map[string]interview.FormListItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	if !byID[hr.ID].SubmittedByMe {
		t.Error("hr form not flagged as submitted by me")
	}
	if byID[tech.ID].SubmittedByMe {
		t.Error("tech form wrongly flagged as submitted by me")
	}

	// the flag is per (candidate, interviewer)
	items, err = svc.Forms(ctx, "cand2", "staff1")
	if err != nil {
		t.Fatalf("Forms(): %v", err)
	}
	for _, it := range items {
		if it.SubmittedByMe {
			t.Errorf("form %s flagged for the wrong candidate", it.ID)
		}
	}
}

func TestService_Summarize(t *testing.T) {
	ctx := context.Background()
	svc, sum := setup(t)
	form := createForm(t, svc, "HR Interview")

	var questionID string
	for _, fld := range form.Fields {
		if fld.Type == interview.FieldQuestion {
			questionID = fld.ID
		}
	}
	_, err := svc.Submit(ctx, form.ID, "cand1", "staff1", map[string]interview.Answer{questionID: {OptionID: "opt-high"}})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	text, err := svc.Summarize(ctx, "cand1", interview.KindHR)
	if err != nil {
		t.Fatalf("Summarize(): %v", err)
	}
	if text != sum.text {
		t.Errorf("Summarize() = %q", text)
	}

	req := sum.lastReq
	if req.CandidateID != "cand1" || req.Kind != interview.KindHR {
		t.Errorf("request = %+v", req)
	}
	if req.Instructions == "" {
		t.Error("request carries no instructions")
	}
	if req.Breakdown.Average != 10 {
		t.Errorf("breakdown average = %v, want 10", req.Breakdown.Average)
	}
}
