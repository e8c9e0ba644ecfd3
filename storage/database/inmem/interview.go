package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/remshq/rems/core/interview"
)

type interviewRepository struct {
	db *DB
}

var _ interview.Repository = (*interviewRepository)(nil)

func NewInterviewRepository(db *DB) *interviewRepository {
	return &interviewRepository{db: db}
}

func (repo *interviewRepository) CreateForm(_ context.Context, form interview.Form) (interview.Form, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	form.ID = uuid.New().String()
	for i := range form.Fields {
		if form.Fields[i].ID == "" {
			form.Fields[i].ID = uuid.New().String()
		}
		for j := range form.Fields[i].Options {
			if form.Fields[i].Options[j].ID == "" {
				form.Fields[i].Options[j].ID = uuid.New().String()
			}
		}
	}
	repo.db.forms[form.ID] = &form
	return form, nil
}

func (repo *interviewRepository) QueryForms(_ context.Context) ([]interview.Form, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	forms := make([]interview.Form, 0, len(repo.db.forms))
	for _, f := range repo.db.forms {
		forms = append(forms, *f)
	}
	sort.SliceStable(forms, func(i, j int) bool { return forms[i].CreatedAt.Before(forms[j].CreatedAt) })
	return forms, nil
}

func (repo *interviewRepository) GetFormByID(_ context.Context, id string) (interview.Form, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if form, ok := repo.db.forms[id]; ok {
		return *form, nil
	}
	return interview.Form{}, interview.ErrFormNotFound
}

func (repo *interviewRepository) CreateSubmission(_ context.Context, sub interview.Submission) (interview.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sub.ID = uuid.New().String()
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *interviewRepository) QuerySubmissionsByCandidate(_ context.Context, candidateID string) ([]interview.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]interview.Submission, 0)
	for _, sub := range repo.db.submissions {
		if sub.CandidateID == candidateID {
			subs = append(subs, *sub)
		}
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	return subs, nil
}

func (repo *interviewRepository) HasSubmission(_ context.Context, formID, candidateID, submittedBy string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sub := range repo.db.submissions {
		if sub.FormID == formID && sub.CandidateID == candidateID && sub.SubmittedBy == submittedBy {
			return true, nil
		}
	}
	return false, nil
}
