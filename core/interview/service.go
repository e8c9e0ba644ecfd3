package interview

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/remshq/rems/core"
)

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

// calibrationInstructions is the qualitative-summary prompt sent to the
// external text-generation collaborator. The calibration arithmetic it
// describes is prompt payload only; it is never executed locally.
const calibrationInstructions = `You are summarizing interview scores for a bootcamp candidate. ` +
	`Interviewers score the same criteria independently; lenient and strict scorers exist. ` +
	`When writing the summary, mentally calibrate for interviewer bias: weigh each interviewer's ` +
	`per-criterion scores against their own average across criteria before comparing interviewers, ` +
	`and flag criteria where interviewers disagree by more than 20% of the criterion maximum. ` +
	`Produce 3-5 sentences of plain prose; do not output numbers beyond the overall average.`

type (
	Repository interface {
		CreateForm(ctx context.Context, form Form) (Form, error)
		QueryForms(ctx context.Context) ([]Form, error)
		// GetFormByID returns the form with its fields, or ErrFormNotFound.
		GetFormByID(ctx context.Context, id string) (Form, error)
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		QuerySubmissionsByCandidate(ctx context.Context, candidateID string) ([]Submission, error)
		HasSubmission(ctx context.Context, formID, candidateID, submittedBy string) (bool, error)
	}

	// SummaryRequest is the JSON payload assembled for the external
	// text-generation service.
	SummaryRequest struct {
		CandidateID  string    `json:"candidate_id"`
		Kind         FormKind  `json:"kind"`
		Breakdown    Breakdown `json:"breakdown"`
		Instructions string    `json:"instructions"`
	}

	// Summarizer is the external text-generation collaborator; the service
	// only assembles the payload and returns the text.
	Summarizer interface {
		Summarize(ctx context.Context, req SummaryRequest) (string, error)
	}

	Service struct {
		repo       Repository
		summarizer Summarizer
		logger     core.Logger
	}
)

func NewService(repo Repository, summarizer Summarizer, logger core.Logger) *Service {
	return &Service{repo: repo, summarizer: summarizer, logger: logger}
}

func (svc *Service) CreateForm(ctx context.Context, form Form) (Form, error) {
	now := NowFunc().UTC()
	form.CreatedAt = now
	form.UpdatedAt = now
	form.SortFields()
	return svc.repo.CreateForm(ctx, form)
}

// Forms lists all forms for a candidate, flagging those already submitted by
// the requesting interviewer (forms_by_me).
func (svc *Service) Forms(ctx context.Context, candidateID, interviewerID string) ([]FormListItem, error) {
	forms, err := svc.repo.QueryForms(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]FormListItem, 0, len(forms))
	for _, f := range forms {
		byMe, err := svc.repo.HasSubmission(ctx, f.ID, candidateID, interviewerID)
		if err != nil {
			return nil, errors.Wrapf(err, "checking submission of form %s", f.ID)
		}
		items = append(items, FormListItem{ID: f.ID, Title: f.Title, SubmittedByMe: byMe})
	}
	return items, nil
}

// GetForm returns the form with fields and options in backend order.
func (svc *Service) GetForm(ctx context.Context, id string) (Form, error) {
	form, err := svc.repo.GetFormByID(ctx, id)
	if err != nil {
		return Form{}, err
	}
	form.SortFields()
	return form, nil
}

// Submit validates and records one interviewer's answers for one candidate.
// A form already submitted by the same interviewer for the same candidate is
// rejected before any write.
func (svc *Service) Submit(ctx context.Context, formID, candidateID, submittedBy string, answers map[string]Answer) (Submission, error) {
	form, err := svc.GetForm(ctx, formID)
	if err != nil {
		return Submission{}, err
	}

	exists, err := svc.repo.HasSubmission(ctx, formID, candidateID, submittedBy)
	if err != nil {
		return Submission{}, errors.Wrap(err, "checking existing submission")
	}
	if exists {
		return Submission{}, ErrAlreadySubmitted
	}

	if err = ValidateAnswers(&form, answers); err != nil {
		return Submission{}, err
	}

	sub := BuildSubmission(&form, candidateID, submittedBy, answers)
	sub.CreatedAt = NowFunc().UTC()
	return svc.repo.CreateSubmission(ctx, sub)
}

// Submissions returns a candidate's recorded entries.
func (svc *Service) Submissions(ctx context.Context, candidateID string) ([]Submission, error) {
	subs, err := svc.repo.QuerySubmissionsByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []Submission{}
	}
	return subs, nil
}

// Breakdown groups a candidate's submissions of the given kind by criterion.
func (svc *Service) Breakdown(ctx context.Context, candidateID string, kind FormKind) (Breakdown, error) {
	subs, err := svc.Submissions(ctx, candidateID)
	if err != nil {
		return Breakdown{}, err
	}
	return ComputeBreakdown(subs, kind), nil
}

// Summarize requests a qualitative summary from the external text-generation
// service; the breakdown and calibration instructions make up the payload.
func (svc *Service) Summarize(ctx context.Context, candidateID string, kind FormKind) (string, error) {
	if svc.summarizer == nil {
		return "", errors.New("no summarizer configured")
	}

	bd, err := svc.Breakdown(ctx, candidateID, kind)
	if err != nil {
		return "", err
	}

	return svc.summarizer.Summarize(ctx, SummaryRequest{
		CandidateID:  candidateID,
		Kind:         kind,
		Breakdown:    bd,
		Instructions: calibrationInstructions,
	})
}
