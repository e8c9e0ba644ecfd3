package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/remshq/rems/core/interview"
)

type interviewRepository struct {
	db *sqlx.DB
}

var _ interview.Repository = (*interviewRepository)(nil)

func NewInterviewRepository(db *sqlx.DB) *interviewRepository {
	return &interviewRepository{db: db}
}

type dbForm struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

type dbField struct {
	ID       string  `db:"id"`
	FormID   string  `db:"form_id"`
	Label    string  `db:"label"`
	Type     string  `db:"type"`
	Required bool    `db:"required"`
	Ord      int     `db:"ord"`
	Weight   float64 `db:"weight"`
}

type dbOption struct {
	ID      string  `db:"id"`
	FieldID string  `db:"field_id"`
	Label   string  `db:"label"`
	Score   float64 `db:"score"`
	Ord     int     `db:"ord"`
}

type dbSubmission struct {
	ID          string    `db:"id"`
	FormID      string    `db:"form_id"`
	CandidateID string    `db:"candidate_id"`
	SubmittedBy string    `db:"submitted_by"`
	FinalScore  float64   `db:"final_score"`
	CreatedAt   null.Time `db:"created_at"`
}

type dbSubmissionField struct {
	ID           string       `db:"id"`
	SubmissionID string       `db:"submission_id"`
	Label        string       `db:"label"`
	Type         string       `db:"type"`
	OptionLabel  null.String  `db:"option_label"`
	Score        null.Float64 `db:"score"`
	TextValue    null.String  `db:"text_value"`
	Ord          int          `db:"ord"`
}

func (repo interviewRepository) CreateForm(ctx context.Context, form interview.Form) (interview.Form, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return interview.Form{}, errors.Wrap(err, "beginning form tx")
	}
	defer func() { _ = tx.Rollback() }()

	form.ID = uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO interview_form (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		form.ID, form.Title, form.CreatedAt.UTC(), form.UpdatedAt.UTC())
	if err != nil {
		return interview.Form{}, errors.Wrap(err, "inserting interview form")
	}

	for i := range form.Fields {
		fld := &form.Fields[i]
		fld.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO interview_field (id, form_id, label, type, required, ord, weight)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			fld.ID, form.ID, fld.Label, string(fld.Type), fld.Required, fld.Order, fld.Weight)
		if err != nil {
			return interview.Form{}, errors.Wrap(err, "inserting interview field")
		}
		for j := range fld.Options {
			opt := &fld.Options[j]
			opt.ID = uuid.New().String()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO interview_option (id, field_id, label, score, ord)
				VALUES ($1, $2, $3, $4, $5)`,
				opt.ID, fld.ID, opt.Label, opt.Score, opt.Order)
			if err != nil {
				return interview.Form{}, errors.Wrap(err, "inserting interview option")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return interview.Form{}, errors.Wrap(err, "committing form tx")
	}
	return form, nil
}

func (repo interviewRepository) QueryForms(ctx context.Context) ([]interview.Form, error) {
	var rows []dbForm
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM interview_form ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying interview forms")
	}
	forms := make([]interview.Form, 0, len(rows))
	for _, row := range rows {
		form, err := repo.loadForm(ctx, row)
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

func (repo interviewRepository) GetFormByID(ctx context.Context, id string) (interview.Form, error) {
	var row dbForm
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM interview_form WHERE id = $1`, id)
	if err != nil {
		return interview.Form{}, trapNoRowsErr(err, interview.ErrFormNotFound, "getting interview form")
	}
	return repo.loadForm(ctx, row)
}

func (repo interviewRepository) loadForm(ctx context.Context, row dbForm) (interview.Form, error) {
	form := interview.Form{
		ID:        row.ID,
		Title:     row.Title,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}

	var fieldRows []dbField
	err := repo.db.SelectContext(ctx, &fieldRows, `
		SELECT * FROM interview_field WHERE form_id = $1 ORDER BY ord`, row.ID)
	if err != nil {
		return interview.Form{}, errors.Wrap(err, "querying interview fields")
	}
	fieldIDs := make([]string, 0, len(fieldRows))
	for _, fld := range fieldRows {
		fieldIDs = append(fieldIDs, fld.ID)
	}

	optsByField := make(map[string][]interview.Option)
	if len(fieldIDs) > 0 {
		var optRows []dbOption
		err = repo.db.SelectContext(ctx, &optRows, `
			SELECT * FROM interview_option WHERE field_id = ANY($1) ORDER BY ord`, pq.Array(fieldIDs))
		if err != nil {
			return interview.Form{}, errors.Wrap(err, "querying interview options")
		}
		for _, opt := range optRows {
			optsByField[opt.FieldID] = append(optsByField[opt.FieldID], interview.Option{
				ID:    opt.ID,
				Label: opt.Label,
				Score: opt.Score,
				Order: opt.Ord,
			})
		}
	}

	for _, fld := range fieldRows {
		form.Fields = append(form.Fields, interview.Field{
			ID:       fld.ID,
			Label:    fld.Label,
			Type:     interview.FieldType(fld.Type),
			Required: fld.Required,
			Order:    fld.Ord,
			Weight:   fld.Weight,
			Options:  optsByField[fld.ID],
		})
	}
	return form, nil
}

func (repo interviewRepository) CreateSubmission(ctx context.Context, sub interview.Submission) (interview.Submission, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return interview.Submission{}, errors.Wrap(err, "beginning submission tx")
	}
	defer func() { _ = tx.Rollback() }()

	sub.ID = uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO interview_submission (id, form_id, candidate_id, submitted_by, final_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.FormID, sub.CandidateID, sub.SubmittedBy, sub.FinalScore, sub.CreatedAt.UTC())
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
			return interview.Submission{}, interview.ErrAlreadySubmitted
		}
		return interview.Submission{}, errors.Wrap(err, "inserting interview submission")
	}

	for i, fld := range sub.Fields {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO interview_submission_field (id, submission_id, label, type, option_label, score, text_value, ord)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New().String(), sub.ID, fld.Label, string(fld.Type),
			null.NewString(fld.Option, fld.Option != ""), null.Float64FromPtr(fld.Score),
			null.NewString(fld.Text, fld.Text != ""), i)
		if err != nil {
			return interview.Submission{}, errors.Wrap(err, "inserting submission field")
		}
	}

	if err = tx.Commit(); err != nil {
		return interview.Submission{}, errors.Wrap(err, "committing submission tx")
	}
	return sub, nil
}

func (repo interviewRepository) QuerySubmissionsByCandidate(ctx context.Context, candidateID string) ([]interview.Submission, error) {
	var rows []dbSubmission
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM interview_submission WHERE candidate_id = $1 ORDER BY created_at`, candidateID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]interview.Submission, 0, len(rows))
	for _, row := range rows {
		sub := interview.Submission{
			ID:          row.ID,
			FormID:      row.FormID,
			CandidateID: row.CandidateID,
			SubmittedBy: row.SubmittedBy,
			FinalScore:  row.FinalScore,
			CreatedAt:   row.CreatedAt.Time,
		}
		_ = repo.db.GetContext(ctx, &sub.FormTitle,
			`SELECT title FROM interview_form WHERE id = $1`, row.FormID)

		var fieldRows []dbSubmissionField
		err = repo.db.SelectContext(ctx, &fieldRows, `
			SELECT * FROM interview_submission_field WHERE submission_id = $1 ORDER BY ord`, row.ID)
		if err != nil {
			return nil, errors.Wrap(err, "querying submission fields")
		}
		for _, fld := range fieldRows {
			sub.Fields = append(sub.Fields, interview.SubmissionField{
				Label:  fld.Label,
				Type:   interview.FieldType(fld.Type),
				Option: fld.OptionLabel.String,
				Score:  fld.Score.Ptr(),
				Text:   fld.TextValue.String,
			})
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (repo interviewRepository) HasSubmission(ctx context.Context, formID, candidateID, submittedBy string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM interview_submission
			WHERE form_id = $1 AND candidate_id = $2 AND submitted_by = $3
		)`, formID, candidateID, submittedBy)
	return exists, errors.Wrap(err, "checking submission existence")
}
