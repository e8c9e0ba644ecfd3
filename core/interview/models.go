package interview

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrFormNotFound       = errors.New("interview form not found")
	ErrAlreadySubmitted   = errors.New("form already submitted for this candidate")
	ErrSubmissionNotFound = errors.New("submission not found")
)

// FieldType discriminates the interview field union. Every switch over it must
// be exhaustive; an unknown type is a data error, not a rendering hint.
type FieldType string

const (
	FieldQuestion FieldType = "question" // weighted, option-scored
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
)

func (ft FieldType) Valid() bool {
	switch ft {
	case FieldQuestion, FieldText, FieldEmail:
		return true
	}
	return false
}

// Option is one selectable answer of a question field.
type Option struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Order int     `json:"order"`
}

// Field is one entry of a scoring form. Question fields own ordered options;
// text and email fields collect free text. Fields are immutable after fetch.
type Field struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Order    int       `json:"order"`
	Weight   float64   `json:"weight"`
	Options  []Option  `json:"options,omitempty"`
}

// MaxScore is the highest achievable contribution of the field:
// max(option.score) * weight for question fields, 0 otherwise.
func (f Field) MaxScore() float64 {
	if f.Type != FieldQuestion {
		return 0
	}
	var max float64
	for _, opt := range f.Options {
		if opt.Score > max {
			max = opt.Score
		}
	}
	return max * f.Weight
}

// Option returns the field's option with the given id.
func (f Field) Option(id string) (Option, bool) {
	for _, opt := range f.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Form is a backend-defined ordered set of scoring fields.
type Form struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Fields    []Field   `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SortFields orders fields (and each question's options) by their backend
// provided order, ascending.
func (f *Form) SortFields() {
	sort.SliceStable(f.Fields, func(i, j int) bool { return f.Fields[i].Order < f.Fields[j].Order })
	for i := range f.Fields {
		opts := f.Fields[i].Options
		sort.SliceStable(opts, func(a, b int) bool { return opts[a].Order < opts[b].Order })
	}
}

// TotalPoints is the maximum achievable point total of the form:
// the sum over question fields of max(option.score) * weight.
func (f *Form) TotalPoints() float64 {
	var total float64
	for _, fld := range f.Fields {
		total += fld.MaxScore()
	}
	return total
}

// presentationMarker flags forms whose one "time" text field is driven by the
// presentation stopwatch instead of free input.
const presentationMarker = "presentation"

// IsPresentation reports whether the form title carries the presentation marker.
func (f *Form) IsPresentation() bool {
	return strings.Contains(strings.ToLower(f.Title), presentationMarker)
}

// TimerField returns the presentation form's text field tagged "time".
func (f *Form) TimerField() (Field, bool) {
	if !f.IsPresentation() {
		return Field{}, false
	}
	for _, fld := range f.Fields {
		if fld.Type == FieldText && strings.Contains(strings.ToLower(fld.Label), "time") {
			return fld, true
		}
	}
	return Field{}, false
}

// Answer is the submitted value for one field: a selected-option reference for
// question fields, a raw string for text/email fields. Unanswered optional
// fields submit as the zero Answer.
type Answer struct {
	OptionID string `json:"option,omitempty"`
	Text     string `json:"text,omitempty"`
}

func (a Answer) IsEmpty() bool { return a.OptionID == "" && strings.TrimSpace(a.Text) == "" }

// SubmissionField is the denormalized record of one answered field.
type SubmissionField struct {
	Label  string    `json:"label"`
	Type   FieldType `json:"type"`
	Option string    `json:"option,omitempty"` // selected option label
	Score  *float64  `json:"score,omitempty"`  // weighted score; nil for text/email
	Text   string    `json:"text,omitempty"`
}

// Submission is one interviewer's filled form for one candidate; read-only
// once created.
type Submission struct {
	ID          string            `json:"id"`
	FormID      string            `json:"form_id"`
	FormTitle   string            `json:"form_title"`
	CandidateID string            `json:"candidate_id"`
	SubmittedBy string            `json:"submitted_by"`
	FinalScore  float64           `json:"final_score"`
	Fields      []SubmissionField `json:"fields"`
	CreatedAt   time.Time         `json:"created_at"`
}

// FormListItem is the per-candidate index entry of a form, with the flag that
// blocks a second submission by the same interviewer.
type FormListItem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	SubmittedByMe bool   `json:"forms_by_me"`
}
