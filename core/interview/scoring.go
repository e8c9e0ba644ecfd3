package interview

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/remshq/rems/core"
)

var errMissingRequired = errors.New("required fields are missing")

// ValidateAnswers checks every required field of the form against the given
// answers. Validation is not fail-fast: all missing fields are reported
// simultaneously as one ValidationError.
func ValidateAnswers(form *Form, answers map[string]Answer) error {
	var fldErrs []core.FieldError

	for _, fld := range form.Fields {
		ans := answers[fld.ID]

		switch fld.Type {
		case FieldQuestion:
			if ans.OptionID != "" {
				if _, ok := fld.Option(ans.OptionID); !ok {
					fldErrs = append(fldErrs, core.FieldError{Field: fld.Label, Error: "unknown option"})
					continue
				}
			} else if fld.Required {
				fldErrs = append(fldErrs, core.FieldError{Field: fld.Label, Error: "an option must be selected"})
			}
		case FieldText, FieldEmail:
			if fld.Required && strings.TrimSpace(ans.Text) == "" {
				fldErrs = append(fldErrs, core.FieldError{Field: fld.Label, Error: "this field is required"})
			}
		default:
			fldErrs = append(fldErrs, core.FieldError{Field: fld.Label, Error: "unknown field type"})
		}
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(errMissingRequired, fldErrs...)
	}
	return nil
}

// BuildSubmission maps answers onto the form's fields in order, computing the
// weighted final score. Answers must have been validated first.
func BuildSubmission(form *Form, candidateID, submittedBy string, answers map[string]Answer) Submission {
	sub := Submission{
		FormID:      form.ID,
		FormTitle:   form.Title,
		CandidateID: candidateID,
		SubmittedBy: submittedBy,
		Fields:      make([]SubmissionField, 0, len(form.Fields)),
	}

	for _, fld := range form.Fields {
		ans := answers[fld.ID]
		rec := SubmissionField{Label: fld.Label, Type: fld.Type}

		switch fld.Type {
		case FieldQuestion:
			if opt, ok := fld.Option(ans.OptionID); ok {
				score := opt.Score * fld.Weight
				rec.Option = opt.Label
				rec.Score = &score
				sub.FinalScore += score
			}
		case FieldText, FieldEmail:
			rec.Text = strings.TrimSpace(ans.Text)
		}
		sub.Fields = append(sub.Fields, rec)
	}
	return sub
}
