package interview

import (
	"math"
	"strings"
)

// FormKind buckets forms by a case-insensitive title substring match.
type FormKind string

const (
	KindHR        FormKind = "hr"
	KindTechnical FormKind = "technical"
	KindOther     FormKind = "other"
)

// KindOf classifies a form title.
func KindOf(title string) FormKind {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "hr"):
		return KindHR
	case strings.Contains(t, "tech"):
		return KindTechnical
	default:
		return KindOther
	}
}

// availabilityMarker flags the one boolean criterion rendered as Yes/No
// rather than a numeric bar.
const availabilityMarker = "availability"

type (
	// CriterionScore is one interviewer's score for one criterion.
	CriterionScore struct {
		Interviewer string  `json:"interviewer"`
		Score       float64 `json:"score"`
		Display     string  `json:"display"` // numeric string, or Yes/No for boolean criteria
	}

	// Criterion groups every interviewer's score under one field label.
	Criterion struct {
		Label   string           `json:"label"`
		Boolean bool             `json:"boolean"`
		Scores  []CriterionScore `json:"scores"`
	}

	// InterviewerTotal is one interviewer's final_score for the form kind.
	InterviewerTotal struct {
		Interviewer string  `json:"interviewer"`
		Total       float64 `json:"total"`
	}

	// Breakdown is the read-side grouped view of a candidate's submissions of
	// one form kind. No weighting or bias correction is applied here.
	Breakdown struct {
		Kind         FormKind           `json:"kind"`
		Criteria     []Criterion        `json:"criteria"`
		Interviewers []InterviewerTotal `json:"interviewers"`
		Average      float64            `json:"average"` // mean of final scores, 2 decimals
	}
)

// Round2 rounds to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// ComputeBreakdown groups the scored fields of the candidate's submissions of
// the given kind by criterion label, and averages the interviewers' final
// scores. Submissions of other kinds are ignored.
func ComputeBreakdown(subs []Submission, kind FormKind) Breakdown {
	bd := Breakdown{Kind: kind}

	var (
		criteriaIdx = make(map[string]int)
		scoreSum    float64
		scoreCount  int
	)

	for _, sub := range subs {
		if KindOf(sub.FormTitle) != kind {
			continue
		}

		bd.Interviewers = append(bd.Interviewers, InterviewerTotal{
			Interviewer: sub.SubmittedBy,
			Total:       sub.FinalScore,
		})
		scoreSum += sub.FinalScore
		scoreCount++

		for _, fld := range sub.Fields {
			if fld.Score == nil {
				continue // only scored fields are grouped
			}

			boolean := strings.Contains(strings.ToLower(fld.Label), availabilityMarker)
			idx, ok := criteriaIdx[fld.Label]
			if !ok {
				idx = len(bd.Criteria)
				criteriaIdx[fld.Label] = idx
				bd.Criteria = append(bd.Criteria, Criterion{Label: fld.Label, Boolean: boolean})
			}

			cs := CriterionScore{Interviewer: sub.SubmittedBy, Score: *fld.Score}
			if boolean {
				if *fld.Score > 0 {
					cs.Display = "Yes"
				} else {
					cs.Display = "No"
				}
			} else {
				cs.Display = fld.Option
			}
			bd.Criteria[idx].Scores = append(bd.Criteria[idx].Scores, cs)
		}
	}

	if scoreCount > 0 {
		bd.Average = Round2(scoreSum / float64(scoreCount))
	}
	return bd
}
