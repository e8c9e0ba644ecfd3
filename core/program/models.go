package program

import (
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/remshq/rems/core"
)

var (
	ErrTrackNotFound    = errors.New("track not found")
	ErrModuleNotFound   = errors.New("module not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrTestNotFound     = errors.New("no exam for this module")
	ErrQuestionNotFound = errors.New("question not found")
)

// Track is a top-level curriculum grouping of modules.
type Track struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Modules     []Module  `json:"modules,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Module is a week-scale curriculum unit containing ordered sessions and
// optionally one pre/post exam.
type Module struct {
	ID        string      `json:"id"`
	TrackID   string      `json:"track_id"`
	Title     string      `json:"title"`
	Week      int         `json:"week"`
	Sessions  []Session   `json:"sessions,omitempty"`
	Test      *ModuleTest `json:"test,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Session is a single day's content plus assignments within a module.
type Session struct {
	ID          string        `json:"id"`
	ModuleID    string        `json:"module_id"`
	Title       string        `json:"title"`
	Day         int           `json:"day"`
	Content     []ContentItem `json:"content"`
	Assignments []Assignment  `json:"assignments"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type ContentItem struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Order     int    `json:"order"`
}

type Assignment struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	Order       int       `json:"order"`
}

// ModuleTest is a module's pre/post exam: the same question list is taken
// before and after the module.
type ModuleTest struct {
	ID        string     `json:"id"`
	ModuleID  string     `json:"module_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Question is one multiple-choice exam question. After any edit exactly one
// choice is marked correct.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Order   int      `json:"order"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

// CorrectChoice returns the choice marked correct. Loaded data is not
// guaranteed to honor the single-correct invariant; the first marked choice wins.
func (q Question) CorrectChoice() (Choice, bool) {
	for _, c := range q.Choices {
		if c.IsCorrect {
			return c, true
		}
	}
	return Choice{}, false
}

// NormalizeQuestions enforces the exam editing invariants on a full question
// list before it replaces a test's questions:
//   - non-empty question text
//   - at least two choices per question, every choice non-empty
//   - exactly one choice marked correct; none marked auto-corrects to the
//     first choice, two or more marked is rejected.
//
// All violations are reported together as one ValidationError.
func NormalizeQuestions(questions []Question) error {
	var fldErrs []core.FieldError
	field := func(i int) string { return "questions[" + strconv.Itoa(i) + "]" }

	for i := range questions {
		q := &questions[i]

		if core.CleanString(q.Text) == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: field(i), Error: "question text is required"})
		}
		if len(q.Choices) < 2 {
			fldErrs = append(fldErrs, core.FieldError{Field: field(i), Error: "at least two choices are required"})
			continue
		}

		var correct int
		for j := range q.Choices {
			if core.CleanString(q.Choices[j].Text) == "" {
				fldErrs = append(fldErrs, core.FieldError{Field: field(i), Error: "choice text is required"})
			}
			if q.Choices[j].IsCorrect {
				correct++
			}
		}
		switch correct {
		case 1:
		case 0:
			q.Choices[0].IsCorrect = true
		default:
			fldErrs = append(fldErrs, core.FieldError{Field: field(i), Error: "exactly one choice must be marked correct"})
		}
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(errors.New("invalid exam questions"), fldErrs...)
	}
	return nil
}


// TestPhase discriminates pre- and post-module exam attempts.
type TestPhase string

const (
	PhasePre  TestPhase = "pre"
	PhasePost TestPhase = "post"
)

func (p TestPhase) Valid() bool { return p == PhasePre || p == PhasePost }

// TestResult is one graded exam attempt.
type TestResult struct {
	ID        string    `json:"id"`
	TraineeID string    `json:"trainee_id"`
	ModuleID  string    `json:"module_id"`
	Phase     TestPhase `json:"phase"`
	Score     float64   `json:"score"` // correct answers
	Total     float64   `json:"total"` // question count at grading time
	TakenAt   time.Time `json:"taken_at"`
}

// Percent formats the result as "NN.N%"; "" when Total is zero.
func (r TestResult) Percent() string {
	if r.Total == 0 {
		return ""
	}
	return formatPercent(r.Score / r.Total * 100)
}

// New* structs carry validated creation payloads.

type NewTrack struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type NewModule struct {
	TrackID string `json:"track_id" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Week    int    `json:"week" validate:"gte=0"`
}

type NewSession struct {
	ModuleID    string        `json:"module_id" validate:"required"`
	Title       string        `json:"title" validate:"required"`
	Day         int           `json:"day" validate:"gte=0"`
	Content     []ContentItem `json:"content"`
	Assignments []Assignment  `json:"assignments"`
}

// ReplaceTest carries the full question-list replacement of a module's exam:
// editing one question resends the entire array.
type ReplaceTest struct {
	Title     string     `json:"title" validate:"required"`
	Questions []Question `json:"questions" validate:"required,min=1"`
}

// NewTestAttempt carries a trainee's answers: question id -> chosen choice id.
type NewTestAttempt struct {
	Phase   TestPhase         `json:"phase" validate:"required"`
	Answers map[string]string `json:"answers" validate:"required"`
}
