package program

import (
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/remshq/rems/core"
)

func validQuestion(text string) Question {
	return Question{
		Text: text,
		Choices: []Choice{
			{Text: "A", IsCorrect: true},
			{Text: "B"},
			{Text: "C"},
		},
	}
}

func TestNormalizeQuestions(t *testing.T) {
	fieldErrs := func(t *testing.T, err error) []core.FieldError {
		t.Helper()
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("error = %T, want *core.ValidationError", err)
		}
		return vErr.Fields
	}

	t.Run("valid", func(t *testing.T) {
		qs := []Question{validQuestion("What is Go?"), validQuestion("What is SQL?")}
		if err := NormalizeQuestions(qs); err != nil {
			t.Errorf("NormalizeQuestions(): %v", err)
		}
	})
	t.Run("none correct auto-marks the first choice", func(t *testing.T) {
		qs := []Question{{
			Text:    "Pick one",
			Choices: []Choice{{Text: "A"}, {Text: "B"}},
		}}
		if err := NormalizeQuestions(qs); err != nil {
			t.Fatalf("NormalizeQuestions(): %v", err)
		}
		if !qs[0].Choices[0].IsCorrect {
			t.Error("first choice not auto-marked correct")
		}
	})
	t.Run("two correct rejected", func(t *testing.T) {
		qs := []Question{{
			Text:    "Pick one",
			Choices: []Choice{{Text: "A", IsCorrect: true}, {Text: "B", IsCorrect: true}},
		}}
		flds := fieldErrs(t, NormalizeQuestions(qs))
		if len(flds) != 1 || flds[0].Field != "questions[0]" {
			t.Errorf("fields = %+v", flds)
		}
	})
	t.Run("too few choices", func(t *testing.T) {
		qs := []Question{{Text: "Pick one", Choices: []Choice{{Text: "A", IsCorrect: true}}}}
		flds := fieldErrs(t, NormalizeQuestions(qs))
		if len(flds) != 1 || !strings.Contains(flds[0].Error, "two choices") {
			t.Errorf("fields = %+v", flds)
		}
	})
	t.Run("violations reported per question", func(t *testing.T) {
		qs := []Question{
			{Text: " ", Choices: []Choice{{Text: "A", IsCorrect: true}, {Text: "B"}}},
			validQuestion("ok"),
			{Text: "Pick", Choices: []Choice{{Text: ""}, {Text: "B"}}},
		}
		flds := fieldErrs(t, NormalizeQuestions(qs))
		if len(flds) != 2 {
			t.Fatalf("fields = %+v", flds)
		}
		if flds[0].Field != "questions[0]" || flds[1].Field != "questions[2]" {
			t.Errorf("fields = %+v", flds)
		}
	})
}

func TestQuestion_CorrectChoice(t *testing.T) {
	q := validQuestion("q")
	c, ok := q.CorrectChoice()
	if !ok || c.Text != "A" {
		t.Errorf("CorrectChoice() = %+v, %v", c, ok)
	}

	q.Choices[0].IsCorrect = false
	if _, ok = q.CorrectChoice(); ok {
		t.Error("CorrectChoice() found a correct choice where none is marked")
	}
}

func TestTestResult_Percent(t *testing.T) {
	tests := []struct {
		name   string
		result TestResult
		want   string
	}{
		{name: "zero total", result: TestResult{}, want: ""},
		{name: "perfect", result: TestResult{Score: 10, Total: 10}, want: "100.0%"},
		{name: "rounded", result: TestResult{Score: 2, Total: 3}, want: "66.7%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Percent(); got != tt.want {
				t.Errorf("Percent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTestPhase_Valid(t *testing.T) {
	if !PhasePre.Valid() || !PhasePost.Valid() {
		t.Error("pre/post phases invalid")
	}
	if TestPhase("mid").Valid() {
		t.Error("unknown phase valid")
	}
}
