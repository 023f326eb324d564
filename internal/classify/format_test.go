package classify

import (
	"testing"

	"github.com/pavelanni/examgrader/internal/model"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		q    model.Question
		want string
	}{
		{"choice circled", model.Question{Type: model.TypeMultipleChoice5, CorrectAnswers: choices(1, 3)}, "①③"},
		{"mc4 single", model.Question{Type: model.TypeMultipleChoice4, CorrectAnswers: choices(4)}, "④"},
		{"ox", model.Question{Type: model.TypeTrueFalse, CorrectAnswers: []model.AnswerValue{model.OX(false)}}, "X"},
		{"short answers", model.Question{Type: model.TypeShortAnswer, CorrectAnswers: texts("seoul city", "서울")}, "seoul city, 서울"},
		{"essay", model.Question{Type: model.TypeEssay}, ""},
		{"sub questions", model.Question{Type: model.TypeShortAnswer, HasSubQuestions: true, CorrectAnswers: texts("ignored")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.q); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		typ  model.QuestionType
		want []model.AnswerValue
	}{
		{"empty", "  ", model.TypeMultipleChoice5, nil},
		{"plain digit", "3", model.TypeMultipleChoice5, choices(3)},
		{"circled run", "①③", model.TypeMultipleChoice5, choices(1, 3)},
		{"digit list", "1, 3", model.TypeMultipleChoice5, choices(1, 3)},
		{"full-width digit", "４", model.TypeMultipleChoice4, choices(4)},
		{"out of range dropped", "5", model.TypeMultipleChoice4, nil},
		{"garbage dropped", "abc 2", model.TypeMultipleChoice5, choices(2)},
		{"ox mark", "〇", model.TypeTrueFalse, []model.AnswerValue{model.OX(true)}},
		{"ox unreadable", "maybe", model.TypeTrueFalse, nil},
		{"short keeps commas", "seoul, korea", model.TypeShortAnswer, texts("seoul, korea")},
		{"essay text kept", " long answer ", model.TypeEssay, texts("long answer")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, tt.typ)
			if !sameValues(got, tt.want) {
				t.Errorf("Normalize(%q, %q) = %v, want %v", tt.raw, tt.typ, got, tt.want)
			}
		})
	}
}
