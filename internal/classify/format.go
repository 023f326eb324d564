package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"github.com/pavelanni/examgrader/internal/model"
)

// Format renders a question's answer key back to the text a teacher would edit.
// Choice answers are joined as circled digits; other values are comma joined.
// Essays and decomposed questions render as an empty string.
func Format(q model.Question) string {
	if q.Type == model.TypeEssay || q.HasSubQuestions {
		return ""
	}
	return FormatValues(q.Type, q.CorrectAnswers)
}

// FormatValues renders an answer set for the given question type.
func FormatValues(t model.QuestionType, vals []model.AnswerValue) string {
	if t.IsChoice() {
		var sb strings.Builder
		for _, v := range vals {
			n, ok := v.ChoiceNumber()
			if !ok {
				continue
			}
			if n >= 1 && n < len(circledGlyph) {
				sb.WriteString(circledGlyph[n])
			}
		}
		return sb.String()
	}
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if s := v.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Normalize converts a student's raw response into answer values for a
// question of type t, using the same glyph rules as Classify. Unreadable
// input yields no values, which the grader counts as unanswered.
func Normalize(raw string, t model.QuestionType) []model.AnswerValue {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	folded := strings.TrimSpace(width.Fold.String(raw))

	switch {
	case t.IsChoice():
		return normalizeChoices(folded, t.Choices())
	case t == model.TypeTrueFalse:
		if v, ok := parseMark(folded); ok {
			return []model.AnswerValue{v}
		}
		return nil
	default:
		// Short answers and essays keep the full text as a single value.
		return []model.AnswerValue{model.Text(raw)}
	}
}

func normalizeChoices(s string, limit int) []model.AnswerValue {
	var vals []model.AnswerValue
	for _, tok := range splitSeparators(s) {
		if n, ok := parseChoiceToken(tok); ok {
			for _, c := range n {
				if c >= 1 && c <= limit {
					vals = append(vals, model.Choice(c))
				}
			}
		}
	}
	return vals
}

// parseChoiceToken reads either a run of circled digits or one decimal number.
func parseChoiceToken(tok string) ([]int, bool) {
	var out []int
	allCircled := true
	for _, r := range tok {
		n, ok := circled[r]
		if !ok {
			allCircled = false
			break
		}
		out = append(out, n)
	}
	if allCircled && len(out) > 0 {
		return out, true
	}
	n := 0
	for _, r := range tok {
		if !unicode.IsDigit(r) || r > '9' {
			return nil, false
		}
		n = n*10 + int(r-'0')
		if n > 99 {
			return nil, false
		}
	}
	return []int{n}, true
}
