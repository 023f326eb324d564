package grading

import (
	"strings"
	"unicode"

	"github.com/pavelanni/examgrader/internal/model"
)

// outcome is a strategy's verdict before overrides and manual scores.
type outcome struct {
	correct *bool
	score   int
	subs    []model.SubResult
}

// strategy grades one question type.
type strategy interface {
	grade(q model.Question, resp model.Response) outcome
}

func verdict(ok bool, points int) outcome {
	if ok {
		return outcome{correct: model.BoolPtr(true), score: points}
	}
	return outcome{correct: model.BoolPtr(false)}
}

// choiceStrategy grades multiple-choice and O/X questions as sets.
type choiceStrategy struct{ orPolicy OrPolicy }

func (s choiceStrategy) grade(q model.Question, resp model.Response) outcome {
	selected := model.Keys(resp.Values)
	if len(selected) == 0 {
		return verdict(false, q.Points)
	}
	correct := model.Keys(q.CorrectAnswers)

	if q.AnswerLogic.Effective() == model.LogicAnd {
		return verdict(model.SameSet(resp.Values, q.CorrectAnswers), q.Points)
	}

	hit, wrong := 0, 0
	for k := range selected {
		if _, ok := correct[k]; ok {
			hit++
		} else {
			wrong++
		}
	}
	ok := hit > 0
	if s.orPolicy == OrNoWrongSelections && wrong > 0 {
		ok = false
	}
	return verdict(ok, q.Points)
}

// shortAnswerStrategy accepts any listed synonym, case-sensitively.
// answerLogic is not consulted: every accepted answer is an alternative.
type shortAnswerStrategy struct{}

func (shortAnswerStrategy) grade(q model.Question, resp model.Response) outcome {
	accepted := make(map[string]bool, len(q.CorrectAnswers))
	for _, v := range q.CorrectAnswers {
		if s, ok := v.TextValue(); ok {
			accepted[normalizeText(s, q.IgnoreSpace)] = true
		}
	}

	given := 0
	for _, v := range resp.Values {
		if v.Kind() == model.KindNone {
			continue
		}
		text := normalizeText(v.String(), q.IgnoreSpace)
		if text == "" {
			continue
		}
		given++
		if !accepted[text] {
			return verdict(false, q.Points)
		}
	}
	return verdict(given > 0, q.Points)
}

type essayStrategy struct{}

func (essayStrategy) grade(model.Question, model.Response) outcome {
	return outcome{}
}

// gradeSubQuestions scores each part independently; a part is correct when
// it matches any of its accepted answers. The parent's answerLogic does not apply.
func gradeSubQuestions(q model.Question, resp model.Response) outcome {
	out := outcome{subs: make([]model.SubResult, 0, len(q.SubQuestions))}
	all := true
	for _, sq := range q.SubQuestions {
		answer := resp.Sub[sq.SubNumber]
		norm := normalizeText(answer, q.IgnoreSpace)

		ok := false
		if norm != "" {
			for _, c := range sq.CorrectAnswers {
				if normalizeText(c, q.IgnoreSpace) == norm {
					ok = true
					break
				}
			}
		}

		sr := model.SubResult{
			SubNumber:      sq.SubNumber,
			Correct:        ok,
			StudentAnswer:  answer,
			CorrectAnswers: sq.CorrectAnswers,
		}
		if ok {
			sr.Score = sq.SubPoints
			out.score += sq.SubPoints
		} else {
			all = false
		}
		out.subs = append(out.subs, sr)
	}
	out.correct = model.BoolPtr(all)
	return out
}

// normalizeText trims the text and, when ignoreSpace is set, drops all whitespace.
func normalizeText(s string, ignoreSpace bool) string {
	s = strings.TrimSpace(s)
	if !ignoreSpace {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
