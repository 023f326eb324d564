// Package grading scores student submissions against exam answer keys.
package grading

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/examgrader/internal/model"
)

// OrPolicy decides how OR-logic choice questions treat wrong selections.
type OrPolicy string

const (
	// OrAnyOverlap marks the answer correct when any selection is correct.
	OrAnyOverlap OrPolicy = "any-overlap"
	// OrNoWrongSelections additionally requires every selection to be correct.
	OrNoWrongSelections OrPolicy = "no-wrong"
)

// IsValidOrPolicy checks if a policy name is known.
func IsValidOrPolicy(p string) bool {
	return p == string(OrAnyOverlap) || p == string(OrNoWrongSelections)
}

// ErrExamMismatch is returned when a submission was recorded against another exam.
var ErrExamMismatch = errors.New("submission belongs to a different exam")

// Engine grades submissions. It holds no per-submission state and is safe
// for concurrent use.
type Engine struct {
	orPolicy OrPolicy
	workers  int
	log      *slog.Logger

	validate *validator.Validate
	trans    ut.Translator

	strategies map[model.QuestionType]strategy
}

// Option configures an Engine.
type Option func(*Engine)

// WithOrPolicy selects the OR-logic policy. Unknown values keep the default.
func WithOrPolicy(p OrPolicy) Option {
	return func(e *Engine) {
		if IsValidOrPolicy(string(p)) {
			e.orPolicy = p
		}
	}
}

// WithWorkers sets the parallelism of RegradeAll.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger used for discrepancy reports.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an engine with the built-in strategies.
func New(opts ...Option) *Engine {
	e := &Engine{
		orPolicy: OrAnyOverlap,
		workers:  4,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.validate, e.trans = newValidator()
	choice := choiceStrategy{orPolicy: e.orPolicy}
	e.strategies = map[model.QuestionType]strategy{
		model.TypeMultipleChoice4: choice,
		model.TypeMultipleChoice5: choice,
		model.TypeTrueFalse:       choice,
		model.TypeShortAnswer:     shortAnswerStrategy{},
		model.TypeEssay:           essayStrategy{},
	}
	return e
}

// OrPolicy returns the configured OR policy.
func (e *Engine) OrPolicy() OrPolicy { return e.orPolicy }

// Grade validates the exam and grades one submission.
func (e *Engine) Grade(exam model.Exam, sub model.Submission) (model.GradedResult, error) {
	if err := e.Validate(exam); err != nil {
		return model.GradedResult{}, err
	}
	return e.grade(exam, sub)
}

// grade assumes the exam has already been validated.
func (e *Engine) grade(exam model.Exam, sub model.Submission) (model.GradedResult, error) {
	if exam.ID != "" && sub.ExamID != "" && exam.ID != sub.ExamID {
		return model.GradedResult{}, fmt.Errorf("grade submission %s: %w (exam %s, submission exam %s)",
			sub.ID, ErrExamMismatch, exam.ID, sub.ExamID)
	}

	res := model.GradedResult{
		SubmissionID: sub.ID,
		StudentID:    sub.StudentID,
		ExamID:       exam.ID,
		Totals:       exam.Totals(),
		Items:        make([]model.ItemResult, 0, len(exam.Questions)),
	}

	for _, q := range exam.Questions {
		item := e.gradeItem(q, sub)
		res.Items = append(res.Items, item)

		res.Score += item.Score
		if q.Type.AutoGradable() {
			res.AutoScore += item.ComputedScore
		}
		if item.Correct != nil && *item.Correct {
			res.CorrectCount++
		}
	}

	res.Discrepancies = e.discrepancies(exam, sub)
	return res, nil
}

func (e *Engine) gradeItem(q model.Question, sub model.Submission) model.ItemResult {
	resp := sub.Answers[q.Number]

	var out outcome
	if q.HasSubQuestions {
		out = gradeSubQuestions(q, resp)
	} else {
		out = e.strategies[q.Type].grade(q, resp)
	}

	item := model.ItemResult{
		QuestionNumber:  q.Number,
		Type:            q.Type,
		Points:          q.Points,
		StudentAnswer:   resp,
		CorrectAnswer:   q.CorrectAnswers,
		SubResults:      out.subs,
		ComputedCorrect: out.correct,
		ComputedScore:   out.score,
		Correct:         out.correct,
		Score:           out.score,
	}
	if q.HasSubQuestions {
		item.CorrectAnswer = nil
	}

	if q.Type == model.TypeEssay {
		if _, ok := sub.Overrides[q.Number]; ok {
			e.log.Warn("ignoring verdict override on essay question",
				"submission_id", sub.ID, "student_id", sub.StudentID, "question", q.Number)
		}
		if ms, ok := sub.ManualScores[q.Number]; ok {
			score := clamp(ms, 0, q.Points)
			if score != ms {
				e.log.Warn("manual score out of range, clamped",
					"submission_id", sub.ID, "question", q.Number, "score", ms, "points", q.Points)
			}
			item.ManualScore = &score
			item.Score = score
			item.Correct = model.BoolPtr(score == q.Points)
		}
		return item
	}

	if _, ok := sub.ManualScores[q.Number]; ok {
		e.log.Warn("ignoring manual score on auto-graded question",
			"submission_id", sub.ID, "student_id", sub.StudentID, "question", q.Number)
	}
	if ov, ok := sub.Overrides[q.Number]; ok {
		item.Overridden = true
		item.Correct = model.BoolPtr(ov)
		item.Score = 0
		if ov {
			item.Score = q.Points
		}
	}
	return item
}

// discrepancies lists question numbers referenced by the submission that
// no longer exist in the exam.
func (e *Engine) discrepancies(exam model.Exam, sub model.Submission) []int {
	known := make(map[int]bool, len(exam.Questions))
	for _, q := range exam.Questions {
		known[q.Number] = true
	}
	missing := make(map[int]bool)
	for n := range sub.Answers {
		if !known[n] {
			missing[n] = true
		}
	}
	for n := range sub.Overrides {
		if !known[n] {
			missing[n] = true
		}
	}
	for n := range sub.ManualScores {
		if !known[n] {
			missing[n] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	out := make([]int, 0, len(missing))
	for n := range missing {
		out = append(out, n)
	}
	sort.Ints(out)
	for _, n := range out {
		e.log.Warn("submission references question not in exam",
			"exam_id", exam.ID, "submission_id", sub.ID, "student_id", sub.StudentID, "question", n)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var defaultEngine = New()

// Grade grades a submission with the default engine.
func Grade(exam model.Exam, sub model.Submission) (model.GradedResult, error) {
	return defaultEngine.Grade(exam, sub)
}
