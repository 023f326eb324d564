package grading

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/pavelanni/examgrader/internal/model"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]Option{WithLogger(quiet)}, opts...)...)
}

func choices(ns ...int) []model.AnswerValue {
	out := make([]model.AnswerValue, 0, len(ns))
	for _, n := range ns {
		out = append(out, model.Choice(n))
	}
	return out
}

func texts(ss ...string) []model.AnswerValue {
	out := make([]model.AnswerValue, 0, len(ss))
	for _, s := range ss {
		out = append(out, model.Text(s))
	}
	return out
}

func answer(vals ...model.AnswerValue) model.Response {
	return model.Response{Values: vals}
}

func mustGrade(t *testing.T, e *Engine, exam model.Exam, sub model.Submission) model.GradedResult {
	t.Helper()
	res, err := e.Grade(exam, sub)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	return res
}

func mustItem(t *testing.T, res model.GradedResult, n int) model.ItemResult {
	t.Helper()
	it, ok := res.Item(n)
	if !ok {
		t.Fatalf("no result for question %d", n)
	}
	return it
}

func verdictOf(it model.ItemResult) string {
	if it.Correct == nil {
		return "pending"
	}
	if *it.Correct {
		return "correct"
	}
	return "incorrect"
}

func TestChoiceAnswerLogic(t *testing.T) {
	tests := []struct {
		name    string
		logic   model.AnswerLogic
		policy  OrPolicy
		student []model.AnswerValue
		want    string
	}{
		{"or one correct", model.LogicOr, OrAnyOverlap, choices(1), "correct"},
		{"or other correct", model.LogicOr, OrAnyOverlap, choices(3), "correct"},
		{"or wrong only", model.LogicOr, OrAnyOverlap, choices(2), "incorrect"},
		{"or both correct", model.LogicOr, OrAnyOverlap, choices(1, 3), "correct"},
		{"or correct plus wrong default", model.LogicOr, OrAnyOverlap, choices(1, 2), "correct"},
		{"or correct plus wrong strict", model.LogicOr, OrNoWrongSelections, choices(1, 2), "incorrect"},
		{"or both correct strict", model.LogicOr, OrNoWrongSelections, choices(3, 1), "correct"},
		{"and one of two", model.LogicAnd, OrAnyOverlap, choices(1), "incorrect"},
		{"and both any order", model.LogicAnd, OrAnyOverlap, choices(3, 1), "correct"},
		{"and extra selection", model.LogicAnd, OrAnyOverlap, choices(1, 3, 4), "incorrect"},
		{"empty logic is and", "", OrAnyOverlap, choices(1), "incorrect"},
		{"no selection", model.LogicOr, OrAnyOverlap, nil, "incorrect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, WithOrPolicy(tt.policy))
			exam := model.Exam{Questions: []model.Question{{
				Number: 1, Type: model.TypeMultipleChoice5, Points: 4,
				CorrectAnswers: choices(1, 3), AnswerLogic: tt.logic,
			}}}
			sub := model.Submission{Answers: map[int]model.Response{1: answer(tt.student...)}}
			res := mustGrade(t, e, exam, sub)
			it := mustItem(t, res, 1)
			if got := verdictOf(it); got != tt.want {
				t.Errorf("verdict = %s, want %s", got, tt.want)
			}
			wantScore := 0
			if tt.want == "correct" {
				wantScore = 4
			}
			if it.Score != wantScore || res.Score != wantScore {
				t.Errorf("score = %d (total %d), want %d", it.Score, res.Score, wantScore)
			}
		})
	}
}

func TestTrueFalse(t *testing.T) {
	e := newTestEngine(t)
	exam := model.Exam{Questions: []model.Question{{
		Number: 1, Type: model.TypeTrueFalse, Points: 2, CorrectAnswers: []model.AnswerValue{model.OX(true)},
	}}}
	tests := []struct {
		name    string
		student model.Response
		want    string
	}{
		{"O", answer(model.OX(true)), "correct"},
		{"X", answer(model.OX(false)), "incorrect"},
		{"both marks", answer(model.OX(true), model.OX(false)), "incorrect"},
		{"wrong kind", answer(model.Text("O")), "incorrect"},
		{"missing", model.Response{}, "incorrect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustGrade(t, e, exam, model.Submission{Answers: map[int]model.Response{1: tt.student}})
			if got := verdictOf(mustItem(t, res, 1)); got != tt.want {
				t.Errorf("verdict = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestShortAnswer(t *testing.T) {
	tests := []struct {
		name        string
		accepted    []model.AnswerValue
		ignoreSpace bool
		student     model.Response
		want        string
	}{
		{"ignore space joins words", texts("seoul city"), true, answer(model.Text("seoulcity")), "correct"},
		{"keep space rejects joined", texts("seoul city"), false, answer(model.Text("seoulcity")), "incorrect"},
		{"keep space exact", texts("seoul city"), false, answer(model.Text(" seoul city ")), "correct"},
		{"ignore space both sides", texts("seoulcity"), true, answer(model.Text("seoul  city")), "correct"},
		{"case sensitive", texts("Seoul"), false, answer(model.Text("seoul")), "incorrect"},
		{"any synonym", texts("서울", "Seoul"), false, answer(model.Text("Seoul")), "correct"},
		{"all texts must match", texts("서울", "Seoul"), false, answer(model.Text("Seoul"), model.Text("Busan")), "incorrect"},
		{"blank answer", texts("Seoul"), false, answer(model.Text("  ")), "incorrect"},
		{"choice value compared as text", texts("3"), false, answer(model.Choice(3)), "correct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			exam := model.Exam{Questions: []model.Question{{
				Number: 1, Type: model.TypeShortAnswer, Points: 5,
				CorrectAnswers: tt.accepted, IgnoreSpace: tt.ignoreSpace,
				// answerLogic is ignored for short answers.
				AnswerLogic: model.LogicAnd,
			}}}
			res := mustGrade(t, e, exam, model.Submission{Answers: map[int]model.Response{1: tt.student}})
			if got := verdictOf(mustItem(t, res, 1)); got != tt.want {
				t.Errorf("verdict = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEssayExclusion(t *testing.T) {
	e := newTestEngine(t)
	exam := model.Exam{Questions: []model.Question{
		{Number: 1, Type: model.TypeEssay, Points: 20},
		{Number: 2, Type: model.TypeMultipleChoice5, Points: 80, CorrectAnswers: choices(2)},
	}}
	sub := model.Submission{Answers: map[int]model.Response{
		1: answer(model.Text("my essay")),
		2: answer(model.Choice(2)),
	}}

	res := mustGrade(t, e, exam, sub)
	if res.Score != 80 || res.AutoScore != 80 {
		t.Errorf("score = %d auto = %d, want 80/80", res.Score, res.AutoScore)
	}
	essay := mustItem(t, res, 1)
	if essay.Correct != nil || essay.ManualScore != nil || essay.Score != 0 {
		t.Errorf("essay slot should be pending, got correct=%v manual=%v score=%d", essay.Correct, essay.ManualScore, essay.Score)
	}
	if res.CorrectCount != 1 {
		t.Errorf("correct count = %d, want 1", res.CorrectCount)
	}
	if res.Totals.Auto != 80 || res.Totals.Manual != 20 || res.Totals.Total != 100 {
		t.Errorf("totals = %+v", res.Totals)
	}

	sub.ManualScores = map[int]int{1: 15}
	res = mustGrade(t, e, exam, sub)
	if res.Score != 95 {
		t.Errorf("score with manual = %d, want 95", res.Score)
	}
	if res.AutoScore != 80 {
		t.Errorf("auto score with manual = %d, want 80", res.AutoScore)
	}
	essay = mustItem(t, res, 1)
	if essay.ManualScore == nil || *essay.ManualScore != 15 {
		t.Errorf("manual score = %v, want 15", essay.ManualScore)
	}
	if verdictOf(essay) != "incorrect" {
		t.Errorf("partial essay verdict = %s, want incorrect", verdictOf(essay))
	}

	sub.ManualScores = map[int]int{1: 50}
	res = mustGrade(t, e, exam, sub)
	if res.Score != 100 {
		t.Errorf("clamped manual score total = %d, want 100", res.Score)
	}
	if verdictOf(mustItem(t, res, 1)) != "correct" {
		t.Errorf("full-mark essay should count as correct")
	}
}

func TestSubQuestionAggregation(t *testing.T) {
	e := newTestEngine(t)
	exam := model.Exam{Questions: []model.Question{{
		Number: 1, Type: model.TypeShortAnswer, Points: 5, HasSubQuestions: true,
		AnswerLogic: model.LogicAnd,
		SubQuestions: []model.SubQuestion{
			{SubNumber: 1, CorrectAnswers: []string{"mitosis", "Mitosis"}, SubPoints: 3},
			{SubNumber: 2, CorrectAnswers: []string{"meiosis"}, SubPoints: 2},
		},
	}}}

	tests := []struct {
		name      string
		sub       map[int]string
		wantScore int
		want      string
	}{
		{"first right second wrong", map[int]string{1: "Mitosis", 2: "mitosis"}, 3, "incorrect"},
		{"both right", map[int]string{1: "mitosis", 2: "meiosis"}, 5, "correct"},
		{"second only", map[int]string{2: "meiosis"}, 2, "incorrect"},
		{"nothing", nil, 0, "incorrect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustGrade(t, e, exam, model.Submission{Answers: map[int]model.Response{1: {Sub: tt.sub}}})
			it := mustItem(t, res, 1)
			if it.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", it.Score, tt.wantScore)
			}
			if got := verdictOf(it); got != tt.want {
				t.Errorf("verdict = %s, want %s", got, tt.want)
			}
			if len(it.SubResults) != 2 {
				t.Fatalf("expected 2 sub results, got %d", len(it.SubResults))
			}
			if it.CorrectAnswer != nil {
				t.Errorf("decomposed question should not report a top-level answer key")
			}
		})
	}
}

func TestSubQuestionIgnoreSpace(t *testing.T) {
	e := newTestEngine(t)
	exam := model.Exam{Questions: []model.Question{{
		Number: 1, Type: model.TypeShortAnswer, Points: 2, HasSubQuestions: true, IgnoreSpace: true,
		SubQuestions: []model.SubQuestion{{SubNumber: 1, CorrectAnswers: []string{"new york"}, SubPoints: 2}},
	}}}
	res := mustGrade(t, e, exam, model.Submission{Answers: map[int]model.Response{1: {Sub: map[int]string{1: "newyork"}}}})
	if it := mustItem(t, res, 1); it.Score != 2 {
		t.Errorf("score = %d, want 2", it.Score)
	}
}

func TestOverrides(t *testing.T) {
	e := newTestEngine(t)
	exam := model.Exam{Questions: []model.Question{
		{Number: 1, Type: model.TypeMultipleChoice4, Points: 10, CorrectAnswers: choices(2)},
		{Number: 2, Type: model.TypeShortAnswer, Points: 10, CorrectAnswers: texts("Paris")},
		{Number: 3, Type: model.TypeEssay, Points: 10},
	}}
	sub := model.Submission{
		Answers: map[int]model.Response{
			1: answer(model.Choice(3)),
			2: answer(model.Text("Paris")),
		},
		Overrides:    map[int]bool{1: true, 2: false, 3: true},
		ManualScores: map[int]int{2: 7},
	}
	res := mustGrade(t, e, exam, sub)

	q1 := mustItem(t, res, 1)
	if !q1.Overridden || verdictOf(q1) != "correct" || q1.Score != 10 {
		t.Errorf("q1 override not applied: %+v", q1)
	}
	if q1.ComputedCorrect == nil || *q1.ComputedCorrect || q1.ComputedScore != 0 {
		t.Errorf("q1 computed verdict not retained: %v %d", q1.ComputedCorrect, q1.ComputedScore)
	}
	if len(q1.StudentAnswer.Values) != 1 {
		t.Errorf("q1 student answer not retained")
	}

	q2 := mustItem(t, res, 2)
	if verdictOf(q2) != "incorrect" || q2.Score != 0 || q2.ComputedScore != 10 {
		t.Errorf("q2 override not applied: %+v", q2)
	}

	q3 := mustItem(t, res, 3)
	if q3.Overridden || q3.Correct != nil {
		t.Errorf("essay override should be ignored: %+v", q3)
	}

	if res.Score != 10 {
		t.Errorf("score = %d, want 10", res.Score)
	}
	if res.AutoScore != 10 {
		t.Errorf("auto score = %d, want 10 (pre-override)", res.AutoScore)
	}
	if res.CorrectCount != 1 {
		t.Errorf("correct count = %d, want 1", res.CorrectCount)
	}
}

func TestMissingAnswersAndDrift(t *testing.T) {
	e := newTestEngine(t)
	exam := model.Exam{ID: "exam-1", Questions: []model.Question{
		{Number: 1, Type: model.TypeMultipleChoice5, Points: 5, CorrectAnswers: choices(1)},
		{Number: 2, Type: model.TypeMultipleChoice5, Points: 5, CorrectAnswers: choices(2)},
	}}
	sub := model.Submission{
		ExamID: "exam-1",
		Answers: map[int]model.Response{
			1: answer(model.Choice(1)),
			4: answer(model.Choice(4)),
			3: answer(model.Choice(3)),
		},
		Overrides: map[int]bool{7: true},
	}
	res := mustGrade(t, e, exam, sub)
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}
	if verdictOf(mustItem(t, res, 2)) != "incorrect" {
		t.Errorf("unanswered question should be incorrect")
	}
	if res.Score != 5 {
		t.Errorf("score = %d, want 5", res.Score)
	}
	if want := []int{3, 4, 7}; !reflect.DeepEqual(res.Discrepancies, want) {
		t.Errorf("discrepancies = %v, want %v", res.Discrepancies, want)
	}
}

func TestExamMismatch(t *testing.T) {
	e := newTestEngine(t)
	exam := model.Exam{ID: "a", Questions: []model.Question{
		{Number: 1, Type: model.TypeEssay, Points: 1},
	}}
	_, err := e.Grade(exam, model.Submission{ExamID: "b"})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGradeIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	exam := sampleExam()
	sub := sampleSubmission("s1")
	first := mustGrade(t, e, exam, sub)
	for i := 0; i < 10; i++ {
		again := mustGrade(t, e, exam, sub)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("regrade %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestRegradeAfterEditOnlyTouchesChangedQuestions(t *testing.T) {
	e := newTestEngine(t)
	exam := sampleExam()
	sub := sampleSubmission("s1")
	before := mustGrade(t, e, exam, sub)

	edited := sampleExam()
	edited.Questions[1].CorrectAnswers = texts("Seoul", "서울")
	after := mustGrade(t, e, edited, sub)

	if got := Diff(before, after); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Diff = %v, want [2]", got)
	}
	for _, n := range []int{1, 3, 4} {
		if !reflect.DeepEqual(mustItem(t, before, n), mustItem(t, after, n)) {
			t.Errorf("question %d changed after unrelated edit", n)
		}
	}
}

func TestDiff(t *testing.T) {
	r := func(items ...model.ItemResult) model.GradedResult { return model.GradedResult{Items: items} }
	yes, no := model.BoolPtr(true), model.BoolPtr(false)

	tests := []struct {
		name          string
		before, after model.GradedResult
		want          []int
	}{
		{"same", r(model.ItemResult{QuestionNumber: 1, Correct: yes, Score: 2}), r(model.ItemResult{QuestionNumber: 1, Correct: yes, Score: 2}), nil},
		{"verdict flip", r(model.ItemResult{QuestionNumber: 1, Correct: yes, Score: 2}), r(model.ItemResult{QuestionNumber: 1, Correct: no}), []int{1}},
		{"pending to graded", r(model.ItemResult{QuestionNumber: 2}), r(model.ItemResult{QuestionNumber: 2, Correct: no}), []int{2}},
		{"removed and added", r(model.ItemResult{QuestionNumber: 3}), r(model.ItemResult{QuestionNumber: 1}), []int{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diff(tt.before, tt.after); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Diff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func sampleExam() model.Exam {
	return model.Exam{
		ID:          "midterm",
		TotalPoints: 100,
		Questions: []model.Question{
			{Number: 1, Type: model.TypeMultipleChoice5, Points: 30, CorrectAnswers: choices(1, 3), AnswerLogic: model.LogicOr},
			{Number: 2, Type: model.TypeShortAnswer, Points: 30, CorrectAnswers: texts("Seoul"), IgnoreSpace: true},
			{Number: 3, Type: model.TypeTrueFalse, Points: 20, CorrectAnswers: []model.AnswerValue{model.OX(false)}},
			{Number: 4, Type: model.TypeEssay, Points: 20},
		},
	}
}

func sampleSubmission(id string) model.Submission {
	return model.Submission{
		ID:        id,
		StudentID: "student-" + id,
		ExamID:    "midterm",
		Answers: map[int]model.Response{
			1: answer(model.Choice(3)),
			2: answer(model.Text("서울")),
			3: answer(model.OX(false)),
			4: answer(model.Text("essay body")),
		},
	}
}
