package model

import "strings"

// QuestionType identifies how a question is answered and graded.
type QuestionType string

const (
	TypeMultipleChoice4 QuestionType = "mc4"
	TypeMultipleChoice5 QuestionType = "mc5"
	TypeTrueFalse       QuestionType = "ox"
	TypeShortAnswer     QuestionType = "short"
	TypeEssay           QuestionType = "essay"
)

var questionTypes = map[QuestionType]bool{
	TypeMultipleChoice4: true,
	TypeMultipleChoice5: true,
	TypeTrueFalse:       true,
	TypeShortAnswer:     true,
	TypeEssay:           true,
}

// IsValidType checks if a question type name is known.
func IsValidType(t string) bool {
	return questionTypes[QuestionType(t)]
}

// ParseQuestionType accepts the canonical names plus a few long aliases.
func ParseQuestionType(s string) (QuestionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mc4", "choice4", "multiple_choice_4":
		return TypeMultipleChoice4, true
	case "mc5", "choice5", "multiple_choice_5", "mc", "choice":
		return TypeMultipleChoice5, true
	case "ox", "tf", "true_false", "truefalse":
		return TypeTrueFalse, true
	case "short", "short_answer", "text":
		return TypeShortAnswer, true
	case "essay", "descriptive":
		return TypeEssay, true
	}
	return "", false
}

// IsChoice reports whether t is one of the multiple-choice types.
func (t QuestionType) IsChoice() bool {
	return t == TypeMultipleChoice4 || t == TypeMultipleChoice5
}

// Choices returns the number of options for a choice type, 0 otherwise.
func (t QuestionType) Choices() int {
	switch t {
	case TypeMultipleChoice4:
		return 4
	case TypeMultipleChoice5:
		return 5
	}
	return 0
}

// AutoGradable reports whether questions of this type are scored without a teacher.
func (t QuestionType) AutoGradable() bool {
	return t != TypeEssay
}

// AnswerLogic governs how multi-answer choice questions are matched.
type AnswerLogic string

const (
	LogicAnd AnswerLogic = "AND"
	LogicOr  AnswerLogic = "OR"
)

// Effective returns the logic to apply; the zero value means AND.
func (l AnswerLogic) Effective() AnswerLogic {
	if strings.EqualFold(string(l), string(LogicOr)) {
		return LogicOr
	}
	return LogicAnd
}

// SubQuestion is one independently scored part of a decomposed question.
type SubQuestion struct {
	SubNumber      int      `json:"sub_number" validate:"gte=1"`
	CorrectAnswers []string `json:"correct_answers" validate:"min=1,dive,notblank"`
	SubPoints      int      `json:"sub_points" validate:"gte=0"`
}

// Question is a single exam item with its canonical answer key.
type Question struct {
	Number          int           `json:"number" validate:"gte=1"`
	Type            QuestionType  `json:"type" validate:"qtype"`
	CorrectAnswers  []AnswerValue `json:"correct_answers,omitempty"`
	AnswerLogic     AnswerLogic   `json:"answer_logic,omitempty" validate:"omitempty,oneof=AND OR and or"`
	Points          int           `json:"points" validate:"gte=1"`
	Category        string        `json:"category,omitempty"`
	IgnoreSpace     bool          `json:"ignore_space,omitempty"`
	HasSubQuestions bool          `json:"has_sub_questions,omitempty"`
	SubQuestions    []SubQuestion `json:"sub_questions,omitempty" validate:"dive"`
}

// Exam is the graded unit: an ordered list of questions.
type Exam struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	TotalPoints int        `json:"total_points,omitempty"`
	Questions   []Question `json:"questions"`
}

// Totals holds the point split of an exam.
type Totals struct {
	Total  int `json:"total_points"`
	Auto   int `json:"auto_gradable_points"`
	Manual int `json:"manual_gradable_points"`
}

// Totals sums question points into auto-gradable and manually graded parts.
func (e Exam) Totals() Totals {
	var t Totals
	for _, q := range e.Questions {
		t.Total += q.Points
		if q.Type.AutoGradable() {
			t.Auto += q.Points
		} else {
			t.Manual += q.Points
		}
	}
	return t
}

// Question returns the question with the given number.
func (e Exam) Question(number int) (Question, bool) {
	for _, q := range e.Questions {
		if q.Number == number {
			return q, true
		}
	}
	return Question{}, false
}

// Response is what a student submitted for one question.
type Response struct {
	Values []AnswerValue  `json:"values,omitempty"`
	Sub    map[int]string `json:"sub,omitempty"` // sub-question number -> answer
}

// Empty reports whether nothing was submitted.
func (r Response) Empty() bool {
	return len(r.Values) == 0 && len(r.Sub) == 0
}

// Submission is one student's set of answers for an exam.
type Submission struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id"`
	ExamID    string           `json:"exam_id"`
	Answers   map[int]Response `json:"answers"` // question number -> response

	// Overrides force a question's verdict after the fact.
	Overrides map[int]bool `json:"overrides,omitempty"`
	// ManualScores holds teacher-entered points for essay questions.
	ManualScores map[int]int `json:"manual_scores,omitempty"`
}

// SubResult is the verdict for one sub-question.
type SubResult struct {
	SubNumber      int      `json:"sub_number"`
	Correct        bool     `json:"correct"`
	Score          int      `json:"score"`
	StudentAnswer  string   `json:"student_answer"`
	CorrectAnswers []string `json:"correct_answers"`
}

// ItemResult is the verdict for one question.
type ItemResult struct {
	QuestionNumber int           `json:"question_number"`
	Type           QuestionType  `json:"type"`
	Points         int           `json:"points"`
	Correct        *bool         `json:"correct"` // nil for essays awaiting a manual score
	Score          int           `json:"score"`
	StudentAnswer  Response      `json:"student_answer"`
	CorrectAnswer  []AnswerValue `json:"correct_answer,omitempty"`
	SubResults     []SubResult   `json:"sub_results,omitempty"`

	// Computed verdict and score before any override, kept for audit display.
	ComputedCorrect *bool `json:"computed_correct"`
	ComputedScore   int   `json:"computed_score"`
	Overridden      bool  `json:"overridden,omitempty"`
	ManualScore     *int  `json:"manual_score,omitempty"`
}

// GradedResult is the engine's output for one submission.
type GradedResult struct {
	SubmissionID  string       `json:"submission_id,omitempty"`
	StudentID     string       `json:"student_id,omitempty"`
	ExamID        string       `json:"exam_id,omitempty"`
	Score         int          `json:"score"`
	AutoScore     int          `json:"auto_score"`
	CorrectCount  int          `json:"correct_count"`
	Totals        Totals       `json:"totals"`
	Items         []ItemResult `json:"items"`
	Discrepancies []int        `json:"discrepancies,omitempty"` // question numbers not in the current exam
}

// Item returns the result for a question number.
func (r GradedResult) Item(number int) (ItemResult, bool) {
	for _, it := range r.Items {
		if it.QuestionNumber == number {
			return it, true
		}
	}
	return ItemResult{}, false
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
