package grading

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/pavelanni/examgrader/internal/classify"
	"github.com/pavelanni/examgrader/internal/model"
)

// ErrInvalidExam is wrapped by every StructureError.
var ErrInvalidExam = errors.New("invalid exam structure")

// StructureError reports an exam definition that cannot be graded.
// Question is 0 for exam-level problems.
type StructureError struct {
	Question int
	Field    string
	Reason   string
}

func (e *StructureError) Error() string {
	if e.Question == 0 {
		return fmt.Sprintf("exam: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("question %d: %s: %s", e.Question, e.Field, e.Reason)
}

func (e *StructureError) Unwrap() error { return ErrInvalidExam }

var (
	qtypeTag    = "qtype"
	qtypeText   = "{0} must be one of mc4, mc5, ox, short, essay"
	notBlankTag = "notblank"
	notBlankTxt = "{0} cannot be blank"
)

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(qtypeTag, func(fl validator.FieldLevel) bool {
		return model.IsValidType(fl.Field().String())
	})
	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	registerTranslation(validate, trans, qtypeTag, qtypeText)
	registerTranslation(validate, trans, notBlankTag, notBlankTxt)

	return validate, trans
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Validate checks an exam definition before grading. It returns a
// *StructureError naming the first offending question.
func (e *Engine) Validate(exam model.Exam) error {
	if len(exam.Questions) == 0 {
		return &StructureError{Field: "questions", Reason: "exam has no questions"}
	}
	sum := 0
	for i, q := range exam.Questions {
		if err := e.validateFields(q); err != nil {
			return err
		}
		if q.Number != i+1 {
			return &StructureError{
				Question: q.Number,
				Field:    "number",
				Reason:   fmt.Sprintf("expected question number %d; numbers must be contiguous from 1", i+1),
			}
		}
		if err := validateAnswerKey(q); err != nil {
			return err
		}
		sum += q.Points
	}
	if exam.TotalPoints != 0 && exam.TotalPoints != sum {
		return &StructureError{
			Field:  "total_points",
			Reason: fmt.Sprintf("total %d does not match question points sum %d", exam.TotalPoints, sum),
		}
	}
	return nil
}

func (e *Engine) validateFields(q model.Question) error {
	err := e.validate.Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &StructureError{Question: q.Number, Field: "question", Reason: err.Error()}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return &StructureError{Question: q.Number, Field: field, Reason: fe.Translate(e.trans)}
}

func validateAnswerKey(q model.Question) error {
	fail := func(field, format string, args ...any) error {
		return &StructureError{Question: q.Number, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	if q.Type == model.TypeEssay {
		if q.HasSubQuestions {
			return fail("has_sub_questions", "essay question cannot have sub-questions")
		}
		if len(q.CorrectAnswers) > 0 {
			return fail("correct_answers", "essay question must not carry correct answers")
		}
		return nil
	}

	if q.HasSubQuestions {
		if len(q.SubQuestions) == 0 {
			return fail("sub_questions", "question is marked as having sub-questions but has none")
		}
		seen := make(map[int]bool, len(q.SubQuestions))
		subSum := 0
		for _, sq := range q.SubQuestions {
			if seen[sq.SubNumber] {
				return fail("sub_questions", "duplicate sub-question number %d", sq.SubNumber)
			}
			seen[sq.SubNumber] = true
			if len(sq.CorrectAnswers) == 0 {
				return fail("sub_questions", "sub-question %d has no correct answers", sq.SubNumber)
			}
			subSum += sq.SubPoints
		}
		if subSum != q.Points {
			return fail("sub_questions", "sub-question points sum %d does not match question points %d", subSum, q.Points)
		}
		return nil
	}

	if len(q.CorrectAnswers) == 0 {
		return fail("correct_answers", "question has no correct answer")
	}

	switch {
	case q.Type.IsChoice():
		for _, v := range q.CorrectAnswers {
			n, ok := v.ChoiceNumber()
			if !ok {
				return fail("correct_answers", "%s question needs choice answers, got %q", q.Type, v.Kind())
			}
			if n < 1 || n > q.Type.Choices() {
				return fail("correct_answers", "choice %d out of range 1..%d", n, q.Type.Choices())
			}
		}
	case q.Type == model.TypeTrueFalse:
		if len(q.CorrectAnswers) != 1 {
			return fail("correct_answers", "true/false question needs exactly one answer, got %d", len(q.CorrectAnswers))
		}
		if _, ok := q.CorrectAnswers[0].IsO(); !ok {
			return fail("correct_answers", "true/false question needs an O/X answer, got %q", q.CorrectAnswers[0].Kind())
		}
	case q.Type == model.TypeShortAnswer:
		for _, v := range q.CorrectAnswers {
			s, ok := v.TextValue()
			if !ok {
				return fail("correct_answers", "short-answer question needs text answers, got %q", v.Kind())
			}
			if strings.TrimSpace(s) == "" {
				return fail("correct_answers", "short answer cannot be blank")
			}
			if strings.TrimSpace(s) != s {
				return fail("correct_answers", "short answer %q has leading or trailing whitespace", s)
			}
			if strings.ContainsAny(s, ",，、") {
				return fail("correct_answers", "short answer %q must not contain a comma; list synonyms as separate answers", s)
			}
		}
	}

	// The key must read back unchanged when edited as text.
	text := classify.Format(q)
	if c := classify.Explain(text, q.Type); c.Type != q.Type || !model.SameSet(c.Answers, q.CorrectAnswers) {
		return fail("correct_answers", "answer key %q reads back as %s %s (rule %s)",
			text, c.Type, classify.FormatValues(c.Type, c.Answers), c.Rule)
	}
	return nil
}
