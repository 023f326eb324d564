// Package classify turns free-text answer keys typed by teachers into typed
// answer sets, and renders them back to editable text.
//
// Classification is a pure function of the raw text and the default type.
// Rules are tried in a fixed order and the first match wins:
//
//  1. essay keywords
//  2. circled-digit choices
//  3. a single O/X mark
//  4. a plain numeric list (only when the default type is a choice type)
//  5. comma-separated short answers
//
// Malformed input never fails; it falls through to the short-answer rule.
package classify

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/width"

	"github.com/pavelanni/examgrader/internal/model"
)

// Rule names reported by Explain.
const (
	RuleEmpty       = "empty"
	RuleEssay       = "essay_keyword"
	RuleCircled     = "circled_digits"
	RuleOX          = "ox_mark"
	RuleNumericList = "numeric_list"
	RuleShortAnswer = "short_answer"
)

// Classification is the outcome of classifying one answer cell.
type Classification struct {
	Type    model.QuestionType  `json:"type"`
	Answers []model.AnswerValue `json:"answers"`
	Rule    string              `json:"rule"`
}

type input struct {
	raw         string // trimmed original text
	folded      string // trimmed, full-width folded to ASCII
	defaultType model.QuestionType
}

type rule struct {
	name  string
	match func(c *Classifier, in input) (model.QuestionType, []model.AnswerValue, bool)
}

// rules run in priority order; the order is part of the contract.
var rules = []rule{
	{RuleEssay, matchEssay},
	{RuleCircled, matchCircled},
	{RuleOX, matchOX},
	{RuleNumericList, matchNumericList},
	{RuleShortAnswer, matchShortAnswer},
}

// Classifier holds the essay keyword set. It is immutable after New and safe
// for concurrent use.
type Classifier struct {
	keywords []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLanguages restricts essay keywords to the given languages.
func WithLanguages(tags ...language.Tag) Option {
	return func(c *Classifier) { c.keywords = keywordsFor(tags) }
}

// WithExtraKeywords adds essay markers on top of the language sets.
func WithExtraKeywords(words ...string) Option {
	return func(c *Classifier) {
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				c.keywords = append(c.keywords, w)
			}
		}
	}
}

// New creates a classifier. Without options every built-in language is active.
func New(opts ...Option) *Classifier {
	c := &Classifier{keywords: keywordsFor(Languages())}
	for _, o := range opts {
		o(c)
	}
	return c
}

var defaultClassifier = New()

// Classify classifies raw with the default classifier.
func Classify(raw string, defaultType model.QuestionType) (model.QuestionType, []model.AnswerValue) {
	return defaultClassifier.Classify(raw, defaultType)
}

// Explain classifies raw with the default classifier and reports the rule used.
func Explain(raw string, defaultType model.QuestionType) Classification {
	return defaultClassifier.Explain(raw, defaultType)
}

// Classify returns the question type and answer set for a raw answer cell.
// Empty input yields the default type with no answers.
func (c *Classifier) Classify(raw string, defaultType model.QuestionType) (model.QuestionType, []model.AnswerValue) {
	res := c.Explain(raw, defaultType)
	return res.Type, res.Answers
}

// Explain is Classify plus the name of the matching rule.
func (c *Classifier) Explain(raw string, defaultType model.QuestionType) Classification {
	in := input{
		raw:         strings.TrimSpace(raw),
		defaultType: defaultType,
	}
	in.folded = strings.TrimSpace(width.Fold.String(in.raw))
	if in.raw == "" {
		return Classification{Type: defaultType, Rule: RuleEmpty}
	}
	for _, r := range rules {
		if t, vals, ok := r.match(c, in); ok {
			return Classification{Type: t, Answers: vals, Rule: r.name}
		}
	}
	// Only reachable when every comma-separated part is blank.
	return Classification{Type: defaultType, Rule: RuleEmpty}
}

func matchEssay(c *Classifier, in input) (model.QuestionType, []model.AnswerValue, bool) {
	lower := strings.ToLower(in.folded)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return model.TypeEssay, nil, true
		}
	}
	return "", nil, false
}

func matchCircled(_ *Classifier, in input) (model.QuestionType, []model.AnswerValue, bool) {
	var vals []model.AnswerValue
	highest := 0
	for _, r := range in.folded {
		if isComma(r) || unicode.IsSpace(r) {
			continue
		}
		n, ok := circled[r]
		if !ok {
			return "", nil, false
		}
		vals = append(vals, model.Choice(n))
		highest = max(highest, n)
	}
	if len(vals) == 0 {
		return "", nil, false
	}
	t := model.TypeMultipleChoice5
	if in.defaultType.IsChoice() && highest <= in.defaultType.Choices() {
		t = in.defaultType
	}
	return t, vals, true
}

func matchOX(_ *Classifier, in input) (model.QuestionType, []model.AnswerValue, bool) {
	if v, ok := parseMark(in.folded); ok {
		return model.TypeTrueFalse, []model.AnswerValue{v}, true
	}
	return "", nil, false
}

func matchNumericList(_ *Classifier, in input) (model.QuestionType, []model.AnswerValue, bool) {
	if !in.defaultType.IsChoice() {
		return "", nil, false
	}
	tokens := splitSeparators(in.folded)
	if len(tokens) == 0 {
		return "", nil, false
	}
	limit := in.defaultType.Choices()
	var vals []model.AnswerValue
	for _, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err != nil || strings.HasPrefix(tok, "+") || strings.HasPrefix(tok, "-") {
			return "", nil, false
		}
		if n >= 1 && n <= limit {
			vals = append(vals, model.Choice(n))
		}
	}
	if len(vals) == 0 {
		// Nothing in range: the cell is text, not an unanswered choice.
		return "", nil, false
	}
	return in.defaultType, vals, true
}

func matchShortAnswer(_ *Classifier, in input) (model.QuestionType, []model.AnswerValue, bool) {
	parts := splitCommas(in.raw)
	if len(parts) == 0 {
		return "", nil, false
	}
	vals := make([]model.AnswerValue, 0, len(parts))
	for _, p := range parts {
		vals = append(vals, model.Text(p))
	}
	return model.TypeShortAnswer, vals, true
}

func parseMark(s string) (model.AnswerValue, bool) {
	switch {
	case oMarks[s]:
		return model.OX(true), true
	case xMarks[s]:
		return model.OX(false), true
	}
	return model.AnswerValue{}, false
}

func isComma(r rune) bool {
	return r == ',' || r == '，' || r == '、'
}

// splitCommas splits on ASCII and full-width commas, dropping blank parts.
func splitCommas(s string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(s, isComma) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitSeparators(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return isComma(r) || unicode.IsSpace(r)
	})
}
