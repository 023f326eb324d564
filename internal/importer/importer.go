// Package importer builds exam questions from a pasted answer sheet.
//
// Each non-blank line describes one question or sub-question:
//
//	number <TAB> answer [<TAB> points [<TAB> category]]
//
// Cells may also be separated by "|". A number of the form "3-1" adds
// sub-question 1 to question 3. Lines starting with "#" are comments, and a
// first line whose number cell is not numeric is treated as a header.
package importer

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pavelanni/examgrader/internal/classify"
	"github.com/pavelanni/examgrader/internal/model"
)

// Options controls how answer cells are interpreted.
type Options struct {
	DefaultType   model.QuestionType
	DefaultPoints int
	AnswerLogic   model.AnswerLogic // applied to questions with several choices
	IgnoreSpace   bool              // applied to short-answer and decomposed questions
	Classifier    *classify.Classifier
}

// Issue is a line that could not be imported.
type Issue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	return fmt.Sprintf("line %d: %s", i.Line, i.Reason)
}

// Parse reads a pasted sheet. Malformed lines are skipped and reported as
// issues; answer cells themselves never fail to parse.
func Parse(text string, opts Options) ([]model.Question, []Issue) {
	if opts.DefaultType == "" {
		opts.DefaultType = model.TypeMultipleChoice5
	}
	if opts.DefaultPoints <= 0 {
		opts.DefaultPoints = 1
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.New()
	}

	byNumber := make(map[int]*model.Question)
	plain := make(map[int]bool)
	var issues []Issue

	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cells := splitCells(line)

		num, sub, ok := parseNumber(cells[0])
		if !ok {
			if lineNo == 1 {
				continue
			}
			issues = append(issues, Issue{Line: lineNo, Reason: fmt.Sprintf("invalid question number %q", cells[0])})
			continue
		}

		answer := cell(cells, 1)
		points := opts.DefaultPoints
		if p := cell(cells, 2); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				issues = append(issues, Issue{Line: lineNo, Reason: fmt.Sprintf("invalid points %q", p)})
				continue
			}
			points = n
		}
		category := cell(cells, 3)

		if sub > 0 {
			if plain[num] {
				issues = append(issues, Issue{Line: lineNo, Reason: fmt.Sprintf("question %d already has an answer key", num)})
				continue
			}
			q := byNumber[num]
			if q == nil {
				q = &model.Question{
					Number:          num,
					Type:            model.TypeShortAnswer,
					HasSubQuestions: true,
					IgnoreSpace:     opts.IgnoreSpace,
				}
				byNumber[num] = q
			}
			if category != "" {
				q.Category = category
			}
			q.SubQuestions = append(q.SubQuestions, model.SubQuestion{
				SubNumber:      sub,
				CorrectAnswers: splitAnswers(answer),
				SubPoints:      points,
			})
			q.Points += points
			continue
		}

		if byNumber[num] != nil {
			issues = append(issues, Issue{Line: lineNo, Reason: fmt.Sprintf("question %d defined twice", num)})
			continue
		}
		typ, vals := opts.Classifier.Classify(answer, opts.DefaultType)
		q := &model.Question{
			Number:         num,
			Type:           typ,
			CorrectAnswers: vals,
			Points:         points,
			Category:       category,
		}
		if typ.IsChoice() && len(vals) > 1 {
			q.AnswerLogic = opts.AnswerLogic
		}
		if typ == model.TypeShortAnswer {
			q.IgnoreSpace = opts.IgnoreSpace
		}
		byNumber[num] = q
		plain[num] = true
	}
	if err := sc.Err(); err != nil {
		issues = append(issues, Issue{Line: lineNo, Reason: err.Error()})
	}

	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	questions := make([]model.Question, 0, len(numbers))
	for _, n := range numbers {
		q := byNumber[n]
		sort.Slice(q.SubQuestions, func(i, j int) bool {
			return q.SubQuestions[i].SubNumber < q.SubQuestions[j].SubNumber
		})
		questions = append(questions, *q)
	}
	return questions, issues
}

func splitCells(line string) []string {
	sep := "\t"
	if !strings.Contains(line, "\t") && strings.Contains(line, "|") {
		sep = "|"
	}
	cells := strings.Split(line, sep)
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

// parseNumber reads "3", "3." or "3-1" style numbers.
func parseNumber(s string) (num, sub int, ok bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	main, rest, hasSub := strings.Cut(s, "-")
	num, err := strconv.Atoi(main)
	if err != nil || num < 1 {
		return 0, 0, false
	}
	if !hasSub {
		return num, 0, true
	}
	sub, err = strconv.Atoi(rest)
	if err != nil || sub < 1 {
		return 0, 0, false
	}
	return num, sub, true
}

func splitAnswers(s string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '，' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
