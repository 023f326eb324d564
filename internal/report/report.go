// Package report renders grading results as localized text tables and as the
// JSON export document.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pavelanni/examgrader/internal/classify"
	"github.com/pavelanni/examgrader/internal/grading"
	"github.com/pavelanni/examgrader/internal/i18n"
	"github.com/pavelanni/examgrader/internal/model"
)

var typeMsg = map[model.QuestionType]string{
	model.TypeMultipleChoice4: "TypeMC4",
	model.TypeMultipleChoice5: "TypeMC5",
	model.TypeTrueFalse:       "TypeOX",
	model.TypeShortAnswer:     "TypeShort",
	model.TypeEssay:           "TypeEssay",
}

// TypeName returns the localized name of a question type.
func TypeName(ctx context.Context, t model.QuestionType) string {
	if id, ok := typeMsg[t]; ok {
		return i18n.T(ctx, id)
	}
	return string(t)
}

// Result writes the per-question table for one graded submission.
func Result(ctx context.Context, w io.Writer, exam model.Exam, r model.GradedResult) error {
	title := exam.Title
	if title == "" {
		title = exam.ID
	}
	fmt.Fprintln(w, i18n.Td(ctx, "ReportTitle", map[string]any{"Title": title}))
	fmt.Fprintln(w, i18n.Td(ctx, "ReportStudent", map[string]any{
		"Student":    r.StudentID,
		"Submission": r.SubmissionID,
	}))
	fmt.Fprintln(w, i18n.Td(ctx, "ReportScore", map[string]any{
		"Score":       r.Score,
		"Total":       r.Totals.Total,
		"Auto":        r.AutoScore,
		"AutoTotal":   r.Totals.Auto,
		"Manual":      r.Score - autoPart(r),
		"ManualTotal": r.Totals.Manual,
	}))
	fmt.Fprintln(w, i18n.Tp(ctx, "CorrectCount", r.CorrectCount))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{
		i18n.T(ctx, "ColNumber"),
		i18n.T(ctx, "ColType"),
		i18n.T(ctx, "ColStudentAnswer"),
		i18n.T(ctx, "ColCorrectAnswer"),
		i18n.T(ctx, "ColResult"),
		i18n.T(ctx, "ColScore"),
	}, "\t"))
	for _, it := range r.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d/%d\n",
			it.QuestionNumber,
			TypeName(ctx, it.Type),
			dash(studentAnswer(it)),
			dash(correctAnswer(it)),
			verdict(ctx, it),
			it.Score, it.Points,
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write result table: %w", err)
	}

	if len(r.Discrepancies) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, i18n.Td(ctx, "Discrepancies", map[string]any{"Questions": joinInts(r.Discrepancies)}))
	}
	return nil
}

// Bulk writes one line per graded submission followed by the failures.
func Bulk(ctx context.Context, w io.Writer, exam model.Exam, rep grading.BulkReport) error {
	title := exam.Title
	if title == "" {
		title = exam.ID
	}
	fmt.Fprintln(w, i18n.Td(ctx, "ReportTitle", map[string]any{"Title": title}))
	fmt.Fprintln(w)

	total := exam.Totals().Total
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{
		i18n.T(ctx, "ColStudent"),
		i18n.T(ctx, "ColScore"),
		i18n.T(ctx, "ColCorrect"),
	}, "\t"))
	for _, r := range rep.Results {
		fmt.Fprintf(tw, "%s\t%d/%d\t%d\n", r.StudentID, r.Score, total, r.CorrectCount)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write bulk table: %w", err)
	}

	if len(rep.Failures) > 0 {
		fmt.Fprintln(w)
		for _, f := range rep.Failures {
			fmt.Fprintln(w, i18n.Td(ctx, "FailureLine", map[string]any{
				"Submission": f.SubmissionID,
				"Student":    f.StudentID,
				"Error":      f.Err,
			}))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, i18n.Td(ctx, "BulkSummary", map[string]any{
		"Succeeded": rep.Succeeded,
		"Failed":    rep.Failed,
	}))
	return nil
}

// Changes compares two gradings of the same submissions and returns the
// submissions whose results differ, in the order of after.
func Changes(before, after []model.GradedResult) []model.ChangeSet {
	prev := make(map[string]model.GradedResult, len(before))
	for _, r := range before {
		prev[r.SubmissionID] = r
	}
	var out []model.ChangeSet
	for _, r := range after {
		old, ok := prev[r.SubmissionID]
		if !ok {
			continue
		}
		qs := grading.Diff(old, r)
		if len(qs) == 0 {
			continue
		}
		out = append(out, model.ChangeSet{
			SubmissionID: r.SubmissionID,
			StudentID:    r.StudentID,
			Questions:    qs,
			ScoreBefore:  old.Score,
			ScoreAfter:   r.Score,
		})
	}
	return out
}

// WriteChanges lists the changed questions per submission.
func WriteChanges(ctx context.Context, w io.Writer, changes []model.ChangeSet) {
	if len(changes) == 0 {
		fmt.Fprintln(w, i18n.T(ctx, "NoChanges"))
		return
	}
	for _, c := range changes {
		fmt.Fprintln(w, i18n.Td(ctx, "ChangedQuestions", map[string]any{
			"Student":   c.StudentID,
			"Questions": joinInts(c.Questions),
			"Before":    c.ScoreBefore,
			"After":     c.ScoreAfter,
		}))
	}
}

// Export assembles the JSON export document for a bulk grading run.
func Export(exam model.Exam, rep grading.BulkReport, policy grading.OrPolicy, changes []model.ChangeSet, now time.Time) model.GradeExport {
	out := model.GradeExport{
		ExamID:      exam.ID,
		Title:       exam.Title,
		GeneratedAt: now.UTC(),
		OrPolicy:    string(policy),
		Totals:      exam.Totals(),
		Results:     rep.Results,
		Changes:     changes,
	}
	if out.Results == nil {
		out.Results = []model.GradedResult{}
	}
	for _, f := range rep.Failures {
		out.Failures = append(out.Failures, model.FailedGrade{
			SubmissionID: f.SubmissionID,
			StudentID:    f.StudentID,
			Error:        f.Err.Error(),
		})
	}
	return out
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

// autoPart is the share of the final score earned on auto-gradable questions.
func autoPart(r model.GradedResult) int {
	n := 0
	for _, it := range r.Items {
		if it.Type.AutoGradable() {
			n += it.Score
		}
	}
	return n
}

func studentAnswer(it model.ItemResult) string {
	if len(it.SubResults) > 0 {
		parts := make([]string, 0, len(it.SubResults))
		for _, s := range it.SubResults {
			parts = append(parts, fmt.Sprintf("%d:%s", s.SubNumber, dash(s.StudentAnswer)))
		}
		return strings.Join(parts, " ")
	}
	return classify.FormatValues(it.Type, it.StudentAnswer.Values)
}

func correctAnswer(it model.ItemResult) string {
	if len(it.SubResults) > 0 {
		parts := make([]string, 0, len(it.SubResults))
		for _, s := range it.SubResults {
			parts = append(parts, fmt.Sprintf("%d:%s", s.SubNumber, strings.Join(s.CorrectAnswers, "/")))
		}
		return strings.Join(parts, " ")
	}
	return classify.FormatValues(it.Type, it.CorrectAnswer)
}

func verdict(ctx context.Context, it model.ItemResult) string {
	var s string
	switch {
	case it.Correct == nil:
		s = i18n.T(ctx, "ResultPending")
	case *it.Correct:
		s = i18n.T(ctx, "ResultCorrect")
	default:
		s = i18n.T(ctx, "ResultWrong")
	}
	if it.Overridden {
		s += " " + i18n.T(ctx, "ResultOverridden")
	}
	return s
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
