package grading

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/examgrader/internal/model"
)

// Failure records a submission that could not be graded.
type Failure struct {
	SubmissionID string
	StudentID    string
	Err          error
}

// BulkReport is the outcome of grading many submissions of one exam.
// Results and Failures keep the input order.
type BulkReport struct {
	Results   []model.GradedResult
	Failures  []Failure
	Succeeded int
	Failed    int
}

// RegradeAll validates the exam once and grades every submission in parallel.
// Submissions are independent, so the only ordering is that of the report.
// Cancellation is checked between submissions; a cancelled run returns the
// partial report together with the context error.
func (e *Engine) RegradeAll(ctx context.Context, exam model.Exam, subs []model.Submission) (BulkReport, error) {
	if err := e.Validate(exam); err != nil {
		return BulkReport{}, fmt.Errorf("regrade exam %s: %w", exam.ID, err)
	}

	results := make([]model.GradedResult, len(subs))
	errs := make([]error, len(subs))
	done := make([]bool, len(subs))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range subs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i], errs[i] = e.grade(exam, subs[i])
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var rep BulkReport
	for i, sub := range subs {
		if !done[i] {
			continue
		}
		if errs[i] != nil {
			rep.Failures = append(rep.Failures, Failure{SubmissionID: sub.ID, StudentID: sub.StudentID, Err: errs[i]})
			rep.Failed++
			continue
		}
		rep.Results = append(rep.Results, results[i])
		rep.Succeeded++
	}

	e.log.Info("regrade finished",
		"exam_id", exam.ID,
		"submissions", len(subs),
		"succeeded", rep.Succeeded,
		"failed", rep.Failed,
	)
	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("regrade exam %s: %w", exam.ID, err)
	}
	return rep, nil
}
