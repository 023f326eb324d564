package model

import "time"

// GradeExport is the top-level JSON structure for exported grading results.
type GradeExport struct {
	ExamID      string         `json:"exam_id"`
	Title       string         `json:"title,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	OrPolicy    string         `json:"or_policy"`
	Totals      Totals         `json:"totals"`
	Results     []GradedResult `json:"results"`
	Failures    []FailedGrade  `json:"failures,omitempty"`
	Changes     []ChangeSet    `json:"changes,omitempty"`
}

// FailedGrade records a submission that could not be graded.
type FailedGrade struct {
	SubmissionID string `json:"submission_id"`
	StudentID    string `json:"student_id"`
	Error        string `json:"error"`
}

// ChangeSet lists the questions whose verdict changed for a submission after a regrade.
type ChangeSet struct {
	SubmissionID string `json:"submission_id"`
	StudentID    string `json:"student_id"`
	Questions    []int  `json:"questions"`
	ScoreBefore  int    `json:"score_before"`
	ScoreAfter   int    `json:"score_after"`
}
