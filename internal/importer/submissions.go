package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pavelanni/examgrader/internal/classify"
	"github.com/pavelanni/examgrader/internal/model"
)

// SubmissionInput is a submission as stored on disk. Raw holds answers as
// typed by the student, keyed by question number; they are normalized
// against the exam's question types when loaded.
type SubmissionInput struct {
	model.Submission
	Raw map[int]string `json:"raw,omitempty"`
}

// subSeparator splits a raw answer for a decomposed question into its parts.
const subSeparator = ";"

// DecodeSubmissions reads a JSON array (or a single object) of submissions
// and resolves raw answers against exam.
func DecodeSubmissions(data []byte, exam model.Exam) ([]model.Submission, error) {
	inputs, err := DecodeInputs(data)
	if err != nil {
		return nil, err
	}
	return ResolveAll(inputs, exam), nil
}

// DecodeInputs reads submissions without resolving raw answers, so the same
// inputs can be resolved against several versions of an exam. Submissions
// without an ID get a generated one here, once.
func DecodeInputs(data []byte) ([]SubmissionInput, error) {
	var inputs []SubmissionInput
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one SubmissionInput
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		inputs = append(inputs, one)
	} else if err := json.Unmarshal(trimmed, &inputs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	for i := range inputs {
		if inputs[i].ID == "" {
			inputs[i].ID = uuid.NewString()
		}
	}
	return inputs, nil
}

// ResolveAll resolves every input against exam.
func ResolveAll(inputs []SubmissionInput, exam model.Exam) []model.Submission {
	subs := make([]model.Submission, 0, len(inputs))
	for _, in := range inputs {
		subs = append(subs, in.Resolve(exam))
	}
	return subs
}

// Resolve merges Raw into the submission's answers. Explicit answers win
// over raw ones for the same question.
func (in SubmissionInput) Resolve(exam model.Exam) model.Submission {
	sub := in.Submission
	if len(in.Raw) == 0 {
		return sub
	}

	answers := make(map[int]model.Response, len(sub.Answers)+len(in.Raw))
	for n, r := range sub.Answers {
		answers[n] = r
	}
	for n, raw := range in.Raw {
		if _, ok := sub.Answers[n]; ok {
			slog.Warn("raw answer shadowed by explicit answer", "submission_id", sub.ID, "question", n)
			continue
		}
		q, ok := exam.Question(n)
		if !ok {
			// Kept so the grader reports it as a discrepancy.
			answers[n] = model.Response{Values: []model.AnswerValue{model.Text(raw)}}
			continue
		}
		answers[n] = NormalizeResponse(q, raw)
	}
	sub.Answers = answers
	return sub
}

// NormalizeResponse converts a raw response for q. Parts of a decomposed
// question are separated by ";" in sub-question order.
func NormalizeResponse(q model.Question, raw string) model.Response {
	if !q.HasSubQuestions {
		return model.Response{Values: classify.Normalize(raw, q.Type)}
	}
	parts := strings.Split(raw, subSeparator)
	resp := model.Response{Sub: make(map[int]string, len(q.SubQuestions))}
	for i, sq := range q.SubQuestions {
		if i >= len(parts) {
			break
		}
		if p := strings.TrimSpace(parts[i]); p != "" {
			resp.Sub[sq.SubNumber] = p
		}
	}
	return resp
}
