package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavelanni/examgrader/internal/importer"
	"github.com/pavelanni/examgrader/internal/model"
	"github.com/pavelanni/examgrader/internal/report"
)

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func loadExam(path string) (model.Exam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Exam{}, fmt.Errorf("read %s: %w", path, err)
	}
	var exam model.Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		return model.Exam{}, fmt.Errorf("parse %s: %w", path, err)
	}
	slog.Debug("loaded exam", "path", path, "exam_id", exam.ID, "questions", len(exam.Questions))
	return exam, nil
}

func loadSubmissions(path string, exam model.Exam) ([]model.Submission, error) {
	inputs, err := loadInputs(path)
	if err != nil {
		return nil, err
	}
	return importer.ResolveAll(inputs, exam), nil
}

// loadInputs decodes submissions without resolving raw answers.
func loadInputs(path string) ([]importer.SubmissionInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	inputs, err := importer.DecodeInputs(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	slog.Debug("loaded submissions", "path", path, "count", len(inputs))
	return inputs, nil
}

// withOutput runs fn against stdout or the named file.
func withOutput(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	slog.Info("wrote output", "path", path)
	return nil
}

func writeOutput(cmd *cobra.Command, path string, v any) error {
	return withOutput(cmd, path, func(w io.Writer) error {
		return report.WriteJSON(w, v)
	})
}
