package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/examgrader/internal/classify"
	"github.com/pavelanni/examgrader/internal/grading"
	appI18n "github.com/pavelanni/examgrader/internal/i18n"
	"github.com/pavelanni/examgrader/internal/importer"
	"github.com/pavelanni/examgrader/internal/model"
	"github.com/pavelanni/examgrader/internal/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examgrader",
		Short:        "Answer-key classification and grading for paper-style exams",
		SilenceUsage: true,
	}
	root.AddCommand(classifyCmd(), importCmd(), gradeCmd(), regradeCmd())
	return root
}

// addCommonFlags registers the flags every subcommand understands.
func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("lang", "l", "en", "Report language (en, ko)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addGradingFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("exam", "e", "", "Exam JSON file (required)")
	f.StringP("submissions", "s", "", "Submissions JSON file (required)")
	f.String("or-policy", string(grading.OrAnyOverlap), "OR-logic policy (any-overlap, no-wrong)")
	f.IntP("workers", "w", 4, "Parallel grading workers")
	f.StringP("format", "f", "text", "Output format (text, json)")
	f.Bool("detail", false, "Print the per-question table for every submission")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("exam")
	_ = cmd.MarkFlagRequired("submissions")
}

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [answer...]",
		Short: "Classify raw answer-key cells (reads stdin lines when no args)",
		RunE:  runClassify,
	}
	f := cmd.Flags()
	f.StringP("default-type", "t", string(model.TypeMultipleChoice5), "Type assumed for numeric and empty cells")
	f.StringP("format", "f", "text", "Output format (text, json)")
	addCommonFlags(cmd)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Build an exam JSON file from a pasted answer sheet",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.StringP("input", "i", "-", "Answer sheet (tab or | separated, - for stdin)")
	f.String("exam-id", "", "Exam identifier (required)")
	f.String("title", "", "Exam title")
	f.StringP("default-type", "t", string(model.TypeMultipleChoice5), "Type assumed for numeric and empty cells")
	f.Int("default-points", 1, "Points for rows without a points cell")
	f.String("answer-logic", string(model.LogicAnd), "Logic for multi-answer choice questions (AND, OR)")
	f.Bool("ignore-space", false, "Ignore whitespace when matching short answers")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addCommonFlags(cmd)
	_ = cmd.MarkFlagRequired("exam-id")
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade submissions against an exam",
		RunE:  runGrade,
	}
	addGradingFlags(cmd)
	addCommonFlags(cmd)
	return cmd
}

func regradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regrade",
		Short: "Regrade submissions after an answer-key edit and list what changed",
		RunE:  runRegrade,
	}
	addGradingFlags(cmd)
	cmd.Flags().String("before", "", "Exam JSON file as it was before the edit (required)")
	_ = cmd.MarkFlagRequired("before")
	addCommonFlags(cmd)
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMGRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examgrader")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examgrader")
	v.AddConfigPath("/etc/examgrader")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// setup configures logging and i18n and returns the command's settings
// together with a context carrying the report localizer.
func setup(cmd *cobra.Command) (*viper.Viper, context.Context, error) {
	v := viperForCmd(cmd)
	setupLogging(v)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}
	return v, appI18n.WithLanguage(cmd.Context(), lang), nil
}

func defaultType(v *viper.Viper) (model.QuestionType, error) {
	s := v.GetString("default-type")
	t, ok := model.ParseQuestionType(s)
	if !ok {
		return "", fmt.Errorf("unknown default type %q", s)
	}
	return t, nil
}

func newEngine(v *viper.Viper) *grading.Engine {
	policy := strings.ToLower(strings.TrimSpace(v.GetString("or-policy")))
	if !grading.IsValidOrPolicy(policy) {
		slog.Warn("invalid or-policy, using any-overlap", "policy", policy)
		policy = string(grading.OrAnyOverlap)
	}
	return grading.New(
		grading.WithOrPolicy(grading.OrPolicy(policy)),
		grading.WithWorkers(v.GetInt("workers")),
	)
}

func runClassify(cmd *cobra.Command, args []string) error {
	v, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	dt, err := defaultType(v)
	if err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		inputs = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}

	type row struct {
		Input   string              `json:"input"`
		Type    model.QuestionType  `json:"type"`
		Answers []model.AnswerValue `json:"answers"`
		Rule    string              `json:"rule"`
	}
	rows := make([]row, 0, len(inputs))
	for _, in := range inputs {
		c := classify.Explain(in, dt)
		rows = append(rows, row{Input: in, Type: c.Type, Answers: c.Answers, Rule: c.Rule})
	}

	w := cmd.OutOrStdout()
	if v.GetString("format") == "json" {
		return report.WriteJSON(w, rows)
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r.Input, appI18n.Td(ctx, "ClassifyResult", map[string]any{
			"Type":    report.TypeName(ctx, r.Type),
			"Answers": classify.FormatValues(r.Type, r.Answers),
			"Rule":    r.Rule,
		}))
	}
	return nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	v, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	dt, err := defaultType(v)
	if err != nil {
		return err
	}

	data, err := readInput(cmd, v.GetString("input"))
	if err != nil {
		return err
	}

	questions, issues := importer.Parse(string(data), importer.Options{
		DefaultType:   dt,
		DefaultPoints: v.GetInt("default-points"),
		AnswerLogic:   model.AnswerLogic(strings.ToUpper(v.GetString("answer-logic"))),
		IgnoreSpace:   v.GetBool("ignore-space"),
	})
	for _, is := range issues {
		slog.Warn("skipped answer sheet line", "line", is.Line, "reason", is.Reason)
	}

	exam := model.Exam{
		ID:        v.GetString("exam-id"),
		Title:     v.GetString("title"),
		Questions: questions,
	}
	if err := grading.New().Validate(exam); err != nil {
		slog.Warn("imported exam does not validate", "error", err)
	}

	if err := writeOutput(cmd, v.GetString("output"), exam); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), appI18n.Tp(ctx, "ImportSummary", len(questions)))
	if len(issues) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), appI18n.Tp(ctx, "ImportSkipped", len(issues)))
	}
	return nil
}

func runGrade(cmd *cobra.Command, _ []string) error {
	v, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	exam, err := loadExam(v.GetString("exam"))
	if err != nil {
		return err
	}
	subs, err := loadSubmissions(v.GetString("submissions"), exam)
	if err != nil {
		return err
	}

	engine := newEngine(v)
	rep, err := engine.RegradeAll(ctx, exam, subs)
	if err != nil {
		return fmt.Errorf("grade: %w", err)
	}

	if v.GetString("format") == "json" {
		return writeOutput(cmd, v.GetString("output"), report.Export(exam, rep, engine.OrPolicy(), nil, time.Now()))
	}
	return withOutput(cmd, v.GetString("output"), func(w io.Writer) error {
		return writeText(ctx, w, exam, rep, v.GetBool("detail"))
	})
}

func runRegrade(cmd *cobra.Command, _ []string) error {
	v, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	before, err := loadExam(v.GetString("before"))
	if err != nil {
		return err
	}
	exam, err := loadExam(v.GetString("exam"))
	if err != nil {
		return err
	}
	if before.ID != exam.ID {
		slog.Warn("exam IDs differ between versions", "before", before.ID, "after", exam.ID)
	}
	// Raw answers are read against each version's question types.
	inputs, err := loadInputs(v.GetString("submissions"))
	if err != nil {
		return err
	}

	engine := newEngine(v)
	old, err := engine.RegradeAll(ctx, before, importer.ResolveAll(inputs, before))
	if err != nil {
		return fmt.Errorf("grade previous version: %w", err)
	}
	rep, err := engine.RegradeAll(ctx, exam, importer.ResolveAll(inputs, exam))
	if err != nil {
		return fmt.Errorf("regrade: %w", err)
	}
	changes := report.Changes(old.Results, rep.Results)
	slog.Info("regrade compared", "exam_id", exam.ID, "changed_submissions", len(changes))

	if v.GetString("format") == "json" {
		return writeOutput(cmd, v.GetString("output"), report.Export(exam, rep, engine.OrPolicy(), changes, time.Now()))
	}
	return withOutput(cmd, v.GetString("output"), func(w io.Writer) error {
		report.WriteChanges(ctx, w, changes)
		fmt.Fprintln(w)
		return writeText(ctx, w, exam, rep, v.GetBool("detail"))
	})
}

func writeText(ctx context.Context, w io.Writer, exam model.Exam, rep grading.BulkReport, detail bool) error {
	if detail || len(rep.Results)+len(rep.Failures) == 1 {
		for _, r := range rep.Results {
			if err := report.Result(ctx, w, exam, r); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
	}
	return report.Bulk(ctx, w, exam, rep)
}
