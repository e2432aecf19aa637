// rageval replays a QA dataset against the live retrieval engine and
// scores the generated answers against the references.
//
// Usage:
//
//	rageval -dataset evaluation/dataset.json -out evaluation/results -xlsx
//
// Service connections (Postgres, Qdrant, the LLM provider, NATS) come
// from the same environment variables the api binary reads.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/strataworks/geoassist/internal/bootstrap"
	"github.com/strataworks/geoassist/internal/config"
	"github.com/strataworks/geoassist/internal/core/ports"
	"github.com/strataworks/geoassist/internal/evaluation"
	"github.com/strataworks/geoassist/internal/observability/logging"
)

const serviceName = "rageval"

type evalFlags struct {
	datasetPath    string
	outDir         string
	xlsx           bool
	searchOnly     bool
	topK           int
	scoreThreshold float64
}

func parseFlags() evalFlags {
	f := evalFlags{}
	flag.StringVar(&f.datasetPath, "dataset", "evaluation/dataset.json", "path to the QA dataset")
	flag.StringVar(&f.outDir, "out", "evaluation/results", "directory for result files")
	flag.BoolVar(&f.xlsx, "xlsx", false, "also write an xlsx workbook")
	flag.BoolVar(&f.searchOnly, "search-only", false, "skip the agent loop, evaluate retrieval only")
	flag.IntVar(&f.topK, "top-k", 5, "chunks requested per question")
	flag.Float64Var(&f.scoreThreshold, "score-threshold", 0.2, "minimum similarity score for retrieved chunks")
	flag.Parse()
	return f
}

func main() {
	flags := parseFlags()
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags, cfg); err != nil {
		slog.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, flags evalFlags, cfg config.Config) error {
	dataset, err := evaluation.LoadDataset(flags.datasetPath)
	if err != nil {
		return err
	}
	slog.Info("dataset loaded", "path", flags.datasetPath, "questions", len(dataset.QAPairs))

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	var questions ports.QuestionService
	if !flags.searchOnly {
		questions = app.Ask
	}
	runner := evaluation.NewRunner(app.Search, questions, evaluation.Params{
		TopK:           flags.topK,
		ScoreThreshold: flags.scoreThreshold,
	})

	report, runErr := runner.Run(ctx, dataset)
	if len(report.Results) > 0 {
		if err := writeOutputs(flags, report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	summary := report.Summary
	slog.Info("evaluation complete",
		"total", summary.TotalQuestions,
		"successful", summary.Successful,
		"success_rate", summary.SuccessRate,
		"overall_score", summary.OverallScore,
		"rating", summary.Rating)
	return nil
}

// writeOutputs saves whatever the run produced; an interrupted run still
// leaves its partial rows on disk.
func writeOutputs(flags evalFlags, report evaluation.Report) error {
	if err := os.MkdirAll(flags.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	stamp := report.StartedAt.Format("20060102_150405")

	csvPath := filepath.Join(flags.outDir, "rag_evaluation_results_"+stamp+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := evaluation.WriteCSV(f, report); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	slog.Info("results written", "path", csvPath)

	if flags.xlsx {
		xlsxPath := filepath.Join(flags.outDir, "rag_evaluation_results_"+stamp+".xlsx")
		if err := evaluation.WriteXLSX(xlsxPath, report); err != nil {
			return err
		}
		slog.Info("workbook written", "path", xlsxPath)
	}
	return nil
}
