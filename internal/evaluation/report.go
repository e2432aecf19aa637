package evaluation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var reportHeader = []string{
	"question_id",
	"question",
	"expected_answer",
	"generated_answer",
	"chunks_retrieved",
	"top_chunk_score",
	"top_chunk_source",
	"citations_used",
	"trace_id",
	"jaccard_similarity",
	"word_overlap_score",
	"technical_terms_score",
	"expected_technical_terms",
	"generated_technical_terms",
	"technical_match_count",
	"chunks_details",
}

// WriteCSV streams the per-question rows in the fixed report column
// order.
func WriteCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(reportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, result := range report.Results {
		record, err := csvRecord(result)
		if err != nil {
			return err
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", result.QuestionID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvRecord(result QuestionResult) ([]string, error) {
	chunks, err := chunksJSON(result)
	if err != nil {
		return nil, err
	}
	return []string{
		strconv.Itoa(result.QuestionID),
		result.Question,
		result.ExpectedAnswer,
		result.GeneratedAnswer,
		strconv.Itoa(result.ChunksRetrieved),
		formatScore(result.TopChunkScore),
		result.TopChunkSource,
		strconv.Itoa(result.CitationsUsed),
		result.TraceID,
		formatScore(result.Similarity.Jaccard),
		formatScore(result.Similarity.WordOverlap),
		formatScore(result.Similarity.TechnicalTerms),
		strconv.Itoa(result.Similarity.ExpectedTermCount),
		strconv.Itoa(result.Similarity.GeneratedTermCount),
		strconv.Itoa(result.Similarity.MatchedTermCount),
		chunks,
	}, nil
}

func chunksJSON(result QuestionResult) (string, error) {
	if len(result.Chunks) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(result.Chunks)
	if err != nil {
		return "", fmt.Errorf("marshal chunk details for question %d: %w", result.QuestionID, err)
	}
	return string(data), nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// WriteXLSX saves the report as a workbook with a Results sheet and a
// Summary sheet.
func WriteXLSX(path string, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename results sheet: %w", err)
	}
	if err := writeResultsSheet(f, report); err != nil {
		return err
	}
	if err := writeSummarySheet(f, report); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeResultsSheet(f *excelize.File, report Report) error {
	header := make([]any, len(reportHeader))
	for i, name := range reportHeader {
		header[i] = name
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}

	for i, result := range report.Results {
		chunks, err := chunksJSON(result)
		if err != nil {
			return err
		}
		row := []any{
			result.QuestionID,
			result.Question,
			result.ExpectedAnswer,
			result.GeneratedAnswer,
			result.ChunksRetrieved,
			result.TopChunkScore,
			result.TopChunkSource,
			result.CitationsUsed,
			result.TraceID,
			result.Similarity.Jaccard,
			result.Similarity.WordOverlap,
			result.Similarity.TechnicalTerms,
			result.Similarity.ExpectedTermCount,
			result.Similarity.GeneratedTermCount,
			result.Similarity.MatchedTermCount,
			chunks,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("results row %d: %w", result.QuestionID, err)
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write results row %d: %w", result.QuestionID, err)
		}
	}

	// Question and answer columns hold paragraphs.
	if err := f.SetColWidth(resultsSheet, "B", "D", 60); err != nil {
		return fmt.Errorf("size results columns: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, report Report) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	summary := report.Summary
	rows := [][2]any{
		{"started_at", report.StartedAt.Format("2006-01-02 15:04:05")},
		{"top_k", report.Params.TopK},
		{"score_threshold", report.Params.ScoreThreshold},
		{"total_questions", summary.TotalQuestions},
		{"successful", summary.Successful},
		{"success_rate", summary.SuccessRate},
		{"avg_chunks", summary.AvgChunks},
		{"avg_jaccard", summary.AvgJaccard},
		{"avg_word_overlap", summary.AvgWordOverlap},
		{"avg_technical", summary.AvgTechnical},
		{"overall_score", summary.OverallScore},
		{"rating", summary.Rating},
	}
	for i, pair := range rows {
		row := []any{pair[0], pair[1]}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %q: %w", pair[0], err)
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return fmt.Errorf("size summary columns: %w", err)
	}
	return nil
}
