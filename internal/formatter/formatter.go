// package formatter provides functions to export migration results to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/relo/internal/engine"
	"github.com/desertthunder/relo/internal/shared"
)

// ExportToCSV converts a migration result to CSV format with columns: Entity, From, To, Phase, Action, Confidence, Rule, Reason
func ExportToCSV(result *engine.Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Entity", "From", "To", "Phase", "Action", "Confidence", "Rule", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, outcome := range result.Outcomes {
		confidence, rule := "", ""
		if outcome.Match != nil {
			confidence = strconv.FormatFloat(outcome.Match.Confidence, 'f', 2, 64)
			rule = outcome.Match.Rule
		}
		record := []string{
			outcome.Entity,
			outcome.FromContainer,
			outcome.ToContainer,
			strconv.Itoa(outcome.Phase),
			string(outcome.Action),
			confidence,
			rule,
			outcome.Reason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a migration result to Markdown format
func ExportToMarkdown(result *engine.Result) ([]byte, error) {
	var buf bytes.Buffer

	mode := "apply"
	if result.DryRun {
		mode = "dry-run"
	}

	buf.WriteString(fmt.Sprintf("# Migration %s\n\n", result.SessionID))
	buf.WriteString(fmt.Sprintf("**Mode**: %s\n", mode))
	buf.WriteString(fmt.Sprintf("**Target**: %s\n", result.Target))
	if result.Plan != nil {
		buf.WriteString(fmt.Sprintf("**Entities**: %d\n", result.Plan.TotalEntities()))
		buf.WriteString(fmt.Sprintf("**Estimate**: %s (%s)\n", result.Plan.Estimate.Bucket, result.Plan.Estimate.Duration))
	}
	buf.WriteString("\n")

	if result.Plan != nil && len(result.Plan.Warnings) > 0 {
		buf.WriteString("## Warnings\n\n")
		for _, warning := range result.Plan.Warnings {
			buf.WriteString(fmt.Sprintf("- %s\n", warning))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Phases\n\n")
	buf.WriteString("| Phase | Copied | Reassigned | Skipped | Failed |\n")
	buf.WriteString("|-------|--------|------------|---------|--------|\n")
	for _, summary := range result.PerPhase {
		buf.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d |\n",
			summary.Phase, summary.Copied, summary.Reassigned, summary.Skipped, summary.Failed))
	}
	buf.WriteString("\n")

	buf.WriteString("## Outcomes\n\n")
	for i, outcome := range result.Outcomes {
		line := fmt.Sprintf("%d. %s: %s", i+1, outcome.Entity, outcome.Action)
		if outcome.ToContainer != "" && outcome.ToContainer != outcome.FromContainer {
			line += fmt.Sprintf(" (%s -> %s)", outcome.FromContainer, outcome.ToContainer)
		}
		if outcome.Reason != "" {
			line += fmt.Sprintf(" [%s]", outcome.Reason)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a migration result to plain text format
func ExportToText(result *engine.Result) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Session: %s\n", result.SessionID))
	buf.WriteString(fmt.Sprintf("Target: %s\n", result.Target))
	if result.DryRun {
		buf.WriteString("Mode: dry-run\n")
	}
	buf.WriteString(fmt.Sprintf("Copied: %d  Reassigned: %d  Skipped: %d  Failed: %d\n\n",
		result.Copied, result.Reassigned, result.Skipped, result.Failed))

	for i, outcome := range result.Outcomes {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, outcome.Entity, outcome.Action))
	}

	return buf.Bytes(), nil
}

// ToSummaryJSON generates a JSON representation of the result summary (without per-entity outcomes)
func ToSummaryJSON(result *engine.Result) ([]byte, error) {
	summary := struct {
		SessionID  string                `json:"session_id"`
		DryRun     bool                  `json:"dry_run"`
		Sources    []string              `json:"sources"`
		Target     string                `json:"target"`
		Copied     int                   `json:"copied"`
		Reassigned int                   `json:"reassigned"`
		Skipped    int                   `json:"skipped"`
		Failed     int                   `json:"failed"`
		PerPhase   []engine.PhaseSummary `json:"per_phase"`
	}{
		SessionID:  result.SessionID,
		DryRun:     result.DryRun,
		Sources:    result.Sources,
		Target:     result.Target,
		Copied:     result.Copied,
		Reassigned: result.Reassigned,
		Skipped:    result.Skipped,
		Failed:     result.Failed,
		PerPhase:   result.PerPhase,
	}
	return shared.MarshalJSON(summary, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	OutcomesFile string
	SummaryFile  string
}

// WriteCSVExport exports a migration result to CSV format with accompanying summary JSON file.
//
// Defaults to the session ID as the base filename & creates {base}_outcomes.csv and {base}_summary.json
func WriteCSVExport(result *engine.Result, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = result.SessionID
	}

	csvData, err := ExportToCSV(result)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	outcomesFile := baseFilepath + "_outcomes.csv"
	if err := os.WriteFile(outcomesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	summaryJSON, err := ToSummaryJSON(result)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary JSON: %w", err)
	}

	summaryFile := baseFilepath + "_summary.json"
	if err := os.WriteFile(summaryFile, summaryJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary file: %w", err)
	}

	return &CSVExportResult{
		OutcomesFile: outcomesFile,
		SummaryFile:  summaryFile,
	}, nil
}

// WriteMarkdownExport exports a migration result to Markdown format in a dedicated directory.
//
// Directory name defaults to the session ID. Creates {dir}/README.md
func WriteMarkdownExport(result *engine.Result, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = result.SessionID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(result)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a migration result to plain text format.
//
// Defaults to {session_id}_report.txt as the filename.
func WriteTextExport(result *engine.Result, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_report.txt", result.SessionID)
	}

	textData, err := ExportToText(result)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
