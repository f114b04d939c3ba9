package formatter

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/relo/internal/engine"
	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/planner"
	th "github.com/desertthunder/relo/internal/testing"
)

func fixtureResult() *engine.Result {
	return &engine.Result{
		SessionID: "sess123",
		DryRun:    true,
		Sources:   []string{"src"},
		Target:    "dst",
		Plan: &planner.Plan{
			Target: "dst",
			Phases: []planner.Phase{
				{Number: 1, Entities: []string{"Payment Entry", "Sales Invoice Ext"}},
				{Number: 3, Entities: []string{"Amb Record"}},
			},
			Warnings: []string{"dependency cycle detected: Amb Record"},
			Estimate: planner.Estimate{Bucket: "small", Duration: 15 * time.Minute},
		},
		Outcomes: []engine.Outcome{
			{
				Entity:        "Sales Invoice Ext",
				FromContainer: "Invoices",
				ToContainer:   "Invoices",
				Phase:         1,
				Action:        engine.ActionCopied,
			},
			{
				Entity:        "Amb Record",
				FromContainer: "amb_w_tds2",
				ToContainer:   "Amb W Tds2",
				Phase:         3,
				Action:        engine.ActionReassigned,
				Match:         &models.MatchResult{Entity: "Amb Record", Container: "Amb W Tds2", Confidence: 0.9, Rule: "normalized"},
			},
			{
				Entity:        "Core Patch",
				FromContainer: "core",
				Phase:         1,
				Action:        engine.ActionSkipped,
				Reason:        "reserved container: core",
			},
		},
		Copied:     1,
		Reassigned: 1,
		Skipped:    1,
		PerPhase: []engine.PhaseSummary{
			{Phase: 1, Copied: 1, Skipped: 1},
			{Phase: 3, Reassigned: 1},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(fixtureResult())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Entity,From,To,Phase,Action,Confidence,Rule,Reason") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "Sales Invoice Ext,Invoices,Invoices,1,copied,,,") {
			t.Errorf("CSV missing direct copy row, got: %s", output)
		}
		if !strings.Contains(output, "Amb Record,amb_w_tds2,Amb W Tds2,3,reassigned,0.90,normalized,") {
			t.Errorf("CSV missing reassignment row, got: %s", output)
		}
		if !strings.Contains(output, "reserved container: core") {
			t.Errorf("CSV missing skip reason")
		}

		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 4 {
			t.Errorf("Expected header plus 3 rows, got %d lines", len(lines))
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(fixtureResult())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "# Migration sess123") {
			t.Errorf("Markdown missing title")
		}
		if !strings.Contains(output, "**Mode**: dry-run") {
			t.Errorf("Markdown missing mode")
		}
		if !strings.Contains(output, "**Estimate**: small (15m0s)") {
			t.Errorf("Markdown missing estimate, got: %s", output)
		}
		if !strings.Contains(output, "## Warnings") || !strings.Contains(output, "- dependency cycle detected: Amb Record") {
			t.Errorf("Markdown missing warnings section")
		}
		if !strings.Contains(output, "| 3 | 0 | 1 | 0 | 0 |") {
			t.Errorf("Markdown missing phase table row, got: %s", output)
		}
		if !strings.Contains(output, "2. Amb Record: reassigned (amb_w_tds2 -> Amb W Tds2)") {
			t.Errorf("Markdown missing reassignment outcome, got: %s", output)
		}
		if !strings.Contains(output, "[reserved container: core]") {
			t.Errorf("Markdown missing skip reason")
		}
		if strings.Contains(output, "1. Sales Invoice Ext: copied (") {
			t.Errorf("Same-container copy should not show a container arrow")
		}
	})

	t.Run("ExportToMarkdown without plan", func(t *testing.T) {
		result := fixtureResult()
		result.Plan = nil

		data, err := ExportToMarkdown(result)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		if strings.Contains(string(data), "**Entities**") {
			t.Errorf("Planless markdown should omit entity count")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(fixtureResult())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Session: sess123") {
			t.Errorf("Text missing session line")
		}
		if !strings.Contains(output, "Mode: dry-run") {
			t.Errorf("Text missing mode line")
		}
		if !strings.Contains(output, "Copied: 1  Reassigned: 1  Skipped: 1  Failed: 0") {
			t.Errorf("Text missing counts, got: %s", output)
		}
		if !strings.Contains(output, "2. Amb Record - reassigned") {
			t.Errorf("Text missing outcome line")
		}
	})

	t.Run("ToSummaryJSON", func(t *testing.T) {
		data, err := ToSummaryJSON(fixtureResult())
		if err != nil {
			t.Fatalf("ToSummaryJSON failed: %v", err)
		}

		var summary map[string]any
		if err := json.Unmarshal(data, &summary); err != nil {
			t.Fatalf("Summary is not valid JSON: %v", err)
		}
		if summary["session_id"] != "sess123" {
			t.Errorf("Summary missing session id, got %v", summary["session_id"])
		}
		if _, ok := summary["outcomes"]; ok {
			t.Errorf("Summary should exclude per-entity outcomes")
		}
		if summary["copied"] != float64(1) {
			t.Errorf("Summary copied count wrong: %v", summary["copied"])
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		dir := t.TempDir()
		base := filepath.Join(dir, "run1")

		export, err := WriteCSVExport(fixtureResult(), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		if export.OutcomesFile != base+"_outcomes.csv" {
			t.Errorf("Unexpected outcomes path: %s", export.OutcomesFile)
		}
		th.AssertFileExists(t, export.OutcomesFile)
		th.AssertFileExists(t, export.SummaryFile)

		if !strings.Contains(th.MustReadFile(t, export.OutcomesFile), "Amb Record") {
			t.Errorf("Outcomes file missing rows")
		}
		if !strings.Contains(th.MustReadFile(t, export.SummaryFile), "sess123") {
			t.Errorf("Summary file missing session id")
		}
	})

	t.Run("WriteCSVExport defaults to session id", func(t *testing.T) {
		wd := th.MustGetwd(t)
		th.MustChdir(t, t.TempDir())
		defer th.MustChdir(t, wd)

		export, err := WriteCSVExport(fixtureResult(), "")
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if export.OutcomesFile != "sess123_outcomes.csv" {
			t.Errorf("Expected session id base, got %s", export.OutcomesFile)
		}
		th.AssertFileExists(t, export.OutcomesFile)
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "report")

		path, err := WriteMarkdownExport(fixtureResult(), dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		th.AssertDirExists(t, dir)
		if path != dir+"/README.md" {
			t.Errorf("Unexpected markdown path: %s", path)
		}
		if !strings.Contains(th.MustReadFile(t, path), "# Migration sess123") {
			t.Errorf("Markdown file missing title")
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")

		written, err := WriteTextExport(fixtureResult(), path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if written != path {
			t.Errorf("Unexpected path: %s", written)
		}
		if !strings.Contains(th.MustReadFile(t, path), "Session: sess123") {
			t.Errorf("Text file missing session line")
		}
	})
}
