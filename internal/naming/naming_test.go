package naming

import (
	"testing"
)

func TestClassify(t *testing.T) {
	t.Run("detects patterns", func(t *testing.T) {
		cases := []struct {
			name    string
			pattern Pattern
		}{
			{"SALES INVOICE", PatternUpper},
			{"sales_invoice", PatternSnake},
			{"Sales Invoice Item", PatternTitle},
			{"salesInvoice", PatternCamel},
			{"sales Invoice", PatternMixed},
			{"", PatternUnknown},
			{"1234", PatternUnknown},
		}

		for _, tc := range cases {
			got := Classify(tc.name)
			if got.Pattern != tc.pattern {
				t.Errorf("Classify(%q).Pattern = %s, want %s", tc.name, got.Pattern, tc.pattern)
			}
		}
	})

	t.Run("suggests alternate renderings", func(t *testing.T) {
		a := Classify("Sales Invoice")

		if got := a.Suggestions[PatternSnake]; got != "sales_invoice" {
			t.Errorf("snake suggestion = %q, want sales_invoice", got)
		}
		if got := a.Suggestions[PatternUpper]; got != "SALES INVOICE" {
			t.Errorf("upper suggestion = %q, want SALES INVOICE", got)
		}
		if got := a.Suggestions[PatternCamel]; got != "salesInvoice" {
			t.Errorf("camel suggestion = %q, want salesInvoice", got)
		}
		if _, ok := a.Suggestions[PatternTitle]; ok {
			t.Error("detected pattern should not appear among suggestions")
		}
	})

	t.Run("splits camel case words", func(t *testing.T) {
		a := Classify("salesInvoiceItem")
		if got := a.Suggestions[PatternSnake]; got != "sales_invoice_item" {
			t.Errorf("snake suggestion = %q, want sales_invoice_item", got)
		}
		if got := a.Suggestions[PatternTitle]; got != "Sales Invoice Item" {
			t.Errorf("title suggestion = %q, want Sales Invoice Item", got)
		}
	})

	t.Run("flags double spaces", func(t *testing.T) {
		a := Classify("Sales  Invoice")
		if len(a.Issues) != 1 || a.Issues[0] != "double spaces" {
			t.Errorf("expected double spaces issue, got %v", a.Issues)
		}
	})

	t.Run("flags special characters", func(t *testing.T) {
		a := Classify("Sales-Invoice!")
		found := false
		for _, issue := range a.Issues {
			if issue == "special characters" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected special characters issue, got %v", a.Issues)
		}
	})

	t.Run("clean name has no issues", func(t *testing.T) {
		a := Classify("Sales Invoice")
		if len(a.Issues) != 0 {
			t.Errorf("expected no issues, got %v", a.Issues)
		}
	})
}

func TestSimilarity(t *testing.T) {
	t.Run("scoring table", func(t *testing.T) {
		cases := []struct {
			a, b  string
			score float64
			rule  Rule
		}{
			{"Invoices", "Invoices", ScoreExact, RuleExact},
			{"Invoices", "INVOICES", ScoreExact, RuleExact},
			{"Sales Invoice", "sales_invoice", ScoreNormalized, RuleNormalized},
			{"amb_w_tds2", "Amb W Tds2", ScoreNormalized, RuleNormalized},
			{"Invoice", "Sales Invoice", ScoreContainment, RuleContainment},
			{"Sales Invoice", "Invoice", ScoreContainment, RuleContainment},
			{"Invoices", "Payments", 0, RuleNone},
			{"", "Invoices", 0, RuleNone},
			{"Invoices", "", 0, RuleNone},
		}

		for _, tc := range cases {
			score, rule := Similarity(tc.a, tc.b)
			if score != tc.score || rule != tc.rule {
				t.Errorf("Similarity(%q, %q) = (%v, %s), want (%v, %s)",
					tc.a, tc.b, score, rule, tc.score, tc.rule)
			}
		}
	})

	t.Run("is symmetric", func(t *testing.T) {
		pairs := [][2]string{
			{"Sales Invoice", "sales_invoice"},
			{"Invoice", "Sales Invoice"},
			{"Invoices", "Payments"},
			{"A", "a"},
		}
		for _, p := range pairs {
			fwd, _ := Similarity(p[0], p[1])
			rev, _ := Similarity(p[1], p[0])
			if fwd != rev {
				t.Errorf("Similarity(%q, %q)=%v but reversed=%v", p[0], p[1], fwd, rev)
			}
		}
	})
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Sales Invoice", "salesinvoice"},
		{"sales_invoice", "salesinvoice"},
		{"SALES\tINVOICE", "salesinvoice"},
		{"amb_w_tds2", "ambwtds2"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
