// Package builtin holds the fingerprint definitions compiled into the
// binary. These are illustrative reference templates, not an exhaustive
// catalog — real deployments add definitions through the native add-on
// convention (internal/registry/native) or, for the DSL path, a separate
// compile step that is out of this pipeline's scope.
package builtin

import (
	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/registry"
)

// Source returns the built-in registry.Source. Built-ins are always trusted.
func Source() registry.Source {
	return registry.Source{
		Name:    "builtin",
		Trusted: true,
		Load: func() ([]domain.Definition, error) {
			return Definitions(), nil
		},
	}
}

// Definitions returns every compiled-in fingerprint definition.
func Definitions() []domain.Definition {
	return []domain.Definition{
		cbreAppraisal(),
		cbreRentRoll(),
		csvLedger(),
		plainTextMemo(),
		pdfLeaseAbstract(),
	}
}

func cbreAppraisal() domain.Definition {
	return domain.Definition{
		ID:        "cbre-appraisal.v1",
		Format:    domain.FormatXLSX,
		CrateName: "fingerprint-builtin",
		Semver:    "1.0.0",
		Source:    domain.SourceRust,
		Assertions: []domain.Assertion{
			{Name: "has_assumptions_sheet", Kind: "sheet_exists", Args: map[string]any{"sheet": "Assumptions"}},
			{Name: "title_cell", Kind: "cell_eq", Args: map[string]any{"sheet": "Assumptions", "cell": "A3", "value": "Market Leasing Assumptions"}},
			{Name: "assumptions_populated", Kind: "range_non_null", Args: map[string]any{"sheet": "Assumptions", "range": "A3:D10"}},
		},
		Extracts: []domain.ExtractRule{
			{Name: "market_leasing_assumptions", Kind: "range", Args: map[string]any{"sheet": "Assumptions", "range": "A3:D10"}},
		},
		ContentHash: &domain.ContentHashSpec{Over: []string{"market_leasing_assumptions"}},
	}
}

func cbreRentRoll() domain.Definition {
	return domain.Definition{
		ID:        "cbre-appraisal.v1/rent-roll.v1",
		Format:    domain.FormatMarkdown,
		Parent:    "cbre-appraisal.v1",
		CrateName: "fingerprint-builtin",
		Semver:    "1.0.0",
		Source:    domain.SourceRust,
		Assertions: []domain.Assertion{
			{Name: "rent_roll_heading", Kind: "heading_regex", Args: map[string]any{"pattern": `(?i)rent\s+roll`}},
			{Name: "rent_roll_table", Kind: "table_exists", Args: map[string]any{"heading": `(?i)rent\s+roll`}},
			{Name: "rent_roll_columns", Kind: "table_columns", Args: map[string]any{
				"heading": `(?i)rent\s+roll`,
				"columns": []string{`(?i)suite`, `(?i)tenant`, `(?i)rent`},
			}},
		},
		Extracts: []domain.ExtractRule{
			{Name: "rent_roll_table", Kind: "table", Args: map[string]any{"heading": `(?i)rent\s+roll`, "index": 0}},
		},
		ContentHash: &domain.ContentHashSpec{Over: []string{"rent_roll_table"}},
	}
}

func csvLedger() domain.Definition {
	return domain.Definition{
		ID:        "csv.v0",
		Format:    domain.FormatCSV,
		CrateName: "fingerprint-builtin",
		Semver:    "0.1.0",
		Source:    domain.SourceRust,
		Assertions: []domain.Assertion{
			{Name: "has_ledger_sheet", Kind: "sheet_exists", Args: map[string]any{"sheet": "Sheet1"}},
			{Name: "header_row", Kind: "header_row_match", Args: map[string]any{
				"sheet": "Sheet1", "row_range": "A1:Z1",
				"columns":     []string{`(?i)date`, `(?i)amount`, `(?i)description`},
				"min_matches": 2,
			}},
		},
	}
}

func plainTextMemo() domain.Definition {
	return domain.Definition{
		ID:        "plain-memo.v1",
		Format:    domain.FormatText,
		CrateName: "fingerprint-builtin",
		Semver:    "1.0.0",
		Source:    domain.SourceRust,
		Assertions: []domain.Assertion{
			{Name: "mentions_memo", Kind: "text_regex", Args: map[string]any{"pattern": `(?i)^memorandum`}},
		},
	}
}

func pdfLeaseAbstract() domain.Definition {
	return domain.Definition{
		ID:        "pdf-lease-abstract.v1",
		Format:    domain.FormatPDF,
		CrateName: "fingerprint-builtin",
		Semver:    "1.0.0",
		Source:    domain.SourceRust,
		Assertions: []domain.Assertion{
			{Name: "page_count", Kind: "page_count", Args: map[string]any{"min": 1, "max": 50}},
			{Name: "heading_lease_summary", Kind: "heading_regex", Args: map[string]any{"pattern": `(?i)lease\s+summary`}},
		},
		Extracts: []domain.ExtractRule{
			{Name: "lease_summary", Kind: "section", Args: map[string]any{"heading": `(?i)lease\s+summary`}},
		},
		ContentHash: &domain.ContentHashSpec{Over: []string{"lease_summary"}},
	}
}
