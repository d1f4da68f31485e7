// Package cli provides input and output helpers for the mindcast command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/mindcast/internal/classifier"
	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/taxonomy"
	"github.com/hyperjump/mindcast/pkg/utils"
	"github.com/xuri/excelize/v2"
)

// OutputFormat is the format for classification output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputXLSX is a spreadsheet with one row per title.
	OutputXLSX OutputFormat = "xlsx"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON, OutputXLSX:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or xlsx)", s)
	}
}

// WriteResults writes a classification response to w in the given format.
// tax supplies the column order for text and xlsx output.
func WriteResults(w io.Writer, resp *models.ClassifyResponse, tax *taxonomy.Taxonomy, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, resp)
	case OutputXLSX:
		return writeResultsXLSX(w, resp, tax)
	default:
		writeResultsText(w, resp, tax)
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResultsText(w io.Writer, resp *models.ClassifyResponse, tax *taxonomy.Taxonomy) {
	fmt.Fprintf(w, "\nClassified %d titles against %s in %dms (%d related)\n",
		resp.Total, resp.Version, resp.QueryTime, resp.TotalRelated)
	if resp.StaleIndex {
		fmt.Fprintln(w, "warning: encoder unavailable, scored with a stale index")
	}
	if resp.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", resp.RunID)
	}
	fmt.Fprintln(w)
	order := subtagOrder(tax)
	for i := range resp.Results {
		r := &resp.Results[i]
		mark := " "
		if r.SuicideRelated {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s\n", mark, utils.Truncate(r.Title, 80))
		if r.WinnerKeyword != "" {
			fmt.Fprintf(w, "    %s: %s\n", r.WinnerKeyword, strings.Join(r.ActiveSubtags(order), ", "))
		}
	}
}

func writeResultsXLSX(w io.Writer, resp *models.ClassifyResponse, tax *taxonomy.Taxonomy) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	keywords := keywordOrder(tax)
	order := subtagOrder(tax)
	header := []interface{}{"title", "related", "winner_keyword"}
	for _, kw := range keywords {
		header = append(header, kw)
	}
	header = append(header, "subtags")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range resp.Results {
		r := &resp.Results[i]
		row := []interface{}{r.Title, r.SuicideRelated, r.WinnerKeyword}
		for _, kw := range keywords {
			row = append(row, r.KeywordMask[kw])
		}
		row = append(row, strings.Join(r.ActiveSubtags(order), ", "))
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// WriteExplanation writes a single-title breakdown. xlsx is not supported here.
func WriteExplanation(w io.Writer, exp *classifier.Explanation, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, exp)
	case OutputXLSX:
		return fmt.Errorf("explain does not support %s output", format)
	}

	fmt.Fprintf(w, "\nTitle:   %s\nVersion: %s\n", exp.Result.Title, exp.Version)
	if exp.StaleIndex {
		fmt.Fprintln(w, "warning: encoder unavailable, scored with a stale index")
	}
	fmt.Fprintln(w, "\nKeyword averages:")
	for _, ks := range exp.Trace.Averages {
		fmt.Fprintf(w, "  %-16s %.4f\n", ks.Keyword, ks.Average)
	}
	fmt.Fprintf(w, "Relevant: %t  Shortlist: %s  Selected: %s\n",
		exp.Trace.Relevant, strings.Join(exp.Trace.Shortlist, ", "), exp.Trace.Selected)

	fmt.Fprintln(w, "\nSub-tag scores:")
	fmt.Fprintf(w, "  %-12s %-16s %8s %8s %8s %8s %8s %6s\n",
		"keyword", "subtag", "tok_sub", "sent_sub", "tok_cen", "sent_cen", "fused", "thr")
	for _, st := range exp.Subtags {
		mark := ""
		if st.Active {
			mark = " *"
		}
		fmt.Fprintf(w, "  %-12s %-16s %8.4f %8.4f %8.4f %8.4f %8.4f %6.2f%s\n",
			st.Keyword, utils.Truncate(st.Subtag, 16), st.Scores.TokenSubtag, st.Scores.SentSubtag,
			st.Scores.TokenCentroid, st.Scores.SentCentroid, st.Scores.Fused, st.Threshold, mark)
	}
	fmt.Fprintf(w, "\nRelated: %t\n", exp.Result.SuicideRelated)
	return nil
}

func keywordOrder(tax *taxonomy.Taxonomy) []string {
	if tax == nil {
		return nil
	}
	return tax.KeywordNames()
}

func subtagOrder(tax *taxonomy.Taxonomy) []string {
	if tax == nil {
		return nil
	}
	return tax.SubtagNames()
}
