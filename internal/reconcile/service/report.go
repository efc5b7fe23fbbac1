package service

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"cost-recon/internal/reconcile/model"
)

// Columns added to the unmatched partition.
const (
	ColClosestPart     = "Closest Part Number"
	ColClosestSpec     = "Closest Spec"
	ColConfidence      = "Confidence Score (%)"
	ColClosestMOQ      = "Closest Spec MOQ/Volume"
	ColExistingPrice   = "Existing Price"
	ColCostDelta       = "Cost Delta"
	ColClosestVolume   = "Closest Volume"
	ColSourceFile      = "Spec Source File"
	ColSourceSheet     = "Spec Source Sheet"
	ColDiffOriginal    = "Spec Difference (Original Spec)"
	ColDiffClosest     = "Spec Difference (Closest Spec)"
	ColCharDiffOrig    = "Spec Character Difference (Original Spec)"
	ColCharDiffClosest = "Spec Character Difference (Closest Spec)"
)

// Output sheet names of a comparison workbook.
const (
	SheetMatched   = "Matched Parts"
	SheetUnmatched = "Unmatched Parts"
)

// ComparisonReport is the quote split into rows the catalog priced and rows it did
// not, the latter annotated with the closest catalog spec.
type ComparisonReport struct {
	Matched   model.ReportSheet
	Unmatched model.ReportSheet
	Skipped   model.SkipLog
}

// Compare prices a quote sheet against the spec catalog in specsDir.
func (e *Engine) Compare(quote model.Sheet, specsDir string) (ComparisonReport, error) {
	var rep ComparisonReport
	cat, skips, err := e.LoadCatalog(specsDir)
	if err != nil {
		return rep, err
	}
	rep.Skipped = skips

	specCol, ok := e.cls.SpecColumn(quote.Columns)
	if !ok {
		return rep, eris.Wrap(ErrNoSpecColumn, "compare")
	}
	app, err := e.AppendPrices(quote, cat)
	if err != nil {
		return rep, err
	}

	matched := model.Sheet{Name: SheetMatched, Columns: app.Sheet.Columns}
	unmatched := model.Sheet{Name: SheetUnmatched}
	for _, c := range app.Sheet.Columns {
		if !containsStr(app.Added, c) {
			unmatched.Columns = append(unmatched.Columns, c)
		}
	}
	for _, row := range app.Sheet.Rows {
		if anyFilled(row, app.PriceColumns) {
			matched.Rows = append(matched.Rows, row)
			continue
		}
		u := make(model.Record, len(unmatched.Columns))
		for _, c := range unmatched.Columns {
			u[c] = row[c]
		}
		unmatched.Rows = append(unmatched.Rows, u)
	}
	e.log.Info().Int("rows", len(quote.Rows)).Int("matched", len(matched.Rows)).
		Int("unmatched", len(unmatched.Rows)).Int("price_columns", len(app.PriceColumns)).Msg("append pass done")

	e.annotateUnmatched(&unmatched, quote.Columns, specCol, cat)

	rep.Matched = model.ReportSheet{Sheet: matched, Bold: boldColumns(matched.Columns, quote.Columns)}
	rep.Matched.Ranks = e.cls.RankHighlights(matched)
	rep.Unmatched = model.ReportSheet{Sheet: unmatched, Bold: boldColumns(unmatched.Columns, quote.Columns, ColDiffOriginal)}
	rep.Unmatched.Ranks = e.cls.RankHighlights(unmatched)
	e.Progress.Report(100, "comparison done")
	return rep, nil
}

func (e *Engine) annotateUnmatched(sh *model.Sheet, quoteCols []string, specCol string, cat *Catalog) {
	n := len(sh.Rows)
	var (
		part, spec, conf, moq, price, delta = make([]string, n), make([]string, n), make([]string, n), make([]string, n), make([]string, n), make([]string, n)
		volume, file, sheet                 = make([]string, n), make([]string, n), make([]string, n)
		anyVolume                           bool
	)
	quotePriceCol, hasQuotePrice := e.cls.QuotePriceColumn(quoteCols)

	for i, row := range sh.Rows {
		e.Progress.Report(i*100/max(n, 1), "closest spec")
		query := row[specCol]
		conf[i] = "0.0%"
		if strings.TrimSpace(query) == "" {
			continue
		}
		cand := e.ClosestSpec(query, cat)
		if !cand.Found {
			continue
		}
		part[i], spec[i], file[i], sheet[i] = cand.PartNumber, cand.Spec, cand.File, cand.Sheet
		conf[i] = fmt.Sprintf("%.1f%%", cand.Confidence*100)

		vol, hasVol := e.quoteVolume(quoteCols, row)
		sp, ok := e.ClosestPriceForSpec(cand.Spec, vol, hasVol, cat)
		if ok {
			price[i] = FormatPrice(sp.Price)
			lower := strings.ToLower(sp.Column)
			if !strings.Contains(lower, "price") && !strings.Contains(lower, "cost") {
				volume[i] = sp.Column
				anyVolume = true
			}
		}
		moq[i] = e.ClosestMOQ(cand, volume[i], cat)
		if hasQuotePrice {
			delta[i] = CostDelta(row[quotePriceCol], price[i])
		}
	}

	setColumn(sh, ColClosestPart, part)
	setColumn(sh, ColClosestSpec, spec)
	setColumn(sh, ColConfidence, conf)
	if !anyVolume {
		setColumn(sh, ColClosestMOQ, moq)
	}
	setColumn(sh, ColExistingPrice, price)
	setColumn(sh, ColCostDelta, delta)
	if anyVolume {
		setColumn(sh, ColClosestVolume, volume)
	}
	setColumn(sh, ColSourceFile, file)
	setColumn(sh, ColSourceSheet, sheet)

	wordOrig, wordClosest := make([]string, n), make([]string, n)
	charOrig, charClosest := make([]string, n), make([]string, n)
	for i, row := range sh.Rows {
		if spec[i] == "" || strings.TrimSpace(row[specCol]) == "" {
			continue
		}
		wordClosest[i], wordOrig[i] = DiffWords(row[specCol], spec[i])
		charClosest[i], charOrig[i] = DiffChars(row[specCol], spec[i])
	}
	setColumn(sh, ColDiffOriginal, wordOrig)
	setColumn(sh, ColDiffClosest, wordClosest)
	setColumn(sh, ColCharDiffOrig, charOrig)
	setColumn(sh, ColCharDiffClosest, charClosest)
}

// setColumn writes values into name, appending the column when it is new.
func setColumn(sh *model.Sheet, name string, values []string) {
	if !sh.HasColumn(name) {
		sh.Columns = append(sh.Columns, name)
	}
	for i, row := range sh.Rows {
		row[name] = values[i]
	}
}

func anyFilled(row model.Record, cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(row[c]) != "" {
			return true
		}
	}
	return false
}
