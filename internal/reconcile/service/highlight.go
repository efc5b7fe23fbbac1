package service

import (
	"math"
	"strings"

	"cost-recon/internal/reconcile/model"
	"cost-recon/internal/utils"
)

// highlightColumns are the columns whose numeric cells take part in price ranking:
// quote price columns plus every column that is not an identifier or a derived
// volume/variance/delta/confidence value.
func (c *Classifier) highlightColumns(cols []string) []string {
	hk := c.kw.Highlight
	var out []string
	for _, h := range cols {
		name := strings.TrimSpace(h)
		lower := strings.ToLower(name)
		if containsAny(lower, hk.QuotePrice) {
			out = append(out, h)
			continue
		}
		if containsStr(hk.Skip, name) || containsAny(lower, hk.Exclude) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// RankHighlights ranks the non-zero numeric cells of every row against each other.
// Values are compared at 4 decimal places.
func (c *Classifier) RankHighlights(sh model.Sheet) []model.CellRank {
	cols := c.highlightColumns(sh.Columns)
	var out []model.CellRank
	type cell struct {
		col string
		val float64
	}
	for r, row := range sh.Rows {
		var vals []cell
		for _, col := range cols {
			f, ok := utils.ParseFloat(row[col])
			if !ok {
				continue
			}
			f = math.Round(f*1e4) / 1e4
			if f == 0 {
				continue
			}
			vals = append(vals, cell{col, f})
		}
		if len(vals) == 0 {
			continue
		}
		lo, hi := vals[0].val, vals[0].val
		count := make(map[float64]int, len(vals))
		for _, v := range vals {
			lo, hi = min(lo, v.val), max(hi, v.val)
			count[v.val]++
		}
		for _, v := range vals {
			rank := model.RankOther
			switch {
			case lo == hi:
			case v.val == lo:
				rank = model.RankLowest
			case v.val == hi:
				rank = model.RankHighest
			case count[v.val] > 1:
				rank = model.RankDuplicate
			}
			out = append(out, model.CellRank{Row: r, Column: v.col, Rank: rank})
		}
	}
	return out
}

// boldColumns are the output columns that came from the quote (case-insensitive).
func boldColumns(cols, original []string, extra ...string) []string {
	var out []string
	for _, c := range cols {
		for _, o := range original {
			if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(o)) {
				out = append(out, c)
				break
			}
		}
	}
	for _, x := range extra {
		if containsStr(cols, x) && !containsStr(out, x) {
			out = append(out, x)
		}
	}
	return out
}
