package service

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"cost-recon/internal/config"
	"cost-recon/internal/reconcile/model"
)

var reQtyHeader = regexp.MustCompile(`^\d+(\.\d+)?k$`)

// headerRule classifies a lowercased header. Rules are tried in slice order.
type headerRule struct {
	role     model.Role
	priority int // lower wins when several columns qualify for the same role
	match    func(lower string) bool
}

// Classifier assigns semantic roles to spreadsheet headers. It only looks at
// header text, never at cell contents.
type Classifier struct {
	kw           config.Keywords
	specPatterns []*regexp.Regexp
	rules        []headerRule
}

func NewClassifier(kw config.Keywords) *Classifier {
	c := &Classifier{kw: kw}
	for _, p := range kw.Spec.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		c.specPatterns = append(c.specPatterns, re)
	}
	c.rules = []headerRule{
		{role: model.RolePart, priority: 0, match: func(h string) bool { return equalsAny(h, kw.Part.Exact) }},
		{role: model.RolePart, priority: 1, match: func(h string) bool { return containsAny(h, kw.Part.Contains) }},
		{role: model.RolePrice, priority: 0, match: func(h string) bool { return containsAny(h, kw.Price.Ranked) }},
		{role: model.RoleVolume, priority: 0, match: func(h string) bool {
			return containsAny(h, kw.Quantity.MOQ) || reQtyHeader.MatchString(h)
		}},
		{role: model.RoleSpec, priority: 0, match: c.isSpecHeader},
		{role: model.RoleRemark, priority: 0, match: func(h string) bool { return containsAny(h, kw.Remark) }},
		{role: model.RolePart, priority: 2, match: func(h string) bool { return containsAny(h, kw.Part.Fallback) }},
	}
	return c
}

func (c *Classifier) Keywords() config.Keywords { return c.kw }

// Classify assigns every header its first matching role. Headers with no role but a
// parseable month are date-bearing.
func (c *Classifier) Classify(cols []string) []model.Column {
	out := make([]model.Column, 0, len(cols))
	for _, name := range cols {
		col := model.Column{Name: name}
		lower := strings.ToLower(strings.TrimSpace(name))
		for _, r := range c.rules {
			if r.match(lower) {
				col.Role = r.role
				break
			}
		}
		if ym, ok := HeaderDate(name); ok {
			col.Date = ym
			if col.Role == model.RoleUnclassified {
				col.Role = model.RoleDate
			}
		}
		out = append(out, col)
	}
	return out
}

// PartColumn picks the identifier column: the first header matching a precise part
// pattern wins; a generic "item" header is only a fallback.
func (c *Classifier) PartColumn(cols []string) (string, bool) {
	best, bestPrio := "", -1
	for _, name := range cols {
		lower := strings.ToLower(strings.TrimSpace(name))
		for _, r := range c.rules {
			if r.role != model.RolePart || !r.match(lower) {
				continue
			}
			if r.priority < 2 {
				return name, true
			}
			if bestPrio < 0 {
				best, bestPrio = name, r.priority
			}
		}
	}
	return best, bestPrio >= 0
}

// CatalogPartColumn is the part number column of a spec catalog sheet.
func (c *Classifier) CatalogPartColumn(cols []string) (string, bool) {
	for _, name := range cols {
		if containsAny(strings.ToLower(strings.TrimSpace(name)), c.kw.Part.Catalog) {
			return name, true
		}
	}
	return "", false
}

type rankedColumn struct {
	name  string
	date  model.YearMonth
	score int
}

// priceScore: +1 for a price keyword, +1 if the target month is named, +10 for orderable.
func (c *Classifier) priceScore(lower string, month time.Month) int {
	if !containsAny(lower, c.kw.Price.Ranked) {
		return 0
	}
	score := 1
	if month != 0 {
		full := strings.ToLower(month.String())
		if strings.Contains(lower, full) || strings.Contains(lower, full[:3]) {
			score++
		}
	}
	if containsAny(lower, c.kw.Price.Orderable) {
		score += 10
	}
	return score
}

// RankedPriceColumns orders the price candidates for the price policy: headers with a
// parseable month first (newest month, then score), then undated headers by score.
// Pass month 0 when no target month is known.
func (c *Classifier) RankedPriceColumns(cols []string, month time.Month) []string {
	var dated, undated []rankedColumn
	for _, name := range cols {
		lower := strings.ToLower(name)
		if !containsAny(lower, c.kw.Price.Ranked) {
			continue
		}
		rc := rankedColumn{name: name, score: c.priceScore(lower, month)}
		if ym, ok := HeaderDate(name); ok {
			rc.date = ym
			dated = append(dated, rc)
		} else {
			undated = append(undated, rc)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		if dated[i].date != dated[j].date {
			return dated[j].date.Before(dated[i].date)
		}
		return dated[i].score > dated[j].score
	})
	sort.SliceStable(undated, func(i, j int) bool { return undated[i].score > undated[j].score })

	out := make([]string, 0, len(dated)+len(undated))
	for _, rc := range dated {
		out = append(out, rc.name)
	}
	for _, rc := range undated {
		out = append(out, rc.name)
	}
	return out
}

func (c *Classifier) isSpecHeader(lower string) bool {
	if containsAny(lower, c.kw.Spec.Exclude) {
		return false
	}
	for _, re := range c.specPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// SpecColumn finds the spec text column. Patterns are tried in priority order, columns
// in sheet order; identifier-like headers ("Spec Item", "Spec ID") are never chosen.
func (c *Classifier) SpecColumn(cols []string) (string, bool) {
	for _, re := range c.specPatterns {
		for _, name := range cols {
			lower := strings.ToLower(strings.TrimSpace(name))
			if containsAny(lower, c.kw.Spec.Exclude) {
				continue
			}
			if re.MatchString(lower) {
				return name, true
			}
		}
	}
	return "", false
}

// QuoteSpecColumns are the quote columns searched for the query spec.
func (c *Classifier) QuoteSpecColumns(cols []string) []string {
	var out []string
	for _, name := range cols {
		if containsAny(strings.ToLower(strings.TrimSpace(name)), c.kw.Spec.Quote) {
			out = append(out, name)
		}
	}
	return out
}

// SpecPriceColumns lists catalog price columns in sheet order.
func (c *Classifier) SpecPriceColumns(cols []string) []string {
	return filterCols(cols, c.kw.Price.Catalog)
}

// OrderableColumns are orderable price columns ("Orderable Price", "orderable cost").
func (c *Classifier) OrderableColumns(cols []string) []string {
	var out []string
	for _, name := range cols {
		lower := strings.ToLower(name)
		if containsAny(lower, c.kw.Price.Orderable) && containsAny(lower, c.kw.Price.Quote) {
			out = append(out, name)
		}
	}
	return out
}

func (c *Classifier) VolumeColumns(cols []string) []string {
	return filterCols(cols, c.kw.Quantity.Volume)
}

func (c *Classifier) MOQColumns(cols []string) []string {
	return filterCols(cols, c.kw.Quantity.MOQ)
}

// QuantityColumns are quantity-coded headers such as "1K" or "2.5k".
func QuantityColumns(cols []string) []string {
	var out []string
	for _, name := range cols {
		if reQtyHeader.MatchString(strings.ToLower(strings.TrimSpace(name))) {
			out = append(out, name)
		}
	}
	return out
}

// IsVolumeTiered reports a sheet whose price depends on order quantity.
func (c *Classifier) IsVolumeTiered(cols []string) bool {
	return len(c.VolumeColumns(cols)) > 0 || len(QuantityColumns(cols)) > 0
}

// QuotePriceColumn picks the quote's reference price column: the most recent dated
// price header, else the first price header.
func (c *Classifier) QuotePriceColumn(cols []string) (string, bool) {
	var (
		candidates []string
		best       string
		bestDate   model.YearMonth
	)
	for _, name := range cols {
		if containsAny(foldHeader(name), c.kw.Price.Quote) {
			candidates = append(candidates, name)
		}
	}
	for _, name := range candidates {
		ym, ok := ColumnDate(name)
		if !ok {
			continue
		}
		if best == "" || bestDate.Before(ym) {
			best, bestDate = name, ym
		}
	}
	if best != "" {
		return best, true
	}
	if len(candidates) > 0 {
		return candidates[0], true
	}
	return "", false
}

// FindColumn returns the first header containing any keyword.
func FindColumn(cols []string, keywords []string) (string, bool) {
	for _, name := range cols {
		if containsAny(strings.ToLower(name), keywords) {
			return name, true
		}
	}
	return "", false
}

// ResolveColumn finds the header meant by want: exact, then case/space-insensitive,
// then within one typo.
func ResolveColumn(cols []string, want string) (string, bool) {
	for _, name := range cols {
		if name == want {
			return name, true
		}
	}
	nw := normHeaderKey(want)
	for _, name := range cols {
		if normHeaderKey(name) == nw {
			return name, true
		}
	}
	if len([]rune(nw)) < 5 {
		return "", false
	}
	for _, name := range cols {
		if withinEdits(normHeaderKey(name), nw, 1) {
			return name, true
		}
	}
	return "", false
}

// normHeaderKey: lowercase, no whitespace at all.
func normHeaderKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

func filterCols(cols []string, keywords []string) []string {
	var out []string
	for _, name := range cols {
		if containsAny(strings.ToLower(name), keywords) {
			out = append(out, name)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func equalsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if s == strings.ToLower(k) {
			return true
		}
	}
	return false
}
