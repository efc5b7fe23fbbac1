package service

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cost-recon/internal/reconcile/model"
	"cost-recon/internal/utils"
)

// CatalogSheet is one sheet of the spec catalog that carries a spec column.
type CatalogSheet struct {
	File       string // base file name
	Path       string
	Sheet      model.Sheet
	SpecColumn string
	PartColumn string
	HasPart    bool

	norm []string            // NormalizeSpec of every row's spec cell
	kv   []map[string]string // ExtractKV of norm, filled on first use
}

// Catalog is every usable sheet of a spec folder, in file then sheet order.
type Catalog struct {
	Dir    string
	Sheets []*CatalogSheet
}

// LoadCatalog reads all workbooks directly inside dir. Files and sheets that fail
// to parse are recorded in the returned skip log; only a missing folder is an error.
func (e *Engine) LoadCatalog(dir string) (*Catalog, model.SkipLog, error) {
	var skips model.SkipLog
	files, err := e.corpus.ListWorkbooks(dir)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load spec catalog")
	}
	cat := &Catalog{Dir: dir}
	for i, path := range files {
		e.Progress.Report(i*100/max(len(files), 1), "reading "+filepath.Base(path))
		wb, err := e.corpus.Open(path)
		skips = append(skips, wb.Skipped...)
		if err != nil {
			e.skip(&skips, path, "", err)
			continue
		}
		for _, sh := range wb.Sheets {
			specCol, ok := e.cls.SpecColumn(sh.Columns)
			if !ok {
				continue
			}
			cs := &CatalogSheet{
				File:       filepath.Base(path),
				Path:       path,
				Sheet:      sh,
				SpecColumn: specCol,
				norm:       make([]string, len(sh.Rows)),
			}
			cs.PartColumn, cs.HasPart = e.cls.CatalogPartColumn(sh.Columns)
			for r, row := range sh.Rows {
				cs.norm[r] = NormalizeSpec(row[specCol])
			}
			cat.Sheets = append(cat.Sheets, cs)
		}
	}
	e.log.Debug().Str("dir", dir).Int("files", len(files)).Int("sheets", len(cat.Sheets)).
		Int("skipped", len(skips)).Msg("spec catalog loaded")
	return cat, skips, nil
}

func (cs *CatalogSheet) kvAt(i int) map[string]string {
	if cs.kv == nil {
		cs.kv = make([]map[string]string, len(cs.norm))
	}
	if cs.kv[i] == nil {
		cs.kv[i] = ExtractKV(cs.norm[i])
	}
	return cs.kv[i]
}

// firstExact returns the first row whose normalized spec equals norm.
func (cs *CatalogSheet) firstExact(norm string) (model.Record, bool) {
	for i, n := range cs.norm {
		if n == norm {
			return cs.Sheet.Rows[i], true
		}
	}
	return nil, false
}

// AppendResult is the quote sheet with per catalog sheet price columns appended.
type AppendResult struct {
	Sheet        model.Sheet
	Added        []string // every engine-added column
	PriceColumns []string // the "Matched Price" subset of Added
	SpecColumns  []string // quote columns the query specs came from
}

type sheetHit struct {
	price, volume string
}

// AppendPrices looks every quote row up in every catalog sheet. Volume-tiered sheets
// need an exact spec and an agreeing volume; other sheets take the most similar spec
// when its similarity is above the engine threshold. A sheet that priced at least one
// row contributes "<file> - <sheet> Matched Price", "Volume" and "Cost Delta" columns.
func (e *Engine) AppendPrices(quote model.Sheet, cat *Catalog) (AppendResult, error) {
	specCols := e.cls.QuoteSpecColumns(quote.Columns)
	if len(specCols) == 0 {
		return AppendResult{}, eris.Wrap(ErrNoSpecColumn, "quote needs a column containing 'spec'")
	}
	out := quote.Clone()
	res := AppendResult{SpecColumns: specCols}

	// per row query keys and volumes do not depend on the catalog sheet
	queries := make([][]string, len(quote.Rows))
	volumes := make([]int, len(quote.Rows))
	hasVol := make([]bool, len(quote.Rows))
	for i, row := range quote.Rows {
		for _, c := range specCols {
			queries[i] = append(queries[i], NormalizeSpec(row[c]))
		}
		volumes[i], hasVol[i] = e.quoteVolume(quote.Columns, row)
	}
	quotePriceCol, hasQuotePrice := e.cls.QuotePriceColumn(quote.Columns)

	for si, cs := range cat.Sheets {
		e.Progress.Report(si*100/max(len(cat.Sheets), 1), "matching "+cs.File+" / "+cs.Sheet.Name)
		tiered := e.cls.IsVolumeTiered(cs.Sheet.Columns)
		hits := make([]sheetHit, len(quote.Rows))
		priced := false
		for i := range quote.Rows {
			var (
				h  sheetHit
				ok bool
			)
			if tiered {
				h, ok = e.matchVolumeTier(cs, queries[i], volumes[i], hasVol[i])
			} else {
				h, ok = e.matchFuzzy(cs, queries[i])
			}
			if ok {
				hits[i] = h
				if strings.TrimSpace(h.price) != "" {
					priced = true
				}
			}
		}
		if !priced {
			continue
		}
		base := strings.TrimSuffix(cs.File, filepath.Ext(cs.File))
		priceCol := base + " - " + cs.Sheet.Name + " Matched Price"
		volCol := base + " - " + cs.Sheet.Name + " Volume"
		deltaCol := base + " - " + cs.Sheet.Name + " Cost Delta"
		out.Columns = append(out.Columns, priceCol, volCol, deltaCol)
		for i, row := range out.Rows {
			row[priceCol] = hits[i].price
			row[volCol] = hits[i].volume
			row[deltaCol] = ""
			if hasQuotePrice {
				row[deltaCol] = CostDelta(quote.Rows[i][quotePriceCol], hits[i].price)
			}
		}
		res.Added = append(res.Added, priceCol, volCol, deltaCol)
		res.PriceColumns = append(res.PriceColumns, priceCol)
	}

	for _, c := range append([]string{"Remark"}, specCols...) {
		out.Columns = moveLast(out.Columns, c)
	}
	res.Sheet = out
	return res, nil
}

// quoteVolume is the first volume cell of the row that reads as a quantity.
func (e *Engine) quoteVolume(cols []string, row model.Record) (int, bool) {
	for _, c := range e.cls.VolumeColumns(cols) {
		if strings.TrimSpace(row[c]) == "" {
			continue
		}
		if q, ok := utils.ParseQuantity(row[c]); ok {
			return q, true
		}
	}
	return 0, false
}

func (e *Engine) matchVolumeTier(cs *CatalogSheet, queries []string, volume int, hasVolume bool) (sheetHit, bool) {
	if !hasVolume {
		return sheetHit{}, false
	}
	cols := cs.Sheet.Columns
	volCols := e.cls.VolumeColumns(cols)
	qtyCols := QuantityColumns(cols)
	for _, q := range queries {
		if q == "" {
			continue
		}
		var matches []model.Record
		for i, n := range cs.norm {
			if n == q {
				matches = append(matches, cs.Sheet.Rows[i])
			}
		}
		if len(matches) == 0 {
			continue
		}
		if len(volCols) > 0 {
			for _, vc := range volCols {
				row, ok := firstWithVolume(matches, vc, volume)
				if !ok {
					continue
				}
				pricing := strings.NewReplacer("Volume", "pricing", "volume", "pricing").Replace(vc)
				if cs.Sheet.HasColumn(pricing) {
					return sheetHit{price: row[pricing], volume: row[vc]}, true
				}
				if pc := e.cls.SpecPriceColumns(cols); len(pc) > 0 {
					return sheetHit{price: row[pc[0]], volume: row[vc]}, true
				}
			}
			continue
		}
		if col, ok := closestQuantityColumn(qtyCols, volume, true); ok {
			return sheetHit{price: matches[0][col], volume: col}, true
		}
	}
	return sheetHit{}, false
}

func firstWithVolume(rows []model.Record, col string, volume int) (model.Record, bool) {
	for _, r := range rows {
		if q, ok := utils.ParseQuantity(r[col]); ok && q == volume {
			return r, true
		}
	}
	return nil, false
}

// closestQuantityColumn picks the quantity header nearest to volume; the first
// header wins ties. Without a volume the first parseable header is used.
func closestQuantityColumn(cols []string, volume int, hasVolume bool) (string, bool) {
	best, bestDiff := "", math.MaxInt
	for _, c := range cols {
		q, ok := utils.ParseQuantity(c)
		if !ok {
			continue
		}
		if !hasVolume {
			return c, true
		}
		d := q - volume
		if d < 0 {
			d = -d
		}
		if d < bestDiff {
			best, bestDiff = c, d
		}
	}
	return best, best != ""
}

// matchFuzzy keeps the single most similar spec of the sheet, ties resolved by first
// seen, and accepts it only above the threshold.
func (e *Engine) matchFuzzy(cs *CatalogSheet, queries []string) (sheetHit, bool) {
	best, bestRow := 0.0, -1
	for _, q := range queries {
		if q == "" {
			continue
		}
		lq := len([]rune(q))
		for i, n := range cs.norm {
			if n == "" || similarityBound(lq, len([]rune(n))) <= best {
				continue
			}
			if s := Similarity(q, n); s > best {
				best, bestRow = s, i
			}
		}
	}
	if bestRow < 0 || !e.accept(best) {
		return sheetHit{}, false
	}
	row := cs.Sheet.Rows[bestRow]
	var h sheetHit
	for _, pc := range e.cls.SpecPriceColumns(cs.Sheet.Columns) {
		if _, ok := utils.ParseFloat(row[pc]); ok {
			h.price = strings.TrimSpace(row[pc])
			break
		}
	}
	if mc := e.cls.MOQColumns(cs.Sheet.Columns); len(mc) > 0 {
		h.volume = row[mc[0]]
	}
	return h, true
}

// ClosestSpec returns the catalog spec most similar to query over the whole catalog.
// There is no floor: the best candidate is returned with its confidence however low.
func (e *Engine) ClosestSpec(query string, cat *Catalog) model.MatchCandidate {
	var best model.MatchCandidate
	normQ := NormalizeSpec(query)
	qkv := ExtractKV(normQ)
	for _, cs := range cat.Sheets {
		for i, row := range cs.Sheet.Rows {
			raw := row[cs.SpecColumn]
			if strings.TrimSpace(raw) == "" {
				continue
			}
			score := Similarity(query, raw)
			if cs.norm[i] != normQ {
				score = CombinedScore(score, KVOverlap(qkv, cs.kvAt(i)))
			}
			if score <= best.Confidence {
				continue
			}
			best = model.MatchCandidate{
				Found:      true,
				Row:        row,
				File:       cs.File,
				Sheet:      cs.Sheet.Name,
				Column:     cs.SpecColumn,
				Spec:       raw,
				HasPart:    cs.HasPart,
				Confidence: score,
			}
			if cs.HasPart {
				best.PartNumber = row[cs.PartColumn]
			}
		}
	}
	return best
}

// SpecPrice is a catalog price found for an exactly matching spec.
type SpecPrice struct {
	Column    string
	Price     float64
	Volume    int
	HasVolume bool
}

// ClosestPriceForSpec prices the first catalog row whose normalized spec equals spec:
// the most recent dated price column, else the first price column, else the quantity
// column closest to volume.
func (e *Engine) ClosestPriceForSpec(spec string, volume int, hasVolume bool, cat *Catalog) (SpecPrice, bool) {
	norm := NormalizeSpec(spec)
	if norm == "" {
		return SpecPrice{}, false
	}
	for _, cs := range cat.Sheets {
		row, ok := cs.firstExact(norm)
		if !ok {
			continue
		}
		cands := e.cls.SpecPriceColumns(cs.Sheet.Columns)
		var (
			recent     string
			recentDate model.YearMonth
		)
		for _, c := range cands {
			if ym, ok := ColumnDate(c); ok && (recent == "" || recentDate.Before(ym)) {
				recent, recentDate = c, ym
			}
		}
		switch {
		case recent != "":
			if p, ok := utils.ParseFloat(row[recent]); ok {
				return SpecPrice{Column: recent, Price: p}, true
			}
		case len(cands) > 0:
			if p, ok := utils.ParseFloat(row[cands[0]]); ok {
				return SpecPrice{Column: cands[0], Price: p}, true
			}
		}
		col, ok := closestQuantityColumn(quantityHeaders(cs.Sheet.Columns), volume, hasVolume)
		if !ok {
			continue
		}
		if p, ok := utils.ParseFloat(row[col]); ok {
			q, _ := utils.ParseQuantity(col)
			return SpecPrice{Column: col, Price: p, Volume: q, HasVolume: true}, true
		}
	}
	return SpecPrice{}, false
}

// FirstPriceForSpec prices the first exactly matching catalog row: orderable price
// columns first, then any price column, then quantity columns.
func (e *Engine) FirstPriceForSpec(spec string, cat *Catalog) (SpecPrice, bool) {
	norm := NormalizeSpec(spec)
	if norm == "" {
		return SpecPrice{}, false
	}
	for _, cs := range cat.Sheets {
		row, ok := cs.firstExact(norm)
		if !ok {
			continue
		}
		cols := cs.Sheet.Columns
		for _, group := range [][]string{e.cls.OrderableColumns(cols), e.cls.SpecPriceColumns(cols)} {
			for _, c := range group {
				if p, ok := utils.ParseFloat(row[c]); ok {
					return SpecPrice{Column: c, Price: p}, true
				}
			}
		}
		for _, c := range quantityHeaders(cols) {
			if p, ok := utils.ParseFloat(row[c]); ok {
				q, _ := utils.ParseQuantity(c)
				return SpecPrice{Column: c, Price: p, Volume: q, HasVolume: true}, true
			}
		}
	}
	return SpecPrice{}, false
}

var thousands = message.NewPrinter(language.English)

// ClosestMOQ is the order quantity shown next to a closest-spec suggestion: the
// first filled MOQ/volume cell of the spec's row, else the quantity of the column
// its price came from ("5,000 pcs").
func (e *Engine) ClosestMOQ(cand model.MatchCandidate, priceColumn string, cat *Catalog) string {
	if !cand.Found {
		return ""
	}
	for _, cs := range cat.Sheets {
		if cs.File != cand.File || cs.Sheet.Name != cand.Sheet {
			continue
		}
		row, ok := cs.firstExact(NormalizeSpec(cand.Spec))
		if !ok {
			return ""
		}
		for _, c := range e.cls.MOQColumns(cs.Sheet.Columns) {
			if strings.TrimSpace(row[c]) != "" {
				return row[c]
			}
		}
		break
	}
	if priceColumn == "" {
		return ""
	}
	if q, ok := utils.ParseQuantity(priceColumn); ok && q != 0 {
		return thousands.Sprintf("%d pcs", q)
	}
	return priceColumn
}

// quantityHeaders are headers that themselves read as a quantity ("5K", "1,000").
func quantityHeaders(cols []string) []string {
	var out []string
	for _, c := range cols {
		if _, ok := utils.ParseQuantity(c); ok {
			out = append(out, c)
		}
	}
	return out
}

// CostDelta is quote minus matched, rounded to 4 places. Empty when either side
// is not a number. The sign is kept.
func CostDelta(quote, matched string) string {
	q, ok1 := utils.ParseFloat(quote)
	m, ok2 := utils.ParseFloat(matched)
	if !ok1 || !ok2 {
		return ""
	}
	return decimal.NewFromFloat(q).Sub(decimal.NewFromFloat(m)).Round(4).String()
}

// FormatPrice renders a catalog price the way it is written back to a sheet.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func moveLast(cols []string, name string) []string {
	idx := -1
	for i, c := range cols {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return cols
	}
	out := append(append([]string(nil), cols[:idx]...), cols[idx+1:]...)
	return append(out, name)
}
