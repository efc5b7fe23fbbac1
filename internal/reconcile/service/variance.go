package service

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"cost-recon/internal/reconcile/model"
	"cost-recon/internal/utils"
)

// Output sheet names of a variance workbook.
const (
	SheetBOMVariances  = "BOM Variances"
	SheetSpecVariances = "Spec Variances"
)

// DefaultSpecsFolder is the catalog folder name looked for next to a price binder.
const DefaultSpecsFolder = "SPEC PRICING FILES"

type VarianceOptions struct {
	IncludeBOM  bool
	IncludeSpec bool
	SpecsDir    string // spec catalog for spec price lookups; skipped when absent
}

// VarianceReport holds positive variances split by cause.
type VarianceReport struct {
	BOM        model.Sheet
	Spec       model.Sheet
	BOMSheet   string
	PriceSheet string
	Columns    map[string]string // role -> resolved price sheet column
	Skipped    model.SkipLog
}

// SpecsDirFor is the catalog folder three levels above a binder file.
func SpecsDirFor(file string) string {
	up := filepath.Dir(filepath.Dir(filepath.Dir(file)))
	return filepath.Join(up, DefaultSpecsFolder)
}

// Variance walks the price sheet of a cost binder. Rows whose remark points at
// volume or BOM changes pull their BOM history; other rows get a catalog spec price.
func (e *Engine) Variance(wb model.Workbook, opt VarianceOptions) (VarianceReport, error) {
	var rep VarianceReport
	if len(wb.Sheets) == 0 {
		return rep, eris.Wrapf(ErrNoSheets, "variance %s", wb.Path)
	}
	vk := e.cls.kw.Variance
	bom := e.findBOMSheet(wb)
	price := wb.Sheets[0]
	if len(wb.Sheets) > 1 {
		price = wb.Sheets[1]
	}
	rep.BOMSheet, rep.PriceSheet = bom.Name, price.Name

	roles := []struct {
		name string
		kw   []string
	}{
		{"Price", vk.Price}, {"Volume", vk.Volume}, {"Variance", vk.Variance},
		{"Remark", vk.Remark}, {"Spec", vk.Spec}, {"Part", vk.Part},
	}
	rep.Columns = make(map[string]string, len(roles))
	var missing []string
	for _, r := range roles {
		c, ok := FindColumn(price.Columns, r.kw)
		if !ok {
			missing = append(missing, r.name)
			continue
		}
		rep.Columns[r.name] = c
	}
	if len(missing) > 0 {
		return rep, eris.Wrapf(ErrMissingColumns, "price sheet %q: %s", price.Name, strings.Join(missing, ", "))
	}

	source := filepath.Base(wb.Path)
	rep.BOM = model.Sheet{Name: SheetBOMVariances, Columns: bomColumns(price.Columns, bom.Columns)}
	rep.Spec = model.Sheet{Name: SheetSpecVariances,
		Columns: append(append([]string(nil), price.Columns...), "Source Sheet", "Source File", "Spec Price", "Spec Price Volume")}

	var (
		cat       *Catalog
		catLoaded bool
	)
	catalog := func() *Catalog {
		if catLoaded {
			return cat
		}
		catLoaded = true
		if opt.SpecsDir == "" || !e.corpus.Exists(opt.SpecsDir) {
			return nil
		}
		c, skips, err := e.LoadCatalog(opt.SpecsDir)
		rep.Skipped = append(rep.Skipped, skips...)
		if err != nil {
			e.skip(&rep.Skipped, opt.SpecsDir, "", err)
			return nil
		}
		cat = c
		return cat
	}

	for i, row := range price.Rows {
		e.Progress.Report(40+40*i/max(len(price.Rows), 1), "processing variances")
		v, ok := utils.ParseFloat(row[rep.Columns["Variance"]])
		if !ok || v <= 0 {
			continue
		}
		remark := strings.ToLower(row[rep.Columns["Remark"]])
		bomHint := containsAny(remark, vk.BOMHint)
		part := strings.TrimSpace(row[rep.Columns["Part"]])

		switch {
		case opt.IncludeBOM && bomHint:
			if part == "" {
				continue
			}
			for _, br := range bomHistory(bom, part, vk.BOMStop) {
				rep.BOM.Rows = append(rep.BOM.Rows, combineBOM(row, price.Columns, br, bom.Columns, bom.Name, source))
			}
		case opt.IncludeSpec && !bomHint:
			out := copyRecord(row, price.Columns)
			out["Source Sheet"] = price.Name
			out["Source File"] = source
			out["Spec Price"], out["Spec Price Volume"] = "", ""
			if c := catalog(); c != nil {
				if sp, ok := e.FirstPriceForSpec(row[rep.Columns["Spec"]], c); ok {
					out["Spec Price"] = FormatPrice(sp.Price)
					if sp.HasVolume {
						out["Spec Price Volume"] = strconv.Itoa(sp.Volume)
					}
				}
			}
			rep.Spec.Rows = append(rep.Spec.Rows, out)
		}
	}
	e.log.Info().Str("file", source).Int("bom_variances", len(rep.BOM.Rows)).
		Int("spec_variances", len(rep.Spec.Rows)).Msg("variance analysis done")
	return rep, nil
}

// findBOMSheet is the first sheet whose name carries every BOM keyword, else the first.
func (e *Engine) findBOMSheet(wb model.Workbook) model.Sheet {
	for _, sh := range wb.Sheets {
		lower := strings.ToLower(sh.Name)
		all := true
		for _, k := range e.cls.kw.Variance.BOMSheet {
			if !strings.Contains(lower, strings.ToLower(k)) {
				all = false
				break
			}
		}
		if all {
			return sh
		}
	}
	return wb.Sheets[0]
}

// bomHistory returns the rows from the first one holding part up to and including
// the first row that mentions the stop marker.
func bomHistory(sh model.Sheet, part, stop string) []model.Record {
	start := -1
	for i, r := range sh.Rows {
		for _, c := range sh.Columns {
			if strings.TrimSpace(r[c]) == part {
				start = i
				break
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return nil
	}
	var out []model.Record
	for _, r := range sh.Rows[start:] {
		out = append(out, r)
		if rowMentions(r, sh.Columns, stop) {
			break
		}
	}
	return out
}

func rowMentions(r model.Record, cols []string, s string) bool {
	for _, c := range cols {
		if strings.Contains(r[c], s) {
			return true
		}
	}
	return false
}

// bomColumns: price columns, then BOM columns (a clash gets a ".1" suffix), then lineage.
func bomColumns(priceCols, bomCols []string) []string {
	out := append([]string(nil), priceCols...)
	for _, c := range bomCols {
		out = append(out, bomName(priceCols, c))
	}
	return append(out, "Source Sheet", "Source File")
}

func bomName(priceCols []string, c string) string {
	if containsStr(priceCols, c) {
		return c + ".1"
	}
	return c
}

func combineBOM(row model.Record, priceCols []string, br model.Record, bomCols []string, sheet, file string) model.Record {
	out := copyRecord(row, priceCols)
	for _, c := range bomCols {
		out[bomName(priceCols, c)] = br[c]
	}
	out["Source Sheet"] = sheet
	out["Source File"] = file
	return out
}

func copyRecord(r model.Record, cols []string) model.Record {
	out := make(model.Record, len(cols)+4)
	for _, c := range cols {
		out[c] = r[c]
	}
	return out
}

// VarianceSheets are the partitions worth writing: those with rows, or the empty
// spec partition when neither has any.
func VarianceSheets(rep VarianceReport) []model.Sheet {
	var out []model.Sheet
	if len(rep.BOM.Rows) > 0 {
		out = append(out, rep.BOM)
	}
	if len(rep.Spec.Rows) > 0 {
		out = append(out, rep.Spec)
	}
	if len(out) == 0 {
		out = append(out, rep.Spec)
	}
	return out
}

func VarianceFileName(day time.Time) string {
	return "Historical Cost Delta Analyzer " + day.Format("2006-01-02") + ".xlsx"
}
