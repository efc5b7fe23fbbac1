package service

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"cost-recon/internal/reconcile/model"
	"cost-recon/internal/utils"
)

// PriceResolver looks part prices up in a root/Supplier/ODM/DateFolder tree.
type PriceResolver struct {
	cls      *Classifier
	corpus   Corpus
	root     string
	forecast string
	log      zerolog.Logger
}

func NewPriceResolver(cls *Classifier, corpus Corpus, root, forecastPrice string, log zerolog.Logger) *PriceResolver {
	return &PriceResolver{cls: cls, corpus: corpus, root: root, forecast: forecastPrice, log: log}
}

type datedFolder struct {
	name string
	path string
	date model.YearMonth
}

// Resolve finds the freshest price of part for a site. Date folders are searched
// newest first and the search stops at the first folder that yields any price.
// Every miss ends in the forecast price with cost type NB-F.
func (p *PriceResolver) Resolve(part, siteCode, requestedDate string, sites model.SiteDirectory) (model.PriceResolution, model.SkipLog) {
	var skips model.SkipLog
	code := utils.PadSiteCode(siteCode)
	site, known := sites[code]
	res := model.PriceResolution{
		Price:      p.forecast,
		Supplier:   strings.TrimSpace(site.Supplier),
		ODM:        strings.TrimSpace(site.ODM),
		VendorCode: strings.TrimSpace(site.VendorCode),
		CostType:   model.CostTypeForecast,
	}
	switch {
	case !known, res.ODM != "" && res.Supplier == "" && res.VendorCode == "":
		res.Supplier, res.VendorCode = model.SupplierTBD, model.VendorCodeMHP
	case res.Supplier == "" || res.ODM == "":
		return res, skips
	}
	// without an ODM the supplier folder itself would be scanned as date folders
	if res.ODM == "" {
		return res, skips
	}

	when, ok := ParseRequestedDate(requestedDate)
	if !ok {
		return res, skips
	}
	base, ok := p.supplierDir(res.Supplier, res.ODM)
	if !ok {
		p.log.Debug().Str("supplier", res.Supplier).Str("odm", res.ODM).Msg("no supplier/odm directory")
		return res, skips
	}
	folders, err := p.dateFolders(base)
	if err != nil {
		skips.Add(base, "", err)
		return res, skips
	}

	clean := CleanPartNumber(part)
	if clean == "" {
		return res, skips
	}
	for _, f := range folders {
		prices := p.searchFolder(f.path, part, clean, when.Month(), &skips)
		if len(prices) == 0 {
			continue
		}
		sort.Strings(prices)
		res.Price = strings.Join(prices, ", ")
		res.CostType = model.CostTypeAll
		res.SourceFolder = f.name
		p.log.Debug().Str("part", part).Str("site", code).Str("folder", f.name).Str("price", res.Price).Msg("price found")
		return res, skips
	}
	return res, skips
}

// supplierDir tries the joined path first, then a backslash-separated variant for
// trees copied from Windows shares.
func (p *PriceResolver) supplierDir(supplier, odm string) (string, bool) {
	base := filepath.Join(p.root, supplier, odm)
	if p.corpus.Exists(base) {
		return base, true
	}
	alt := filepath.Clean(strings.ReplaceAll(p.root, "/", `\`) + `\` + supplier + `\` + odm)
	if p.corpus.Exists(alt) {
		return alt, true
	}
	return "", false
}

// dateFolders lists every subfolder newest first. Folders without a parseable
// date are kept and sort last.
func (p *PriceResolver) dateFolders(base string) ([]datedFolder, error) {
	dirs, err := p.corpus.ListDirs(base)
	if err != nil {
		return nil, eris.Wrap(err, "list date folders")
	}
	out := make([]datedFolder, 0, len(dirs))
	for _, d := range dirs {
		name := filepath.Base(d)
		ym, _ := FolderDate(name)
		out = append(out, datedFolder{name: name, path: d, date: ym})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[j].date.Before(out[i].date) })
	return out, nil
}

// FileScore ranks price files by name: final > new > initial > anything else.
func (c *Classifier) FileScore(path string) int {
	name := strings.ToLower(filepath.Base(path))
	for _, r := range c.kw.FileRank {
		if strings.Contains(name, strings.ToLower(r.Keyword)) {
			return r.Score
		}
	}
	return 0
}

func (p *PriceResolver) searchFolder(dir, part, clean string, month time.Month, skips *model.SkipLog) []string {
	files, err := p.corpus.WalkWorkbooks(dir)
	if err != nil {
		skips.Add(dir, "", err)
		return nil
	}
	sort.SliceStable(files, func(i, j int) bool { return p.cls.FileScore(files[i]) > p.cls.FileScore(files[j]) })

	found := make(map[string]struct{})
	for _, path := range files {
		wb, err := p.corpus.Open(path)
		*skips = append(*skips, wb.Skipped...)
		if err != nil {
			skips.Add(path, "", err)
			continue
		}
		if len(wb.Sheets) == 0 {
			skips.Add(path, "", ErrNoSheets)
			continue
		}
		sh := lowerHeaders(wb.Sheets[0])
		partCol, ok := p.cls.PartColumn(sh.Columns)
		if !ok {
			continue
		}
		priceCols := p.cls.RankedPriceColumns(sh.Columns, month)
		if len(priceCols) == 0 {
			continue
		}
		for _, row := range matchPartRows(sh, partCol, part, clean) {
			for _, pc := range priceCols {
				v := strings.TrimSpace(row[pc])
				if utils.LooksLikePrice(v) {
					found[v] = struct{}{}
					break
				}
			}
		}
	}
	out := make([]string, 0, len(found))
	for v := range found {
		out = append(out, v)
	}
	return out
}

// matchPartRows: exact match on cleaned part numbers, else rows whose part cell
// contains the part as typed.
func matchPartRows(sh model.Sheet, partCol, part, clean string) []model.Record {
	var rows []model.Record
	for _, r := range sh.Rows {
		if CleanPartNumber(r[partCol]) == clean {
			rows = append(rows, r)
		}
	}
	if len(rows) > 0 {
		return rows
	}
	needle := strings.ToUpper(strings.TrimSpace(part))
	for _, r := range sh.Rows {
		if strings.Contains(strings.ToUpper(strings.TrimSpace(r[partCol])), needle) {
			rows = append(rows, r)
		}
	}
	return rows
}

// lowerHeaders renames every column to its trimmed lowercase form.
func lowerHeaders(sh model.Sheet) model.Sheet {
	out := model.Sheet{Name: sh.Name, Columns: make([]string, len(sh.Columns))}
	for i, c := range sh.Columns {
		out.Columns[i] = strings.ToLower(strings.TrimSpace(c))
	}
	out.Rows = make([]model.Record, len(sh.Rows))
	for i, r := range sh.Rows {
		nr := make(model.Record, len(r))
		for j, c := range sh.Columns {
			nr[out.Columns[j]] = r[c]
		}
		out.Rows[i] = nr
	}
	return out
}

// BuildSiteDirectory reads a site sheet keyed by SiteCode. Codes are padded to
// 4 digits; blank codes are dropped and a repeated code keeps its last row.
func BuildSiteDirectory(sh model.Sheet) (model.SiteDirectory, error) {
	codeCol, ok := ResolveColumn(sh.Columns, "SiteCode")
	if !ok {
		return nil, eris.Wrapf(ErrMissingColumns, "site sheet %q: SiteCode", sh.Name)
	}
	supCol, _ := ResolveColumn(sh.Columns, "Supplier")
	odmCol, _ := ResolveColumn(sh.Columns, "ODM")
	vcCol, _ := ResolveColumn(sh.Columns, "MS4 Vendor Code")
	cell := func(r model.Record, col string) string {
		if col == "" || utils.IsBlank(r[col]) {
			return ""
		}
		return strings.TrimSpace(r[col])
	}
	dir := make(model.SiteDirectory)
	for _, r := range sh.Rows {
		if utils.IsBlank(r[codeCol]) {
			continue
		}
		dir[utils.PadSiteCode(r[codeCol])] = model.SiteInfo{
			Supplier:   cell(r, supCol),
			ODM:        cell(r, odmCol),
			VendorCode: cell(r, vcCol),
		}
	}
	return dir, nil
}
