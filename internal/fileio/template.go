package fileio

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	excelize "github.com/xuri/excelize/v2"

	"cost-recon/internal/reconcile/model"
	"cost-recon/internal/utils"
)

// ErrTemplate marks an upload template without the expected sheets or headers.
var ErrTemplate = eris.New("cost upload template invalid")

const (
	templateInput = "Input"
	templateAdmin = "Admin"
	headerMarker  = "PART NO."
)

// Template headers the upload writes to. "Vendor Code" may repeat.
var templateRequired = []string{
	"PART NO.", "PART DESCRIPTION", "SUPPLIER NAME", "Site",
	"Cost (must be in USD)", "Vendor Code", "MKT SHARE %", "Cost Type",
	"Condition Type", "EFFECTIVE DATE",
}

// UploadFileName is the name of the filled template for a given day.
func UploadFileName(day time.Time) string {
	return fmt.Sprintf("PSO CCS MS4 Cost Upload_%s.xlsx", day.Format("20060102"))
}

// FillTemplate writes lines into the Input sheet of the template read from r,
// below the row holding "PART NO.". Columns are located by header name.
func FillTemplate(r io.Reader, w io.Writer, lines []model.UploadLine, today time.Time) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return eris.Wrap(err, "open template")
	}
	defer f.Close()

	rows, err := f.GetRows(templateInput)
	if err != nil {
		return eris.Wrapf(ErrTemplate, "sheet %q: %v", templateInput, err)
	}
	headerRow := 0
	for i := 0; i < len(rows) && i < 20 && headerRow == 0; i++ {
		for _, v := range rows[i] {
			if v == headerMarker {
				headerRow = i + 1
				break
			}
		}
	}
	if headerRow == 0 {
		return eris.Wrapf(ErrTemplate, "no %q header in the first 20 rows of %q", headerMarker, templateInput)
	}
	headers := make(map[string]int)
	var vendorCols []int
	for i, v := range rows[headerRow-1] {
		if v == "" {
			continue
		}
		headers[strings.TrimSpace(strings.ReplaceAll(v, "\n", " "))] = i + 1
		if v == "Vendor Code" {
			vendorCols = append(vendorCols, i+1)
		}
	}
	var missing []string
	for _, h := range templateRequired {
		if _, ok := headers[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrTemplate, "missing columns: %s", strings.Join(missing, ", "))
	}

	sites, err := adminSites(f)
	if err != nil {
		return err
	}

	effective := today.Format("01/02/2006")
	for i, ln := range lines {
		row := headerRow + 1 + i
		set := func(col int, v string) error {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			return f.SetCellValue(templateInput, cell, v)
		}
		site, ok := sites[ln.SiteCode]
		if !ok {
			site = ln.SiteCode + " UNKNOWN"
		}
		values := []struct {
			header string
			value  string
		}{
			{"Site", site},
			{"PART NO.", ln.PartNumber},
			{"PART DESCRIPTION", ln.Description},
			{"SUPPLIER NAME", ln.Supplier},
			{"Cost (must be in USD)", ln.Price},
			{"MKT SHARE %", "100"},
			{"Cost Type", ln.CostType},
			{"Condition Type", "PB00"},
			{"EFFECTIVE DATE", effective},
			{model.TrackerComments, ln.Comment},
			{"Source Date Folder", ln.SourceFolder},
		}
		for _, v := range values {
			col, ok := headers[v.header]
			if !ok {
				continue
			}
			if err := set(col, v.value); err != nil {
				return eris.Wrapf(err, "write %s row %d", v.header, row)
			}
		}
		for _, col := range vendorCols {
			if err := set(col, ln.VendorCode); err != nil {
				return eris.Wrapf(err, "write vendor code row %d", row)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "write template")
	}
	return nil
}

// adminSites maps padded site codes (column C) to site names (column A).
func adminSites(f *excelize.File) (map[string]string, error) {
	rows, err := f.GetRows(templateAdmin, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, eris.Wrapf(ErrTemplate, "sheet %q: %v", templateAdmin, err)
	}
	out := make(map[string]string)
	for i, r := range rows {
		if i == 0 || len(r) < 3 || strings.TrimSpace(r[2]) == "" {
			continue
		}
		out[utils.PadSiteCode(r[2])] = strings.TrimSpace(r[0])
	}
	return out, nil
}

// AnnotateTracker writes the new procurement comment into every tracker row of
// sheet whose (part, site, date) key was processed. It returns the number of rows
// updated.
func AnnotateTracker(r io.Reader, w io.Writer, sheet string, comments map[model.TrackerKey]string) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, eris.Wrap(err, "open tracker")
	}
	defer f.Close()
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, eris.Wrapf(err, "read tracker sheet %q", sheet)
	}

	headerRow := 1
	for i := 0; i < len(rows) && i < 5; i++ {
		if indexOf(rows[i], model.TrackerComments) >= 0 {
			headerRow = i + 1
			break
		}
	}
	if len(rows) < headerRow {
		return 0, nil
	}
	hdr := rows[headerRow-1]
	commentCol := indexOf(hdr, model.TrackerComments)
	partCol := indexOf(hdr, model.TrackerPart)
	siteCol := indexOf(hdr, model.TrackerSite)
	dateCol := indexOf(hdr, model.TrackerDate)
	if commentCol < 0 {
		return 0, nil
	}

	updated := 0
	for i := headerRow; i < len(rows); i++ {
		key := model.NewTrackerKey(at(rows[i], partCol), at(rows[i], siteCol), at(rows[i], dateCol))
		comment, ok := comments[key]
		if !ok {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(commentCol+1, i+1)
		if err := f.SetCellValue(sheet, cell, comment); err != nil {
			return updated, eris.Wrapf(err, "write %s", cell)
		}
		updated++
	}
	if err := f.Write(w); err != nil {
		return updated, eris.Wrap(err, "write tracker")
	}
	return updated, nil
}

func indexOf(row []string, name string) int {
	for i, v := range row {
		if strings.TrimSpace(v) == name {
			return i
		}
	}
	return -1
}

func at(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
