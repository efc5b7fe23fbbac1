package fileio

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	excelize "github.com/xuri/excelize/v2"

	"cost-recon/internal/reconcile/model"
	"cost-recon/internal/utils"
)

// Fill colors for price ranks.
var rankColors = map[model.PriceRank]string{
	model.RankLowest:    "C6EFCE", // green
	model.RankHighest:   "FFC7CE", // red
	model.RankDuplicate: "BDD7EE", // blue
	model.RankOther:     "FFEB9C", // yellow
}

type styleKey struct {
	bold  bool
	color string
}

// styler hands out one style id per (bold, fill) combination.
type styler struct {
	f   *excelize.File
	ids map[styleKey]int
}

func (s *styler) id(k styleKey) (int, error) {
	if id, ok := s.ids[k]; ok {
		return id, nil
	}
	st := &excelize.Style{}
	if k.bold {
		st.Font = &excelize.Font{Bold: true}
	}
	if k.color != "" {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{k.color}}
	}
	id, err := s.f.NewStyle(st)
	if err != nil {
		return 0, err
	}
	s.ids[k] = id
	return id, nil
}

// BuildWorkbook lays sheets out in order: header row, then one row per record,
// with bold columns and rank fills applied.
func BuildWorkbook(sheets []model.ReportSheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, eris.New("no sheets to write")
	}
	f := excelize.NewFile()
	st := &styler{f: f, ids: make(map[styleKey]int)}
	for i, rs := range sheets {
		name := rs.Sheet.Name
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, eris.Wrapf(err, "name sheet %s", name)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, eris.Wrapf(err, "add sheet %s", name)
		}
		if err := writeSheet(f, st, rs); err != nil {
			return nil, eris.Wrapf(err, "write sheet %s", name)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, st *styler, rs model.ReportSheet) error {
	sh := rs.Sheet
	header := make([]interface{}, len(sh.Columns))
	colIdx := make(map[string]int, len(sh.Columns))
	for i, c := range sh.Columns {
		header[i] = c
		colIdx[c] = i + 1
	}
	if err := f.SetSheetRow(sh.Name, "A1", &header); err != nil {
		return err
	}
	for r, rec := range sh.Rows {
		vals := make([]interface{}, len(sh.Columns))
		for i, c := range sh.Columns {
			vals[i] = cellValue(rec[c])
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sh.Name, cell, &vals); err != nil {
			return err
		}
	}

	bold := make(map[int]bool, len(rs.Bold))
	for _, c := range rs.Bold {
		if i, ok := colIdx[c]; ok {
			bold[i] = true
		}
	}
	fills := make(map[[2]int]string, len(rs.Ranks))
	for _, cr := range rs.Ranks {
		if i, ok := colIdx[cr.Column]; ok {
			fills[[2]int{cr.Row + 2, i}] = rankColors[cr.Rank]
		}
	}
	// bold columns span header and data rows
	for col := range bold {
		id, err := st.id(styleKey{bold: true})
		if err != nil {
			return err
		}
		top, _ := excelize.CoordinatesToCellName(col, 1)
		bottom, _ := excelize.CoordinatesToCellName(col, len(sh.Rows)+1)
		if err := f.SetCellStyle(sh.Name, top, bottom, id); err != nil {
			return err
		}
	}
	for pos, color := range fills {
		id, err := st.id(styleKey{bold: bold[pos[1]], color: color})
		if err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(pos[1], pos[0])
		if err := f.SetCellStyle(sh.Name, cell, cell, id); err != nil {
			return err
		}
	}
	return nil
}

// cellValue writes canonical decimals as numbers and everything else as text, so
// codes such as "00123" keep their zeros.
func cellValue(s string) interface{} {
	t := strings.TrimSpace(s)
	if f, ok := utils.ParseFloat(t); ok && strconv.FormatFloat(f, 'f', -1, 64) == t {
		return f
	}
	return s
}

// WriteReport streams the workbook to w.
func WriteReport(w io.Writer, sheets []model.ReportSheet) error {
	f, err := BuildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "write workbook")
	}
	return nil
}

// SaveReport writes the workbook to path.
func SaveReport(path string, sheets []model.ReportSheet) error {
	f, err := BuildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return eris.Wrapf(err, "save %s", path)
	}
	return nil
}

// Plain wraps sheets without presentation hints.
func Plain(sheets ...model.Sheet) []model.ReportSheet {
	out := make([]model.ReportSheet, len(sheets))
	for i, s := range sheets {
		out[i] = model.ReportSheet{Sheet: s}
	}
	return out
}
