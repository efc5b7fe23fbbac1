// Legacy .xls reader: sheet width is computed here and every cell up to it is read.
package fileio

import (
	"bytes"
	"errors"
	"io"
	"strings"

	xls "github.com/extrame/xls"

	"cost-recon/internal/reconcile/model"
)

// normalizeCell trims padding and the NUL bytes some BIFF writers leave behind.
func normalizeCell(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// computeMaxCols finds the "real" width: probe a sane number of columns for non-blank cells.
func computeMaxCols(sheet *xls.WorkSheet) int {
	const probeMax = 512
	maxCols := 0
	for i := 0; i <= int(sheet.MaxRow); i++ {
		r := sheet.Row(i)
		if r == nil {
			continue
		}
		for j := maxCols; j < probeMax; j++ {
			if v := normalizeCell(r.Col(j)); v != "" {
				maxCols = j + 1
			}
		}
	}
	if maxCols == 0 {
		maxCols = 1
	}
	return maxCols
}

// readSheetXLS reads one sheet; a panic inside the BIFF decoder becomes an error.
func readSheetXLS(sheet *xls.WorkSheet) (rows [][]string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("xls: corrupt sheet")
		}
	}()
	maxCols := computeMaxCols(sheet)
	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		cols := make([]string, maxCols)
		if row != nil {
			for j := 0; j < maxCols; j++ {
				cols[j] = normalizeCell(row.Col(j)) // blanks come back as ""
			}
		}
		rows = append(rows, cols)
	}
	return rows, nil
}

func readXLS(r io.Reader, headerRow int) (model.Workbook, error) {
	if headerRow <= 0 {
		return model.Workbook{}, errors.New("headerRow must be 1-based and >= 1")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return model.Workbook{}, err
	}

	// vendor exports are mostly cp1252, sometimes UTF-8
	var book *xls.WorkBook
	tryCharsets := []string{"windows-1252", "utf-8", "windows-1251"}
	var lastErr error
	for _, ch := range tryCharsets {
		book, err = xls.OpenReader(bytes.NewReader(b), ch)
		if err == nil && book != nil {
			lastErr = nil
			break
		}
		lastErr = err
	}
	if book == nil {
		if lastErr == nil {
			lastErr = errors.New("xls: failed to open workbook")
		}
		return model.Workbook{}, lastErr
	}

	var wb model.Workbook
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			continue
		}
		rows, err := readSheetXLS(sheet)
		if err != nil {
			wb.Skipped.Add("", sheet.Name, err)
			continue
		}
		wb.Sheets = append(wb.Sheets, toSheet(sheet.Name, rows, headerRow))
	}
	return wb, nil
}
