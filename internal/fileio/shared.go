package fileio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"cost-recon/internal/reconcile/model"
)

// ErrUnsupported marks files whose format has no reader here.
var ErrUnsupported = eris.New("unsupported spreadsheet format")

// WorkbookExts are the extensions a corpus scan picks up. ".xlsb" is listed so such
// files show up in the skip log instead of vanishing silently.
var WorkbookExts = []string{".xlsx", ".xls", ".xlsb"}

// PriceFileExts are the extensions a price folder walk picks up.
var PriceFileExts = []string{".xlsx", ".xls"}

// IsWorkbook reports whether name has one of WorkbookExts (case-insensitive).
func IsWorkbook(name string) bool { return hasExt(name, WorkbookExts) }

// IsPriceFile reports whether name has one of PriceFileExts (case-insensitive).
func IsPriceFile(name string) bool { return hasExt(name, PriceFileExts) }

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsXLSX reports files excelize can rewrite in place.
func IsXLSX(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ReadWorkbook opens path and reads every sheet with headers on headerRow (1-based).
// The file handle is released before returning.
func ReadWorkbook(path string, headerRow int) (model.Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Workbook{Path: path}, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	wb, err := ReadWorkbookFrom(f, path, headerRow)
	wb.Path = path
	return wb, err
}

// ReadWorkbookFrom picks a parser by the extension of filename.
func ReadWorkbookFrom(r io.Reader, filename string, headerRow int) (model.Workbook, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		wb  model.Workbook
		err error
	)
	switch ext {
	case ".xlsx", ".xlsm":
		wb, err = readXLSX(r, headerRow)
	case ".xls":
		wb, err = readXLS(r, headerRow)
	case ".csv":
		wb, err = readCSV(r, headerRow)
	default:
		return model.Workbook{Path: filename}, eris.Wrapf(ErrUnsupported, "read %s", filename)
	}
	wb.Path = filename
	if err != nil {
		return wb, eris.Wrapf(err, "read %s", filename)
	}
	return wb, nil
}

// pickHeader takes the header row, fills blanks with "Column N" and disambiguates
// repeated names as "Name.1", "Name.2".
func pickHeader(rows [][]string, headerRow int) []string {
	idx := headerRow - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(rows) {
		return nil
	}
	h := rows[idx]
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, v := range h {
		v = strings.TrimSpace(v)
		if v == "" {
			v = fmt.Sprintf("Column %d", i+1)
		}
		if n, dup := seen[v]; dup {
			seen[v] = n + 1
			v = fmt.Sprintf("%s.%d", v, n+1)
		} else {
			seen[v] = 0
		}
		out[i] = v
	}
	return out
}

// toSheet converts an array of rows into records under headers, skipping fully blank rows.
func toSheet(name string, rows [][]string, headerRow int) model.Sheet {
	headers := pickHeader(rows, headerRow)
	sh := model.Sheet{Name: name, Columns: headers}
	start := headerRow // first row after the header
	if start < 1 {
		start = 1
	}
	for r := start; r < len(rows); r++ {
		rec := rows[r]
		m := make(model.Record, len(headers))
		empty := true
		for c := 0; c < len(headers); c++ {
			var v string
			if c < len(rec) {
				v = rec[c]
			}
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			m[headers[c]] = v
		}
		if !empty {
			sh.Rows = append(sh.Rows, m)
		}
	}
	return sh
}
