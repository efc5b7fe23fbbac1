package fileio

import (
	"io"

	excelize "github.com/xuri/excelize/v2"

	"cost-recon/internal/reconcile/model"
)

func readXLSX(r io.Reader, headerRow int) (model.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.Workbook{}, err
	}
	defer f.Close()

	var wb model.Workbook
	for _, name := range f.GetSheetList() {
		// raw values: numbers and dates arrive unformatted ("1.5", "45823")
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			wb.Skipped.Add("", name, err)
			continue
		}
		wb.Sheets = append(wb.Sheets, toSheet(name, rows, headerRow))
	}
	return wb, nil
}
