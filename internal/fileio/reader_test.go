package fileio

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	excelize "github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	data := "\xef\xbb\xbfPart,Price,Price,\nCafé-1,1.5,2,x\n,,,\n"
	wb, err := ReadWorkbookFrom(strings.NewReader(data), "quote.csv", 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(wb.Sheets) != 1 {
		t.Fatalf("sheets = %d", len(wb.Sheets))
	}
	sh := wb.Sheets[0]
	if want := []string{"Part", "Price", "Price.1", "Column 4"}; !reflect.DeepEqual(sh.Columns, want) {
		t.Fatalf("columns = %q", sh.Columns)
	}
	if len(sh.Rows) != 1 {
		t.Fatalf("blank row kept: %v", sh.Rows)
	}
	if r := sh.Rows[0]; r["Part"] != "Café-1" || r["Price.1"] != "2" || r["Column 4"] != "x" {
		t.Fatalf("row = %v", r)
	}
}

func TestReadCSVSemicolon(t *testing.T) {
	wb, err := ReadWorkbookFrom(strings.NewReader("Part;Price\nP-2;3.5\n"), "eu.csv", 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sh := wb.Sheets[0]
	if len(sh.Columns) != 2 || sh.Rows[0]["Price"] != "3.5" {
		t.Fatalf("sheet = %+v", sh)
	}
}

func TestReadXLSXHeaderRow(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Quote for Q3"})
	_ = f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Specs", "Price", "Qty"})
	_ = f.SetSheetRow("Sheet1", "A3", &[]interface{}{"CAP 10UF", 0.25, 5000})
	path := filepath.Join(t.TempDir(), "quote.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = f.Close()

	wb, err := ReadWorkbook(path, 2)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if wb.Path != path || len(wb.Sheets) != 1 {
		t.Fatalf("workbook = %+v", wb)
	}
	r := wb.Sheets[0].Rows[0]
	if r["Specs"] != "CAP 10UF" || r["Price"] != "0.25" || r["Qty"] != "5000" {
		t.Fatalf("row = %v", r)
	}
}

func TestReadUnsupported(t *testing.T) {
	if _, err := ReadWorkbookFrom(strings.NewReader("x"), "quote.ods", 1); !eris.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v", err)
	}
	if _, err := ReadWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"), 1); err == nil {
		t.Fatal("missing file read")
	}
}

func TestIsWorkbook(t *testing.T) {
	for name, want := range map[string]bool{
		"a.xlsx": true, "B.XLS": true, "c.xlsb": true, "d.csv": false, "e.txt": false, "xlsx": false,
	} {
		if got := IsWorkbook(name); got != want {
			t.Errorf("IsWorkbook(%q) = %v", name, got)
		}
	}
	if !IsPriceFile("p.XLS") || IsPriceFile("p.xlsb") || IsPriceFile("p.csv") {
		t.Error("IsPriceFile")
	}
	if !IsXLSX("t.XLSM") || IsXLSX("t.xls") {
		t.Error("IsXLSX")
	}
}

func TestDiskCorpus(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel string) {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("b.xlsx")
	mustWrite("a.xls")
	mustWrite("notes.txt")
	mustWrite("MAR'25/deep/final.xlsx")
	mustWrite("MAR'25/binary.xlsb")
	mustWrite("JAN'25/q.xlsx")

	c := NewDiskCorpus()
	if !c.Exists(root) || c.Exists(filepath.Join(root, "b.xlsx")) {
		t.Fatal("Exists")
	}
	files, err := c.ListWorkbooks(root)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{filepath.Join(root, "a.xls"), filepath.Join(root, "b.xlsx")}; !reflect.DeepEqual(files, want) {
		t.Fatalf("ListWorkbooks = %v", files)
	}
	dirs, err := c.ListDirs(root)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{filepath.Join(root, "JAN'25"), filepath.Join(root, "MAR'25")}; !reflect.DeepEqual(dirs, want) {
		t.Fatalf("ListDirs = %v", dirs)
	}
	walked, err := c.WalkWorkbooks(filepath.Join(root, "MAR'25"))
	if err != nil {
		t.Fatal(err)
	}
	if len(walked) != 1 || filepath.Base(walked[0]) != "final.xlsx" {
		t.Fatalf("WalkWorkbooks = %v", walked)
	}
	if _, err := c.Open(filepath.Join(root, "b.xlsx")); err == nil {
		t.Fatal("garbage workbook opened")
	}
}
