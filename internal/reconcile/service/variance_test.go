package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"

	"cost-recon/internal/reconcile/model"
)

func binder() model.Workbook {
	bom := sheet("Doc Kit SKU Summary for HP", []string{"Component", "Description", "Remark"},
		[]string{"A0", "header", ""},
		[]string{"X1", "first", ""},
		[]string{"Y", "mid", ""},
		[]string{"Z", "HP CM - ALL OS - BTO kit", ""},
		[]string{"after", "", ""},
	)
	price := sheet("Pricing", []string{"HPPart", "Spec", "Price", "Volume", "Variance", "Remark"},
		[]string{"X1", "CAP 10UF", "1", "100", "0.5", "Volume change"},
		[]string{"X2", "RES 1K", "2", "100", "0.2", "price up"},
		[]string{"X3", "IND", "3", "100", "-1", "bom"},
		[]string{"X4", "IND", "3", "100", "", "price up"},
	)
	return model.Workbook{Path: "binders/2025/q1/binder.xlsx", Sheets: []model.Sheet{bom, price}}
}

func TestVariance(t *testing.T) {
	c := newMemCorpus()
	c.addFile("specs/catalog.xlsx", sheet("S", []string{"Spec", "Orderable Price"}, []string{"RES 1K", "0.07"}))
	rep, err := testEngine(c).Variance(binder(), VarianceOptions{IncludeBOM: true, IncludeSpec: true, SpecsDir: "specs"})
	if err != nil {
		t.Fatal(err)
	}
	if rep.BOMSheet != "Doc Kit SKU Summary for HP" || rep.PriceSheet != "Pricing" {
		t.Fatalf("sheets = %q, %q", rep.BOMSheet, rep.PriceSheet)
	}
	if rep.Columns["Part"] != "HPPart" || rep.Columns["Variance"] != "Variance" {
		t.Fatalf("columns = %v", rep.Columns)
	}

	if len(rep.BOM.Rows) != 3 {
		t.Fatalf("bom rows = %v", rep.BOM.Rows)
	}
	first, last := rep.BOM.Rows[0], rep.BOM.Rows[2]
	if first["Component"] != "X1" || first["HPPart"] != "X1" || last["Component"] != "Z" {
		t.Errorf("bom history = %v", rep.BOM.Rows)
	}
	if !rep.BOM.HasColumn("Remark.1") || first["Source File"] != "binder.xlsx" || first["Source Sheet"] != rep.BOMSheet {
		t.Errorf("bom columns = %v row = %v", rep.BOM.Columns, first)
	}

	if len(rep.Spec.Rows) != 1 {
		t.Fatalf("spec rows = %v", rep.Spec.Rows)
	}
	if got := rep.Spec.Rows[0]; got["HPPart"] != "X2" || got["Spec Price"] != "0.07" || got["Source Sheet"] != "Pricing" {
		t.Errorf("spec row = %v", got)
	}
}

func TestVarianceToggles(t *testing.T) {
	rep, err := testEngine(newMemCorpus()).Variance(binder(), VarianceOptions{IncludeSpec: true, SpecsDir: "nowhere"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.BOM.Rows) != 0 || len(rep.Spec.Rows) != 1 {
		t.Fatalf("bom %d spec %d", len(rep.BOM.Rows), len(rep.Spec.Rows))
	}
	if rep.Spec.Rows[0]["Spec Price"] != "" {
		t.Errorf("spec price without catalog = %q", rep.Spec.Rows[0]["Spec Price"])
	}
}

func TestVarianceMissingColumns(t *testing.T) {
	wb := model.Workbook{Path: "b.xlsx", Sheets: []model.Sheet{sheet("Only", []string{"Price", "Remark"})}}
	_, err := testEngine(newMemCorpus()).Variance(wb, VarianceOptions{IncludeSpec: true})
	if !eris.Is(err, ErrMissingColumns) {
		t.Fatalf("err = %v", err)
	}
	if _, err := testEngine(newMemCorpus()).Variance(model.Workbook{}, VarianceOptions{}); !eris.Is(err, ErrNoSheets) {
		t.Fatalf("empty workbook err = %v", err)
	}
}

func TestVarianceSheets(t *testing.T) {
	var rep VarianceReport
	rep.Spec = model.Sheet{Name: SheetSpecVariances, Columns: []string{"a"}}
	rep.BOM = model.Sheet{Name: SheetBOMVariances}
	if got := VarianceSheets(rep); len(got) != 1 || got[0].Name != SheetSpecVariances {
		t.Fatalf("empty report sheets = %v", got)
	}
	rep.BOM.Rows = []model.Record{{}}
	if got := VarianceSheets(rep); len(got) != 1 || got[0].Name != SheetBOMVariances {
		t.Fatalf("bom only sheets = %v", got)
	}
}

func TestSpecsDirFor(t *testing.T) {
	got := SpecsDirFor(filepath.Join("/share", "cost", "2025", "q1", "binder.xlsx"))
	if want := filepath.Join("/share", "cost", DefaultSpecsFolder); got != want {
		t.Fatalf("SpecsDirFor = %q want %q", got, want)
	}
}

func TestVarianceFileName(t *testing.T) {
	day := time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)
	if got := VarianceFileName(day); got != "Historical Cost Delta Analyzer 2025-03-04.xlsx" {
		t.Fatalf("VarianceFileName = %q", got)
	}
}
