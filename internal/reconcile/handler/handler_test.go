package handler

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	excelize "github.com/xuri/excelize/v2"

	"cost-recon/internal/config"
	"cost-recon/internal/fileio"
)

// xlsxBytes builds a workbook whose sheets are given as name -> rows.
func xlsxBytes(t *testing.T, sheets []string, rows map[string][][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	for i, name := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for r, vals := range rows[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			v := vals
			if err := f.SetSheetRow(name, cell, &v); err != nil {
				t.Fatal(err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

type part struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	for _, p := range files {
		fw, err := mw.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(p.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Config{
		SpecsDir:       filepath.Join(t.TempDir(), "specs"),
		PriceRoot:      filepath.Join(t.TempDir(), "pricing"),
		ForecastPrice:  "1.50",
		FuzzyThreshold: 0.85,
		Keywords:       config.DefaultKeywords(),
	}
	writeFile(t, filepath.Join(cfg.SpecsDir, "catalog.xlsx"), xlsxBytes(t, []string{"Sheet1"}, map[string][][]interface{}{
		"Sheet1": {
			{"Part Number", "Specs", "Price", "MOQ"},
			{"P-1", "ABCDEFGHIJKLMNOPQRXY", 1.5, 1000},
			{"P-2", "ZZZZ 111", 2.5, 500},
		},
	}))
	return cfg
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestCompare(t *testing.T) {
	cfg := testConfig(t)
	quote := xlsxBytes(t, []string{"Quote"}, map[string][][]interface{}{
		"Quote": {
			{"Spec", "Price"},
			{"ABCDEFGHIJKLMNOPQRST", 2},
			{"ZZZZ 999", 3},
		},
	})
	rec := httptest.NewRecorder()
	Compare(cfg, zerolog.Nop())(rec, multipartRequest(t, "/compare", nil, part{"quote", "quote.xlsx", quote}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, ComparisonFile) {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get(HeaderSkipped); got != "0" {
		t.Fatalf("%s = %q", HeaderSkipped, got)
	}
	wb, err := fileio.ReadWorkbookFrom(bytes.NewReader(rec.Body.Bytes()), "out.xlsx", 1)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if len(wb.Sheets) != 2 || len(wb.Sheets[0].Rows) != 1 || len(wb.Sheets[1].Rows) != 1 {
		t.Fatalf("response workbook = %+v", wb.Sheets)
	}
	if got := wb.Sheets[1].Rows[0]["Closest Spec"]; got != "ZZZZ 111" {
		t.Fatalf("closest spec = %q", got)
	}
}

func TestCompareBadRequests(t *testing.T) {
	cfg := testConfig(t)
	noSpec := xlsxBytes(t, []string{"Quote"}, map[string][][]interface{}{"Quote": {{"Part", "Price"}, {"A", 1}}})
	cases := []struct {
		name   string
		fields map[string]string
		files  []part
	}{
		{"missing file", nil, nil},
		{"unsupported file", nil, []part{{"quote", "quote.ods", []byte("x")}}},
		{"unknown sheet", map[string]string{"sheet": "Nope"}, []part{{"quote", "quote.xlsx", noSpec}}},
		{"no spec column", nil, []part{{"quote", "quote.xlsx", noSpec}}},
		{"specs outside root", map[string]string{"specs_dir": "../elsewhere"}, []part{{"quote", "quote.xlsx", noSpec}}},
		{"absolute specs elsewhere", map[string]string{"specs_dir": os.TempDir()}, []part{{"quote", "quote.xlsx", noSpec}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Compare(cfg, zerolog.Nop())(rec, multipartRequest(t, "/compare", tc.fields, tc.files...))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			if errorBody(t, rec) == "" {
				t.Fatal("empty error message")
			}
		})
	}
}

func TestCostUpload(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.PriceRoot, "Acme", "Quanta", "MAR'25", "final.xlsx"),
		xlsxBytes(t, []string{"Prices"}, map[string][][]interface{}{
			"Prices": {{"Part Number", "Mar 2025 Price"}, {"AB-123", "4.20"}},
		}))
	tracker := xlsxBytes(t, []string{"Tracker"}, map[string][][]interface{}{
		"Tracker": {
			{"PartNumber", "SiteCode", "Requested Date", "Comments(Procurement)", "Description"},
			{"AB-123", 12, "2025-03-10", "", "Cap"},
			{"AB-999", 12, "2025-03-10", "", "Res"},
		},
	})
	sites := xlsxBytes(t, []string{"Sites"}, map[string][][]interface{}{
		"Sites": {{"SiteCode", "Supplier", "ODM", "MS4 Vendor Code"}, {12, "Acme", "Quanta", "V100"}},
	})
	headers := []interface{}{
		"PART NO.", "PART DESCRIPTION", "SUPPLIER NAME", "Site", "Cost (must be in USD)",
		"Vendor Code", "MKT SHARE %", "Cost Type", "Condition Type", "EFFECTIVE DATE",
	}
	template := xlsxBytes(t, []string{"Input", "Admin"}, map[string][][]interface{}{
		"Input": {headers},
		"Admin": {{"Site Name", "Region", "Code"}, {"Houston", "NA", 12}},
	})

	rec := httptest.NewRecorder()
	req := multipartRequest(t, "/cost-upload", nil,
		part{"tracker", "tracker.xlsx", tracker},
		part{"site", "sites.xlsx", sites},
		part{"template", "template.xlsx", template},
	)
	CostUpload(cfg, zerolog.Nop())(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	files := map[string][]byte{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(rc)
		_ = rc.Close()
		files[zf.Name] = b
	}
	if len(files) != 2 || files["tracker.xlsx"] == nil {
		t.Fatalf("zip entries = %d", len(files))
	}

	var filled []byte
	for name, b := range files {
		if strings.HasPrefix(name, "PSO CCS MS4 Cost Upload_") {
			filled = b
		}
	}
	out, err := excelize.OpenReader(bytes.NewReader(filled))
	if err != nil {
		t.Fatalf("open filled template: %v", err)
	}
	t.Cleanup(func() { _ = out.Close() })
	for cell, want := range map[string]string{"A2": "AB-123", "D2": "Houston", "E2": "4.20", "H2": "All", "A3": "AB-999", "E3": "1.50", "H3": "NB-F"} {
		if got, _ := out.GetCellValue("Input", cell); got != want {
			t.Errorf("%s = %q want %q", cell, got, want)
		}
	}

	tr, err := excelize.OpenReader(bytes.NewReader(files["tracker.xlsx"]))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	if got, _ := tr.GetCellValue("Tracker", "D2"); got != "Cost from MAR'25 uploaded to CCS" {
		t.Errorf("tracker D2 = %q", got)
	}
	if got, _ := tr.GetCellValue("Tracker", "D3"); got != "Forecast price has been uploaded to CCS" {
		t.Errorf("tracker D3 = %q", got)
	}
}

func TestVariance(t *testing.T) {
	cfg := testConfig(t)
	binder := xlsxBytes(t, []string{"Summary", "Pricing"}, map[string][][]interface{}{
		"Summary": {{"Component"}, {"X1"}},
		"Pricing": {
			{"HPPart", "Spec", "Price", "Volume", "Variance", "Remark"},
			{"X1", "ZZZZ 111", 1, 100, 0.5, "price"},
		},
	})
	rec := httptest.NewRecorder()
	req := multipartRequest(t, "/variance", map[string]string{"specs_dir": cfg.SpecsDir}, part{"file", "binder.xlsx", binder})
	Variance(cfg, zerolog.Nop())(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	wb, err := fileio.ReadWorkbookFrom(bytes.NewReader(rec.Body.Bytes()), "out.xlsx", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(wb.Sheets) != 1 || wb.Sheets[0].Name != "Spec Variances" {
		t.Fatalf("sheets = %+v", wb.Sheets)
	}
	if got := wb.Sheets[0].Rows[0]["Spec Price"]; got != "2.5" {
		t.Fatalf("spec price = %q", got)
	}
}

func TestStatus(t *testing.T) {
	if got := status(errBadRequest); got != http.StatusBadRequest {
		t.Errorf("bad request = %d", got)
	}
	if got := status(&http.MaxBytesError{Limit: 1}); got != http.StatusRequestEntityTooLarge {
		t.Errorf("max bytes = %d", got)
	}
	if got := status(io.ErrUnexpectedEOF); got != http.StatusInternalServerError {
		t.Errorf("other = %d", got)
	}
}

func TestWithin(t *testing.T) {
	root := filepath.Join(t.TempDir(), "pricing")
	absRoot, _ := filepath.Abs(root)
	for _, tc := range []struct {
		in, want string
		bad      bool
	}{
		{in: "", want: root},
		{in: "  ", want: root},
		{in: "Acme", want: filepath.Join(absRoot, "Acme")},
		{in: filepath.Join(root, "Acme", "Quanta"), want: filepath.Join(absRoot, "Acme", "Quanta")},
		{in: root, want: absRoot},
		{in: "Acme/../../..", bad: true},
		{in: "..", bad: true},
		{in: filepath.Dir(root), bad: true},
		{in: root + "-other", bad: true},
	} {
		got, err := within(root, tc.in)
		if tc.bad {
			if status(err) != http.StatusBadRequest {
				t.Errorf("within(%q) = %q, %v; want bad request", tc.in, got, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("within(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
