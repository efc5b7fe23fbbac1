package service

import (
	"testing"
	"time"

	"cost-recon/internal/reconcile/model"
)

func TestHeaderDateGrammars(t *testing.T) {
	headers := []string{
		"JULY 2025",
		"July'2025.",
		"july'2025",
		"july '2025",
		"july.2025 .",
		"July.2025",
		"jul2025",
		"July 2025.",
		"July '2025.",
		"Jul 2025 Price",
	}
	for _, h := range headers {
		ym, ok := HeaderDate(h)
		if !ok || ym != (model.YearMonth{Year: 2025, Month: time.July}) {
			t.Errorf("HeaderDate(%q) = %v,%v", h, ym, ok)
		}
	}
	for _, h := range []string{"Price", "Part 2025", "Remark", ""} {
		if ym, ok := HeaderDate(h); ok {
			t.Errorf("HeaderDate(%q) = %v, want none", h, ym)
		}
	}
}

func TestHeaderDateTypos(t *testing.T) {
	if ym, ok := HeaderDate("Nobember 2024 Cost"); !ok || ym.Month != time.November {
		t.Fatalf("Nobember = %v,%v", ym, ok)
	}
	if ym, ok := HeaderDate("Sept 2024"); !ok || ym.Month != time.September {
		t.Fatalf("Sept = %v,%v", ym, ok)
	}
}

func TestColumnDate(t *testing.T) {
	cases := map[string]model.YearMonth{
		"May'25 Cost":   {Year: 2025, Month: time.May},
		"2025-03 Price": {Year: 2025, Month: time.March},
		"Feb 2024 Cost": {Year: 2024, Month: time.February},
	}
	for h, want := range cases {
		if got, ok := ColumnDate(h); !ok || got != want {
			t.Errorf("ColumnDate(%q) = %v,%v want %v", h, got, ok, want)
		}
	}
}

func TestFolderDate(t *testing.T) {
	cases := []struct {
		name string
		want model.YearMonth
		ok   bool
	}{
		{"JAN'25", model.YearMonth{Year: 2025, Month: time.January}, true},
		{"JANUARY'25", model.YearMonth{Year: 2025, Month: time.January}, true},
		{"Mar'2024", model.YearMonth{Year: 2024, Month: time.March}, true},
		{"DEC'49", model.YearMonth{Year: 2049, Month: time.December}, true},
		{"DEC'50", model.YearMonth{Year: 1950, Month: time.December}, true},
		{"JAN'202", OldestFolderDate, false},
		{"Archive", OldestFolderDate, false},
		{"FOO'25", OldestFolderDate, false},
	}
	for _, c := range cases {
		got, ok := FolderDate(c.name)
		if got != c.want || ok != c.ok {
			t.Errorf("FolderDate(%q) = %v,%v want %v,%v", c.name, got, ok, c.want, c.ok)
		}
	}
}

func TestPivotYear(t *testing.T) {
	for tok, want := range map[string]int{"49": 2049, "50": 1950, "00": 2000, "2031": 2031} {
		if got, ok := pivotYear(tok); !ok || got != want {
			t.Errorf("pivotYear(%q) = %d,%v want %d", tok, got, ok, want)
		}
	}
}

func TestParseRequestedDate(t *testing.T) {
	cases := map[string]time.Month{
		"2025-03-15":          time.March,
		"2025-03-15 00:00:00": time.March,
		"3/15/2025":           time.March,
		"15-Mar-2025":         time.March,
		"45000":               time.March, // Excel serial for 2023-03-15
	}
	for in, want := range cases {
		got, ok := ParseRequestedDate(in)
		if !ok || got.Month() != want {
			t.Errorf("ParseRequestedDate(%q) = %v,%v", in, got, ok)
		}
	}
	for _, in := range []string{"", "  ", "soon", "-3"} {
		if got, ok := ParseRequestedDate(in); ok {
			t.Errorf("ParseRequestedDate(%q) = %v, want failure", in, got)
		}
	}
}
