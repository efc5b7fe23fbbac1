package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	excelize "github.com/xuri/excelize/v2"

	"cost-recon/internal/reconcile/model"
)

// Header grammars in the order they are tried. Only the first hit of each pattern
// is considered; a hit whose word is not a month falls through to the next pattern.
var headerDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Za-z]+)\s+(\d{4})`),     // "JULY 2025"
	regexp.MustCompile(`([A-Za-z]+)'(\d{4})\.`),     // "July'2025."
	regexp.MustCompile(`([A-Za-z]+)'(\d{4})`),       // "july'2022"
	regexp.MustCompile(`([A-Za-z]+)\s+'(\d{4})`),    // "july '2023"
	regexp.MustCompile(`([A-Za-z]+)\.(\d{4})\s*\.`), // "may.2025 ."
	regexp.MustCompile(`([A-Za-z]+)\.(\d{4})`),      // "July.2025"
	regexp.MustCompile(`([A-Za-z]+)(\d{4})`),        // "jul2025"
	regexp.MustCompile(`([A-Za-z]+)\s+(\d{4})\.`),   // "July 2025."
	regexp.MustCompile(`([A-Za-z]+)\s+'(\d{4})\.`),  // "July '2025."
}

// Observed misspellings and non-standard abbreviations.
var monthTypos = map[string]time.Month{
	"NOBEMBER": time.November,
	"SEPT":     time.September,
}

// monthFromName resolves full month names, then 3-letter abbreviations, then typos.
func monthFromName(name string) (time.Month, bool) {
	up := strings.ToUpper(strings.TrimSpace(name))
	if up == "" {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		if strings.ToUpper(m.String()) == up {
			return m, true
		}
	}
	for m := time.January; m <= time.December; m++ {
		if strings.ToUpper(m.String()[:3]) == up {
			return m, true
		}
	}
	m, ok := monthTypos[up]
	return m, ok
}

// pivotYear maps a two-digit year: < 50 is 20xx, otherwise 19xx.
// Longer tokens are taken as written.
func pivotYear(tok string) (int, bool) {
	y, err := strconv.Atoi(tok)
	if err != nil || y < 0 {
		return 0, false
	}
	if len(tok) <= 2 {
		if y < 50 {
			return y + 2000, true
		}
		return y + 1900, true
	}
	return y, true
}

// HeaderDate extracts the month a column header refers to ("Feb 2025 Cost").
func HeaderDate(header string) (model.YearMonth, bool) {
	for _, re := range headerDatePatterns {
		m := re.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		month, ok := monthFromName(m[1])
		if !ok {
			continue
		}
		year, ok := pivotYear(m[2])
		if !ok {
			continue
		}
		return model.YearMonth{Year: year, Month: month}, true
	}
	return model.YearMonth{}, false
}

var (
	reShortYear = regexp.MustCompile(`([A-Za-z]+)[\s'.]*(\d{2})\b`)
	reISOMonth  = regexp.MustCompile(`(\d{4})[-/](\d{1,2})`)
)

// ColumnDate is the looser variant used on quote price headers: on top of
// HeaderDate it accepts "May'25" / "May 25" and "2025-05".
func ColumnDate(header string) (model.YearMonth, bool) {
	if ym, ok := HeaderDate(header); ok {
		return ym, true
	}
	for _, m := range reShortYear.FindAllStringSubmatch(header, -1) {
		month, ok := monthFromName(m[1])
		if !ok {
			continue
		}
		if year, ok := pivotYear(m[2]); ok {
			return model.YearMonth{Year: year, Month: month}, true
		}
	}
	if m := reISOMonth.FindStringSubmatch(header); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			return model.YearMonth{Year: year, Month: time.Month(month)}, true
		}
	}
	return model.YearMonth{}, false
}

// OldestFolderDate is assigned to folders whose name carries no date.
var OldestFolderDate = model.YearMonth{Year: 1900, Month: time.January}

// FolderDate parses date folder names of the form MON'YY ("JAN'25", "JANUARY'25").
// Any other name dates to OldestFolderDate and reports false.
func FolderDate(name string) (model.YearMonth, bool) {
	parts := strings.Split(name, "'")
	if len(parts) != 2 {
		return OldestFolderDate, false
	}
	month, ok := monthFromName(parts[0])
	if !ok {
		return OldestFolderDate, false
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" || len(tok) == 3 || len(tok) > 4 {
		return OldestFolderDate, false
	}
	year, ok := pivotYear(tok)
	if !ok {
		return OldestFolderDate, false
	}
	return model.YearMonth{Year: year, Month: month}, true
}

var requestedLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-06",
	"2006/01/02",
	"02-Jan-2006",
	"02-Jan-06",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2006",
	"January 2006",
}

// ParseRequestedDate reads a tracker date cell: an Excel serial number or a
// common textual layout. Blank and unparseable cells report false.
func ParseRequestedDate(cell string) (time.Time, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > 2958465 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range requestedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
