package model

import (
	"fmt"
	"strings"
	"time"

	"cost-recon/internal/utils"
)

// Record is one spreadsheet row keyed by header. Empty string means a blank cell.
type Record map[string]string

// Sheet is an ordered set of records sharing Columns.
type Sheet struct {
	Name    string
	Columns []string
	Rows    []Record
}

// Workbook is every readable sheet of one spreadsheet file.
type Workbook struct {
	Path    string
	Sheets  []Sheet
	Skipped SkipLog // sheets that could not be read
}

// Clone copies the sheet deep enough that column and cell edits do not leak.
func (s Sheet) Clone() Sheet {
	out := Sheet{Name: s.Name, Columns: append([]string(nil), s.Columns...)}
	out.Rows = make([]Record, len(s.Rows))
	for i, r := range s.Rows {
		c := make(Record, len(r))
		for k, v := range r {
			c[k] = v
		}
		out.Rows[i] = c
	}
	return out
}

func (s Sheet) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Role is the semantic role a header is classified into.
type Role int

const (
	RoleUnclassified Role = iota
	RolePart
	RolePrice
	RoleVolume
	RoleDate
	RoleSpec
	RoleRemark
)

func (r Role) String() string {
	switch r {
	case RolePart:
		return "part"
	case RolePrice:
		return "price"
	case RoleVolume:
		return "volume"
	case RoleDate:
		return "date"
	case RoleSpec:
		return "spec"
	case RoleRemark:
		return "remark"
	default:
		return "unclassified"
	}
}

// YearMonth is a calendar month. The zero value means "undated".
type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) IsZero() bool { return ym.Year == 0 && ym.Month == 0 }

func (ym YearMonth) Before(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

func (ym YearMonth) String() string { return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month)) }

// Column is one classified header.
type Column struct {
	Name string
	Role Role
	Date YearMonth // zero when the header carries no parseable month
}

// SiteInfo is one row of the site directory.
type SiteInfo struct {
	Supplier   string
	ODM        string
	VendorCode string // MS4 vendor code
}

// SiteDirectory is keyed by 4-digit zero-padded site code.
type SiteDirectory map[string]SiteInfo

// MatchCandidate is the outcome of a spec lookup. Found is false for "no match".
type MatchCandidate struct {
	Found      bool
	Row        Record
	File       string
	Sheet      string
	Column     string
	Spec       string // matched spec as it appears in the catalog
	PartNumber string
	HasPart    bool
	Confidence float64
}

// Cost types written to the upload template.
const (
	CostTypeForecast = "NB-F"
	CostTypeAll      = "All"
)

// Sentinels forced when a site only knows its ODM.
const (
	SupplierTBD   = "TBD"
	VendorCodeMHP = "MHP"
)

// PriceResolution is what the price policy reports for one part/site/date.
type PriceResolution struct {
	Price        string
	Supplier     string
	ODM          string
	VendorCode   string
	CostType     string
	SourceFolder string
}

// Skip records one file or sheet the scan could not use.
type Skip struct {
	Path  string
	Sheet string
	Err   error
}

// SkipLog collects per-item failures that did not abort the scan.
type SkipLog []Skip

func (l *SkipLog) Add(path, sheet string, err error) {
	*l = append(*l, Skip{Path: path, Sheet: sheet, Err: err})
}

// ProgressFunc observes batch progress (0..100).
type ProgressFunc func(pct int, msg string)

func (p ProgressFunc) Report(pct int, msg string) {
	if p != nil {
		p(pct, msg)
	}
}

// PriceRank is how a price cell compares with the other prices of its row.
type PriceRank int

const (
	RankNone PriceRank = iota
	RankLowest
	RankHighest
	RankDuplicate // repeated value that is neither lowest nor highest
	RankOther     // single value, all equal, or a unique middle value
)

// CellRank ranks one cell; Row indexes Sheet.Rows.
type CellRank struct {
	Row    int
	Column string
	Rank   PriceRank
}

// ReportSheet is an output sheet plus its presentation hints.
type ReportSheet struct {
	Sheet Sheet
	Bold  []string // columns written in bold
	Ranks []CellRank
}

// UploadLine is one row written to the cost upload template.
type UploadLine struct {
	PartNumber   string
	Description  string
	SiteCode     string
	Supplier     string
	Price        string
	VendorCode   string
	CostType     string
	Comment      string
	SourceFolder string
}

// TrackerKey identifies a tracker row: upper-cased part, padded site, date cell as read.
type TrackerKey struct {
	Part string
	Site string
	Date string
}

func NewTrackerKey(part, site, date string) TrackerKey {
	return TrackerKey{
		Part: strings.ToUpper(strings.TrimSpace(part)),
		Site: utils.PadSiteCode(site),
		Date: strings.TrimSpace(date),
	}
}

// Tracker headers the cost upload reads and annotates.
const (
	TrackerPart     = "PartNumber"
	TrackerSite     = "SiteCode"
	TrackerDate     = "Requested Date"
	TrackerComments = "Comments(Procurement)"
	TrackerDesc     = "Description"
)
