package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var rxKeepPrice = regexp.MustCompile(`[^\d\.,]`)

// ParseFloat parses a plain decimal cell ("1.5", " 12 ", "-3e2").
// NaN/Inf spellings are rejected; thousand separators are not accepted.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseQuantity reads quantity tokens like "5K", "1.5k", "1,000 pcs", "250".
// Fractions are truncated toward zero.
func ParseQuantity(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "pcs", "")
	s = strings.ReplaceAll(s, ",", "")
	mult := 1.0
	if strings.Contains(s, "k") {
		s = strings.ReplaceAll(s, "k", "")
		mult = 1000
	}
	f, ok := ParseFloat(s)
	if !ok {
		return 0, false
	}
	v := f * mult
	if math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

var blankTokens = map[string]struct{}{
	"": {}, "nan": {}, "none": {}, "null": {}, "n/a": {}, "-": {},
}

// IsBlank reports cells that only stand in for "no value".
func IsBlank(s string) bool {
	_, ok := blankTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// LooksLikePrice accepts cells whose digits, dots and commas survive as a number
// token ("$1.25", "1,250.00 USD"), and rejects blanks and placeholders.
func LooksLikePrice(s string) bool {
	if IsBlank(s) {
		return false
	}
	clean := rxKeepPrice.ReplaceAllString(strings.TrimSpace(s), "")
	if clean == "" {
		return false
	}
	digits := strings.NewReplacer(".", "", ",", "").Replace(clean)
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PadSiteCode trims and left-pads a site code with zeros to 4 characters.
func PadSiteCode(s string) string {
	s = strings.TrimSpace(s)
	// "12.0" is how numeric cells of some exports come through
	if f, ok := ParseFloat(s); ok && strings.Contains(s, ".") && f == math.Trunc(f) && f >= 0 {
		s = strconv.FormatInt(int64(f), 10)
	}
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}
