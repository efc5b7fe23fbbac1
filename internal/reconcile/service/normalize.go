package service

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Space look-alikes that must compare equal to a plain space.
var nbspReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\u202f", " ",
	"\u2007", " ",
	"&nbsp;", " ",
	"\uff1b", ";", // full-width semicolon
	"\uff1a", ":", // full-width colon
)

// Zero-width and bidi control code points carry no meaning in a spec string.
var invisible = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200B, Hi: 0x200F, Stride: 1},
		{Lo: 0x202A, Hi: 0x202E, Stride: 1},
		{Lo: 0x2060, Hi: 0x206F, Stride: 1},
	},
}

var stripInvisible = runes.Remove(runes.In(invisible))

var reSpaceAroundSep = regexp.MustCompile(`\s*([;:])\s*`)

// NormalizeSpec canonicalizes a spec or identifier string. Two strings that differ
// only in whitespace, case, invisible characters or spacing around ';' and ':'
// normalize to the same key. NormalizeSpec(NormalizeSpec(s)) == NormalizeSpec(s).
func NormalizeSpec(s string) string {
	s = nbspReplacer.Replace(s)
	s, _, _ = transform.String(stripInvisible, s)
	s = strings.Join(strings.Fields(s), " ")
	s = reSpaceAroundSep.ReplaceAllString(s, "$1")
	return strings.ToUpper(strings.TrimSpace(s))
}

var partJunk = strings.NewReplacer("-", "", "_", "", " ", "")

// CleanPartNumber folds a part number for exact comparison: "ab-12_3 x" -> "AB123X".
func CleanPartNumber(s string) string {
	return partJunk.Replace(strings.ToUpper(strings.TrimSpace(s)))
}

// foldHeader lowercases a header and drops everything but letters and digits.
func foldHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const wordClass = `[\p{L}\p{N}_]`

var (
	reKVJunk      = regexp.MustCompile(`[^\p{L}\p{N}_\s\.:=xX±*\-]`)
	reKVSpaces    = regexp.MustCompile(`\s+`)
	reKVDimension = regexp.MustCompile(`(` + wordClass + `+)\s*[:=]?\s*([\d\.]+[xX*][\d\.]+(?:[xX*][\d\.]+)?)`)
	reKVPair      = regexp.MustCompile(`(` + wordClass + `+)\s*[:=]\s*([\p{L}\p{N}_\.xX±\-]+)`)
)

// ExtractKV pulls a coarse attribute map out of a normalized spec string:
// dimension tokens ("SIZE 5X6X3") first, then key:value / key=value tokens for keys
// the dimension pass did not claim. Text that matches neither contributes nothing.
func ExtractKV(s string) map[string]string {
	s = reKVJunk.ReplaceAllString(s, "")
	s = reKVSpaces.ReplaceAllString(s, " ")

	kv := make(map[string]string)
	for _, m := range reKVDimension.FindAllStringSubmatch(s, -1) {
		kv[strings.ToLower(m[1])] = strings.ToUpper(strings.ReplaceAll(m[2], " ", ""))
	}
	for _, m := range reKVPair.FindAllStringSubmatch(s, -1) {
		k := strings.ToLower(m[1])
		if _, ok := kv[k]; ok {
			continue
		}
		kv[k] = strings.ToUpper(strings.ReplaceAll(m[2], " ", ""))
	}
	return kv
}

// KVOverlap is the share of the key union whose values agree (case-insensitive).
func KVOverlap(a, b map[string]string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	la := lowerKV(a)
	lb := lowerKV(b)
	keys := make(map[string]struct{}, len(la)+len(lb))
	for k := range la {
		keys[k] = struct{}{}
	}
	for k := range lb {
		keys[k] = struct{}{}
	}
	matches := 0
	for k := range keys {
		v1, v2 := la[k], lb[k]
		if v1 != "" && v2 != "" && v1 == v2 {
			matches++
		}
	}
	return float64(matches) / float64(len(keys))
}

func lowerKV(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
