package service

import (
	"math"
	"strings"
	"testing"
	"testing/quick"
)

func TestNormalizeSpec(t *testing.T) {
	cases := map[string]string{
		"  cap 10uF ; 25V  ":       "CAP 10UF;25V",
		"size :\u200b 5x6":        "SIZE:5X6",
		"a\tb\n c":                 "A B C",
		"volt\uff1a5&nbsp;V":       "VOLT:5 V",
		"\u202aRES\u202c\u00a01K": "RES 1K",
		"":                         "",
	}
	for in, want := range cases {
		if got := NormalizeSpec(in); got != want {
			t.Errorf("NormalizeSpec(%q) = %q want %q", in, got, want)
		}
	}
}

// Strings built from separators, look-alike spaces and invisible runes.
var normAlphabet = []string{"a", "B", "7", " ", "\t", "\u00a0", "\u202f", ";", ":", "\uff1b", "\u200b", "\u2060", "&nbsp;", "x"}

func TestNormalizeSpecIdempotent(t *testing.T) {
	f := func(picks []uint8) bool {
		var b strings.Builder
		for _, p := range picks {
			b.WriteString(normAlphabet[int(p)%len(normAlphabet)])
		}
		once := NormalizeSpec(b.String())
		return NormalizeSpec(once) == once
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000}); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeSpecEquivalence(t *testing.T) {
	a := NormalizeSpec("Cap 10uF;25V")
	b := NormalizeSpec("  CAP\u00a010UF ;\u200b 25v ")
	if a != b {
		t.Fatalf("%q != %q", a, b)
	}
}

func TestCleanPartNumber(t *testing.T) {
	if got := CleanPartNumber(" ab-12_3 x "); got != "AB123X" {
		t.Fatalf("CleanPartNumber = %q", got)
	}
}

func TestExtractKV(t *testing.T) {
	kv := ExtractKV("SIZE 5X6X3; COLOR:RED")
	if kv["size"] != "5X6X3" || kv["color"] != "RED" || len(kv) != 2 {
		t.Fatalf("ExtractKV = %v", kv)
	}
	if kv := ExtractKV("PLAIN TEXT ONLY"); len(kv) != 0 {
		t.Fatalf("plain text gave %v", kv)
	}
}

func TestKVOverlap(t *testing.T) {
	a := map[string]string{"size": "5X6X3", "color": "RED"}
	b := map[string]string{"SIZE": "5x6x3", "color": "BLUE"}
	if got := KVOverlap(a, b); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("KVOverlap = %v", got)
	}
	if got := KVOverlap(a, nil); got != 0 {
		t.Fatalf("KVOverlap with empty = %v", got)
	}
	if got := KVOverlap(a, a); got != 1 {
		t.Fatalf("KVOverlap self = %v", got)
	}
}
