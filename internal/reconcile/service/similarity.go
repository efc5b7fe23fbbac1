package service

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Similarity is the sequence-match ratio 2*LCS/(|a|+|b|) in [0..1].
// With substitution cost 2 the Levenshtein ratio reduces to exactly that.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	return levenshtein.RatioForStrings(ra, rb, levenshtein.DefaultOptions)
}

// similarityBound is the best ratio two strings of these lengths could reach.
func similarityBound(la, lb int) float64 {
	if la+lb == 0 {
		return 1
	}
	return 2 * float64(min(la, lb)) / float64(la+lb)
}

// CombinedScore blends surface similarity with attribute agreement. A strong
// attribute match lifts a weak surface score to at least 0.5.
func CombinedScore(sim, kv float64) float64 {
	score := min(0.7*sim+0.3*kv, 1.0)
	if score < 0.5 && kv > 0.5 {
		score = 0.5 + 0.5*kv
	}
	return score
}

// chunk is one run of non-matching edit operations: a[i1:i2] became b[j1:j2].
type chunk struct {
	i1, i2, j1, j2 int
}

// diffChunks groups the edit script turning a into b into non-matching runs.
func diffChunks(a, b []rune) []chunk {
	script := levenshtein.EditScriptForStrings(a, b, levenshtein.DefaultOptions)
	var (
		out  []chunk
		cur  *chunk
		i, j int
	)
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	for _, op := range script {
		if op == levenshtein.Match {
			flush()
			i++
			j++
			continue
		}
		if cur == nil {
			cur = &chunk{i1: i, i2: i, j1: j, j2: j}
		}
		switch op {
		case levenshtein.Ins:
			j++
		case levenshtein.Del:
			i++
		case levenshtein.Sub:
			i++
			j++
		}
		cur.i2, cur.j2 = i, j
	}
	flush()
	return out
}

// DiffWords compares two specs word by word, ignoring case. It returns the words of
// closest missing from original, and the words of original missing from closest.
func DiffWords(original, closest string) (inClosest, inOriginal string) {
	aw := strings.Fields(original)
	bw := strings.Fields(closest)
	ids := make(map[string]rune)
	encode := func(words []string) ([]rune, []string) {
		rs := make([]rune, len(words))
		low := make([]string, len(words))
		for k, w := range words {
			lw := strings.ToLower(w)
			id, ok := ids[lw]
			if !ok {
				id = rune(len(ids) + 1)
				ids[lw] = id
			}
			rs[k] = id
			low[k] = lw
		}
		return rs, low
	}
	ar, al := encode(aw)
	br, bl := encode(bw)

	var diffA, diffB []string
	for _, c := range diffChunks(ar, br) {
		for k := c.j1; k < c.j2; k++ {
			if !containsStr(al[c.i1:c.i2], bl[k]) {
				diffB = append(diffB, bw[k])
			}
		}
		for k := c.i1; k < c.i2; k++ {
			if !containsStr(bl[c.j1:c.j2], al[k]) {
				diffA = append(diffA, aw[k])
			}
		}
	}
	return strings.Join(diffB, " "), strings.Join(diffA, " ")
}

// DiffChars compares two specs character by character, ignoring case and whitespace.
// Differing characters are reported in their original spelling.
func DiffChars(original, closest string) (inClosest, inOriginal string) {
	aRaw, aNorm := squeeze(original)
	bRaw, bNorm := squeeze(closest)
	var da, db strings.Builder
	for _, c := range diffChunks(aNorm, bNorm) {
		da.WriteString(string(aRaw[c.i1:c.i2]))
		db.WriteString(string(bRaw[c.j1:c.j2]))
	}
	return db.String(), da.String()
}

// squeeze drops whitespace, returning the kept runes as written and lowercased.
func squeeze(s string) (raw, low []rune) {
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		raw = append(raw, r)
		low = append(low, unicode.ToLower(r))
	}
	return raw, low
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
