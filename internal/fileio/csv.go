package fileio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"cost-recon/internal/reconcile/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// legacyCharsets maps chardet names to decoders for the code pages vendor
// exports actually arrive in.
var legacyCharsets = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.Windows1252,
	"windows-1251": charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
	"koi8-r":       charmap.KOI8R,
}

// decodeCSV returns a UTF-8 view of br. A BOM or a valid UTF-8 prefix settles it;
// only otherwise is chardet consulted.
func decodeCSV(br *bufio.Reader) io.Reader {
	peek, _ := br.Peek(4096)
	if bytes.HasPrefix(peek, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		return br
	}
	if len(peek) == 0 || utf8.Valid(trimPartialRune(peek)) {
		return br
	}
	det, err := chardet.NewTextDetector().DetectBest(peek)
	if err != nil || det == nil {
		return br
	}
	if enc, ok := legacyCharsets[strings.ToLower(det.Charset)]; ok {
		return transform.NewReader(br, enc.NewDecoder())
	}
	return br
}

// trimPartialRune drops a multi-byte sequence cut off by the peek window.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.RuneStart(b[len(b)-1-i]) {
			if !utf8.FullRune(b[len(b)-1-i:]) {
				return b[:len(b)-1-i]
			}
			break
		}
	}
	return b
}

// sniffDelimiter picks ',', ';' or tab by which occurs most on the first line.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	best, bestN := ',', bytes.Count(peek, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(peek, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// readCSV reads one CSV sheet with headers on headerRow (1-based).
func readCSV(r io.Reader, headerRow int) (model.Workbook, error) {
	utf := bufio.NewReader(decodeCSV(bufio.NewReader(r)))

	cr := csv.NewReader(utf)
	cr.Comma = sniffDelimiter(utf)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return model.Workbook{}, err
	}
	if len(rows) == 0 {
		return model.Workbook{}, nil
	}
	return model.Workbook{Sheets: []model.Sheet{toSheet("Sheet1", rows, headerRow)}}, nil
}
