package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"cost-recon/internal/fileio"
	"cost-recon/internal/reconcile/model"
	recSvc "cost-recon/internal/reconcile/service"
)

// HeaderSkipped carries the number of files and sheets a batch could not read.
const HeaderSkipped = "X-Skipped-Files"

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// upload is one multipart file held in memory.
type upload struct {
	name string
	data []byte
}

func (u upload) reader() io.Reader { return bytes.NewReader(u.data) }

func formUpload(r *http.Request, field string) (upload, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return upload{}, eris.Wrapf(errBadRequest, "missing %s: %v", field, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return upload{}, eris.Wrapf(err, "read %s", field)
	}
	return upload{name: hdr.Filename, data: b}, nil
}

// readSheet parses an upload and returns the named sheet, or the first one.
func readSheet(u upload, sheet string, headerRow int) (model.Workbook, model.Sheet, error) {
	wb, err := fileio.ReadWorkbookFrom(u.reader(), u.name, headerRow)
	if err != nil {
		return wb, model.Sheet{}, eris.Wrapf(errBadRequest, "%s: %v", u.name, err)
	}
	if len(wb.Sheets) == 0 {
		return wb, model.Sheet{}, eris.Wrapf(recSvc.ErrNoSheets, "%s", u.name)
	}
	if sheet == "" {
		return wb, wb.Sheets[0], nil
	}
	for _, sh := range wb.Sheets {
		if sh.Name == sheet {
			return wb, sh, nil
		}
	}
	return wb, model.Sheet{}, eris.Wrapf(errBadRequest, "%s has no sheet %q", u.name, sheet)
}

var errBadRequest = eris.New("bad request")

// status maps input defects to 400 and everything else to 500.
func status(err error) int {
	for _, target := range []error{
		errBadRequest, recSvc.ErrNoSpecColumn, recSvc.ErrMissingColumns, recSvc.ErrNoSheets,
		fileio.ErrTemplate, fileio.ErrUnsupported,
	} {
		if eris.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	code := status(err)
	evt := log.Warn()
	if code >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).Int("status", code).Msg("request failed")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func attachment(w http.ResponseWriter, contentType, name string, skipped int) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(HeaderSkipped, strconv.Itoa(skipped))
}

// progressLog reports batch progress to the request log.
func progressLog(log *zerolog.Logger, op string) model.ProgressFunc {
	return func(pct int, msg string) {
		log.Debug().Str("op", op).Int("pct", pct).Msg(msg)
	}
}

func logSkips(log *zerolog.Logger, skips model.SkipLog) {
	for _, s := range skips {
		log.Warn().Str("file", s.Path).Str("sheet", s.Sheet).Err(s.Err).Msg("skipped")
	}
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func toBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func toFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// within resolves a folder named by a client against root: blank means root,
// relative values are taken under root, and nothing may point outside it.
func within(root, requested string) (string, error) {
	req := strings.TrimSpace(requested)
	if req == "" {
		return root, nil
	}
	if !filepath.IsAbs(req) {
		req = filepath.Join(root, req)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", eris.Wrapf(err, "resolve %s", root)
	}
	absReq, err := filepath.Abs(req)
	if err != nil {
		return "", eris.Wrapf(errBadRequest, "bad folder %q", requested)
	}
	rel, err := filepath.Rel(absRoot, absReq)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", eris.Wrapf(errBadRequest, "folder %q is outside %s", requested, root)
	}
	return absReq, nil
}
