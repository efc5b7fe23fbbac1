package handler

import (
	"archive/zip"
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"cost-recon/internal/config"
	"cost-recon/internal/fileio"
	"cost-recon/internal/reconcile/model"
	recSvc "cost-recon/internal/reconcile/service"
)

// ComparisonFile is the download name of a quote comparison.
const ComparisonFile = "Quote_Spec_Comparison.xlsx"

const maxMemory = 64 << 20

func requestLogger(r *http.Request, fallback zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &fallback
}

func parseForm(w http.ResponseWriter, r *http.Request, log *zerolog.Logger) bool {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var mbe *http.MaxBytesError
		if !errors.As(err, &mbe) {
			err = eris.Wrapf(errBadRequest, "bad multipart form: %v", err)
		}
		writeError(w, log, err)
		return false
	}
	return true
}

func newEngine(cfg config.Config, r *http.Request, log zerolog.Logger) *recSvc.Engine {
	cls := recSvc.NewClassifier(cfg.Keywords)
	threshold := toFloat(r.FormValue("threshold"), cfg.FuzzyThreshold)
	corpus := fileio.NewDiskCorpus()
	return recSvc.NewEngine(cls, corpus, threshold, log)
}

// Compare prices a quote against the spec catalog and returns the comparison
// workbook. Form: quote (file), sheet, header_row, specs_dir, threshold.
// Folder fields must stay inside the configured roots.
func Compare(cfg config.Config, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := requestLogger(r, logger)
		defer r.Body.Close()
		if !parseForm(w, r, log) {
			return
		}
		quote, err := formUpload(r, "quote")
		if err != nil {
			writeError(w, log, err)
			return
		}
		_, sheet, err := readSheet(quote, r.FormValue("sheet"), atoi(r.FormValue("header_row"), 1))
		if err != nil {
			writeError(w, log, err)
			return
		}

		specsDir, err := within(cfg.SpecsDir, r.FormValue("specs_dir"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		eng := newEngine(cfg, r, *log)
		eng.Progress = progressLog(log, "compare")
		rep, err := eng.Compare(sheet, specsDir)
		if err != nil {
			writeError(w, log, err)
			return
		}
		logSkips(log, rep.Skipped)

		var buf bytes.Buffer
		if err := fileio.WriteReport(&buf, []model.ReportSheet{rep.Matched, rep.Unmatched}); err != nil {
			writeError(w, log, err)
			return
		}
		attachment(w, xlsxType, ComparisonFile, len(rep.Skipped))
		_, _ = w.Write(buf.Bytes())

		log.Info().
			Str("quote", quote.name).
			Int("matched", len(rep.Matched.Sheet.Rows)).
			Int("unmatched", len(rep.Unmatched.Sheet.Rows)).
			Int("skipped", len(rep.Skipped)).
			Dur("elapsed", time.Since(start)).
			Msg("compare done")
	}
}

// CostUpload fills the upload template from a tracker and returns a zip with the
// filled template and the tracker carrying the new procurement comments.
// Form: tracker, site, template (files), sheet, header_row, root.
func CostUpload(cfg config.Config, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := requestLogger(r, logger)
		defer r.Body.Close()
		if !parseForm(w, r, log) {
			return
		}
		uploads := map[string]upload{}
		for _, field := range []string{"tracker", "site", "template"} {
			u, err := formUpload(r, field)
			if err != nil {
				writeError(w, log, err)
				return
			}
			uploads[field] = u
		}
		progress := progressLog(log, "cost-upload")
		progress.Report(5, "reading tracker")

		trackerSheet := r.FormValue("sheet")
		_, tracker, err := readSheet(uploads["tracker"], trackerSheet, atoi(r.FormValue("header_row"), 1))
		if err != nil {
			writeError(w, log, err)
			return
		}
		_, siteSheet, err := readSheet(uploads["site"], "", 1)
		if err != nil {
			writeError(w, log, err)
			return
		}
		sites, err := recSvc.BuildSiteDirectory(siteSheet)
		if err != nil {
			writeError(w, log, err)
			return
		}
		progress.Report(15, "site directory ready")

		root, err := within(cfg.PriceRoot, r.FormValue("root"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		cls := recSvc.NewClassifier(cfg.Keywords)
		resolver := recSvc.NewPriceResolver(cls, fileio.NewDiskCorpus(), root, cfg.ForecastPrice, *log)
		plan, err := resolver.CostUpload(tracker, sites, progress)
		if err != nil {
			writeError(w, log, err)
			return
		}
		logSkips(log, plan.Skipped)

		progress.Report(65, "filling template")
		today := time.Now()
		var zbuf bytes.Buffer
		zw := zip.NewWriter(&zbuf)
		tw, err := zw.Create(fileio.UploadFileName(today))
		if err == nil {
			err = fileio.FillTemplate(uploads["template"].reader(), tw, plan.Lines, today)
		}
		if err != nil {
			writeError(w, log, err)
			return
		}
		annotated := 0
		if fileio.IsXLSX(uploads["tracker"].name) {
			trw, err := zw.Create(uploads["tracker"].name)
			if err == nil {
				annotated, err = fileio.AnnotateTracker(uploads["tracker"].reader(), trw, trackerSheet, plan.Comments)
			}
			if err != nil {
				writeError(w, log, err)
				return
			}
		}
		if err := zw.Close(); err != nil {
			writeError(w, log, eris.Wrap(err, "close zip"))
			return
		}
		progress.Report(100, "cost upload ready")

		attachment(w, "application/zip", "cost-upload-"+today.Format("20060102")+".zip", len(plan.Skipped))
		_, _ = w.Write(zbuf.Bytes())

		log.Info().
			Int("tracker_rows", len(tracker.Rows)).
			Int("lines", len(plan.Lines)).
			Int("annotated", annotated).
			Dur("elapsed", time.Since(start)).
			Msg("cost upload done")
	}
}

// Variance analyses a cost binder and returns the variance workbook.
// Form: file, include_bom, include_spec, specs_dir.
func Variance(cfg config.Config, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := requestLogger(r, logger)
		defer r.Body.Close()
		if !parseForm(w, r, log) {
			return
		}
		file, err := formUpload(r, "file")
		if err != nil {
			writeError(w, log, err)
			return
		}
		wb, _, err := readSheet(file, "", 1)
		if err != nil {
			writeError(w, log, err)
			return
		}

		specsDir, err := within(cfg.SpecsDir, r.FormValue("specs_dir"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		eng := newEngine(cfg, r, *log)
		eng.Progress = progressLog(log, "variance")
		rep, err := eng.Variance(wb, recSvc.VarianceOptions{
			IncludeBOM:  toBool(r.FormValue("include_bom"), true),
			IncludeSpec: toBool(r.FormValue("include_spec"), true),
			SpecsDir:    specsDir,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		skipped := len(rep.Skipped) + len(wb.Skipped)
		logSkips(log, append(wb.Skipped, rep.Skipped...))

		var buf bytes.Buffer
		if err := fileio.WriteReport(&buf, fileio.Plain(recSvc.VarianceSheets(rep)...)); err != nil {
			writeError(w, log, err)
			return
		}
		attachment(w, xlsxType, recSvc.VarianceFileName(time.Now()), skipped)
		_, _ = w.Write(buf.Bytes())

		log.Info().
			Str("file", file.name).
			Str("bom_sheet", rep.BOMSheet).
			Str("price_sheet", rep.PriceSheet).
			Int("bom_variances", len(rep.BOM.Rows)).
			Int("spec_variances", len(rep.Spec.Rows)).
			Dur("elapsed", time.Since(start)).
			Msg("variance done")
	}
}
