// Command costlink runs the batch jobs from a shell: quote comparison, cost upload
// and variance analysis.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"cost-recon/internal/config"
	"cost-recon/internal/fileio"
	"cost-recon/internal/reconcile/model"
	recSvc "cost-recon/internal/reconcile/service"
)

const usage = `usage: costlink <command> [flags]

commands:
  compare   -quote FILE [-sheet NAME] [-specs DIR] [-out FILE]
  upload    -tracker FILE -site FILE -template FILE [-sheet NAME] [-root DIR]
  variance  -file FILE [-specs DIR] [-bom=true] [-spec=true]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()
	logger := config.SetupLogger(cfg)
	kw, err := config.LoadKeywords(cfg.KeywordsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("keywords")
	}
	cfg.Keywords = kw

	args := os.Args[2:]
	switch os.Args[1] {
	case "compare":
		err = runCompare(cfg, logger, args)
	case "upload":
		err = runUpload(cfg, logger, args)
	case "variance":
		err = runVariance(cfg, logger, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error().Err(err).Str("cmd", os.Args[1]).Msg("failed")
		os.Exit(1)
	}
}

func progress(logger zerolog.Logger) model.ProgressFunc {
	return func(pct int, msg string) {
		logger.Info().Int("pct", pct).Msg(msg)
	}
}

func pickSheet(wb model.Workbook, name string) (model.Sheet, error) {
	if len(wb.Sheets) == 0 {
		return model.Sheet{}, eris.Wrapf(recSvc.ErrNoSheets, "%s", wb.Path)
	}
	if name == "" {
		return wb.Sheets[0], nil
	}
	for _, sh := range wb.Sheets {
		if sh.Name == name {
			return sh, nil
		}
	}
	return model.Sheet{}, eris.Errorf("%s has no sheet %q", wb.Path, name)
}

func runCompare(cfg config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	quote := fs.String("quote", "", "quote workbook")
	sheet := fs.String("sheet", "", "quote sheet (default: first)")
	specs := fs.String("specs", cfg.SpecsDir, "spec catalog folder")
	out := fs.String("out", "Quote_Spec_Comparison.xlsx", "output workbook")
	_ = fs.Parse(args)
	if *quote == "" {
		return eris.New("compare: -quote is required")
	}

	wb, err := fileio.ReadWorkbook(*quote, 1)
	if err != nil {
		return err
	}
	sh, err := pickSheet(wb, *sheet)
	if err != nil {
		return err
	}
	eng := recSvc.NewEngine(recSvc.NewClassifier(cfg.Keywords), fileio.NewDiskCorpus(), cfg.FuzzyThreshold, logger)
	eng.Progress = progress(logger)
	rep, err := eng.Compare(sh, *specs)
	if err != nil {
		return err
	}
	for _, s := range rep.Skipped {
		logger.Warn().Str("file", s.Path).Str("sheet", s.Sheet).Err(s.Err).Msg("skipped")
	}
	if err := fileio.SaveReport(*out, []model.ReportSheet{rep.Matched, rep.Unmatched}); err != nil {
		return err
	}
	logger.Info().Str("out", *out).Int("matched", len(rep.Matched.Sheet.Rows)).
		Int("unmatched", len(rep.Unmatched.Sheet.Rows)).Msg("done")
	return nil
}

func runUpload(cfg config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	trackerPath := fs.String("tracker", "", "media tracker workbook")
	sheet := fs.String("sheet", "", "tracker sheet (default: first)")
	sitePath := fs.String("site", "", "site info workbook")
	templatePath := fs.String("template", "", "cost upload template")
	root := fs.String("root", cfg.PriceRoot, "price folder root")
	_ = fs.Parse(args)
	if *trackerPath == "" || *sitePath == "" || *templatePath == "" {
		return eris.New("upload: -tracker, -site and -template are required")
	}

	twb, err := fileio.ReadWorkbook(*trackerPath, 1)
	if err != nil {
		return err
	}
	tracker, err := pickSheet(twb, *sheet)
	if err != nil {
		return err
	}
	swb, err := fileio.ReadWorkbook(*sitePath, 1)
	if err != nil {
		return err
	}
	siteSheet, err := pickSheet(swb, "")
	if err != nil {
		return err
	}
	sites, err := recSvc.BuildSiteDirectory(siteSheet)
	if err != nil {
		return err
	}

	resolver := recSvc.NewPriceResolver(recSvc.NewClassifier(cfg.Keywords), fileio.NewDiskCorpus(), *root, cfg.ForecastPrice, logger)
	plan, err := resolver.CostUpload(tracker, sites, progress(logger))
	if err != nil {
		return err
	}

	today := time.Now()
	out := filepath.Join(filepath.Dir(*templatePath), fileio.UploadFileName(today))
	if err := fillTemplateFile(*templatePath, out, plan.Lines, today); err != nil {
		return err
	}
	if fileio.IsXLSX(*trackerPath) {
		n, err := annotateTrackerFile(*trackerPath, *sheet, plan.Comments)
		if err != nil {
			return err
		}
		logger.Info().Int("rows", n).Msg("tracker comments updated")
	}
	logger.Info().Str("out", out).Int("lines", len(plan.Lines)).Msg("done")
	return nil
}

func fillTemplateFile(src, dst string, lines []model.UploadLine, today time.Time) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrap(err, "open template")
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrap(err, "create upload file")
	}
	if err := fileio.FillTemplate(in, out, lines, today); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// annotateTrackerFile rewrites the tracker in place through a sibling temp file.
func annotateTrackerFile(path, sheet string, comments map[model.TrackerKey]string) (int, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrap(err, "open tracker")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tracker-*.xlsx")
	if err != nil {
		in.Close()
		return 0, eris.Wrap(err, "temp file")
	}
	n, err := fileio.AnnotateTracker(in, tmp, sheet, comments)
	in.Close()
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, os.Rename(tmp.Name(), path)
}

func runVariance(cfg config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("variance", flag.ExitOnError)
	file := fs.String("file", "", "cost binder workbook")
	specs := fs.String("specs", "", "spec catalog folder (default: "+recSvc.DefaultSpecsFolder+" three levels up)")
	bom := fs.Bool("bom", true, "include BOM variances")
	spec := fs.Bool("spec", true, "include spec variances")
	_ = fs.Parse(args)
	if *file == "" {
		return eris.New("variance: -file is required")
	}
	if *specs == "" {
		*specs = recSvc.SpecsDirFor(*file)
	}

	wb, err := fileio.ReadWorkbook(*file, 1)
	if err != nil {
		return err
	}
	eng := recSvc.NewEngine(recSvc.NewClassifier(cfg.Keywords), fileio.NewDiskCorpus(), cfg.FuzzyThreshold, logger)
	eng.Progress = progress(logger)
	rep, err := eng.Variance(wb, recSvc.VarianceOptions{IncludeBOM: *bom, IncludeSpec: *spec, SpecsDir: *specs})
	if err != nil {
		return err
	}
	out := filepath.Join(filepath.Dir(*file), recSvc.VarianceFileName(time.Now()))
	if err := fileio.SaveReport(out, fileio.Plain(recSvc.VarianceSheets(rep)...)); err != nil {
		return err
	}
	logger.Info().Str("out", out).Int("bom_variances", len(rep.BOM.Rows)).
		Int("spec_variances", len(rep.Spec.Rows)).Msg("done")
	return nil
}
