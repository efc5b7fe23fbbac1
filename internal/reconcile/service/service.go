package service

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"cost-recon/internal/reconcile/model"
)

var (
	// ErrNoSpecColumn: the quote has no column to take query specs from.
	ErrNoSpecColumn = eris.New("no spec column found")
	// ErrMissingColumns: a column the operation cannot run without is absent.
	ErrMissingColumns = eris.New("required columns missing")
	// ErrNoSheets: a workbook had no readable sheet.
	ErrNoSheets = eris.New("workbook has no readable sheet")
)

// Corpus is the read-only file system view the engine scans. Every Open parses
// the workbook again; implementations must not cache across calls.
type Corpus interface {
	Exists(dir string) bool
	ListDirs(dir string) ([]string, error)
	ListWorkbooks(dir string) ([]string, error)
	WalkWorkbooks(dir string) ([]string, error)
	Open(path string) (model.Workbook, error)
}

// Engine runs the linkage passes over one corpus. It keeps no state between calls.
type Engine struct {
	cls       *Classifier
	corpus    Corpus
	threshold float64
	log       zerolog.Logger

	Progress model.ProgressFunc
}

func NewEngine(cls *Classifier, corpus Corpus, threshold float64, log zerolog.Logger) *Engine {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Engine{cls: cls, corpus: corpus, threshold: threshold, log: log}
}

func (e *Engine) Classifier() *Classifier { return e.cls }

// accept is the fuzzy acceptance rule of the append path: strictly above threshold.
func (e *Engine) accept(score float64) bool { return score > e.threshold }

func (e *Engine) skip(log *model.SkipLog, path, sheet string, err error) {
	log.Add(path, sheet, err)
	e.log.Debug().Str("file", path).Str("sheet", sheet).Err(err).Msg("skipped")
}
