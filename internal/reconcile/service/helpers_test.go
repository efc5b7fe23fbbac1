package service

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"cost-recon/internal/config"
	"cost-recon/internal/reconcile/model"
)

// memCorpus is an in-memory Corpus that counts how often each workbook is opened.
type memCorpus struct {
	dirs   map[string][]string
	files  map[string]model.Workbook
	opened map[string]int
}

func newMemCorpus() *memCorpus {
	return &memCorpus{
		dirs:   map[string][]string{},
		files:  map[string]model.Workbook{},
		opened: map[string]int{},
	}
}

// addFile registers a workbook and every parent directory up to the first element.
func (c *memCorpus) addFile(path string, sheets ...model.Sheet) {
	c.files[path] = model.Workbook{Path: path, Sheets: sheets}
	for dir := filepath.Dir(path); dir != "." && dir != "/"; dir = filepath.Dir(dir) {
		parent := filepath.Dir(dir)
		if _, ok := c.dirs[dir]; !ok {
			c.dirs[dir] = nil
		}
		if parent != "." && parent != "/" && !containsStr(c.dirs[parent], dir) {
			c.dirs[parent] = append(c.dirs[parent], dir)
		}
	}
}

func (c *memCorpus) Exists(dir string) bool {
	_, ok := c.dirs[dir]
	return ok
}

func (c *memCorpus) ListDirs(dir string) ([]string, error) {
	subs, ok := c.dirs[dir]
	if !ok {
		return nil, eris.Errorf("no such dir %s", dir)
	}
	out := append([]string(nil), subs...)
	sort.Strings(out)
	return out, nil
}

func (c *memCorpus) ListWorkbooks(dir string) ([]string, error) {
	if !c.Exists(dir) {
		return nil, eris.Errorf("no such dir %s", dir)
	}
	var out []string
	for p := range c.files {
		if filepath.Dir(p) == dir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *memCorpus) WalkWorkbooks(dir string) ([]string, error) {
	if !c.Exists(dir) {
		return nil, eris.Errorf("no such dir %s", dir)
	}
	var out []string
	for p := range c.files {
		if strings.HasPrefix(p, dir+"/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *memCorpus) Open(path string) (model.Workbook, error) {
	c.opened[path]++
	wb, ok := c.files[path]
	if !ok {
		return model.Workbook{Path: path}, eris.Errorf("no such file %s", path)
	}
	return wb, nil
}

func testClassifier() *Classifier { return NewClassifier(config.DefaultKeywords()) }

func testEngine(c Corpus) *Engine {
	return NewEngine(testClassifier(), c, 0.85, zerolog.Nop())
}

func sheet(name string, cols []string, rows ...[]string) model.Sheet {
	sh := model.Sheet{Name: name, Columns: cols}
	for _, r := range rows {
		rec := make(model.Record, len(cols))
		for i, c := range cols {
			if i < len(r) {
				rec[c] = r[i]
			} else {
				rec[c] = ""
			}
		}
		sh.Rows = append(sh.Rows, rec)
	}
	return sh
}
