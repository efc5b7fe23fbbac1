package fileio

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"cost-recon/internal/reconcile/model"
)

// DiskCorpus serves workbooks from the local file system. Nothing is cached:
// every Open parses the file again.
type DiskCorpus struct {
	HeaderRow int
}

func NewDiskCorpus() *DiskCorpus { return &DiskCorpus{HeaderRow: 1} }

func (c *DiskCorpus) Exists(dir string) bool {
	st, err := os.Stat(dir)
	return err == nil && st.IsDir()
}

// ListDirs returns the immediate subdirectories of dir in lexical order.
func (c *DiskCorpus) ListDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "list %s", dir)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// ListWorkbooks returns spreadsheet files directly inside dir, sorted by name.
func (c *DiskCorpus) ListWorkbooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "list %s", dir)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && IsWorkbook(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// WalkWorkbooks returns .xlsx/.xls files anywhere below dir in walk order.
// Unreadable subdirectories are skipped.
func (c *DiskCorpus) WalkWorkbooks(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return fs.SkipDir
		}
		if !d.IsDir() && IsPriceFile(d.Name()) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "walk %s", dir)
	}
	return out, nil
}

func (c *DiskCorpus) Open(path string) (model.Workbook, error) {
	hr := c.HeaderRow
	if hr <= 0 {
		hr = 1
	}
	wb, err := ReadWorkbook(path, hr)
	for i := range wb.Skipped {
		wb.Skipped[i].Path = path
	}
	return wb, err
}
