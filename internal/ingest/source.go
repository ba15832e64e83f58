package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/repertoire/internal/extract"
	"github.com/mesh-intelligence/repertoire/internal/snapshot"
)

// ErrUnsupportedSource is returned by SourceFor for unknown file types.
var ErrUnsupportedSource = errors.New("unsupported source file type")

// Source produces the candidate pairs of one run. Candidates reads the whole
// input before returning, so an unreadable source fails before any pair is
// processed.
type Source interface {
	Name() string
	Candidates(ctx context.Context, x *extract.Extractor) (iter.Seq[extract.Pair], error)
}

// SourceFor picks a source by file extension: .xlsx/.xlsm, .csv or .json
// (a group document). sheet selects the workbook sheet; empty means the
// first one.
func SourceFor(path, sheet string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return &Workbook{Path: path, Sheet: sheet}, nil
	case ".csv":
		return &CSVFile{Path: path}, nil
	case ".json":
		return &DocumentFile{Path: path}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
}

// Rows is an in-memory row matrix.
type Rows [][]any

func (r Rows) Name() string { return "rows" }

func (r Rows) Candidates(_ context.Context, x *extract.Extractor) (iter.Seq[extract.Pair], error) {
	return x.Extract(r), nil
}

// Workbook reads one sheet of an Excel workbook.
type Workbook struct {
	Path  string
	Sheet string
}

func (w *Workbook) Name() string { return w.Path }

func (w *Workbook) Candidates(_ context.Context, x *extract.Extractor) (iter.Seq[extract.Pair], error) {
	f, err := excelize.OpenFile(w.Path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", w.Path)
		}
		sheet = sheets[0]
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return x.Extract(toRows(cells)), nil
}

// CSVFile reads a comma-separated export. Rows may have different lengths.
type CSVFile struct {
	Path string
}

func (c *CSVFile) Name() string { return c.Path }

func (c *CSVFile) Candidates(_ context.Context, x *extract.Extractor) (iter.Seq[extract.Pair], error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var cells [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		cells = append(cells, rec)
	}
	return x.Extract(toRows(cells)), nil
}

func toRows(cells [][]string) [][]any {
	rows := make([][]any, len(cells))
	for i, rec := range cells {
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		rows[i] = row
	}
	return rows
}

// DocumentFile reads a group document and yields every (participant, piece)
// of every group in document order. The document has no header row.
type DocumentFile struct {
	Path string
}

func (d *DocumentFile) Name() string { return d.Path }

func (d *DocumentFile) Candidates(_ context.Context, x *extract.Extractor) (iter.Seq[extract.Pair], error) {
	doc, err := snapshot.ReadFile(d.Path)
	if err != nil {
		return nil, err
	}
	return DocumentPairs(doc, x), nil
}

// Document is an in-memory group document.
type Document struct {
	Doc *snapshot.Document
}

func (d Document) Name() string { return "document" }

func (d Document) Candidates(_ context.Context, x *extract.Extractor) (iter.Seq[extract.Pair], error) {
	return DocumentPairs(d.Doc, x), nil
}

// DocumentPairs yields the valid pairs of doc. Entry numbers in rejections
// count (participant, piece) entries from zero.
func DocumentPairs(doc *snapshot.Document, x *extract.Extractor) iter.Seq[extract.Pair] {
	return func(yield func(extract.Pair) bool) {
		n := 0
		doc.Pairs(func(name, title string) bool {
			defer func() { n++ }()
			p, ok := x.Candidate(n, name, title)
			if !ok {
				return true
			}
			return yield(p)
		})
	}
}
