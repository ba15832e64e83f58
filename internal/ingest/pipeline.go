// Package ingest loads (name, title) pairs from spreadsheet exports and
// group documents into a GraphStore.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/repertoire/internal/extract"
	"github.com/mesh-intelligence/repertoire/internal/logger"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// Report summarizes one run. Processed counts extracted pairs; each is
// either Imported or Failed. Rejected counts candidates dropped by the
// extractor and is not part of Processed.
type Report struct {
	Processed int  `json:"processed"`
	Imported  int  `json:"imported"`
	Failed    int  `json:"failed"`
	Rejected  int  `json:"rejected"`
	DryRun    bool `json:"dryRun,omitempty"`
}

// Pipeline drives extraction and the per-pair upserts.
type Pipeline struct {
	store  types.GraphStore
	layout []extract.ColumnPair
	reject extract.RejectFunc
	log    *logger.Logger
}

// NewPipeline returns a pipeline writing to store. store may be nil for a
// pipeline used only for DryRun.
func NewPipeline(store types.GraphStore, layout []extract.ColumnPair, reject extract.RejectFunc, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{store: store, layout: layout, reject: reject, log: log}
}

func (p *Pipeline) extractor(report *Report) *extract.Extractor {
	x := extract.New(p.layout, p.reject)
	x.OnReject = func(r extract.Rejection) {
		report.Rejected++
		p.log.Debug("candidate rejected", "row", r.Row, "columns", r.Pair.String(), "reason", string(r.Reason), "detail", r.Detail)
	}
	return x
}

// Run ingests src. A source that cannot be read fails the run with
// ErrSourceUnreadable before any pair is processed. Store failures on a
// pair are logged and counted; the run goes on. Cancelling ctx stops the
// run between pairs and returns the partial report with ctx's error.
func (p *Pipeline) Run(ctx context.Context, src Source) (Report, error) {
	if p.store == nil {
		return Report{}, fmt.Errorf("ingest: no store configured")
	}
	start := time.Now()
	var report Report
	pairs, err := src.Candidates(ctx, p.extractor(&report))
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", types.ErrSourceUnreadable, src.Name(), err)
	}

	log := p.log.With("source", src.Name())
	for pair := range pairs {
		if err := ctx.Err(); err != nil {
			log.Warn("import interrupted", "processed", report.Processed)
			return report, err
		}
		report.Processed++
		if err := p.importPair(ctx, pair); err != nil {
			report.Failed++
			log.Warn("pair failed", "name", pair.Name, "title", pair.Title, "error", err)
			continue
		}
		report.Imported++
	}

	log.Info("import finished",
		"processed", report.Processed,
		"imported", report.Imported,
		"failed", report.Failed,
		"rejected", report.Rejected,
		"elapsed", time.Since(start))
	return report, nil
}

func (p *Pipeline) importPair(ctx context.Context, pair extract.Pair) error {
	personID, err := p.store.UpsertPerson(ctx, pair.Name)
	if err != nil {
		return err
	}
	pieceID, err := p.store.UpsertPiece(ctx, pair.Title)
	if err != nil {
		return err
	}
	return p.store.LinkKnows(ctx, personID, pieceID)
}

// DryRun extracts src without touching the store and returns the pairs a
// Run would process.
func (p *Pipeline) DryRun(ctx context.Context, src Source) (Report, []extract.Pair, error) {
	report := Report{DryRun: true}
	seq, err := src.Candidates(ctx, p.extractor(&report))
	if err != nil {
		return Report{}, nil, fmt.Errorf("%w: %s: %w", types.ErrSourceUnreadable, src.Name(), err)
	}
	var pairs []extract.Pair
	for pair := range seq {
		if err := ctx.Err(); err != nil {
			return report, pairs, err
		}
		pairs = append(pairs, pair)
		report.Processed++
	}
	return report, pairs, nil
}
