package ingest

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/repertoire/internal/extract"
	"github.com/mesh-intelligence/repertoire/internal/logger"
	"github.com/mesh-intelligence/repertoire/internal/sqlite"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

var layout = []extract.ColumnPair{{Name: 0, Title: 1}, {Name: 3, Title: 4}, {Name: 6, Title: 7}}

func setupStore(t *testing.T) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Open(context.Background(), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { b.Close() })
	return b
}

func newPipeline(store types.GraphStore) *Pipeline {
	return NewPipeline(store, layout, extract.HeaderMarkers(extract.DefaultHeaderMarkers), logger.NewNop())
}

func counts(t *testing.T, store types.GraphStore) types.Counts {
	t.Helper()
	c, err := store.Counts(context.Background())
	require.NoError(t, err)
	return c
}

// scenarioRows yields (Alice, Piece A), (Bob, Piece A), (Alice, Piece A).
var scenarioRows = Rows{
	{"Есім", "Білетін күйлері"},
	{"Alice", "Piece A", "", "Bob", "Piece A"},
	{" Alice ", "Piece A "},
}

func TestRunRepeatedPair(t *testing.T) {
	store := setupStore(t)
	p := newPipeline(store)

	report, err := p.Run(context.Background(), scenarioRows)
	require.NoError(t, err)

	assert.Equal(t, Report{Processed: 3, Imported: 3}, report)
	assert.Equal(t, types.Counts{People: 2, Pieces: 1, Knows: 2}, counts(t, store))
}

func TestRunIsIdempotent(t *testing.T) {
	store := setupStore(t)
	p := newPipeline(store)

	_, err := p.Run(context.Background(), scenarioRows)
	require.NoError(t, err)
	once := counts(t, store)

	_, err = p.Run(context.Background(), scenarioRows)
	require.NoError(t, err)
	assert.Equal(t, once, counts(t, store))
}

func TestRunRejectedPairsCreateNothing(t *testing.T) {
	store := setupStore(t)
	p := newPipeline(store)

	rows := Rows{
		{"header"},
		{"Есім", "Білетін", "", "Aigerim", "Aigerim Kui", "", "Bob", ""},
		{"", "Orphan piece", "", "   ", "x"},
	}
	report, err := p.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, Report{Processed: 1, Imported: 1, Rejected: 4}, report)
	assert.Equal(t, types.Counts{People: 1, Pieces: 1, Knows: 1}, counts(t, store))

	titles, err := store.ListPieces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Aigerim Kui"}, titles)
}

// flakyStore fails UpsertPiece for one title as an unreachable store would.
type flakyStore struct {
	types.GraphStore
	failTitle string
}

func (f *flakyStore) UpsertPiece(ctx context.Context, title string) (string, error) {
	if title == f.failTitle {
		return "", fmt.Errorf("upserting piece: %w", types.ErrStoreUnavailable)
	}
	return f.GraphStore.UpsertPiece(ctx, title)
}

func TestRunStoreFailureSkipsPair(t *testing.T) {
	store := setupStore(t)
	p := newPipeline(&flakyStore{GraphStore: store, failTitle: "Broken"})

	rows := Rows{
		{"header"},
		{"A", "Kui", "", "B", "Broken", "", "C", "Kui"},
	}
	report, err := p.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, Report{Processed: 3, Imported: 2, Failed: 1}, report)
	c := counts(t, store)
	assert.Equal(t, 1, c.Pieces)
	assert.Equal(t, 2, c.Knows)
}

type unreadable struct{}

func (unreadable) Name() string { return "broken" }

func (unreadable) Candidates(context.Context, *extract.Extractor) (iter.Seq[extract.Pair], error) {
	return nil, os.ErrPermission
}

func TestRunSourceUnreadable(t *testing.T) {
	store := setupStore(t)
	p := newPipeline(store)

	report, err := p.Run(context.Background(), unreadable{})
	assert.ErrorIs(t, err, types.ErrSourceUnreadable)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, Report{}, report)
	assert.Equal(t, types.Counts{}, counts(t, store))

	_, err = p.Run(context.Background(), &CSVFile{Path: filepath.Join(t.TempDir(), "missing.csv")})
	assert.ErrorIs(t, err, types.ErrSourceUnreadable)
}

func TestRunInterrupted(t *testing.T) {
	store := setupStore(t)
	p := newPipeline(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := p.Run(ctx, scenarioRows)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Processed)
}

func TestRunConcurrentOverlappingImports(t *testing.T) {
	store := setupStore(t)

	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			_, err := newPipeline(store).Run(context.Background(), scenarioRows)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, types.Counts{People: 2, Pieces: 1, Knows: 2}, counts(t, store))
}

func TestDryRun(t *testing.T) {
	p := NewPipeline(nil, layout, extract.HeaderMarkers(extract.DefaultHeaderMarkers), nil)

	report, pairs, err := p.DryRun(context.Background(), scenarioRows)
	require.NoError(t, err)
	assert.Equal(t, Report{Processed: 3, DryRun: true}, report)
	assert.Equal(t, []extract.Pair{
		{Name: "Alice", Title: "Piece A"},
		{Name: "Bob", Title: "Piece A"},
		{Name: "Alice", Title: "Piece A"},
	}, pairs)

	_, err = p.Run(context.Background(), scenarioRows)
	assert.Error(t, err)
}

func TestSources(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("h\nAlice,Piece A,,Bob,\"Piece, B\"\nCarol\n"), 0o644))

	xlsxPath := filepath.Join(dir, "people.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Есім", "Білетін"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Alice", "Piece A", nil, "Bob", 2024}))
	require.NoError(t, f.SaveAs(xlsxPath))
	require.NoError(t, f.Close())

	docPath := filepath.Join(dir, "repertoire.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`{"G1":[{"Есім":"Alice","Репертуар":["Piece A",""]},{"Есім":" ","Репертуар":["x"]}],"G2":[{"Есім":"Bob","Репертуар":["Piece B"]}]}`), 0o644))

	tests := []struct {
		path string
		want []extract.Pair
	}{
		{csvPath, []extract.Pair{{Name: "Alice", Title: "Piece A"}, {Name: "Bob", Title: "Piece, B"}}},
		{xlsxPath, []extract.Pair{{Name: "Alice", Title: "Piece A"}, {Name: "Bob", Title: "2024"}}},
		{docPath, []extract.Pair{{Name: "Alice", Title: "Piece A"}, {Name: "Bob", Title: "Piece B"}}},
	}
	for _, tt := range tests {
		t.Run(filepath.Ext(tt.path), func(t *testing.T) {
			src, err := SourceFor(tt.path, "")
			require.NoError(t, err)

			p := newPipeline(nil)
			_, pairs, err := p.DryRun(context.Background(), src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pairs)
		})
	}
}

func TestSourceForUnknownExtension(t *testing.T) {
	_, err := SourceFor("people.ods", "")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestWorkbookMissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	p := newPipeline(nil)
	_, _, err := p.DryRun(context.Background(), &Workbook{Path: path, Sheet: "Missing"})
	assert.ErrorIs(t, err, types.ErrSourceUnreadable)
}
