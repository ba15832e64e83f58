package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/repertoire/internal/extract"
	"github.com/mesh-intelligence/repertoire/internal/ingest"
)

type importFlags struct {
	dryRun bool
	sheet  string
}

func newImportCmd(a *app) *cobra.Command {
	var f importFlags
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a spreadsheet export or group document",
		Long: "Import (name, title) pairs into the store. The file type selects the\n" +
			"reader: .xlsx/.xlsm and .csv use the configured column layout, .json is\n" +
			"read as a group document.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args[0], f)
		},
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "extract and list pairs without writing")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "workbook sheet (default: ingest.sheet or the first sheet)")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, path string, f importFlags) error {
	s := a.settings
	sheet := f.sheet
	if sheet == "" {
		sheet = s.Sheet
	}
	src, err := ingest.SourceFor(path, sheet)
	if err != nil {
		return err
	}
	reject := extract.HeaderMarkers(s.HeaderMarkers)
	a.log.Debug("column layout", "pairs", extract.FormatPairs(s.ColumnPairs))

	if f.dryRun {
		report, pairs, err := ingest.NewPipeline(nil, s.ColumnPairs, reject, a.log).DryRun(cmd.Context(), src)
		if err != nil {
			return err
		}
		out := struct {
			Report ingest.Report  `json:"report"`
			Pairs  []extract.Pair `json:"pairs"`
		}{report, pairs}
		return a.output(cmd.OutOrStdout(), out, func(w io.Writer) {
			for _, p := range pairs {
				fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Title)
			}
			fmt.Fprintf(w, "Would import %d pairs (%d rejected)\n", report.Processed, report.Rejected)
		})
	}

	store, err := openStore(cmd.Context(), s.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	report, err := ingest.NewPipeline(store, s.ColumnPairs, reject, a.log).Run(cmd.Context(), src)
	if err != nil {
		return err
	}
	return a.output(cmd.OutOrStdout(), report, func(w io.Writer) {
		fmt.Fprintf(w, "Processed %d pairs: %d imported, %d failed, %d rejected\n",
			report.Processed, report.Imported, report.Failed, report.Rejected)
	})
}
