package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

func newSearchCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "search <substring>",
		Short: "List people who know a piece whose title contains substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cache, err := a.openReadPath(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			results, origin, err := a.engine(store, cache).Search(cmd.Context(), args[0], count)
			if err != nil {
				return err
			}
			a.log.Debug("search answered", "origin", string(origin), "results", len(results))
			return a.output(cmd.OutOrStdout(), results, func(w io.Writer) {
				for _, r := range results {
					fmt.Fprintln(w, r.Name)
				}
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", types.DefaultSearchLimit, "maximum number of results")
	return cmd
}

func newPiecesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pieces",
		Short: "List every distinct piece title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cache, err := a.openReadPath(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			titles, _, err := a.engine(store, cache).ListPieces(cmd.Context())
			if err != nil {
				return err
			}
			refs := make([]types.PieceRef, len(titles))
			for i, t := range titles {
				refs[i] = types.PieceRef{Title: t}
			}
			return a.output(cmd.OutOrStdout(), refs, func(w io.Writer) {
				for _, t := range titles {
					fmt.Fprintln(w, t)
				}
			})
		},
	}
}
