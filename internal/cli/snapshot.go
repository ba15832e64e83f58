package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/repertoire/internal/snapshot"
	"github.com/mesh-intelligence/repertoire/internal/textnorm"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Maintain the snapshot group document",
	}
	cmd.AddCommand(newSnapshotCleanCmd(a))
	cmd.AddCommand(newSnapshotAddCmd(a))
	return cmd
}

func newSnapshotCleanCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Merge duplicate participants, apply title aliases and drop repeated pieces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.settings.SnapshotPath
			doc, err := snapshot.ReadFile(path)
			if err != nil {
				return err
			}
			report := doc.Clean(a.settings.Aliases)
			if !dryRun {
				if err := snapshot.WriteFile(path, doc); err != nil {
					return err
				}
			}
			a.log.Info("snapshot cleaned", "path", path, "merged", report.Merged, "aliased", report.Aliased, "duplicates", report.Duplicates)
			return a.output(cmd.OutOrStdout(), report, func(w io.Writer) {
				fmt.Fprintf(w, "Merged %d participants, fixed %d titles, removed %d duplicates, dropped %d empty entries\n",
					report.Merged, report.Aliased, report.Duplicates, report.Dropped)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing the document")
	return cmd
}

func newSnapshotAddCmd(a *app) *cobra.Command {
	var sync bool
	cmd := &cobra.Command{
		Use:   "add <group> <participant> <piece>...",
		Short: "Add pieces to a participant of the snapshot document",
		Long: "Add pieces to a participant, creating the group and participant when\n" +
			"missing. With --sync the pieces are also written to the store.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSnapshotAdd(cmd, args[0], args[1], args[2:], sync)
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", false, "also add the pieces to the store")
	return cmd
}

func (a *app) runSnapshotAdd(cmd *cobra.Command, group, participant string, pieces []string, sync bool) error {
	path := a.settings.SnapshotPath
	doc, err := snapshot.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		doc, err = &snapshot.Document{Keys: snapshot.KeysLocalized}, nil
	}
	if err != nil {
		return err
	}
	if err := doc.AddRepertoire(group, participant, pieces, a.settings.Aliases); err != nil {
		return err
	}
	if err := snapshot.WriteFile(path, doc); err != nil {
		return err
	}

	synced := 0
	if sync {
		store, err := openStore(cmd.Context(), a.settings.Store)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()
		groupName, _ := textnorm.Normalize(group)
		name, _ := textnorm.Normalize(participant)
		for _, p := range doc.Group(groupName).Participants {
			if p.Name != name {
				continue
			}
			for _, title := range p.Pieces {
				if _, _, err := store.AddRepertoire(cmd.Context(), p.Name, title); err != nil {
					return fmt.Errorf("syncing %q: %w", title, err)
				}
				synced++
			}
		}
	}

	result := map[string]any{"path": path, "group": group, "participant": participant, "synced": synced}
	return a.output(cmd.OutOrStdout(), result, func(w io.Writer) {
		fmt.Fprintf(w, "Updated %s\n", path)
		if sync {
			fmt.Fprintf(w, "Synced %d pieces to the store\n", synced)
		}
	})
}
