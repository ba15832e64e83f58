// Package cli implements the repertoire command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/repertoire/internal/logger"
	"github.com/mesh-intelligence/repertoire/internal/paths"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state shared by subcommands once the root pre-run resolved
// the configuration.
type app struct {
	flags    rootFlags
	settings *settings
	log      *logger.Logger
}

// NewRootCmd creates the top-level "repertoire" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "repertoire",
		Short: "Ensemble repertoire ingestion and search",
		Long: "Repertoire loads spreadsheet exports of ensemble participants and the\n" +
			"pieces they know into a people/pieces graph, and serves substring search\n" +
			"over it with a snapshot fallback.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: .repertoire-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newPiecesCmd(a))
	root.AddCommand(newSnapshotCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode separates environment failures from bad input.
func exitCode(err error) int {
	switch {
	case errors.Is(err, types.ErrStoreUnavailable),
		errors.Is(err, types.ErrServiceUnavailable):
		return exitSysError
	default:
		return exitUserError
	}
}

func (a *app) setup() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}
	s, err := loadSettings(configDir, a.flags.dataDir)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Options{Mode: s.LogMode, Level: s.LogLevel, File: s.LogFile})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.settings = s
	a.log = log
	return nil
}

// output writes v as indented JSON in --json mode and calls text otherwise.
func (a *app) output(w io.Writer, v any, text func(w io.Writer)) error {
	if a.flags.jsonMode {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
