package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/repertoire/internal/extract"
	"github.com/mesh-intelligence/repertoire/internal/paths"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend      string      `yaml:"backend"`
	DataDir      string      `yaml:"data_dir,omitempty"`
	StoreTimeout string      `yaml:"store_timeout"`
	HTTP         httpSection `yaml:"http"`
	Log          logSection  `yaml:"log"`
	Ingest       ingestCfg   `yaml:"ingest"`
	Snapshot     snapshotCfg `yaml:"snapshot"`
}

type httpSection struct {
	Addr string `yaml:"addr"`
}

type logSection struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

type ingestCfg struct {
	ColumnPairs   [][]int  `yaml:"column_pairs,flow"`
	HeaderMarkers []string `yaml:"header_markers,flow"`
	Sheet         string   `yaml:"sheet,omitempty"`
}

type snapshotCfg struct {
	Aliases []alias `yaml:"aliases"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the schema",
		Long: "Create the configuration directory and a default config.yaml when\n" +
			"missing, then open the configured backend so that the schema exists.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	s := a.settings
	if err := os.MkdirAll(s.ConfigDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(s.ConfigDir, paths.ConfigFileName)
	written, err := writeConfigIfMissing(configPath, s)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	store, err := openStore(cmd.Context(), s.Store)
	if err != nil {
		return fmt.Errorf("initializing %s store: %w", s.Store.Backend, err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	a.log.Info("initialized", "config", configPath, "backend", s.Store.Backend, "data_dir", s.Store.DataDir)
	result := map[string]any{
		"config":        configPath,
		"configWritten": written,
		"backend":       s.Store.Backend,
		"dataDir":       s.Store.DataDir,
	}
	return a.output(cmd.OutOrStdout(), result, func(w io.Writer) {
		if written {
			fmt.Fprintf(w, "Wrote %s\n", configPath)
		}
		fmt.Fprintf(w, "Repertoire initialized (%s)\n", s.Store.Backend)
	})
}

// writeConfigIfMissing writes config.yaml from the resolved settings. An
// existing file is left untouched and reported as not written.
func writeConfigIfMissing(path string, s *settings) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	pairs := make([][]int, len(s.ColumnPairs))
	for i, cp := range s.ColumnPairs {
		pairs[i] = []int{cp.Name, cp.Title}
	}
	markers := s.HeaderMarkers
	if len(markers) == 0 {
		markers = extract.DefaultHeaderMarkers
	}
	cfg := configFile{
		Backend:      s.Store.Backend,
		DataDir:      s.Store.DataDir,
		StoreTimeout: s.Store.Timeout().String(),
		HTTP:         httpSection{Addr: s.HTTPAddr},
		Log:          logSection{Mode: s.LogMode, Level: s.LogLevel, File: s.LogFile},
		Ingest:       ingestCfg{ColumnPairs: pairs, HeaderMarkers: markers, Sheet: s.Sheet},
		Snapshot:     snapshotCfg{Aliases: []alias{}},
	}
	if s.Store.Backend == types.BackendPostgres {
		cfg.DataDir = ""
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	return true, os.WriteFile(path, data, 0o644)
}
