package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/repertoire/internal/extract"
	"github.com/mesh-intelligence/repertoire/internal/paths"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// alias is one title correction applied by "snapshot clean". Aliases are a
// list rather than a map because viper lowercases map keys.
type alias struct {
	From string `mapstructure:"from" yaml:"from"`
	To   string `mapstructure:"to" yaml:"to"`
}

// settings is the resolved configuration of one invocation.
type settings struct {
	ConfigDir string

	Store        types.Config
	SnapshotPath string

	HTTPAddr     string
	AllowOrigins []string

	LogMode  string
	LogLevel string
	LogFile  string

	ColumnPairs   []extract.ColumnPair
	HeaderMarkers []string
	Sheet         string

	Aliases map[string]string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", types.BackendSQLite)
	v.SetDefault("database_url", os.Getenv("DATABASE_URL"))
	v.SetDefault("store_timeout", types.DefaultStoreTimeout)
	addr := ":3000"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	v.SetDefault("http.addr", addr)
	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("ingest.header_markers", extract.DefaultHeaderMarkers)
}

// loadEnvFiles loads .env from the working directory and the config
// directory. Variables already set are not overridden.
func loadEnvFiles(configDir string) error {
	for _, path := range []string{paths.EnvFileName, filepath.Join(configDir, paths.EnvFileName)} {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// loadSettings resolves the configuration: flags, then REPERTOIRE_*
// environment variables, then config.yaml in configDir, then defaults.
func loadSettings(configDir, dataDirFlag string) (*settings, error) {
	if err := loadEnvFiles(configDir); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(configDir, paths.ConfigFileName))
	v.SetEnvPrefix("REPERTOIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString("data_dir"))
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	snapshotPath, err := paths.SnapshotPath(dataDir, v.GetString("snapshot_path"))
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot path: %w", err)
	}

	s := &settings{
		ConfigDir: configDir,
		Store: types.Config{
			Backend:      v.GetString("backend"),
			DataDir:      dataDir,
			DatabaseURL:  v.GetString("database_url"),
			StoreTimeout: v.GetDuration("store_timeout"),
		},
		SnapshotPath:  snapshotPath,
		HTTPAddr:      v.GetString("http.addr"),
		AllowOrigins:  v.GetStringSlice("http.allow_origins"),
		LogMode:       v.GetString("log.mode"),
		LogLevel:      v.GetString("log.level"),
		LogFile:       v.GetString("log.file"),
		HeaderMarkers: v.GetStringSlice("ingest.header_markers"),
		Sheet:         v.GetString("ingest.sheet"),
		Aliases:       map[string]string{},
	}
	if err := s.Store.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	s.ColumnPairs = extract.DefaultColumnPairs
	if v.IsSet("ingest.column_pairs") {
		var raw [][]int
		if err := v.UnmarshalKey("ingest.column_pairs", &raw); err != nil {
			return nil, fmt.Errorf("reading ingest.column_pairs: %w", err)
		}
		if s.ColumnPairs, err = extract.ParsePairs(raw); err != nil {
			return nil, fmt.Errorf("reading ingest.column_pairs: %w", err)
		}
	}

	var aliases []alias
	if err := v.UnmarshalKey("snapshot.aliases", &aliases); err != nil {
		return nil, fmt.Errorf("reading snapshot.aliases: %w", err)
	}
	for _, a := range aliases {
		if a.From != "" && a.To != "" {
			s.Aliases[a.From] = a.To
		}
	}
	return s, nil
}
