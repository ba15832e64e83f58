// Package paths resolves where repertoire keeps its configuration, its
// SQLite database and its snapshot document.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "repertoire"

// Names of the files and CWD-relative directories used when nothing else is
// configured.
const (
	DefaultDataDirName = ".repertoire-db"
	ConfigFileName     = "config.yaml"
	EnvFileName        = ".env"
	SnapshotFileName   = "repertoire.json"
)

// Environment overrides.
const (
	EnvConfigDir = "REPERTOIRE_CONFIG_DIR"
	EnvDataDir   = "REPERTOIRE_DATA_DIR"
)

// platform is swapped out in tests.
var platform = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $xdgEnv/repertoire on Linux, falling back to
// ~/<fallback...>/repertoire. Other platforms use os.UserConfigDir.
func xdgDir(xdgEnv string, fallback ...string) (string, error) {
	if platform.goos != "linux" {
		dir, err := platform.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platform.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// DefaultConfigDir is $XDG_CONFIG_HOME/repertoire (~/.config/repertoire) on
// Linux and the user config directory elsewhere.
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir is $XDG_DATA_HOME/repertoire (~/.local/share/repertoire)
// on Linux and the user config directory elsewhere.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir applies flag > REPERTOIRE_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config value > REPERTOIRE_DATA_DIR >
// $(CWD)/.repertoire-db. The platform data directory is not used unless
// configured, so a checkout keeps its database next to its exports.
func ResolveDataDir(flag, configured string) (string, error) {
	for _, v := range []string{flag, configured, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// SnapshotPath returns configured when set, otherwise the snapshot file in
// dataDir.
func SnapshotPath(dataDir, configured string) (string, error) {
	if configured != "" {
		return filepath.Abs(configured)
	}
	return filepath.Join(dataDir, SnapshotFileName), nil
}
