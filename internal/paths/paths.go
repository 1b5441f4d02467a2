// Package paths resolves configuration and data directory locations.
//
// Each directory comes from the first non-empty source in a fixed order:
//
//	config dir: --config-dir flag, WASTELEDGER_CONFIG_DIR, $(CWD)/.wasteledger
//	data dir:   --data-dir flag, config.yaml data_dir, WASTELEDGER_DATA_DIR, $(CWD)/.wasteledger-data
//
// Relative values resolve against the working directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName names the per-user platform directories.
const appName = "wasteledger"

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".wasteledger"
	DefaultDataDirName   = ".wasteledger-data"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "WASTELEDGER_CONFIG_DIR"
	EnvDataDir   = "WASTELEDGER_DATA_DIR"
)

// Source names where a resolved directory came from.
type Source string

// Directory sources, in precedence order.
const (
	SourceFlag    Source = "flag"
	SourceConfig  Source = "config"
	SourceEnv     Source = "env"
	SourceDefault Source = "default"
)

// Resolved is an absolute directory and the source that supplied it.
type Resolved struct {
	Path   string
	Source Source
}

// candidate is one entry of a precedence chain.
type candidate struct {
	source Source
	value  string
}

// resolve returns the first candidate with a value. The last candidate of
// every chain is a non-empty default.
func resolve(chain ...candidate) (Resolved, error) {
	for _, c := range chain {
		if c.value == "" {
			continue
		}
		abs, err := filepath.Abs(c.value)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Path: abs, Source: c.source}, nil
	}
	panic("paths: precedence chain without a default")
}

// ResolveConfigDir returns the configuration directory.
func ResolveConfigDir(flag string) (Resolved, error) {
	return resolve(
		candidate{SourceFlag, flag},
		candidate{SourceEnv, os.Getenv(EnvConfigDir)},
		candidate{SourceDefault, DefaultConfigDirName},
	)
}

// ResolveDataDir returns the data directory. configValue is the data_dir
// entry of config.yaml, empty when unset.
func ResolveDataDir(flag, configValue string) (Resolved, error) {
	return resolve(
		candidate{SourceFlag, flag},
		candidate{SourceConfig, configValue},
		candidate{SourceEnv, os.Getenv(EnvDataDir)},
		candidate{SourceDefault, DefaultDataDirName},
	)
}

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// UserConfigDir returns the per-user configuration directory used by
// init --global: $XDG_CONFIG_HOME/wasteledger or ~/.config/wasteledger on
// Linux, os.UserConfigDir()/wasteledger elsewhere.
func UserConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// UserDataDir returns the per-user data directory: $XDG_DATA_HOME/wasteledger
// or ~/.local/share/wasteledger on Linux. Other platforms keep data beside
// the configuration.
func UserDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

func userDir(xdgVar string, homeRel ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, homeRel...)
	return filepath.Join(append(parts, appName)...), nil
}
