package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyPersistTimeout = "persist_timeout"
	cfgKeyLogLevel       = "log_level"

	defaultLogLevel = "info"
)

// configHeader precedes the generated config.yaml.
const configHeader = `# wasteledger configuration
#
# backend:          json (one file per table) or sqlite (shared ledger.db)
# data_dir:         overridden by --data-dir
# persist_timeout:  bound on a single table write, e.g. 5s
# log_level:        debug, info, warn or error
`

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend        string `yaml:"backend"`
	DataDir        string `yaml:"data_dir,omitempty"`
	PersistTimeout string `yaml:"persist_timeout"`
	LogLevel       string `yaml:"log_level"`
}

// loadConfig reads config.yaml from the config directory using Viper.
// A missing config.yaml is not an error; defaults apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendJSON)
	v.SetDefault(cfgKeyPersistTimeout, types.DefaultPersistTimeout)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetEnvPrefix("WASTELEDGER")
	_ = v.BindEnv(cfgKeyBackend)
	_ = v.BindEnv(cfgKeyLogLevel)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml if the file does not exist.
// It reports whether a file was written.
func writeConfigIfMissing(configDir string, cfg configFile) (bool, error) {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	content := append([]byte(configHeader+"\n"), data...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
