package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/notepad/internal/paths"
	"github.com/mesh-intelligence/notepad/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envFileName    = ".env"
	envPrefix      = "NOTEPAD"

	cfgKeyBackend          = "backend"
	cfgKeyDataDir          = "data_dir"
	cfgKeyDBFile           = "db_file"
	cfgKeyPlaceholderTitle = "placeholder_title"
	cfgKeyNotifyBuffer     = "notify_buffer"
	cfgKeyBusyTimeoutMS    = "busy_timeout_ms"
)

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	Backend          string `yaml:"backend"`
	DataDir          string `yaml:"data_dir,omitempty"`
	PlaceholderTitle string `yaml:"placeholder_title,omitempty"`
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error; init writes one. A .env file in configDir is loaded first, and
// NOTEPAD_* environment variables override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := godotenv.Load(filepath.Join(configDir, envFileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFileName, err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDBFile, types.DefaultDBFile)
	v.SetDefault(cfgKeyPlaceholderTitle, types.DefaultTitle)
	v.SetDefault(cfgKeyNotifyBuffer, types.DefaultNotifyBuffer)
	v.SetDefault(cfgKeyBusyTimeoutMS, types.DefaultBusyTimeoutMS)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
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

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := configFile{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# notepad configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// dataDir resolves the data directory: --data-dir, config.yaml data_dir,
// NOTEPAD_DATA_DIR, then the platform default.
func (a *app) dataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.config.GetString(cfgKeyDataDir))
}

// providerConfig builds the Config passed to Attach.
func (a *app) providerConfig() (types.Config, error) {
	dir, err := a.dataDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		Backend:          a.config.GetString(cfgKeyBackend),
		DataDir:          dir,
		DBFile:           a.config.GetString(cfgKeyDBFile),
		PlaceholderTitle: a.config.GetString(cfgKeyPlaceholderTitle),
		NotifyBuffer:     a.config.GetInt(cfgKeyNotifyBuffer),
		BusyTimeoutMS:    a.config.GetInt(cfgKeyBusyTimeoutMS),
	}, nil
}
