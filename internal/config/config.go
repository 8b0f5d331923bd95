package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/gpsio/gpsio-host/internal/ipc"
)

// Config holds the host configuration. It is built once at startup and
// passed by pointer; nothing mutates it afterwards.
type Config struct {
	ConverterPath string   `mapstructure:"converter_path"`
	ChunkSize     int      `mapstructure:"chunk_size"`
	Debug         bool     `mapstructure:"debug"`
	DataDir       string   `mapstructure:"data_dir"`
	LogPath       string   `mapstructure:"log_path"`
	History       bool     `mapstructure:"history"`
	HistoryPath   string   `mapstructure:"history_path"`
	MountRoots    []string `mapstructure:"mount_roots"`
}

// DefaultChunkSize keeps each wire message well under the browser limit.
const DefaultChunkSize = 100000

// EnvPrefix is prepended to upper-cased keys for environment overrides,
// e.g. GPSIO_CONVERTER_PATH.
const EnvPrefix = "GPSIO"

// DefaultDataDir returns the default data directory (~/.gpsio).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".gpsio")
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		ConverterPath: "gpsbabel",
		ChunkSize:     DefaultChunkSize,
		DataDir:       dataDir,
		LogPath:       filepath.Join(dataDir, "gpsio_log.txt"),
		History:       true,
		HistoryPath:   filepath.Join(dataDir, "history.db"),
		MountRoots:    []string{},
	}
}

// Load reads configuration from a JSON, YAML or TOML file, falling back to
// defaults for any unset fields. GPSIO_* environment variables override both.
func Load(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("converter_path", def.ConverterPath)
	v.SetDefault("chunk_size", def.ChunkSize)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("log_path", "")
	v.SetDefault("history", def.History)
	v.SetDefault("history_path", "")
	v.SetDefault("mount_roots", def.MountRoots)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
		// No config file is fine, use defaults.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Re-derive paths if DataDir was overridden but log/history paths were not.
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(cfg.DataDir, "gpsio_log.txt")
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = filepath.Join(cfg.DataDir, "history.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail mid-request.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ConverterPath) == "" {
		return fmt.Errorf("converter_path must be set")
	}
	if c.ChunkSize < 1 || c.ChunkSize > ipc.MaxChunkChars {
		return fmt.Errorf("chunk_size %d outside 1..%d", c.ChunkSize, ipc.MaxChunkChars)
	}
	return nil
}

// EnsureDataDir creates the data directory if it does not exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// ConfigPath returns the config file location: $GPSIO_CONFIG if set,
// otherwise config.json next to the host executable.
func ConfigPath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join(DefaultDataDir(), "config.json")
	}
	return filepath.Join(filepath.Dir(exe), "config.json")
}
