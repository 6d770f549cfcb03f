package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config is the persistent application configuration
type Config struct {
	OMDb  OMDbConfig  `yaml:"omdb"`
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
	UI    UIConfig    `yaml:"ui"`

	parseErr error
}

// OMDbConfig holds movie API settings
type OMDbConfig struct {
	APIKey   string        `yaml:"api_key,omitempty"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"` // 0 waits until the request is superseded
}

// StoreConfig holds persistence settings
type StoreConfig struct {
	Path       string `yaml:"path"`        // SQLite database file
	WatchedKey string `yaml:"watched_key"` // storage key of the watched list
}

// LogConfig holds log file settings
type LogConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	MaxResults int  `yaml:"max_results"` // results shown in the list, 0 for all
	ShowHelp   bool `yaml:"show_help"`
}

// DataDir returns ~/.popcorn, falling back to the working directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".popcorn"
	}
	return filepath.Join(home, ".popcorn")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	dir := DataDir()
	return &Config{
		OMDb: OMDbConfig{
			Endpoint: "https://www.omdbapi.com/",
		},
		Store: StoreConfig{
			Path:       filepath.Join(dir, "popcorn.db"),
			WatchedKey: "watched",
		},
		Log: LogConfig{
			Level:      "info",
			Dir:        filepath.Join(dir, "logs"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		UI: UIConfig{
			MaxResults: 0,
			ShowHelp:   true,
		},
	}
}

// ConfigPath returns the path to the config file.
// POPCORN_CONFIG overrides the default location.
func ConfigPath() string {
	if p := os.Getenv("POPCORN_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads config from path on fsys, or returns defaults if the file is
// missing or unreadable as YAML; see ParseError. Fields absent from the file
// keep their defaults. Environment overrides are applied last.
func Load(fsys afero.Fs, path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = DefaultConfig()
		cfg.parseErr = err
	}

	cfg.fillDefaults()
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// ParseError returns the YAML error Load recovered from, if any. Load runs
// before logging is up, so reporting it is left to the caller.
func (c *Config) ParseError() error {
	return c.parseErr
}

// fillDefaults restores defaults for fields a file blanked out.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.OMDb.Endpoint == "" {
		c.OMDb.Endpoint = def.OMDb.Endpoint
	}
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Store.WatchedKey == "" {
		c.Store.WatchedKey = def.Store.WatchedKey
	}
	if c.Log.Dir == "" {
		c.Log.Dir = def.Log.Dir
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.OMDb.Timeout < 0 {
		c.OMDb.Timeout = 0
	}
}

// Save writes config to path on fsys
func (c *Config) Save(fsys afero.Fs, path string) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return afero.WriteFile(fsys, path, data, 0600) // Restrictive permissions for API keys
}

// AutoPopulateFromEnv applies environment overrides
func (c *Config) AutoPopulateFromEnv() {
	if key := os.Getenv("OMDB_API_KEY"); key != "" {
		c.OMDb.APIKey = key
	}
	if p := os.Getenv("POPCORN_DB_PATH"); p != "" {
		c.Store.Path = p
	}
	if lvl := os.Getenv("POPCORN_LOG_LEVEL"); lvl != "" {
		c.Log.Level = lvl
	}
}

// LoadKeysFromFile loads the API key from a shell script (like keys.sh)
func (c *Config) LoadKeysFromFile(fsys afero.Fs, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)

		switch key {
		case "OMDB_API_KEY", "OMDB_KEY":
			c.OMDb.APIKey = value
		}
	}

	return nil
}
