package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MREMOTE_SYNC_LOG_LEVEL.
const EnvPrefix = "MREMOTE_SYNC"

type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

type Config struct {
	Version int `json:"version" mapstructure:"version" yaml:"version"`

	// DataDir is resolved at load time and never persisted.
	DataDir string `json:"-" mapstructure:"-" yaml:"-"`

	Log struct {
		Level LogLevel `json:"level" mapstructure:"level" yaml:"level"`
	} `json:"log" mapstructure:"log" yaml:"log"`

	Watch struct {
		IntervalSeconds int    `json:"interval_seconds" mapstructure:"interval_seconds" yaml:"interval_seconds"`
		DownloadsDir    string `json:"downloads_dir" mapstructure:"downloads_dir" yaml:"downloads_dir"`
		AutoImport      bool   `json:"auto_import" mapstructure:"auto_import" yaml:"auto_import"`
	} `json:"watch" mapstructure:"watch" yaml:"watch"`

	Import struct {
		ContainerLabel  string `json:"container_label" mapstructure:"container_label" yaml:"container_label"`
		Overwrite       bool   `json:"overwrite" mapstructure:"overwrite" yaml:"overwrite"`
		WrapInContainer bool   `json:"wrap_in_container" mapstructure:"wrap_in_container" yaml:"wrap_in_container"`
	} `json:"import" mapstructure:"import" yaml:"import"`

	Snapshot struct {
		RepoURL    string `json:"repo_url" mapstructure:"repo_url" yaml:"repo_url"`
		Branch     string `json:"branch" mapstructure:"branch" yaml:"branch"`
		SSHKeyPath string `json:"ssh_key_path" mapstructure:"ssh_key_path" yaml:"ssh_key_path"`
		AutoPush   bool   `json:"auto_push" mapstructure:"auto_push" yaml:"auto_push"`
	} `json:"snapshot" mapstructure:"snapshot" yaml:"snapshot"`
}

func Default() Config {
	var c Config
	c.Version = 1
	c.Log.Level = LogWarn

	c.Watch.IntervalSeconds = 30
	c.Watch.DownloadsDir = "" // empty means ~/Downloads
	c.Watch.AutoImport = false

	c.Import.ContainerLabel = "mRemoteNG Import"
	c.Import.Overwrite = false
	c.Import.WrapInContainer = false

	c.Snapshot.RepoURL = ""
	c.Snapshot.Branch = "main"
	c.Snapshot.SSHKeyPath = ""
	c.Snapshot.AutoPush = false
	return c
}

// DataDir returns the base data directory, honoring MREMOTE_SYNC_DATA_DIR.
func DataDir() (string, error) {
	dir := os.Getenv(EnvPrefix + "_DATA_DIR")
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "mremote-sync")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the config file inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.json")
}

// SnapshotDir is where the tree history repository lives.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "tree")
}

// Load reads the config from the default data directory.
func Load() (Config, error) {
	dir, err := DataDir()
	if err != nil {
		return Default(), err
	}
	return LoadFrom(dir)
}

// LoadFrom reads config.json in dataDir, applies MREMOTE_SYNC_* environment
// overrides and normalizes the result. A missing file yields defaults.
func LoadFrom(dataDir string) (Config, error) {
	def := Default()
	def.DataDir = dataDir

	v := viper.New()
	v.SetConfigFile(Path(dataDir))
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, def)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return def, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return def, fmt.Errorf("failed to decode config: %w", err)
	}
	c = withDefaults(c)
	c.DataDir = dataDir
	return c, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("version", c.Version)
	v.SetDefault("log.level", string(c.Log.Level))
	v.SetDefault("watch.interval_seconds", c.Watch.IntervalSeconds)
	v.SetDefault("watch.downloads_dir", c.Watch.DownloadsDir)
	v.SetDefault("watch.auto_import", c.Watch.AutoImport)
	v.SetDefault("import.container_label", c.Import.ContainerLabel)
	v.SetDefault("import.overwrite", c.Import.Overwrite)
	v.SetDefault("import.wrap_in_container", c.Import.WrapInContainer)
	v.SetDefault("snapshot.repo_url", c.Snapshot.RepoURL)
	v.SetDefault("snapshot.branch", c.Snapshot.Branch)
	v.SetDefault("snapshot.ssh_key_path", c.Snapshot.SSHKeyPath)
	v.SetDefault("snapshot.auto_push", c.Snapshot.AutoPush)
}

// Save writes c to config.json in c.DataDir.
func Save(c Config) error {
	if c.DataDir == "" {
		return errors.New("config has no data directory")
	}
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return err
	}
	c = withDefaults(c)
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	path := Path(c.DataDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func withDefaults(c Config) Config {
	def := Default()
	if c.Version == 0 {
		c.Version = def.Version
	}

	c.Log.Level = LogLevel(strings.ToLower(strings.TrimSpace(string(c.Log.Level))))
	switch c.Log.Level {
	case LogDebug, LogInfo, LogWarn, LogError:
	default:
		c.Log.Level = def.Log.Level
	}

	if c.Watch.IntervalSeconds < 5 {
		c.Watch.IntervalSeconds = 5
	}

	if strings.TrimSpace(c.Import.ContainerLabel) == "" {
		c.Import.ContainerLabel = def.Import.ContainerLabel
	}
	if c.Snapshot.Branch == "" {
		c.Snapshot.Branch = def.Snapshot.Branch
	}
	return c
}
