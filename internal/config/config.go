package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Store struct {
		Backend    string `yaml:"backend"`
		StateFile  string `yaml:"state_file"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"store"`
	Sensors struct {
		PowerSupplyDir string        `yaml:"power_supply_dir"`
		WatchInterval  time.Duration `yaml:"watch_interval"`
		Simulate       bool          `yaml:"simulate"`
		Seed           int64         `yaml:"seed"`
	} `yaml:"sensors"`
	Schedule struct {
		ReportCron string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Database struct {
		HistoryPath string `yaml:"history_path"`
	} `yaml:"database"`
	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("GREENCONNECT_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("GREENCONNECT_STATE_FILE"); v != "" {
		cfg.Store.StateFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("HISTORY_PATH"); v != "" {
		cfg.Database.HistoryPath = v
	}
	if v := os.Getenv("POWER_SUPPLY_DIR"); v != "" {
		cfg.Sensors.PowerSupplyDir = v
	}
	if v := os.Getenv("GREENCONNECT_SIMULATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sensors.Simulate = b
		}
	}
	if v := os.Getenv("GREENCONNECT_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Sensors.Seed = seed
		}
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		cfg.Schedule.ReportCron = v
	}
	if v := os.Getenv("EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}

	// Defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreFile
	}
	if cfg.Store.StateFile == "" {
		cfg.Store.StateFile = "data/greenconnect_state.json"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "data/greenconnect.db"
	}
	if cfg.Sensors.PowerSupplyDir == "" {
		cfg.Sensors.PowerSupplyDir = "/sys/class/power_supply"
	}
	if cfg.Sensors.WatchInterval == 0 {
		cfg.Sensors.WatchInterval = time.Second
	}
	if cfg.Sensors.Seed == 0 {
		cfg.Sensors.Seed = time.Now().UnixNano()
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 */15 * * * *"
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}

	return cfg, nil
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreFile:
		if c.Store.StateFile == "" {
			return fmt.Errorf("store.state_file is required for the file backend")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store.backend must be one of %q, %q, %q", StoreFile, StoreSQLite, StoreMemory)
	}
	if c.Sensors.WatchInterval < 0 {
		return fmt.Errorf("sensors.watch_interval must not be negative")
	}
	if c.Schedule.ReportCron == "" {
		return fmt.Errorf("schedule.report_cron is required")
	}
	return nil
}
