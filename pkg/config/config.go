package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AllowedAppIDs is the enumerated allow-list of trading-API application
// identifiers a connection may be opened with.
var AllowedAppIDs = []int{1089, 36930}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Deriv struct {
		Endpoint string `yaml:"endpoint"`
		AppID    int    `yaml:"app_id"`
	} `yaml:"deriv"`
	Replication struct {
		DebounceDelay   time.Duration `yaml:"debounce_delay"`
		FreshnessWindow time.Duration `yaml:"freshness_window"`
		JournalCapacity int           `yaml:"journal_capacity"`
	} `yaml:"replication"`
	Trace struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Channel  string `yaml:"channel"`
		} `yaml:"redis"`
	} `yaml:"trace"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DERIV_ENDPOINT"); v != "" {
		c.Deriv.Endpoint = v
	}
	if v := os.Getenv("DERIV_APP_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("DERIV_APP_ID: %w", err)
		}
		c.Deriv.AppID = id
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Trace.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Deriv.Endpoint == "" {
		return fmt.Errorf("deriv.endpoint is required")
	}
	if !AppIDAllowed(c.Deriv.AppID) {
		return fmt.Errorf("deriv.app_id %d is not in the allow-list %v", c.Deriv.AppID, AllowedAppIDs)
	}
	if c.Trace.Redis.Enabled && c.Trace.Redis.Addr == "" {
		return fmt.Errorf("trace.redis.addr is required when the redis sink is enabled")
	}
	return nil
}

// AppIDAllowed reports whether the application identifier is allow-listed.
func AppIDAllowed(id int) bool {
	for _, allowed := range AllowedAppIDs {
		if id == allowed {
			return true
		}
	}
	return false
}
