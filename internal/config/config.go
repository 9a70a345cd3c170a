package config

import (
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Jobs     JobsConfig     `koanf:"jobs"`
	Sana     SanaConfig     `koanf:"sana"`
	Limits   LimitsConfig   `koanf:"limits"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
	BaseURL string `koanf:"base_url"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	JWTSecret     string `koanf:"jwt_secret"`
	JWTExpiry     string `koanf:"jwt_expiry"`
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`
}

type JobsConfig struct {
	Dir           string `koanf:"dir"`
	MaxConcurrent int    `koanf:"max_concurrent"`
}

type SanaConfig struct {
	BinDir   string `koanf:"bin_dir"`
	RunGrace string `koanf:"run_grace"`
}

type LimitsConfig struct {
	PerUserConcurrent int    `koanf:"per_user_concurrent"`
	LinkExpiry        string `koanf:"link_expiry"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads config from TOML file (if provided) then overlays env vars.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	// 2. Load TOML config file if provided
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, err
		}
	}

	// 3. Load env vars: SANA_SERVER_PORT -> server.port
	// Only set env vars that have non-empty values to avoid overriding TOML config.
	if err := k.Load(env.ProviderWithValue("SANA_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		mapped := strings.Replace(
			strings.ToLower(strings.TrimPrefix(key, "SANA_")),
			"_", ".", -1,
		)
		return mapped, value
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDataDir rebases the job and database locations onto a single base
// directory, for the common single-flag deployment.
func (c *Config) ApplyDataDir(dir string) {
	c.Jobs.Dir = filepath.Join(dir, "jobs")
	c.Database.Path = filepath.Join(dir, "sanaserv.db")
}
