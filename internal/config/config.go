package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/varekai/stackup/internal/bootstrap"
	"github.com/varekai/stackup/internal/service"
)

// Config is the top-level TOML structure. It is loaded once at startup,
// validated, and passed explicitly into every component; nothing reads
// configuration ambiently after that.
type Config struct {
	Env      []string `mapstructure:"env"`
	EnvFiles []string `mapstructure:"env_files"`
	UseOSEnv bool     `mapstructure:"use_os_env"`

	Log       LogConfig       `mapstructure:"log"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	History   HistoryConfig   `mapstructure:"history"`
	Server    ServerConfig    `mapstructure:"server"`
	Services  []service.Spec  `mapstructure:"services"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	NoColor    bool   `mapstructure:"no_color"`
}

type RoleConfig struct {
	Name     string `mapstructure:"name"`
	Password string `mapstructure:"password"`
	Login    bool   `mapstructure:"login"`
}

type BootstrapConfig struct {
	AdminDSN          string       `mapstructure:"admin_dsn"`
	AppDSN            string       `mapstructure:"app_dsn"`
	Database          string       `mapstructure:"database"`
	Schema            string       `mapstructure:"schema"`
	Owner             RoleConfig   `mapstructure:"owner"`
	AppRoles          []RoleConfig `mapstructure:"app_roles"`
	PublicationPrefix string       `mapstructure:"publication_prefix"`
}

type HistoryConfig struct {
	Type  string `mapstructure:"type"` // none | sqlite | postgres | clickhouse
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

// Load reads and parses the TOML config. Environment references of the form
// ${VAR} inside credential-bearing values are expanded from the merged
// environment (env_files first, then the inline env list, optionally on top
// of the OS environment).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	env, err := cfg.mergedEnv()
	if err != nil {
		return nil, err
	}
	cfg.expandEnv(env)
	return &cfg, nil
}

// mergedEnv builds the resolved environment. Precedence: OS env (when
// enabled) is the base, env_files apply next, the inline env list last.
func (c *Config) mergedEnv() (map[string]string, error) {
	m := make(map[string]string)
	if c.UseOSEnv {
		for _, kv := range os.Environ() {
			if i := strings.IndexByte(kv, '='); i >= 0 {
				m[kv[:i]] = kv[i+1:]
			}
		}
	}
	for _, p := range c.EnvFiles {
		pairs, err := loadEnvFile(p)
		if err != nil {
			// a declared env file that simply is not there yet is fine
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for k, v := range pairs {
			m[k] = v
		}
	}
	for _, kv := range c.Env {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m, nil
}

func (c *Config) expandEnv(env map[string]string) {
	expand := func(s string) string {
		return os.Expand(s, func(key string) string { return env[key] })
	}
	b := &c.Bootstrap
	b.AdminDSN = expand(b.AdminDSN)
	b.AppDSN = expand(b.AppDSN)
	b.Owner.Password = expand(b.Owner.Password)
	for i := range b.AppRoles {
		b.AppRoles[i].Password = expand(b.AppRoles[i].Password)
	}
	c.History.DSN = expand(c.History.DSN)
}

// loadEnvFile parses a simple KEY=VALUE .env file. Blank lines and lines
// starting with # are skipped; surrounding single or double quotes on the
// value are stripped.
func loadEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	out := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		val := strings.TrimSpace(line[i+1:])
		if n := len(val); n >= 2 {
			if (val[0] == '\'' && val[n-1] == '\'') || (val[0] == '"' && val[n-1] == '"') {
				val = val[1 : n-1]
			}
		}
		out[key] = val
	}
	return out, nil
}

// ToBootstrap converts the parsed bootstrap section.
func (c *Config) ToBootstrap() bootstrap.Config {
	b := c.Bootstrap
	roles := make([]bootstrap.Role, 0, len(b.AppRoles))
	for _, r := range b.AppRoles {
		roles = append(roles, bootstrap.Role{Name: r.Name, Password: r.Password, Login: r.Login})
	}
	return bootstrap.Config{
		AdminDSN:          b.AdminDSN,
		AppDSN:            b.AppDSN,
		Database:          b.Database,
		Schema:            b.Schema,
		Owner:             bootstrap.Role{Name: b.Owner.Name, Password: b.Owner.Password, Login: b.Owner.Login},
		AppRoles:          roles,
		PublicationPrefix: b.PublicationPrefix,
	}
}
