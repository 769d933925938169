package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-webapp/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Store struct {
		// Driver selects the document store: memory, redis or postgres.
		Driver string `yaml:"driver"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL             string `yaml:"url"`
		MaxConns        int32  `yaml:"max_conns"`
		MaxConnLifetime string `yaml:"max_conn_lifetime"`
	} `yaml:"postgres"`
	Quiz struct {
		Dwell string `yaml:"dwell"`
	} `yaml:"quiz"`
	Catalog struct {
		OrderBy string `yaml:"order_by"`
	} `yaml:"catalog"`
	Admin struct {
		Password string `yaml:"password"`
	} `yaml:"admin"`
	Auth AuthConfig `yaml:"auth"`
	Log  LogConfig  `yaml:"log"`
}

type AuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	UserInfoURL  string `yaml:"userinfo_url"`
	JWTSecret    string `yaml:"jwt_secret"`
	SessionTTL   string `yaml:"session_ttl"`
	PopupTimeout string `yaml:"popup_timeout"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Load reads YAML config from path. Secrets may be overridden from the
// environment so they can live in a .env file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Store.Driver, "STORE_DRIVER")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Postgres.URL, "DATABASE_URL")
	override(&cfg.Admin.Password, "ADMIN_PASSWORD")
	override(&cfg.Auth.ClientID, "GOOGLE_CLIENT_ID")
	override(&cfg.Auth.ClientSecret, "GOOGLE_CLIENT_SECRET")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
}

// StoreDriver reports the configured driver, inferring one from the connection
// settings when none is set.
func (c Config) StoreDriver() string {
	switch {
	case c.Store.Driver != "":
		return c.Store.Driver
	case c.Postgres.URL != "":
		return DriverPostgres
	case c.Redis.Addr != "":
		return DriverRedis
	default:
		return DriverMemory
	}
}

// CatalogQuery is the live catalog query every client subscribes with.
func (c Config) CatalogQuery() domain.CatalogQuery {
	return domain.CatalogQuery{OrderBy: c.Catalog.OrderBy}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
