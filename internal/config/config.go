package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Provider struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// Public base URL used to build OAuth redirect URIs,
		// e.g. https://api.example.com
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // memory | postgres
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Security struct {
		// base64(32 bytes), encrypts provider tokens at rest
		TokenEncryptionKey string `yaml:"token_encryption_key"`
		StateSigningSecret string `yaml:"state_signing_secret"`
		APIKeyIndexSecret  string `yaml:"api_key_index_secret"`
		CronSecret         string `yaml:"cron_secret"`
	} `yaml:"security"`

	Publish struct {
		Timeout     string `yaml:"timeout"`
		Concurrency int    `yaml:"concurrency"`
	} `yaml:"publish"`

	Scheduler struct {
		// off disables the in-process poller; the cron endpoint
		// still works either way
		Mode     string `yaml:"mode"` // poll | off
		Interval string `yaml:"interval"`
	} `yaml:"scheduler"`

	Providers struct {
		Twitter   Provider `yaml:"twitter"`
		LinkedIn  Provider `yaml:"linkedin"`
		Facebook  Provider `yaml:"facebook"`
		Instagram Provider `yaml:"instagram"`
		Threads   Provider `yaml:"threads"`
	} `yaml:"providers"`
}

// Load reads the YAML file at path (missing file is fine, env can carry
// everything), applies defaults and env overrides, then validates.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "highshift"
	}
	if c.Publish.Timeout == "" {
		c.Publish.Timeout = "30s"
	}
	if c.Publish.Concurrency == 0 {
		c.Publish.Concurrency = 1
	}
	if c.Scheduler.Mode == "" {
		c.Scheduler.Mode = "poll"
	}
	if c.Scheduler.Interval == "" {
		c.Scheduler.Interval = "60s"
	}

	c.applyEnvOverrides()

	// validate string durations
	for _, s := range []string{
		c.Storage.Postgres.ConnMaxLifetime,
		c.Publish.Timeout,
		c.Scheduler.Interval,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate enforces the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.dsn required when driver is postgres")
	}
	if c.Cache.Kind == "redis" && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return fmt.Errorf("config: cache.redis.addr required when kind is redis")
	}
	if strings.TrimSpace(c.Security.StateSigningSecret) == "" {
		return fmt.Errorf("config: security.state_signing_secret is required")
	}
	if strings.TrimSpace(c.Security.APIKeyIndexSecret) == "" {
		return fmt.Errorf("config: security.api_key_index_secret is required")
	}
	return nil
}

// PublishTimeout returns the parsed publish timeout. Load already
// validated the string.
func (c *Config) PublishTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Publish.Timeout)
	return d
}

func (c *Config) SchedulerInterval() time.Duration {
	d, _ := time.ParseDuration(c.Scheduler.Interval)
	return d
}

func (c *Config) ConnMaxLifetime() time.Duration {
	if c.Storage.Postgres.ConnMaxLifetime == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime)
	return d
}

// RedirectURI builds the callback URL registered with each provider.
func (c *Config) RedirectURI(provider string) string {
	return strings.TrimRight(c.Server.BaseURL, "/") + "/connect/" + provider + "/callback"
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MIN_CONNS"); ok {
		c.Storage.Postgres.MinConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// SECURITY
	if v, ok := getEnvStr("TOKEN_ENCRYPTION_KEY"); ok {
		c.Security.TokenEncryptionKey = v
	}
	if v, ok := getEnvStr("STATE_SIGNING_SECRET"); ok {
		c.Security.StateSigningSecret = v
	}
	if v, ok := getEnvStr("API_KEY_INDEX_SECRET"); ok {
		c.Security.APIKeyIndexSecret = v
	}
	if v, ok := getEnvStr("CRON_SECRET"); ok {
		c.Security.CronSecret = v
	}

	// PUBLISH
	if v, ok := getEnvStr("PUBLISH_TIMEOUT"); ok {
		c.Publish.Timeout = v
	}
	if v, ok := getEnvInt("PUBLISH_CONCURRENCY"); ok {
		c.Publish.Concurrency = v
	}

	// SCHEDULER
	if v, ok := getEnvStr("SCHEDULER_MODE"); ok {
		c.Scheduler.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvStr("SCHEDULER_INTERVAL"); ok {
		c.Scheduler.Interval = v
	}

	// PROVIDERS
	overrideProvider("TWITTER", &c.Providers.Twitter)
	overrideProvider("LINKEDIN", &c.Providers.LinkedIn)
	overrideProvider("FACEBOOK", &c.Providers.Facebook)
	overrideProvider("INSTAGRAM", &c.Providers.Instagram)
	overrideProvider("THREADS", &c.Providers.Threads)
}

func overrideProvider(prefix string, p *Provider) {
	if v, ok := getEnvBool(prefix + "_ENABLED"); ok {
		p.Enabled = v
	}
	if v, ok := getEnvStr(prefix + "_CLIENT_ID"); ok {
		p.ClientID = v
	}
	if v, ok := getEnvStr(prefix + "_CLIENT_SECRET"); ok {
		p.ClientSecret = v
	}
	if v, ok := getEnvCSV(prefix + "_SCOPES"); ok && len(v) > 0 {
		p.Scopes = v
	}
	// Credentials present without an explicit enabled flag means on.
	if p.ClientID != "" && p.ClientSecret != "" {
		if _, set := os.LookupEnv(prefix + "_ENABLED"); !set {
			p.Enabled = true
		}
	}
}
