package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const (
	// DefaultAdminSecret is used when no admin secret is configured. It is
	// refused when app.env is "prod".
	DefaultAdminSecret   = "admin123"
	DefaultSessionSecret = "change-me-in-production"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"

	envProd = "prod"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	App       AppConfig       `toml:"app"`
	Auth      AuthConfig      `toml:"auth"`
	LLM       LLMConfig       `toml:"llm"`
	MySQL     MySQLConfig     `toml:"mysql"`
	Redis     RedisConfig     `toml:"redis"`
	RabbitMQ  RabbitMQConfig  `toml:"rabbitmq"`
	Session   SessionConfig   `toml:"session"`
	Audit     AuditConfig     `toml:"audit"`
	Documents DocumentsConfig `toml:"documents"`
}

type AppConfig struct {
	Name    string `toml:"name" env:"APP_NAME"`
	Env     string `toml:"env" env:"APP_ENV"`
	Host    string `toml:"host" env:"APP_HOST"`
	Port    int    `toml:"port" env:"APP_PORT"`
	GinMode string `toml:"gin_mode" env:"GIN_MODE"`
}

type AuthConfig struct {
	AdminSecret         string `toml:"admin_secret" env:"ADMIN_SECRET"`
	SessionSecret       string `toml:"session_secret" env:"SESSION_SECRET"`
	SessionCookieSecure bool   `toml:"session_cookie_secure" env:"SESSION_COOKIE_SECURE"`
}

type LLMConfig struct {
	BaseURL        string  `toml:"base_url" env:"LLM_BASE_URL"`
	APIKey         string  `toml:"api_key" env:"LLM_API_KEY"`
	Model          string  `toml:"model" env:"LLM_MODEL"`
	Temperature    float64 `toml:"temperature" env:"LLM_TEMPERATURE"`
	MaxTokens      int     `toml:"max_tokens" env:"LLM_MAX_TOKENS"`
	TimeoutSeconds int     `toml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS"`
}

type MySQLConfig struct {
	Host     string `toml:"host" env:"MYSQL_HOST"`
	Port     int    `toml:"port" env:"MYSQL_PORT"`
	User     string `toml:"user" env:"MYSQL_USER"`
	Password string `toml:"password" env:"MYSQL_PASSWORD"`
	DB       string `toml:"db" env:"MYSQL_DB"`
	Params   string `toml:"params" env:"MYSQL_PARAMS"`
}

type RedisConfig struct {
	Addr     string `toml:"addr" env:"REDIS_ADDR"`
	Password string `toml:"password" env:"REDIS_PASSWORD"`
	DB       int    `toml:"db" env:"REDIS_DB"`
}

// RabbitMQConfig enables the chat log mirror when URL is set.
type RabbitMQConfig struct {
	URL          string `toml:"url" env:"RABBITMQ_URL"`
	ChatLogQueue string `toml:"chat_log_queue" env:"RABBITMQ_CHAT_LOG_QUEUE"`
}

type SessionConfig struct {
	Backend                string `toml:"backend" env:"SESSION_BACKEND"`
	IdleTTLMinute          int    `toml:"idle_ttl_minute" env:"SESSION_IDLE_TTL_MINUTE"`
	InflightTimeoutSeconds int    `toml:"inflight_timeout_seconds" env:"SESSION_INFLIGHT_TIMEOUT_SECONDS"`
}

type AuditConfig struct {
	FallbackPath string `toml:"fallback_path" env:"AUDIT_FALLBACK_PATH"`
}

type DocumentsConfig struct {
	MaxUploadMB int `toml:"max_upload_mb" env:"DOCUMENTS_MAX_UPLOAD_MB"`
}

// Load layers the config file (CONFIG_FILE, default configs/config.toml) over
// the defaults, then applies environment overrides.
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "configs/config.toml"
	}
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides failed: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		problems = append(problems, "llm.api_key is required")
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		problems = append(problems, "llm.base_url is required")
	}
	if strings.TrimSpace(c.MySQL.Host) == "" {
		problems = append(problems, "mysql.host is required")
	}
	if strings.TrimSpace(c.MySQL.User) == "" {
		problems = append(problems, "mysql.user is required")
	}
	if strings.TrimSpace(c.MySQL.DB) == "" {
		problems = append(problems, "mysql.db is required")
	}
	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			problems = append(problems, "redis.addr is required for the redis session backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("session.backend %q is not one of memory, redis", c.Session.Backend))
	}
	if c.IsProd() {
		if c.Auth.AdminSecret == DefaultAdminSecret {
			problems = append(problems, "auth.admin_secret must be changed from the default in prod")
		}
		if c.Auth.SessionSecret == DefaultSessionSecret {
			problems = append(problems, "auth.session_secret must be changed from the default in prod")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Warnings lists insecure settings that are tolerated outside prod.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Auth.AdminSecret == DefaultAdminSecret {
		warnings = append(warnings, "auth.admin_secret is the built-in default")
	}
	if c.Auth.SessionSecret == DefaultSessionSecret {
		warnings = append(warnings, "auth.session_secret is the built-in default")
	}
	return warnings
}

func (c *Config) IsProd() bool {
	return c.App.Env == envProd
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.MySQL.User,
		c.MySQL.Password,
		c.MySQL.Host,
		c.MySQL.Port,
		c.MySQL.DB,
		c.MySQL.Params,
	)
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.Session.IdleTTLMinute) * time.Minute
}

func (c *Config) SessionInflightTimeout() time.Duration {
	return time.Duration(c.Session.InflightTimeoutSeconds) * time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Documents.MaxUploadMB) << 20
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "hrdoc-assistant",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8080,
			GinMode: "debug",
		},
		Auth: AuthConfig{
			AdminSecret:   DefaultAdminSecret,
			SessionSecret: DefaultSessionSecret,
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			Temperature:    0.7,
			MaxTokens:      1000,
			TimeoutSeconds: 120,
		},
		MySQL: MySQLConfig{
			Host:   "127.0.0.1",
			Port:   3306,
			User:   "root",
			DB:     "hrdoc_assistant",
			Params: "parseTime=true&loc=Local&charset=utf8mb4",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		RabbitMQ: RabbitMQConfig{
			ChatLogQueue: "hrdoc.chat_logs",
		},
		Session: SessionConfig{
			Backend:                SessionBackendMemory,
			IdleTTLMinute:          24 * 60,
			InflightTimeoutSeconds: 180,
		},
		Audit: AuditConfig{
			FallbackPath: "chat_logs.json",
		},
		Documents: DocumentsConfig{
			MaxUploadMB: 10,
		},
	}
}
