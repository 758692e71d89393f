package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort     = 2333
	defaultEnv      = "development"
	defaultRedisURL = "redis://localhost:6379/0"
)

// AppConfig holds runtime startup configuration loaded from YAML and
// overridden by the environment.
type AppConfig struct {
	Port           int         `yaml:"port"`
	Env            string      `yaml:"env"` // "development" | "production"
	DSN            string      `yaml:"dsn"` // MySQL DSN
	RedisURL       string      `yaml:"redis_url"`
	JWTSecret      string      `yaml:"jwt_secret"`
	AllowedOrigins []string    `yaml:"allowed_origins"`
	Site           SiteConfig  `yaml:"site"`
	MailOptions    MailOptions `yaml:"mail"`
	Health         Health      `yaml:"health"`
}

// SiteConfig identifies the public site the API serves.
type SiteConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"` // base URL for confirm/unsubscribe links and redirects
}

// MailOptions configures the transactional email provider.
type MailOptions struct {
	Enable    bool   `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	UseResend bool   `yaml:"use_resend"`
	ResendKey string `yaml:"resend_key"`
}

// Health configures the token-gated mail health probe.
type Health struct {
	Token     string `yaml:"token"`
	TestEmail string `yaml:"test_email"`
}

// envOverrides are secrets and deploy-specific values that may be supplied
// via the environment instead of the YAML file.
type envOverrides struct {
	DSN         string `envconfig:"DSN"`
	RedisURL    string `envconfig:"REDIS_URL"`
	JWTSecret   string `envconfig:"JWT_SECRET"`
	SiteURL     string `envconfig:"SITE_URL"`
	MailFrom    string `envconfig:"MAIL_FROM"`
	SMTPPass    string `envconfig:"SMTP_PASS"`
	ResendKey   string `envconfig:"RESEND_KEY"`
	HealthToken string `envconfig:"HEALTH_TOKEN"`
	TestEmail   string `envconfig:"TEST_EMAIL"`
}

// Load reads the YAML config, applies environment overrides (prefix
// KANDID_) and validates it. Missing required secrets fail here, at
// startup, never at request time.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := AppConfig{Port: defaultPort, Env: defaultEnv, RedisURL: defaultRedisURL}

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
		// No file is fine as long as the environment supplies everything.
	} else {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("kandid", &env); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	applyEnvOverrides(&cfg, env)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *AppConfig, env envOverrides) {
	if env.DSN != "" {
		cfg.DSN = env.DSN
	}
	if env.RedisURL != "" {
		cfg.RedisURL = env.RedisURL
	}
	if env.JWTSecret != "" {
		cfg.JWTSecret = env.JWTSecret
	}
	if env.SiteURL != "" {
		cfg.Site.URL = env.SiteURL
	}
	if env.MailFrom != "" {
		cfg.MailOptions.From = env.MailFrom
	}
	if env.SMTPPass != "" {
		cfg.MailOptions.Pass = env.SMTPPass
	}
	if env.ResendKey != "" {
		cfg.MailOptions.ResendKey = env.ResendKey
		cfg.MailOptions.UseResend = true
	}
	if env.HealthToken != "" {
		cfg.Health.Token = env.HealthToken
	}
	if env.TestEmail != "" {
		cfg.Health.TestEmail = env.TestEmail
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return fmt.Errorf("dsn is required (yaml dsn or KANDID_DSN)")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return fmt.Errorf("jwt_secret is required (yaml jwt_secret or KANDID_JWT_SECRET)")
	}
	if strings.TrimSpace(cfg.Site.URL) == "" {
		return fmt.Errorf("site.url is required (yaml site.url or KANDID_SITE_URL)")
	}
	u, err := url.Parse(cfg.Site.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.url %q is not an absolute URL", cfg.Site.URL)
	}
	if cfg.MailOptions.Enable {
		if cfg.MailOptions.UseResend {
			if strings.TrimSpace(cfg.MailOptions.ResendKey) == "" {
				return fmt.Errorf("mail.resend_key is required when mail.use_resend is set")
			}
		} else if strings.TrimSpace(cfg.MailOptions.Host) == "" {
			return fmt.Errorf("mail.host is required when mail is enabled without resend")
		}
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

// BaseURL returns the site base URL without a trailing slash.
func (c *AppConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.Site.URL), "/")
}

// SiteName returns the configured site name or a fallback.
func (c *AppConfig) SiteName() string {
	if name := strings.TrimSpace(c.Site.Name); name != "" {
		return name
	}
	return "The Kandid Edit"
}
