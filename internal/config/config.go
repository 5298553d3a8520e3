package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SessionStoreSQLite = "sqlite"
	SessionStoreRedis  = "redis"

	EmailModeFile = "file"
	EmailModeSMTP = "smtp"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Google   GoogleConfig   `yaml:"google"`
	Email    EmailConfig    `yaml:"email"`
	Storage  StorageConfig  `yaml:"storage"`
	Admin    AdminConfig    `yaml:"admin"`
}

type ServerConfig struct {
	Name              string   `yaml:"name"`
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	BaseURL           string   `yaml:"base_url"`     // public URL of this API, used in verification links
	FrontendURL       string   `yaml:"frontend_url"` // where reset.html lives
	AllowedOrigins    []string `yaml:"allowed_origins"`
	TrustedProxyCIDRs []string `yaml:"trusted_proxy_cidrs"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	VerificationTTL time.Duration `yaml:"verification_ttl"`
	ResetTTL        time.Duration `yaml:"reset_ttl"`
}

type SessionConfig struct {
	Store        string        `yaml:"store"` // sqlite | redis
	RedisURL     string        `yaml:"redis_url"`
	CookieName   string        `yaml:"cookie_name"`
	CookieSecure bool          `yaml:"cookie_secure"`
	TTL          time.Duration `yaml:"ttl"`
}

type GoogleConfig struct {
	ClientID     string        `yaml:"client_id"`
	TokenInfoURL string        `yaml:"tokeninfo_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

type EmailConfig struct {
	Mode    string     `yaml:"mode"` // file | smtp
	MailDir string     `yaml:"mail_dir"`
	SMTP    SMTPConfig `yaml:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type StorageConfig struct {
	BlobRoot       string `yaml:"blob_root"`
	UploadMaxBytes int64  `yaml:"upload_max_bytes"`
}

type AdminConfig struct {
	EnableSeed bool `yaml:"enable_seed"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from raw YAML, applying env overrides, validation and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("IDEIAS_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("IDEIAS_GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("IDEIAS_SMTP_PASSWORD"); v != "" {
		c.Email.SMTP.Password = v
	}
	if v := os.Getenv("IDEIAS_REDIS_URL"); v != "" {
		c.Session.RedisURL = v
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Session.Store) {
	case "", SessionStoreSQLite:
	case SessionStoreRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("session.redis_url is required when session.store is redis")
		}
	default:
		return fmt.Errorf("session.store must be %q or %q", SessionStoreSQLite, SessionStoreRedis)
	}

	switch strings.ToLower(c.Email.Mode) {
	case "", EmailModeFile:
	case EmailModeSMTP:
		if c.Email.SMTP.Host == "" {
			return fmt.Errorf("email.smtp.host is required")
		}
		if c.Email.SMTP.Port == 0 {
			return fmt.Errorf("email.smtp.port is required")
		}
		if c.Email.SMTP.From == "" {
			return fmt.Errorf("email.smtp.from is required")
		}
	default:
		return fmt.Errorf("email.mode must be %q or %q", EmailModeFile, EmailModeSMTP)
	}

	if c.Storage.UploadMaxBytes < 0 {
		return fmt.Errorf("storage.upload_max_bytes must be positive")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.Name == "" {
		c.Server.Name = "Ideias"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = c.Server.BaseURL
	}
	c.Server.FrontendURL = strings.TrimRight(c.Server.FrontendURL, "/")
	if c.Database.Path == "" {
		c.Database.Path = "./data/ideias.db"
	}
	if c.Auth.VerificationTTL == 0 {
		c.Auth.VerificationTTL = 2 * time.Hour
	}
	if c.Auth.ResetTTL == 0 {
		c.Auth.ResetTTL = time.Hour
	}
	c.Session.Store = strings.ToLower(c.Session.Store)
	if c.Session.Store == "" {
		c.Session.Store = SessionStoreSQLite
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "ideias_session"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 7 * 24 * time.Hour
	}
	if c.Google.ClientID == "" {
		c.Google.ClientID = "YOUR_GOOGLE_CLIENT_ID"
	}
	if c.Google.TokenInfoURL == "" {
		c.Google.TokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	}
	if c.Google.Timeout == 0 {
		c.Google.Timeout = 10 * time.Second
	}
	c.Email.Mode = strings.ToLower(c.Email.Mode)
	if c.Email.Mode == "" {
		c.Email.Mode = EmailModeFile
	}
	if c.Email.MailDir == "" {
		c.Email.MailDir = "./storage/mails"
	}
	if c.Storage.BlobRoot == "" {
		c.Storage.BlobRoot = "./storage/blobs"
	}
	if c.Storage.UploadMaxBytes == 0 {
		c.Storage.UploadMaxBytes = 2 << 20
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
