package config

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port          int    `toml:"port"`
	PublicURL     string `toml:"public_url"`
	SecureCookies bool   `toml:"secure_cookies"`
	TemplatesDir  string `toml:"templates_dir"`
	LocalesDir    string `toml:"locales_dir"`
	RateLimit     int    `toml:"rate_limit"` // requests per minute per IP
}

// BackendConfig points at the label backend that owns Gmail access.
type BackendConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

type GoogleConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURL  string   `toml:"redirect_url"`
	Scopes       []string `toml:"scopes"`
}

type SessionConfig struct {
	DataDir    string   `toml:"data_dir"`
	Expiration Duration `toml:"expiration"`
}

type EncryptionConfig struct {
	Key string `toml:"key"` // secret used to derive the session token key
}

type MailConfig struct {
	DefaultFolder     string   `toml:"default_folder"`
	PageSize          int      `toml:"page_size"`
	MaxPages          int      `toml:"max_pages"`
	ThreadSearchLimit int      `toml:"thread_search_limit"`
	PreviewLength     int      `toml:"preview_length"`
	SeenFlag          string   `toml:"seen_flag"`
	AutoLabelWorkers  int      `toml:"auto_label_workers"`
	CacheTTL          Duration `toml:"cache_ttl"` // folder and page cache
}

// CleanerConfig holds the preview heuristics.
type CleanerConfig struct {
	SignatureThreshold float64 `toml:"signature_threshold"`
	WordBoundaryRatio  float64 `toml:"word_boundary_ratio"`
}

type SanitizerConfig struct {
	ImageStyles []string `toml:"image_styles"`
	TextStyles  []string `toml:"text_styles"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

type SSLConfig struct {
	Enabled    bool   `toml:"enabled"`
	CertFile   string `toml:"cert_file"`
	KeyFile    string `toml:"key_file"`
	Domain     string `toml:"domain"`
	HSTSMaxAge int    `toml:"hsts_max_age"`
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Backend    BackendConfig    `toml:"backend"`
	Google     GoogleConfig     `toml:"google"`
	Session    SessionConfig    `toml:"session"`
	Encryption EncryptionConfig `toml:"encryption"`
	Mail       MailConfig       `toml:"mail"`
	Cleaner    CleanerConfig    `toml:"cleaner"`
	Sanitizer  SanitizerConfig  `toml:"sanitizer"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Log        LogConfig        `toml:"log"`
	SSL        SSLConfig        `toml:"ssl"`
}

// Duration decodes TOML strings such as "15s" into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var config Config

	config.Server.Port = 3000
	config.Server.PublicURL = "http://localhost:3000"
	config.Server.TemplatesDir = "./templates"
	config.Server.LocalesDir = "./locales"
	config.Server.RateLimit = 100

	config.Backend.BaseURL = "http://localhost:8000"
	config.Backend.Timeout = Duration{15 * time.Second}

	config.Google.Scopes = []string{
		"openid",
		"email",
		"profile",
	}

	config.Session.DataDir = "./data"
	config.Session.Expiration = Duration{24 * time.Hour}

	config.Mail.DefaultFolder = "INBOX"
	config.Mail.PageSize = 50
	config.Mail.MaxPages = 20
	config.Mail.ThreadSearchLimit = 100
	config.Mail.PreviewLength = 200
	config.Mail.SeenFlag = `\Seen`
	config.Mail.AutoLabelWorkers = 4
	config.Mail.CacheTTL = Duration{2 * time.Minute}

	config.Cleaner.SignatureThreshold = 0.5
	config.Cleaner.WordBoundaryRatio = 0.8

	config.Sanitizer.ImageStyles = []string{
		"width", "height", "max-width", "max-height",
		"display", "vertical-align",
		"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
		"border", "border-width", "border-style", "border-color",
	}

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"

	config.Log.Level = "info"
	config.Log.Format = "text"

	config.SSL.HSTSMaxAge = 31536000 // 1 year

	return &config
}

func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	// Load config file
	if _, err := toml.DecodeFile(filepath, config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the values that have no sensible fallback.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	if c.Backend.Timeout.Duration <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	if c.Cleaner.SignatureThreshold <= 0 || c.Cleaner.SignatureThreshold > 1 {
		return fmt.Errorf("cleaner signature_threshold must be in (0, 1], got %v", c.Cleaner.SignatureThreshold)
	}
	if c.Cleaner.WordBoundaryRatio <= 0 || c.Cleaner.WordBoundaryRatio >= 1 {
		return fmt.Errorf("cleaner word_boundary_ratio must be in (0, 1), got %v", c.Cleaner.WordBoundaryRatio)
	}
	if c.Mail.PageSize < 1 || c.Mail.PageSize > 200 {
		return fmt.Errorf("mail page_size must be between 1 and 200")
	}
	if c.Mail.ThreadSearchLimit < 1 {
		return fmt.Errorf("mail thread_search_limit must be positive")
	}
	if c.SSL.Enabled {
		if err := c.ValidateSSL(); err != nil {
			return fmt.Errorf("SSL configuration error: %w", err)
		}
	}
	return nil
}

// ValidateSSL checks if the SSL configuration is valid
func (c *Config) ValidateSSL() error {
	if !c.SSL.Enabled {
		return nil
	}

	if c.SSL.CertFile == "" {
		return fmt.Errorf("SSL certificate file path is required")
	}

	if c.SSL.KeyFile == "" {
		return fmt.Errorf("SSL key file path is required")
	}

	if _, err := tls.LoadX509KeyPair(c.SSL.CertFile, c.SSL.KeyFile); err != nil {
		return fmt.Errorf("failed to load SSL certificates: %w", err)
	}

	return nil
}

// GetSecurityHeaders returns the extra headers added when SSL is on.
func (c *Config) GetSecurityHeaders() map[string]string {
	headers := make(map[string]string)

	if c.SSL.Enabled && c.SSL.Domain != "" {
		headers["Strict-Transport-Security"] = fmt.Sprintf("max-age=%d; includeSubDomains", c.SSL.HSTSMaxAge)
	}

	return headers
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
