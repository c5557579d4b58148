package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/worktime/internal/work"
)

// LogFormat selects the zerolog writer.
type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

type Config struct {
	DatabasePath string `yaml:"DatabasePath"`
	DraftPath    string `yaml:"DraftPath"`
	TimeZone     string `yaml:"TimeZone"`

	// Work rules
	RequiredHours        float64       `yaml:"RequiredHours"`
	StandardBreakMinutes int           `yaml:"StandardBreakMinutes"`
	LiveInterval         time.Duration `yaml:"LiveInterval"`

	// Logging
	LogLevel  string    `yaml:"LogLevel"`
	LogFormat LogFormat `yaml:"LogFormat"`

	// HTTP API
	HTTPAddr  string        `yaml:"HTTPAddr"`
	JWTSecret string        `yaml:"JWTSecret"`
	TokenTTL  time.Duration `yaml:"TokenTTL"`
	AdminUser string        `yaml:"AdminUser"`

	// User is the identity the CLI acts as.
	User string `yaml:"User"`
}

// Load reads ~/.worktime.yaml, fills in defaults and applies WORKTIME_*
// environment overrides.
func Load() (*Config, error) {
	return LoadFile(getConfigPath())
}

// LoadFile is Load for an explicit path. A missing file yields the defaults.
func LoadFile(configPath string) (*Config, error) {
	cfg := getDefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	applyEnv(cfg)
	cfg.applyDefaults()

	cfg.DatabasePath = expandHome(cfg.DatabasePath)
	cfg.DraftPath = expandHome(cfg.DraftPath)

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveFile(getConfigPath(), cfg)
}

func SaveFile(configPath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0600)
}

func getConfigPath() string {
	if p := os.Getenv("WORKTIME_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".worktime.yaml")
}

func getDefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	user := os.Getenv("USER")
	if user == "" {
		user = "me"
	}
	return &Config{
		DatabasePath:         filepath.Join(home, ".worktime", "data.db"),
		DraftPath:            filepath.Join(home, ".worktime", "draft.db"),
		RequiredHours:        work.RequiredHours.Hours(),
		StandardBreakMinutes: int(work.StandardBreak / time.Minute),
		LiveInterval:         time.Second,
		LogLevel:             "info",
		LogFormat:            LogFormatConsole,
		HTTPAddr:             "127.0.0.1:8080",
		TokenTTL:             24 * time.Hour,
		AdminUser:            "admin",
		User:                 user,
	}
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := getDefaultConfig()
	if c.DatabasePath == "" {
		c.DatabasePath = def.DatabasePath
	}
	if c.DraftPath == "" {
		c.DraftPath = def.DraftPath
	}
	if c.RequiredHours == 0 {
		c.RequiredHours = def.RequiredHours
	}
	if c.StandardBreakMinutes == 0 {
		c.StandardBreakMinutes = def.StandardBreakMinutes
	}
	if c.LiveInterval == 0 {
		c.LiveInterval = def.LiveInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = def.HTTPAddr
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = def.TokenTTL
	}
	if c.AdminUser == "" {
		c.AdminUser = def.AdminUser
	}
	if c.User == "" {
		c.User = def.User
	}
}

func applyEnv(c *Config) {
	c.DatabasePath = getEnv("WORKTIME_DB_PATH", c.DatabasePath)
	c.DraftPath = getEnv("WORKTIME_DRAFT_PATH", c.DraftPath)
	c.TimeZone = getEnv("WORKTIME_TZ", c.TimeZone)
	c.RequiredHours = getEnvFloat("WORKTIME_REQUIRED_HOURS", c.RequiredHours)
	c.StandardBreakMinutes = getEnvInt("WORKTIME_STANDARD_BREAK_MINUTES", c.StandardBreakMinutes)
	c.LiveInterval = getEnvDuration("WORKTIME_LIVE_INTERVAL", c.LiveInterval)
	c.LogLevel = getEnv("WORKTIME_LOG_LEVEL", c.LogLevel)
	c.LogFormat = LogFormat(getEnv("WORKTIME_LOG_FORMAT", string(c.LogFormat)))
	c.HTTPAddr = getEnv("WORKTIME_HTTP_ADDR", c.HTTPAddr)
	c.JWTSecret = getEnv("WORKTIME_JWT_SECRET", c.JWTSecret)
	c.TokenTTL = getEnvDuration("WORKTIME_TOKEN_TTL", c.TokenTTL)
	c.AdminUser = getEnv("WORKTIME_ADMIN_USER", c.AdminUser)
	c.User = getEnv("WORKTIME_USER", c.User)
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := getEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := getEnv(key, ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := getEnv(key, ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[2:])
	}
	return p
}

// Policy builds the calculation policy from the work rule settings.
func (c *Config) Policy() work.Policy {
	p := work.DefaultPolicy
	if c.RequiredHours > 0 {
		p.RequiredHours = time.Duration(c.RequiredHours * float64(time.Hour))
	}
	if c.StandardBreakMinutes > 0 {
		p.StandardBreak = time.Duration(c.StandardBreakMinutes) * time.Minute
	}
	return p
}

// Location returns the configured time zone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Now is the current time in the configured time zone.
func (c *Config) Now() time.Time {
	return time.Now().In(c.Location())
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
}

// Validate checks the configuration for common issues
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return &ValidationError{Field: "DatabasePath", Message: "Database path is required"}
	}
	if c.DraftPath == "" {
		return &ValidationError{Field: "DraftPath", Message: "Draft path is required"}
	}
	if c.RequiredHours <= 0 || c.RequiredHours > 24 {
		return &ValidationError{Field: "RequiredHours", Message: "Required hours must be between 0 and 24"}
	}
	if c.StandardBreakMinutes < 0 || time.Duration(c.StandardBreakMinutes)*time.Minute >= work.MaxBreak {
		return &ValidationError{Field: "StandardBreakMinutes", Message: "Standard break must be shorter than the maximum break"}
	}
	if c.LiveInterval <= 0 {
		return &ValidationError{Field: "LiveInterval", Message: "Live interval must be positive"}
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return &ValidationError{Field: "TimeZone", Message: err.Error()}
		}
	}
	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return &ValidationError{Field: "LogFormat", Message: "Log format must be console or json"}
	}
	if c.User == "" {
		return &ValidationError{Field: "User", Message: "User is required"}
	}
	return nil
}

// ValidateServer adds the checks that only matter for the HTTP API.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 16 {
		return &ValidationError{Field: "JWTSecret", Message: "JWT secret must be at least 16 characters (set WORKTIME_JWT_SECRET)"}
	}
	if c.HTTPAddr == "" {
		return &ValidationError{Field: "HTTPAddr", Message: "HTTP address is required"}
	}
	return nil
}
