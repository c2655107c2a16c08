// Package config loads process configuration. Values are resolved in
// order: built-in defaults, an optional TOML file, then environment
// variables, with later sources winning.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

// DefaultArchiveURL is the public filing archive root.
const DefaultArchiveURL = "https://www.sec.gov/Archives/"

// Config is the full process configuration.
type Config struct {
	// UserAgent identifies the operator on every archive request.
	UserAgent string `toml:"user_agent" env:"FILINGWATCH_USER_AGENT"`

	ArchiveURL       string   `toml:"archive_url"       env:"FILINGWATCH_ARCHIVE_URL"`
	RateLimit        int      `toml:"rate_limit"        env:"FILINGWATCH_RATE_LIMIT"`
	RateWindow       Duration `toml:"rate_window"       env:"FILINGWATCH_RATE_WINDOW"`
	HTTPTimeout      Duration `toml:"http_timeout"      env:"FILINGWATCH_HTTP_TIMEOUT"`
	FetchConcurrency int      `toml:"fetch_concurrency" env:"FILINGWATCH_FETCH_CONCURRENCY"`
	FormTypes        []string `toml:"form_types"        env:"FILINGWATCH_FORM_TYPES" envSeparator:","`
	DataDir          string   `toml:"data_dir"          env:"FILINGWATCH_DATA_DIR"`
	LogLevel         string   `toml:"log_level"         env:"FILINGWATCH_LOG_LEVEL"`

	Schedule ScheduleConfig `toml:"schedule"`
	Mail     MailConfig     `toml:"mail"`
}

// ScheduleConfig controls the daily trigger and run retries.
type ScheduleConfig struct {
	Time        string   `toml:"time"         env:"FILINGWATCH_SCHEDULE_TIME"`
	TimeZone    string   `toml:"time_zone"    env:"FILINGWATCH_SCHEDULE_TZ"`
	MaxAttempts int      `toml:"max_attempts" env:"FILINGWATCH_MAX_ATTEMPTS"`
	RetryDelay  Duration `toml:"retry_delay"  env:"FILINGWATCH_RETRY_DELAY"`
}

// MailConfig holds the outbound relay settings.
type MailConfig struct {
	Host        string `toml:"host"         env:"SMTP_HOST"`
	Port        int    `toml:"port"         env:"SMTP_PORT"`
	FromAddress string `toml:"from_address" env:"SMTP_FROM_ADDRESS"`
	FromName    string `toml:"from_name"    env:"SMTP_FROM_NAME"`
	ServerName  string `toml:"server_name"  env:"SMTP_SERVER_NAME"`
	Username    string `toml:"username"     env:"SMTP_USERNAME"`
	Password    string `toml:"password"     env:"SMTP_PASSWORD"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ArchiveURL:       DefaultArchiveURL,
		RateLimit:        5,
		RateWindow:       Duration(time.Second),
		HTTPTimeout:      Duration(30 * time.Second),
		FetchConcurrency: 4,
		FormTypes:        []string{"3", "3/A", "4", "4/A", "5", "5/A"},
		LogLevel:         "info",
		Schedule: ScheduleConfig{
			Time:        "06:00",
			TimeZone:    "UTC",
			MaxAttempts: 3,
			RetryDelay:  Duration(5 * time.Minute),
		},
		Mail: MailConfig{
			Port: 25,
		},
	}
}

// Load resolves configuration from defaults, the TOML file at path
// (skipped when path is empty or the file does not exist) and the
// environment. It does not validate; call Validate before starting.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("decode config file %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the process cannot start without.
// Mail settings are checked at send time instead.
func (c Config) Validate() error {
	if strings.TrimSpace(c.UserAgent) == "" {
		return &domain.ConfigurationError{Setting: "FILINGWATCH_USER_AGENT"}
	}
	if c.RateLimit <= 0 {
		return &domain.ConfigurationError{Setting: "FILINGWATCH_RATE_LIMIT", Reason: "must be positive"}
	}
	if c.RateWindow <= 0 {
		return &domain.ConfigurationError{Setting: "FILINGWATCH_RATE_WINDOW", Reason: "must be positive"}
	}
	if _, err := c.SchedulerConfig(); err != nil {
		return err
	}
	return nil
}

// SchedulerConfig converts the schedule settings into the domain form.
func (c Config) SchedulerConfig() (domain.SchedulerConfig, error) {
	sc := domain.DefaultSchedulerConfig()

	hour, minute, err := domain.ParseClock(c.Schedule.Time)
	if err != nil {
		return sc, &domain.ConfigurationError{Setting: "FILINGWATCH_SCHEDULE_TIME", Reason: err.Error()}
	}
	sc.Hour, sc.Minute = hour, minute

	if c.Schedule.TimeZone != "" {
		loc, err := time.LoadLocation(c.Schedule.TimeZone)
		if err != nil {
			return sc, &domain.ConfigurationError{Setting: "FILINGWATCH_SCHEDULE_TZ", Reason: err.Error()}
		}
		sc.Location = loc
	}
	if c.Schedule.MaxAttempts > 0 {
		sc.MaxAttempts = c.Schedule.MaxAttempts
	}
	if c.Schedule.RetryDelay > 0 {
		sc.RetryDelay = c.Schedule.RetryDelay.Std()
	}
	return sc, nil
}

// Duration is a time.Duration that decodes from strings such as "1s"
// in both TOML and the environment.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
