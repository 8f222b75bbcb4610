package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-signup/pkg/signup"
)

// Config is the runtime configuration shared by the CLI commands. Values are
// read from an optional YAML file and then overridden by SIGNUP_* variables.
type Config struct {
	Listen         string        `yaml:"listen" env:"SIGNUP_LISTEN"`
	SubmitDelay    time.Duration `yaml:"submit_delay" env:"SIGNUP_SUBMIT_DELAY"`
	RejectedEmails []string      `yaml:"rejected_emails" env:"SIGNUP_REJECTED_EMAILS"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"SIGNUP_SESSION_TTL"`
	Log            LogConfig     `yaml:"log"`
	Theme          ThemeConfig   `yaml:"theme"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"SIGNUP_LOG_LEVEL"`
	Format string `yaml:"format" env:"SIGNUP_LOG_FORMAT"`
}

// ThemeConfig names the theme applied to the web form. Tokens become CSS
// variables on the page.
type ThemeConfig struct {
	Name    string            `yaml:"name" env:"SIGNUP_THEME"`
	Variant string            `yaml:"variant" env:"SIGNUP_THEME_VARIANT"`
	Tokens  map[string]string `yaml:"tokens"`
}

// Default returns the configuration used when nothing is supplied.
func Default() Config {
	return Config{
		Listen:         ":8080",
		SubmitDelay:    signup.DefaultSubmitDelay,
		RejectedEmails: []string{signup.DefaultRejectedEmail},
		SessionTTL:     30 * time.Minute,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Theme: ThemeConfig{
			Name:    "default",
			Variant: "light",
			Tokens: map[string]string{
				"brand": "#1d4ed8",
				"error": "#dc2626",
			},
		},
	}
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document does not set.
func Parse(data []byte, cfg *Config) error {
	if cfg == nil {
		return errors.New("config: target is nil")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// ParseEnv loads overrides from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.SubmitDelay < 0 {
		errs = append(errs, fmt.Errorf("submit_delay must not be negative, got %s", c.SubmitDelay))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Submitter builds the simulated sign-up collaborator from the config.
func (c Config) Submitter() *signup.SimulatedSubmitter {
	return signup.NewSimulatedSubmitter(c.SubmitDelay, c.RejectedEmails...)
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
