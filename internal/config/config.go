package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port                  string
	APIBaseURL            string
	APIKey                string
	PollInterval          time.Duration
	TransportRetry        time.Duration
	SuggestionRetry       time.Duration
	SuggestionMaxAttempts int
	MaxSuggestions        int
	RequestTimeout        time.Duration
	MaxBodyBytes          int64
	ShareSecret           string
	ShareTTL              time.Duration
	BaseURL               string
	DataDir               string
}

// fileConfig is the YAML shape of an optional config file. Durations are
// written as strings ("3s", "500ms") and parsed by ApplyFile.
type fileConfig struct {
	Port                  string `yaml:"port"`
	APIBaseURL            string `yaml:"apiBaseUrl"`
	APIKey                string `yaml:"apiKey"`
	PollInterval          string `yaml:"pollInterval"`
	TransportRetry        string `yaml:"transportRetry"`
	SuggestionRetry       string `yaml:"suggestionRetry"`
	SuggestionMaxAttempts int    `yaml:"suggestionMaxAttempts"`
	MaxSuggestions        int    `yaml:"maxSuggestions"`
	RequestTimeout        string `yaml:"requestTimeout"`
	MaxBodyBytes          int64  `yaml:"maxBodyBytes"`
	ShareSecret           string `yaml:"shareSecret"`
	ShareTTL              string `yaml:"shareTtl"`
	BaseURL               string `yaml:"baseUrl"`
	DataDir               string `yaml:"dataDir"`
}

func LoadConfig() (Config, error) {
	cfg := Config{}

	cfg.Port = envOrDefault("PORT", "8090")
	cfg.APIBaseURL = envOrDefault("SULIKO_API_BASE_URL", "https://api.suliko.ge")
	cfg.APIKey = os.Getenv("SULIKO_API_KEY")
	cfg.ShareSecret = envOrDefault("SHARE_SECRET", "change-me")
	cfg.DataDir = envOrDefault("DATA_DIR", "data")
	cfg.BaseURL = envOrDefault("BASE_URL", fmt.Sprintf("http://localhost:%s", cfg.Port))

	pollMs, err := parseIntEnv("POLL_INTERVAL_MS", 3000)
	if err != nil {
		return Config{}, fmt.Errorf("parse POLL_INTERVAL_MS: %w", err)
	}
	cfg.PollInterval = time.Duration(pollMs) * time.Millisecond

	retryMs, err := parseIntEnv("TRANSPORT_RETRY_MS", 5000)
	if err != nil {
		return Config{}, fmt.Errorf("parse TRANSPORT_RETRY_MS: %w", err)
	}
	cfg.TransportRetry = time.Duration(retryMs) * time.Millisecond

	suggestionMs, err := parseIntEnv("SUGGESTION_RETRY_MS", 3000)
	if err != nil {
		return Config{}, fmt.Errorf("parse SUGGESTION_RETRY_MS: %w", err)
	}
	cfg.SuggestionRetry = time.Duration(suggestionMs) * time.Millisecond

	attempts, err := parseIntEnv("SUGGESTION_MAX_ATTEMPTS", 40)
	if err != nil {
		return Config{}, fmt.Errorf("parse SUGGESTION_MAX_ATTEMPTS: %w", err)
	}
	cfg.SuggestionMaxAttempts = int(attempts)

	maxSuggestions, err := parseIntEnv("MAX_SUGGESTIONS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_SUGGESTIONS: %w", err)
	}
	cfg.MaxSuggestions = int(maxSuggestions)

	timeoutSeconds, err := parseIntEnv("REQUEST_TIMEOUT_SECONDS", 120)
	if err != nil {
		return Config{}, fmt.Errorf("parse REQUEST_TIMEOUT_SECONDS: %w", err)
	}
	cfg.RequestTimeout = time.Duration(timeoutSeconds) * time.Second

	maxBodyMB, err := parseIntEnv("MAX_BODY_MB", 20)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_BODY_MB: %w", err)
	}
	cfg.MaxBodyBytes = maxBodyMB * 1024 * 1024

	shareTTLSeconds, err := parseIntEnv("SHARE_TTL_SECONDS", 86400)
	if err != nil {
		return Config{}, fmt.Errorf("parse SHARE_TTL_SECONDS: %w", err)
	}
	cfg.ShareTTL = time.Duration(shareTTLSeconds) * time.Second

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

// ApplyFile overlays values from a YAML file on top of the loaded config.
// Zero-valued fields in the file leave the existing value untouched.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var overlay fileConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if overlay.Port != "" {
		c.Port = overlay.Port
	}
	if overlay.APIBaseURL != "" {
		c.APIBaseURL = overlay.APIBaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if err := applyDuration(&c.PollInterval, overlay.PollInterval, "pollInterval"); err != nil {
		return err
	}
	if err := applyDuration(&c.TransportRetry, overlay.TransportRetry, "transportRetry"); err != nil {
		return err
	}
	if err := applyDuration(&c.SuggestionRetry, overlay.SuggestionRetry, "suggestionRetry"); err != nil {
		return err
	}
	if overlay.SuggestionMaxAttempts > 0 {
		c.SuggestionMaxAttempts = overlay.SuggestionMaxAttempts
	}
	if overlay.MaxSuggestions > 0 {
		c.MaxSuggestions = overlay.MaxSuggestions
	}
	if err := applyDuration(&c.RequestTimeout, overlay.RequestTimeout, "requestTimeout"); err != nil {
		return err
	}
	if overlay.MaxBodyBytes > 0 {
		c.MaxBodyBytes = overlay.MaxBodyBytes
	}
	if overlay.ShareSecret != "" {
		c.ShareSecret = overlay.ShareSecret
	}
	if err := applyDuration(&c.ShareTTL, overlay.ShareTTL, "shareTtl"); err != nil {
		return err
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.DataDir != "" {
		abs, err := filepath.Abs(overlay.DataDir)
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		c.DataDir = abs
	}

	return nil
}

func applyDuration(dst *time.Duration, value, field string) error {
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", field, err)
	}
	*dst = parsed
	return nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}
