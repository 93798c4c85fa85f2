package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/thenajjar/slack-history-exporter/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Slack    SlackConfig    `yaml:"slack"`
	Export   ExportConfig   `yaml:"export"`
	Download DownloadConfig `yaml:"download"`
}

// SlackConfig holds Slack API configuration.
type SlackConfig struct {
	Token     string `yaml:"token" envconfig:"SLACK_TOKEN"`
	PageLimit int    `yaml:"page_limit" envconfig:"SLACK_PAGE_LIMIT" default:"200"`
}

// ExportConfig holds export output configuration.
type ExportConfig struct {
	Prefix    string `yaml:"prefix" envconfig:"EXPORT_PREFIX" default:"Slack Export"`
	OutputDir string `yaml:"output_dir" envconfig:"EXPORT_OUTPUT_DIR" default:"."`
	StateDir  string `yaml:"state_dir" envconfig:"EXPORT_STATE_DIR" default:"."`
	SaveMedia bool   `yaml:"save_media" envconfig:"EXPORT_SAVE_MEDIA" default:"true"`
}

// DownloadConfig holds media download configuration.
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"5m"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"DOWNLOAD_RETRY_DELAY" default:"5s"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" envconfig:"DOWNLOAD_MAX_RETRY_DELAY" default:"60s"`
	UserAgent     string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"slack-history-exporter/1.0"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set. The token is
// the one input rejected eagerly, before any work starts.
func (c *Config) Validate() error {
	if c.Slack.Token == "" {
		return domain.ErrNoToken
	}
	return nil
}

// UsersFile returns the path of the durable user-directory record.
func (c *ExportConfig) UsersFile() string {
	return filepath.Join(c.StateDir, "users.json")
}

// TokensFile returns the path of the durable access-token record.
func (c *ExportConfig) TokensFile() string {
	return filepath.Join(c.StateDir, "tokens.json")
}
