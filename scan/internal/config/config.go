// Package config handles gridsight configuration from YAML files.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level gridsight configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Storage StorageConfig `yaml:"storage"`
	Report  ReportConfig  `yaml:"report"`
	HTTP    HTTPConfig    `yaml:"http"`
	OpenAI  OpenAIConfig  `yaml:"openai"`

	// Descriptions maps a structure id to a human-written description shown
	// above that structure's findings in reports.
	Descriptions map[string]string `yaml:"descriptions"`
}

// BrowserConfig controls the Chrome session used for acquisition.
type BrowserConfig struct {
	Remote         string        `yaml:"remote"`
	Headless       *bool         `yaml:"headless"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
}

// StorageConfig controls persistence of scan artifacts.
type StorageConfig struct {
	DBPath    string          `yaml:"db_path"`
	ExportDir string          `yaml:"export_dir"`
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig controls pruning of old scan artifacts.
type RetentionConfig struct {
	MaxAge   time.Duration `yaml:"max_age"`
	KeepLast int           `yaml:"keep_last"`
	Interval time.Duration `yaml:"interval"`
}

// ReportConfig controls human-readable report rendering.
type ReportConfig struct {
	MaxPerStructure int `yaml:"max_per_structure"`
	ChunkSize       int `yaml:"chunk_size"`
}

// HTTPConfig controls the HTTP API surface.
type HTTPConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	// PasswordHash is a bcrypt hash; Basic Auth is enabled when both
	// Username and PasswordHash are set.
	PasswordHash string `yaml:"password_hash"`
}

// OpenAIConfig controls the optional docs-generator LLM pass.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields. Safe to call on a zero Config.
func (c *Config) ApplyDefaults() {
	if c.Browser.AcquireTimeout <= 0 {
		c.Browser.AcquireTimeout = 30 * time.Second
	}
	if c.Browser.SettleDelay <= 0 {
		c.Browser.SettleDelay = 10 * time.Second
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "gridsight.db"
	}
	if c.Storage.Retention.MaxAge <= 0 {
		c.Storage.Retention.MaxAge = 30 * 24 * time.Hour
	}
	if c.Storage.Retention.KeepLast <= 0 {
		c.Storage.Retention.KeepLast = 10
	}
	if c.Storage.Retention.Interval <= 0 {
		c.Storage.Retention.Interval = 24 * time.Hour
	}
	if c.Report.MaxPerStructure <= 0 {
		c.Report.MaxPerStructure = 5
	}
	if c.Report.ChunkSize <= 0 {
		c.Report.ChunkSize = 4000
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
}
