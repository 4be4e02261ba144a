package scan

import (
	"github.com/gridsight/gridsight/scan/internal/config"
)

// Config is the top-level gridsight configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls the Chrome session used for acquisition.
type BrowserConfig = config.BrowserConfig

// StorageConfig controls persistence of scan artifacts.
type StorageConfig = config.StorageConfig

// RetentionConfig controls pruning of old scan artifacts.
type RetentionConfig = config.RetentionConfig

// ReportConfig controls human-readable report rendering.
type ReportConfig = config.ReportConfig

// HTTPConfig controls the HTTP API surface.
type HTTPConfig = config.HTTPConfig

// OpenAIConfig controls the optional docs-generator LLM pass.
type OpenAIConfig = config.OpenAIConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
