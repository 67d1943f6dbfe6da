package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
// This is the single source of truth for all default analysis values.
const DefaultConfigPath = "config/analysis.defaults.json"

// AnalysisConfig represents the root configuration for the change
// pipeline. The schema matches the /api/config endpoint so the same
// JSON serves both startup configuration and the dashboard.
type AnalysisConfig struct {
	// Grid and compositing params
	PixelResolutionM *float64 `json:"pixel_resolution_m,omitempty"`
	CloudCeilingPct  *float64 `json:"cloud_ceiling_pct,omitempty"`
	MaxCloudRelaxPct *float64 `json:"max_cloud_relax_pct,omitempty"`
	WindowStartMonth *int     `json:"window_start_month,omitempty"`
	WindowEndMonth   *int     `json:"window_end_month,omitempty"`

	// Classification params
	BuiltThreshold  *float64 `json:"built_threshold,omitempty"`
	ClassifierModel *string  `json:"classifier_model,omitempty"`

	// Orchestration params
	MaxConcurrentYears *int    `json:"max_concurrent_years,omitempty"`
	ProviderTimeout    *string `json:"provider_timeout,omitempty"`   // duration string like "30s"
	ClassifierTimeout  *string `json:"classifier_timeout,omitempty"` // duration string like "60s"
}

// EmptyAnalysisConfig returns an AnalysisConfig with all fields set to nil.
// Use LoadAnalysisConfig to load actual values from the defaults file.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical analysis defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.PixelResolutionM != nil && *c.PixelResolutionM <= 0 {
		return fmt.Errorf("pixel_resolution_m must be positive, got %f", *c.PixelResolutionM)
	}
	if c.CloudCeilingPct != nil {
		if *c.CloudCeilingPct <= 0 || *c.CloudCeilingPct > 100 {
			return fmt.Errorf("cloud_ceiling_pct must be in (0, 100], got %f", *c.CloudCeilingPct)
		}
	}
	if c.MaxCloudRelaxPct != nil {
		if *c.MaxCloudRelaxPct <= 0 || *c.MaxCloudRelaxPct > 100 {
			return fmt.Errorf("max_cloud_relax_pct must be in (0, 100], got %f", *c.MaxCloudRelaxPct)
		}
	}
	if c.BuiltThreshold != nil {
		if *c.BuiltThreshold < 0 || *c.BuiltThreshold > 1 {
			return fmt.Errorf("built_threshold must be between 0 and 1, got %f", *c.BuiltThreshold)
		}
	}
	if c.WindowStartMonth != nil && (*c.WindowStartMonth < 1 || *c.WindowStartMonth > 12) {
		return fmt.Errorf("window_start_month must be 1-12, got %d", *c.WindowStartMonth)
	}
	if c.WindowEndMonth != nil && (*c.WindowEndMonth < 1 || *c.WindowEndMonth > 12) {
		return fmt.Errorf("window_end_month must be 1-12, got %d", *c.WindowEndMonth)
	}
	// An inverted window would make every catalog search come back
	// empty. The defaults fill in whichever month is unset.
	if start, end := c.GetWindowStartMonth(), c.GetWindowEndMonth(); start > end {
		return fmt.Errorf("window_start_month %d is after window_end_month %d", start, end)
	}
	if c.MaxConcurrentYears != nil && *c.MaxConcurrentYears < 1 {
		return fmt.Errorf("max_concurrent_years must be at least 1, got %d", *c.MaxConcurrentYears)
	}
	if c.ProviderTimeout != nil && *c.ProviderTimeout != "" {
		if _, err := time.ParseDuration(*c.ProviderTimeout); err != nil {
			return fmt.Errorf("invalid provider_timeout '%s': %w", *c.ProviderTimeout, err)
		}
	}
	if c.ClassifierTimeout != nil && *c.ClassifierTimeout != "" {
		if _, err := time.ParseDuration(*c.ClassifierTimeout); err != nil {
			return fmt.Errorf("invalid classifier_timeout '%s': %w", *c.ClassifierTimeout, err)
		}
	}
	return nil
}

// GetPixelResolutionM returns the pixel_resolution_m value or the default.
func (c *AnalysisConfig) GetPixelResolutionM() float64 {
	if c.PixelResolutionM == nil {
		return 10.0 // reference classifier resolution
	}
	return *c.PixelResolutionM
}

// GetCloudCeilingPct returns the cloud_ceiling_pct value or the default.
func (c *AnalysisConfig) GetCloudCeilingPct() float64 {
	if c.CloudCeilingPct == nil {
		return 20.0
	}
	return *c.CloudCeilingPct
}

// GetMaxCloudRelaxPct returns the max_cloud_relax_pct value or the default.
func (c *AnalysisConfig) GetMaxCloudRelaxPct() float64 {
	if c.MaxCloudRelaxPct == nil {
		return 80.0
	}
	return *c.MaxCloudRelaxPct
}

// GetBuiltThreshold returns the built_threshold value or the default.
func (c *AnalysisConfig) GetBuiltThreshold() float64 {
	if c.BuiltThreshold == nil {
		return 0.5
	}
	return *c.BuiltThreshold
}

// GetWindowStartMonth returns the window_start_month value or the default.
func (c *AnalysisConfig) GetWindowStartMonth() int {
	if c.WindowStartMonth == nil {
		return 6
	}
	return *c.WindowStartMonth
}

// GetWindowEndMonth returns the window_end_month value or the default.
// The window runs through the end of this month.
func (c *AnalysisConfig) GetWindowEndMonth() int {
	if c.WindowEndMonth == nil {
		return 9
	}
	return *c.WindowEndMonth
}

// GetClassifierModel returns the classifier_model value or the default.
func (c *AnalysisConfig) GetClassifierModel() string {
	if c.ClassifierModel == nil || *c.ClassifierModel == "" {
		return "dynamicworld-v1"
	}
	return *c.ClassifierModel
}

// GetMaxConcurrentYears returns the max_concurrent_years value or the default.
func (c *AnalysisConfig) GetMaxConcurrentYears() int {
	if c.MaxConcurrentYears == nil {
		return 3 // provider rate courtesy
	}
	return *c.MaxConcurrentYears
}

// GetProviderTimeout parses and returns the ProviderTimeout as a time.Duration.
func (c *AnalysisConfig) GetProviderTimeout() time.Duration {
	if c.ProviderTimeout == nil || *c.ProviderTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.ProviderTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetClassifierTimeout parses and returns the ClassifierTimeout as a time.Duration.
func (c *AnalysisConfig) GetClassifierTimeout() time.Duration {
	if c.ClassifierTimeout == nil || *c.ClassifierTimeout == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(*c.ClassifierTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}
