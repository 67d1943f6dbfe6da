package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyAnalysisConfig()

	if got := cfg.GetPixelResolutionM(); got != 10.0 {
		t.Errorf("GetPixelResolutionM = %g, want 10", got)
	}
	if got := cfg.GetCloudCeilingPct(); got != 20.0 {
		t.Errorf("GetCloudCeilingPct = %g, want 20", got)
	}
	if got := cfg.GetMaxCloudRelaxPct(); got != 80.0 {
		t.Errorf("GetMaxCloudRelaxPct = %g, want 80", got)
	}
	if got := cfg.GetBuiltThreshold(); got != 0.5 {
		t.Errorf("GetBuiltThreshold = %g, want 0.5", got)
	}
	if got := cfg.GetClassifierModel(); got != "dynamicworld-v1" {
		t.Errorf("GetClassifierModel = %q", got)
	}
	if got := cfg.GetMaxConcurrentYears(); got != 3 {
		t.Errorf("GetMaxConcurrentYears = %d, want 3", got)
	}
	if got := cfg.GetWindowStartMonth(); got != 6 {
		t.Errorf("GetWindowStartMonth = %d, want 6", got)
	}
	if got := cfg.GetWindowEndMonth(); got != 9 {
		t.Errorf("GetWindowEndMonth = %d, want 9", got)
	}
	if got := cfg.GetProviderTimeout(); got != 30*time.Second {
		t.Errorf("GetProviderTimeout = %v, want 30s", got)
	}
	if got := cfg.GetClassifierTimeout(); got != 60*time.Second {
		t.Errorf("GetClassifierTimeout = %v, want 60s", got)
	}
}

func TestLoadAnalysisConfigPartial(t *testing.T) {
	path := writeConfig(t, `{"cloud_ceiling_pct": 35.0, "provider_timeout": "10s"}`)

	cfg, err := LoadAnalysisConfig(path)
	if err != nil {
		t.Fatalf("LoadAnalysisConfig failed: %v", err)
	}
	if got := cfg.GetCloudCeilingPct(); got != 35.0 {
		t.Errorf("GetCloudCeilingPct = %g, want 35", got)
	}
	if got := cfg.GetProviderTimeout(); got != 10*time.Second {
		t.Errorf("GetProviderTimeout = %v, want 10s", got)
	}
	// Omitted fields keep their defaults.
	if got := cfg.GetBuiltThreshold(); got != 0.5 {
		t.Errorf("GetBuiltThreshold = %g, want default 0.5", got)
	}
}

func TestLoadAnalysisConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative resolution", `{"pixel_resolution_m": -5}`},
		{"ceiling over 100", `{"cloud_ceiling_pct": 150}`},
		{"threshold over 1", `{"built_threshold": 1.5}`},
		{"bad month", `{"window_start_month": 13}`},
		{"inverted window", `{"window_start_month": 9, "window_end_month": 6}`},
		{"start after default end", `{"window_start_month": 11}`},
		{"zero concurrency", `{"max_concurrent_years": 0}`},
		{"bad duration", `{"provider_timeout": "not-a-duration"}`},
		{"malformed json", `{"cloud_ceiling_pct":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := LoadAnalysisConfig(path); err == nil {
				t.Error("expected load to fail")
			}
		})
	}
}

func TestLoadAnalysisConfigRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAnalysisConfig(path); err == nil {
		t.Error("expected non-.json file to be rejected")
	}
}

func TestDefaultsFileMatchesAccessors(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetCloudCeilingPct() != 20.0 {
		t.Errorf("shipped defaults ceiling = %g, want 20", cfg.GetCloudCeilingPct())
	}
	if cfg.GetPixelResolutionM() != 10.0 {
		t.Errorf("shipped defaults resolution = %g, want 10", cfg.GetPixelResolutionM())
	}
}
