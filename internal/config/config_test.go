package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/sampling"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.InDelta(t, 900, cfg.Zonal.PixelArea, 0.001)
	assert.Equal(t, []int{0, 255}, cfg.Zonal.NoData)
	assert.Equal(t, 4, cfg.Zonal.Workers)
	assert.InDelta(t, 0.4, cfg.Prep.LandCoverThreshold, 0.001)
	assert.Empty(t, cfg.Prep.ChangeClasses)
	assert.InDelta(t, 0.5, cfg.Stage1.Threshold, 0.001)
	assert.Equal(t, 100, cfg.Stage1.Size)
	assert.Equal(t, "neyman", cfg.Stage1.Allocation)
	assert.Equal(t, "random", cfg.Stage2.Mode)
	assert.Equal(t, 100, cfg.Stage2.Size)
	assert.Equal(t, []int{0, 255}, cfg.Stage2.Mask)
	assert.Equal(t, 25, cfg.Stage2.Margin)
	assert.Zero(t, cfg.Sampling.Seed)
	assert.Empty(t, cfg.Ledger.Path)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
zonal:
  pixel_area: 0.25
  no_data: [0]
stage1:
  allocation: equal
  size: 20
stage2:
  mode: stratified
  size: 10
  allocation: [4, 6]
sampling:
  seed: 42
ledger:
  path: design.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 0.25, cfg.Zonal.PixelArea, 0.001)
	assert.Equal(t, []int{0}, cfg.Zonal.NoData)
	assert.Equal(t, "equal", cfg.Stage1.Allocation)
	assert.Equal(t, 20, cfg.Stage1.Size)
	assert.Equal(t, "stratified", cfg.Stage2.Mode)
	assert.Equal(t, []int{4, 6}, cfg.Stage2.Allocation)
	assert.Equal(t, uint64(42), cfg.Sampling.Seed)
	assert.Equal(t, "design.db", cfg.Ledger.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
stage1:
  size: 20
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("VHRSAMPLE_LOG_LEVEL", "warn")
	t.Setenv("VHRSAMPLE_STAGE1_SIZE", "30")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Stage1.Size)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("VHRSAMPLE_SAMPLING_SEED", "7")
	t.Setenv("VHRSAMPLE_LEDGER_PATH", "runs.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.Sampling.Seed)
	assert.Equal(t, "runs.db", cfg.Ledger.Path)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "json"},
		Zonal:  ZonalConfig{PixelArea: 900, NoData: []int{0, 255}, Workers: 4},
		Prep:   PrepConfig{LandCoverThreshold: 0.4},
		Stage1: Stage1Config{Threshold: 0.5, Size: 100, Allocation: "neyman"},
		Stage2: Stage2Config{Mode: "random", Size: 100, Mask: []int{0, 255}, Margin: 25},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"pixel area", func(c *Config) { c.Zonal.PixelArea = -1 }, "zonal.pixel_area"},
		{"no workers", func(c *Config) { c.Zonal.Workers = 0 }, "zonal.workers"},
		{"too many workers", func(c *Config) { c.Zonal.Workers = 65 }, "zonal.workers"},
		{"lc threshold", func(c *Config) { c.Prep.LandCoverThreshold = 1.5 }, "prep.lc_threshold"},
		{"zero stage1 threshold", func(c *Config) { c.Stage1.Threshold = 0 }, "stage1.threshold"},
		{"stage1 size", func(c *Config) { c.Stage1.Size = -1 }, "stage1.size"},
		{"stage1 method", func(c *Config) { c.Stage1.Allocation = "optimal" }, "allocation method"},
		{"stage2 mode", func(c *Config) { c.Stage2.Mode = "cluster" }, "stage2.mode"},
		{"stage2 size", func(c *Config) { c.Stage2.Size = -5 }, "stage2.size"},
		{"stage2 margin", func(c *Config) { c.Stage2.Margin = -1 }, "stage2.margin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, sampling.ErrConfiguration)

			var ce *sampling.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestValidate_ModeCaseInsensitive(t *testing.T) {
	cfg := validDefaults()
	cfg.Stage2.Mode = "Stratified"
	assert.NoError(t, cfg.Validate())
}
