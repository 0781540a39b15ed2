package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-contact-scraper/internal/export"
	"go-contact-scraper/internal/extract"
	"go-contact-scraper/internal/store"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://web.whatsapp.com", cfg.TargetURL)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 400.0, cfg.ScrollStep)
	assert.Equal(t, 6, cfg.StagnationThreshold)
	assert.Equal(t, `div[role="listitem"], div[role="button"], span, div, li`, cfg.NodeSelector)
	assert.Equal(t, extract.DefaultNoisePhrases, cfg.NoisePhrases)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.FlushInterval)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.Headless)

	assert.Equal(t, extract.DefaultRules(), cfg.Rules())
	assert.Equal(t, store.Options{Keys: store.KeyByPhone, Merge: store.MergeIncremental}, cfg.Store())

	exp, format, err := cfg.Exporter()
	require.NoError(t, err)
	assert.Equal(t, export.CSV, format)
	assert.Equal(t, export.AllFields, exp.Fields)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("STAGNATION_THRESHOLD", "3")
	t.Setenv("NOISE_PHRASES", "Muted,Archived")
	t.Setenv("KEY_STRATEGY", "text")
	t.Setenv("MERGE_POLICY", "reprocess")
	t.Setenv("FIELDS", "phone,name")
	t.Setenv("FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	drv := cfg.Driver()
	assert.Equal(t, 250*time.Millisecond, drv.Interval)
	assert.Equal(t, 3, drv.StagnationThreshold)
	assert.Equal(t, []string{"Muted", "Archived"}, cfg.Rules().NoisePhrases)
	assert.Equal(t, store.Options{Keys: store.KeyByText, Merge: store.MergeReprocess}, cfg.Session().Store)

	exp, format, err := cfg.Exporter()
	require.NoError(t, err)
	assert.Equal(t, export.JSON, format)
	assert.Equal(t, []export.Field{export.FieldName, export.FieldPhone}, exp.Fields)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".env", "TARGET_URL=https://example.com/group\nBATCH_SIZE=7\n")
	// godotenv does not override variables already set; make sure these are unset.
	t.Setenv("TARGET_URL", "")
	t.Setenv("BATCH_SIZE", "")
	unsetenv(t, "TARGET_URL", "BATCH_SIZE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/group", cfg.TargetURL)
	assert.Equal(t, 7, cfg.BatchSize)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			TickInterval:        time.Second,
			ScrollStep:          100,
			StagnationThreshold: 1,
			MaxTextLen:          10,
			BatchSize:           1,
			KeyStrategy:         "phone",
			MergePolicy:         "incremental",
			Format:              "csv",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero interval", func(c *Config) { c.TickInterval = 0 }, "TICK_INTERVAL"},
		{"negative step", func(c *Config) { c.ScrollStep = -1 }, "SCROLL_STEP"},
		{"zero threshold", func(c *Config) { c.StagnationThreshold = 0 }, "STAGNATION_THRESHOLD"},
		{"negative hops", func(c *Config) { c.MaxHops = -1 }, "MAX_HOPS"},
		{"inverted lengths", func(c *Config) { c.MinTextLen = 20 }, "text length bounds"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "BATCH_SIZE"},
		{"bad key strategy", func(c *Config) { c.KeyStrategy = "email" }, "key strategy"},
		{"bad merge policy", func(c *Config) { c.MergePolicy = "never" }, "merge policy"},
		{"bad field", func(c *Config) { c.Fields = "name,avatar" }, "avatar"},
		{"bad format", func(c *Config) { c.Format = "xlsx" }, "export format"},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
