package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"go-contact-scraper/internal/export"
	"go-contact-scraper/internal/extract"
	"go-contact-scraper/internal/scraper"
	"go-contact-scraper/internal/session"
	"go-contact-scraper/internal/store"
)

type Config struct {
	// TargetURL is the page the scrape command opens.
	TargetURL string `envconfig:"TARGET_URL" default:"https://web.whatsapp.com"`

	// ContainerSelector skips interactive selection when set.
	ContainerSelector string `envconfig:"CONTAINER_SELECTOR"`

	TickInterval        time.Duration `envconfig:"TICK_INTERVAL" default:"500ms"`
	ScrollStep          float64       `envconfig:"SCROLL_STEP" default:"400"`
	StagnationThreshold int           `envconfig:"STAGNATION_THRESHOLD" default:"6"`
	NodeSelector        string        `envconfig:"NODE_SELECTOR" default:"div[role=\"listitem\"], div[role=\"button\"], span, div, li"`
	MaxHops             int           `envconfig:"MAX_HOPS" default:"5"`

	MaxChildren  int      `envconfig:"MAX_CHILDREN" default:"6"`
	MinTextLen   int      `envconfig:"MIN_TEXT_LEN" default:"3"`
	MaxTextLen   int      `envconfig:"MAX_TEXT_LEN" default:"300"`
	NoisePhrases []string `envconfig:"NOISE_PHRASES" default:"View all,Group info,created group"`

	KeyStrategy string `envconfig:"KEY_STRATEGY" default:"phone"`
	MergePolicy string `envconfig:"MERGE_POLICY" default:"incremental"`

	Fields string `envconfig:"FIELDS" default:"name,phone,about,role,dmLink"`
	Format string `envconfig:"FORMAT" default:"csv"`

	// ProgressInterval throttles progress logging. Zero logs every tick.
	ProgressInterval time.Duration `envconfig:"PROGRESS_INTERVAL" default:"0s"`

	Headless      bool   `envconfig:"HEADLESS" default:"false"`
	UserAgent     string `envconfig:"USER_AGENT" default:"ContactScraper/1.0"`
	RespectRobots bool   `envconfig:"RESPECT_ROBOTS" default:"false"`

	OutputDir string `envconfig:"OUTPUT_DIR" default:"."`

	// DatabaseURL enables the Postgres sink when set.
	DatabaseURL   string        `envconfig:"DB_URL"`
	BatchSize     int           `envconfig:"BATCH_SIZE" default:"50"`
	FlushInterval time.Duration `envconfig:"FLUSH_INTERVAL" default:"1s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load processes environment variables and populates the Config struct.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("Warning: .env file found but could not be loaded: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerated values.
func (c *Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval))
	}
	if c.ScrollStep <= 0 {
		errs = append(errs, fmt.Errorf("SCROLL_STEP must be positive, got %v", c.ScrollStep))
	}
	if c.StagnationThreshold < 1 {
		errs = append(errs, fmt.Errorf("STAGNATION_THRESHOLD must be at least 1, got %d", c.StagnationThreshold))
	}
	if c.MaxHops < 0 {
		errs = append(errs, fmt.Errorf("MAX_HOPS must not be negative, got %d", c.MaxHops))
	}
	if c.MinTextLen < 0 || c.MaxTextLen < c.MinTextLen {
		errs = append(errs, fmt.Errorf("text length bounds %d..%d are invalid", c.MinTextLen, c.MaxTextLen))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be at least 1, got %d", c.BatchSize))
	}
	if _, err := store.ParseKeyStrategy(c.KeyStrategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := store.ParseMergePolicy(c.MergePolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := export.ParseFields(c.Fields); err != nil {
		errs = append(errs, err)
	}
	if _, err := export.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) Driver() scraper.Config {
	return scraper.Config{
		Interval:            c.TickInterval,
		ScrollStep:          c.ScrollStep,
		StagnationThreshold: c.StagnationThreshold,
		NodeSelector:        c.NodeSelector,
		ProgressEvery:       c.ProgressInterval,
	}
}

func (c *Config) Rules() extract.Rules {
	return extract.Rules{
		MaxChildren:  c.MaxChildren,
		MinLength:    c.MinTextLen,
		MaxLength:    c.MaxTextLen,
		NoisePhrases: c.NoisePhrases,
	}
}

// Store assumes Validate has passed.
func (c *Config) Store() store.Options {
	keys, _ := store.ParseKeyStrategy(c.KeyStrategy)
	merge, _ := store.ParseMergePolicy(c.MergePolicy)
	return store.Options{Keys: keys, Merge: merge}
}

// Session bundles the settings a session.Controller needs.
func (c *Config) Session() session.Config {
	return session.Config{
		Driver:  c.Driver(),
		Rules:   c.Rules(),
		Store:   c.Store(),
		MaxHops: c.MaxHops,
	}
}

func (c *Config) Exporter() (*export.Exporter, export.Format, error) {
	fields, err := export.ParseFields(c.Fields)
	if err != nil {
		return nil, "", err
	}
	format, err := export.ParseFormat(c.Format)
	if err != nil {
		return nil, "", err
	}
	return export.New(fields), format, nil
}
