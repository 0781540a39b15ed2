package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-contact-scraper/internal/config"
	"go-contact-scraper/internal/logger"
)

// app carries what every subcommand needs once flags and env are merged.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	var (
		debug     bool
		overrides flagOverrides
	)

	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Collect contacts from a scrolling member list",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			overrides.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			level := cfg.LogLevel
			if debug {
				level = "debug"
			}
			log, err := logger.New(level, debug)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging with a console encoder")
	overrides.register(root)

	root.AddCommand(newScrapeCommand(a), newExtractCommand(a))
	return root
}

// flagOverrides are persistent flags that win over env and .env values when set.
type flagOverrides struct {
	outputDir   string
	format      string
	fields      string
	keyStrategy string
	mergePolicy string
	dbURL       string
	logLevel    string
	threshold   int
}

func (o *flagOverrides) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.outputDir, "output-dir", "o", "", "directory for the export file (OUTPUT_DIR)")
	f.StringVar(&o.format, "format", "", "export format, csv or json (FORMAT)")
	f.StringVar(&o.fields, "fields", "", "comma-separated export fields (FIELDS)")
	f.StringVar(&o.keyStrategy, "key", "", "dedup key strategy, phone or text (KEY_STRATEGY)")
	f.StringVar(&o.mergePolicy, "merge", "", "merge policy, incremental or reprocess (MERGE_POLICY)")
	f.StringVar(&o.dbURL, "db-url", "", "Postgres URL for the contact sink (DB_URL)")
	f.StringVar(&o.logLevel, "log-level", "", "log level (LOG_LEVEL)")
	f.IntVar(&o.threshold, "stagnation", 0, "stagnant ticks before finishing (STAGNATION_THRESHOLD)")
}

func (o *flagOverrides) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
	if f.Changed("format") {
		cfg.Format = o.format
	}
	if f.Changed("fields") {
		cfg.Fields = o.fields
	}
	if f.Changed("key") {
		cfg.KeyStrategy = o.keyStrategy
	}
	if f.Changed("merge") {
		cfg.MergePolicy = o.mergePolicy
	}
	if f.Changed("db-url") {
		cfg.DatabaseURL = o.dbURL
	}
	if f.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if f.Changed("stagnation") {
		cfg.StagnationThreshold = o.threshold
	}
}
