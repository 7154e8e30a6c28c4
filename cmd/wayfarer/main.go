// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/wayfarer"
	"github.com/poiesic/wayfarer/config"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/ingestion"
	"github.com/poiesic/wayfarer/loader"
	"github.com/poiesic/wayfarer/reembed"
	"github.com/poiesic/wayfarer/search"
	"github.com/poiesic/wayfarer/sources"
	"github.com/poiesic/wayfarer/sources/manual"
	"github.com/poiesic/wayfarer/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "wayfarer",
		Usage: "Travel content ETL: extract, enrich and load hotels, flights, posts and attractions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:    "store",
				Aliases: []string{"s"},
				Usage:   "Store URL (badger://path, sqlite://path or memory://)",
				EnvVars: []string{config.EnvStore, config.EnvDatabaseURL},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the full ETL pipeline once",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "test",
						Usage: "Limit the run to the first destination, route and feed",
					},
					&cli.BoolFlag{
						Name:  "embeddings",
						Usage: "Generate embeddings for processed records",
						Value: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Processing pool size (0 uses half the CPUs)",
					},
				},
			},
			{
				Name:      "import",
				Usage:     "Process and load hand-curated records from a YAML or JSON file",
				ArgsUsage: "FILE",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "embeddings",
						Usage: "Generate embeddings for processed records",
						Value: true,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print record counts by source type",
				Action: statsCommand,
			},
			{
				Name:   "prune",
				Usage:  "Delete records older than the retention period",
				Action: pruneCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "days",
						Usage: "Retention period in days",
						Value: loader.DefaultRetentionDays,
					},
				},
			},
			{
				Name:   "dedupe",
				Usage:  "Remove duplicate records, keeping the oldest of each",
				Action: dedupeCommand,
			},
			{
				Name:      "search",
				Usage:     "Rank stored records against a free-text query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "source-type",
						Usage: "Only search records of this source type (api, scraping, social, manual)",
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Cosine similarity needed for a semantic hit",
						Value: search.DefaultMinSimilarity,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Embed stored records that have no embedding",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Re-embed every record, not only those missing a vector",
					},
					&cli.IntFlag{
						Name:  "dimensions",
						Usage: "Also re-embed records whose vector length differs from this",
					},
					&cli.BoolFlag{
						Name:  "continue-on-error",
						Usage: "Skip batches that fail instead of stopping",
					},
				},
			},
		},
	}
}

// loadConfig layers environment, the --config file and the --store flag.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.FromEnv()
	if path := c.String("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if store := c.String("store"); store != "" {
		cfg.StoreURL = store
	}
	return cfg, nil
}

// openStore opens the database for maintenance commands, which need neither
// embeddings nor geocoding.
func openStore(c *cli.Context) (*wayfarer.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	cfg.Embedding.Enabled = false
	cfg.Geocoding.Enabled = false
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return wayfarer.NewDatabase(cfg)
}

// openForIngest opens the database with embeddings toggled by the
// --embeddings flag and geocoding as configured.
func openForIngest(c *cli.Context) (*wayfarer.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	cfg.Embedding.Enabled = c.Bool("embeddings")
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return wayfarer.NewDatabase(cfg)
}

// runTasks runs tasks through a fresh pipeline and prints the report.
func runTasks(c *cli.Context, db *wayfarer.Database, tasks []sources.Task) error {
	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	report, err := pipeline.Run(c.Context, tasks)
	printReport(c, report)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	return nil
}

func runCommand(c *cli.Context) error {
	db, err := openForIngest(c)
	if err != nil {
		return err
	}
	defer db.Close()

	adapters, err := db.NewAdapters()
	if err != nil {
		return err
	}
	if c.Bool("test") {
		slog.Info("running in test mode with limited data")
	}
	return runTasks(c, db, adapters.Tasks(db.Plan(c.Bool("test"))))
}

func importCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("import file is required")
	}
	records, err := manual.LoadFile(path, time.Now())
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	db, err := openForIngest(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return runTasks(c, db, []sources.Task{manual.Task(path, records)})
}

func printReport(c *cli.Context, r ingestion.RunReport) {
	w := c.App.Writer
	fmt.Fprintf(w, "Run %s finished in %s\n", r.RunID, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  extracted: %d  processed: %d  dropped: %d\n", r.Raw, r.Processed, r.Dropped)
	fmt.Fprintf(w, "  inserted: %d  duplicates: %d  rejected: %d  failed: %d\n",
		r.Load.Inserted, r.Load.Duplicates, r.Load.Rejected, r.Load.Failed)
	for _, d := range r.Degraded {
		fmt.Fprintf(w, "  degraded: %s (%s): %s\n", d.Source, d.Label, d.Reason)
	}
}

func statsCommand(c *cli.Context) error {
	db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()

	l, err := db.NewLoader()
	if err != nil {
		return err
	}
	stats, err := l.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("collecting stats: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Total records: %d\n", stats.Total)
	for _, st := range core.SourceTypes {
		fmt.Fprintf(w, "  %-9s %d\n", st, stats.BySourceType[st])
	}
	fmt.Fprintf(w, "Added in last 24h: %d\n", stats.RecentAdditions)
	if !stats.LastUpdated.IsZero() {
		fmt.Fprintf(w, "Last updated: %s\n", stats.LastUpdated.Format(time.RFC3339))
	}
	return nil
}

func pruneCommand(c *cli.Context) error {
	db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()

	l, err := db.NewLoader()
	if err != nil {
		return err
	}
	n, err := l.DeleteOldData(c.Context, c.Int("days"))
	if err != nil {
		return fmt.Errorf("pruning: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted %d records older than %d days\n", n, c.Int("days"))
	return nil
}

func dedupeCommand(c *cli.Context) error {
	db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()

	l, err := db.NewLoader()
	if err != nil {
		return err
	}
	n, err := l.CleanupDuplicates(c.Context)
	if err != nil {
		return fmt.Errorf("removing duplicates: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Removed %d duplicate records\n", n)
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Embedding.Enabled = true
	cfg.Geocoding.Enabled = false
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:       c.Int("batch-size"),
		ReportInterval:  c.Int("report-interval"),
		MaxRetries:      c.Int("max-retries"),
		RetryDelay:      c.Duration("retry-delay"),
		ContinueOnError: c.Bool("continue-on-error"),
		Selection: reembed.Selection{
			All:        c.Bool("all"),
			Dimensions: c.Int("dimensions"),
		},
	}
	if err := reembedConfig.Validate(); err != nil {
		return err
	}

	db, err := wayfarer.NewDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reembedder, err := db.NewReembedder(reembedConfig, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Store: %s\n", cfg.StoreURL)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintln(c.App.ErrWriter)

	result, err := reembedder.Run(c.Context)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Embedded %d of %d records (%d failed, %d skipped)\n",
		result.Embedded, result.Candidates, result.Failed, result.Skipped)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("search query is required")
	}
	filter := storage.Filter{SourceType: core.SourceType(c.String("source-type"))}
	if filter.SourceType != "" && !filter.SourceType.Valid() {
		return fmt.Errorf("unknown source type %q", filter.SourceType)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Embedding.Enabled = true
	cfg.Geocoding.Enabled = false
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := wayfarer.NewDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher(search.WithMinSimilarity(float32(c.Float64("min-similarity"))))
	if err != nil {
		return err
	}
	results, err := searcher.FindSimilar(c.Context, query, c.Int("limit"), filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	w := c.App.Writer
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching records")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(w, "%2d. [%.2f] %s (%s)\n", i+1, r.Score, r.Record.Title, r.Record.SourceName)
		if r.Record.SourceURL != "" {
			fmt.Fprintf(w, "    %s\n", r.Record.SourceURL)
		}
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
