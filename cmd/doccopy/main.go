// doccopy copies collections from a document store into warehouse tables.
//
// Modes:
//
//	create  - infer schemas and create one table per collection
//	copy    - flatten documents and insert them into existing tables
//	delete  - drop the named tables
//	inspect - print a collection's inferred schema without writing anything
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"doccopy/internal/config"
	"doccopy/internal/copier"
	"doccopy/internal/docstore"
	"doccopy/internal/metrics"
	"doccopy/internal/metrics/datadog"
	"doccopy/internal/warehouse"

	// register all backends with the warehouse factory.
	// config specifies which to use but we build in support for all of them.
	_ "doccopy/internal/warehouse/all"
)

func main() {
	var (
		cfgPath     string
		mode        string
		dataset     string
		collections string
		validate    bool
	)

	flag.StringVar(&cfgPath, "config", "configs/doccopy.json", "job config path (JSON or YAML)")
	flag.StringVar(&mode, "mode", "copy", "operation: create, copy, delete, inspect")
	flag.StringVar(&dataset, "dataset", "", "override the configured dataset")
	flag.StringVar(&collections, "collections", "", "comma-separated override of the configured collections")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.Parse()

	// Credentials (MONGO_URI, WAREHOUSE_DSN, DD_API_KEY, ...) may live in
	// a local .env; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if dataset != "" {
		cfg.Dataset = dataset
	}
	if collections != "" {
		cfg.Collections = splitList(collections)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		log.Printf("config %s: %s", iss.Severity, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration invalid")
	}
	if validate {
		log.Printf("configuration ok")
		return
	}

	ctx := context.Background()

	store, err := docstore.NewMongo(ctx, cfg.Source.URI, cfg.Source.Database, log.Default())
	if err != nil {
		fatalf("source: %v", err)
	}
	defer func() { _ = store.Close(ctx) }()

	repo, err := warehouse.New(ctx, warehouse.Config{Kind: cfg.Warehouse.Kind, DSN: cfg.Warehouse.DSN})
	if err != nil {
		fatalf("warehouse: %v", err)
	}
	defer repo.Close()

	backend, err := metricsBackend(ctx, cfg)
	if err != nil {
		fatalf("metrics: %v", err)
	}
	defer func() {
		if err := backend.Close(ctx); err != nil {
			log.Printf("metrics close: %v", err)
		}
	}()

	c := &copier.Copier{
		Store:     store,
		Repo:      repo,
		Logger:    log.Default(),
		Metrics:   backend,
		BatchSize: cfg.Runtime.BatchSize,
	}
	if cfg.Runtime.InsertsPerSecond > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.Runtime.InsertsPerSecond), 1)
	}

	names := cfg.Collections
	if len(names) == 0 && mode != "delete" {
		names, err = store.ListCollections(ctx)
		if err != nil {
			fatalf("list collections: %v", err)
		}
	}

	switch mode {
	case "create":
		n, err := c.CreateTables(ctx, cfg.Dataset, names)
		log.Printf("created %d of %d tables", n, len(names))
		if err != nil {
			fatalf("create: %v", err)
		}

	case "copy":
		results, err := c.CopyCollections(ctx, cfg.Dataset, names)
		for _, r := range results {
			if r.Err != nil {
				log.Printf("collection %s: FAILED: %v", r.Collection, r.Err)
				continue
			}
			log.Printf("collection %s: %d rows -> %s.%s", r.Collection, r.Rows, cfg.Dataset, r.Table)
		}
		if err != nil {
			fatalf("copy: some collections failed")
		}

	case "delete":
		if len(cfg.Collections) == 0 {
			fatalf("delete requires an explicit table list (-collections or config)")
		}
		tables := make([]string, 0, len(cfg.Collections))
		for _, coll := range cfg.Collections {
			tables = append(tables, warehouse.TableName(coll))
		}
		n, err := c.DeleteTables(ctx, cfg.Dataset, tables)
		log.Printf("deleted %d of %d tables", n, len(tables))
		if err != nil {
			fatalf("delete: %v", err)
		}

	case "inspect":
		for _, coll := range names {
			schema, err := c.InferSchema(ctx, coll)
			if err != nil {
				fatalf("inspect %s: %v", coll, err)
			}
			fmt.Printf("%s -> %s\n", coll, warehouse.TableName(coll))
			for _, col := range schema.Columns {
				null := "NULL"
				if !col.Nullable {
					null = "NOT NULL"
				}
				fmt.Printf("  %-40s %-8s %s\n", col.Name, col.Type, null)
			}
		}

	default:
		fatalf("unknown mode %q", mode)
	}
}

func metricsBackend(ctx context.Context, cfg config.Config) (metrics.Backend, error) {
	switch cfg.Metrics.Backend {
	case "datadog":
		return datadog.NewBackend(ctx, datadog.Options{
			JobName:    cfg.Metrics.Job,
			Tags:       cfg.Metrics.Tags,
			FlushEvery: time.Duration(cfg.Metrics.FlushSeconds) * time.Second,
		})
	default:
		return metrics.Nop{}, nil
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, v ...any) {
	log.Printf(format, v...)
	os.Exit(1)
}
