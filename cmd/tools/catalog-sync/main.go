// cmd/tools/catalog-sync/main.go
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/catalog"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/config"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/database"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/logger"
)

// app holds the collaborators a command needs, so tests can swap them.
type app struct {
	stdout     io.Writer
	log        logger.Logger
	loadConfig func(path string) (*config.Config, error)
	redis      func(cfg config.RedisConfig) *database.RedisClient
	postgres   func(cfg config.PostgresConfig) (*database.PostgresClient, error)
	elastic    func(cfg config.ElasticsearchConfig) (*database.ElasticsearchClient, error)
}

func main() {
	a := &app{
		stdout:     os.Stdout,
		log:        logger.NewStructured("info", "console"),
		loadConfig: loadConfig,
		redis:      database.NewRedis,
		postgres:   database.NewPostgres,
		elastic:    database.NewElasticsearch,
	}
	if err := a.run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func (a *app) run(args []string) error {
	if len(args) < 1 {
		a.help()
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "validate":
		return a.validate(args[1:])
	case "push-redis":
		return a.pushRedis(args[1:])
	case "push-postgres":
		return a.pushPostgres(args[1:])
	case "push-elasticsearch":
		return a.pushElasticsearch(args[1:])
	case "export":
		return a.export(args[1:])
	case "merge":
		return a.merge(args[1:])
	case "help", "-h", "--help":
		a.help()
		return nil
	default:
		a.help()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) validate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	path := fs.String("path", "data/places.csv", "Path to the catalog CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat, err := a.readCatalog(*path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Catalog validation passed: %d places in %s\n", cat.Len(), *path)
	return nil
}

func (a *app) pushRedis(args []string) error {
	fs := flag.NewFlagSet("push-redis", flag.ContinueOnError)
	path := fs.String("path", "data/places.csv", "Path to the catalog CSV")
	cfgPath := fs.String("config", "", "Config file (default: configs/config.yaml)")
	key := fs.String("key", "", "Redis key (default: catalog.redis_key)")
	addr := fs.String("addr", "", "Redis address (default: database.redis.address)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := a.loadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *key == "" {
		*key = cfg.Catalog.RedisKey
	}
	if *addr != "" {
		cfg.Database.Redis.Address = *addr
	}

	cat, err := a.readCatalog(*path)
	if err != nil {
		return err
	}

	client := a.redis(cfg.Database.Redis)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := catalog.PublishRedis(ctx, client, *key, cat); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Published %d places to redis key %s\n", cat.Len(), *key)
	return nil
}

func (a *app) pushPostgres(args []string) error {
	fs := flag.NewFlagSet("push-postgres", flag.ContinueOnError)
	path := fs.String("path", "data/places.csv", "Path to the catalog CSV")
	cfgPath := fs.String("config", "", "Config file (default: configs/config.yaml)")
	table := fs.String("table", "", "Table name (default: catalog.table)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := a.loadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *table == "" {
		*table = cfg.Catalog.Table
	}

	cat, err := a.readCatalog(*path)
	if err != nil {
		return err
	}

	client, err := a.postgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := catalog.PublishPostgres(ctx, client, *table, cat); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Published %d places to table %s\n", cat.Len(), *table)
	return nil
}

func (a *app) pushElasticsearch(args []string) error {
	fs := flag.NewFlagSet("push-elasticsearch", flag.ContinueOnError)
	path := fs.String("path", "data/places.csv", "Path to the catalog CSV")
	cfgPath := fs.String("config", "", "Config file (default: configs/config.yaml)")
	index := fs.String("index", "", "Index name (default: catalog.index)")
	addr := fs.String("addr", "", "Elasticsearch address (default: database.elasticsearch.addresses)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := a.loadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *index == "" {
		*index = cfg.Catalog.Index
	}
	if *addr != "" {
		cfg.Database.Elasticsearch.Addresses = []string{*addr}
	}

	cat, err := a.readCatalog(*path)
	if err != nil {
		return err
	}

	client, err := a.elastic(cfg.Database.Elasticsearch)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := catalog.PublishElasticsearch(ctx, client, *index, cat); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Published %d places to elasticsearch index %s\n", cat.Len(), *index)
	return nil
}

// merge appends a freshly collected sheet to the catalog CSV and writes the result.
func (a *app) merge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	basePath := fs.String("base", "data/places.csv", "Catalog CSV to extend")
	newPath := fs.String("new", "", "CSV with the places to add")
	out := fs.String("out", "", "Output file (default: overwrite -base)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *newPath == "" {
		return fmt.Errorf("merge: -new is required")
	}
	if *out == "" {
		*out = *basePath
	}

	base, err := a.readCatalog(*basePath)
	if err != nil {
		return err
	}
	incoming, err := readSheet(*newPath)
	if err != nil {
		return err
	}

	merged, stats := catalog.Merge(base.Places(), incoming)
	if _, err := catalog.New("merge", merged); err != nil {
		return fmt.Errorf("merged catalog is invalid: %w", err)
	}

	var buf bytes.Buffer
	if err := catalog.WriteCSV(&buf, merged); err != nil {
		return err
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	a.log.Info("Catalog merged", map[string]interface{}{
		"base":       stats.Base,
		"incoming":   stats.Incoming,
		"duplicates": stats.Duplicates,
		"out":        *out,
	})
	fmt.Fprintf(a.stdout, "Merged %d places (%d duplicates removed) into %s\n", stats.Total, stats.Duplicates, *out)
	return nil
}

func readSheet(path string) (*catalog.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet, err := catalog.ParseSheet(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sheet, nil
}

// export loads the catalog from the configured source and writes it as canonical CSV.
func (a *app) export(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Config file (default: configs/config.yaml)")
	out := fs.String("out", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := a.loadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	deps := catalog.Deps{Logger: a.log}
	switch cfg.Catalog.Source {
	case config.SourceRedis:
		client := a.redis(cfg.Database.Redis)
		defer client.Close()
		deps.Redis = client
	case config.SourcePostgres:
		client, err := a.postgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Postgres = client
	case config.SourceElastic:
		client, err := a.elastic(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		deps.Elasticsearch = client
	}

	src, err := catalog.NewSource(cfg.Catalog, deps)
	if err != nil {
		return err
	}
	cat, err := catalog.LoadWithTimeout(context.Background(), src, config.GetDuration(cfg.Catalog.Timeout), a.log)
	if err != nil {
		return err
	}

	w := a.stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	return catalog.WriteCSV(w, cat.Places())
}

func (a *app) readCatalog(path string) (*catalog.Catalog, error) {
	return catalog.NewCSVSource(path, a.log).Load(context.Background())
}

func (a *app) help() {
	fmt.Fprintln(a.stdout, `Usage: catalog-sync <command> [options]

Commands:
  validate            Parse a catalog CSV and report problems
  push-redis          Publish a catalog CSV as the redis snapshot
  push-postgres       Replace the postgres catalog table with a catalog CSV
  push-elasticsearch  Rebuild the elasticsearch catalog index from a catalog CSV
  export              Write the configured catalog source as CSV
  merge               Append newly collected places to a catalog CSV

Examples:
  catalog-sync validate -path data/places.csv
  catalog-sync push-redis -path data/places.csv -key catalog:places
  catalog-sync push-postgres -path data/places.csv -table places
  catalog-sync push-elasticsearch -path data/places.csv -index places
  catalog-sync merge -base data/places.csv -new collected.csv
  catalog-sync export -out places.csv`)
}
