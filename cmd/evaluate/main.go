// evaluate scores a file of generated answers against their gold queries.
// Run from project root:
//
//	go run ./cmd/evaluate -tasks dev.json -schema tables.json -out records.jsonl
//	go run ./cmd/evaluate -tasks minio://runs/dev.json -exec
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/maraichr/sqlshape/internal/compare"
	"github.com/maraichr/sqlshape/internal/config"
	"github.com/maraichr/sqlshape/internal/evaluation"
	"github.com/maraichr/sqlshape/internal/store"
	"github.com/maraichr/sqlshape/internal/store/postgres"
	vk "github.com/maraichr/sqlshape/internal/store/valkey"
	"github.com/maraichr/sqlshape/pkg/models"
)

func main() {
	tasksPath := flag.String("tasks", "", "tasks JSON array: local path, s3://key or minio://key")
	schemaPath := flag.String("schema", "", "schema JSON file used for every task (skips the database)")
	dbOverride := flag.String("db", "", "database schema name used for every task instead of each task's db_id")
	outPath := flag.String("out", "", "write one JSON record per line to this file")
	concurrency := flag.Int("concurrency", 0, "parallel evaluations (default EVALUATE_CONCURRENCY)")
	ignoreValues := flag.Bool("ignore-values", false, "compare predicates without their literal values")
	execMatch := flag.Bool("exec", false, "also run both queries and compare result rows")
	pgCheck := flag.Bool("pg-check", false, "run the PostgreSQL grammar check on every pair")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *tasksPath == "" {
		fmt.Fprintln(os.Stderr, "usage: evaluate -tasks <file> [-schema <file> | -db <name>] [-out <file>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	_ = godotenv.Load(".env") // ignore error if .env missing

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *concurrency > 0 {
		cfg.Evaluate.Concurrency = *concurrency
	}
	cfg.Evaluate.IgnoreValues = cfg.Evaluate.IgnoreValues || *ignoreValues
	cfg.Evaluate.ExecMatch = cfg.Evaluate.ExecMatch || *execMatch
	cfg.Evaluate.PGCheck = cfg.Evaluate.PGCheck || *pgCheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *tasksPath, *schemaPath, *dbOverride, *outPath); err != nil {
		logger.Error("evaluation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, tasksPath, schemaPath, dbOverride, outPath string) error {
	objects, err := store.NewObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}

	tasks, err := loadTasks(ctx, objects, tasksPath)
	if err != nil {
		return err
	}
	logger.Info("loaded tasks", slog.Int("count", len(tasks)), slog.String("source", tasksPath))

	var (
		schemas evaluation.SchemaLoader
		exec    evaluation.Executor
		sink    evaluation.RecordSink
	)
	if objects != nil {
		sink = objects
	}

	needDB := schemaPath == "" || cfg.Evaluate.ExecMatch
	if needDB {
		pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		s := store.New(pool)
		schemas, exec = s, s

		vkClient, err := vk.NewClient(ctx, cfg.Valkey)
		if err != nil {
			logger.Warn("valkey unavailable, schema cache disabled", slog.String("error", err.Error()))
		} else {
			defer vkClient.Close()
			schemas = vk.NewSchemaCache(vkClient, s, cfg.Valkey.SchemaTTL, logger)
		}
	}
	if schemaPath != "" {
		schema, err := evaluation.ReadSchemaFile(schemaPath)
		if err != nil {
			return err
		}
		schemas = evaluation.StaticSchema{Schema: schema}
	}
	if dbOverride != "" {
		for i := range tasks {
			tasks[i].DBID = dbOverride
		}
	}

	evaluator := evaluation.New(evaluation.Options{
		Compare:   compare.Options{IgnoreValues: cfg.Evaluate.IgnoreValues},
		PGCheck:   cfg.Evaluate.PGCheck,
		ExecMatch: cfg.Evaluate.ExecMatch,
	}, exec, sink, logger)

	records, summary, err := evaluation.NewBatch(evaluator, schemas, cfg.Evaluate.Concurrency, logger).Run(ctx, tasks)
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}

	if outPath != "" {
		if err := writeRecords(outPath, records); err != nil {
			return err
		}
		logger.Info("wrote records", slog.String("path", outPath))
	}

	out := struct {
		models.Summary
		Accuracy float64 `json:"accuracy"`
	}{summary, summary.Accuracy()}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loadTasks(ctx context.Context, objects store.ObjectStore, src string) ([]models.Task, error) {
	for _, scheme := range []string{"s3://", "minio://"} {
		key, ok := strings.CutPrefix(src, scheme)
		if !ok {
			continue
		}
		if objects == nil {
			return nil, fmt.Errorf("%s requires RECORDS_SINK to name an object store", scheme)
		}
		rc, err := objects.Open(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", src, err)
		}
		defer rc.Close()
		return evaluation.DecodeTasks(rc)
	}
	return evaluation.ReadTasksFile(src)
}

func writeRecords(path string, records []*models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := encodeRecords(w, records); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func encodeRecords(w io.Writer, records []*models.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if r == nil {
			continue
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
	}
	return nil
}
