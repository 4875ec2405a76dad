package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sokinpui/srcpatch/cli"
	"github.com/sokinpui/srcpatch/internal/locate"
	"github.com/sokinpui/srcpatch/internal/logging"
	"github.com/sokinpui/srcpatch/internal/metrics"
)

func main() {
	cfg, err := cli.ParseNearestFlags()
	switch {
	case errors.Is(err, pflag.ErrHelp):
		os.Exit(0)
	case cli.IsUsage(err):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	case err != nil:
		os.Exit(2)
	}
	os.Exit(run(context.Background(), cfg, os.Stdout, os.Stderr))
}

// run prints the lookup as indented JSON. An unknown ZIP exits 2; unreadable
// data exits 1.
func run(ctx context.Context, cfg *cli.NearestConfig, stdout, stderr io.Writer) int {
	logger, err := logging.New(cfg.Verbose, cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	table, closeTable, err := openTable(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeTable()

	rec := metrics.New()
	finder := locate.NewFinder(table, locate.WithLogger(logger))
	res, err := finder.Nearest(ctx, cfg.Zip, cfg.Type, cfg.Limit)
	if errors.Is(err, locate.ErrTargetNotFound) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	rec.ObserveDropped(res.Dropped)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.MetricsFile != "" {
		if err := rec.WriteFile(cfg.MetricsFile); err != nil {
			logger.Warn("metrics not written", zap.Error(err))
		}
	}
	return 0
}

func openTable(cfg *cli.NearestConfig) (locate.Table, func(), error) {
	if cfg.CSVDir != "" {
		return locate.NewCSVTable(cfg.CSVDir), func() {}, nil
	}
	db, err := locate.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}
