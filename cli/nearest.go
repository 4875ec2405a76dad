package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/sokinpui/srcpatch/internal/locate"
	"github.com/sokinpui/srcpatch/internal/ranker"
)

// NearestConfig holds the flag values of the nearest command.
type NearestConfig struct {
	Zip         string
	CSVDir      string
	SQLitePath  string
	Type        locate.DistributorType
	Limit       int
	Verbose     bool
	LogJSON     bool
	MetricsFile string
}

// ParseNearestFlags parses os.Args for the nearest command.
func ParseNearestFlags() (*NearestConfig, error) {
	return ParseNearest(os.Args[1:], os.Stderr)
}

// ParseNearest defines and parses nearest flags from args.
func ParseNearest(args []string, output io.Writer) (*NearestConfig, error) {
	cfg := &NearestConfig{}
	var distType string

	flags := pflag.NewFlagSet("nearest", pflag.ContinueOnError)
	flags.SetOutput(output)
	flags.StringVar(&cfg.CSVDir, "csv-dir", "", "Directory holding one <sheet>.csv per workbook tab.")
	flags.StringVar(&cfg.SQLitePath, "sqlite", "", "SQLite database holding one table per workbook tab.")
	flags.StringVarP(&distType, "type", "t", string(locate.All), "Distributor type: commercial, retail or all.")
	flags.IntVarP(&cfg.Limit, "limit", "k", ranker.DefaultLimit, "Number of distributors to return.")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log dropped rows and lookups.")
	flags.BoolVar(&cfg.LogJSON, "log-json", false, "Emit diagnostics as JSON.")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the lookup.")

	flags.Usage = func() {
		fmt.Fprintln(output, "Usage: nearest [flags] <zip>")
		fmt.Fprintln(output, "\nPrint the nearest distributors to a ZIP code as JSON.")
		fmt.Fprintln(output, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if flags.NArg() != 1 {
		return nil, fmt.Errorf("%w: expected one ZIP code, got %d arguments", errUsage, flags.NArg())
	}
	cfg.Zip = flags.Arg(0)

	if (cfg.CSVDir == "") == (cfg.SQLitePath == "") {
		return nil, fmt.Errorf("%w: exactly one of --csv-dir and --sqlite is required", errUsage)
	}
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("%w: --limit must be positive", errUsage)
	}

	t, err := locate.ParseType(distType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	cfg.Type = t
	return cfg, nil
}
