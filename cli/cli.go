package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values.
type Config struct {
	// Target is the file to patch.
	Target string

	PlanFile    string
	Preset      string
	ListPresets bool

	DryRun bool
	Diff   bool
	Undo   bool

	Plain       bool
	Verbose     bool
	LogJSON     bool
	MetricsFile string

	ArchiveBucket string
	ArchivePrefix string

	Nvim     bool
	NvimAddr string
}

// ParseFlags parses os.Args.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:], os.Stderr)
}

// Parse defines and parses srcpatch flags from args. pflag.ErrHelp is
// returned unchanged for -h/--help.
func Parse(args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	flags := pflag.NewFlagSet("srcpatch", pflag.ContinueOnError)
	flags.SetOutput(output)

	flags.StringVarP(&cfg.PlanFile, "plan", "p", "", "Plan file (.yaml or .md). Defaults to piped stdin, then the clipboard.")
	flags.StringVar(&cfg.Preset, "preset", "", "Use a built-in plan instead of a plan file.")
	flags.BoolVar(&cfg.ListPresets, "list-presets", false, "List built-in plans and exit.")
	flags.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Apply the plan in memory only; never write or back up.")
	flags.BoolVarP(&cfg.Diff, "diff", "d", false, "Print a unified diff of the changes.")
	flags.BoolVarP(&cfg.Undo, "undo", "u", false, "Restore the newest backup of the file. Run again to redo.")
	flags.BoolVar(&cfg.Plain, "plain", false, "Disable the spinner and print a plain report.")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every operation, including skipped ones.")
	flags.BoolVar(&cfg.LogJSON, "log-json", false, "Emit diagnostics as JSON.")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run.")
	flags.StringVar(&cfg.ArchiveBucket, "archive-bucket", "", "Also upload each backup to this S3 bucket before overwriting.")
	flags.StringVar(&cfg.ArchivePrefix, "archive-prefix", "", "Key prefix for archived backups.")
	flags.BoolVar(&cfg.Nvim, "nvim", false, "Reload the patched file in a running Neovim ($NVIM or $NVIM_LISTEN_ADDRESS).")
	flags.StringVar(&cfg.NvimAddr, "nvim-addr", "", "Neovim server address, overriding the environment.")

	flags.Usage = func() {
		fmt.Fprintln(output, "Usage: srcpatch [flags] <file>")
		fmt.Fprintln(output, "\nApply an ordered, idempotent patch plan to a source file, keeping a timestamped backup.")
		fmt.Fprintln(output, "\nExample: srcpatch --preset save-bom main.py")
		fmt.Fprintln(output, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(flags.Args()); err != nil {
		return nil, err
	}
	return cfg, nil
}

var errUsage = errors.New("usage")

func (cfg *Config) validate(args []string) error {
	if cfg.ListPresets {
		return nil
	}
	switch len(args) {
	case 1:
		cfg.Target = args[0]
	case 0:
		return fmt.Errorf("%w: missing file to patch", errUsage)
	default:
		return fmt.Errorf("%w: expected one file, got %d", errUsage, len(args))
	}

	if cfg.PlanFile != "" && cfg.Preset != "" {
		return fmt.Errorf("%w: --plan and --preset are mutually exclusive", errUsage)
	}
	if cfg.Undo && (cfg.PlanFile != "" || cfg.Preset != "" || cfg.DryRun) {
		return fmt.Errorf("%w: --undo cannot be combined with --plan, --preset or --dry-run", errUsage)
	}
	if cfg.ArchivePrefix != "" && cfg.ArchiveBucket == "" {
		return fmt.Errorf("%w: --archive-prefix needs --archive-bucket", errUsage)
	}
	return nil
}

// IsUsage reports whether err came from invalid arguments.
func IsUsage(err error) bool {
	return errors.Is(err, errUsage)
}
