package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/sokinpui/srcpatch/cli"
	"github.com/sokinpui/srcpatch/internal/tui"
	"github.com/sokinpui/srcpatch/internal/ui"
	"github.com/sokinpui/srcpatch/srcpatch"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 on success, 1 when the file or plan
// cannot be used or the commit fails, 2 on invalid arguments.
func run() int {
	cfg, err := cli.ParseFlags()
	switch {
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case cli.IsUsage(err):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	case err != nil:
		// pflag already prints the error message.
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := srcpatch.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		return 1
	}
	defer app.Close()

	// Listing presets and non-terminal output never run the TUI.
	if cfg.Plain || cfg.ListPresets || !isatty.IsTerminal(os.Stdout.Fd()) {
		return runPlain(ctx, app, cfg)
	}

	p := tea.NewProgram(tui.New(ctx, app, cfg.Verbose))
	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		return 1
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return 1
	}
	return 0
}

func runPlain(ctx context.Context, app *srcpatch.App, cfg *cli.Config) int {
	var bar *ui.ProgressBar
	if !cfg.ListPresets && !cfg.Undo {
		app.SetProgressCallback(func(current, total int) {
			if bar == nil {
				bar = ui.NewProgressBar(total, "Applying")
				bar.Start()
			}
			bar.Set(current)
			if current == total {
				bar.Finish()
			}
		})
	}

	summary, err := app.Execute(ctx)
	if err != nil {
		var detailed *srcpatch.DetailedError
		if errors.As(err, &detailed) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		ui.Error("Error: %v", err)
		return 1
	}
	ui.PrintSummary(summary, cfg.Verbose)
	return 0
}
