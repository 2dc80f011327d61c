// Command texmaster is the CLI entrypoint for the texmaster DDS <-> PNG
// batch converter.
//
// It parses flags, validates configuration and paths, and then runs system
// diagnostics (--check), a layout transform (flatten, restore), an analysis
// (analyze), or the conversion pipeline (to-png, to-dds).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/backmassage/texmaster/internal/check"
	"github.com/backmassage/texmaster/internal/config"
	"github.com/backmassage/texmaster/internal/convert"
	"github.com/backmassage/texmaster/internal/display"
	"github.com/backmassage/texmaster/internal/logging"
	"github.com/backmassage/texmaster/internal/pipeline"
	"github.com/backmassage/texmaster/internal/term"
)

// version and commit are injected at build time via -ldflags.
// When built with plain "go build", these retain their defaults.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt. Once NewLogger succeeds, all output
	// goes through the logger for consistent formatting and log-file capture.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, version); err != nil {
		fmt.Fprintf(os.Stderr, "texmaster: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'texmaster --help' for usage.")
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "texmaster: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "texmaster: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available. All output goes through log from here on.
	display.PrintBanner(os.Stdout)

	// Phase 3: Signal handling. Cancel the context on SIGINT/SIGTERM so
	// workers stop picking up files; running conversions are killed and
	// their partial outputs removed, and no source of an unfinished file
	// is deleted.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, stopping batch…")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.CheckOnly {
		check.RunCheck(ctx, &cfg, log)
		return 0
	}

	// Resolve and validate paths: the batch directory must exist, and a
	// quarantine directory must live outside it.
	dirAbs, err := absPath(cfg.Dir)
	if err != nil {
		log.Error("Directory not found: %s", cfg.Dir)
		return 1
	}
	if fi, err := os.Stat(dirAbs); err != nil || !fi.IsDir() {
		log.Error("Not a directory: %s", cfg.Dir)
		return 1
	}
	if cfg.Quarantine != "" {
		if err := os.MkdirAll(cfg.Quarantine, 0o755); err != nil {
			log.Error("Cannot create quarantine directory: %s", cfg.Quarantine)
			return 1
		}
		qAbs, err := absPath(cfg.Quarantine)
		if err != nil {
			log.Error("Cannot resolve quarantine path: %s", cfg.Quarantine)
			return 1
		}
		if err := cfg.ValidatePaths(dirAbs, qAbs); err != nil {
			log.Error("%v", err)
			log.Error("Choose a quarantine path outside: %s", cfg.Dir)
			return 1
		}
	}

	log.Info("=== texmaster v%s (%s) ===", version, commit)
	log.Info("Command: %s", cfg.Command)
	log.Info("Dir:     %s", cfg.Dir)
	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be written, moved or deleted")
	}
	log.Info("")

	switch cfg.Command {
	case config.CmdFlatten, config.CmdRestore:
		rep, err := pipeline.RunLayout(ctx, &cfg, log)
		if err != nil {
			log.Error("%s failed: %v", cfg.Command, err)
			return 1
		}
		if len(rep.Failed) > 0 {
			return 1
		}
		return 0
	}

	// Fail fast if the selected backend cannot do the work.
	if err := check.CheckDeps(ctx, &cfg); err != nil {
		log.Error("%v", err)
		return 1
	}
	backend, err := convert.New(&cfg)
	if err != nil {
		log.Error("%v", err)
		return 1
	}

	progress := display.NewProgress(os.Stdout, term.IsTerminal(os.Stdout), progressVerb(cfg.Command))
	obs := pipeline.NewLogObserver(log, progress, cfg.Dir, cfg.Verbose)

	if cfg.Command == config.CmdAnalyze {
		if err := pipeline.Analyze(ctx, &cfg, log, backend, os.Stdout, obs); err != nil {
			log.Error("analyze failed: %v", err)
			return 1
		}
		return 0
	}

	// Phase 4: Run the conversion pipeline (discover → dispatch → cleanup).
	stats, err := pipeline.Run(ctx, &cfg, log, backend, obs)
	if err != nil {
		log.Error("%s failed: %v", cfg.Command, err)
		return 1
	}
	if !stats.OK() {
		return 1
	}
	return 0
}

func progressVerb(cmd config.Command) string {
	if cmd == config.CmdAnalyze {
		return "Identifying"
	}
	return "Converting"
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of directory hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
