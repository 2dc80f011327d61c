package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/texmaster/internal/config"
	"github.com/backmassage/texmaster/internal/convert"
	"github.com/backmassage/texmaster/internal/display"
	"github.com/backmassage/texmaster/internal/logging"
)

// ErrNotConversion is returned by Run for commands that do not convert.
var ErrNotConversion = errors.New("command does not run the conversion pipeline")

// job binds a conversion command to the files it consumes and the step it
// applies to each.
type job struct {
	verb string
	ext  string
	step func(ctx context.Context, b convert.Backend, path string, opts convert.Options) (convert.Result, error)
}

func jobFor(cmd config.Command) (job, error) {
	switch cmd {
	case config.CmdToPNG:
		return job{verb: "DDS -> PNG", ext: ".dds", step: convert.DDSToPNG}, nil
	case config.CmdToDDS:
		return job{verb: "PNG -> DDS", ext: ".png", step: convert.PNGToDDS}, nil
	}
	return job{}, fmt.Errorf("%w: %s", ErrNotConversion, cmd)
}

// Run is the top-level batch entry point for to-png and to-dds. It
// discovers files, converts them on cfg.Workers workers, applies the
// cleanup policy, and returns aggregate stats. obs may be nil.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, b convert.Backend, obs Observer) (RunStats, error) {
	stats := RunStats{BatchID: newBatchID()}
	j, err := jobFor(cfg.Command)
	if err != nil {
		return stats, err
	}

	log.SetPrefix(stats.BatchID)
	defer log.SetPrefix("")
	start := time.Now()

	files, err := Discover(cfg.Dir, j.ext)
	if err != nil {
		return stats, fmt.Errorf("discover: %w", err)
	}
	stats.Total = len(files)
	logBatchHeader(cfg, log, j, b, &stats)
	if stats.Total == 0 {
		log.Warn("No %s files found in %s", j.ext, cfg.Dir)
		return stats, nil
	}

	opts := convert.Options{Force: cfg.Force, DryRun: cfg.DryRun}
	fn := func(ctx context.Context, path string) (convert.Result, error) {
		return j.step(ctx, b, path, opts)
	}

	if obs != nil {
		obs.OnStart(stats.Total)
	}
	results := Dispatch(ctx, files, cfg.Workers, fn, obs)
	tally(results, cfg.DryRun, &stats)

	if ctx.Err() != nil {
		log.Warn("Interrupted: %d of %d files not converted", stats.Skipped, stats.Total)
	}

	policy := CleanupPolicy{
		Root:         cfg.Dir,
		Keep:         cfg.Keep,
		DeleteFailed: cfg.DeleteFailed,
		Quarantine:   cfg.Quarantine,
		DryRun:       cfg.DryRun,
	}
	if policy.DeleteFailed && stats.Failed > 0 {
		log.Hazard("Deleting %d failed source(s); their data is lost", stats.Failed)
	}
	rep := Cleanup(results, policy)
	stats.Deleted = len(rep.Deleted)
	stats.Quarantined = len(rep.Quarantined)
	stats.CleanupErrors = len(rep.Errors)
	for _, err := range rep.Errors {
		log.Error("Cleanup: %v", err)
	}

	stats.Elapsed = time.Since(start)
	if obs != nil {
		obs.OnFinish(stats)
	}
	logSummary(cfg, log, &stats)
	return stats, nil
}

// tally counts statuses and sizes. Sizes are read before cleanup removes
// the sources.
func tally(results []TaskResult, dryRun bool, stats *RunStats) {
	for _, r := range results {
		switch r.Status {
		case StatusConverted:
			stats.Converted++
			if dryRun {
				continue
			}
			stats.InputBytes += fileSize(r.Source)
			stats.OutputBytes += fileSize(r.Result.Output)
		case StatusFailed:
			stats.Failed++
		default:
			stats.Skipped++
		}
	}
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// newBatchID returns a short random ID that tags the log lines of one run.
func newBatchID() string {
	return uuid.NewString()[:8]
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, j job, b convert.Backend, stats *RunStats) {
	log.Info("%s: found %d files in %s", j.verb, stats.Total, cfg.Dir)
	log.Info("Backend: %s, workers: %d", b.Name(), cfg.Workers)
	switch {
	case cfg.Keep:
		log.Info("Cleanup: keep all sources")
	case cfg.DeleteFailed:
		log.Hazard("Cleanup: delete ALL sources, failed ones included")
	case cfg.Quarantine != "":
		log.Info("Cleanup: delete converted sources, move failed ones to %s", cfg.Quarantine)
	default:
		log.Info("Cleanup: delete converted sources, keep failed ones")
	}
	if cfg.Force {
		log.Info("Existing outputs: overwrite")
	}
	if cfg.DryRun {
		log.Info("Dry run: nothing will be converted, moved or deleted")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	dry := ""
	if cfg.DryRun {
		dry = "[DRY] "
	}
	log.Info("==============================")
	log.Info("%sDone: %d converted, %d failed, %d skipped (of %d) in %s",
		dry, stats.Converted, stats.Failed, stats.Skipped, stats.Total, stats.Elapsed.Round(time.Millisecond))
	log.Info("%sSources: %d deleted, %d quarantined", dry, stats.Deleted, stats.Quarantined)

	if !cfg.DryRun && stats.Converted > 0 {
		log.Info("  Size: input %s -> output %s (%s, %s)",
			display.FormatBytes(stats.InputBytes),
			display.FormatBytes(stats.OutputBytes),
			display.FormatBytesWithSign(stats.SizeDelta()),
			display.FormatRatio(stats.InputBytes, stats.OutputBytes))
	}

	switch {
	case stats.OK():
		log.Success("All %d files processed", stats.Total)
	case stats.Failed > 0 && !cfg.Keep && !cfg.DeleteFailed && cfg.Quarantine == "":
		log.Warn("%d failed source(s) left in place", stats.Failed)
	}
}
