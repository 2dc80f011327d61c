package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/backmassage/texmaster/internal/config"
	"github.com/backmassage/texmaster/internal/layout"
	"github.com/backmassage/texmaster/internal/logging"
)

// RunLayout executes flatten or restore on cfg.Dir and logs one line per
// failed move plus a summary.
func RunLayout(ctx context.Context, cfg *config.Config, log *logging.Logger) (layout.Report, error) {
	opts := layout.Options{Ext: cfg.FlattenExt, DryRun: cfg.DryRun, NoIndex: cfg.NoIndex}

	var (
		rep  layout.Report
		err  error
		verb string
	)
	switch cfg.Command {
	case config.CmdFlatten:
		verb = "Flattened"
		log.Info("Flattening %s files below %s", cfg.FlattenExt, cfg.Dir)
		rep, err = layout.Flatten(ctx, cfg.Dir, opts)
	case config.CmdRestore:
		verb = "Restored"
		log.Info("Restoring %s files in %s", cfg.FlattenExt, cfg.Dir)
		rep, err = layout.Restore(ctx, cfg.Dir, opts)
	default:
		return rep, fmt.Errorf("not a layout command: %s", cfg.Command)
	}

	for _, e := range rep.Moved {
		log.Debug(cfg.Verbose, "%s -> %s", rel(cfg.Dir, e.Src), rel(cfg.Dir, e.Dst))
	}
	for _, e := range rep.Failed {
		log.Error("%s: %v", rel(cfg.Dir, e.Src), e.Err)
	}
	if err != nil {
		return rep, err
	}

	dry := ""
	if cfg.DryRun {
		dry = "[DRY] "
	}
	if len(rep.Failed) == 0 {
		log.Success("%s%s %d files", dry, verb, len(rep.Moved))
	} else {
		log.Warn("%s%s %d files, %d left in place", dry, verb, len(rep.Moved), len(rep.Failed))
	}
	return rep, nil
}

func rel(root, path string) string {
	if r, err := filepath.Rel(root, path); err == nil {
		return r
	}
	return path
}
