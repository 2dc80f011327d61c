package pipeline

import (
	"path/filepath"

	"github.com/backmassage/texmaster/internal/display"
	"github.com/backmassage/texmaster/internal/logging"
)

// Observer receives batch progress. Calls are made from a single goroutine.
type Observer interface {
	OnStart(total int)
	OnTaskDone(done, total int, r TaskResult)
	OnFinish(stats RunStats)
}

// LogObserver is the CLI observer: a live progress line on a TTY plus one
// log line per failure or warning. Successful tasks are logged in verbose
// mode only.
type LogObserver struct {
	log      *logging.Logger
	progress *display.Progress
	root     string
	verbose  bool
	failed   int
}

// NewLogObserver returns an observer logging to log. progress may be nil.
// Paths are shown relative to root.
func NewLogObserver(log *logging.Logger, progress *display.Progress, root string, verbose bool) *LogObserver {
	return &LogObserver{log: log, progress: progress, root: root, verbose: verbose}
}

func (o *LogObserver) OnStart(total int) {
	o.failed = 0
	if o.progress != nil {
		o.progress.Update(0, total, 0, "")
	}
}

func (o *LogObserver) OnTaskDone(done, total int, r TaskResult) {
	o.clear()
	name := rel(o.root, r.Source)
	switch r.Status {
	case StatusFailed:
		o.failed++
		o.log.Error("%s: %v", name, r.Err)
	case StatusConverted:
		if r.Result.IdentifyErr != nil {
			o.log.Warn("%s: compression not detected, using %s: %v", name, r.Result.Mode, r.Result.IdentifyErr)
		}
		if r.Result.NameFallback {
			o.log.Warn("%s: no compression suffix, using %s", name, r.Result.Mode)
		}
		if r.Result.Output != "" {
			o.log.Debug(o.verbose, "%s -> %s (%s, %dms)", name, filepath.Base(r.Result.Output), r.Result.Mode, r.Duration.Milliseconds())
		}
	case StatusSkipped:
		o.log.Debug(o.verbose, "%s: interrupted", name)
	}
	if o.progress != nil {
		o.progress.Update(done, total, o.failed, filepath.Base(r.Source))
	}
}

func (o *LogObserver) OnFinish(RunStats) { o.clear() }

func (o *LogObserver) clear() {
	if o.progress != nil {
		o.progress.Clear()
	}
}
