package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const progressWidth = 80

// Progress renders a live batch counter. On a TTY it rewrites a single
// \r-overwritten line; otherwise it is a no-op (per-task log lines already
// provide enough breadcrumbs in piped/logged output).
type Progress struct {
	mu    sync.Mutex
	w     io.Writer
	isTTY bool
	verb  string
	shown bool
}

// NewProgress returns a renderer writing to w. verb labels the line, e.g.
// "Converting".
func NewProgress(w io.Writer, isTTY bool, verb string) *Progress {
	return &Progress{w: w, isTTY: isTTY, verb: verb}
}

// Update redraws the line for done of total tasks with failed failures.
func (p *Progress) Update(done, total, failed int, name string) {
	if !p.isTTY || total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = true
	_, _ = fmt.Fprintf(p.w, "\r%s", progressLine(p.verb, done, total, failed, name))
}

// Clear erases the line so a log line can be printed cleanly.
func (p *Progress) Clear() {
	if !p.isTTY {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.shown {
		return
	}
	p.shown = false
	_, _ = fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", progressWidth))
}

func progressLine(verb string, done, total, failed int, name string) string {
	pct := done * 100 / total
	status := fmt.Sprintf("  %s [%d/%d] %d%% ", verb, done, total, pct)
	if failed > 0 {
		status += fmt.Sprintf("(%d failed) ", failed)
	}

	maxName := 40
	if len(name) > maxName {
		name = name[:maxName-1] + "…"
	}
	status += name

	// Pad to overwrite previous longer lines.
	if len(status) < progressWidth {
		status += strings.Repeat(" ", progressWidth-len(status))
	}
	return status
}
