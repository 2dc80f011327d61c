package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/backmassage/texmaster/internal/config"
	"github.com/backmassage/texmaster/internal/convert"
	"github.com/backmassage/texmaster/internal/display"
	"github.com/backmassage/texmaster/internal/dxt"
	"github.com/backmassage/texmaster/internal/logging"
	"github.com/backmassage/texmaster/internal/term"
)

// fileRow holds the identified per-file data for the analysis table.
type fileRow struct {
	Name     string
	Detected dxt.Mode
	Output   dxt.Mode
	Size     int64
	Err      error
}

// Analyze discovers DDS files, identifies each one on cfg.Workers workers,
// and prints a table of detected compression, the mode the file will be
// written back as, and its size. Files whose compression cannot be detected
// are flagged; they round-trip as dxt.Default.
func Analyze(ctx context.Context, cfg *config.Config, log *logging.Logger, b convert.Backend, out io.Writer, obs Observer) error {
	files, err := Discover(cfg.Dir, ".dds")
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if len(files) == 0 {
		log.Warn("No .dds files found in %s", cfg.Dir)
		return nil
	}
	log.Info("Analyzing %d files in %s (backend: %s)", len(files), cfg.Dir, b.Name())

	identify := func(ctx context.Context, path string) (convert.Result, error) {
		mode, err := b.Identify(ctx, path)
		return convert.Result{Detected: mode, Mode: dxt.Output(mode), IdentifyErr: err}, nil
	}
	if obs != nil {
		obs.OnStart(len(files))
	}
	results := Dispatch(ctx, files, cfg.Workers, identify, obs)
	if obs != nil {
		obs.OnFinish(RunStats{Total: len(files)})
	}
	if ctx.Err() != nil {
		log.Warn("Interrupted")
		return ctx.Err()
	}

	rows := make([]fileRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, fileRow{
			Name:     rel(cfg.Dir, r.Source),
			Detected: r.Result.Detected,
			Output:   r.Result.Mode,
			Size:     fileSize(r.Source),
			Err:      r.Result.IdentifyErr,
		})
	}

	printAnalysisTable(out, rows)
	printAnalysisSummary(log, rows)
	return nil
}

func printAnalysisTable(w io.Writer, rows []fileRow) {
	nameW := len("File")
	detW := len("Detected")
	outW := len("Written as")
	sizeW := len("Size")

	for _, r := range rows {
		nameW = max(nameW, utf8.RuneCountInString(r.Name))
		detW = max(detW, len(detectedLabel(r)))
		sizeW = max(sizeW, len(display.FormatBytes(r.Size)))
	}
	if nameW > 60 {
		nameW = 60
	}

	header := fmt.Sprintf("  %-*s  %-*s  %-*s  %*s",
		nameW, "File",
		detW, "Detected",
		outW, "Written as",
		sizeW, "Size",
	)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "  "+strings.Repeat("─", utf8.RuneCountInString(header)-2))

	for _, r := range rows {
		name := truncateLeft(r.Name, nameW)
		// Pad the plain text first, then wrap in ANSI color so escape bytes
		// do not count toward the column width.
		fmt.Fprintf(w, "  %-*s  %s  %s  %*s\n",
			nameW, name,
			colorPad(detectedLabel(r), detW, detectedClass(r)),
			colorPad(string(r.Output), outW, outputClass(r)),
			sizeW, display.FormatBytes(r.Size),
		)
	}
	fmt.Fprintln(w)
}

func printAnalysisSummary(log *logging.Logger, rows []fileRow) {
	counts := map[dxt.Mode]int{}
	var undetected, promoted int
	for _, r := range rows {
		if r.Err != nil {
			undetected++
			continue
		}
		counts[r.Detected]++
		if r.Output != r.Detected {
			promoted++
		}
	}

	log.Info("Analyzed %d files", len(rows))
	for _, m := range dxt.Modes {
		if counts[m] > 0 {
			log.Info("  %s: %d", m, counts[m])
		}
	}
	if promoted > 0 {
		log.Warn("  %d DXT3 file(s) will be written back as DXT5", promoted)
	}
	if undetected > 0 {
		log.Warn("  %d file(s) with undetected compression will be written as %s", undetected, dxt.Default)
	}
	if promoted == 0 && undetected == 0 {
		log.Success("  All files round-trip with their original compression")
	}
}

func detectedLabel(r fileRow) string {
	if r.Err != nil {
		return "unknown"
	}
	return string(r.Detected)
}

func detectedClass(r fileRow) string {
	if r.Err != nil {
		return "error"
	}
	return ""
}

func outputClass(r fileRow) string {
	if r.Err == nil && r.Output != r.Detected {
		return "changed"
	}
	return ""
}

// truncateLeft keeps the last width-1 runes of s behind an ellipsis when s
// is wider than width runes. fmt pads by rune count, so columns stay aligned
// for non-ASCII paths.
func truncateLeft(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return "…" + string(runes[len(runes)-width+1:])
}

// colorPad pads a plain string to width, then wraps in ANSI color.
func colorPad(s string, width int, class string) string {
	padded := fmt.Sprintf("%-*s", width, s)
	switch class {
	case "error":
		return term.Paint(term.Red, padded)
	case "changed":
		return term.Paint(term.Orange, padded)
	default:
		return padded
	}
}
