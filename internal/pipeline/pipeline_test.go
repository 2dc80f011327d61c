package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/backmassage/texmaster/internal/config"
	"github.com/backmassage/texmaster/internal/convert"
	"github.com/backmassage/texmaster/internal/dxt"
	"github.com/backmassage/texmaster/internal/logging"
)

// --- helpers ---

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("data:"+name), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func relAll(root string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		r, _ := filepath.Rel(root, p)
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func quietLogger(t *testing.T, w io.Writer) *logging.Logger {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	l, err := logging.NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	l.SetOutput(w)
	return l
}

// fakeBackend converts by writing a small file; sources whose name
// contains "bad" fail.
type fakeBackend struct {
	mode  dxt.Mode
	calls atomic.Int32
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Identify(ctx context.Context, path string) (dxt.Mode, error) {
	if strings.Contains(filepath.Base(path), "bad") {
		return dxt.Default, errors.New("improper image header")
	}
	return f.mode, nil
}

func (f *fakeBackend) ToPNG(ctx context.Context, src, dst string) error {
	return f.write(src, dst)
}

func (f *fakeBackend) ToDDS(ctx context.Context, src, dst string, mode dxt.Mode) error {
	return f.write(src, dst)
}

func (f *fakeBackend) write(src, dst string) error {
	f.calls.Add(1)
	if strings.Contains(filepath.Base(src), "bad") {
		return errors.New("no decode delegate for this image format")
	}
	return os.WriteFile(dst, []byte("converted output"), 0o644)
}

// recordObserver records events; calls come from one goroutine.
type recordObserver struct {
	started  int
	done     []int
	sources  []string
	finished bool
}

func (r *recordObserver) OnStart(total int) { r.started = total }
func (r *recordObserver) OnTaskDone(done, total int, res TaskResult) {
	r.done = append(r.done, done)
	r.sources = append(r.sources, res.Source)
}
func (r *recordObserver) OnFinish(RunStats) { r.finished = true }

// --- Discover ---

func TestDiscover_FiltersExtensionRecursivelySorted(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b/wall.dds")
	touch(t, dir, "a/deep/er/floor.DDS")
	touch(t, dir, "root.dds")
	touch(t, dir, "a/notes.txt")
	touch(t, dir, "a/wall_dxt1_compression.png")

	files, err := Discover(dir, ".dds")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"a/deep/er/floor.DDS", "b/wall.dds", "root.dds"}
	if got := relAll(dir, files); !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	pngs, err := Discover(dir, ".png")
	if err != nil {
		t.Fatal(err)
	}
	if got := relAll(dir, pngs); !sliceEqual(got, []string{"a/wall_dxt1_compression.png"}) {
		t.Errorf("png discover = %v", got)
	}
}

func TestDiscover_MissingRoot(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope"), ".dds"); err == nil {
		t.Error("expected error for missing root")
	}
}

// --- Dispatch ---

func TestDispatch_ResultsInInputOrder(t *testing.T) {
	paths := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7"}
	fn := func(ctx context.Context, path string) (convert.Result, error) {
		// Later paths finish first.
		n := int(path[1] - '0')
		time.Sleep(time.Duration(8-n) * time.Millisecond)
		if path == "p3" {
			return convert.Result{}, errors.New("boom")
		}
		return convert.Result{Output: path + ".out"}, nil
	}
	obs := &recordObserver{}
	results := Dispatch(context.Background(), paths, 4, fn, obs)

	for i, r := range results {
		if r.Index != i || r.Source != paths[i] {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}
	if results[3].Status != StatusFailed || results[3].Err == nil {
		t.Errorf("p3 = %+v, want failed", results[3])
	}
	for i, r := range results {
		if i != 3 && (r.Status != StatusConverted || r.Result.Output != paths[i]+".out") {
			t.Errorf("%s = %+v, want converted", paths[i], r)
		}
	}
	if len(obs.done) != len(paths) {
		t.Fatalf("observer got %d events, want %d", len(obs.done), len(paths))
	}
	for i, d := range obs.done {
		if d != i+1 {
			t.Errorf("event %d has done=%d", i, d)
		}
	}
}

func TestDispatch_BoundsConcurrency(t *testing.T) {
	paths := make([]string, 12)
	for i := range paths {
		paths[i] = "p"
	}
	var active, peak atomic.Int32
	fn := func(ctx context.Context, path string) (convert.Result, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return convert.Result{}, nil
	}
	Dispatch(context.Background(), paths, 3, fn, nil)
	if p := peak.Load(); p > 3 || p < 1 {
		t.Errorf("peak concurrency = %d, want 1..3", p)
	}
}

func TestDispatch_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	fn := func(ctx context.Context, path string) (convert.Result, error) {
		calls.Add(1)
		return convert.Result{}, nil
	}
	results := Dispatch(ctx, []string{"a", "b", "c"}, 2, fn, nil)
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancel", calls.Load())
	}
	for _, r := range results {
		if r.Status != StatusSkipped {
			t.Errorf("%s status = %s, want skipped", r.Source, r.Status)
		}
	}
}

func TestDispatch_CancelMidBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	fn := func(ctx context.Context, path string) (convert.Result, error) {
		calls.Add(1)
		cancel()
		return convert.Result{}, ctx.Err()
	}
	results := Dispatch(ctx, []string{"a", "b", "c", "d"}, 1, fn, nil)
	if calls.Load() != 1 {
		t.Errorf("fn called %d times, want 1", calls.Load())
	}
	for _, r := range results {
		if r.Status != StatusSkipped {
			t.Errorf("%s status = %s, want skipped", r.Source, r.Status)
		}
	}
}

func TestDispatch_Empty(t *testing.T) {
	if got := Dispatch(context.Background(), nil, 6, nil, nil); len(got) != 0 {
		t.Errorf("got %d results", len(got))
	}
}

// --- Cleanup ---

func cleanupFixture(t *testing.T) (string, []TaskResult) {
	t.Helper()
	dir := t.TempDir()
	return dir, []TaskResult{
		{Source: touch(t, dir, "a/ok1.dds"), Status: StatusConverted},
		{Source: touch(t, dir, "a/b/bad.dds"), Status: StatusFailed, Err: errors.New("x")},
		{Source: touch(t, dir, "ok2.dds"), Status: StatusConverted},
		{Source: touch(t, dir, "late.dds"), Status: StatusSkipped},
	}
}

func TestCleanup_DefaultKeepsFailed(t *testing.T) {
	dir, results := cleanupFixture(t)
	rep := Cleanup(results, CleanupPolicy{Root: dir})

	if len(rep.Deleted) != 2 || len(rep.Kept) != 2 || len(rep.Errors) != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if exists(results[0].Source) || exists(results[2].Source) {
		t.Error("converted sources should be deleted")
	}
	if !exists(results[1].Source) || !exists(results[3].Source) {
		t.Error("failed and skipped sources must stay")
	}
}

func TestCleanup_Quarantine(t *testing.T) {
	dir, results := cleanupFixture(t)
	q := filepath.Join(t.TempDir(), "failed")
	rep := Cleanup(results, CleanupPolicy{Root: dir, Quarantine: q})

	if len(rep.Quarantined) != 1 || len(rep.Deleted) != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if exists(results[1].Source) {
		t.Error("failed source should have moved")
	}
	if !exists(filepath.Join(q, "a", "b", "bad.dds")) {
		t.Error("quarantine should preserve the relative layout")
	}
	if !exists(results[3].Source) {
		t.Error("skipped source must stay")
	}
}

func TestCleanup_DeleteFailed(t *testing.T) {
	dir, results := cleanupFixture(t)
	rep := Cleanup(results, CleanupPolicy{Root: dir, DeleteFailed: true})
	if len(rep.Deleted) != 3 {
		t.Fatalf("deleted %d, want 3", len(rep.Deleted))
	}
	if exists(results[1].Source) {
		t.Error("failed source should be deleted with DeleteFailed")
	}
	if !exists(results[3].Source) {
		t.Error("skipped source must stay even with DeleteFailed")
	}
}

func TestCleanup_KeepAndDryRun(t *testing.T) {
	for _, p := range []CleanupPolicy{{Keep: true}, {DryRun: true}} {
		dir, results := cleanupFixture(t)
		p.Root = dir
		Cleanup(results, p)
		for _, r := range results {
			if !exists(r.Source) {
				t.Errorf("policy %+v removed %s", p, r.Source)
			}
		}
	}
}

// --- Run ---

func runConfig(dir string) config.Config {
	cfg := config.DefaultConfig()
	cfg.Command = config.CmdToPNG
	cfg.Dir = dir
	cfg.ColorMode = config.ColorNever
	return cfg
}

func TestRun_ThreeTasksOneFailure(t *testing.T) {
	dir := t.TempDir()
	good1 := touch(t, dir, "a/wall.dds")
	bad := touch(t, dir, "a/bad.dds")
	good2 := touch(t, dir, "b/c/floor.dds")

	cfg := runConfig(dir)
	var logBuf bytes.Buffer
	b := &fakeBackend{mode: dxt.DXT1}
	obs := &recordObserver{}
	stats, err := Run(context.Background(), &cfg, quietLogger(t, &logBuf), b, obs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Total != 3 || stats.Converted != 2 || stats.Failed != 1 || stats.Deleted != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.OK() {
		t.Error("OK() should be false with a failure")
	}
	if exists(good1) || exists(good2) {
		t.Error("converted sources should be deleted")
	}
	if !exists(bad) {
		t.Error("failed source must be kept")
	}
	for _, out := range []string{"a/wall_dxt1_compression.png", "b/c/floor_dxt1_compression.png"} {
		if !exists(filepath.Join(dir, out)) {
			t.Errorf("missing output %s", out)
		}
	}
	if exists(filepath.Join(dir, "a/bad_dxt5_compression.png")) {
		t.Error("failed conversion left a partial output")
	}
	if obs.started != 3 || len(obs.done) != 3 || !obs.finished {
		t.Errorf("observer = %+v", obs)
	}
	if stats.BatchID == "" || !strings.Contains(logBuf.String(), "["+stats.BatchID+"]") {
		t.Error("log lines should carry the batch ID")
	}
	if stats.InputBytes == 0 || stats.OutputBytes == 0 {
		t.Errorf("sizes not tallied: %+v", stats)
	}
}

func TestRun_QuarantineMovesFailedSources(t *testing.T) {
	dir := t.TempDir()
	q := filepath.Join(t.TempDir(), "failed")
	good := touch(t, dir, "a/wall.dds")
	bad1 := touch(t, dir, "a/b/bad.dds")
	bad2 := touch(t, dir, "bad_top.dds")

	cfg := runConfig(dir)
	cfg.Quarantine = q
	var logBuf bytes.Buffer
	stats, err := Run(context.Background(), &cfg, quietLogger(t, &logBuf), &fakeBackend{mode: dxt.DXT5}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if stats.Converted != 1 || stats.Failed != 2 || stats.Deleted != 1 || stats.Quarantined != 2 || stats.CleanupErrors != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if exists(good) || exists(bad1) || exists(bad2) {
		t.Error("no source should remain in the batch directory")
	}
	for _, rel := range []string{"a/b/bad.dds", "bad_top.dds"} {
		if !exists(filepath.Join(q, filepath.FromSlash(rel))) {
			t.Errorf("quarantine missing %s", rel)
		}
	}
	if !strings.Contains(logBuf.String(), "move failed ones to "+q) {
		t.Errorf("header should name the quarantine dir:\n%s", logBuf.String())
	}
}

func TestRun_DeleteFailedLogsHazard(t *testing.T) {
	dir := t.TempDir()
	bad := touch(t, dir, "bad.dds")
	touch(t, dir, "good.dds")

	cfg := runConfig(dir)
	cfg.DeleteFailed = true
	var logBuf bytes.Buffer
	stats, err := Run(context.Background(), &cfg, quietLogger(t, &logBuf), &fakeBackend{mode: dxt.DXT5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if exists(bad) || stats.Deleted != 2 {
		t.Errorf("delete-failed should remove both sources: %+v", stats)
	}
	if !strings.Contains(logBuf.String(), "[HAZARD]") {
		t.Error("expected a HAZARD log line")
	}
}

func TestRun_ToDDS(t *testing.T) {
	dir := t.TempDir()
	src := touch(t, dir, "x/a__b__wall_dxt1_compression.png")

	cfg := runConfig(dir)
	cfg.Command = config.CmdToDDS
	stats, err := Run(context.Background(), &cfg, quietLogger(t, io.Discard), &fakeBackend{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Converted != 1 || exists(src) {
		t.Errorf("stats = %+v", stats)
	}
	if !exists(filepath.Join(dir, "x", "a__b__wall.dds")) {
		t.Error("missing DDS output")
	}
}

func TestRun_DryRunChangesNothing(t *testing.T) {
	dir := t.TempDir()
	src := touch(t, dir, "a/wall.dds")

	cfg := runConfig(dir)
	cfg.DryRun = true
	b := &fakeBackend{mode: dxt.DXT1}
	stats, err := Run(context.Background(), &cfg, quietLogger(t, io.Discard), b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Converted != 1 || stats.Deleted != 1 {
		t.Errorf("dry-run stats = %+v", stats)
	}
	if !exists(src) || b.calls.Load() != 0 {
		t.Error("dry run must not convert or delete")
	}
}

func TestRun_ExistingOutputFailsWithoutForce(t *testing.T) {
	dir := t.TempDir()
	src := touch(t, dir, "wall.dds")
	touch(t, dir, "wall_dxt1_compression.png")

	cfg := runConfig(dir)
	stats, err := Run(context.Background(), &cfg, quietLogger(t, io.Discard), &fakeBackend{mode: dxt.DXT1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failed != 1 || !exists(src) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRun_RejectsLayoutCommand(t *testing.T) {
	cfg := runConfig(t.TempDir())
	cfg.Command = config.CmdFlatten
	if _, err := Run(context.Background(), &cfg, quietLogger(t, io.Discard), &fakeBackend{}, nil); !errors.Is(err, ErrNotConversion) {
		t.Errorf("err = %v, want ErrNotConversion", err)
	}
}

// --- RunLayout ---

func TestRunLayout_FlattenRestore(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a/b/wall.png")
	touch(t, dir, "c/floor.png")

	cfg := runConfig(dir)
	cfg.Command = config.CmdFlatten
	log := quietLogger(t, io.Discard)
	rep, err := RunLayout(context.Background(), &cfg, log)
	if err != nil || len(rep.Moved) != 2 {
		t.Fatalf("flatten: %+v, %v", rep, err)
	}
	if !exists(filepath.Join(dir, "a__b__wall.png")) {
		t.Error("missing flattened file")
	}

	cfg.Command = config.CmdRestore
	rep, err = RunLayout(context.Background(), &cfg, log)
	if err != nil || len(rep.Moved) != 2 {
		t.Fatalf("restore: %+v, %v", rep, err)
	}
	if !exists(filepath.Join(dir, "a", "b", "wall.png")) || !exists(filepath.Join(dir, "c", "floor.png")) {
		t.Error("tree not restored")
	}
}

// --- Analyze ---

func TestAnalyze_Table(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a/wall.dds")
	touch(t, dir, "bad.dds")

	cfg := runConfig(dir)
	cfg.Command = config.CmdAnalyze
	var table, logBuf bytes.Buffer
	err := Analyze(context.Background(), &cfg, quietLogger(t, &logBuf), &fakeBackend{mode: dxt.DXT3}, &table, nil)
	if err != nil {
		t.Fatal(err)
	}
	out := table.String()
	for _, want := range []string{"File", "Detected", filepath.Join("a", "wall.dds"), "dxt3", "dxt5", "unknown"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	logs := logBuf.String()
	if !strings.Contains(logs, "written back as DXT5") || !strings.Contains(logs, "undetected") {
		t.Errorf("summary missing warnings:\n%s", logs)
	}
	if !exists(filepath.Join(dir, "bad.dds")) {
		t.Error("analyze must not touch files")
	}
}

func TestTruncateLeft(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.dds", 20, "short.dds"},
		{"abcdefgh.dds", 8, "…fgh.dds"},
		{"текстуры/камень.dds", 8, "…ень.dds"},
		{"日本語/テクスチャ.dds", 6, "…ャ.dds"},
	}
	for _, tt := range tests {
		got := truncateLeft(tt.in, tt.width)
		if got != tt.want {
			t.Errorf("truncateLeft(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateLeft(%q, %d) split a rune: %q", tt.in, tt.width, got)
		}
		if n := utf8.RuneCountInString(got); n > tt.width {
			t.Errorf("truncateLeft(%q, %d) is %d runes wide", tt.in, tt.width, n)
		}
	}
}

func TestAnalyze_NonASCIINamesAligned(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "текстуры/"+strings.Repeat("камень", 12)+".dds")
	touch(t, dir, "plain.dds")

	cfg := runConfig(dir)
	cfg.Command = config.CmdAnalyze
	var table, logBuf bytes.Buffer
	if err := Analyze(context.Background(), &cfg, quietLogger(t, &logBuf), &fakeBackend{mode: dxt.DXT1}, &table, nil); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("want header, rule and 2 rows, got:\n%s", table.String())
	}
	width := utf8.RuneCountInString(lines[0])
	for _, line := range lines {
		if !utf8.ValidString(line) {
			t.Errorf("invalid UTF-8 in %q", line)
		}
		if n := utf8.RuneCountInString(line); n != width {
			t.Errorf("line is %d runes wide, header is %d: %q", n, width, line)
		}
	}
}

// --- LogObserver ---

func TestLogObserver_LogsFailuresAndWarnings(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogObserver(quietLogger(t, &buf), nil, "/tex", false)
	obs.OnStart(2)
	obs.OnTaskDone(1, 2, TaskResult{Source: "/tex/a/bad.dds", Status: StatusFailed, Err: errors.New("boom")})
	obs.OnTaskDone(2, 2, TaskResult{
		Source: "/tex/odd.dds",
		Status: StatusConverted,
		Result: convert.Result{Output: "/tex/odd_dxt5_compression.png", Mode: dxt.DXT5, IdentifyErr: errors.New("no header")},
	})
	obs.OnFinish(RunStats{})

	out := buf.String()
	if !strings.Contains(out, "[ERROR] "+filepath.Join("a", "bad.dds")+": boom") {
		t.Errorf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] odd.dds: compression not detected") {
		t.Errorf("missing warning line:\n%s", out)
	}
}

// Observer events are delivered from one goroutine; this exercises the
// contract under the race detector with many workers.
func TestDispatch_ObserverSerialized(t *testing.T) {
	paths := make([]string, 50)
	for i := range paths {
		paths[i] = "p"
	}
	var mu sync.Mutex
	inside := false
	obs := &funcObserver{onDone: func() {
		mu.Lock()
		if inside {
			t.Error("concurrent observer call")
		}
		inside = true
		mu.Unlock()
		time.Sleep(100 * time.Microsecond)
		mu.Lock()
		inside = false
		mu.Unlock()
	}}
	fn := func(ctx context.Context, path string) (convert.Result, error) { return convert.Result{}, nil }
	Dispatch(context.Background(), paths, 8, fn, obs)
}

type funcObserver struct{ onDone func() }

func (f *funcObserver) OnStart(int)                     {}
func (f *funcObserver) OnTaskDone(int, int, TaskResult) { f.onDone() }
func (f *funcObserver) OnFinish(RunStats)               {}
