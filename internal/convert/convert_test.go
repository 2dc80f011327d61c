package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/backmassage/texmaster/internal/config"
	"github.com/backmassage/texmaster/internal/dxt"
	"github.com/backmassage/texmaster/internal/magick"
	"github.com/backmassage/texmaster/internal/texture"
)

// fakeBackend writes fixed content and records calls.
type fakeBackend struct {
	mu       sync.Mutex
	mode     dxt.Mode
	idErr    error
	convErr  error
	ddsModes map[string]dxt.Mode
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Identify(ctx context.Context, path string) (dxt.Mode, error) {
	if f.idErr != nil {
		return dxt.Default, f.idErr
	}
	return f.mode, nil
}

func (f *fakeBackend) ToPNG(ctx context.Context, src, dst string) error {
	if err := os.WriteFile(dst, []byte("partial"), 0o644); err != nil {
		return err
	}
	return f.convErr
}

func (f *fakeBackend) ToDDS(ctx context.Context, src, dst string, mode dxt.Mode) error {
	f.mu.Lock()
	if f.ddsModes == nil {
		f.ddsModes = map[string]dxt.Mode{}
	}
	f.ddsModes[dst] = mode
	f.mu.Unlock()
	if err := os.WriteFile(dst, []byte("dds"), 0o644); err != nil {
		return err
	}
	return f.convErr
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestDDSToPNG_Modes(t *testing.T) {
	tests := []struct {
		detected dxt.Mode
		want     string
		wantMode dxt.Mode
	}{
		{dxt.DXT1, "wall_dxt1_compression.png", dxt.DXT1},
		{dxt.DXT3, "wall_dxt5_compression.png", dxt.DXT5},
		{dxt.DXT5, "wall_dxt5_compression.png", dxt.DXT5},
	}
	for _, tt := range tests {
		t.Run(string(tt.detected), func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "wall.dds")
			touch(t, src)

			res, err := DDSToPNG(context.Background(), &fakeBackend{mode: tt.detected}, src, Options{})
			if err != nil {
				t.Fatalf("DDSToPNG: %v", err)
			}
			if res.Output != filepath.Join(dir, tt.want) || res.Mode != tt.wantMode {
				t.Errorf("got (%q, %q), want (%q, %q)", res.Output, res.Mode, tt.want, tt.wantMode)
			}
			if res.Detected != tt.detected {
				t.Errorf("Detected = %q, want %q", res.Detected, tt.detected)
			}
			if !exists(res.Output) {
				t.Error("output not written")
			}
		})
	}
}

func TestDDSToPNG_IdentifyFailureDefaults(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "odd.dds")
	touch(t, src)

	b := &fakeBackend{idErr: errors.New("improper image header")}
	res, err := DDSToPNG(context.Background(), b, src, Options{})
	if err != nil {
		t.Fatalf("DDSToPNG: %v", err)
	}
	if res.IdentifyErr == nil {
		t.Error("IdentifyErr should be reported")
	}
	if res.Mode != dxt.DXT5 || filepath.Base(res.Output) != "odd_dxt5_compression.png" {
		t.Errorf("got (%q, %q)", res.Output, res.Mode)
	}
}

func TestDDSToPNG_FailureRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dds")
	touch(t, src)

	b := &fakeBackend{mode: dxt.DXT1, convErr: errors.New("no decode delegate")}
	res, err := DDSToPNG(context.Background(), b, src, Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if exists(res.Output) {
		t.Error("partial output should be removed")
	}
	if !exists(src) {
		t.Error("source must be untouched")
	}
}

func TestOutputExists(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dds")
	touch(t, src)
	out := filepath.Join(dir, "a_dxt1_compression.png")
	if err := os.WriteFile(out, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := &fakeBackend{mode: dxt.DXT1}
	if _, err := DDSToPNG(context.Background(), b, src, Options{}); !errors.Is(err, ErrOutputExists) {
		t.Fatalf("err = %v, want ErrOutputExists", err)
	}
	if got, _ := os.ReadFile(out); string(got) != "keep me" {
		t.Errorf("existing output clobbered: %q", got)
	}

	if _, err := DDSToPNG(context.Background(), b, src, Options{Force: true}); err != nil {
		t.Fatalf("with Force: %v", err)
	}
	if got, _ := os.ReadFile(out); string(got) != "partial" {
		t.Errorf("Force did not overwrite: %q", got)
	}
}

func TestForceFailureKeepsExistingOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dds")
	touch(t, src)
	out := filepath.Join(dir, "a_dxt1_compression.png")
	if err := os.WriteFile(out, []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := &fakeBackend{mode: dxt.DXT1, convErr: errors.New("no decode delegate")}
	if _, err := DDSToPNG(context.Background(), b, src, Options{Force: true}); err == nil {
		t.Fatal("expected error")
	}
	if !exists(out) {
		t.Error("output present before the attempt must not be removed")
	}
}

func TestPNGToDDS(t *testing.T) {
	tests := []struct {
		name     string
		png      string
		wantDDS  string
		wantMode dxt.Mode
		fallback bool
	}{
		{"dxt1", "wall_dxt1_compression.png", "wall.dds", dxt.DXT1, false},
		{"dxt5", "a__b__wall_dxt5_compression.png", "a__b__wall.dds", dxt.DXT5, false},
		{"underscored stem", "my_tex_dxt1_compression.png", "my_tex.dds", dxt.DXT1, false},
		{"no suffix", "plain.png", "plain.dds", dxt.DXT5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, tt.png)
			touch(t, src)

			b := &fakeBackend{}
			res, err := PNGToDDS(context.Background(), b, src, Options{})
			if err != nil {
				t.Fatalf("PNGToDDS: %v", err)
			}
			want := filepath.Join(dir, tt.wantDDS)
			if res.Output != want || res.Mode != tt.wantMode || res.NameFallback != tt.fallback {
				t.Errorf("got %+v, want (%q, %q, fallback=%v)", res, want, tt.wantMode, tt.fallback)
			}
			if b.ddsModes[want] != tt.wantMode {
				t.Errorf("backend got mode %q", b.ddsModes[want])
			}
		})
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a_dxt1_compression.png")
	touch(t, src)

	res, err := PNGToDDS(context.Background(), &fakeBackend{}, src, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if exists(res.Output) {
		t.Error("dry run wrote output")
	}
}

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()
	b, err := New(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := b.(*magick.Magick)
	if !ok {
		t.Fatalf("default backend = %T, want *magick.Magick", b)
	}
	if m.Tee {
		t.Error("stderr tee should be off without --verbose")
	}

	cfg.Verbose = true
	b, err = New(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	if m := b.(*magick.Magick); !m.Tee {
		t.Error("--verbose should tee converter stderr")
	}

	cfg.Backend = config.BackendNative
	cfg.Mipmaps = 3
	b, err = New(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := b.(*texture.Native)
	if !ok || n.Mipmaps != 3 {
		t.Errorf("native backend = %#v", b)
	}

	cfg.Backend = "gimp"
	if _, err := New(&cfg); err == nil {
		t.Error("unknown backend should fail")
	}
}
