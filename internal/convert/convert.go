// Package convert defines the per-file conversion contract shared by the
// batch pipeline and the two converter backends, and the DDS <-> PNG steps
// built on it: detect compression, derive the output name, convert.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/backmassage/texmaster/internal/config"
	"github.com/backmassage/texmaster/internal/dxt"
	"github.com/backmassage/texmaster/internal/magick"
	"github.com/backmassage/texmaster/internal/naming"
	"github.com/backmassage/texmaster/internal/texture"
)

// ErrOutputExists is returned when the output file is already present and
// Options.Force is not set.
var ErrOutputExists = errors.New("output already exists")

// Backend performs the actual pixel work. Implementations must be safe for
// concurrent use; the pipeline calls them from several workers at once.
type Backend interface {
	Name() string
	// Identify reports the compression of a DDS file. On error the returned
	// mode is still usable (dxt.Default).
	Identify(ctx context.Context, path string) (dxt.Mode, error)
	ToPNG(ctx context.Context, src, dst string) error
	ToDDS(ctx context.Context, src, dst string, mode dxt.Mode) error
}

var (
	_ Backend = (*magick.Magick)(nil)
	_ Backend = (*texture.Native)(nil)
)

// Options tune a single conversion.
type Options struct {
	Force  bool // Overwrite an existing output.
	DryRun bool // Resolve names and modes but do not convert.
}

// Result describes one conversion.
type Result struct {
	Output string
	Mode   dxt.Mode // Mode written to (DDS) or encoded into (PNG) the output.

	// DDS -> PNG only.
	Detected    dxt.Mode // Mode reported by the backend before downgrade.
	IdentifyErr error    // Detection failed; Detected is dxt.Default.

	// PNG -> DDS only: the name carried no compression suffix and Mode is
	// dxt.Default.
	NameFallback bool
}

// New returns the backend selected by cfg.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendMagick, "":
		return &magick.Magick{Bin: cfg.MagickBin, Mipmaps: cfg.Mipmaps, Tee: cfg.Verbose}, nil
	case config.BackendNative:
		return &texture.Native{Mipmaps: cfg.Mipmaps, DecodeWorkers: cfg.DecodeWorkers}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// DDSToPNG converts one DDS file to "<stem>_<mode>_compression.png" next to
// it. A failed identify is not fatal: the mode falls back to dxt.Default and
// the error is reported in Result.IdentifyErr. DXT3 is recorded as DXT5.
func DDSToPNG(ctx context.Context, b Backend, path string, opts Options) (Result, error) {
	detected, idErr := b.Identify(ctx, path)
	if idErr != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		detected = dxt.Default
	}
	mode := dxt.Output(detected)
	res := Result{
		Output:      naming.PNGName(path, mode),
		Mode:        mode,
		Detected:    detected,
		IdentifyErr: idErr,
	}
	return res, run(res.Output, opts, func() error {
		return b.ToPNG(ctx, path, res.Output)
	})
}

// PNGToDDS converts one PNG file back to DDS, taking the compression mode
// and DDS name from the PNG name. Names without a compression suffix are
// written as "<stem>.dds" with dxt.Default.
func PNGToDDS(ctx context.Context, b Backend, path string, opts Options) (Result, error) {
	out, mode, ok := naming.ParsePNGName(path)
	res := Result{Output: out, Mode: mode, NameFallback: !ok}
	return res, run(out, opts, func() error {
		return b.ToDDS(ctx, path, out, mode)
	})
}

// run guards out against accidental overwrite, executes convert, and removes
// a partial output when it fails. An output that was already present before
// the attempt (only possible with Force) is never removed.
func run(out string, opts Options, convert func() error) error {
	_, err := os.Lstat(out)
	existed := err == nil
	if existed && !opts.Force {
		return fmt.Errorf("%w: %s", ErrOutputExists, out)
	}
	if opts.DryRun {
		return nil
	}
	if err := convert(); err != nil {
		if !existed {
			_ = os.Remove(out)
		}
		return err
	}
	return nil
}
