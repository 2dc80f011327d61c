package magick

import (
	"context"
	"errors"
	"io/fs"
	"os/exec"

	"github.com/backmassage/texmaster/internal/dxt"
)

// DefaultBinary is the ImageMagick 7 entry point.
const DefaultBinary = "magick"

// Magick converts through the external ImageMagick binary.
type Magick struct {
	Bin     string // Defaults to DefaultBinary when empty.
	Mipmaps int    // dds:mipmaps for PNG -> DDS; 0 = tool default.
	Tee     bool   // Copy tool stderr to os.Stderr.
}

// Name identifies the backend in logs.
func (m *Magick) Name() string { return "magick" }

func (m *Magick) bin() string {
	if m.Bin == "" {
		return DefaultBinary
	}
	return m.Bin
}

// Identify reports the block compression of a DDS file. On failure the
// returned mode is dxt.Default alongside the error, so callers may log and
// continue.
func (m *Magick) Identify(ctx context.Context, path string) (dxt.Mode, error) {
	res := Execute(ctx, m.bin(), IdentifyArgs(path), false)
	if res.Err != nil {
		return dxt.Default, m.wrap("identify", path, res)
	}
	mode, _ := ParseIdentify(res.Stdout)
	return mode, nil
}

// ToPNG decodes src (DDS) into dst (PNG).
func (m *Magick) ToPNG(ctx context.Context, src, dst string) error {
	res := Execute(ctx, m.bin(), ToPNGArgs(src, dst), m.Tee)
	if res.Err != nil {
		return m.wrap("to-png", src, res)
	}
	return nil
}

// ToDDS encodes src (PNG) into dst (DDS) with the given compression.
func (m *Magick) ToDDS(ctx context.Context, src, dst string, mode dxt.Mode) error {
	res := Execute(ctx, m.bin(), ToDDSArgs(src, dst, mode, m.Mipmaps), m.Tee)
	if res.Err != nil {
		return m.wrap("to-dds", src, res)
	}
	return nil
}

func (m *Magick) wrap(op, path string, res ExecResult) error {
	if errors.Is(res.Err, exec.ErrNotFound) || errors.Is(res.Err, fs.ErrNotExist) {
		return &ToolError{Op: op, Path: path, Kind: FailUnknown, Err: ErrNotFound}
	}
	return &ToolError{
		Op:     op,
		Path:   path,
		Kind:   Classify(res.Stderr),
		Stderr: res.Stderr,
		Err:    res.Err,
	}
}
