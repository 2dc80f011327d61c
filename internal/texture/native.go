package texture

import (
	"context"
	"fmt"

	"github.com/backmassage/texmaster/internal/dxt"
)

// Native converts in-process with the BCn codec.
type Native struct {
	Mipmaps       int // Cap on generated mip levels; 0 = full chain.
	DecodeWorkers int // BCn decoder parallelism; 0 = library default.
}

// Name identifies the backend in logs.
func (n *Native) Name() string { return "native" }

// Identify reads the compression mode from the DDS header. Non-DXT files
// return dxt.Default with an ErrUnsupportedFormat error.
func (n *Native) Identify(ctx context.Context, path string) (dxt.Mode, error) {
	if err := ctx.Err(); err != nil {
		return dxt.Default, err
	}
	info, err := Probe(path)
	if err != nil {
		return dxt.Default, err
	}
	if !info.IsDXT {
		return dxt.Default, fmt.Errorf("%w: %s in %q", ErrUnsupportedFormat, info.Label, path)
	}
	return info.Mode, nil
}

// ToPNG decodes src (DDS) and writes dst (PNG).
func (n *Native) ToPNG(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, _, err := DecodeFile(src, n.DecodeWorkers)
	if err != nil {
		return err
	}
	return WritePNG(dst, img)
}

// ToDDS reads src (PNG) and writes dst (DDS) compressed with mode.
func (n *Native) ToDDS(ctx context.Context, src, dst string, mode dxt.Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := ReadPNG(src)
	if err != nil {
		return err
	}
	return EncodeFile(img, dst, mode, n.Mipmaps)
}
