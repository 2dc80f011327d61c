// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation (CheckDeps) for the conversion backends.
package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backmassage/texmaster/internal/config"
	"github.com/backmassage/texmaster/internal/magick"
)

// Sentinel errors returned by CheckDeps when a required tool or coder is missing.
var (
	ErrMagickNotFound = errors.New("imagemagick not found (install it or use --backend native)")
	ErrNoDDSCoder     = errors.New("imagemagick build has no DDS coder")
	ErrDDSReadOnly    = errors.New("imagemagick DDS coder cannot write (to-dds unavailable)")
)

// probeTimeout bounds each diagnostic subprocess.
const probeTimeout = 10 * time.Second

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck runs the interactive --check flow: prints the ImageMagick version
// and DDS coder availability, and notes that the native backend is always
// available. Informational only; it does not stop on failure.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	m := &magick.Magick{Bin: cfg.MagickBin}
	checkVersion(ctx, log, m)
	checkDDSCoder(ctx, log, m)
	checkPNGCoder(ctx, log, m)
	log.Success("native backend: built in (DXT1/DXT3/DXT5)")
	log.Info("Selected backend: %s, %d workers", cfg.Backend, cfg.Workers)
}

// checkVersion logs the first line of `magick -version`.
func checkVersion(ctx context.Context, log Logger, m *magick.Magick) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	v, err := m.Version(ctx)
	if err != nil {
		if errors.Is(err, magick.ErrNotFound) {
			log.Error("%s not found", m.Bin)
		} else {
			log.Warn("%s found but -version failed: %v", m.Bin, err)
		}
		return
	}
	log.Success("imagemagick: %s", v)
}

// checkDDSCoder reports whether the build can read and write DDS.
func checkDDSCoder(ctx context.Context, log Logger, m *magick.Magick) {
	c, err := coder(ctx, m, "DDS")
	switch {
	case err != nil:
		log.Warn("Could not list formats: %v", err)
	case c.Read && c.Write:
		log.Success("DDS coder: read/write")
	case c.Read:
		log.Warn("DDS coder: read only (to-dds will fail)")
	default:
		log.Error("DDS coder: missing")
	}
}

// checkPNGCoder reports whether the build can read and write PNG.
func checkPNGCoder(ctx context.Context, log Logger, m *magick.Magick) {
	c, err := coder(ctx, m, "PNG")
	switch {
	case err != nil:
		// Already reported by checkDDSCoder.
	case c.Read && c.Write:
		log.Success("PNG coder: read/write")
	default:
		log.Error("PNG coder: missing or incomplete")
	}
}

// CheckDeps is the pre-pipeline validation. The native backend has no
// external dependency; the magick backend needs the binary and a DDS coder
// that can write, since both directions go through it. Returns a sentinel
// error on failure.
func CheckDeps(ctx context.Context, cfg *config.Config) error {
	if cfg.Backend == config.BackendNative {
		return nil
	}
	m := &magick.Magick{Bin: cfg.MagickBin}
	c, err := coder(ctx, m, "DDS")
	if err != nil {
		if errors.Is(err, magick.ErrNotFound) {
			return ErrMagickNotFound
		}
		return fmt.Errorf("listing imagemagick formats: %w", err)
	}
	if !c.Read {
		return ErrNoDDSCoder
	}
	if !c.Write && cfg.Command == config.CmdToDDS {
		return ErrDDSReadOnly
	}
	return nil
}

// coder wraps magick.Coder with a timeout and folds "not listed" into a
// zero Coder.
func coder(ctx context.Context, m *magick.Magick, name string) (magick.Coder, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	c, _, err := m.Coder(ctx, name)
	return c, err
}
