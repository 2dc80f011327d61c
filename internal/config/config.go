// Package config holds runtime configuration: defaults, CLI flag parsing, and
// validation. Defaults match the original batch tool (six workers, DXT5
// fallback, flatten of .png files).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// --- Enum types for validated string fields ---

// Command selects the batch operation.
type Command string

const (
	CmdToPNG   Command = "to-png"  // DDS -> PNG, compression encoded in the name.
	CmdFlatten Command = "flatten" // Move matching files to the root.
	CmdRestore Command = "restore" // Rebuild the tree from encoded names.
	CmdToDDS   Command = "to-dds"  // PNG -> DDS, compression decoded from the name.
	CmdAnalyze Command = "analyze" // Report DDS files and their compression.
)

// Commands lists the subcommands in help order.
var Commands = []Command{CmdToPNG, CmdFlatten, CmdRestore, CmdToDDS, CmdAnalyze}

// Backend selects the conversion implementation.
type Backend string

const (
	BackendMagick Backend = "magick" // External ImageMagick (default).
	BackendNative Backend = "native" // In-process BCn codec.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Worker bounds.
const (
	DefaultWorkers = 6
	MaxWorkers     = 64
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by [ParseFlags] before being passed (by pointer) to packages
// that need it.
type Config struct {
	// Operation (set from positional args).
	Command Command
	Dir     string

	// Conversion.
	Workers       int     // Default: 6.
	Backend       Backend // Default: "magick".
	MagickBin     string  // Default: "magick". Name on PATH or absolute path.
	Mipmaps       int     // Mip levels on DDS output; 0 = converter default.
	DecodeWorkers int     // Native backend only; 0 = library default.

	// Layout.
	FlattenExt string // Default: ".png". Always lowercase with leading dot.
	NoIndex    bool   // Do not read or write the restore index.

	// Source cleanup after a batch.
	Keep         bool   // Never delete sources.
	DeleteFailed bool   // Delete every source, failed ones included.
	Quarantine   string // Move failed sources here (layout preserved).

	// Behavior flags.
	Force  bool // Overwrite existing outputs.
	DryRun bool

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
	CheckOnly bool      // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with all defaults. Used as the base before
// [ParseFlags] applies CLI overrides.
func DefaultConfig() Config {
	return Config{
		Workers:    DefaultWorkers,
		Backend:    BackendMagick,
		MagickBin:  "magick",
		FlattenExt: ".png",
		ColorMode:  ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// NormalizeExt lowercases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Validate checks enum fields and value ranges. When not in CheckOnly mode,
// it also requires a known command and a directory.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMagick, BackendNative:
		// valid
	default:
		return errors.New("invalid backend (use 'magick' or 'native')")
	}

	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d (got %d)", MaxWorkers, c.Workers)
	}
	if c.Mipmaps < 0 {
		return fmt.Errorf("mipmaps must not be negative (got %d)", c.Mipmaps)
	}
	if c.DecodeWorkers < 0 {
		return fmt.Errorf("decode workers must not be negative (got %d)", c.DecodeWorkers)
	}
	if c.Backend == BackendMagick && strings.TrimSpace(c.MagickBin) == "" {
		return errors.New("magick binary must not be empty")
	}

	c.FlattenExt = NormalizeExt(c.FlattenExt)
	if len(c.FlattenExt) < 2 {
		return errors.New("flatten extension must not be empty")
	}

	if c.Keep && c.DeleteFailed {
		return errors.New("--keep and --delete-failed are mutually exclusive")
	}
	if c.Keep && c.Quarantine != "" {
		return errors.New("--keep and --quarantine are mutually exclusive")
	}
	if c.DeleteFailed && c.Quarantine != "" {
		return errors.New("--delete-failed and --quarantine are mutually exclusive")
	}

	if c.CheckOnly {
		return nil
	}
	if !c.Command.Valid() {
		return fmt.Errorf("unknown command %q (use %s)", c.Command, commandList())
	}
	if c.Dir == "" {
		return errors.New("need exactly one directory")
	}
	return nil
}

// Valid reports whether cmd is a known subcommand.
func (cmd Command) Valid() bool {
	for _, known := range Commands {
		if cmd == known {
			return true
		}
	}
	return false
}

// Converts reports whether cmd runs the conversion pipeline.
func (cmd Command) Converts() bool {
	return cmd == CmdToPNG || cmd == CmdToDDS
}

func commandList() string {
	names := make([]string, len(Commands))
	for i, c := range Commands {
		names[i] = string(c)
	}
	return strings.Join(names, " | ")
}

// ValidatePaths ensures the resolved quarantine directory is neither the
// batch directory nor inside it, so quarantined sources are not rediscovered
// by the next run. Both arguments must be absolute, symlink-resolved paths.
func (c *Config) ValidatePaths(dirAbs, quarantineAbs string) error {
	sep := string(filepath.Separator)
	if quarantineAbs == dirAbs || strings.HasPrefix(quarantineAbs+sep, dirAbs+sep) {
		return errors.New("quarantine directory must not be inside the batch directory")
	}
	return nil
}
