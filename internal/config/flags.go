package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into conversion, layout, cleanup, display, and utility.
// Negated flags (e.g. --no-index) are applied after Parse so Config defaults hold unless set.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// version is shown in --version and help; main passes its -ldflags value through ParseFlags.
var version = "1.0.0-dev"

// Version returns the build version string.
func Version() string { return version }

// ErrHelp and ErrVersion are returned by [ParseArgs] when the user asked for
// help or version output; [ParseFlags] prints and exits on them.
var (
	ErrHelp    = errors.New("help requested")
	ErrVersion = errors.New("version requested")
)

// ParseFlags parses os.Args into cfg. ver, when non-empty, replaces the
// version shown by --version and help. On --help or --version it prints and
// exits. On error it returns non-nil (e.g. unknown flag, missing positional args).
func ParseFlags(cfg *Config, ver string) error {
	if ver != "" {
		version = ver
	}
	err := ParseArgs(cfg, os.Args[1:])
	switch {
	case errors.Is(err, ErrHelp):
		printUsage(os.Stderr)
		os.Exit(0)
	case errors.Is(err, ErrVersion):
		fmt.Fprintln(os.Stdout, "texmaster v"+version)
		os.Exit(0)
	}
	return err
}

// ParseArgs parses args (without the program name) into cfg. Options may
// appear before or after the command word:
//
//	texmaster -w 4 to-png ./textures
//	texmaster to-png --keep ./textures
func ParseArgs(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("texmaster", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Negated/override flags: we capture bools then apply to cfg after Parse,
	// so that defaults from DefaultConfig() hold unless the user passes the flag.
	var negated negatedFlags

	defineConversionFlags(fs, cfg)
	defineLayoutFlags(fs, cfg, &negated)
	defineCleanupFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, &negated)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrHelp
		}
		return err
	}
	rest := fs.Args()
	// Second pass: flags between the command and the directory.
	if len(rest) > 0 {
		if err := fs.Parse(rest[1:]); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return ErrHelp
			}
			return err
		}
		rest = append([]string{rest[0]}, fs.Args()...)
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		return ErrHelp
	}
	if negated.showVersion {
		return ErrVersion
	}
	return parsePositionalArgs(rest, cfg)
}

// negatedFlags holds boolean flags that are applied after Parse.
// These either invert a default (e.g. noIndex) or trigger exit (showHelp, showVersion).
type negatedFlags struct {
	native      bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineConversionFlags registers -w/--workers, -b/--backend, --magick, --mipmaps, --decode-workers, -f/--force.
func defineConversionFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent conversions")
	fs.IntVar(&cfg.Workers, "w", cfg.Workers, "Same as --workers")
	fs.Var(&backendValue{&cfg.Backend}, "backend", "Converter: magick | native")
	fs.Var(&backendValue{&cfg.Backend}, "b", "Same as --backend")
	fs.StringVar(&cfg.MagickBin, "magick", cfg.MagickBin, "ImageMagick binary")
	fs.IntVar(&cfg.Mipmaps, "mipmaps", cfg.Mipmaps, "Mip levels written to DDS (0 = converter default)")
	fs.IntVar(&cfg.DecodeWorkers, "decode-workers", cfg.DecodeWorkers, "Native decoder parallelism per file")
	fs.BoolVar(&cfg.Force, "force", false, "Overwrite existing output files")
	fs.BoolVar(&cfg.Force, "f", false, "Same as --force")
}

// defineLayoutFlags registers --ext, --no-index, --native (shorthand for --backend native).
func defineLayoutFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.StringVar(&cfg.FlattenExt, "ext", cfg.FlattenExt, "Extension moved by flatten")
	fs.BoolVar(&cfg.NoIndex, "no-index", false, "Do not read or write the restore index")
	fs.BoolVar(&n.native, "native", false, "Same as --backend native")
}

// defineCleanupFlags registers --keep, --delete-failed, --quarantine, -d/--dry-run.
func defineCleanupFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.Keep, "keep", false, "Keep all source files after conversion")
	fs.BoolVar(&cfg.Keep, "k", false, "Same as --keep")
	fs.BoolVar(&cfg.DeleteFailed, "delete-failed", false, "Delete sources even when their conversion failed")
	fs.StringVar(&cfg.Quarantine, "quarantine", "", "Move failed sources to this directory")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Preview only; do not convert, move or delete")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
}

// defineDisplayFlags registers --color, --no-color, verbose, --check, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.Var(&colorValue{&cfg.ColorMode}, "color", "Colors: auto | always | never")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", "", "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
}

// defineUtilityFlags registers --version and --help.
func defineUtilityFlags(fs *flag.FlagSet, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated and override flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.native {
		cfg.Backend = BackendNative
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	}
}

// parsePositionalArgs sets Command and Dir when not in CheckOnly mode.
func parsePositionalArgs(args []string, cfg *Config) error {
	if cfg.CheckOnly {
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("missing command (use %s)", commandList())
	}
	cfg.Command = Command(strings.ToLower(args[0]))
	if !cfg.Command.Valid() {
		return fmt.Errorf("unknown command %q (use %s)", args[0], commandList())
	}
	if len(args) != 2 {
		return fmt.Errorf("%s: need exactly one directory", cfg.Command)
	}
	cfg.Dir = NormalizeDirArg(args[1])
	return nil
}

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) { printUsage(w) }

// printUsage writes the help text. Column-aligned for readability.
func printUsage(w io.Writer) {
	const col1 = 30 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "texmaster v" + version + ": DDS <-> PNG batch converter"},
		{"", ""},
		{"  texmaster [OPTIONS] <command> <dir>", ""},
		{"", ""},
		{"Commands", ""},
		{"  to-png", "Convert every .dds under <dir> to PNG"},
		{"  flatten", "Move nested files to <dir>, path encoded in the name"},
		{"  restore", "Move flattened files back into their folders"},
		{"  to-dds", "Convert every .png under <dir> back to DDS"},
		{"  analyze", "List .dds files with their compression"},
		{"", ""},
		{"Conversion", ""},
		{"  -w, --workers <n>", "Concurrent conversions (default: 6)"},
		{"  -b, --backend <magick|native>", "Converter (default: magick)"},
		{"  --native", "Same as --backend native"},
		{"  --magick <path>", "ImageMagick binary (default: magick)"},
		{"  --mipmaps <n>", "Mip levels written to DDS (default: converter)"},
		{"  --decode-workers <n>", "Native decoder parallelism per file"},
		{"  -f, --force", "Overwrite existing output files"},
		{"", ""},
		{"Layout", ""},
		{"  --ext <.ext>", "Extension moved by flatten (default: .png)"},
		{"  --no-index", "Do not read or write the restore index"},
		{"", ""},
		{"Cleanup", ""},
		{"  -k, --keep", "Keep all source files"},
		{"  --quarantine <dir>", "Move failed sources to <dir>"},
		{"  --delete-failed", "Delete failed sources too (data loss!)"},
		{"  -d, --dry-run", "Preview only; change nothing"},
		{"", ""},
		{"Display", ""},
		{"  --color <auto|always|never>", "Colored logs (default: auto)"},
		{"  --no-color", "Same as --color never"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "System diagnostics (ImageMagick, DDS coder)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapters so we can use enum types with flag.Var.

type backendValue struct{ p *Backend }

func (b *backendValue) String() string {
	if b.p == nil {
		return ""
	}
	return string(*b.p)
}

func (b *backendValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "magick", "imagemagick":
		*b.p = BackendMagick
	case "native", "bcn":
		*b.p = BackendNative
	default:
		return fmt.Errorf("invalid backend %q (use 'magick' or 'native')", s)
	}
	return nil
}

type colorValue struct{ p *ColorMode }

func (c *colorValue) String() string {
	if c.p == nil {
		return ""
	}
	return string(*c.p)
}

func (c *colorValue) Set(s string) error {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorAlways, ColorNever:
		*c.p = m
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}
