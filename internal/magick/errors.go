package magick

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotFound is returned when the converter binary is not on PATH.
var ErrNotFound = errors.New("imagemagick binary not found")

// Failure classifies why a tool invocation failed.
type Failure int

const (
	FailUnknown    Failure = iota
	FailNoDelegate         // Build lacks a coder for the format.
	FailUnreadable         // Input missing or not readable.
	FailCorrupt            // Input read but could not be decoded.
	FailWrite              // Output could not be written.
)

func (f Failure) String() string {
	switch f {
	case FailNoDelegate:
		return "format not supported by this ImageMagick build"
	case FailUnreadable:
		return "input not readable"
	case FailCorrupt:
		return "input corrupt or truncated"
	case FailWrite:
		return "output not writable"
	default:
		return "converter failed"
	}
}

// Pre-compiled patterns for ImageMagick's diagnostic lines. Checked in
// order by [Classify]; first match wins.
var (
	reNoDelegate = regexp.MustCompile(
		`(?i)no (decode|encode) delegate for this image format|` +
			`NoDecodeDelegateForThisImageFormat|NoEncodeDelegateForThisImageFormat`)

	reUnreadable = regexp.MustCompile(
		`(?i)unable to open image|No such file or directory|Permission denied`)

	reCorrupt = regexp.MustCompile(
		`(?i)improper image header|corrupt image|unexpected end-of-file|` +
			`insufficient image data|ImproperImageHeader|CorruptImage`)

	reWrite = regexp.MustCompile(
		`(?i)unable to open (image|file) .*for writing|unable to write|WriteBlob`)
)

// Classify maps converter stderr to a Failure category.
func Classify(stderr string) Failure {
	switch {
	case reNoDelegate.MatchString(stderr):
		return FailNoDelegate
	case reWrite.MatchString(stderr):
		return FailWrite
	case reUnreadable.MatchString(stderr):
		return FailUnreadable
	case reCorrupt.MatchString(stderr):
		return FailCorrupt
	default:
		return FailUnknown
	}
}

// ToolError describes a failed converter invocation.
type ToolError struct {
	Op     string // "identify", "to-png", "to-dds"
	Path   string
	Kind   Failure
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("magick %s %q: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	if line := lastLine(e.Stderr); line != "" {
		msg += " (" + line + ")"
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
