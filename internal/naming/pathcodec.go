package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Delimiter joins path components in a flattened filename.
const Delimiter = "__"

// ErrUnsafePath is returned when a decoded name would escape the root it is
// restored into.
var ErrUnsafePath = errors.New("encoded name escapes root")

// EncodeRel flattens a path relative to the flatten root into one filename
// segment. "a/b/x.png" becomes "a__b__x.png".
func EncodeRel(rel string) string {
	rel = filepath.ToSlash(filepath.Clean(rel))
	rel = strings.TrimPrefix(rel, "./")
	return strings.ReplaceAll(rel, "/", Delimiter)
}

// DecodeName splits an encoded name into its directory components and the
// final filename. A name without the delimiter has no directories.
func DecodeName(name string) (dirs []string, file string) {
	parts := strings.Split(name, Delimiter)
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// DecodeRel returns the relative path an encoded name stands for, using the
// host separator. Empty components (from "a____b.png") are dropped; "." and
// ".." components are rejected.
func DecodeRel(name string) (string, error) {
	dirs, file := DecodeName(name)
	if file == "" {
		return "", fmt.Errorf("%w: %q has no filename", ErrUnsafePath, name)
	}
	parts := make([]string, 0, len(dirs)+1)
	for _, d := range append(dirs, file) {
		if d == "" {
			continue
		}
		if d == "." || d == ".." || strings.ContainsAny(d, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
		}
		parts = append(parts, d)
	}
	return filepath.Join(parts...), nil
}

// IsEncoded reports whether name carries at least one delimiter.
func IsEncoded(name string) bool {
	return strings.Contains(name, Delimiter)
}
