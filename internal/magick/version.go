package magick

import (
	"context"
	"strings"
)

// Coder describes one entry of `magick -list format`.
type Coder struct {
	Name  string
	Read  bool
	Write bool
}

// Version returns the first line of `magick -version`.
func (m *Magick) Version(ctx context.Context) (string, error) {
	res := Execute(ctx, m.bin(), []string{"-version"}, false)
	if res.Err != nil {
		return "", m.wrap("version", m.bin(), res)
	}
	line := strings.TrimSpace(res.Stdout)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	return line, nil
}

// Coder looks up name in `magick -list format`. ok is false when the build
// does not list the format at all.
func (m *Magick) Coder(ctx context.Context, name string) (c Coder, ok bool, err error) {
	res := Execute(ctx, m.bin(), []string{"-list", "format"}, false)
	if res.Err != nil {
		return Coder{}, false, m.wrap("list-format", m.bin(), res)
	}
	c, ok = ParseCoder(res.Stdout, name)
	return c, ok, nil
}

// ParseCoder finds name in `-list format` output. Rows look like
//
//	DDS* DDS       rw+   Microsoft DirectDraw Surface
//
// where the trailing '*' marks a native blob coder and the mode column holds
// r/w/+ flags.
func ParseCoder(out, name string) (Coder, bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if !strings.EqualFold(strings.TrimSuffix(fields[0], "*"), name) {
			continue
		}
		mode := fields[2]
		return Coder{
			Name:  strings.TrimSuffix(fields[0], "*"),
			Read:  strings.Contains(mode, "r"),
			Write: strings.Contains(mode, "w"),
		}, true
	}
	return Coder{}, false
}
