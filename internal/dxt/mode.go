// Package dxt defines the block-compression modes carried through a
// DDS -> PNG -> DDS round trip and the downgrade policy applied on output.
package dxt

import "strings"

// Mode is a DDS block-compression variant.
type Mode string

const (
	DXT1 Mode = "dxt1" // BC1, 1-bit alpha.
	DXT3 Mode = "dxt3" // BC2, explicit 4-bit alpha.
	DXT5 Mode = "dxt5" // BC3, interpolated alpha.
)

// Default is used whenever the mode of a file cannot be determined.
const Default = DXT5

// Modes lists every known mode in a stable order.
var Modes = []Mode{DXT1, DXT3, DXT5}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case DXT1, DXT3, DXT5:
		return true
	}
	return false
}

func (m Mode) String() string { return string(m) }

// ParseMode matches a free-form compression descriptor (e.g. "DXT1",
// "Dxt5 (BC3)") case-insensitively. Anything unrecognised yields Default.
func ParseMode(s string) Mode {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "dxt1"):
		return DXT1
	case strings.Contains(lower, "dxt3"):
		return DXT3
	case strings.Contains(lower, "dxt5"):
		return DXT5
	default:
		return Default
	}
}

// Output returns the mode a texture is written back as. DXT3 is never
// round-tripped; it is promoted to DXT5.
func Output(m Mode) Mode {
	switch m {
	case DXT1:
		return DXT1
	case DXT3, DXT5:
		return DXT5
	default:
		return Default
	}
}

// FromFourCC maps a DDS pixel-format FourCC to a mode. The second return
// value is false for non-DXT formats.
func FromFourCC(fourCC string) (Mode, bool) {
	switch strings.ToUpper(fourCC) {
	case "DXT1":
		return DXT1, true
	case "DXT2", "DXT3":
		return DXT3, true
	case "DXT4", "DXT5":
		return DXT5, true
	}
	return Default, false
}

// FromDXGI maps a DXGI_FORMAT value from a DX10 extended header. Both the
// typeless, UNORM and sRGB variants of BC1-BC3 are accepted.
func FromDXGI(format uint32) (Mode, bool) {
	switch format {
	case 70, 71, 72:
		return DXT1, true
	case 73, 74, 75:
		return DXT3, true
	case 76, 77, 78:
		return DXT5, true
	}
	return Default, false
}
