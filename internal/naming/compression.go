package naming

import (
	"path/filepath"
	"strings"

	"github.com/backmassage/texmaster/internal/dxt"
)

const compressionSuffix = "_compression"

// PNGName returns the PNG path for a DDS source, embedding the compression
// mode: "tex/wall.dds" + dxt5 -> "tex/wall_dxt5_compression.png".
func PNGName(ddsPath string, mode dxt.Mode) string {
	stem := strings.TrimSuffix(ddsPath, filepath.Ext(ddsPath))
	return stem + "_" + string(mode) + compressionSuffix + ".png"
}

// ParsePNGName reverses [PNGName]. Only the basename is inspected; the
// directory part is returned untouched. When the suffix is missing or names
// an unknown mode, ok is false, mode is [dxt.Default], and the DDS name is
// the PNG stem.
func ParsePNGName(pngPath string) (ddsPath string, mode dxt.Mode, ok bool) {
	dir, base := filepath.Split(pngPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if rest, found := strings.CutSuffix(stem, compressionSuffix); found {
		if i := strings.LastIndex(rest, "_"); i > 0 {
			m := dxt.Mode(strings.ToLower(rest[i+1:]))
			if m.Valid() {
				return dir + rest[:i] + ".dds", m, true
			}
		}
	}
	return dir + stem + ".dds", dxt.Default, false
}
