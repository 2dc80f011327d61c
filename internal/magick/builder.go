package magick

import (
	"strconv"

	"github.com/backmassage/texmaster/internal/dxt"
)

// IdentifyArgs returns the arguments for a verbose identify of path.
func IdentifyArgs(path string) []string {
	return []string{"identify", "-verbose", path}
}

// ToPNGArgs returns the arguments for decoding a DDS file to PNG.
func ToPNGArgs(src, dst string) []string {
	return []string{"convert", src, dst}
}

// ToDDSArgs returns the arguments for encoding a PNG as DDS with the given
// block compression. mipmaps > 0 caps the generated mip chain; 0 leaves
// the tool default (full chain).
func ToDDSArgs(src, dst string, mode dxt.Mode, mipmaps int) []string {
	args := []string{"convert", src, "-define", "dds:compression=" + string(mode)}
	if mipmaps > 0 {
		args = append(args, "-define", "dds:mipmaps="+strconv.Itoa(mipmaps))
	}
	return append(args, dst)
}
