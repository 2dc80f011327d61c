package texture

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"github.com/woozymasta/bcn"

	"github.com/backmassage/texmaster/internal/dxt"
)

// Info describes a DDS file without decoding its pixels.
type Info struct {
	Width   int
	Height  int
	MipMaps int
	Label   string   // FourCC or "DXGI n".
	Mode    dxt.Mode // dxt.Default when IsDXT is false.
	IsDXT   bool
}

// Probe reads the DDS header of path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = f.Close() }()

	header, dx10, err := readHeaders(f)
	if err != nil {
		return Info{}, fmt.Errorf("%q: %w", path, err)
	}
	return infoFromHeader(header, dx10), nil
}

func infoFromHeader(header *bcn.DDSHeader, dx10 *bcn.DDSHeaderDX10) Info {
	info := Info{
		Width:   int(header.Width),
		Height:  int(header.Height),
		MipMaps: 1,
		Mode:    dxt.Default,
	}
	if (header.Caps&bcn.DDSCapsMipmap) != 0 && header.MipMapCount > 0 {
		info.MipMaps = int(header.MipMapCount)
	}

	switch {
	case dx10 != nil:
		info.Label = fmt.Sprintf("DXGI %d", dx10.DXGIFormat)
		info.Mode, info.IsDXT = dxt.FromDXGI(dx10.DXGIFormat)
	case (header.PixelFormat.Flags & bcn.DDSPFFourCC) != 0:
		info.Label = fourCCString(header.PixelFormat.FourCC)
		info.Mode, info.IsDXT = dxt.FromFourCC(info.Label)
	default:
		info.Label = "uncompressed"
	}
	return info
}

// DecodeFile decodes the top mip level of a DXT-compressed DDS file.
// workers > 0 bounds the BCn decoder's internal parallelism.
func DecodeFile(path string, workers int) (image.Image, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, err
	}
	defer func() { _ = f.Close() }()

	header, dx10, err := readHeaders(f)
	if err != nil {
		return nil, Info{}, fmt.Errorf("%q: %w", path, err)
	}
	info := infoFromHeader(header, dx10)
	if !info.IsDXT {
		return nil, info, fmt.Errorf("%w: %s in %q", ErrUnsupportedFormat, info.Label, path)
	}

	want, err := payloadLength(info.Mode, info.Width, info.Height)
	if err != nil {
		return nil, info, fmt.Errorf("%q: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, info, err
	}
	if remaining := fi.Size() - headersLength(dx10); want > remaining {
		return nil, info, fmt.Errorf("%w: %q: header wants %d bytes, %d present", ErrReadPayload, path, want, max(remaining, 0))
	}

	format := bcnFormat(info.Mode)
	data := make([]byte, want)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, info, fmt.Errorf("%w: %q: %v", ErrReadPayload, path, err)
	}

	var opts *bcn.DecodeOptions
	if workers > 0 {
		opts = &bcn.DecodeOptions{Workers: workers}
	}
	img, err := bcn.DecodeImageWithOptions(data, info.Width, info.Height, format, opts)
	if err != nil {
		return nil, info, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}
	return img, info, nil
}

// EncodeFile writes img to path as a DDS file compressed with mode.
// maxMipMaps > 0 caps the mip chain; 0 writes the full chain.
func EncodeFile(img image.Image, path string, mode dxt.Mode, maxMipMaps int) error {
	src := toNRGBA(img)
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	format := bcnFormat(mode)

	count := mipMapCount(width, height)
	if maxMipMaps > 0 && maxMipMaps < count {
		count = maxMipMaps
	}

	mips := bcn.GenerateMipmaps(src, false)
	if len(mips) > count {
		mips = mips[:count]
	}

	payloads := make([][]byte, len(mips))
	for i, mip := range mips {
		data, _, _, err := bcn.EncodeImageWithOptions(mip, format, nil)
		if err != nil {
			return fmt.Errorf("%w: mipmap %d: %v", ErrEncodeMipmap, i, err)
		}
		payloads[i] = data
	}

	header, err := makeHeader(width, height, len(payloads), mode)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeDDS(f, header, payloads); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func writeDDS(w io.Writer, header *bcn.DDSHeader, payloads [][]byte) error {
	if err := bcn.WriteDDSMagic(w); err != nil {
		return fmt.Errorf("writing DDS magic: %w", err)
	}
	if err := bcn.WriteDDSHeader(w, header); err != nil {
		return fmt.Errorf("writing DDS header: %w", err)
	}
	for i, p := range payloads {
		if _, err := w.Write(p); err != nil {
			return fmt.Errorf("writing mipmap %d: %w", i, err)
		}
	}
	return nil
}

// readHeaders consumes the DDS magic, header, and optional DX10 header.
func readHeaders(r io.Reader) (*bcn.DDSHeader, *bcn.DDSHeaderDX10, error) {
	header, err := bcn.ReadDDSHeader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDDSHeaderRead, err)
	}
	dx10, err := bcn.ReadDDSHeaderDX10(r, header)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDDSDX10Read, err)
	}
	return header, dx10, nil
}

func makeHeader(width, height, mipMapCount int, mode dxt.Mode) (*bcn.DDSHeader, error) {
	if width <= 0 || height <= 0 || uint64(width) > uint64(^uint32(0)) || uint64(height) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %dx%d", ErrSizeOverflow, width, height)
	}

	flags := uint32(bcn.DDSFlagCaps | bcn.DDSFlagHeight | bcn.DDSFlagWidth | bcn.DDSFlagPixelFormat | bcn.DDSFlagLinearSize)
	caps := uint32(bcn.DDSCapsTexture)
	if mipMapCount > 1 {
		flags |= bcn.DDSFlagMipmapCount
		caps |= bcn.DDSCapsComplex | bcn.DDSCapsMipmap
	}

	hdr := &bcn.DDSHeader{
		Size:              bcn.DDSHeaderSize,
		Flags:             flags,
		Height:            uint32(height),
		Width:             uint32(width),
		PitchOrLinearSize: uint32(blockDataLength(mode, width, height)),
		Depth:             1,
		MipMapCount:       uint32(mipMapCount),
		Caps:              caps,
	}
	hdr.PixelFormat.Size = bcn.DDSPixelFormatSize
	hdr.PixelFormat.Flags = bcn.DDSPFFourCC
	hdr.PixelFormat.FourCC = makeFourCC(mode)
	return hdr, nil
}

func bcnFormat(mode dxt.Mode) bcn.Format {
	switch mode {
	case dxt.DXT1:
		return bcn.FormatDXT1
	case dxt.DXT3:
		return bcn.FormatDXT3
	default:
		return bcn.FormatDXT5
	}
}

func makeFourCC(mode dxt.Mode) uint32 {
	var d byte = '5'
	switch mode {
	case dxt.DXT1:
		d = '1'
	case dxt.DXT3:
		d = '3'
	}
	return uint32('D') | uint32('X')<<8 | uint32('T')<<16 | uint32(d)<<24
}

func fourCCString(value uint32) string {
	return string([]byte{
		byte(value & 0xff),
		byte((value >> 8) & 0xff),
		byte((value >> 16) & 0xff),
		byte((value >> 24) & 0xff),
	})
}

// blockDataLength is the byte size of one mip level: 4x4 blocks of 8 bytes
// (DXT1) or 16 bytes (DXT3/DXT5).
func blockDataLength(mode dxt.Mode, width, height int) int {
	blocks := ((width + 3) / 4) * ((height + 3) / 4)
	if mode == dxt.DXT1 {
		return blocks * 8
	}
	return blocks * 16
}

// payloadLength is blockDataLength for dimensions taken from an untrusted
// header: zero sizes and products that overflow are rejected.
func payloadLength(mode dxt.Mode, width, height int) (int64, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrSizeOverflow, width, height)
	}
	blockSize := int64(16)
	if mode == dxt.DXT1 {
		blockSize = 8
	}
	bw, bh := int64((width-1)/4+1), int64((height-1)/4+1)
	if bh > math.MaxInt64/blockSize/bw {
		return 0, fmt.Errorf("%w: %dx%d", ErrSizeOverflow, width, height)
	}
	return bw * bh * blockSize, nil
}

// headersLength is the byte offset of the first mip payload.
func headersLength(dx10 *bcn.DDSHeaderDX10) int64 {
	n := int64(4 + 124) // magic + header
	if dx10 != nil {
		n += 20
	}
	return n
}

// mipMapCount is the length of the full chain down to 1x1.
func mipMapCount(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width = max(width/2, 1)
		height = max(height/2, 1)
		n++
	}
	return n
}
