package texture

import "errors"

var (
	// ErrUnsupportedFormat indicates a DDS payload that is not DXT1/3/5.
	ErrUnsupportedFormat = errors.New("unsupported DDS format")
	// ErrDDSHeaderRead indicates DDS header read failed.
	ErrDDSHeaderRead = errors.New("reading DDS header failed")
	// ErrDDSDX10Read indicates DDS DX10 header read failed.
	ErrDDSDX10Read = errors.New("reading DDS DX10 header failed")
	// ErrReadPayload indicates the top mip payload could not be read.
	ErrReadPayload = errors.New("reading DDS payload failed")
	// ErrDecodeImage indicates block decode failed.
	ErrDecodeImage = errors.New("decode image failed")
	// ErrEncodeMipmap indicates block encode of a mip level failed.
	ErrEncodeMipmap = errors.New("encode mipmap failed")
	// ErrSizeOverflow indicates a dimension exceeds header limits.
	ErrSizeOverflow = errors.New("size overflow")
)
