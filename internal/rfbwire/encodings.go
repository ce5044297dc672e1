package rfbwire

import "io"

// Encoding identifies the wire format of a rectangle's pixel payload, or
// (when negative and not one of the real encodings below) a
// pseudo-encoding preference.
type Encoding int32

const (
	EncRaw                 Encoding = 0
	EncTight               Encoding = 7
	EncCursor              Encoding = -239
	EncDesktopSize         Encoding = -223
	EncExtendedDesktopSize Encoding = -308
	EncLastRect            Encoding = -224
	EncContinuousUpdates   Encoding = -313
	EncFence               Encoding = -312
)

// JPEGQualityEncoding returns the pseudo-encoding code for a JPEG
// quality level 0..100, landing in the -512..-412 range.
func JPEGQualityEncoding(quality int) Encoding {
	return Encoding(-512 + quality)
}

// Chroma subsampling pseudo-encodings.
const (
	SubsampleNone Encoding = -768
	Subsample2X   Encoding = -766
	Subsample4X   Encoding = -767
)

// CompressionLevelEncoding returns the pseudo-encoding code for zlib
// compression level 1..9.
func CompressionLevelEncoding(level int) Encoding {
	return Encoding(-256 + level)
}

// Quality is one of the encoding-quality presets a session can request.
type Quality int

const (
	LossyHigh Quality = iota
	LossyMedium
	LossyMediumInterframe
	LossyLow
	Lossless
)

// QualityParams bundles the JPEG quality, chroma subsampling, and zlib
// compression level a preset asks the server to use.
type QualityParams struct {
	JPEGQuality int // -1 means "no JPEG pseudo-encodings" (Lossless)
	Subsample   Encoding
	Compression int
	Interframe  bool
}

func (q Quality) Params() QualityParams {
	switch q {
	case LossyHigh:
		return QualityParams{JPEGQuality: 95, Subsample: SubsampleNone, Compression: 1}
	case LossyMedium:
		return QualityParams{JPEGQuality: 80, Subsample: Subsample2X, Compression: 1}
	case LossyMediumInterframe:
		return QualityParams{JPEGQuality: 80, Subsample: Subsample2X, Compression: 6, Interframe: true}
	case LossyLow:
		return QualityParams{JPEGQuality: 30, Subsample: Subsample4X, Compression: 7}
	case Lossless:
		return QualityParams{JPEGQuality: -1, Compression: 6}
	default:
		return QualityParams{JPEGQuality: -1, Compression: 6}
	}
}

func (q Quality) String() string {
	switch q {
	case LossyHigh:
		return "lossy-high"
	case LossyMedium:
		return "lossy-medium"
	case LossyMediumInterframe:
		return "lossy-medium-interframe"
	case LossyLow:
		return "lossy-low"
	case Lossless:
		return "lossless"
	default:
		return "unknown"
	}
}

// BaseEncodings is the fixed list of real/pseudo encodings sent in every
// SetEncodings message, before the quality-dependent pseudo-encodings
// are appended.
var BaseEncodings = []Encoding{
	EncTight,
	EncRaw,
	EncCursor,
	EncExtendedDesktopSize,
	EncLastRect,
	EncContinuousUpdates,
	EncFence,
}

// Rectangle is a framebuffer-update rectangle header. The payload itself
// is read by the session according to Encoding and is not part of this
// header type.
type Rectangle struct {
	X, Y, Width, Height uint16
	Encoding            Encoding
}

func ReadRectangleHeader(cr *CountingReader) (Rectangle, error) {
	var r Rectangle
	var err error
	if r.X, err = readUint16(cr, "Rectangle.x"); err != nil {
		return r, err
	}
	if r.Y, err = readUint16(cr, "Rectangle.y"); err != nil {
		return r, err
	}
	if r.Width, err = readUint16(cr, "Rectangle.width"); err != nil {
		return r, err
	}
	if r.Height, err = readUint16(cr, "Rectangle.height"); err != nil {
		return r, err
	}
	enc, err := readInt32(cr, "Rectangle.encoding")
	if err != nil {
		return r, err
	}
	r.Encoding = Encoding(enc)
	return r, nil
}

func (r Rectangle) Write(w io.Writer) error {
	if err := writeUint16(w, r.X); err != nil {
		return err
	}
	if err := writeUint16(w, r.Y); err != nil {
		return err
	}
	if err := writeUint16(w, r.Width); err != nil {
		return err
	}
	if err := writeUint16(w, r.Height); err != nil {
		return err
	}
	return writeInt32(w, int32(r.Encoding))
}

func (r Rectangle) Area() int { return int(r.Width) * int(r.Height) }
