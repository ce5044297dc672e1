package rfbwire

import "fmt"

// TightSubMethod is the sub-method named by the upper bits of a Tight
// control byte (see ParseTightControl for the exact bit layout).
type TightSubMethod int

const (
	TightFill TightSubMethod = iota
	TightJpeg
	TightBasicWithFilter
	TightBasicNoFilter
)

// TightFilter is the filter id read after the control byte when the
// sub-method is TightBasicWithFilter.
type TightFilter int

const (
	TightFilterCopy TightFilter = iota
	TightFilterPalette
	TightFilterGradient
)

// TightControl is the decoded form of a Tight rectangle's leading
// control byte.
type TightControl struct {
	ResetStreams [4]bool
	StreamIndex  int
	SubMethod    TightSubMethod
}

// ParseTightControl decodes a Tight control byte: the low nibble is a
// zlib-reset bitmap (bit i resets stream i). With bit 7 clear the
// rectangle is Basic, bit 6 says whether a filter-id byte follows, and
// bits 4-5 name the stream compressed data is read from. With bit 7
// set the whole top nibble discriminates: 1000 is Fill, 1001 is Jpeg,
// anything above is a protocol error.
func ParseTightControl(b uint8) (TightControl, error) {
	var tc TightControl
	for i := 0; i < 4; i++ {
		tc.ResetStreams[i] = b&(1<<uint(i)) != 0
	}
	tc.StreamIndex = int((b >> 4) & 0x03)
	switch {
	case b&0x80 == 0:
		if b&0x40 != 0 {
			tc.SubMethod = TightBasicWithFilter
		} else {
			tc.SubMethod = TightBasicNoFilter
		}
	case b&0xf0 == 0x80:
		tc.SubMethod = TightFill
	case b&0xf0 == 0x90:
		tc.SubMethod = TightJpeg
	default:
		return tc, fmt.Errorf("unrecognized tight control byte %#02x", b)
	}
	return tc, nil
}

// ReadTightControl reads and decodes the control byte, reporting an
// unrecognized one as an invalid-discriminator parse error with the
// stream offset attached.
func ReadTightControl(cr *CountingReader) (TightControl, error) {
	b, err := readUint8(cr, "Tight.control")
	if err != nil {
		return TightControl{}, err
	}
	tc, err := ParseTightControl(b)
	if err != nil {
		return tc, newParseError(KindInvalidDiscriminator, "Tight.control", cr.Offset(), err.Error(), nil)
	}
	return tc, nil
}

// ErrGradientUnsupported is returned when a server sends a gradient
// Tight filter; this client never advertises the capability to produce
// one and treats receiving it as a protocol error.
var ErrGradientUnsupported = fmt.Errorf("tight gradient filter is not implemented")

// ReadTightFilter reads the filter-id byte present only when SubMethod
// is TightBasicWithFilter.
func ReadTightFilter(cr *CountingReader) (TightFilter, error) {
	b, err := readUint8(cr, "Tight.filter-id")
	if err != nil {
		return 0, err
	}
	switch b {
	case 0:
		return TightFilterCopy, nil
	case 1:
		return TightFilterPalette, nil
	case 2:
		return TightFilterGradient, ErrGradientUnsupported
	default:
		return 0, newParseError(KindInvalidDiscriminator, "Tight.filter-id", cr.Offset(),
			fmt.Sprintf("unrecognized filter id %d", b), nil)
	}
}

// TightPaletteSize returns the uncompressed byte count of a palette
// payload for a w x h rectangle with numColors entries: 1 bit per
// pixel, row-padded to whole bytes, for up to 2 colors, otherwise 1
// byte per pixel.
func TightPaletteSize(w, h, numColors int) int {
	if numColors <= 2 {
		return h * ((w + 7) / 8)
	}
	return h * w
}

// TightCopySize returns the uncompressed byte count of a copy-filter
// (3 bytes/pixel TPixel array) payload for a w x h rectangle.
func TightCopySize(w, h int) int { return w * h * 3 }

// TightRawThreshold is the uncompressed-size cutoff below which the
// server sends raw bytes with no zlib wrapping or compact-length prefix.
const TightRawThreshold = 12

// ReadTightPalette reads a 1-byte (count-1) followed by that many
// TPixel entries.
func ReadTightPalette(cr *CountingReader) ([]TPixel, error) {
	countMinusOne, err := readUint8(cr, "Tight.palette.count")
	if err != nil {
		return nil, err
	}
	n := int(countMinusOne) + 1
	colors := make([]TPixel, n)
	for i := range colors {
		colors[i], err = ReadTPixel(cr)
		if err != nil {
			return nil, err
		}
	}
	return colors, nil
}

// UnpackPaletteIndices expands a row-padded, MSB-first bit or byte
// stream into one index per pixel. With 2 colors each pixel is one bit;
// otherwise each pixel is one byte indexing the palette directly.
//
// A set bit selects the first palette entry and a clear bit selects the
// second (colors=[red,blue] with byte 0b10100000 over a 3-pixel row
// decodes to red,blue,red for bits 1,0,1), so the bit is inverted
// before it's used as an index.
func UnpackPaletteIndices(data []byte, w, h, numColors int) []int {
	indices := make([]int, 0, w*h)
	if numColors <= 2 {
		rowBytes := (w + 7) / 8
		for y := 0; y < h; y++ {
			row := data[y*rowBytes : (y+1)*rowBytes]
			for x := 0; x < w; x++ {
				byteIdx := x / 8
				bitIdx := 7 - uint(x%8)
				bit := (row[byteIdx] >> bitIdx) & 1
				indices = append(indices, int(1-bit))
			}
		}
		return indices
	}
	for y := 0; y < h; y++ {
		row := data[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			indices = append(indices, int(row[x]))
		}
	}
	return indices
}
