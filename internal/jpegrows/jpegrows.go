// Package jpegrows adapts the standard library's whole-image JPEG
// decoder to the row-at-a-time streaming contract the decoding
// dispatcher expects. image/jpeg has no incremental row API, so this
// package decodes the full image up front on Start and serves rows out
// of the resulting image.Image on each NextLine call, keeping the same
// observable contract (start, then one BGRx row per call) without a
// second JPEG implementation.
package jpegrows

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// Decoder decodes one JPEG image and yields it one BGRx row at a time.
type Decoder struct {
	img    image.Image
	bounds image.Rectangle
	row    int
}

func New() *Decoder { return &Decoder{} }

// Start decodes the JPEG payload and reports its dimensions. Subsequent
// NextLine calls will deliver bounds' Dy() rows.
func (d *Decoder) Start(data []byte) (width, height int, err error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("jpegrows: decode: %w", err)
	}
	d.img = img
	d.bounds = img.Bounds()
	d.row = 0
	return d.bounds.Dx(), d.bounds.Dy(), nil
}

// NextLine writes one BGRx row into dest, which must be at least
// 4*width bytes. Returns false once all rows have been delivered.
func (d *Decoder) NextLine(dest []byte) (bool, error) {
	if d.img == nil {
		return false, fmt.Errorf("jpegrows: NextLine called before Start")
	}
	if d.row >= d.bounds.Dy() {
		return false, nil
	}
	y := d.bounds.Min.Y + d.row
	width := d.bounds.Dx()
	for x := 0; x < width; x++ {
		r, g, b, _ := d.img.At(d.bounds.Min.X+x, y).RGBA()
		o := x * 4
		dest[o] = byte(b >> 8)
		dest[o+1] = byte(g >> 8)
		dest[o+2] = byte(r >> 8)
		dest[o+3] = 0
	}
	d.row++
	return true, nil
}

// Abort releases the decoded image if the caller stops before consuming
// every row.
func (d *Decoder) Abort() {
	d.img = nil
	d.row = 0
}
