package decode

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pid0/flashvnc/internal/framebuf"
	"github.com/pid0/flashvnc/internal/modelock"
	"github.com/pid0/flashvnc/internal/rfbwire"
)

func newFixture(w, h int) (*Dispatcher, *framebuf.Buffer) {
	fb := framebuf.New()
	fb.Resize(w, h)
	lock := modelock.New()
	d := New(fb, lock, NewCursor())
	return d, fb
}

func readPixel(fb *framebuf.Buffer, x, y int) (r, g, b byte) {
	data := fb.Data()
	o := y*(4*fb.Width()) + 4*x
	return data[o+2], data[o+1], data[o]
}

func TestFillWritesEveryPixel(t *testing.T) {
	d, fb := newFixture(20, 20)
	defer d.Close()

	d.Enqueue(Job{
		Kind: JobRect,
		X:    10, Y: 10, Width: 4, Height: 3,
		Method: EncodingMethod{Kind: MethodFill, FillColor: rfbwire.TPixel{R: 0xff}},
	})
	require.NoError(t, d.Finish().Wait())

	for y := 10; y < 13; y++ {
		for x := 10; x < 14; x++ {
			r, g, b := readPixel(fb, x, y)
			assert.Equal(t, byte(0xff), r)
			assert.Equal(t, byte(0), g)
			assert.Equal(t, byte(0), b)
		}
	}
}

func TestRawWritesBGRxRowsVerbatim(t *testing.T) {
	d, fb := newFixture(4, 4)
	defer d.Close()

	row := []byte{1, 2, 3, 0, 4, 5, 6, 0}
	d.Enqueue(Job{
		Kind: JobRect,
		X:    0, Y: 0, Width: 2, Height: 1,
		Method: EncodingMethod{Kind: MethodRaw, RawBGRx: row},
	})
	require.NoError(t, d.Finish().Wait())

	assert.Equal(t, row, fb.Data()[0:8])
}

func TestPaletteMonochromeBitOrder(t *testing.T) {
	// 3x1 rectangle, palette [red, blue], bits 0b101 (padded to
	// 0b10100000) selecting red, blue, red across x.
	d, fb := newFixture(3, 1)
	defer d.Close()

	colors := []rfbwire.TPixel{{R: 0xff}, {B: 0xff}}
	d.Enqueue(Job{
		Kind: JobRect,
		X:    0, Y: 0, Width: 3, Height: 1,
		Method: EncodingMethod{
			Kind:          MethodPaletteFilter,
			PaletteColors: colors,
			PaletteData:   TightData{StreamNo: -1, Bytes: []byte{0b10100000}},
		},
	})
	require.NoError(t, d.Finish().Wait())

	r0, _, b0 := readPixel(fb, 0, 0)
	r1, _, b1 := readPixel(fb, 1, 0)
	r2, _, b2 := readPixel(fb, 2, 0)
	assert.Equal(t, byte(0xff), r0)
	assert.Equal(t, byte(0xff), b1)
	assert.Equal(t, byte(0xff), r2)
	_ = b0
	_ = r1
	_ = b2
}

func zlibCompress(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestZlibStreamIsolationResetOrdering(t *testing.T) {
	// ResetZlib must precede the compressed decode it enables, in
	// enqueue order on the same stream.
	d, fb := newFixture(2, 1)
	defer d.Close()

	compressed := zlibCompress(t, []byte{10, 20, 30, 40, 50, 60})

	d.Enqueue(Job{Kind: JobResetZlib, StreamNo: 0})
	d.Enqueue(Job{
		Kind: JobRect,
		X:    0, Y: 0, Width: 2, Height: 1,
		Method: EncodingMethod{
			Kind:     MethodCopyFilter,
			CopyData: TightData{StreamNo: 0, Bytes: compressed},
		},
	})
	require.NoError(t, d.Finish().Wait())

	r, g, b := readPixel(fb, 0, 0)
	assert.Equal(t, []byte{r, g, b}, []byte{10, 20, 30})
	r, g, b = readPixel(fb, 1, 0)
	assert.Equal(t, []byte{r, g, b}, []byte{40, 50, 60})
}

func TestConvertOrCopyFBNativeIsByteForByte(t *testing.T) {
	d, fb := newFixture(8, 8)
	defer d.Close()

	for i := range fb.Data() {
		fb.Data()[i] = byte(i % 251)
	}
	out, w, h, err := d.ConvertOrCopyFB(FormatNativeBGRx)
	require.NoError(t, err)
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)
	assert.Equal(t, fb.Data(), out)
}

func TestConvertOrCopyFBRGBSwapsChannels(t *testing.T) {
	d, fb := newFixture(2, 1)
	defer d.Close()

	copy(fb.Data(), []byte{1, 2, 3, 0, 4, 5, 6, 0})
	out, _, _, err := d.ConvertOrCopyFB(FormatRGB)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 2, 1, 6, 5, 4}, out)
}

func TestJobErrorIsolatedFromOtherJobsInFrame(t *testing.T) {
	d, fb := newFixture(4, 4)
	defer d.Close()

	d.Enqueue(Job{
		Kind: JobRect,
		X:    0, Y: 0, Width: 1, Height: 1,
		Method: EncodingMethod{Kind: MethodFill, FillColor: rfbwire.TPixel{G: 0xff}},
	})
	d.Enqueue(Job{
		Kind: JobRect,
		X:    0, Y: 0, Width: 4, Height: 4,
		Method: EncodingMethod{Kind: MethodRaw, RawBGRx: []byte{1}}, // too short: triggers an error, not a panic
	})

	err := d.Finish().Wait()
	require.Error(t, err)
	_, g, _ := readPixel(fb, 0, 0)
	assert.Equal(t, byte(0xff), g)
}
