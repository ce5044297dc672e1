package jpegrows

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeTestJPEG(t *testing.T, width, height int, fill color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func TestStartReportsDimensions(t *testing.T) {
	data := encodeTestJPEG(t, 8, 4, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	d := New()
	w, h, err := d.Start(data)
	require.NoError(t, err)
	require.Equal(t, 8, w)
	require.Equal(t, 4, h)
}

func TestNextLineDeliversAllRowsThenStops(t *testing.T) {
	data := encodeTestJPEG(t, 4, 3, color.RGBA{R: 0, G: 200, B: 0, A: 255})
	d := New()
	_, h, err := d.Start(data)
	require.NoError(t, err)

	dest := make([]byte, 4*4)
	rows := 0
	for {
		ok, err := d.NextLine(dest)
		require.NoError(t, err)
		if !ok {
			break
		}
		rows++
		// Predominantly green input should decode to a predominantly
		// green-channel-heavy BGRx row (lossy JPEG, so don't demand exact
		// bytes).
		require.Greater(t, int(dest[1]), int(dest[0]))
	}
	require.Equal(t, h, rows)
}

func TestAbortResetsState(t *testing.T) {
	data := encodeTestJPEG(t, 2, 2, color.RGBA{R: 1, G: 1, B: 1, A: 255})
	d := New()
	_, _, err := d.Start(data)
	require.NoError(t, err)
	d.Abort()

	_, err = d.NextLine(make([]byte, 8))
	require.Error(t, err)
}
