package rfbwire

import "io"

// PixelFormat is the 16-byte wire structure describing how pixels are
// packed into the framebuffer. The client always negotiates
// ClientPixelFormat (32bpp little-endian BGRx); a ReadPixelFormat/Write
// pair is kept for completeness, e.g. diagnosing a server that ignores
// SetPixelFormat, and for framing round-trip tests.
type PixelFormat struct {
	BPP, Depth            uint8
	BigEndianFlag         uint8
	TrueColorFlag         uint8
	RedMax, GreenMax, BlueMax uint16
	RedShift, GreenShift, BlueShift uint8
}

// ClientPixelFormat is the format this client forces on every server:
// 32bpp, depth 24, little-endian, true-color, BGRx shifts.
var ClientPixelFormat = PixelFormat{
	BPP:           32,
	Depth:         24,
	BigEndianFlag: 0,
	TrueColorFlag: 1,
	RedMax:        255,
	GreenMax:      255,
	BlueMax:       255,
	RedShift:      16,
	GreenShift:    8,
	BlueShift:     0,
}

func ReadPixelFormat(cr *CountingReader) (PixelFormat, error) {
	var pf PixelFormat
	var err error
	if pf.BPP, err = readUint8(cr, "PixelFormat.bpp"); err != nil {
		return pf, err
	}
	if pf.Depth, err = readUint8(cr, "PixelFormat.depth"); err != nil {
		return pf, err
	}
	if pf.BigEndianFlag, err = readUint8(cr, "PixelFormat.big-endian"); err != nil {
		return pf, err
	}
	if pf.TrueColorFlag, err = readUint8(cr, "PixelFormat.true-color"); err != nil {
		return pf, err
	}
	if pf.RedMax, err = readUint16(cr, "PixelFormat.red-max"); err != nil {
		return pf, err
	}
	if pf.GreenMax, err = readUint16(cr, "PixelFormat.green-max"); err != nil {
		return pf, err
	}
	if pf.BlueMax, err = readUint16(cr, "PixelFormat.blue-max"); err != nil {
		return pf, err
	}
	if pf.RedShift, err = readUint8(cr, "PixelFormat.red-shift"); err != nil {
		return pf, err
	}
	if pf.GreenShift, err = readUint8(cr, "PixelFormat.green-shift"); err != nil {
		return pf, err
	}
	if pf.BlueShift, err = readUint8(cr, "PixelFormat.blue-shift"); err != nil {
		return pf, err
	}
	if err = readPadding(cr, "PixelFormat.padding", 3); err != nil {
		return pf, err
	}
	return pf, nil
}

func (pf PixelFormat) Write(w io.Writer) error {
	writers := []func() error{
		func() error { return writeUint8(w, pf.BPP) },
		func() error { return writeUint8(w, pf.Depth) },
		func() error { return writeUint8(w, pf.BigEndianFlag) },
		func() error { return writeUint8(w, pf.TrueColorFlag) },
		func() error { return writeUint16(w, pf.RedMax) },
		func() error { return writeUint16(w, pf.GreenMax) },
		func() error { return writeUint16(w, pf.BlueMax) },
		func() error { return writeUint8(w, pf.RedShift) },
		func() error { return writeUint8(w, pf.GreenShift) },
		func() error { return writeUint8(w, pf.BlueShift) },
		func() error { return writePadding(w, 3) },
	}
	for _, wr := range writers {
		if err := wr(); err != nil {
			return err
		}
	}
	return nil
}

// TPixel is the 3-byte RGB pixel used inside Tight-encoded payloads.
type TPixel struct {
	R, G, B uint8
}

func ReadTPixel(cr *CountingReader) (TPixel, error) {
	var p TPixel
	var err error
	if p.R, err = readUint8(cr, "TPixel.r"); err != nil {
		return p, err
	}
	if p.G, err = readUint8(cr, "TPixel.g"); err != nil {
		return p, err
	}
	if p.B, err = readUint8(cr, "TPixel.b"); err != nil {
		return p, err
	}
	return p, nil
}

func (p TPixel) Write(w io.Writer) error {
	if _, err := w.Write([]byte{p.R, p.G, p.B}); err != nil {
		return err
	}
	return nil
}
