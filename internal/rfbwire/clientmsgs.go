package rfbwire

import "io"

// Client-to-server message type bytes.
const (
	msgSetPixelFormat           = 0
	msgSetEncodings             = 2
	msgFramebufferUpdateRequest = 3
	msgKeyEvent                 = 4
	msgPointerEvent             = 5
	msgClientCutText            = 6
	msgSetDesktopSize           = 251
	msgEnableContinuousUpdates  = 150
	msgClientFence              = 248
)

// WriteSetPixelFormat always negotiates ClientPixelFormat; the client
// never renders in any other layout.
func WriteSetPixelFormat(w io.Writer) error {
	if err := writeUint8(w, msgSetPixelFormat); err != nil {
		return err
	}
	if err := writePadding(w, 3); err != nil {
		return err
	}
	return ClientPixelFormat.Write(w)
}

// WriteSetEncodings sends BaseEncodings plus the pseudo-encodings
// implied by the requested quality preset.
func WriteSetEncodings(w io.Writer, q Quality) error {
	params := q.Params()
	encs := make([]Encoding, 0, len(BaseEncodings)+3)
	encs = append(encs, BaseEncodings...)
	if params.JPEGQuality >= 0 {
		encs = append(encs, JPEGQualityEncoding(params.JPEGQuality), params.Subsample)
	}
	encs = append(encs, CompressionLevelEncoding(params.Compression))

	if err := writeUint8(w, msgSetEncodings); err != nil {
		return err
	}
	if err := writePadding(w, 1); err != nil {
		return err
	}
	if err := writeUint16(w, uint16(len(encs))); err != nil {
		return err
	}
	for _, e := range encs {
		if err := writeInt32(w, int32(e)); err != nil {
			return err
		}
	}
	return nil
}

type FramebufferUpdateRequest struct {
	Incremental           bool
	X, Y, Width, Height uint16
}

func (r FramebufferUpdateRequest) Write(w io.Writer) error {
	if err := writeUint8(w, msgFramebufferUpdateRequest); err != nil {
		return err
	}
	incr := uint8(0)
	if r.Incremental {
		incr = 1
	}
	if err := writeUint8(w, incr); err != nil {
		return err
	}
	if err := writeUint16(w, r.X); err != nil {
		return err
	}
	if err := writeUint16(w, r.Y); err != nil {
		return err
	}
	if err := writeUint16(w, r.Width); err != nil {
		return err
	}
	return writeUint16(w, r.Height)
}

type KeyEvent struct {
	Down bool
	Key  uint32
}

func (k KeyEvent) Write(w io.Writer) error {
	if err := writeUint8(w, msgKeyEvent); err != nil {
		return err
	}
	down := uint8(0)
	if k.Down {
		down = 1
	}
	if err := writeUint8(w, down); err != nil {
		return err
	}
	if err := writePadding(w, 2); err != nil {
		return err
	}
	return writeUint32(w, k.Key)
}

type PointerEvent struct {
	ButtonMask uint8
	X, Y       uint16
}

func (p PointerEvent) Write(w io.Writer) error {
	if err := writeUint8(w, msgPointerEvent); err != nil {
		return err
	}
	if err := writeUint8(w, p.ButtonMask); err != nil {
		return err
	}
	if err := writeUint16(w, p.X); err != nil {
		return err
	}
	return writeUint16(w, p.Y)
}

// SetDesktopSize requests a new full-screen-layout geometry. Only
// legal once the server has advertised ExtendedDesktopSize.
type SetDesktopSize struct {
	Width, Height uint16
}

func (s SetDesktopSize) Write(w io.Writer) error {
	if err := writeUint8(w, msgSetDesktopSize); err != nil {
		return err
	}
	if err := writePadding(w, 1); err != nil {
		return err
	}
	if err := writeUint16(w, s.Width); err != nil {
		return err
	}
	if err := writeUint16(w, s.Height); err != nil {
		return err
	}
	// Single-screen layout: one screen covering the whole geometry, id 0,
	// flags 0.
	if err := writeUint8(w, 1); err != nil {
		return err
	}
	if err := writePadding(w, 1); err != nil {
		return err
	}
	if err := writeUint32(w, 0); err != nil { // screen id
		return err
	}
	if err := writeUint16(w, 0); err != nil { // screen x
		return err
	}
	if err := writeUint16(w, 0); err != nil { // screen y
		return err
	}
	if err := writeUint16(w, s.Width); err != nil {
		return err
	}
	if err := writeUint16(w, s.Height); err != nil {
		return err
	}
	return writeUint32(w, 0) // screen flags
}

type EnableContinuousUpdates struct {
	Enable              bool
	X, Y, Width, Height uint16
}

func (e EnableContinuousUpdates) Write(w io.Writer) error {
	if err := writeUint8(w, msgEnableContinuousUpdates); err != nil {
		return err
	}
	enable := uint8(0)
	if e.Enable {
		enable = 1
	}
	if err := writeUint8(w, enable); err != nil {
		return err
	}
	if err := writeUint16(w, e.X); err != nil {
		return err
	}
	if err := writeUint16(w, e.Y); err != nil {
		return err
	}
	if err := writeUint16(w, e.Width); err != nil {
		return err
	}
	return writeUint16(w, e.Height)
}

// Fence flag bits (both client and server use these).
const (
	FenceFlagBlockBefore = 1 << 0
	FenceFlagBlockAfter  = 1 << 1
	FenceFlagRequest     = 1 << 2
)

type Fence struct {
	Flags   uint32
	Payload []byte
}

func (f Fence) Write(w io.Writer) error {
	if len(f.Payload) > 255 {
		return errFenceTooLarge
	}
	if err := writeUint8(w, msgClientFence); err != nil {
		return err
	}
	if err := writePadding(w, 3); err != nil {
		return err
	}
	if err := writeUint32(w, f.Flags); err != nil {
		return err
	}
	if err := writeUint8(w, uint8(len(f.Payload))); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

func ReadFenceBody(cr *CountingReader) (Fence, error) {
	var f Fence
	flags, err := readUint32(cr, "Fence.flags")
	if err != nil {
		return f, err
	}
	f.Flags = flags
	n, err := readUint8(cr, "Fence.length")
	if err != nil {
		return f, err
	}
	f.Payload = make([]byte, n)
	if err := readFull(cr, "Fence.payload", f.Payload); err != nil {
		return f, err
	}
	return f, nil
}
