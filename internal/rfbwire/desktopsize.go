package rfbwire

// ExtendedDesktopNoError is the status code the server places in an
// ExtendedDesktopSize rectangle's y field when the resize it describes
// succeeded (or was unprompted, e.g. another client resized it). Any
// other value means reject/in-progress and the rectangle is ignored.
const ExtendedDesktopNoError = 0

// Screen is one entry of an ExtendedDesktopSize rectangle's screen
// layout.
type Screen struct {
	ID            uint32
	X, Y          uint16
	Width, Height uint16
	Flags         uint32
}

// ReadExtendedDesktopSizeBody reads the screen-layout body that follows
// an ExtendedDesktopSize rectangle's header: a screen count, 3 bytes of
// padding, then that many Screen entries.
func ReadExtendedDesktopSizeBody(cr *CountingReader) ([]Screen, error) {
	n, err := readUint8(cr, "ExtendedDesktopSize.num-screens")
	if err != nil {
		return nil, err
	}
	if err := readPadding(cr, "ExtendedDesktopSize.padding", 3); err != nil {
		return nil, err
	}
	screens := make([]Screen, n)
	for i := range screens {
		var s Screen
		if s.ID, err = readUint32(cr, "Screen.id"); err != nil {
			return nil, err
		}
		if s.X, err = readUint16(cr, "Screen.x"); err != nil {
			return nil, err
		}
		if s.Y, err = readUint16(cr, "Screen.y"); err != nil {
			return nil, err
		}
		if s.Width, err = readUint16(cr, "Screen.width"); err != nil {
			return nil, err
		}
		if s.Height, err = readUint16(cr, "Screen.height"); err != nil {
			return nil, err
		}
		if s.Flags, err = readUint32(cr, "Screen.flags"); err != nil {
			return nil, err
		}
		screens[i] = s
	}
	return screens, nil
}
