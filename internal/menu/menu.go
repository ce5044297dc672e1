// Package menu implements the F8-prefixed overlay that lets the quality preset, relative-mouse mode and fullscreen be
// toggled from the keyboard without a visible settings dialog. F8 arms
// menu mode until the next keypress, which is then consumed as a menu
// command rather than forwarded to the server.
package menu

import "github.com/pid0/flashvnc/internal/rfbwire"

// X11 keysyms for the function keys the menu recognizes.
const (
	KeyF1  uint32 = 0xffbe
	KeyF2  uint32 = 0xffbf
	KeyF3  uint32 = 0xffc0
	KeyF4  uint32 = 0xffc1
	KeyF5  uint32 = 0xffc2
	KeyF6  uint32 = 0xffc3
	KeyF8  uint32 = 0xffc5
	KeyF11 uint32 = 0xffc8
)

// ActionHandler receives the menu's resolved commands.
type ActionHandler interface {
	SetEncodingQuality(q rfbwire.Quality)
	SetFullscreen()
	UnsetFullscreen()
	StartRelativeMouseMode()
	StopRelativeMouseMode()
}

// Menu tracks whether F8 is currently armed and the two toggle states
// it owns (relative-mouse mode, fullscreen) so it can draw a checkbox
// next to them.
type Menu struct {
	handler            ActionHandler
	f8Pressed          bool
	relativeMouseMode  bool
	fullscreen         bool
}

func New(handler ActionHandler) *Menu {
	return &Menu{handler: handler}
}

// InterceptKeyPress consumes a key-down event if it's part of arming or
// firing a menu command, returning true iff the event must NOT be
// forwarded to the server.
func (m *Menu) InterceptKeyPress(keysym uint32) bool {
	f8PressedNow := keysym == KeyF8
	f8WasPressed := m.f8Pressed

	if f8WasPressed {
		switch keysym {
		case KeyF1:
			m.handler.SetEncodingQuality(rfbwire.LossyHigh)
		case KeyF2:
			m.handler.SetEncodingQuality(rfbwire.LossyMedium)
		case KeyF3:
			m.handler.SetEncodingQuality(rfbwire.LossyMediumInterframe)
		case KeyF4:
			m.handler.SetEncodingQuality(rfbwire.LossyLow)
		case KeyF5:
			m.handler.SetEncodingQuality(rfbwire.Lossless)
		case KeyF6:
			m.relativeMouseMode = !m.relativeMouseMode
			if m.relativeMouseMode {
				m.handler.StartRelativeMouseMode()
			} else {
				m.handler.StopRelativeMouseMode()
			}
		case KeyF11:
			m.fullscreen = !m.fullscreen
			if m.fullscreen {
				m.handler.SetFullscreen()
			} else {
				m.handler.UnsetFullscreen()
			}
		}
		m.f8Pressed = false
	} else if f8PressedNow {
		m.f8Pressed = true
	}

	return f8WasPressed || f8PressedNow
}

// Visible reports whether the overlay should currently be drawn.
func (m *Menu) Visible() bool { return m.f8Pressed }

// RelativeMouseMode reports the current toggle state, for the view to
// query when deciding whether to capture and warp the pointer.
func (m *Menu) RelativeMouseMode() bool { return m.relativeMouseMode }

// Item is one line of the overlay: a label, and an optional checkbox
// state (nil for a line with no toggle, e.g. the quality presets).
type Item struct {
	Label string
	On    *bool
}

// Items returns the overlay's fixed line list for a front-end to lay
// out and draw; the core has no rendering of its own.
func (m *Menu) Items() []Item {
	relMouse := m.relativeMouseMode
	fullscreen := m.fullscreen
	return []Item{
		{Label: "F1: Encoding: Lossy, high quality"},
		{Label: "F2: Encoding: Lossy, medium quality"},
		{Label: "F3: Encoding: Lossy, medium, with interframe comparison"},
		{Label: "F4: Encoding: Lossy, low quality"},
		{Label: "F5: Encoding: Lossless"},
		{Label: "F6: Relative mouse mode", On: &relMouse},
		{Label: "F11: Fullscreen", On: &fullscreen},
	}
}
