// Package view defines the boundary between the RFB session/decode
// core and whatever actually draws a frame. The
// core is agnostic to the front-end: internal/webview streams frames to
// a browser over a websocket; a native GUI front-end is out of scope
// here and only this contract is specified.
package view

import "github.com/pid0/flashvnc/internal/rfbwire"

// PixelFormat is the layout a View wants delivered to UpdateFramebuffer.
type PixelFormat int

const (
	// NativeBGRx avoids a conversion pass; the dispatcher can hand off
	// the decoded buffer directly (and, in zero-copy mode, by move).
	NativeBGRx PixelFormat = iota
	RGB
)

// GuiEventKind discriminates GuiEvent's active variant.
type GuiEventKind int

const (
	EventPointer GuiEventKind = iota
	EventRelativePointer
	EventKeyboard
	EventSetEncodingQuality
	EventResized
)

// GuiEvent is one input or configuration event the front-end reports
// back to the core through the channel returned by View.Events.
type GuiEvent struct {
	Kind GuiEventKind

	ButtonState uint8   // EventPointer, EventRelativePointer
	X, Y        uint16  // EventPointer: absolute position
	DX, DY      float64 // EventRelativePointer: fractional delta

	Key  uint32 // EventKeyboard
	Down bool   // EventKeyboard

	Quality rfbwire.Quality // EventSetEncodingQuality

	NewWidth, NewHeight uint16 // EventResized
}

// View is everything the RFB session and decode pipeline need from a
// front-end. It owns no protocol knowledge: geometry and pixel data
// arrive as plain dimensions and byte slices.
type View interface {
	ChangeDisplaySize(width, height int)
	SetTitle(title string)

	// UpdateFramebuffer delivers a fully decoded frame. It must not
	// block the caller for long; UpdateFramebufferSync is used instead
	// when the session is throttling and wants draw completion to gate
	// its pacing.
	UpdateFramebuffer(data []byte, width, height int)
	UpdateFramebufferSync(data []byte, width, height int)

	UpdateCursor(rgba []byte, width, height, hotX, hotY int)

	// Events returns the channel of input/configuration events the
	// front-end reports. Called exactly once per connection.
	Events() <-chan GuiEvent

	DesiredPixelFormat() PixelFormat
}

// Fullscreener is an optional capability a View implementation can add;
// fullscreen is a windowing concern the core has no model of beyond the
// menu overlay's F11 toggle, so it is kept out of the required View
// interface and checked for with a type assertion.
type Fullscreener interface {
	SetFullscreen()
	UnsetFullscreen()
}
