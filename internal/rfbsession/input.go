package rfbsession

import (
	"github.com/pid0/flashvnc/internal/rfbwire"
	"github.com/pid0/flashvnc/internal/writeend"
	"github.com/pid0/flashvnc/view"
)

// forwardInput drains the view's GuiEvent channel for the life of the
// connection, routing keyboard events through the menu overlay first
// and everything else straight to the write-end.
func (s *Session) forwardInput() {
	for ev := range s.view.Events() {
		switch ev.Kind {
		case view.EventKeyboard:
			if ev.Down && s.menu.InterceptKeyPress(ev.Key) {
				continue
			}
			s.sendInput(writeend.Event{Kind: writeend.EventKeyboard, Key: ev.Key, Down: ev.Down})

		case view.EventPointer:
			s.sendInput(writeend.Event{
				Kind:        writeend.EventPointer,
				ButtonState: ev.ButtonState,
				X:           ev.X, Y: ev.Y,
			})

		case view.EventRelativePointer:
			s.sendInput(writeend.Event{
				Kind:        writeend.EventRelativePointer,
				ButtonState: ev.ButtonState,
				DX:          ev.DX, DY: ev.DY,
			})

		case view.EventSetEncodingQuality:
			s.SetEncodingQuality(ev.Quality)

		case view.EventResized:
			s.sendInput(writeend.Event{
				Kind:      writeend.EventResized,
				NewWidth:  ev.NewWidth,
				NewHeight: ev.NewHeight,
			})
		}
	}
}

func (s *Session) sendInput(ev writeend.Event) {
	if err := s.we.Send(ev); err != nil {
		s.log.Debug("input dropped, write-end is dead", "err", err)
	}
}

// The methods below satisfy menu.ActionHandler.

func (s *Session) SetEncodingQuality(q rfbwire.Quality) {
	s.quality = q
	s.sendInput(writeend.Event{Kind: writeend.EventSetEncodingQuality, Quality: q})
}

func (s *Session) SetFullscreen() {
	if fs, ok := s.view.(view.Fullscreener); ok {
		fs.SetFullscreen()
	}
}

func (s *Session) UnsetFullscreen() {
	if fs, ok := s.view.(view.Fullscreener); ok {
		fs.UnsetFullscreen()
	}
}

// StartRelativeMouseMode and StopRelativeMouseMode have nothing to do
// at the session level: the UDP channel is dialed once up front
// (Dial), and it's the view's job to start/stop warping the pointer
// and emitting EventRelativePointer once the menu flips this mode.
func (s *Session) StartRelativeMouseMode() {}
func (s *Session) StopRelativeMouseMode() {}
