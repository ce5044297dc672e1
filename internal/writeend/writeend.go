// Package writeend implements the dedicated write-end thread: the only
// goroutine that owns the session's write socket,
// draining a queue of outgoing events (input, update requests, fences,
// desktop-size/continuous-update toggles, heartbeats) in strict
// FIFO order.
package writeend

import (
	"bufio"

	"github.com/pid0/flashvnc/internal/rfbwire"
	"github.com/pid0/flashvnc/internal/udpmouse"
)

// EventKind discriminates Event's active variant.
type EventKind int

const (
	EventPointer EventKind = iota
	EventRelativePointer
	EventKeyboard
	EventResized
	EventSetEncodingQuality
	EventAllowSetDesktopSize
	EventUpdateRequest
	EventEnableContinuousUpdates
	EventFence
	EventHeartbeat
)

// Event is one message the write-end is asked to process. Only the
// fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	ButtonState uint8
	X, Y        uint16 // EventPointer

	DX, DY float64 // EventRelativePointer

	Key  uint32 // EventKeyboard
	Down bool

	NewWidth, NewHeight uint16 // EventResized

	Quality rfbwire.Quality // EventSetEncodingQuality

	Incremental   bool   // EventUpdateRequest
	Width, Height uint16 // EventUpdateRequest, EventEnableContinuousUpdates
	On            bool   // EventEnableContinuousUpdates
	X0, Y0        uint16 // EventUpdateRequest / EventEnableContinuousUpdates origin

	FenceFlags   uint32 // EventFence
	FencePayload []byte
}

// WriteEnd owns the write socket and the accumulated relative-mouse
// side channel state. Construct with New, then run Run on its own
// goroutine and feed it through Send.
type WriteEnd struct {
	w     *bufio.Writer
	mouse *udpmouse.Sender

	events  chan Event
	stopped chan struct{}
	err     error

	setDesktopSizeAllowed bool
}

func New(w *bufio.Writer, mouse *udpmouse.Sender) *WriteEnd {
	return &WriteEnd{
		w:       w,
		mouse:   mouse,
		events:  make(chan Event, 64),
		stopped: make(chan struct{}),
	}
}

// Send enqueues ev. It returns the write-end's terminal error (without
// blocking) once the write-end has stopped, letting the caller detect a
// dead write-end by sending a Heartbeat event each main-loop iteration.
func (we *WriteEnd) Send(ev Event) error {
	select {
	case <-we.stopped:
		return we.err
	default:
	}
	select {
	case we.events <- ev:
		return nil
	case <-we.stopped:
		return we.err
	}
}

// Run drains events until a write fails, then records the error and
// closes down. Meant to run on its own goroutine for the life of the
// connection.
func (we *WriteEnd) Run() {
	we.err = we.loop()
	close(we.stopped)
}

func (we *WriteEnd) loop() error {
	for ev := range we.events {
		if err := we.handle(ev); err != nil {
			return err
		}
		if err := we.w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (we *WriteEnd) handle(ev Event) error {
	switch ev.Kind {
	case EventPointer:
		return rfbwire.PointerEvent{ButtonMask: ev.ButtonState, X: ev.X, Y: ev.Y}.Write(we.w)

	case EventRelativePointer:
		if we.mouse == nil {
			return nil
		}
		return we.mouse.Move(ev.ButtonState, ev.DX, ev.DY)

	case EventKeyboard:
		return rfbwire.KeyEvent{Down: ev.Down, Key: ev.Key}.Write(we.w)

	case EventResized:
		if !we.setDesktopSizeAllowed {
			return nil
		}
		return rfbwire.SetDesktopSize{Width: ev.NewWidth, Height: ev.NewHeight}.Write(we.w)

	case EventSetEncodingQuality:
		return rfbwire.WriteSetEncodings(we.w, ev.Quality)

	case EventAllowSetDesktopSize:
		we.setDesktopSizeAllowed = true
		return nil

	case EventUpdateRequest:
		return rfbwire.FramebufferUpdateRequest{
			Incremental: ev.Incremental,
			X:           ev.X0, Y: ev.Y0,
			Width: ev.Width, Height: ev.Height,
		}.Write(we.w)

	case EventEnableContinuousUpdates:
		return rfbwire.EnableContinuousUpdates{
			Enable: ev.On,
			X:      ev.X0, Y: ev.Y0,
			Width: ev.Width, Height: ev.Height,
		}.Write(we.w)

	case EventFence:
		return rfbwire.Fence{Flags: ev.FenceFlags, Payload: ev.FencePayload}.Write(we.w)

	case EventHeartbeat:
		return nil

	default:
		return nil
	}
}
