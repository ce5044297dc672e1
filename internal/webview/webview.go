// Package webview implements a view.View over a browser websocket
// connection: frames go out as
// binary messages, input comes back as small JSON events. It is the
// second, exercised View implementation the core is written against,
// alongside the stub used in tests.
package webview

import (
	"encoding/binary"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/pid0/flashvnc/internal/rfbwire"
	"github.com/pid0/flashvnc/view"
)

// Frame kind bytes, the first byte of every binary message sent to the
// browser.
const (
	frameFull   = 0
	frameCursor = 1
)

// upgrader accepts any origin; a deployment that needs origin checks
// wraps the handler.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// View streams framebuffer updates to a single connected browser and
// relays its input back as view.GuiEvent. One View serves exactly one
// RFB session; Handler registers the HTTP upgrade endpoint that
// produces it.
type View struct {
	log  *log.Logger
	conn *websocket.Conn

	send   chan []byte
	events chan view.GuiEvent

	title  string
	width  int
	height int
}

// Handler upgrades an incoming HTTP request to a websocket and blocks,
// pumping frames out and events in, until the connection closes.
// onReady is called once the upgrade succeeds and before the pumps
// start, handing the caller a View to pass to rfbsession.Dial.
func Handler(logger *log.Logger, onReady func(*View)) http.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "err", err)
			return
		}

		v := &View{
			log:    logger,
			conn:   conn,
			send:   make(chan []byte, 8),
			events: make(chan view.GuiEvent, 64),
		}
		onReady(v)

		go v.writePump()
		v.readPump()
	}
}

func (v *View) ChangeDisplaySize(width, height int) {
	v.width, v.height = width, height
}

func (v *View) SetTitle(title string) { v.title = title }

func (v *View) UpdateFramebuffer(data []byte, width, height int) {
	v.sendFrame(frameFull, data, width, height)
}

// UpdateFramebufferSync is identical to UpdateFramebuffer here: there is
// no draw-completion signal to wait on across a websocket, so throttle
// pacing falls back to the same fire-and-forget send as the
// unthrottled path. The frame still only ever queues behind send's
// buffer, never blocking the caller for long.
func (v *View) UpdateFramebufferSync(data []byte, width, height int) {
	v.sendFrame(frameFull, data, width, height)
}

func (v *View) sendFrame(kind byte, data []byte, width, height int) {
	msg := make([]byte, 9+len(data))
	msg[0] = kind
	binary.BigEndian.PutUint32(msg[1:5], uint32(width))
	binary.BigEndian.PutUint32(msg[5:9], uint32(height))
	copy(msg[9:], data)
	v.enqueueSend(msg)
}

func (v *View) UpdateCursor(rgba []byte, width, height, hotX, hotY int) {
	msg := make([]byte, 13+len(rgba))
	msg[0] = frameCursor
	binary.BigEndian.PutUint32(msg[1:5], uint32(width))
	binary.BigEndian.PutUint32(msg[5:9], uint32(height))
	binary.BigEndian.PutUint16(msg[9:11], uint16(hotX))
	binary.BigEndian.PutUint16(msg[11:13], uint16(hotY))
	copy(msg[13:], rgba)
	v.enqueueSend(msg)
}

// enqueueSend drops the frame rather than blocking if the write pump is
// falling behind the decode pipeline: a stale frame is worthless once a
// newer one exists, and blocking here would stall the session's
// fb-updater finalizer.
func (v *View) enqueueSend(msg []byte) {
	select {
	case v.send <- msg:
	default:
		v.log.Debug("webview: dropping frame, client is behind")
	}
}

func (v *View) Events() <-chan view.GuiEvent { return v.events }

// DesiredPixelFormat requests RGB: browsers draw into an ImageData
// buffer that's RGBA already, so the dispatcher's RGB conversion path
// saves a channel swap on every pixel client-side.
func (v *View) DesiredPixelFormat() view.PixelFormat { return view.RGB }

func (v *View) writePump() {
	defer v.conn.Close()
	for msg := range v.send {
		if err := v.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			v.log.Debug("webview: write failed", "err", err)
			return
		}
	}
}

// wireEvent is the JSON shape of one input/configuration message sent
// up from the browser.
type wireEvent struct {
	Type    string  `json:"type"`
	Buttons uint8   `json:"buttons"`
	X       uint16  `json:"x"`
	Y       uint16  `json:"y"`
	DX      float64 `json:"dx"`
	DY      float64 `json:"dy"`
	Key     uint32  `json:"key"`
	Down    bool    `json:"down"`
	Width   uint16  `json:"width"`
	Height  uint16  `json:"height"`
	Quality int     `json:"quality"`
}

func (v *View) readPump() {
	defer close(v.events)
	for {
		_, raw, err := v.conn.ReadMessage()
		if err != nil {
			v.log.Debug("webview: read ended", "err", err)
			return
		}
		ev, err := parseWireEvent(raw)
		if err != nil {
			v.log.Warn("webview: malformed event", "err", err)
			continue
		}
		v.events <- ev
	}
}

func parseWireEvent(raw []byte) (view.GuiEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return view.GuiEvent{}, errors.Wrap(err, "webview: decoding event")
	}
	switch w.Type {
	case "pointer":
		return view.GuiEvent{Kind: view.EventPointer, ButtonState: w.Buttons, X: w.X, Y: w.Y}, nil
	case "relativePointer":
		return view.GuiEvent{Kind: view.EventRelativePointer, ButtonState: w.Buttons, DX: w.DX, DY: w.DY}, nil
	case "key":
		return view.GuiEvent{Kind: view.EventKeyboard, Key: w.Key, Down: w.Down}, nil
	case "resize":
		return view.GuiEvent{Kind: view.EventResized, NewWidth: w.Width, NewHeight: w.Height}, nil
	case "quality":
		return view.GuiEvent{Kind: view.EventSetEncodingQuality, Quality: rfbwire.Quality(w.Quality)}, nil
	default:
		return view.GuiEvent{}, errors.Errorf("webview: unknown event type %q", w.Type)
	}
}
