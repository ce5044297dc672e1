package webview

import (
	"encoding/binary"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pid0/flashvnc/view"
)

func serverFixture(t *testing.T) (*httptest.Server, chan *View) {
	t.Helper()
	ready := make(chan *View, 1)
	srv := httptest.NewServer(Handler(nil, func(v *View) { ready <- v }))
	t.Cleanup(srv.Close)
	return srv, ready
}

func dialClient(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestUpdateFramebufferSendsLengthPrefixedBinaryFrame(t *testing.T) {
	srv, ready := serverFixture(t)
	client := dialClient(t, srv)
	v := <-ready

	data := []byte{1, 2, 3, 4, 5, 6}
	v.UpdateFramebuffer(data, 2, 1)

	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	require.Len(t, msg, 9+len(data))
	assert.Equal(t, byte(frameFull), msg[0])
	assert.EqualValues(t, 2, binary.BigEndian.Uint32(msg[1:5]))
	assert.EqualValues(t, 1, binary.BigEndian.Uint32(msg[5:9]))
	assert.Equal(t, data, msg[9:])
}

func TestUpdateCursorSendsHotspot(t *testing.T) {
	srv, ready := serverFixture(t)
	client := dialClient(t, srv)
	v := <-ready

	v.UpdateCursor([]byte{9, 9, 9, 9}, 1, 1, 3, 4)

	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, byte(frameCursor), msg[0])
	assert.EqualValues(t, 3, binary.BigEndian.Uint16(msg[9:11]))
	assert.EqualValues(t, 4, binary.BigEndian.Uint16(msg[11:13]))
}

func TestReadPumpTranslatesPointerEvent(t *testing.T) {
	srv, ready := serverFixture(t)
	client := dialClient(t, srv)
	v := <-ready

	require.NoError(t, client.WriteJSON(map[string]interface{}{
		"type": "pointer", "buttons": 1, "x": 10, "y": 20,
	}))

	select {
	case ev := <-v.Events():
		assert.Equal(t, view.EventPointer, ev.Kind)
		assert.EqualValues(t, 10, ev.X)
		assert.EqualValues(t, 20, ev.Y)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestReadPumpSkipsUnknownEventType(t *testing.T) {
	srv, ready := serverFixture(t)
	client := dialClient(t, srv)
	v := <-ready

	require.NoError(t, client.WriteJSON(map[string]interface{}{"type": "blink"}))
	require.NoError(t, client.WriteJSON(map[string]interface{}{"type": "key", "key": 97, "down": true}))

	select {
	case ev := <-v.Events():
		assert.Equal(t, view.EventKeyboard, ev.Kind)
		assert.EqualValues(t, 97, ev.Key)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestDesiredPixelFormatIsRGB(t *testing.T) {
	v := &View{}
	assert.Equal(t, view.RGB, v.DesiredPixelFormat())
}
