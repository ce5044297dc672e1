package rfbsession

import (
	"bufio"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pid0/flashvnc/internal/decode"
	"github.com/pid0/flashvnc/internal/framebuf"
	"github.com/pid0/flashvnc/internal/menu"
	"github.com/pid0/flashvnc/internal/modelock"
	"github.com/pid0/flashvnc/internal/rfbwire"
	"github.com/pid0/flashvnc/internal/workerpool"
	"github.com/pid0/flashvnc/internal/writeend"
	"github.com/pid0/flashvnc/view"
)

type fakeView struct {
	events chan view.GuiEvent
	format view.PixelFormat
}

func newFakeView() *fakeView {
	return &fakeView{events: make(chan view.GuiEvent)}
}

func (v *fakeView) ChangeDisplaySize(width, height int)            {}
func (v *fakeView) SetTitle(title string)                          {}
func (v *fakeView) UpdateFramebuffer(data []byte, w, h int)         {}
func (v *fakeView) UpdateFramebufferSync(data []byte, w, h int)     {}
func (v *fakeView) UpdateCursor(rgba []byte, w, h, hx, hy int)      {}
func (v *fakeView) Events() <-chan view.GuiEvent                    { return v.events }
func (v *fakeView) DesiredPixelFormat() view.PixelFormat            { return v.format }

// fixture builds a Session with its socket-facing fields wired to an
// in-memory reader/writer so rectangle- and message-handling logic can
// be exercised without a network connection. Feed bytes meant for s.cr
// through src; inspect what the write-end produced through out.
func fixture(t *testing.T, src io.Reader) (*Session, *fakeView, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	fb := framebuf.New()
	fb.Resize(4, 4)
	v := newFakeView()

	s := &Session{
		cfg:  Config{},
		log:  log.Default(),
		cr:   rfbwire.NewCountingReader(src),
		w:    bufio.NewWriter(&out),
		init: rfbwire.ServerInit{Width: 4, Height: 4},
		fb:   fb,
		lock: modelock.New(),
	}
	s.cursor = decode.NewCursor()
	s.dispatcher = decode.New(s.fb, s.lock, s.cursor)
	s.fbUpdater = workerpool.New("fb-updater-test", 1, func() interface{} { return nil })
	s.we = writeend.New(s.w, nil)
	go s.we.Run()
	s.view = v
	s.menu = menu.New(s)

	t.Cleanup(func() {
		s.fbUpdater.Close()
		s.dispatcher.Close()
	})
	return s, v, &out
}

func TestHandleRectangleLastRectEndsTheLoop(t *testing.T) {
	s, _, _ := fixture(t, bytes.NewReader(nil))
	last, err := s.handleRectangle(rfbwire.Rectangle{Encoding: rfbwire.EncLastRect})
	require.NoError(t, err)
	assert.True(t, last)
}

func TestHandleRectangleDesktopSizeDefersResize(t *testing.T) {
	s, _, _ := fixture(t, bytes.NewReader(nil))
	last, err := s.handleRectangle(rfbwire.Rectangle{Encoding: rfbwire.EncDesktopSize, Width: 800, Height: 600})
	require.NoError(t, err)
	assert.False(t, last)
	require.NotNil(t, s.pendingResize)
	assert.Equal(t, uint16(800), s.pendingResize.width)
	assert.Equal(t, uint16(600), s.pendingResize.height)
}

func TestHandleExtendedDesktopSizeSetsPendingResizeOnNoError(t *testing.T) {
	// zero screens: 1-byte count + 3 bytes padding.
	s, _, _ := fixture(t, bytes.NewReader([]byte{0, 0, 0, 0}))
	err := s.handleExtendedDesktopSize(rfbwire.Rectangle{
		Y: rfbwire.ExtendedDesktopNoError, Width: 1024, Height: 768,
	})
	require.NoError(t, err)
	require.NotNil(t, s.pendingResize)
	assert.Equal(t, uint16(1024), s.pendingResize.width)
}

func TestHandleExtendedDesktopSizeIgnoresResizeOnNonZeroStatus(t *testing.T) {
	s, _, _ := fixture(t, bytes.NewReader([]byte{0, 0, 0, 0}))
	err := s.handleExtendedDesktopSize(rfbwire.Rectangle{Y: 1, Width: 1024, Height: 768})
	require.NoError(t, err)
	assert.Nil(t, s.pendingResize)
}

func TestHandleRawRectDecodesIntoFramebuffer(t *testing.T) {
	row := []byte{1, 2, 3, 0, 4, 5, 6, 0}
	s, _, _ := fixture(t, bytes.NewReader(row))
	err := s.handleRawRect(rfbwire.Rectangle{X: 0, Y: 0, Width: 2, Height: 1})
	require.NoError(t, err)
	require.NoError(t, s.dispatcher.Finish().Wait())
	assert.Equal(t, row, s.fb.Data()[0:8])
}

func TestHandleCursorRectUpdatesCursorState(t *testing.T) {
	pixels := bytes.Repeat([]byte{0xaa, 0xbb, 0xcc, 0}, 2*2)
	rowBytes := (2 + 7) / 8
	mask := bytes.Repeat([]byte{0xff}, rowBytes*2)
	s, _, _ := fixture(t, bytes.NewReader(append(append([]byte{}, pixels...), mask...)))

	err := s.handleCursorRect(rfbwire.Rectangle{Width: 2, Height: 2})
	require.NoError(t, err)
	require.NoError(t, s.dispatcher.Finish().Wait())

	rgba, w, h, _, _, ok := s.cursor.TakeIfChanged()
	require.True(t, ok)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
	assert.NotEmpty(t, rgba)
}

func TestHandleFenceEchoesFlagsMinusRequest(t *testing.T) {
	// Fence body: flags (REQUEST|BLOCK_BEFORE|BLOCK_AFTER, plus an
	// unrelated high bit the client must not echo back), then a
	// zero-length payload.
	flags := uint32(rfbwire.FenceFlagRequest | rfbwire.FenceFlagBlockBefore | rfbwire.FenceFlagBlockAfter | 0x80000000)
	body := []byte{
		byte(flags >> 24), byte(flags >> 16), byte(flags >> 8), byte(flags),
		0, // payload length
	}
	s, _, out := fixture(t, bytes.NewReader(body))

	require.NoError(t, s.handleFence())

	require.Eventually(t, func() bool {
		return out.Len() > 0
	}, time.Second, time.Millisecond)

	want := rfbwire.FenceFlagBlockBefore | rfbwire.FenceFlagBlockAfter
	gotFlags := uint32(out.Bytes()[4])<<24 | uint32(out.Bytes()[5])<<16 | uint32(out.Bytes()[6])<<8 | uint32(out.Bytes()[7])
	assert.EqualValues(t, want, gotFlags)
}

func TestHandleFenceIgnoresNonRequestFences(t *testing.T) {
	body := []byte{0, 0, 0, byte(rfbwire.FenceFlagBlockBefore), 0}
	s, _, out := fixture(t, bytes.NewReader(body))
	require.NoError(t, s.handleFence())
	// give the write-end a moment; nothing should ever land.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, out.Bytes())
}
