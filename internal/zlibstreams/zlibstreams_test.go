package zlibstreams

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunkWriter emits one continuous zlib stream the way a Tight server
// does: each payload is written and sync-flushed, and the bytes that
// appeared on the wire since the previous flush form one tile's chunk.
type chunkWriter struct {
	wire bytes.Buffer
	zw   *zlib.Writer
}

func newChunkWriter() *chunkWriter {
	cw := &chunkWriter{}
	cw.zw = zlib.NewWriter(&cw.wire)
	return cw
}

func (cw *chunkWriter) chunk(t *testing.T, payload []byte) []byte {
	t.Helper()
	_, err := cw.zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, cw.zw.Flush())
	out := append([]byte(nil), cw.wire.Bytes()...)
	cw.wire.Reset()
	return out
}

func TestWindowCarriesAcrossDecodes(t *testing.T) {
	cw := newChunkWriter()
	payload1 := bytes.Repeat([]byte("framebuffer tile contents "), 8)
	payload2 := bytes.Repeat([]byte("framebuffer tile contents "), 8)
	chunk1 := cw.chunk(t, payload1)
	chunk2 := cw.chunk(t, payload2)

	st := NewStream()
	out1, err := st.Decode(chunk1, len(payload1))
	require.NoError(t, err)
	require.Equal(t, payload1, out1)

	// chunk2 was compressed against chunk1's window; decoding it
	// succeeds only because the stream kept that window alive.
	out2, err := st.Decode(chunk2, len(payload2))
	require.NoError(t, err)
	require.Equal(t, payload2, out2)
}

func TestResetStartsFreshStream(t *testing.T) {
	st := NewStream()

	first := newChunkWriter()
	payload1 := []byte("stream before the reset")
	out, err := st.Decode(first.chunk(t, payload1), len(payload1))
	require.NoError(t, err)
	require.Equal(t, payload1, out)

	st.Reset()

	// After a reset the server starts over with a new zlib header; a
	// chunk from an unrelated stream must now decode cleanly.
	second := newChunkWriter()
	payload2 := []byte("brand-new stream after the reset")
	out, err = st.Decode(second.chunk(t, payload2), len(payload2))
	require.NoError(t, err)
	require.Equal(t, payload2, out)
}

func TestDecodeOfNonZlibDataErrors(t *testing.T) {
	st := NewStream()
	_, err := st.Decode([]byte{0x00, 0x00, 0x00, 0x00}, 4)
	require.Error(t, err)
}

func TestDecodeNeedingMoreInputThanReceivedErrors(t *testing.T) {
	cw := newChunkWriter()
	payload := []byte("short")
	chunk := cw.chunk(t, payload)

	st := NewStream()
	_, err := st.Decode(chunk, len(payload)+100)
	require.Error(t, err)
}
