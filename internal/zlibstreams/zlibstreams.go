// Package zlibstreams holds the four independent zlib inflate contexts
// a Tight-encoded session multiplexes compressed tiles across. Each
// stream is one continuous deflate stream for the life of the session:
// the server sync-flushes after every tile but never terminates the
// stream, so the inflate window must carry across Decode calls until
// the server explicitly requests a reset. A tile compressed against
// stream N must only ever be inflated by stream N.
package zlibstreams

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

const NumStreams = 4

// Stream is a single resettable inflate context. It is not safe for
// concurrent use; the decoding dispatcher pins each stream to exactly
// one worker thread so this never matters.
type Stream struct {
	in     bytes.Buffer
	reader io.ReadCloser
}

// NewStream constructs one standalone stream. The decoding dispatcher
// gives each single-thread zlib worker pool its own.
func NewStream() *Stream { return &Stream{} }

// Reset discards the stream's inflate window and any unconsumed input.
// The next Decode call must begin a brand-new zlib stream (header
// included), which is exactly what a server sends after asking for the
// reset.
func (st *Stream) Reset() {
	if st.reader != nil {
		st.reader.Close()
		st.reader = nil
	}
	st.in.Reset()
}

// Decode appends compressed to the stream's input and inflates exactly
// uncompressedSize bytes out of it. The server's per-tile sync flush
// guarantees that many bytes are producible from the input received so
// far; needing more is a framing error and surfaces as one.
func (st *Stream) Decode(compressed []byte, uncompressedSize int) ([]byte, error) {
	st.in.Write(compressed)

	if st.reader == nil {
		r, err := zlib.NewReader(&st.in)
		if err != nil {
			return nil, fmt.Errorf("zlibstreams: opening stream: %w", err)
		}
		st.reader = r
	}

	out := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(st.reader, out); err != nil {
		return nil, fmt.Errorf("zlibstreams: inflating: %w", err)
	}
	return out, nil
}
