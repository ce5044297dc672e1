// Package decode implements the decoding dispatcher (routing decode
// jobs to worker pools) and the decode jobs' own pixel-writing logic.
// It is the concurrency core: many decoders write disjoint rectangles
// into the framebuffer at once, four of them pinned one-per-zlib-stream
// so compressed-tile ordering stays correct within a stream.
package decode

import "github.com/pid0/flashvnc/internal/rfbwire"

// TightData is either a raw, never-zlib-wrapped payload (the protocol's
// own < 12 byte threshold) or a payload compressed against one of the
// four zlib streams. StreamNo is -1 for the uncompressed case.
type TightData struct {
	StreamNo int
	Bytes    []byte
}

func (t TightData) Compressed() bool { return t.StreamNo >= 0 }

// MethodKind discriminates EncodingMethod's active variant.
type MethodKind int

const (
	MethodRaw MethodKind = iota
	MethodFill
	MethodCopyFilter
	MethodPaletteFilter
	MethodJpeg
	MethodCursor
)

// EncodingMethod is the decoded form of a rectangle's payload, carrying
// only the field(s) relevant to Kind. Modeled as one struct with a kind
// tag rather than an interface hierarchy since the dispatcher needs to
// inspect CopyFilter/PaletteFilter's TightData before routing without a
// type switch per call site.
type EncodingMethod struct {
	Kind MethodKind

	RawBGRx []byte // MethodRaw: already BGRx, stride width*4

	FillColor rfbwire.TPixel // MethodFill

	CopyData TightData // MethodCopyFilter

	PaletteColors []rfbwire.TPixel // MethodPaletteFilter
	PaletteData   TightData

	JpegBytes []byte // MethodJpeg

	CursorPixels  []byte // MethodCursor: width*height BGRx
	CursorBitmask []byte // MethodCursor: 1bpp, MSB-first, row-padded
}

// JobKind discriminates Job's active variant.
type JobKind int

const (
	JobResetZlib JobKind = iota
	JobRect
)

// Job is one unit of decode work: either a reset of one of the four
// zlib streams, or a rectangle to decode into the framebuffer. Resets
// are in-band jobs on the same pool as the compressed reads for their
// stream, so reset/decode ordering per stream falls out of FIFO
// single-worker pools rather than needing its own synchronization.
type Job struct {
	Kind JobKind

	StreamNo int // JobResetZlib

	X, Y, Width, Height int // JobRect
	Method              EncodingMethod
}
