package decode

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pid0/flashvnc/internal/framebuf"
	"github.com/pid0/flashvnc/internal/jpegrows"
	"github.com/pid0/flashvnc/internal/modelock"
	"github.com/pid0/flashvnc/internal/rfbwire"
	"github.com/pid0/flashvnc/internal/workerpool"
	"github.com/pid0/flashvnc/internal/zlibstreams"
)

// GeneralPoolSize is the number of threads in the general decode pool:
// everything that isn't a compressed copy/palette tile.
const GeneralPoolSize = 4

// DestFormat selects the pixel layout ConvertOrCopyFB produces.
type DestFormat int

const (
	FormatNativeBGRx DestFormat = iota
	FormatRGB
)

// Dispatcher owns the general pool and the four zlib-pinned pools and
// routes each Job to the right one. A Dispatcher is built once per
// session and reused across frames; Enqueue/Finish form one frame's
// worth of work at a time.
type Dispatcher struct {
	general   *workerpool.Pool
	zlibPools [zlibstreams.NumStreams]*workerpool.Pool

	fb     *framebuf.Buffer
	lock   *modelock.Lock
	cursor *Cursor

	pending []*workerpool.Future
}

func New(fb *framebuf.Buffer, lock *modelock.Lock, cursor *Cursor) *Dispatcher {
	d := &Dispatcher{fb: fb, lock: lock, cursor: cursor}
	d.general = workerpool.New("decode-general", GeneralPoolSize, func() interface{} {
		return jpegrows.New()
	})
	for i := 0; i < zlibstreams.NumStreams; i++ {
		d.zlibPools[i] = workerpool.New(fmt.Sprintf("decode-zlib%d", i), 1, func() interface{} {
			return zlibstreams.NewStream()
		})
	}
	return d
}

// Close shuts down every underlying pool. Only safe once Finish's
// FutureCollection has been waited on.
func (d *Dispatcher) Close() {
	d.general.Close()
	for _, p := range d.zlibPools {
		p.Close()
	}
}

// Enqueue routes job to a pool: a compressed copy/palette tile goes to
// the zlib pool pinned to its stream (so resets and decodes on that
// stream stay FIFO-ordered); everything else,
// including an uncompressed copy/palette tile, goes to the general
// pool.
func (d *Dispatcher) Enqueue(job Job) {
	var f *workerpool.Future
	switch job.Kind {
	case JobResetZlib:
		streamNo := job.StreamNo
		f = d.zlibPools[streamNo].Spawn(func(state interface{}) error {
			state.(*zlibstreams.Stream).Reset()
			return nil
		})
	case JobRect:
		f = d.enqueueRect(job)
	}
	d.pending = append(d.pending, f)
}

func (d *Dispatcher) enqueueRect(job Job) *workerpool.Future {
	switch job.Method.Kind {
	case MethodCopyFilter:
		if job.Method.CopyData.Compressed() {
			streamNo := job.Method.CopyData.StreamNo
			return d.zlibPools[streamNo].Spawn(func(state interface{}) error {
				return d.decodeCopy(job, state.(*zlibstreams.Stream))
			})
		}
		return d.general.Spawn(func(state interface{}) error {
			return d.decodeCopy(job, nil)
		})
	case MethodPaletteFilter:
		if job.Method.PaletteData.Compressed() {
			streamNo := job.Method.PaletteData.StreamNo
			return d.zlibPools[streamNo].Spawn(func(state interface{}) error {
				return d.decodePalette(job, state.(*zlibstreams.Stream))
			})
		}
		return d.general.Spawn(func(state interface{}) error {
			return d.decodePalette(job, nil)
		})
	default:
		// Fill needs no decoder state at all; routing it through the
		// general pool anyway costs little and keeps the routing rule
		// to a single compressed-or-not distinction.
		return d.general.Spawn(func(state interface{}) error {
			return d.decodeOther(job, state.(*jpegrows.Decoder))
		})
	}
}

// Finish hands back everything enqueued since the last Finish as a
// FutureCollection and resets the pending list, so the next frame's
// jobs start from empty.
func (d *Dispatcher) Finish() *FutureCollection {
	fc := &FutureCollection{futures: d.pending}
	d.pending = nil
	return fc
}

// PendingCount reports the number of decode jobs enqueued since the
// last Finish, for instrumentation.
func (d *Dispatcher) PendingCount() int { return len(d.pending) }

func (d *Dispatcher) decodeCopy(job Job, stream *zlibstreams.Stream) error {
	data, err := uncompress(job.Method.CopyData, stream, rfbwire.TightCopySize(job.Width, job.Height))
	if err != nil {
		return err
	}
	if len(data) < job.Width*job.Height*3 {
		return fmt.Errorf("decode: copy-filter payload too short for %dx%d rect", job.Width, job.Height)
	}

	d.lock.Acquire(modelock.Decoding)
	defer d.lock.Release()
	i := 0
	for row := 0; row < job.Height; row++ {
		for col := 0; col < job.Width; col++ {
			d.fb.SetPixel(job.X+col, job.Y+row, data[i], data[i+1], data[i+2])
			i += 3
		}
	}
	return nil
}

func (d *Dispatcher) decodePalette(job Job, stream *zlibstreams.Stream) error {
	colors := job.Method.PaletteColors
	expected := rfbwire.TightPaletteSize(job.Width, job.Height, len(colors))
	data, err := uncompress(job.Method.PaletteData, stream, expected)
	if err != nil {
		return err
	}
	indices := rfbwire.UnpackPaletteIndices(data, job.Width, job.Height, len(colors))

	d.lock.Acquire(modelock.Decoding)
	defer d.lock.Release()
	i := 0
	for row := 0; row < job.Height; row++ {
		for col := 0; col < job.Width; col++ {
			c := colors[indices[i]]
			d.fb.SetPixel(job.X+col, job.Y+row, c.R, c.G, c.B)
			i++
		}
	}
	return nil
}

// uncompress resolves a TightData into its raw payload: already-raw
// bytes pass through, compressed bytes inflate exactly uncompressedSize
// bytes out of the tile's pinned stream.
func uncompress(data TightData, stream *zlibstreams.Stream, uncompressedSize int) ([]byte, error) {
	if !data.Compressed() {
		return data.Bytes, nil
	}
	return stream.Decode(data.Bytes, uncompressedSize)
}

// decodeOther handles every general-pool method: Raw, Fill, Jpeg and
// Cursor. None of them needs routing by zlib stream, so one switch
// beats scattering tiny single-case functions.
func (d *Dispatcher) decodeOther(job Job, jpegDec *jpegrows.Decoder) error {
	switch job.Method.Kind {
	case MethodRaw:
		return d.decodeRaw(job)
	case MethodFill:
		return d.decodeFill(job)
	case MethodJpeg:
		return d.decodeJpeg(job, jpegDec)
	case MethodCursor:
		return d.decodeCursor(job)
	default:
		return fmt.Errorf("decode: unhandled method kind %d", job.Method.Kind)
	}
}

func (d *Dispatcher) decodeRaw(job Job) error {
	stride := job.Width * 4
	data := job.Method.RawBGRx
	if len(data) < stride*job.Height {
		return fmt.Errorf("decode: raw payload too short for %dx%d rect", job.Width, job.Height)
	}

	d.lock.Acquire(modelock.Decoding)
	defer d.lock.Release()
	for row := 0; row < job.Height; row++ {
		d.fb.SetLine(job.X, job.Y+row, job.Width, data[row*stride:(row+1)*stride])
	}
	return nil
}

func (d *Dispatcher) decodeFill(job Job) error {
	c := job.Method.FillColor
	d.lock.Acquire(modelock.Decoding)
	defer d.lock.Release()
	for row := 0; row < job.Height; row++ {
		for col := 0; col < job.Width; col++ {
			d.fb.SetPixel(job.X+col, job.Y+row, c.R, c.G, c.B)
		}
	}
	return nil
}

func (d *Dispatcher) decodeJpeg(job Job, dec *jpegrows.Decoder) error {
	width, height, err := dec.Start(job.Method.JpegBytes)
	if err != nil {
		return err
	}
	defer dec.Abort()
	if width != job.Width || height != job.Height {
		return fmt.Errorf("decode: jpeg tile %dx%d doesn't match rectangle %dx%d", width, height, job.Width, job.Height)
	}

	row := make([]byte, job.Width*4)
	d.lock.Acquire(modelock.Decoding)
	defer d.lock.Release()
	for y := 0; y < job.Height; y++ {
		ok, err := dec.NextLine(row)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		d.fb.SetLine(job.X, job.Y+y, job.Width, row)
	}
	return nil
}

func (d *Dispatcher) decodeCursor(job Job) error {
	pixels := job.Method.CursorPixels
	mask := job.Method.CursorBitmask
	width, height := job.Width, job.Height
	rowBytes := (width + 7) / 8

	rgba := make([]byte, width*height*4)
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := i * 4
			b, g, r := pixels[o], pixels[o+1], pixels[o+2]
			bit := (mask[y*rowBytes+x/8] >> uint(7-x%8)) & 1
			alpha := byte(0)
			if bit == 1 {
				alpha = 255
			}
			rgba[o], rgba[o+1], rgba[o+2], rgba[o+3] = r, g, b, alpha
			i++
		}
	}
	d.cursor.Set(rgba, width, height, job.X, job.Y)
	return nil
}

// ConvertOrCopyFB copies the framebuffer out under Reading mode,
// splitting the work into GeneralPoolSize contiguous pixel ranges run
// in parallel on the general pool (the last chunk absorbs the
// remainder). FormatRGB additionally converts BGRx to RGB per pixel.
func (d *Dispatcher) ConvertOrCopyFB(dest DestFormat) (data []byte, width, height int, err error) {
	d.lock.Acquire(modelock.Reading)
	defer d.lock.Release()

	width, height = d.fb.Width(), d.fb.Height()
	src := d.fb.Data()
	total := width * height
	chunk := total / GeneralPoolSize

	var futures []*workerpool.Future
	switch dest {
	case FormatNativeBGRx:
		out := make([]byte, len(src))
		for i := 0; i < GeneralPoolSize; i++ {
			start, end := chunkBounds(i, chunk, total)
			s, e := start*4, end*4
			futures = append(futures, d.general.Spawn(func(interface{}) error {
				copy(out[s:e], src[s:e])
				return nil
			}))
		}
		data = out
	case FormatRGB:
		out := make([]byte, width*height*3)
		for i := 0; i < GeneralPoolSize; i++ {
			start, end := chunkBounds(i, chunk, total)
			s, e := start, end
			futures = append(futures, d.general.Spawn(func(interface{}) error {
				for p := s; p < e; p++ {
					so, do := p*4, p*3
					out[do], out[do+1], out[do+2] = src[so+2], src[so+1], src[so]
				}
				return nil
			}))
		}
		data = out
	default:
		return nil, 0, 0, fmt.Errorf("decode: unknown dest format %d", dest)
	}

	for _, f := range futures {
		if werr := f.Wait(); werr != nil && err == nil {
			err = werr
		}
	}
	return data, width, height, err
}

func chunkBounds(i, chunk, total int) (start, end int) {
	start = i * chunk
	end = start + chunk
	if i == GeneralPoolSize-1 {
		end = total
	}
	return start, end
}

// FutureCollection aggregates the per-job futures enqueued during one
// frame. Wait blocks until every job completes, running the individual
// waits concurrently via errgroup and collecting every failure rather
// than just the first, since a worker panic on one rectangle shouldn't
// hide a zlib error on another.
type FutureCollection struct {
	futures []*workerpool.Future
}

func (fc *FutureCollection) Wait() error {
	var mu sync.Mutex
	var errs []error

	var g errgroup.Group
	for _, f := range fc.futures {
		f := f
		g.Go(func() error {
			if err := f.Wait(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == 0 {
		return nil
	}
	return &MultiError{Errors: errs}
}

// MultiError aggregates every job error from one frame's decode.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	parts := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("multiple decode errors: %s", strings.Join(parts, "; "))
}
