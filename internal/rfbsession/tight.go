package rfbsession

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pid0/flashvnc/internal/decode"
	"github.com/pid0/flashvnc/internal/rfbwire"
)

// handleTightRect is the Tight sub-parser: it
// decodes the control byte, enqueues any zlib stream resets it names,
// then reads and enqueues exactly one of Fill/Jpeg/Copy/Palette
// depending on the sub-method.
func (s *Session) handleTightRect(rect rfbwire.Rectangle) error {
	tc, err := rfbwire.ReadTightControl(s.cr)
	if err != nil {
		return errors.Wrap(err, "rfbsession: tight control byte")
	}

	for i, reset := range tc.ResetStreams {
		if reset {
			s.dispatcher.Enqueue(decode.Job{Kind: decode.JobResetZlib, StreamNo: i})
		}
	}

	width, height := int(rect.Width), int(rect.Height)

	switch tc.SubMethod {
	case rfbwire.TightFill:
		color, err := rfbwire.ReadTPixel(s.cr)
		if err != nil {
			return errors.Wrap(err, "rfbsession: tight fill color")
		}
		s.dispatcher.Enqueue(decode.Job{
			Kind: decode.JobRect,
			X:    int(rect.X), Y: int(rect.Y), Width: width, Height: height,
			Method: decode.EncodingMethod{Kind: decode.MethodFill, FillColor: color},
		})
		return nil

	case rfbwire.TightJpeg:
		length, err := rfbwire.ReadCompactLength(s.cr)
		if err != nil {
			return errors.Wrap(err, "rfbsession: tight jpeg length")
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(s.cr, data); err != nil {
			return errors.Wrap(err, "rfbsession: tight jpeg bytes")
		}
		s.cfg.Metrics.AddBytesDecoded("tight-jpeg", len(data))
		s.dispatcher.Enqueue(decode.Job{
			Kind: decode.JobRect,
			X:    int(rect.X), Y: int(rect.Y), Width: width, Height: height,
			Method: decode.EncodingMethod{Kind: decode.MethodJpeg, JpegBytes: data},
		})
		return nil

	case rfbwire.TightBasicWithFilter:
		// ReadTightFilter itself returns ErrGradientUnsupported as err
		// for filter id 2, so a gradient filter never reaches the
		// switch below.
		filter, err := rfbwire.ReadTightFilter(s.cr)
		if err != nil {
			return errors.Wrap(err, "rfbsession: tight filter id")
		}
		switch filter {
		case rfbwire.TightFilterCopy:
			return s.readCopyFilter(rect, tc.StreamIndex)
		default: // TightFilterPalette
			return s.readPaletteFilter(rect, tc.StreamIndex)
		}

	default: // TightBasicNoFilter: implicit copy filter
		return s.readCopyFilter(rect, tc.StreamIndex)
	}
}

func (s *Session) readCopyFilter(rect rfbwire.Rectangle, streamIndex int) error {
	width, height := int(rect.Width), int(rect.Height)
	data, err := s.readTightData(streamIndex, rfbwire.TightCopySize(width, height))
	if err != nil {
		return errors.Wrap(err, "rfbsession: tight copy filter payload")
	}
	s.dispatcher.Enqueue(decode.Job{
		Kind: decode.JobRect,
		X:    int(rect.X), Y: int(rect.Y), Width: width, Height: height,
		Method: decode.EncodingMethod{Kind: decode.MethodCopyFilter, CopyData: data},
	})
	return nil
}

func (s *Session) readPaletteFilter(rect rfbwire.Rectangle, streamIndex int) error {
	colors, err := rfbwire.ReadTightPalette(s.cr)
	if err != nil {
		return errors.Wrap(err, "rfbsession: tight palette")
	}
	width, height := int(rect.Width), int(rect.Height)
	data, err := s.readTightData(streamIndex, rfbwire.TightPaletteSize(width, height, len(colors)))
	if err != nil {
		return errors.Wrap(err, "rfbsession: tight palette filter payload")
	}
	s.dispatcher.Enqueue(decode.Job{
		Kind: decode.JobRect,
		X:    int(rect.X), Y: int(rect.Y), Width: width, Height: height,
		Method: decode.EncodingMethod{Kind: decode.MethodPaletteFilter, PaletteColors: colors, PaletteData: data},
	})
	return nil
}

// readTightData applies the protocol's raw-vs-zlib threshold: an
// uncompressed size under TightRawThreshold arrives as plain bytes with
// no compact-length prefix or zlib wrapping at all.
func (s *Session) readTightData(streamIndex, uncompressedSize int) (decode.TightData, error) {
	if uncompressedSize < rfbwire.TightRawThreshold {
		buf := make([]byte, uncompressedSize)
		if _, err := io.ReadFull(s.cr, buf); err != nil {
			return decode.TightData{}, err
		}
		return decode.TightData{StreamNo: -1, Bytes: buf}, nil
	}

	length, err := rfbwire.ReadCompactLength(s.cr)
	if err != nil {
		return decode.TightData{}, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(s.cr, buf); err != nil {
		return decode.TightData{}, err
	}
	s.cfg.Metrics.AddBytesDecoded("tight-zlib", len(buf))
	return decode.TightData{StreamNo: streamIndex, Bytes: buf}, nil
}
