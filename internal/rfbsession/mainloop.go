package rfbsession

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/pid0/flashvnc/internal/decode"
	"github.com/pid0/flashvnc/internal/modelock"
	"github.com/pid0/flashvnc/internal/rfbwire"
	"github.com/pid0/flashvnc/internal/workerpool"
	"github.com/pid0/flashvnc/internal/writeend"
	"github.com/pid0/flashvnc/view"
)

// Run requests the first full frame and then drives the main loop
// until the connection fails or the server closes it.
func (s *Session) Run() error {
	s.sendInput(writeend.Event{
		Kind: writeend.EventUpdateRequest, Incremental: false,
		Width: s.init.Width, Height: s.init.Height,
	})

	for {
		if err := s.runIteration(); err != nil {
			return err
		}
	}
}

func (s *Session) runIteration() error {
	if err := s.we.Send(writeend.Event{Kind: writeend.EventHeartbeat}); err != nil {
		return errors.Wrap(err, "rfbsession: write-end died")
	}

	waitStart := time.Now()
	msgType, err := rfbwire.ReadServerMessageType(s.cr)
	s.bench.addServerWait(time.Since(waitStart))
	if err != nil {
		return errors.Wrap(err, "rfbsession: reading server message")
	}

	switch msgType {
	case rfbwire.MsgFramebufferUpdate:
		return s.handleFramebufferUpdate()
	case rfbwire.MsgServerFence:
		return s.handleFence()
	case rfbwire.MsgBell:
		return rfbwire.SkipBell(s.cr)
	case rfbwire.MsgServerCutText:
		return errors.Wrap(rfbwire.ReadServerCutText(s.cr), "rfbsession: ServerCutText")
	case rfbwire.MsgSetColourMapEntries:
		return errors.Wrap(rfbwire.ReadSetColourMapEntries(s.cr), "rfbsession: SetColourMapEntries")
	case rfbwire.MsgEndOfContinuousUpdates:
		return rfbwire.ReadEndOfContinuousUpdates(s.cr)
	default:
		return rfbwire.UnknownServerMessageError(msgType, s.cr.Offset())
	}
}

func (s *Session) handleFence() error {
	fence, err := rfbwire.ReadFenceBody(s.cr)
	if err != nil {
		return errors.Wrap(err, "rfbsession: Fence")
	}
	if fence.Flags&rfbwire.FenceFlagRequest == 0 {
		return nil
	}
	flags := fence.Flags &^ rfbwire.FenceFlagRequest
	flags &= rfbwire.FenceFlagBlockBefore | rfbwire.FenceFlagBlockAfter
	s.sendInput(writeend.Event{Kind: writeend.EventFence, FenceFlags: flags, FencePayload: fence.Payload})
	return nil
}

// handleFramebufferUpdate drains one update: wait out the previous
// frame's finalizer, apply a deferred resize, read every rectangle
// into a decode job, then hand frame finalization to the fb-updater.
func (s *Session) handleFramebufferUpdate() error {
	header, err := rfbwire.ReadFramebufferUpdateHeader(s.cr)
	if err != nil {
		return errors.Wrap(err, "rfbsession: FramebufferUpdate header")
	}

	if s.prevFinalize != nil {
		start := time.Now()
		waitErr := s.prevFinalize.Wait()
		if s.cfg.Throttle {
			s.throttle.RegisterLeftoverFrameDelay(time.Since(start))
		}
		if waitErr != nil {
			return errors.Wrap(waitErr, "rfbsession: previous frame's finalize")
		}
	}

	if s.pendingResize != nil {
		s.applyResize(*s.pendingResize)
		s.pendingResize = nil
	}

	area := 0
	for i := uint16(0); i < header.NumRects; i++ {
		rect, err := rfbwire.ReadRectangleHeader(s.cr)
		if err != nil {
			return errors.Wrap(err, "rfbsession: rectangle header")
		}
		area += rect.Area()

		last, err := s.handleRectangle(rect)
		if err != nil {
			return errors.Wrapf(err, "rfbsession: rectangle at (%d,%d)", rect.X, rect.Y)
		}
		if last {
			break
		}
	}

	s.cfg.Metrics.SetQueueDepth("decode", s.dispatcher.PendingCount())
	fc := s.dispatcher.Finish()

	fbArea := s.fb.Width() * s.fb.Height()
	s.bench.addFrame(area, fbArea)
	if fbArea > 0 && area == fbArea {
		s.fullAreaStreak++
		if s.fullAreaStreak == s.zeroCopyThreshold {
			s.zeroCopy = true
			s.log.Debug("zero-copy mode on")
		}
	} else {
		if s.zeroCopy {
			s.log.Debug("zero-copy mode off")
		}
		s.zeroCopy = false
		s.fullAreaStreak = 0
		s.sendInput(writeend.Event{
			Kind: writeend.EventUpdateRequest, Incremental: false,
			Width: uint16(s.fb.Width()), Height: uint16(s.fb.Height()),
		})
	}

	s.prevFinalize = s.spawnFinalizer(fc, s.zeroCopy)
	s.cfg.Metrics.IncFrame()

	if s.cfg.Throttle {
		sleep := s.throttle.SleepDuration()
		s.cfg.Metrics.ObserveThrottleSleep(sleep.Seconds())
		time.Sleep(sleep)
	}
	return nil
}

// spawnFinalizer runs on the single-threaded fb-updater pool: it waits
// for this frame's decode jobs, then either moves the framebuffer
// (zero-copy) or converts/copies it out, updates the cursor if
// changed, and delivers the frame to the view.
func (s *Session) spawnFinalizer(fc *decode.FutureCollection, zeroCopy bool) *workerpool.Future {
	return s.fbUpdater.Spawn(func(interface{}) error {
		if err := fc.Wait(); err != nil {
			return err
		}

		var data []byte
		var width, height int
		desired := s.view.DesiredPixelFormat()

		if zeroCopy && desired == view.NativeBGRx {
			s.lock.Acquire(modelock.Resizing)
			width, height = s.fb.Width(), s.fb.Height()
			data = s.fb.TakeData()
			s.lock.Release()
		} else {
			dest := decode.FormatNativeBGRx
			if desired == view.RGB {
				dest = decode.FormatRGB
			}
			var err error
			data, width, height, err = s.dispatcher.ConvertOrCopyFB(dest)
			if err != nil {
				return err
			}
		}

		if rgba, cw, ch, hx, hy, ok := s.cursor.TakeIfChanged(); ok {
			s.view.UpdateCursor(rgba, cw, ch, hx, hy)
		}

		if s.cfg.Throttle {
			s.view.UpdateFramebufferSync(data, width, height)
		} else {
			s.view.UpdateFramebuffer(data, width, height)
		}
		return nil
	})
}

func (s *Session) applyResize(r pendingResize) {
	s.view.ChangeDisplaySize(int(r.width), int(r.height))
	s.lock.Acquire(modelock.Resizing)
	s.fb.Resize(int(r.width), int(r.height))
	s.lock.Release()
	s.sendInput(writeend.Event{
		Kind: writeend.EventEnableContinuousUpdates, On: true,
		X0: 0, Y0: 0, Width: r.width, Height: r.height,
	})
}

// handleRectangle reads the rectangle's payload off the socket (the
// only I/O the session does mid-frame) and enqueues it as a decode
// job. It returns last=true for LastRect, which ends the rectangle
// loop for this update.
func (s *Session) handleRectangle(rect rfbwire.Rectangle) (last bool, err error) {
	switch rect.Encoding {
	case rfbwire.EncLastRect:
		return true, nil

	case rfbwire.EncDesktopSize:
		s.pendingResize = &pendingResize{width: rect.Width, height: rect.Height}
		return false, nil

	case rfbwire.EncExtendedDesktopSize:
		return false, s.handleExtendedDesktopSize(rect)

	case rfbwire.EncCursor:
		return false, s.handleCursorRect(rect)

	case rfbwire.EncRaw:
		return false, s.handleRawRect(rect)

	case rfbwire.EncTight:
		return false, s.handleTightRect(rect)

	default:
		return false, fmt.Errorf("rfbsession: unhandled rectangle encoding %d", rect.Encoding)
	}
}

func (s *Session) handleExtendedDesktopSize(rect rfbwire.Rectangle) error {
	if _, err := rfbwire.ReadExtendedDesktopSizeBody(s.cr); err != nil {
		return err
	}
	// The server's screen layout itself isn't tracked further: this
	// client only ever requests a single full-area screen in
	// SetDesktopSize, so there's nothing downstream to apply it to.
	s.sendInput(writeend.Event{Kind: writeend.EventAllowSetDesktopSize})
	if rect.Y == rfbwire.ExtendedDesktopNoError {
		s.pendingResize = &pendingResize{width: rect.Width, height: rect.Height}
	}
	return nil
}

func (s *Session) handleCursorRect(rect rfbwire.Rectangle) error {
	width, height := int(rect.Width), int(rect.Height)
	pixels := make([]byte, width*height*4)
	if _, err := io.ReadFull(s.cr, pixels); err != nil {
		return errors.Wrap(err, "rfbsession: cursor pixels")
	}
	rowBytes := (width + 7) / 8
	mask := make([]byte, rowBytes*height)
	if _, err := io.ReadFull(s.cr, mask); err != nil {
		return errors.Wrap(err, "rfbsession: cursor bitmask")
	}
	s.dispatcher.Enqueue(decode.Job{
		Kind: decode.JobRect,
		X:    int(rect.X), Y: int(rect.Y), Width: width, Height: height,
		Method: decode.EncodingMethod{Kind: decode.MethodCursor, CursorPixels: pixels, CursorBitmask: mask},
	})
	return nil
}

func (s *Session) handleRawRect(rect rfbwire.Rectangle) error {
	width, height := int(rect.Width), int(rect.Height)
	data := make([]byte, width*height*4)
	if _, err := io.ReadFull(s.cr, data); err != nil {
		return errors.Wrap(err, "rfbsession: raw rectangle")
	}
	s.cfg.Metrics.AddBytesDecoded("raw", len(data))
	s.dispatcher.Enqueue(decode.Job{
		Kind: decode.JobRect,
		X:    int(rect.X), Y: int(rect.Y), Width: width, Height: height,
		Method: decode.EncodingMethod{Kind: decode.MethodRaw, RawBGRx: data},
	})
	return nil
}
