package rfbsession

import (
	"fmt"
	"io"
	"os"
	"time"
)

// benchReportInterval is how often --benchmark prints a line.
const benchReportInterval = time.Second

// benchmarkStats accumulates the two numbers --benchmark prints: a full-area-equivalent frame rate, and the same rate with
// time spent blocked waiting for the server subtracted out. It is only
// touched from the session's own goroutine (runIteration/
// handleFramebufferUpdate), so it needs no locking.
type benchmarkStats struct {
	out         io.Writer
	windowStart time.Time
	frameEquiv  float64
	serverWait  time.Duration
}

func newBenchmarkStats() *benchmarkStats {
	return &benchmarkStats{out: os.Stdout, windowStart: time.Now()}
}

// addServerWait records time spent blocked in a socket read waiting for
// the server to send the next message.
func (b *benchmarkStats) addServerWait(d time.Duration) {
	if b == nil {
		return
	}
	b.serverWait += d
}

// addFrame records one FramebufferUpdate's coverage as a fraction of a
// full-area frame (an update covering the whole framebuffer counts as
// 1.0; a smaller incremental update counts proportionally less), then
// prints and resets the window if benchReportInterval has elapsed.
func (b *benchmarkStats) addFrame(area, fbArea int) {
	if b == nil {
		return
	}
	if fbArea > 0 {
		b.frameEquiv += float64(area) / float64(fbArea)
	}

	elapsed := time.Since(b.windowStart)
	if elapsed < benchReportInterval {
		return
	}

	fps := b.frameEquiv / elapsed.Seconds()
	effective := elapsed - b.serverWait
	effectiveFps := fps
	if effective > 0 {
		effectiveFps = b.frameEquiv / effective.Seconds()
	}
	fmt.Fprintf(b.out, "%f %f\n", fps, effectiveFps)

	b.windowStart = time.Now()
	b.frameEquiv = 0
	b.serverWait = 0
}
