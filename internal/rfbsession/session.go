// Package rfbsession implements the central RFB client state machine:
// the Version/Security/Init/Configure handshake
// followed by the Main loop that reads framebuffer updates off the
// socket and hands their rectangles to the decoding dispatcher.
package rfbsession

import (
	"bufio"
	"net"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/pid0/flashvnc/internal/decode"
	"github.com/pid0/flashvnc/internal/framebuf"
	"github.com/pid0/flashvnc/internal/menu"
	"github.com/pid0/flashvnc/internal/metrics"
	"github.com/pid0/flashvnc/internal/modelock"
	"github.com/pid0/flashvnc/internal/rfbwire"
	"github.com/pid0/flashvnc/internal/throttle"
	"github.com/pid0/flashvnc/internal/udpmouse"
	"github.com/pid0/flashvnc/internal/workerpool"
	"github.com/pid0/flashvnc/internal/writeend"
	"github.com/pid0/flashvnc/view"
)

// defaultZeroCopyThreshold is the number of consecutive full-
// framebuffer-area updates that switch the session into zero-copy
// delivery when Config.ZeroCopyThreshold is left unset. The number is
// a heuristic with no empirical backing, so it stays configurable
// rather than baked in.
const defaultZeroCopyThreshold = 60

// Config holds everything needed to open and configure a session.
type Config struct {
	Host string
	Port int

	Quality   rfbwire.Quality
	Throttle  bool
	Benchmark bool

	// ZeroCopyThreshold overrides defaultZeroCopyThreshold when
	// positive.
	ZeroCopyThreshold int

	Logger *log.Logger

	// Metrics is optional; a nil *metrics.Metrics turns every recorder
	// call into a no-op.
	Metrics *metrics.Metrics
}

// Session is the connection's state machine: one socket, one
// decoding dispatcher, one write-end goroutine, for the life of a
// connection.
type Session struct {
	cfg Config
	log *log.Logger

	conn net.Conn
	r    *bufio.Reader
	cr   *rfbwire.CountingReader
	w    *bufio.Writer

	init rfbwire.ServerInit

	fb         *framebuf.Buffer
	lock       *modelock.Lock
	cursor     *decode.Cursor
	dispatcher *decode.Dispatcher
	fbUpdater  *workerpool.Pool

	we    *writeend.WriteEnd
	mouse *udpmouse.Sender

	throttle *throttle.Controller

	view view.View
	menu *menu.Menu

	quality rfbwire.Quality

	zeroCopyThreshold int
	fullAreaStreak    int
	zeroCopy          bool

	pendingResize *pendingResize
	prevFinalize  *workerpool.Future

	bench *benchmarkStats
}

type pendingResize struct {
	width, height uint16
}

// Dial opens the TCP connection, runs the Version/Security/Init/
// Configure handshake, and wires up the decoding dispatcher and
// write-end but does not yet start the Main loop (call Run for that).
func Dial(cfg Config, v view.View) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "rfbsession: connecting to %s", addr)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			logger.Warn("could not disable Nagle's algorithm", "err", err)
		}
	}

	zeroCopyThreshold := cfg.ZeroCopyThreshold
	if zeroCopyThreshold <= 0 {
		zeroCopyThreshold = defaultZeroCopyThreshold
	}

	s := &Session{
		cfg:               cfg,
		log:               logger,
		conn:              conn,
		r:                 bufio.NewReader(conn),
		w:                 bufio.NewWriter(conn),
		quality:           cfg.Quality,
		zeroCopyThreshold: zeroCopyThreshold,
	}
	s.cr = rfbwire.NewCountingReader(s.r)

	if err := s.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.configure(); err != nil {
		conn.Close()
		return nil, err
	}

	s.fb = framebuf.New()
	s.fb.Resize(int(s.init.Width), int(s.init.Height))
	s.lock = modelock.New()
	s.cursor = decode.NewCursor()
	s.dispatcher = decode.New(s.fb, s.lock, s.cursor)
	s.fbUpdater = workerpool.New("fb-updater", 1, func() interface{} { return nil })
	s.throttle = throttle.New()
	s.view = v
	s.menu = menu.New(s)
	if cfg.Benchmark {
		s.bench = newBenchmarkStats()
	}

	// Dialed eagerly regardless of whether relative-mouse mode starts
	// armed: a UDP "connection" never blocks or fails on an unreachable
	// peer, and the write-end needs a non-nil Sender from the start if
	// the menu ever toggles the mode on mid-session.
	mouse, err := udpmouse.Dial(cfg.Host, cfg.Port)
	if err != nil {
		logger.Warn("could not open relative-mouse UDP channel", "err", err)
	} else {
		s.mouse = mouse
	}
	s.we = writeend.New(s.w, s.mouse)
	go s.we.Run()

	v.ChangeDisplaySize(int(s.init.Width), int(s.init.Height))
	v.SetTitle(s.init.Name)

	go s.forwardInput()

	return s, nil
}

func (s *Session) handshake() error {
	init, err := rfbwire.Handshake(s.r, s.w)
	if err != nil {
		return errors.Wrap(err, "rfbsession: handshake")
	}
	if err := s.w.Flush(); err != nil {
		return errors.Wrap(err, "rfbsession: handshake: flush")
	}
	s.init = init
	s.log.Info("handshake complete", "width", init.Width, "height", init.Height, "name", init.Name)
	return nil
}

// configure sends SetEncodings and
// SetPixelFormat before the Main loop starts.
func (s *Session) configure() error {
	if err := rfbwire.WriteSetEncodings(s.w, s.quality); err != nil {
		return errors.Wrap(err, "rfbsession: configure: SetEncodings")
	}
	if err := rfbwire.WriteSetPixelFormat(s.w); err != nil {
		return errors.Wrap(err, "rfbsession: configure: SetPixelFormat")
	}
	return errors.Wrap(s.w.Flush(), "rfbsession: configure: flush")
}

// Close tears down the dispatcher and underlying connection. Safe to
// call after Run returns.
func (s *Session) Close() error {
	s.fbUpdater.Close()
	s.dispatcher.Close()
	if s.mouse != nil {
		s.mouse.Close()
	}
	return s.conn.Close()
}
