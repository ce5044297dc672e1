// Package udpmouse implements the relative-mouse side channel: a
// separate UDP connection to a companion server
// at port tcp_port-5900+5100, carrying only integer mouse deltas once
// they accumulate to at least one pixel or the button state changes.
package udpmouse

import (
	"encoding/binary"
	"net"
	"strconv"
)

// Port computes the companion server's UDP port from the RFB TCP port.
func Port(tcpPort int) int { return tcpPort - 5900 + 5100 }

// Difference accumulates fractional (dx,dy) motion and yields whole
// pixels once they cross the 1.0 threshold, carrying the fractional
// remainder forward so slow, sub-pixel motion still adds up correctly
// over many events instead of being truncated away each time.
type Difference struct {
	x, y float64
}

func (d *Difference) Add(dx, dy float64) {
	d.x += dx
	d.y += dy
}

// RemoveIntegerParts extracts and removes the whole-pixel part of the
// accumulated difference, leaving any fractional remainder in place.
func (d *Difference) RemoveIntegerParts() (dx, dy int) {
	if d.x >= 1.0 || d.x <= -1.0 {
		dx = int(d.x)
		d.x -= float64(dx)
	}
	if d.y >= 1.0 || d.y <= -1.0 {
		dy = int(d.y)
		d.y -= float64(dy)
	}
	return dx, dy
}

// Sender owns the UDP connection to the companion server and the
// accumulator/previous-button-state needed to decide when a datagram
// is actually worth sending.
type Sender struct {
	conn        *net.UDPConn
	diff        Difference
	prevButtons uint8
}

// Dial opens the UDP connection to host:Port(tcpPort).
func Dial(host string, tcpPort int) (*Sender, error) {
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(Port(tcpPort))))
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	return &Sender{conn: conn}, nil
}

// Close closes the underlying UDP connection.
func (s *Sender) Close() error { return s.conn.Close() }

// Move records one relative-pointer GUI event. It emits a datagram iff
// the accumulated motion has crossed a whole pixel in either axis or
// the button mask changed since the last event.
func (s *Sender) Move(buttons uint8, dx, dy float64) error {
	s.diff.Add(dx, dy)
	intDx, intDy := s.diff.RemoveIntegerParts()
	stateChanged := buttons != s.prevButtons
	s.prevButtons = buttons

	if intDx == 0 && intDy == 0 && !stateChanged {
		return nil
	}

	var msg [6]byte
	msg[0] = 0 // reserved
	msg[1] = buttons
	binary.BigEndian.PutUint16(msg[2:4], uint16(int16(intDx)))
	binary.BigEndian.PutUint16(msg[4:6], uint16(int16(intDy)))
	_, err := s.conn.Write(msg[:])
	return err
}
