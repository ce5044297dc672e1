package rfbwire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ProtocolVersion is the version line this client speaks and insists the
// server match exactly.
const ProtocolVersion = "RFB 003.008\n"

const (
	secTypeInvalid = 0
	secTypeNone    = 1
)

// NegotiateVersion performs the first handshake exchange: read the
// server's 12-byte version line, reply with ProtocolVersion, and fail if
// the server isn't speaking 3.8.
func NegotiateVersion(r io.Reader, w io.Writer) error {
	buf := make([]byte, 12)
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.WithStack(&ParseError{Kind: KindTransport, Packet: "ProtocolVersion", Reason: "short read", Cause: err})
	}
	got := string(buf)
	if got != ProtocolVersion {
		return &ParseError{
			Kind:   KindPredicateFailed,
			Packet: "ProtocolVersion",
			Reason: fmt.Sprintf("server sent %q, this client only speaks RFB version 3.8", got),
		}
	}
	_, err := w.Write([]byte(ProtocolVersion))
	return err
}

// ServerReportedError is returned when the server itself rejects the
// session and supplies a human-readable reason string (security failure,
// init failure, ...).
type ServerReportedError struct {
	Stage  string
	Reason string
}

func (e *ServerReportedError) Error() string {
	return fmt.Sprintf("%s: server reported: %s", e.Stage, e.Reason)
}

func readReasonString(cr *CountingReader, packet string) (string, error) {
	n, err := readUint32(cr, packet+".reason-length")
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := readFull(cr, packet+".reason", buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// NegotiateSecurity reads the server's list of security types, insists
// "None" is among them, replies choosing it, then reads SecurityResult.
func NegotiateSecurity(cr *CountingReader, w io.Writer) error {
	n, err := readUint8(cr, "SecurityTypes.count")
	if err != nil {
		return err
	}
	if n == 0 {
		reason, err := readReasonString(cr, "SecurityTypes")
		if err != nil {
			return err
		}
		return &ServerReportedError{Stage: "Security", Reason: reason}
	}

	types := make([]byte, n)
	if err := readFull(cr, "SecurityTypes.types", types); err != nil {
		return err
	}
	found := false
	for _, t := range types {
		if t == secTypeNone {
			found = true
			break
		}
	}
	if !found {
		return &ServerReportedError{Stage: "Security", Reason: "server does not offer authentication type None"}
	}
	if err := writeUint8(w, secTypeNone); err != nil {
		return err
	}

	result, err := readUint32(cr, "SecurityResult")
	if err != nil {
		return err
	}
	if result != 0 {
		reason, err := readReasonString(cr, "SecurityResult")
		if err != nil {
			return err
		}
		return &ServerReportedError{Stage: "Security", Reason: reason}
	}
	return nil
}

// ClientInit is the fixed-size message the client sends right after
// security negotiation succeeds.
type ClientInit struct {
	Shared uint8
}

func (ci ClientInit) Write(w io.Writer) error {
	return writeUint8(w, ci.Shared)
}

// ServerInit carries the initial framebuffer geometry, pixel format and
// desktop name, per the wire handshake.
type ServerInit struct {
	Width, Height uint16
	PixelFormat   PixelFormat
	Name          string
}

func ReadServerInit(cr *CountingReader) (ServerInit, error) {
	var si ServerInit
	var err error
	if si.Width, err = readUint16(cr, "ServerInit.width"); err != nil {
		return si, err
	}
	if si.Height, err = readUint16(cr, "ServerInit.height"); err != nil {
		return si, err
	}
	if si.PixelFormat, err = ReadPixelFormat(cr); err != nil {
		return si, err
	}
	nameLen, err := readUint32(cr, "ServerInit.name-length")
	if err != nil {
		return si, err
	}
	nameBuf := make([]byte, nameLen)
	if err := readFull(cr, "ServerInit.name", nameBuf); err != nil {
		return si, err
	}
	si.Name = string(nameBuf)
	return si, nil
}

// Handshake runs the full Version -> Security -> Init sequence and
// returns the negotiated server geometry/name. The caller is expected to
// follow up with Configure-stage messages (SetEncodings, SetPixelFormat).
func Handshake(r *bufio.Reader, w io.Writer) (ServerInit, error) {
	if err := NegotiateVersion(r, w); err != nil {
		return ServerInit{}, err
	}
	cr := NewCountingReader(r)
	if err := NegotiateSecurity(cr, w); err != nil {
		return ServerInit{}, err
	}
	if err := (ClientInit{Shared: 1}).Write(w); err != nil {
		return ServerInit{}, err
	}
	return ReadServerInit(cr)
}
