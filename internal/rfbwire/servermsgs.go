package rfbwire

import "fmt"

// Server-to-client message type bytes.
const (
	MsgFramebufferUpdate     = 0
	MsgSetColourMapEntries   = 1
	MsgBell                  = 2
	MsgServerCutText         = 3
	MsgEndOfContinuousUpdates = 150
	MsgServerFence           = 248
)

// ReadServerMessageType reads the one-byte discriminator that starts
// every server-to-client message.
func ReadServerMessageType(cr *CountingReader) (uint8, error) {
	return readUint8(cr, "ServerMessage.type")
}

// FramebufferUpdateHeader is the fixed prefix of a FramebufferUpdate
// message: padding then a rectangle count. Rectangle headers and their
// payloads are read one at a time by the caller so large updates never
// need to be buffered whole.
type FramebufferUpdateHeader struct {
	NumRects uint16
}

func ReadFramebufferUpdateHeader(cr *CountingReader) (FramebufferUpdateHeader, error) {
	if err := readPadding(cr, "FramebufferUpdate.padding", 1); err != nil {
		return FramebufferUpdateHeader{}, err
	}
	n, err := readUint16(cr, "FramebufferUpdate.num-rects")
	if err != nil {
		return FramebufferUpdateHeader{}, err
	}
	return FramebufferUpdateHeader{NumRects: n}, nil
}

// SkipBell consumes a Bell message body (there is none beyond the
// type byte already read).
func SkipBell(cr *CountingReader) error { return nil }

// ReadServerCutText consumes a clipboard message and discards it; the
// client has no clipboard surface.
func ReadServerCutText(cr *CountingReader) error {
	if err := readPadding(cr, "ServerCutText.padding", 3); err != nil {
		return err
	}
	n, err := readUint32(cr, "ServerCutText.length")
	if err != nil {
		return err
	}
	buf := make([]byte, n)
	return readFull(cr, "ServerCutText.text", buf)
}

// ReadEndOfContinuousUpdates consumes the (empty) body of that message.
func ReadEndOfContinuousUpdates(cr *CountingReader) error { return nil }

// ReadSetColourMapEntries consumes and discards a colour-map message;
// pseudo-colour servers are out of scope, but the message must still be
// parsed off the wire to keep framing in sync.
func ReadSetColourMapEntries(cr *CountingReader) error {
	if err := readPadding(cr, "SetColourMapEntries.padding", 1); err != nil {
		return err
	}
	if _, err := readUint16(cr, "SetColourMapEntries.first-colour"); err != nil {
		return err
	}
	n, err := readUint16(cr, "SetColourMapEntries.num-colours")
	if err != nil {
		return err
	}
	for i := uint16(0); i < n; i++ {
		if _, err := readUint16(cr, "SetColourMapEntries.red"); err != nil {
			return err
		}
		if _, err := readUint16(cr, "SetColourMapEntries.green"); err != nil {
			return err
		}
		if _, err := readUint16(cr, "SetColourMapEntries.blue"); err != nil {
			return err
		}
	}
	return nil
}

func UnknownServerMessageError(msgType uint8, offset int64) error {
	return newParseError(KindInvalidDiscriminator, "ServerMessage.type", offset,
		fmt.Sprintf("unrecognized server message type %d", msgType), nil)
}
