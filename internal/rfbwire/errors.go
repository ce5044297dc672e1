// Package rfbwire implements the RFB 3.8 wire codec: the bidirectional
// serializer/parser for protocol packets, independent of any particular
// transport or session state machine.
package rfbwire

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrKind classifies a wire-level failure: transport, parse
// (encoding/predicate/discriminator), or server-reported.
type ErrKind int

const (
	KindTransport ErrKind = iota
	KindEncoding
	KindPredicateFailed
	KindInvalidDiscriminator
	KindServerReported
)

func (k ErrKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindEncoding:
		return "encoding"
	case KindPredicateFailed:
		return "predicate-failed"
	case KindInvalidDiscriminator:
		return "invalid-discriminator"
	case KindServerReported:
		return "server-reported"
	default:
		return "unknown"
	}
}

// ParseError carries the packet name and byte offset of a wire-level
// failure so a caller can locate where framing went wrong.
type ParseError struct {
	Kind   ErrKind
	Packet string
	Offset int64
	Reason string
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s at offset %d: %s: %v", e.Packet, e.Kind, e.Offset, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s at offset %d: %s", e.Packet, e.Kind, e.Offset, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Cause }

var errFenceTooLarge = errors.New("fence payload exceeds 255 bytes")

func newParseError(kind ErrKind, packet string, offset int64, reason string, cause error) error {
	return errors.WithStack(&ParseError{
		Kind:   kind,
		Packet: packet,
		Offset: offset,
		Reason: reason,
		Cause:  cause,
	})
}
