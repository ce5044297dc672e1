package rfbwire

import (
	"io"

	"github.com/pkg/errors"
)

// MaxCompactLength is the largest value a 1-3 byte compact length can
// carry: the first two bytes contribute 7 payload bits each, the third
// contributes a full 8 since no fourth byte ever follows.
const MaxCompactLength = 1<<22 - 1 // 4,194,303

var ErrCompactLengthTooLarge = errors.New("number too large")

// ReadCompactLength decodes a 1-3 byte little-endian variable-length
// integer. The first two bytes carry 7 payload bits each with the high
// bit as a continuation flag; a third byte, if present, is never
// followed by a fourth and so carries all 8 bits as payload.
func ReadCompactLength(cr *CountingReader) (int, error) {
	b0, err := readUint8(cr, "CompactLength")
	if err != nil {
		return 0, err
	}
	length := int(b0 & 0x7f)
	if b0&0x80 == 0 {
		return length, nil
	}

	b1, err := readUint8(cr, "CompactLength")
	if err != nil {
		return 0, err
	}
	length |= int(b1&0x7f) << 7
	if b1&0x80 == 0 {
		return length, nil
	}

	b2, err := readUint8(cr, "CompactLength")
	if err != nil {
		return 0, err
	}
	length |= int(b2) << 14
	return length, nil
}

// WriteCompactLength encodes v as a 1-3 byte compact length. It rejects
// values above MaxCompactLength.
func WriteCompactLength(w io.Writer, v int) error {
	if v < 0 || v > MaxCompactLength {
		return ErrCompactLengthTooLarge
	}

	b0 := byte(v & 0x7f)
	if v <= 0x7f {
		return writeUint8(w, b0)
	}
	if err := writeUint8(w, b0|0x80); err != nil {
		return err
	}

	b1 := byte((v >> 7) & 0x7f)
	if v <= 0x3fff {
		return writeUint8(w, b1)
	}
	if err := writeUint8(w, b1|0x80); err != nil {
		return err
	}

	return writeUint8(w, byte(v>>14))
}

// ReadCompactLengthFrom is a convenience wrapper for callers that only
// have a plain io.Reader (e.g. tests) rather than a *CountingReader.
func ReadCompactLengthFrom(r io.Reader) (int, error) {
	return ReadCompactLength(NewCountingReader(r))
}
