package rfbwire

import (
	"encoding/binary"
	"io"
)

// CountingReader wraps an io.Reader and tracks the number of bytes
// consumed so far, giving parse errors a byte offset to report. Field
// reads are modeled as small functions over a *CountingReader rather
// than a generic descriptor table.
type CountingReader struct {
	r      io.Reader
	offset int64
}

func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.offset += int64(n)
	return n, err
}

func (cr *CountingReader) Offset() int64 { return cr.offset }

// readFull reads exactly len(buf) bytes, reporting the packet name and
// the offset reached (after any partially read bytes) on failure.
func readFull(cr *CountingReader, packet string, buf []byte) error {
	if _, err := io.ReadFull(cr, buf); err != nil {
		return newParseError(KindTransport, packet, cr.offset, "short read", err)
	}
	return nil
}

func readUint8(cr *CountingReader, packet string) (uint8, error) {
	var buf [1]byte
	if err := readFull(cr, packet, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readUint16(cr *CountingReader, packet string) (uint16, error) {
	var buf [2]byte
	if err := readFull(cr, packet, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readInt32(cr *CountingReader, packet string) (int32, error) {
	var buf [4]byte
	if err := readFull(cr, packet, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func readUint32(cr *CountingReader, packet string) (uint32, error) {
	var buf [4]byte
	if err := readFull(cr, packet, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readPadding(cr *CountingReader, packet string, n int) error {
	buf := make([]byte, n)
	return readFull(cr, packet, buf)
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeInt32(w io.Writer, v int32) error {
	return writeUint32(w, uint32(v))
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writePadding(w io.Writer, n int) error {
	_, err := w.Write(make([]byte, n))
	return err
}
