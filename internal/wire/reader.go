package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer is returned when the Reader has fewer bytes than required.
var ErrShortBuffer = errors.New("wire: insufficient data in buffer")

// Reader provides sequential, zero-copy decoding of GEP-encoded data.
type Reader struct {
	data   []byte
	offset int
}

// NewReader wraps an existing byte slice for decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.offset
}

// need checks that at least n bytes remain and returns the current offset.
func (r *Reader) need(n int) (int, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return 0, ErrShortBuffer
	}
	off := r.offset
	r.offset += n
	return off, nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	off, err := r.need(1)
	if err != nil {
		return 0, err
	}
	return r.data[off], nil
}

// ReadUint16 reads a 16-bit unsigned integer in big-endian order.
func (r *Reader) ReadUint16() (uint16, error) {
	off, err := r.need(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r.data[off:]), nil
}

// ReadUint32 reads a 32-bit unsigned integer in big-endian order.
func (r *Reader) ReadUint32() (uint32, error) {
	off, err := r.need(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(r.data[off:]), nil
}

// ReadUint64 reads a 64-bit unsigned integer in big-endian order.
func (r *Reader) ReadUint64() (uint64, error) {
	off, err := r.need(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(r.data[off:]), nil
}

// ReadInt64 reads a 64-bit signed integer in big-endian order.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads a 32-bit IEEE 754 float in big-endian order.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadFloat64 reads a 64-bit IEEE 754 float in big-endian order.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadRawBytes reads exactly n bytes without a length prefix. The returned
// slice aliases the Reader's underlying buffer.
func (r *Reader) ReadRawBytes(n int) ([]byte, error) {
	off, err := r.need(n)
	if err != nil {
		return nil, err
	}
	return r.data[off : off+n], nil
}

// ReadString reads a length-prefixed string encoded per enc. The returned
// string always holds its own UTF-8 copy of the data.
func (r *Reader) ReadString(enc StringEncoding) (string, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	off, err := r.need(int(length))
	if err != nil {
		return "", err
	}
	return DecodeString(r.data[off:off+int(length)], enc)
}

// ReadBytes reads a length-prefixed byte slice. The returned slice is a
// copy, safe to retain past the Reader's lifetime.
func (r *Reader) ReadBytes() ([]byte, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	off, err := r.need(int(length))
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, r.data[off:off+int(length)])
	return out, nil
}

// ReadGuid reads a Guid encoded in the requested on-wire layout.
func (r *Reader) ReadGuid(layout GuidLayout) (Guid, error) {
	raw, err := r.ReadRawBytes(16)
	if err != nil {
		return Guid{}, err
	}
	return GuidFromBytes(raw, layout)
}
