// Package wire implements the GEP binary wire codec: big-endian primitives,
// length-prefixed strings in a negotiated encoding, and the dual Guid byte
// layouts used at the protocol boundary.
package wire

import (
	"encoding/binary"
	"math"
)

// Buffer is a growable byte buffer used for GEP binary encoding. All
// multi-byte integers are written in big-endian order.
type Buffer struct {
	data []byte
}

// NewBuffer returns a Buffer pre-allocated with the given capacity.
func NewBuffer(cap int) *Buffer {
	return &Buffer{data: make([]byte, 0, cap)}
}

// Bytes returns the accumulated encoded bytes.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Reset clears the buffer for reuse.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}

// grow ensures room for n additional bytes, returning the write offset.
func (b *Buffer) grow(n int) int {
	off := len(b.data)
	need := off + n
	if need <= cap(b.data) {
		b.data = b.data[:need]
		return off
	}
	newCap := cap(b.data) * 2
	if newCap < need {
		newCap = need
	}
	tmp := make([]byte, need, newCap)
	copy(tmp, b.data)
	b.data = tmp
	return off
}

// WriteUint8 appends a single byte.
func (b *Buffer) WriteUint8(v uint8) {
	off := b.grow(1)
	b.data[off] = v
}

// WriteUint16 appends a 16-bit unsigned integer in big-endian order.
func (b *Buffer) WriteUint16(v uint16) {
	off := b.grow(2)
	binary.BigEndian.PutUint16(b.data[off:], v)
}

// WriteUint32 appends a 32-bit unsigned integer in big-endian order.
func (b *Buffer) WriteUint32(v uint32) {
	off := b.grow(4)
	binary.BigEndian.PutUint32(b.data[off:], v)
}

// WriteUint64 appends a 64-bit unsigned integer in big-endian order.
func (b *Buffer) WriteUint64(v uint64) {
	off := b.grow(8)
	binary.BigEndian.PutUint64(b.data[off:], v)
}

// WriteInt64 appends a 64-bit signed integer in big-endian order.
func (b *Buffer) WriteInt64(v int64) {
	b.WriteUint64(uint64(v))
}

// WriteFloat32 appends a 32-bit IEEE 754 float in big-endian order. NaN bit
// patterns pass through unchanged.
func (b *Buffer) WriteFloat32(v float32) {
	b.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 appends a 64-bit IEEE 754 float in big-endian order.
func (b *Buffer) WriteFloat64(v float64) {
	b.WriteUint64(math.Float64bits(v))
}

// WriteRawBytes appends p without a length prefix.
func (b *Buffer) WriteRawBytes(p []byte) {
	off := b.grow(len(p))
	copy(b.data[off:], p)
}

// WriteString appends a length-prefixed string (uint32 byte count + bytes
// encoded per enc).
func (b *Buffer) WriteString(s string, enc StringEncoding) {
	encoded := EncodeString(s, enc)
	b.WriteUint32(uint32(len(encoded)))
	b.WriteRawBytes(encoded)
}

// WriteBytes appends a length-prefixed byte slice (uint32 length + bytes).
func (b *Buffer) WriteBytes(p []byte) {
	b.WriteUint32(uint32(len(p)))
	b.WriteRawBytes(p)
}

// WriteGuid appends a Guid using the requested on-wire layout.
func (b *Buffer) WriteGuid(g Guid, layout GuidLayout) {
	b.WriteRawBytes(g.Bytes(layout))
}
