package compact

import (
	"github.com/gridprotectionalliance/gep-publisher/internal/measurement"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// FixedSize is the byte length of the fixed measurement encoding: an
// 8-byte runtime ID, an 8-byte flags field, an 8-byte f64 value, an 8-byte
// tick timestamp, and 2 reserved bytes. Runtime ID and flags are widened
// from their conceptual 32-bit width to keep every field 8-byte aligned.
const FixedSize = 34

// EncodeFixed appends m's fixed-format encoding to buf. Unlike the compact
// format, this encoding carries m.Value at full f64 precision (no adder or
// multiplier applied) and an absolute timestamp, and needs no
// signal-index cache: runtimeID identifies the signal directly.
func EncodeFixed(buf *wire.Buffer, runtimeID uint32, m measurement.Measurement) {
	buf.WriteUint64(uint64(runtimeID))
	buf.WriteUint64(uint64(m.Flags))
	buf.WriteFloat64(m.Value)
	buf.WriteInt64(m.Timestamp)
	buf.WriteUint16(0) // reserved
}

// DecodeFixed parses one fixed-format measurement from r.
func DecodeFixed(r *wire.Reader) (runtimeID uint32, m measurement.Measurement, err error) {
	rawID, err := r.ReadUint64()
	if err != nil {
		return 0, m, err
	}
	rawFlags, err := r.ReadUint64()
	if err != nil {
		return 0, m, err
	}
	value, err := r.ReadFloat64()
	if err != nil {
		return 0, m, err
	}
	timestamp, err := r.ReadInt64()
	if err != nil {
		return 0, m, err
	}
	if _, err := r.ReadUint16(); err != nil { // reserved
		return 0, m, err
	}

	runtimeID = uint32(rawID)
	m.Flags = uint32(rawFlags)
	m.Value = value
	m.Timestamp = timestamp
	return runtimeID, m, nil
}
