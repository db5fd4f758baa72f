package compact

import (
	"fmt"
	"math"

	"github.com/gridprotectionalliance/gep-publisher/internal/measurement"
	"github.com/gridprotectionalliance/gep-publisher/internal/signalindex"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// unknownSignalIndex mirrors the signal-index cache's sentinel for "not
// subscribed"; measurements that resolve to it are skipped by the encoder.
const unknownSignalIndex = 0xFFFF

// Encoder serializes Measurements into the compact wire format for one
// subscriber connection, using that connection's signal-index cache and
// base-time-offset windows.
type Encoder struct {
	Cache                    *signalindex.Cache
	BaseTimes                *BaseTimeOffsets
	IncludeTime              bool
	UseMillisecondResolution bool
}

// Encode appends m's compact encoding to buf. It returns false without
// writing anything if m's signal is not present in the encoder's
// signal-index cache (the connection is not subscribed to it).
func (e *Encoder) Encode(buf *wire.Buffer, m measurement.Measurement) bool {
	signalIndex := e.Cache.GetSignalIndex(m.SignalID)
	if signalIndex == unknownSignalIndex {
		return false
	}

	compactFlags := mapToCompactFlags(m.Flags)

	var usingBaseTimeOffset bool
	var difference int64
	var timeIndex int32

	if e.BaseTimes != nil {
		timeIndex = e.BaseTimes.ActiveIndex()
		difference = m.Timestamp - e.BaseTimes.Offset(timeIndex)
		if difference > 0 {
			if e.UseMillisecondResolution {
				usingBaseTimeOffset = difference/10000 < maxOffsetTicks
			} else {
				usingBaseTimeOffset = difference < maxOffsetTicks
			}
		}
	}

	if usingBaseTimeOffset {
		compactFlags |= flagBaseTimeOffset
	}
	if timeIndex != 0 {
		compactFlags |= flagTimeIndex
	}

	buf.WriteUint8(compactFlags)
	buf.WriteUint16(signalIndex)
	buf.WriteFloat32(float32(m.AdjustedValue()))

	if !e.IncludeTime {
		return true
	}

	switch {
	case usingBaseTimeOffset && e.UseMillisecondResolution:
		buf.WriteUint16(uint16(difference / 10000))
	case usingBaseTimeOffset:
		buf.WriteUint32(uint32(difference))
	default:
		buf.WriteInt64(m.Timestamp)
	}

	return true
}

// Decoder parses compact-encoded measurements read from a subscriber's data
// channel, using the same signal-index cache and base-time-offset windows
// negotiated when the subscription was built.
type Decoder struct {
	Cache                    *signalindex.Cache
	BaseTimes                *BaseTimeOffsets
	IncludeTime              bool
	UseMillisecondResolution bool
}

// Decode parses one compact-encoded measurement from r.
func (d *Decoder) Decode(r *wire.Reader) (measurement.Measurement, error) {
	var m measurement.Measurement

	compactFlags, err := r.ReadUint8()
	if err != nil {
		return m, err
	}

	timeIndex := int32(0)
	if compactFlags&flagTimeIndex != 0 {
		timeIndex = 1
	}
	usingBaseTimeOffset := compactFlags&flagBaseTimeOffset != 0

	if usingBaseTimeOffset && (d.BaseTimes == nil || d.BaseTimes.Offset(timeIndex) == 0) {
		return m, fmt.Errorf("compact: base-time offset flag set but window %d is undefined", timeIndex)
	}

	signalIndex, err := r.ReadUint16()
	if err != nil {
		return m, err
	}

	signalID, source, id, ok := d.Cache.GetMeasurementKey(signalIndex)
	if !ok {
		return m, fmt.Errorf("compact: signal index %d not present in signal-index cache", signalIndex)
	}

	value, err := r.ReadFloat32()
	if err != nil {
		return m, err
	}

	m.Flags = mapToFullFlags(compactFlags)
	m.SignalID = signalID
	m.Source = source
	m.ID = id
	m.Value = float64(value)

	if !d.IncludeTime {
		return m, nil
	}

	switch {
	case !usingBaseTimeOffset:
		ts, err := r.ReadInt64()
		if err != nil {
			return m, err
		}
		m.Timestamp = ts
	case d.UseMillisecondResolution:
		msOffset, err := r.ReadUint16()
		if err != nil {
			return m, err
		}
		m.Timestamp = d.BaseTimes.Offset(timeIndex) + int64(msOffset)*10000
	default:
		ticksOffset, err := r.ReadUint32()
		if err != nil {
			return m, err
		}
		m.Timestamp = d.BaseTimes.Offset(timeIndex) + int64(ticksOffset)
	}

	return m, nil
}

// IsNaN reports whether m's value is non-finite, the condition the NaN
// filter drops before encoding.
func IsNaN(m measurement.Measurement) bool {
	return math.IsNaN(m.Value) || math.IsInf(m.Value, 0)
}
