package compact

import (
	"testing"

	"github.com/gridprotectionalliance/gep-publisher/internal/measurement"
	"github.com/gridprotectionalliance/gep-publisher/internal/signalindex"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// FuzzDecodeNeverPanics feeds random bytes to Decoder.Decode to ensure
// malformed compact measurement records are rejected with an error, never
// a panic, regardless of whether the signal index happens to resolve.
func FuzzDecodeNeverPanics(f *testing.F) {
	signalID := wire.NewGuid([16]byte{7})
	cache := signalindex.NewCache()
	cache.AddMeasurementKey(0, signalID, "SHELBY", 45, "SHELBY-FQ")
	base := NewBaseTimeOffsets(1_000_000_000)

	enc := &Encoder{Cache: cache, BaseTimes: base, IncludeTime: true}
	buf := wire.NewBuffer(16)
	enc.Encode(buf, measurement.Measurement{SignalID: signalID, Value: 1, Multiplier: 1, Timestamp: base.Active() + 10})
	f.Add(buf.Bytes())

	f.Add([]byte{})
	f.Add([]byte{0x40})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	dec := &Decoder{Cache: cache, BaseTimes: base, IncludeTime: true}

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = dec.Decode(wire.NewReader(data))
	})
}

// FuzzDecodeFixedNeverPanics feeds random bytes to DecodeFixed.
func FuzzDecodeFixedNeverPanics(f *testing.F) {
	buf := wire.NewBuffer(FixedSize)
	EncodeFixed(buf, 1, measurement.Measurement{Value: 1.5, Timestamp: 10})
	f.Add(buf.Bytes())
	f.Add([]byte{})
	f.Add(make([]byte, FixedSize-1))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _, _ = DecodeFixed(wire.NewReader(data))
	})
}
