package wire

import (
	"bytes"
	"testing"
)

// BenchmarkBufferWriteUint32 benchmarks appending a single big-endian
// uint32 to an already-grown Buffer.
func BenchmarkBufferWriteUint32(b *testing.B) {
	buf := NewBuffer(4)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		buf.WriteUint32(0xDEADBEEF)
	}
	b.SetBytes(4)
}

// BenchmarkCompactLikePayloadEncode benchmarks a write pattern shaped like a
// single compact measurement: flags, signal index, value, ticks-offset.
func BenchmarkCompactLikePayloadEncode(b *testing.B) {
	buf := NewBuffer(13)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		buf.WriteUint8(0x02)
		buf.WriteUint16(17)
		buf.WriteFloat32(60.017)
		buf.WriteUint32(123456)
	}
	b.SetBytes(int64(buf.Len()))
}

// BenchmarkStringEncodeUTF16LE benchmarks encoding a typical measurement
// tag as UTF-16LE, the default .NET string encoding.
func BenchmarkStringEncodeUTF16LE(b *testing.B) {
	s := "SHELBY-FQ"
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = EncodeString(s, UTF16LE)
	}
}

// BenchmarkCommandFrameRoundtrip benchmarks writing and reading a single
// command frame through an in-memory buffer.
func BenchmarkCommandFrameRoundtrip(b *testing.B) {
	payload := []byte("benchmark payload for command frame")
	var buf bytes.Buffer
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := WriteCommandFrame(&buf, CommandSubscribe, payload); err != nil {
			b.Fatalf("write: %v", err)
		}
		if _, _, err := ReadCommandFrame(&buf); err != nil {
			b.Fatalf("read: %v", err)
		}
	}
	b.SetBytes(int64(len(payload)))
}

// BenchmarkGuidSwap benchmarks the .NET/GEP layout byte permutation.
func BenchmarkGuidSwap(b *testing.B) {
	data := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		data = SwapGuidBytes(data)
	}
}
