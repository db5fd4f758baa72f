// Package compact implements the two on-wire measurement encodings carried
// by a DataPacket response: the self-contained fixed format and the
// bit-packed compact format that leans on a subscription's signal-index
// cache and rotating base-time-offset windows.
package compact

// Compact state-flag bits (the leading byte of a compact-encoded
// measurement), ground-truthed against the upstream protocol's compact flag
// constants.
const (
	flagDataRange        uint8 = 0x01
	flagDataQuality      uint8 = 0x02
	flagTimeQuality      uint8 = 0x04
	flagSystemIssue      uint8 = 0x08
	flagCalculatedValue  uint8 = 0x10
	flagDiscardedValue   uint8 = 0x20
	flagBaseTimeOffset   uint8 = 0x40
	flagTimeIndex        uint8 = 0x80
)

// Masks used to fold the full 32-bit measurement flags into and out of the
// 8-bit compact form.
const (
	maskDataRange       uint32 = 0x000000FC
	maskDataQuality     uint32 = 0x0000EF03
	maskTimeQuality     uint32 = 0x00BF0000
	maskSystemIssue     uint32 = 0xE0000000
	maskCalculatedValue uint32 = 0x00001000
	maskDiscardedValue  uint32 = 0x00400000
)

// mapToCompactFlags folds a measurement's full 32-bit flags down to the
// 8-bit compact representation, preserving only whether each tracked
// category of issue is present, not its exact bit pattern.
func mapToCompactFlags(fullFlags uint32) uint8 {
	var compact uint8
	if fullFlags&maskDataRange != 0 {
		compact |= flagDataRange
	}
	if fullFlags&maskDataQuality != 0 {
		compact |= flagDataQuality
	}
	if fullFlags&maskTimeQuality != 0 {
		compact |= flagTimeQuality
	}
	if fullFlags&maskSystemIssue != 0 {
		compact |= flagSystemIssue
	}
	if fullFlags&maskCalculatedValue != 0 {
		compact |= flagCalculatedValue
	}
	if fullFlags&maskDiscardedValue != 0 {
		compact |= flagDiscardedValue
	}
	return compact
}

// mapToFullFlags expands an 8-bit compact flags byte back to the full
// 32-bit representation, setting the entire mask for every category
// reported present. This is lossy relative to the original full flags: a
// category's exact sub-bits are not recoverable, only that it fired.
func mapToFullFlags(compactFlags uint8) uint32 {
	var full uint32
	if compactFlags&flagDataRange != 0 {
		full |= maskDataRange
	}
	if compactFlags&flagDataQuality != 0 {
		full |= maskDataQuality
	}
	if compactFlags&flagTimeQuality != 0 {
		full |= maskTimeQuality
	}
	if compactFlags&flagSystemIssue != 0 {
		full |= maskSystemIssue
	}
	if compactFlags&flagCalculatedValue != 0 {
		full |= maskCalculatedValue
	}
	if compactFlags&flagDiscardedValue != 0 {
		full |= maskDiscardedValue
	}
	return full
}
