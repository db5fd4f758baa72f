package wire

import "fmt"

// GuidLayout selects one of the two on-wire byte orderings for a Guid.
// A Guid's in-memory representation (Guid.data, always GEP layout) never
// varies by source; conversion happens only at the wire boundary.
type GuidLayout int

const (
	// GEPLayout is fully big-endian: the 16 bytes are written as-is.
	GEPLayout GuidLayout = iota
	// DotNetLayout is mixed-endian: the first three fields (4+2+2 bytes)
	// are little-endian, the trailing 8 bytes are written as-is.
	DotNetLayout
)

// guidSwapOrder reorders bytes {3,2,1,0,5,4,7,6,8..15}, converting a Guid's
// 16 bytes between .NET and GEP layout. The permutation is its own inverse.
var guidSwapOrder = [16]int{3, 2, 1, 0, 5, 4, 7, 6, 8, 9, 10, 11, 12, 13, 14, 15}

// Guid is a 128-bit globally unique identifier, stored internally in GEP
// (fully big-endian) layout.
type Guid struct {
	data [16]byte
}

// NewGuid builds a Guid from 16 bytes already in GEP layout.
func NewGuid(data [16]byte) Guid {
	return Guid{data: data}
}

// GuidFromBytes parses a 16-byte slice encoded in the given layout and
// returns the equivalent Guid in canonical (GEP) in-memory form.
func GuidFromBytes(b []byte, layout GuidLayout) (Guid, error) {
	if len(b) != 16 {
		return Guid{}, fmt.Errorf("wire: guid requires 16 bytes, got %d", len(b))
	}
	var g Guid
	copy(g.data[:], b)
	if layout == DotNetLayout {
		g.data = SwapGuidBytes(g.data)
	}
	return g, nil
}

// Bytes returns the Guid's 16 bytes encoded in the requested layout.
func (g Guid) Bytes(layout GuidLayout) []byte {
	data := g.data
	if layout == DotNetLayout {
		data = SwapGuidBytes(data)
	}
	out := make([]byte, 16)
	copy(out, data[:])
	return out
}

// SwapGuidBytes reorders a Guid's 16 bytes between .NET and GEP layout.
// The permutation is an involution: SwapGuidBytes(SwapGuidBytes(b)) == b.
func SwapGuidBytes(b [16]byte) [16]byte {
	var out [16]byte
	for i, src := range guidSwapOrder {
		out[i] = b[src]
	}
	return out
}

// IsZero reports whether g is the all-zero Guid.
func (g Guid) IsZero() bool {
	return g.data == [16]byte{}
}

// String renders the canonical "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx" form,
// reading the bytes in GEP (big-endian) layout.
func (g Guid) String() string {
	b := g.data
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// Equal reports whether two Guids carry the same identity.
func (g Guid) Equal(other Guid) bool {
	return g.data == other.data
}
