package wire

import "testing"

// TestGuidSwapInvolution checks the documented invariant: swapping a Guid's
// bytes twice returns the original bytes, in both layouts.
func TestGuidSwapInvolution(t *testing.T) {
	original := [16]byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
	}
	swapped := SwapGuidBytes(original)
	if swapped == original {
		t.Fatalf("SwapGuidBytes did not change any bytes")
	}
	back := SwapGuidBytes(swapped)
	if back != original {
		t.Fatalf("SwapGuidBytes(SwapGuidBytes(b)) = %v, want %v", back, original)
	}
}

func TestGuidLayoutRoundtrip(t *testing.T) {
	raw := []byte{
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22,
		0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0x00,
	}

	for _, layout := range []GuidLayout{GEPLayout, DotNetLayout} {
		g, err := GuidFromBytes(raw, layout)
		if err != nil {
			t.Fatalf("GuidFromBytes(layout=%v): %v", layout, err)
		}
		out := g.Bytes(layout)
		for i := range raw {
			if out[i] != raw[i] {
				t.Fatalf("layout %v: byte %d = %#x, want %#x", layout, i, out[i], raw[i])
			}
		}
	}
}

// TestGuidCrossLayoutDiffers confirms the two layouts are not accidentally
// identical for a Guid whose fields actually require reordering.
func TestGuidCrossLayoutDiffers(t *testing.T) {
	raw := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
	}
	gepGuid, err := GuidFromBytes(raw, GEPLayout)
	if err != nil {
		t.Fatalf("GuidFromBytes(GEP): %v", err)
	}
	netGuid, err := GuidFromBytes(raw, DotNetLayout)
	if err != nil {
		t.Fatalf("GuidFromBytes(.NET): %v", err)
	}
	if gepGuid.Equal(netGuid) {
		t.Fatalf("interpreting identical wire bytes under both layouts produced equal Guids")
	}
}

func TestGuidFromBytesWrongLength(t *testing.T) {
	if _, err := GuidFromBytes([]byte{1, 2, 3}, GEPLayout); err == nil {
		t.Fatalf("GuidFromBytes with 3 bytes: want error, got nil")
	}
}

func TestGuidIsZero(t *testing.T) {
	var g Guid
	if !g.IsZero() {
		t.Fatalf("zero-value Guid.IsZero() = false, want true")
	}
	nonZero, _ := GuidFromBytes([]byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, GEPLayout)
	if nonZero.IsZero() {
		t.Fatalf("non-zero Guid.IsZero() = true, want false")
	}
}

func TestGuidString(t *testing.T) {
	raw := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
	}
	g, err := GuidFromBytes(raw, GEPLayout)
	if err != nil {
		t.Fatalf("GuidFromBytes: %v", err)
	}
	want := "01020304-0506-0708-090a-0b0c0d0e0f10"
	if got := g.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
