package compact

import "testing"

func TestBaseTimeOffsetsInitialWindows(t *testing.T) {
	b := NewBaseTimeOffsets(1000)
	if b.ActiveIndex() != 0 {
		t.Fatalf("ActiveIndex() = %d, want 0", b.ActiveIndex())
	}
	if b.Active() != 1000 {
		t.Fatalf("Active() = %d, want 1000", b.Active())
	}
	if b.Offset(1) != 1000+windowTicks {
		t.Fatalf("Offset(1) = %d, want %d", b.Offset(1), 1000+windowTicks)
	}
}

func TestBaseTimeOffsetsAdvanceFlipsIndex(t *testing.T) {
	b := NewBaseTimeOffsets(0)
	b.Advance(windowTicks + 1)
	if b.ActiveIndex() != 1 {
		t.Fatalf("ActiveIndex() after crossing boundary = %d, want 1", b.ActiveIndex())
	}
	if b.Active() != windowTicks+1 {
		t.Fatalf("Active() = %d, want %d", b.Active(), windowTicks+1)
	}
}

func TestBaseTimeOffsetsAdvanceNoopWithinWindow(t *testing.T) {
	b := NewBaseTimeOffsets(0)
	b.Advance(windowTicks - 1)
	if b.ActiveIndex() != 0 {
		t.Fatalf("ActiveIndex() within window = %d, want 0", b.ActiveIndex())
	}
}
