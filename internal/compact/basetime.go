package compact

import "sync/atomic"

// windowTicks is the width of one base-time-offset window: 10 minutes
// expressed in .NET ticks (100ns units).
const windowTicks int64 = 10 * 60 * 10_000_000

// maxOffsetTicks bounds how far a timestamp may diverge from the active
// base-time offset and still be eligible for offset encoding; beyond this,
// a measurement falls back to an absolute 8-byte timestamp. The upstream
// protocol gates this by uint16 millisecond-resolution range even for the
// four-byte tick-resolution path, a quirk preserved here for wire
// compatibility with peers that rely on it.
const maxOffsetTicks int64 = 65535

// BaseTimeOffsets tracks the two adjacent 10-minute windows a publisher
// uses to express compact-format timestamps as small offsets instead of
// absolute 8-byte ticks. Exactly one of the two slots is "active" at a
// time, selected by TimeIndex; the other holds the adjacent (next or
// previous) window. Encoder offsets timestamps from the active slot only: a
// timestamp at or before it, or too far past it, is sent as absolute ticks.
type BaseTimeOffsets struct {
	offsets   [2]int64
	timeIndex atomic.Int32
}

// NewBaseTimeOffsets seeds both windows from now, with slot 0 active and
// slot 1 covering the following 10-minute window.
func NewBaseTimeOffsets(now int64) *BaseTimeOffsets {
	b := &BaseTimeOffsets{}
	b.offsets[0] = now
	b.offsets[1] = now + windowTicks
	return b
}

// ActiveIndex returns the currently active slot (0 or 1).
func (b *BaseTimeOffsets) ActiveIndex() int32 {
	return b.timeIndex.Load()
}

// Offset returns the base-time value of the given slot.
func (b *BaseTimeOffsets) Offset(index int32) int64 {
	return b.offsets[index&1]
}

// Active returns the currently active base-time value.
func (b *BaseTimeOffsets) Active() int64 {
	return b.Offset(b.ActiveIndex())
}

// SetWindows installs both window offsets and the active index directly,
// without deriving slot 1 from slot 0. A subscriber that receives an
// UpdateBaseTimes push uses this to mirror the publisher's windows exactly,
// the same way cipher.Engine.SetSlot mirrors announced key material instead
// of deriving it locally.
func (b *BaseTimeOffsets) SetWindows(offset0, offset1 int64, active int32) {
	b.offsets[0] = offset0
	b.offsets[1] = offset1
	b.timeIndex.Store(active & 1)
}

// Advance reassigns the inactive slot to cover the window starting at now
// and flips the active index, if now has crossed the active window's
// boundary. Called periodically (e.g. from the publisher's ping timer) so
// long-lived subscriptions never drift into exclusively-absolute-timestamp
// encoding.
func (b *BaseTimeOffsets) Advance(now int64) {
	active := b.ActiveIndex()
	if now < b.offsets[active]+windowTicks {
		return
	}
	inactive := active ^ 1
	b.offsets[inactive] = now
	b.timeIndex.Store(inactive)
}
