package subscriber

import (
	"time"

	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// SignalEntry is one resolved signal identity returned by a filter
// expression compilation, sufficient to populate a signal-index-cache
// entry.
type SignalEntry struct {
	SignalID wire.Guid
	Source   string
	ID       uint32
	Tag      string
}

// Publisher is the subset of *publisher.DataPublisher a Connection needs.
// Declaring it here (rather than importing the publisher package directly)
// keeps the dependency one-directional: publisher imports subscriber, never
// the reverse, matching the parent/connection relationship described in
// §9 ("the connection never controls the publisher's lifetime").
type Publisher interface {
	// CompileFilter resolves a Subscribe command's filterExpression against
	// the publisher's metadata, in compilation order.
	CompileFilter(expression string) ([]SignalEntry, error)
	// SerializeMetadata renders the publisher's filtering metadata dataset
	// for a MetadataRefresh response, in the given string encoding.
	SerializeMetadata(enc wire.StringEncoding) ([]byte, error)
	// AllowMetadataRefresh reports whether MetadataRefresh commands are
	// honored under the publisher's current permission flags.
	AllowMetadataRefresh() bool
	// NaNFilterPolicy reports whether the NaN filter may be toggled by a
	// subscriber (allow) or is mandatory regardless of its request (force).
	NaNFilterPolicy() (allow, force bool)
	// CipherRotationPeriod is the publisher-configured interval between
	// automatic RotateCipherKeys cycles, already clamped to [1000ms, 24h].
	CipherRotationPeriod() time.Duration
	// PingInterval is the publisher-configured interval between NoOP
	// heartbeats on an otherwise idle connection.
	PingInterval() time.Duration
	// DispatchStatus and DispatchError enqueue a message on the publisher's
	// callback dispatcher goroutine.
	DispatchStatus(message string)
	DispatchError(message string)
	// Remove drops the connection from the publisher's active set. Called
	// once, from finalize, after all of the connection's goroutines return.
	Remove(subscriberID wire.Guid)
}
