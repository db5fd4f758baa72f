// Package signalindex implements the Signal-Index Cache: the bidirectional
// mapping between a compact 16-bit runtime index and a measurement's full
// identity (signal ID, source, numeric id, tag) for the lifetime of one
// subscription.
package signalindex

import (
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// unknownSignalIndex is returned by GetSignalIndex when a Guid has no entry
// in the cache.
const unknownSignalIndex = 0xFFFF

// entry holds one cache row: everything needed to reconstruct a
// measurement's human-readable key from its runtime index.
type entry struct {
	signalID wire.Guid
	source   string
	id       uint32
	tag      string
}

// Cache maps u16 runtime indices to measurement identities and back. It is
// built once per Subscribe command and frozen for the subscription's
// lifetime; a resubscribe replaces it wholesale rather than mutating it in
// place.
type Cache struct {
	entries    map[uint16]entry
	byID       map[wire.Guid]uint16
	authorized []wire.Guid
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[uint16]entry),
		byID:    make(map[wire.Guid]uint16),
	}
}

// AddMeasurementKey registers one entry, associating signalIndex with the
// given identity. Indices are assigned by the caller in filter-expression
// compilation order.
func (c *Cache) AddMeasurementKey(signalIndex uint16, signalID wire.Guid, source string, id uint32, tag string) {
	c.entries[signalIndex] = entry{signalID: signalID, source: source, id: id, tag: tag}
	c.byID[signalID] = signalIndex
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.entries = make(map[uint16]entry)
	c.byID = make(map[wire.Guid]uint16)
	c.authorized = nil
}

// Len returns the number of entries in the cache.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Contains reports whether signalIndex has a registered entry.
func (c *Cache) Contains(signalIndex uint16) bool {
	_, ok := c.entries[signalIndex]
	return ok
}

// GetSignalID returns the Guid registered for signalIndex.
func (c *Cache) GetSignalID(signalIndex uint16) (wire.Guid, bool) {
	e, ok := c.entries[signalIndex]
	return e.signalID, ok
}

// GetSource returns the source half of the measurement key registered for
// signalIndex.
func (c *Cache) GetSource(signalIndex uint16) (string, bool) {
	e, ok := c.entries[signalIndex]
	return e.source, ok
}

// GetID returns the numeric id half of the measurement key registered for
// signalIndex.
func (c *Cache) GetID(signalIndex uint16) (uint32, bool) {
	e, ok := c.entries[signalIndex]
	return e.id, ok
}

// GetTag returns the point tag registered for signalIndex.
func (c *Cache) GetTag(signalIndex uint16) (string, bool) {
	e, ok := c.entries[signalIndex]
	return e.tag, ok
}

// GetMeasurementKey returns the full identity registered for signalIndex.
func (c *Cache) GetMeasurementKey(signalIndex uint16) (signalID wire.Guid, source string, id uint32, ok bool) {
	e, ok := c.entries[signalIndex]
	return e.signalID, e.source, e.id, ok
}

// GetSignalIndex returns the runtime index registered for signalID, or the
// 0xFFFF sentinel if signalID has no entry.
func (c *Cache) GetSignalIndex(signalID wire.Guid) uint16 {
	if idx, ok := c.byID[signalID]; ok {
		return idx
	}
	return unknownSignalIndex
}

// SetAuthorizedSignalIDs records the binary-authorization segment sent
// alongside the cache (the set of signal IDs the subscriber is permitted to
// receive under the current security mode; empty under open security).
func (c *Cache) SetAuthorizedSignalIDs(ids []wire.Guid) {
	c.authorized = ids
}

// AuthorizedSignalIDs returns the binary-authorization segment.
func (c *Cache) AuthorizedSignalIDs() []wire.Guid {
	return c.authorized
}
