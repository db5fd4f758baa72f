package signalindex

import (
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// Encode serializes the cache into the UpdateSignalIndexCache response body:
// u32 entryCount, then per entry (u32 runtimeIndex, 16-byte Guid in GEP
// layout, u32 sourceLen, source bytes, u32 id, u32 tagLen, tag bytes),
// followed by the binary-authorization segment (u32 count, 16-byte Guids).
func (c *Cache) Encode(enc wire.StringEncoding) []byte {
	buf := wire.NewBuffer(64 + len(c.entries)*48)
	buf.WriteUint32(uint32(len(c.entries)))

	for signalIndex, e := range c.entries {
		buf.WriteUint32(uint32(signalIndex))
		buf.WriteGuid(e.signalID, wire.GEPLayout)
		buf.WriteString(e.source, enc)
		buf.WriteUint32(e.id)
		buf.WriteString(e.tag, enc)
	}

	buf.WriteUint32(uint32(len(c.authorized)))
	for _, id := range c.authorized {
		buf.WriteGuid(id, wire.GEPLayout)
	}

	return buf.Bytes()
}

// Decode parses a cache from an UpdateSignalIndexCache response body,
// replacing any existing entries.
func Decode(data []byte, enc wire.StringEncoding) (*Cache, error) {
	r := wire.NewReader(data)
	c := NewCache()

	count, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < count; i++ {
		signalIndex, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		signalID, err := r.ReadGuid(wire.GEPLayout)
		if err != nil {
			return nil, err
		}
		source, err := r.ReadString(enc)
		if err != nil {
			return nil, err
		}
		id, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		tag, err := r.ReadString(enc)
		if err != nil {
			return nil, err
		}
		c.AddMeasurementKey(uint16(signalIndex), signalID, source, id, tag)
	}

	authCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	authorized := make([]wire.Guid, 0, authCount)
	for i := uint32(0); i < authCount; i++ {
		id, err := r.ReadGuid(wire.GEPLayout)
		if err != nil {
			return nil, err
		}
		authorized = append(authorized, id)
	}
	c.SetAuthorizedSignalIDs(authorized)

	return c, nil
}
