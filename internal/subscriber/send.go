package subscriber

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"time"

	"github.com/gridprotectionalliance/gep-publisher/internal/compact"
	"github.com/gridprotectionalliance/gep-publisher/internal/measurement"
	"github.com/gridprotectionalliance/gep-publisher/internal/transport"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// PublishMeasurements filters batch by this connection's signal-index cache
// and NaN policy, encodes the survivors as one or more compact data
// packets bounded by maxDataPacketSize, and writes them to the connection's
// data channel (if one was negotiated) or its command channel otherwise.
// A connection that is not subscribed silently drops the batch, matching
// the publisher's never-block-the-caller guarantee (§8 invariant 6).
func (c *Connection) PublishMeasurements(ctx context.Context, batch []measurement.Measurement) error {
	if len(batch) == 0 || !c.IsSubscribed() {
		return nil
	}

	c.cacheMu.RLock()
	cache := c.signalIndexCache
	baseTimes := c.baseTimes
	c.cacheMu.RUnlock()
	if cache == nil {
		return ErrNotSubscribed
	}

	if !c.startTimeSent.Load() {
		if err := c.sendDataStartTime(ctx, batch[0].Timestamp); err != nil {
			return err
		}
		c.startTimeSent.Store(true)
	}

	c.negotiationMu.RLock()
	useCompact := c.useCompactMeasurementFmt
	includeTime := c.includeTime
	useMillis := c.useMillisecondResolution
	nanFiltered := c.isNaNFiltered
	compress := c.usePayloadCompression
	c.negotiationMu.RUnlock()

	encoder := compact.Encoder{
		Cache:                    cache,
		BaseTimes:                baseTimes,
		IncludeTime:              includeTime,
		UseMillisecondResolution: useMillis,
	}

	packet := wire.NewBuffer(maxDataPacketSize)
	record := wire.NewBuffer(32)
	count := 0

	flush := func() error {
		if count == 0 {
			return nil
		}
		if err := c.publishDataPacket(ctx, packet.Bytes(), count, compress); err != nil {
			return err
		}
		packet.Reset()
		count = 0
		return nil
	}

	for _, m := range batch {
		if nanFiltered && compact.IsNaN(m) {
			continue
		}

		record.Reset()
		var wrote bool
		if useCompact {
			wrote = encoder.Encode(record, m)
		} else {
			runtimeIndex := cache.GetSignalIndex(m.SignalID)
			if runtimeIndex != 0xFFFF {
				compact.EncodeFixed(record, uint32(runtimeIndex), m)
				wrote = true
			}
		}
		if !wrote {
			continue
		}

		if packet.Len()+record.Len() > maxDataPacketSize && count > 0 {
			if err := flush(); err != nil {
				return err
			}
		}

		packet.WriteRawBytes(record.Bytes())
		count++
	}

	if err := flush(); err != nil {
		return err
	}

	c.lastPublishTime.Store(time.Now().UnixNano())
	return nil
}

func (c *Connection) sendDataStartTime(ctx context.Context, timestamp int64) error {
	buf := wire.NewBuffer(8)
	buf.WriteInt64(timestamp)
	if err := c.cmd.WriteResponse(ctx, wire.ResponseDataStartTime, wire.CommandSubscribe, buf.Bytes()); err != nil {
		return err
	}
	c.bytesSent.Add(int64(buf.Len()))
	c.parent.DispatchStatus(fmt.Sprintf("start time sent to %q", c.connectionID))
	return nil
}

// sendUpdateBaseTimes pushes bt's current windows to the subscriber so its
// decoder can resolve offset-encoded timestamps without having negotiated
// them any other way. Sent once on Subscribe and again every time the
// connection's active window flips (§4.2).
func (c *Connection) sendUpdateBaseTimes(ctx context.Context, bt *compact.BaseTimeOffsets) error {
	buf := wire.NewBuffer(17)
	buf.WriteInt64(bt.Offset(0))
	buf.WriteInt64(bt.Offset(1))
	buf.WriteUint8(uint8(bt.ActiveIndex()))
	if err := c.cmd.WriteResponse(ctx, wire.ResponseUpdateBaseTimes, wire.CommandSubscribe, buf.Bytes()); err != nil {
		return err
	}
	c.bytesSent.Add(int64(buf.Len()))
	return nil
}

// advanceBaseTimes rolls the connection's base-time-offset windows forward
// once the active window has expired and, if that flips the active index,
// announces the new windows to the subscriber. Called from the ping loop so
// a long-lived subscription never drifts into exclusively-absolute-
// timestamp encoding (§4.2).
func (c *Connection) advanceBaseTimes(ctx context.Context) {
	c.cacheMu.RLock()
	bt := c.baseTimes
	c.cacheMu.RUnlock()
	if bt == nil {
		return
	}

	before := bt.ActiveIndex()
	bt.Advance(measurement.FromTime(time.Now()))
	if bt.ActiveIndex() == before {
		return
	}

	if err := c.sendUpdateBaseTimes(ctx, bt); err != nil {
		c.parent.DispatchError(fmt.Sprintf("send UpdateBaseTimes to %q: %v", c.connectionID, err))
	}
}

func (c *Connection) publishDataPacket(ctx context.Context, records []byte, count int, compress bool) error {
	c.negotiationMu.RLock()
	useCompact := c.useCompactMeasurementFmt
	c.negotiationMu.RUnlock()

	payload := records
	var flags uint8
	if useCompact {
		flags |= wire.DataPacketCompact
	}

	if compress {
		var out bytes.Buffer
		gw := gzip.NewWriter(&out)
		if _, err := gw.Write(payload); err != nil {
			return fmt.Errorf("subscriber: compress data packet: %w", err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("subscriber: compress data packet: %w", err)
		}
		payload = out.Bytes()
		flags |= wire.DataPacketCompressed
	}

	if c.encryptPayload.Load() {
		activeIndex := c.cipherEngine.ActiveIndex()
		encrypted, err := c.cipherEngine.Encrypt(activeIndex, payload)
		if err != nil {
			return fmt.Errorf("subscriber: encrypt data packet: %w", err)
		}
		payload = encrypted
		if activeIndex == 1 {
			flags |= wire.DataPacketCipherIndex
		}
	}

	buf := wire.NewBuffer(5 + len(payload))
	buf.WriteUint8(flags)
	buf.WriteUint32(uint32(count))
	buf.WriteRawBytes(payload)

	if err := c.sendDataBytes(ctx, buf.Bytes()); err != nil {
		return err
	}
	c.bytesSent.Add(int64(buf.Len()))
	c.measurementsSent.Add(int64(count))
	return nil
}

// sendDataBytes writes a DataPacket response to the data channel if one was
// negotiated, otherwise multiplexes it onto the command channel (§4.4).
func (c *Connection) sendDataBytes(ctx context.Context, payload []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.dataMu.Lock()
	dc := c.data
	c.dataMu.Unlock()

	if dc != nil {
		return dc.Write(payload)
	}
	return c.cmd.WriteResponse(ctx, wire.ResponseDataPacket, wire.CommandSubscribe, payload)
}

// BindDataChannel attaches an outbound UDP data channel; once attached,
// DataPacket responses go over it instead of the command channel.
// handleSubscribe reads no data-channel setting from the connection string
// and does not call BindDataChannel.
func (c *Connection) BindDataChannel(dc *transport.DataChannel) {
	c.dataMu.Lock()
	c.data = dc
	c.dataMu.Unlock()
}
