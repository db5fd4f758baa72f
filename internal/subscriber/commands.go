package subscriber

import (
	"context"
	"fmt"
	"time"

	"github.com/gridprotectionalliance/gep-publisher/internal/cipher"
	"github.com/gridprotectionalliance/gep-publisher/internal/compact"
	"github.com/gridprotectionalliance/gep-publisher/internal/measurement"
	"github.com/gridprotectionalliance/gep-publisher/internal/signalindex"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// handleCommand dispatches one complete command frame per the table in
// §4.4, writing the resulting response (or Failed, on error) before
// returning.
func (c *Connection) handleCommand(ctx context.Context, command byte, payload []byte) error {
	if wire.IsUserCommand(command) {
		return c.handleUserCommand(ctx, command, payload)
	}

	var (
		respPayload []byte
		err         error
	)

	switch command {
	case wire.CommandDefineOperationalModes:
		respPayload, err = c.handleDefineOperationalModes(payload)
	case wire.CommandSubscribe:
		respPayload, err = c.handleSubscribe(ctx, payload)
	case wire.CommandUnsubscribe:
		respPayload, err = c.handleUnsubscribe()
	case wire.CommandMetadataRefresh:
		respPayload, err = c.handleMetadataRefresh()
	case wire.CommandRotateCipherKeys:
		err = c.rotateCipherKeys(ctx)
	case wire.CommandUpdateProcessingInterval:
		respPayload, err = c.handleUpdateProcessingInterval(payload)
	case wire.CommandConfirmNotification:
		respPayload, err = c.handleConfirmNotification(payload)
	case wire.CommandConfirmBufferBlock:
		respPayload, err = c.handleConfirmBufferBlock(payload)
	case wire.CommandPublishCommandMeasurements:
		respPayload, err = c.handlePublishCommandMeasurements(payload)
	default:
		message := fmt.Sprintf("%q sent an unrecognized server command: %#x", c.connectionID, command)
		c.parent.DispatchError(message)
		return c.cmd.WriteResponse(ctx, wire.ResponseFailed, command, []byte(message))
	}

	if err != nil {
		return c.cmd.WriteResponse(ctx, wire.ResponseFailed, command, []byte(err.Error()))
	}
	if command == wire.CommandRotateCipherKeys || command == wire.CommandSubscribe {
		// rotateCipherKeys already sent its own UpdateCipherKeys response, and
		// handleSubscribe its UpdateSignalIndexCache and UpdateBaseTimes.
		return nil
	}
	return c.cmd.WriteResponse(ctx, wire.ResponseSucceeded, command, respPayload)
}

func (c *Connection) handleDefineOperationalModes(payload []byte) ([]byte, error) {
	r := wire.NewReader(payload)
	modes, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("subscriber: malformed DefineOperationalModes payload: %w", err)
	}

	c.negotiationMu.Lock()
	c.operationalModes.Store(modes)
	c.encoding = wire.EncodingFromOperationalModes(modes)
	c.usePayloadCompression = modes&wire.CompressPayloadData != 0
	c.negotiationMu.Unlock()

	if modes&wire.CompressionModeMask == wire.CompressionTSSC {
		c.parent.DispatchStatus(fmt.Sprintf("client %q requested TSSC compression, which is unsupported; falling back to uncompressed compact measurements", c.connectionID))
	}

	if c.State() == StateConnected {
		c.state.Store(int32(StateModesSet))
	}
	return nil, nil
}

func (c *Connection) handleSubscribe(ctx context.Context, payload []byte) ([]byte, error) {
	if c.State() == StateConnected {
		return nil, ErrModesNotSet
	}

	r := wire.NewReader(payload)
	flags, err := r.ReadUint8()
	_ = flags // reserved subscribe-flags byte, unused beyond framing
	if err != nil {
		return nil, fmt.Errorf("subscriber: malformed Subscribe payload: %w", err)
	}
	connectionString, err := r.ReadString(c.currentEncoding())
	if err != nil {
		return nil, fmt.Errorf("subscriber: malformed Subscribe connection string: %w", err)
	}

	settings := ParseConnectionString(connectionString)

	c.negotiationMu.Lock()
	if v, ok := settings["includetime"]; ok {
		c.includeTime = parseBool(v, c.includeTime)
	}
	if v, ok := settings["usemillisecondresolution"]; ok {
		c.useMillisecondResolution = parseBool(v, c.useMillisecondResolution)
	}
	allowNaN, forceNaN := c.parent.NaNFilterPolicy()
	if forceNaN {
		c.isNaNFiltered = true
	} else if v, ok := settings["isnanfiltered"]; ok && allowNaN {
		c.isNaNFiltered = parseBool(v, c.isNaNFiltered)
	}
	c.negotiationMu.Unlock()

	expression := settings["filterexpression"]
	entries, err := c.parent.CompileFilter(expression)
	if err != nil {
		return nil, fmt.Errorf("subscriber: compile filter expression: %w", err)
	}

	newCache := newCacheFromEntries(entries)

	c.cacheMu.Lock()
	c.signalIndexCache = newCache
	if c.baseTimes == nil {
		c.baseTimes = compact.NewBaseTimeOffsets(measurement.FromTime(time.Now()))
	}
	baseTimes := c.baseTimes
	c.cacheMu.Unlock()

	c.startTimeSent.Store(false)
	c.state.Store(int32(StateSubscribed))

	enc := c.currentEncoding()
	cacheBytes := newCache.Encode(enc)
	if err := c.cmd.WriteResponse(ctx, wire.ResponseUpdateSignalIndexCache, wire.CommandSubscribe, cacheBytes); err != nil {
		return nil, err
	}
	c.bytesSent.Add(int64(len(cacheBytes)))

	if err := c.sendUpdateBaseTimes(ctx, baseTimes); err != nil {
		return nil, err
	}

	c.parent.DispatchStatus(fmt.Sprintf("client %q subscribed with %d signals", c.connectionID, newCache.Len()))
	return nil, nil
}

func (c *Connection) handleUnsubscribe() ([]byte, error) {
	c.cacheMu.Lock()
	c.signalIndexCache = nil
	c.cacheMu.Unlock()

	if c.State() == StateSubscribed {
		c.state.Store(int32(StateModesSet))
	}
	c.parent.DispatchStatus(fmt.Sprintf("client %q unsubscribed", c.connectionID))
	return nil, nil
}

func (c *Connection) handleMetadataRefresh() ([]byte, error) {
	if !c.parent.AllowMetadataRefresh() {
		return nil, fmt.Errorf("subscriber: metadata refresh is not permitted by publisher configuration")
	}
	return c.parent.SerializeMetadata(c.currentEncoding())
}

func (c *Connection) rotateCipherKeys(ctx context.Context) error {
	newSlot, err := c.cipherEngine.Rotate()
	if err != nil {
		return fmt.Errorf("subscriber: rotate cipher keys: %w", err)
	}

	buf := wire.NewBuffer(1 + cipher.KeySize + cipher.IVSize)
	buf.WriteUint8(uint8(c.cipherEngine.ActiveIndex()))
	buf.WriteRawBytes(newSlot.Key[:])
	buf.WriteRawBytes(newSlot.IV[:])

	if err := c.cmd.WriteResponse(ctx, wire.ResponseUpdateCipherKeys, wire.CommandRotateCipherKeys, buf.Bytes()); err != nil {
		return err
	}
	c.bytesSent.Add(int64(buf.Len()))
	c.encryptPayload.Store(true)
	return nil
}

func (c *Connection) handleUpdateProcessingInterval(payload []byte) ([]byte, error) {
	r := wire.NewReader(payload)
	ms, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("subscriber: malformed UpdateProcessingInterval payload: %w", err)
	}
	c.processingInterval.Store(int64(ms))
	return nil, nil
}

func (c *Connection) handlePublishCommandMeasurements(payload []byte) ([]byte, error) {
	c.cacheMu.RLock()
	cache := c.signalIndexCache
	baseTimes := c.baseTimes
	c.cacheMu.RUnlock()
	if cache == nil {
		return nil, ErrNotSubscribed
	}

	c.negotiationMu.RLock()
	decoder := compact.Decoder{
		Cache:                    cache,
		BaseTimes:                baseTimes,
		IncludeTime:              c.includeTime,
		UseMillisecondResolution: c.useMillisecondResolution,
	}
	c.negotiationMu.RUnlock()

	r := wire.NewReader(payload)
	count, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("subscriber: malformed PublishCommandMeasurements payload: %w", err)
	}

	received := make([]measurement.Measurement, 0, count)
	for i := uint32(0); i < count; i++ {
		m, err := decoder.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("subscriber: decode inbound measurement %d: %w", i, err)
		}
		received = append(received, m)
	}

	c.parent.DispatchStatus(fmt.Sprintf("received %d command-channel measurements from %q", len(received), c.connectionID))
	return nil, nil
}

func (c *Connection) handleConfirmNotification(payload []byte) ([]byte, error) {
	r := wire.NewReader(payload)
	id, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("subscriber: malformed ConfirmNotification payload: %w", err)
	}
	c.clearPendingNotification(id)
	return nil, nil
}

func (c *Connection) handleConfirmBufferBlock(payload []byte) ([]byte, error) {
	r := wire.NewReader(payload)
	sequence, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("subscriber: malformed ConfirmBufferBlock payload: %w", err)
	}
	c.clearPendingBufferBlock(sequence)
	return nil, nil
}

func (c *Connection) handleUserCommand(ctx context.Context, command byte, payload []byte) error {
	c.parent.DispatchStatus(fmt.Sprintf("client %q sent user command %#x (%d bytes)", c.connectionID, command, len(payload)))
	return c.cmd.WriteResponse(ctx, wire.ResponseSucceeded, command, nil)
}

func (c *Connection) currentEncoding() wire.StringEncoding {
	c.negotiationMu.RLock()
	defer c.negotiationMu.RUnlock()
	return c.encoding
}

func parseBool(s string, fallback bool) bool {
	switch s {
	case "true", "True", "TRUE", "1":
		return true
	case "false", "False", "FALSE", "0":
		return false
	default:
		return fallback
	}
}

func newCacheFromEntries(entries []SignalEntry) *signalindex.Cache {
	cache := signalindex.NewCache()
	for i, e := range entries {
		cache.AddMeasurementKey(uint16(i), e.SignalID, e.Source, e.ID, e.Tag)
	}
	return cache
}
