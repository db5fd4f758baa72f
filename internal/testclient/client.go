// Package testclient implements an in-process simulated subscriber used
// only by integration tests (§2, §10): it speaks the same command-channel
// protocol internal/subscriber.Connection serves, so tests can exercise a
// DataPublisher end to end without a separate GEP client implementation.
package testclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"github.com/gridprotectionalliance/gep-publisher/internal/cipher"
	"github.com/gridprotectionalliance/gep-publisher/internal/compact"
	"github.com/gridprotectionalliance/gep-publisher/internal/measurement"
	"github.com/gridprotectionalliance/gep-publisher/internal/signalindex"
	"github.com/gridprotectionalliance/gep-publisher/internal/transport"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// Client is a minimal subscriber driver: dial, negotiate modes, subscribe,
// read back the signal-index cache and data packets, decoding them with the
// same compact encoder the real connection uses.
type Client struct {
	cmd *transport.CommandChannel

	encoding                 wire.StringEncoding
	includeTime              bool
	useMillisecondResolution bool

	cache     *signalindex.Cache
	baseTimes *compact.BaseTimeOffsets

	cipherEngine *cipher.Engine
	decrypting   bool
}

// Dial opens a command channel to a publisher's listen address.
func Dial(ctx context.Context, addr string) (*Client, error) {
	cmd, err := transport.DialCommandChannel(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("testclient: dial %s: %w", addr, err)
	}
	engine, err := cipher.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("testclient: initialize cipher engine: %w", err)
	}
	return &Client{
		cmd:          cmd,
		encoding:     wire.UTF8,
		includeTime:  true,
		cipherEngine: engine,
	}, nil
}

// Close closes the underlying command channel.
func (c *Client) Close() error { return c.cmd.Close() }

// DefineOperationalModes negotiates the connection's operational modes and
// records the resulting string encoding for subsequent reads.
func (c *Client) DefineOperationalModes(ctx context.Context, modes uint32) error {
	buf := wire.NewBuffer(4)
	buf.WriteUint32(modes)
	if err := c.cmd.WriteCommand(ctx, wire.CommandDefineOperationalModes, buf.Bytes()); err != nil {
		return fmt.Errorf("testclient: send DefineOperationalModes: %w", err)
	}
	respCode, _, _, err := c.cmd.ReadResponse(ctx)
	if err != nil {
		return fmt.Errorf("testclient: read DefineOperationalModes response: %w", err)
	}
	if respCode != wire.ResponseSucceeded {
		return fmt.Errorf("testclient: DefineOperationalModes failed with response %#x", respCode)
	}
	c.encoding = wire.EncodingFromOperationalModes(modes)
	return nil
}

// Subscribe sends a Subscribe command with connectionString and waits for
// the resulting signal-index cache and the UpdateBaseTimes push that
// follows it, installing both.
func (c *Client) Subscribe(ctx context.Context, connectionString string) (*signalindex.Cache, error) {
	buf := wire.NewBuffer(16 + len(connectionString))
	buf.WriteUint8(0)
	buf.WriteString(connectionString, c.encoding)
	if err := c.cmd.WriteCommand(ctx, wire.CommandSubscribe, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("testclient: send Subscribe: %w", err)
	}

	respCode, _, payload, err := c.cmd.ReadResponse(ctx)
	if err != nil {
		return nil, fmt.Errorf("testclient: read Subscribe response: %w", err)
	}
	if respCode != wire.ResponseUpdateSignalIndexCache {
		return nil, fmt.Errorf("testclient: Subscribe failed with response %#x: %s", respCode, payload)
	}

	cache, err := signalindex.Decode(payload, c.encoding)
	if err != nil {
		return nil, fmt.Errorf("testclient: decode signal-index cache: %w", err)
	}
	c.cache = cache

	respCode, _, payload, err = c.cmd.ReadResponse(ctx)
	if err != nil {
		return nil, fmt.Errorf("testclient: read UpdateBaseTimes response: %w", err)
	}
	if respCode != wire.ResponseUpdateBaseTimes {
		return nil, fmt.Errorf("testclient: expected UpdateBaseTimes after Subscribe, got response %#x", respCode)
	}
	if err := c.applyBaseTimes(payload); err != nil {
		return nil, err
	}

	return cache, nil
}

// applyBaseTimes decodes an UpdateBaseTimes payload and installs it as the
// client's base-time-offset windows, mirroring the publisher's windows
// exactly rather than deriving them locally.
func (c *Client) applyBaseTimes(payload []byte) error {
	r := wire.NewReader(payload)
	offset0, err := r.ReadInt64()
	if err != nil {
		return fmt.Errorf("testclient: decode UpdateBaseTimes offset 0: %w", err)
	}
	offset1, err := r.ReadInt64()
	if err != nil {
		return fmt.Errorf("testclient: decode UpdateBaseTimes offset 1: %w", err)
	}
	active, err := r.ReadUint8()
	if err != nil {
		return fmt.Errorf("testclient: decode UpdateBaseTimes active index: %w", err)
	}
	if c.baseTimes == nil {
		c.baseTimes = compact.NewBaseTimeOffsets(offset0)
	}
	c.baseTimes.SetWindows(offset0, offset1, int32(active))
	return nil
}

// readResponse reads the next response, transparently applying and skipping
// over any UpdateBaseTimes pushes (sent whenever the publisher's active
// window flips) until a response the caller actually asked for arrives.
func (c *Client) readResponse(ctx context.Context) (responseCode, commandCode byte, payload []byte, err error) {
	for {
		responseCode, commandCode, payload, err = c.cmd.ReadResponse(ctx)
		if err != nil {
			return 0, 0, nil, err
		}
		if responseCode != wire.ResponseUpdateBaseTimes {
			return responseCode, commandCode, payload, nil
		}
		if err := c.applyBaseTimes(payload); err != nil {
			return 0, 0, nil, err
		}
	}
}

// RotateCipherKeys sends a RotateCipherKeys command and installs the
// announced key material into the client's own cipher engine so that
// subsequent data packets can be decrypted.
func (c *Client) RotateCipherKeys(ctx context.Context) error {
	if err := c.cmd.WriteCommand(ctx, wire.CommandRotateCipherKeys, nil); err != nil {
		return fmt.Errorf("testclient: send RotateCipherKeys: %w", err)
	}
	respCode, _, payload, err := c.cmd.ReadResponse(ctx)
	if err != nil {
		return fmt.Errorf("testclient: read RotateCipherKeys response: %w", err)
	}
	if respCode != wire.ResponseUpdateCipherKeys {
		return fmt.Errorf("testclient: RotateCipherKeys failed with response %#x", respCode)
	}
	if len(payload) != 1+cipher.KeySize+cipher.IVSize {
		return fmt.Errorf("testclient: UpdateCipherKeys payload length = %d, want %d", len(payload), 1+cipher.KeySize+cipher.IVSize)
	}

	index := int32(payload[0])
	var slot cipher.Slot
	copy(slot.Key[:], payload[1:1+cipher.KeySize])
	copy(slot.IV[:], payload[1+cipher.KeySize:])
	c.cipherEngine.SetSlot(index, slot)
	c.cipherEngine.SetActiveIndex(index)
	c.decrypting = true
	return nil
}

// ReadDataStartTime reads the next response, which must be a DataStartTime,
// and returns its tick timestamp.
func (c *Client) ReadDataStartTime(ctx context.Context) (int64, error) {
	respCode, _, payload, err := c.readResponse(ctx)
	if err != nil {
		return 0, fmt.Errorf("testclient: read DataStartTime: %w", err)
	}
	if respCode != wire.ResponseDataStartTime {
		return 0, fmt.Errorf("testclient: expected DataStartTime, got response %#x", respCode)
	}
	r := wire.NewReader(payload)
	ts, err := r.ReadInt64()
	if err != nil {
		return 0, fmt.Errorf("testclient: decode DataStartTime: %w", err)
	}
	if c.baseTimes == nil {
		c.baseTimes = compact.NewBaseTimeOffsets(ts)
	}
	return ts, nil
}

// ReadDataPacket reads the next response, which must be a DataPacket,
// reverses compression/encryption as its flags byte indicates, and decodes
// every compact measurement record using the client's current signal-index
// cache.
func (c *Client) ReadDataPacket(ctx context.Context) ([]measurement.Measurement, error) {
	if c.cache == nil {
		return nil, fmt.Errorf("testclient: cannot decode a data packet before Subscribe")
	}

	respCode, _, payload, err := c.readResponse(ctx)
	if err != nil {
		return nil, fmt.Errorf("testclient: read DataPacket: %w", err)
	}
	if respCode != wire.ResponseDataPacket {
		return nil, fmt.Errorf("testclient: expected DataPacket, got response %#x", respCode)
	}

	r := wire.NewReader(payload)
	flags, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("testclient: decode DataPacket flags: %w", err)
	}
	count, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("testclient: decode DataPacket count: %w", err)
	}
	body := payload[5:]

	if c.decrypting {
		index := int32(0)
		if flags&wire.DataPacketCipherIndex != 0 {
			index = 1
		}
		body, err = c.cipherEngine.Decrypt(index, body)
		if err != nil {
			return nil, fmt.Errorf("testclient: decrypt DataPacket: %w", err)
		}
	}

	if flags&wire.DataPacketCompressed != 0 {
		body, err = gunzip(body)
		if err != nil {
			return nil, fmt.Errorf("testclient: decompress DataPacket: %w", err)
		}
	}

	r = wire.NewReader(body)

	decoder := compact.Decoder{
		Cache:                    c.cache,
		BaseTimes:                c.baseTimes,
		IncludeTime:              c.includeTime,
		UseMillisecondResolution: c.useMillisecondResolution,
	}

	out := make([]measurement.Measurement, 0, count)
	for i := uint32(0); i < count; i++ {
		m, err := decoder.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("testclient: decode measurement %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func gunzip(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
