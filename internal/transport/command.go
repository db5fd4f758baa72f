// Package transport implements the publisher's dual-channel subscriber
// transport: a reliable TCP command channel carrying framed commands and
// responses, and an optional unreliable UDP data channel a subscriber may
// request for high-throughput measurement delivery.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// CommandChannel wraps a subscriber's TCP connection, providing
// context-cancellable command/response framing on top of it.
type CommandChannel struct {
	conn net.Conn
	mu   sync.Mutex
}

// NewCommandChannel wraps an already-accepted connection.
func NewCommandChannel(conn net.Conn) *CommandChannel {
	return &CommandChannel{conn: conn}
}

// DialCommandChannel connects to a publisher's command endpoint. Production
// code never dials out (the publisher only accepts); this exists for the
// in-repo test client that exercises the publisher end to end.
func DialCommandChannel(ctx context.Context, addr string) (*CommandChannel, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return NewCommandChannel(conn), nil
}

// RemoteAddr returns the connection's remote address.
func (c *CommandChannel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ReadCommand blocks until a full command frame arrives or ctx is done.
func (c *CommandChannel) ReadCommand(ctx context.Context) (command byte, payload []byte, err error) {
	if err := c.applyDeadline(ctx, false); err != nil {
		return 0, nil, err
	}
	done := make(chan struct{})
	defer close(done)
	go c.cancelOnDone(ctx, done, false)

	return wire.ReadCommandFrame(c.conn)
}

// WriteResponse writes a single response frame, serialized under a mutex so
// concurrent publisher goroutines (fan-out writer, ping timer, command
// handler) never interleave partial frames on the wire.
func (c *CommandChannel) WriteResponse(ctx context.Context, responseCode, commandCode byte, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx, true); err != nil {
		return err
	}
	return wire.WriteResponseFrame(c.conn, responseCode, commandCode, payload)
}

// WriteCommand writes a single command frame. Used only by the in-repo test
// client (DialCommandChannel's counterpart): production subscriber
// connections only ever read commands, never write them.
func (c *CommandChannel) WriteCommand(ctx context.Context, command byte, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx, true); err != nil {
		return err
	}
	return wire.WriteCommandFrame(c.conn, command, payload)
}

// ReadResponse blocks until a full response frame arrives or ctx is done.
// Used only by the in-repo test client; production subscriber connections
// only ever write responses, never read them.
func (c *CommandChannel) ReadResponse(ctx context.Context) (responseCode, commandCode byte, payload []byte, err error) {
	if err := c.applyDeadline(ctx, false); err != nil {
		return 0, 0, nil, err
	}
	done := make(chan struct{})
	defer close(done)
	go c.cancelOnDone(ctx, done, false)

	return wire.ReadResponseFrame(c.conn)
}

// WriteNoOP writes the bare ping heartbeat.
func (c *CommandChannel) WriteNoOP(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx, true); err != nil {
		return err
	}
	return wire.WriteNoOP(c.conn)
}

// Close closes the underlying connection.
func (c *CommandChannel) Close() error {
	return c.conn.Close()
}

func (c *CommandChannel) applyDeadline(ctx context.Context, write bool) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	if write {
		return c.conn.SetWriteDeadline(deadline)
	}
	return c.conn.SetReadDeadline(deadline)
}

// cancelOnDone unblocks a pending read by forcing an expired deadline once
// ctx is cancelled, mirroring the read-timeout-as-cancellation pattern used
// throughout this codebase's transports.
func (c *CommandChannel) cancelOnDone(ctx context.Context, done <-chan struct{}, write bool) {
	select {
	case <-ctx.Done():
		now := time.Now()
		if write {
			_ = c.conn.SetWriteDeadline(now)
		} else {
			_ = c.conn.SetReadDeadline(now)
		}
	case <-done:
	}
}
