package transport

import (
	"context"
	"fmt"
	"net"
)

// maxDataDatagram bounds a single UDP data-channel write to a safe
// unfragmented payload size.
const maxDataDatagram = 65507

// DataChannel is a subscriber's optional unreliable data channel, targeting
// the address passed to DialDataChannel. When absent,
// the connection multiplexes DataPacket responses onto the command channel
// instead.
type DataChannel struct {
	conn *net.UDPConn
}

// DialDataChannel opens a UDP socket targeting a subscriber-supplied
// address, used by the publisher to push DataPacket bodies outside the
// command channel.
func DialDataChannel(remoteAddr string) (*DataChannel, error) {
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve data channel %s: %w", remoteAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial data channel %s: %w", remoteAddr, err)
	}
	return &DataChannel{conn: conn}, nil
}

// Write sends one DataPacket body over the data channel.
func (d *DataChannel) Write(payload []byte) error {
	if len(payload) > maxDataDatagram {
		return fmt.Errorf("transport: data packet of %d bytes exceeds max datagram size %d", len(payload), maxDataDatagram)
	}
	_, err := d.conn.Write(payload)
	return err
}

// Close closes the data channel's socket.
func (d *DataChannel) Close() error {
	return d.conn.Close()
}

// Listener accepts subscriber command-channel connections.
type Listener struct {
	ln net.Listener
}

// Listen binds a TCP listener for the publisher's command endpoint.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &Listener{ln: ln}, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Accept blocks for the next inbound connection, wrapping it as a
// CommandChannel. It unblocks early if ctx is cancelled by closing the
// listener, matching the goroutine-per-connection accept-loop idiom used by
// the publisher's accept loop.
func (l *Listener) Accept(ctx context.Context) (*CommandChannel, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	out := make(chan result, 1)
	go func() {
		conn, err := l.ln.Accept()
		out <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		_ = l.ln.Close()
		return nil, ctx.Err()
	case r := <-out:
		if r.err != nil {
			return nil, r.err
		}
		return NewCommandChannel(r.conn), nil
	}
}

// Close closes the listener.
func (l *Listener) Close() error {
	return l.ln.Close()
}
